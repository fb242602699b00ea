// Package session maps game-server instances to named, detached terminal
// multiplexer sessions.
//
// A session is named "{displayName}-{externalID}"; the name is built only by
// Identity. The registry never records sessions: every question is answered by
// asking the multiplexer, so sessions started or killed by hand are seen as
// they are.
package session

import (
	"context"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/xoxserver/xox-server/internal/errors"
	"github.com/xoxserver/xox-server/internal/logging"
)

// ClosedBanner is echoed when the server process exits so the operator sees
// the exit instead of a vanished session.
const ClosedBanner = `echo -e '\n\nScreen session has been closed. Press Enter to exit.'; read -p ''; exit 0`

// Multiplexer is the OS boundary of the registry.
type Multiplexer interface {
	// ListSessions returns the names of all live sessions.
	ListSessions(ctx context.Context) ([]string, error)
	// Spawn starts a detached session running script with bash -c in dir.
	// An empty dir means the current directory.
	Spawn(ctx context.Context, name, script, dir string) error
	// Attach hands the controlling terminal to the session and returns when
	// the operator detaches or the session ends.
	Attach(ctx context.Context, name string) error
	// Kill terminates the session.
	Kill(ctx context.Context, name string) error
}

// Identity identifies the session of one instance.
type Identity struct {
	DisplayName string
	ExternalID  string
}

// Name returns the session name.
func (id Identity) Name() string {
	return id.DisplayName + "-" + id.ExternalID
}

// Shard returns the identity of a secondary process of the same instance.
// An empty shard is the primary identity.
func (id Identity) Shard(shard string) Identity {
	if shard == "" {
		return id
	}
	return Identity{DisplayName: id.DisplayName + "-" + shard, ExternalID: id.ExternalID}
}

// Owns reports whether name is the session of id or of one of its shards,
// and returns the shard; the primary session has an empty shard.
func (id Identity) Owns(name string) (shard string, ok bool) {
	if name == id.Name() {
		return "", true
	}
	prefix, suffix := id.DisplayName+"-", "-"+id.ExternalID
	if len(name) <= len(prefix)+len(suffix) || !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, suffix) {
		return "", false
	}
	return name[len(prefix) : len(name)-len(suffix)], true
}

// Registry creates, inspects and attaches sessions through a Multiplexer.
type Registry struct {
	mux      Multiplexer
	logger   *logging.Logger
	terminal func() bool
}

// Option configures a Registry.
type Option func(*Registry)

// WithTerminalCheck overrides the check that stdin is an interactive terminal.
func WithTerminalCheck(isTerminal func() bool) Option {
	return func(r *Registry) {
		r.terminal = isTerminal
	}
}

// NewRegistry returns a Registry backed by mux.
func NewRegistry(mux Multiplexer, logger *logging.Logger, opts ...Option) *Registry {
	if logger == nil {
		logger = logging.NopLogger()
	}
	r := &Registry{
		mux:      mux,
		logger:   logger,
		terminal: func() bool { return term.IsTerminal(int(os.Stdin.Fd())) },
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Exists reports whether a live session carries the identity's exact name.
// A multiplexer that cannot list sessions, typically because none is
// running, counts as no session.
func (r *Registry) Exists(ctx context.Context, id Identity) bool {
	names, err := r.mux.ListSessions(ctx)
	if err != nil {
		r.logger.Debug("listing sessions failed", "error", err)
		return false
	}
	name := id.Name()
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}

// List returns the names of all live sessions.
func (r *Registry) List(ctx context.Context) ([]string, error) {
	return r.mux.ListSessions(ctx)
}

// Script builds the bash -c script of a session: the command elements joined
// by spaces followed by the closed banner.
func Script(commands []string) (string, error) {
	for _, c := range commands {
		if strings.Contains(c, `"`) {
			return "", errors.NewIllegalArgumentError("session commands must not contain double quotes", c)
		}
	}
	return strings.Join(commands, " ") + "; " + ClosedBanner, nil
}

// Create starts a detached session running commands in dir. It fails with an
// IllegalArgumentError before touching the multiplexer when a command element
// contains a double quote, and with a SessionAlreadyExistsError when the name
// is taken.
func (r *Registry) Create(ctx context.Context, id Identity, commands []string, dir string) error {
	script, err := Script(commands)
	if err != nil {
		return err
	}

	name := id.Name()
	if r.Exists(ctx, id) {
		return errors.NewSessionAlreadyExistsError(name)
	}

	r.logger.Debug("spawning session", "session", name, "dir", dir, "script", script)
	if err := r.mux.Spawn(ctx, name, script, dir); err != nil {
		return errors.Wrapf(err, "failed to start session %s", name)
	}
	r.logger.Info("session started", "session", name)
	return nil
}

// Attach hands the operator's terminal to the session and blocks until they
// detach.
func (r *Registry) Attach(ctx context.Context, id Identity) error {
	if !r.terminal() {
		return errors.NewValidationError("attaching requires an interactive terminal").WithValue(id.Name())
	}
	name := id.Name()
	r.logger.Info("attaching session", "session", name)
	if err := r.mux.Attach(ctx, name); err != nil {
		return errors.Wrapf(err, "failed to attach session %s", name)
	}
	r.logger.Info("detached session", "session", name)
	return nil
}

// Kill terminates the named session.
func (r *Registry) Kill(ctx context.Context, name string) error {
	names, err := r.mux.ListSessions(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to list sessions")
	}
	found := false
	for _, n := range names {
		if n == name {
			found = true
			break
		}
	}
	if !found {
		return errors.NewNotFoundError("session", name)
	}
	if err := r.mux.Kill(ctx, name); err != nil {
		return errors.Wrapf(err, "failed to kill session %s", name)
	}
	r.logger.Info("session killed", "session", name)
	return nil
}
