// Package tmux drives tmux as the session multiplexer.
//
// xox-server keeps its sessions on a dedicated tmux socket (tmux -L) so they
// never mix with the operator's own tmux sessions, and so a crash of the
// operator's tmux server does not take game servers down with it.
package tmux

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/xoxserver/xox-server/internal/errors"
)

// DefaultSocketName is the socket used when none is configured.
const DefaultSocketName = "xox"

// DefaultGracefulStopTimeout is how long Kill waits after sending Ctrl+C
// before killing the session outright. Dedicated servers save their world on
// SIGINT, which can take a while.
const DefaultGracefulStopTimeout = 10 * time.Second

// CommandArgsWithSocket returns tmux arguments with a custom socket name.
func CommandArgsWithSocket(socket string, args ...string) []string {
	return append([]string{"-L", socket}, args...)
}

// CommandContextWithSocket creates a context-aware exec.Cmd with a custom socket.
func CommandContextWithSocket(ctx context.Context, socket string, args ...string) *exec.Cmd {
	return exec.CommandContext(ctx, "tmux", CommandArgsWithSocket(socket, args...)...)
}

// Multiplexer runs detached sessions on one tmux socket.
type Multiplexer struct {
	socket      string
	stopTimeout time.Duration
	execCommand func(ctx context.Context, socket string, args ...string) *exec.Cmd
}

// New returns a Multiplexer on the given socket. An empty socket means
// DefaultSocketName.
func New(socket string) *Multiplexer {
	if socket == "" {
		socket = DefaultSocketName
	}
	return &Multiplexer{
		socket:      socket,
		stopTimeout: DefaultGracefulStopTimeout,
		execCommand: CommandContextWithSocket,
	}
}

// Socket returns the socket name.
func (m *Multiplexer) Socket() string {
	return m.socket
}

// ListSessions runs list-sessions. A socket with no server yields no sessions.
func (m *Multiplexer) ListSessions(ctx context.Context) ([]string, error) {
	out, err := m.execCommand(ctx, m.socket, "list-sessions", "-F", "#{session_name}").CombinedOutput()
	if err != nil {
		msg := string(out)
		if strings.Contains(msg, "no server running") || strings.Contains(msg, "error connecting") {
			return nil, nil
		}
		return nil, fmt.Errorf("tmux list-sessions failed: %w: %s", err, strings.TrimSpace(msg))
	}

	var names []string
	for _, line := range strings.Split(string(out), "\n") {
		if name := strings.TrimSpace(line); name != "" {
			names = append(names, name)
		}
	}
	return names, nil
}

// SpawnArgs returns the new-session arguments for a detached session.
func SpawnArgs(name, script, dir string) []string {
	args := []string{"new-session", "-d", "-s", name}
	if dir != "" {
		args = append(args, "-c", dir)
	}
	return append(args, "bash", "-c", script)
}

// ValidateSessionName refuses names tmux would store under a different name
// or misparse as a target: tmux turns '.' and ':' into '_' and reads them as
// window and pane separators.
func ValidateSessionName(name string) error {
	if name == "" || strings.ContainsAny(name, ".:") {
		return errors.NewIllegalArgumentError("tmux session names must be non-empty and contain neither '.' nor ':'", name)
	}
	return nil
}

// Spawn starts a detached session running script with bash -c.
func (m *Multiplexer) Spawn(ctx context.Context, name, script, dir string) error {
	if err := ValidateSessionName(name); err != nil {
		return err
	}
	out, err := m.execCommand(ctx, m.socket, SpawnArgs(name, script, dir)...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("tmux new-session failed: %w: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}

// Attach runs attach-session on the operator's terminal. Detaching (prefix d)
// returns control.
func (m *Multiplexer) Attach(ctx context.Context, name string) error {
	if err := ValidateSessionName(name); err != nil {
		return err
	}
	cmd := m.execCommand(ctx, m.socket, "attach-session", "-t", exactTarget(name))
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

// Kill sends Ctrl+C to the session, waits for its process to exit, and
// then kills the session.
func (m *Multiplexer) Kill(ctx context.Context, name string) error {
	if err := ValidateSessionName(name); err != nil {
		return err
	}
	target := exactTarget(name)
	pid := m.panePID(ctx, target)

	if err := m.execCommand(ctx, m.socket, "send-keys", "-t", target, "C-c").Run(); err != nil {
		return errors.Wrapf(err, "failed to signal session %s", name)
	}
	WaitForProcessExit(ctx, pid, m.stopTimeout)

	out, err := m.execCommand(ctx, m.socket, "kill-session", "-t", target).CombinedOutput()
	if err != nil && !strings.Contains(string(out), "can't find session") {
		return fmt.Errorf("tmux kill-session failed: %w: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}

// exactTarget prevents tmux from prefix-matching another session.
func exactTarget(name string) string {
	return "=" + name
}
