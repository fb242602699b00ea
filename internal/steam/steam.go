// Package steam updates dedicated server binaries with SteamCMD.
package steam

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/xoxserver/xox-server/internal/errors"
	"github.com/xoxserver/xox-server/internal/logging"
	"github.com/xoxserver/xox-server/internal/retry"
)

// Defaults used when Config leaves a field empty.
const (
	DefaultPath       = "/usr/games/steamcmd"
	DefaultMaxRetries = 5
	DefaultRetryDelay = 3 * time.Second

	AnonymousUser = "anonymous"

	PlatformLinux   = "linux"
	PlatformWindows = "windows"
)

// App is one SteamCMD app_update request.
type App struct {
	AppID string
	// Username overrides the configured global username.
	Username   string
	BetaBranch string
	// Platform forces the depot platform; empty means the host's.
	Platform string
	// Anonymous allows falling back to anonymous login when no username is
	// known. Some apps (Terraria) can only be downloaded by an owner.
	Anonymous bool
}

// Reporter receives operator-facing status lines.
type Reporter interface {
	Info(msg string)
	Error(msg string)
}

// Config configures an Updater.
type Config struct {
	Path           string
	GlobalUsername string
	Platform       string
	MaxRetries     int
	RetryDelay     time.Duration
}

// Updater runs SteamCMD with bounded retries.
type Updater struct {
	path           string
	globalUsername string
	platform       string
	maxRetries     int
	backOff        backoff.BackOff

	reporter Reporter
	out      io.Writer
	width    func() int
	logger   *logging.Logger
	command  func(ctx context.Context, name string, args ...string) *exec.Cmd
}

// Option configures an Updater.
type Option func(*Updater)

// WithBackOff replaces the constant retry delay.
func WithBackOff(b backoff.BackOff) Option {
	return func(u *Updater) {
		u.backOff = b
	}
}

// WithOutput sets where SteamCMD progress is drawn and how wide that
// terminal is.
func WithOutput(out io.Writer, width func() int) Option {
	return func(u *Updater) {
		u.out = out
		u.width = width
	}
}

// NewUpdater creates an Updater.
func NewUpdater(cfg Config, reporter Reporter, logger *logging.Logger, opts ...Option) *Updater {
	if cfg.Path == "" {
		cfg.Path = DefaultPath
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = DefaultRetryDelay
	}
	if logger == nil {
		logger = logging.NopLogger()
	}

	u := &Updater{
		path:           cfg.Path,
		globalUsername: cfg.GlobalUsername,
		platform:       cfg.Platform,
		maxRetries:     cfg.MaxRetries,
		backOff:        backoff.NewConstantBackOff(cfg.RetryDelay),
		reporter:       reporter,
		out:            os.Stdout,
		width:          TerminalWidth,
		logger:         logger.With("component", "steam"),
		command:        exec.CommandContext,
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// Username picks the login for app: the app's own username, then the global
// one, then anonymous when the app allows it.
func (u *Updater) Username(app App) (string, error) {
	switch {
	case app.Username != "":
		return app.Username, nil
	case u.globalUsername != "":
		return u.globalUsername, nil
	case app.Anonymous:
		return AnonymousUser, nil
	}
	return "", errors.NewValidationError(
		"Steam username not provided, export the Steam username with `export STEAM_USERNAME=<username>` instead").
		WithField("steam.username")
}

func (u *Updater) targetPlatform(app App) string {
	switch {
	case app.Platform != "":
		return app.Platform
	case u.platform != "":
		return u.platform
	case runtime.GOOS == "windows":
		return PlatformWindows
	}
	return PlatformLinux
}

// Args returns the SteamCMD arguments for app logged in as username.
func (u *Updater) Args(app App, username string) []string {
	args := []string{
		"+@ShutdownOnFailedCommand", "1",
		"+@NoPromptForPassword", "1",
		"+@sSteamCmdForcePlatformType", u.targetPlatform(app),
		"+login", username,
		"+app_update", app.AppID,
	}
	if app.BetaBranch != "" {
		args = append(args, "-beta", app.BetaBranch)
	}
	return append(args, "validate", "+quit")
}

// Update installs or updates app. SteamCMD is retried while it exits
// non-zero; after the last attempt the error wraps an
// *errors.ExhaustedRetriesError.
func (u *Updater) Update(ctx context.Context, app App) error {
	if _, err := os.Stat(u.path); err != nil {
		return errors.NewValidationError(
			"SteamCMD not found, refer to `https://developer.valvesoftware.com/wiki/SteamCMD` for installation instructions").
			WithField("steam.path").WithValue(u.path)
	}
	username, err := u.Username(app)
	if err != nil {
		return err
	}

	branch := ""
	if app.BetaBranch != "" {
		branch = " on branch " + app.BetaBranch
	}
	u.report(fmt.Sprintf("Updating Steam App %s%s logged in as %s", app.AppID, branch, username), false)

	logger := u.logger.With("app_id", app.AppID, "username", username)
	args := u.Args(app, username)

	policy := retry.Policy{
		Operation:   "steam app " + app.AppID + " update",
		MaxAttempts: u.maxRetries,
		BackOff:     u.backOff,
		Notify: func(a retry.Attempt, next time.Duration) {
			logger.Warn("steamcmd failed", "attempt", a.Number, "error", a.Err, "retry_in", next)
			u.report(fmt.Sprintf("Steam App %s update failed. Retrying", app.AppID), true)
		},
	}

	history, err := retry.Do(ctx, policy, func(ctx context.Context, _ int) error {
		return u.run(ctx, args)
	})
	if err != nil {
		logger.Error("steam update failed", "attempts", len(history), "error", err)
		var exhausted *errors.ExhaustedRetriesError
		if errors.As(err, &exhausted) {
			return errors.Wrapf(err, "Steam App %s update failed after %d retries under user %s",
				app.AppID, exhausted.Attempts, username)
		}
		return err
	}
	logger.Info("steam update finished", "attempts", len(history))
	return nil
}

func (u *Updater) run(ctx context.Context, args []string) error {
	progress := NewProgressWriter(u.out, u.width)
	defer progress.Close()

	cmd := u.command(ctx, u.path, args...)
	cmd.Stdout = progress
	cmd.Stderr = progress
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("steamcmd %s: %w", strings.Join(args, " "), err)
	}
	return nil
}

func (u *Updater) report(msg string, failure bool) {
	if u.reporter == nil {
		return
	}
	if failure {
		u.reporter.Error(msg)
		return
	}
	u.reporter.Info(msg)
}

// HomePath returns the first candidate steamapps/common directory that exists.
func HomePath(candidates []string) (string, error) {
	for _, c := range candidates {
		if info, err := os.Stat(c); err == nil && info.IsDir() {
			return c, nil
		}
	}
	return "", errors.NewNotFoundError("Steam Path", strings.Join(candidates, ", "))
}
