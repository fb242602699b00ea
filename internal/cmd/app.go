package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/xoxserver/xox-server/internal/config"
	"github.com/xoxserver/xox-server/internal/download"
	"github.com/xoxserver/xox-server/internal/errors"
	"github.com/xoxserver/xox-server/internal/game"
	"github.com/xoxserver/xox-server/internal/logging"
	"github.com/xoxserver/xox-server/internal/prompt"
	"github.com/xoxserver/xox-server/internal/screen"
	"github.com/xoxserver/xox-server/internal/session"
	"github.com/xoxserver/xox-server/internal/steam"
	"github.com/xoxserver/xox-server/internal/store"
	"github.com/xoxserver/xox-server/internal/tmux"
)

// app holds the services a command runs against.
type app struct {
	cfg      *config.Config
	logger   *logging.Logger
	db       *store.DB
	sessions *session.Registry
	prompter *prompt.Console
	steam    *steam.Updater
	download *download.Client
	cmd      *cobra.Command
}

func newApp(ctx context.Context, cmd *cobra.Command) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return nil, err
	}

	db, err := store.Open(ctx, cfg.DatabasePath(), logger)
	if err != nil {
		_ = logger.Close()
		return nil, errors.Wrap(err, "failed to open instance store")
	}

	p := prompt.New(prompt.Options{
		Theme:      cfg.Prompt.Theme,
		Accessible: cfg.Prompt.Accessible,
		In:         cmd.InOrStdin(),
		Out:        cmd.OutOrStdout(),
	})

	return &app{
		cfg:      cfg,
		logger:   logger,
		db:       db,
		sessions: session.NewRegistry(newMultiplexer(cfg), logger),
		prompter: p,
		steam: steam.NewUpdater(steam.Config{
			Path:           cfg.Steam.Path,
			GlobalUsername: cfg.Steam.Username,
			Platform:       cfg.Steam.Platform,
			MaxRetries:     cfg.Steam.MaxRetries,
			RetryDelay:     cfg.Steam.RetryDelay(),
		}, p, logger, steam.WithOutput(cmd.OutOrStdout(), steam.TerminalWidth)),
		download: download.New(download.Config{
			Timeout: cfg.Download.Timeout(),
			Retries: cfg.Download.Retries,
		}, logger),
		cmd: cmd,
	}, nil
}

func newLogger(cfg *config.Config) (*logging.Logger, error) {
	if !cfg.Logging.Enabled {
		return logging.NopLogger(), nil
	}
	logger, err := logging.New(logging.Options{
		Dir:   cfg.DataDir(),
		Level: cfg.Logging.Level,
		Rotation: logging.RotationConfig{
			MaxSizeMB:  cfg.Logging.MaxSizeMB,
			MaxBackups: cfg.Logging.MaxBackups,
		},
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to open debug log")
	}
	return logger, nil
}

func newMultiplexer(cfg *config.Config) session.Multiplexer {
	if cfg.Session.Multiplexer == config.MultiplexerTmux {
		return tmux.New(cfg.Session.TmuxSocket)
	}
	return screen.New()
}

func (a *app) deps() game.Deps {
	return game.Deps{
		DB:       a.db,
		Sessions: a.sessions,
		Prompter: a.prompter,
		Env: game.Env{
			SteamHomeCandidates: a.cfg.SteamHomeCandidates(),
			Steam:               a.steam,
			Download:            a.download,
			Out:                 a.cmd.OutOrStdout(),
			Logger:              a.logger,
		},
		Logger: a.logger,
	}
}

// Close releases the store and the debug log.
func (a *app) Close() {
	if err := a.db.Close(); err != nil {
		a.logger.Warn("failed to close instance store", "error", err)
	}
	_ = a.logger.Close()
}
