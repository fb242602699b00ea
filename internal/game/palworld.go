package game

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/xoxserver/xox-server/internal/errors"
	"github.com/xoxserver/xox-server/internal/instance"
	"github.com/xoxserver/xox-server/internal/lifecycle"
	"github.com/xoxserver/xox-server/internal/prompt"
)

// PalworldAppID is the Steam app of the Palworld dedicated server.
const PalworldAppID = "2394010"

// PalworldRecord is a stored Palworld instance.
type PalworldRecord struct {
	instance.Meta
	SteamAppBetaBranch *string `db:"steam_app_beta_branch"`
	SteamUsername      *string `db:"steam_username"`
}

// Palworld is the Palworld adapter.
type Palworld struct {
	env Env
}

// NewPalworld creates the Palworld adapter.
func NewPalworld(env Env) *Palworld {
	return &Palworld{env: env.withDefaults()}
}

func (a *Palworld) Table() string { return "game_palworld" }

func (a *Palworld) DefaultSchema() PalworldRecord { return PalworldRecord{} }

func (a *Palworld) PromptConfiguration(ctx context.Context, p prompt.Prompter, current PalworldRecord) (PalworldRecord, error) {
	name, err := askName(ctx, p, "Name (e.g. Palworld-Server)", current.Name)
	if err != nil {
		return current, err
	}
	current.Name = name

	current.SteamAppBetaBranch, err = askOptional(ctx, p, betaBranchTitle, current.SteamAppBetaBranch)
	return current, err
}

func (a *Palworld) serverDir() (string, error) {
	home, err := a.env.steamHome()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, "PalServer"), nil
}

// ConfigPath returns the server settings file inside serverDir.
func ConfigPath(serverDir string) string {
	return filepath.Join(serverDir, "Pal/Saved/Config/LinuxServer/PalWorldSettings.ini")
}

func (a *Palworld) PerformStartupInitialization(ctx context.Context, p prompt.Prompter, rec PalworldRecord) error {
	if err := a.env.updateSteam(ctx, steamApp(PalworldAppID, rec.SteamAppBetaBranch, rec.SteamUsername, true)); err != nil {
		return err
	}
	dir, err := a.serverDir()
	if err != nil {
		return err
	}

	config := ConfigPath(dir)
	if err := SeedSettings(filepath.Join(dir, "DefaultPalWorldSettings.ini"), config); err != nil {
		return err
	}

	edit, err := p.Confirm(ctx, "Do you want to edit the configuration file?", false)
	if err != nil || !edit {
		return err
	}
	cmd := a.env.Command(ctx, a.env.Editor, config)
	cmd.Stdin, cmd.Stdout, cmd.Stderr = os.Stdin, os.Stdout, os.Stderr
	if err := cmd.Run(); err != nil {
		return errors.Wrapf(err, "failed to edit %s", config)
	}
	return nil
}

// SeedSettings copies the shipped default settings to config unless config
// already has content. An empty or whitespace-only config is replaced; the
// server writes one when it crashes on first start.
func SeedSettings(defaults, config string) error {
	if err := os.MkdirAll(filepath.Dir(config), 0755); err != nil {
		return errors.Wrap(err, "failed to create config directory")
	}

	if data, err := os.ReadFile(config); err == nil {
		if len(bytes.TrimSpace(data)) > 0 {
			return nil
		}
		if err := os.Remove(config); err != nil {
			return errors.Wrap(err, "failed to remove empty config")
		}
	}

	src, err := os.Open(defaults)
	if err != nil {
		return errors.Wrap(err, "failed to open default settings")
	}
	defer src.Close()

	dst, err := os.OpenFile(config, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return errors.Wrap(err, "failed to create config")
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return errors.Wrap(err, "failed to copy default settings")
	}
	return dst.Close()
}

func (a *Palworld) Launches(PalworldRecord) ([]lifecycle.Launch, error) {
	dir, err := a.serverDir()
	if err != nil {
		return nil, err
	}
	return []lifecycle.Launch{{
		Dir: dir,
		Commands: []string{
			shellQuote(filepath.Join(dir, "PalServer.sh")),
			"-publiclobby",
			"-NumberOfWorkerThreadsServer=4",
			"-useperfthreads",
			"-NoAsyncLoadingThread",
			"-UseMultithreadForDS",
		},
	}}, nil
}
