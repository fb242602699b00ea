package game

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/xoxserver/xox-server/internal/instance"
	"github.com/xoxserver/xox-server/internal/lifecycle"
	"github.com/xoxserver/xox-server/internal/prompt"
)

// ValheimAppID is the Steam app of the Valheim dedicated server.
const ValheimAppID = "896660"

// ValheimRecord is a stored Valheim instance. The name doubles as the world
// name.
type ValheimRecord struct {
	instance.Meta
	SteamAppBetaBranch *string `db:"steam_app_beta_branch"`
	SteamUsername      *string `db:"steam_username"`
}

// Valheim is the Valheim adapter.
type Valheim struct {
	env Env
}

// NewValheim creates the Valheim adapter.
func NewValheim(env Env) *Valheim {
	return &Valheim{env: env.withDefaults()}
}

func (v *Valheim) Table() string { return "game_valheim" }

func (v *Valheim) DefaultSchema() ValheimRecord { return ValheimRecord{} }

// WorldPath is where the server keeps the world of an instance named name.
func (v *Valheim) WorldPath(name string) string {
	return filepath.Join(v.env.HomeDir, ".config/unity3d/IronGate/Valheim/worlds_local", strings.ToLower(name)+".fwl")
}

func (v *Valheim) PromptConfiguration(ctx context.Context, p prompt.Prompter, current ValheimRecord) (ValheimRecord, error) {
	name, err := askName(ctx, p, "Name (e.g. Valheim-Server)", current.Name)
	if err != nil {
		return current, err
	}
	current.Name = name

	world := v.WorldPath(name)
	if fileExists(world) {
		p.Info("Found existing world at " + world)
	} else {
		p.Info("No existing world found at " + world + ", creating a new one")
	}

	current.SteamAppBetaBranch, err = askOptional(ctx, p, betaBranchTitle, current.SteamAppBetaBranch)
	return current, err
}

func (v *Valheim) PerformStartupInitialization(ctx context.Context, _ prompt.Prompter, rec ValheimRecord) error {
	return v.env.updateSteam(ctx, steamApp(ValheimAppID, rec.SteamAppBetaBranch, rec.SteamUsername, true))
}

// Launches runs the server with its bundled libraries on LD_LIBRARY_PATH and
// restores the caller's value afterwards.
func (v *Valheim) Launches(rec ValheimRecord) ([]lifecycle.Launch, error) {
	home, err := v.env.steamHome()
	if err != nil {
		return nil, err
	}
	dir := filepath.Join(home, "Valheim dedicated server")

	return []lifecycle.Launch{{
		Dir: dir,
		Commands: []string{
			"TEMP_LD_LIBRARY_PATH=${LD_LIBRARY_PATH:-};",
			"export LD_LIBRARY_PATH=./linux64:$LD_LIBRARY_PATH;",
			"export SteamAppId=892970;",
			shellQuote(filepath.Join(dir, "valheim_server.x86_64")),
			"-name", shellQuote(rec.Name),
			"-port", "2456",
			"-world", shellQuote(strings.ToLower(rec.Name)),
			"-public", "0",
			"-nographics",
			"-batchmode",
			"-crossplay;",
			"export LD_LIBRARY_PATH=$TEMP_LD_LIBRARY_PATH",
		},
	}}, nil
}
