package game

import (
	"context"
	"os/exec"
	"path/filepath"

	"github.com/xoxserver/xox-server/internal/errors"
	"github.com/xoxserver/xox-server/internal/instance"
	"github.com/xoxserver/xox-server/internal/lifecycle"
	"github.com/xoxserver/xox-server/internal/prompt"
	"github.com/xoxserver/xox-server/internal/session"
)

// DSTAppID is the Steam app of the Don't Starve Together dedicated server.
const DSTAppID = "343050"

// dstLibcurl is the 32-bit libcurl the server links against.
const dstLibcurl = "libcurl4-gnutls-dev:i386"

// DSTRecord is a stored Don't Starve Together cluster.
type DSTRecord struct {
	instance.Meta
	SteamAppBetaBranch   *string `db:"steam_app_beta_branch"`
	SteamUsername        *string `db:"steam_username"`
	WorkingDirectoryPath string  `db:"game_working_directory_path"`
	EnableCaves          bool    `db:"game_enable_caves"`
}

// DST is the Don't Starve Together adapter.
type DST struct {
	env Env
}

// NewDST creates the Don't Starve Together adapter.
func NewDST(env Env) *DST {
	return &DST{env: env.withDefaults()}
}

func (a *DST) Table() string { return "game_do_not_starve_together" }

func (a *DST) DefaultSchema() DSTRecord {
	return DSTRecord{EnableCaves: true}
}

func (a *DST) PromptConfiguration(ctx context.Context, p prompt.Prompter, current DSTRecord) (DSTRecord, error) {
	var err error
	if current.Name, err = askName(ctx, p, "Name (e.g. XoX-DST)", current.Name); err != nil {
		return current, err
	}
	if current.WorkingDirectoryPath, err = askDirectory(ctx, p, "Working Directory Path (e.g. /path/to/DST)", current.WorkingDirectoryPath); err != nil {
		return current, err
	}
	current.EnableCaves, err = p.Confirm(ctx, "Enable Caves", current.EnableCaves)
	return current, err
}

func (a *DST) PerformStartupInitialization(ctx context.Context, p prompt.Prompter, rec DSTRecord) error {
	if err := a.env.updateSteam(ctx, steamApp(DSTAppID, rec.SteamAppBetaBranch, rec.SteamUsername, true)); err != nil {
		return err
	}
	a.checkLibcurl(ctx, p)
	return nil
}

// checkLibcurl warns when the server's libcurl is missing. Installing it
// needs root, which the console never has.
func (a *DST) checkLibcurl(ctx context.Context, p prompt.Prompter) {
	err := a.env.Command(ctx, "dpkg", "-s", dstLibcurl).Run()
	switch {
	case err == nil:
	case errors.Is(err, exec.ErrNotFound):
		a.env.Logger.Debug("dpkg not available, skipping library check")
	default:
		p.Info(dstLibcurl + " does not seem to be installed, install it with `sudo apt-get install -y " + dstLibcurl + "` if the server fails to start")
	}
}

func (a *DST) executable() (string, error) {
	home, err := a.env.steamHome()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, "Don't Starve Together Dedicated Server", "bin64", "dontstarve_dedicated_server_nullrenderer_x64"), nil
}

// Launches starts the overworld and, with caves enabled, the caves shard.
// Both share the cluster directory named after the primary session.
func (a *DST) Launches(rec DSTRecord) ([]lifecycle.Launch, error) {
	exe, err := a.executable()
	if err != nil {
		return nil, err
	}
	cluster := session.Identity{DisplayName: rec.Name, ExternalID: rec.ExternalID}.Name()
	commands := []string{
		"LD_LIBRARY_PATH=/usr/lib/x86_64-linux-gnu",
		shellQuote(exe),
		"-persistent_storage_root", shellQuote(rec.WorkingDirectoryPath),
		"-conf_dir", shellQuote(cluster),
	}

	launches := []lifecycle.Launch{{Dir: filepath.Dir(exe), Commands: commands}}
	if rec.EnableCaves {
		launches = append(launches, lifecycle.Launch{
			Shard:    "caves",
			Dir:      filepath.Dir(exe),
			Commands: append(append([]string{}, commands...), "-shard", "Caves"),
		})
	}
	return launches, nil
}
