// Package game holds the per-game adapters of the lifecycle controller and
// the static registry the top-level menu is built from.
//
// Adapters never read process environment themselves; everything they need
// from the host (home directory, Steam install, download client, external
// commands) comes in through Env.
package game

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"time"

	"github.com/xoxserver/xox-server/internal/download"
	"github.com/xoxserver/xox-server/internal/errors"
	"github.com/xoxserver/xox-server/internal/instance"
	"github.com/xoxserver/xox-server/internal/lifecycle"
	"github.com/xoxserver/xox-server/internal/logging"
	"github.com/xoxserver/xox-server/internal/prompt"
	"github.com/xoxserver/xox-server/internal/steam"
	"github.com/xoxserver/xox-server/internal/store"
)

// SteamUpdater installs and updates Steam apps.
type SteamUpdater interface {
	Update(ctx context.Context, app steam.App) error
}

// Downloader fetches files and metadata over HTTP.
type Downloader interface {
	File(ctx context.Context, url, dest string) (int64, error)
	Exists(ctx context.Context, url string) (bool, error)
	GetJSON(ctx context.Context, url string, out any) error
	GetString(ctx context.Context, url string) (string, error)
}

var (
	_ SteamUpdater = (*steam.Updater)(nil)
	_ Downloader   = (*download.Client)(nil)
)

// DefaultJavaPath returns the Debian/Ubuntu OpenJDK binary for a major
// version.
func DefaultJavaPath(version int) string {
	return fmt.Sprintf("/usr/lib/jvm/java-%d-openjdk-amd64/bin/java", version)
}

// Env is the host environment handed to every adapter.
type Env struct {
	HomeDir             string
	SteamHomeCandidates []string

	Steam    SteamUpdater
	Download Downloader
	// Command builds external commands: installers, package checks and the
	// configuration editor.
	Command func(ctx context.Context, name string, args ...string) *exec.Cmd
	// Editor opens configuration files for the operator.
	Editor string
	// JavaPath maps a Java major version to its binary.
	JavaPath  func(version int) string
	Minecraft MinecraftEndpoints

	// Out receives installer progress.
	Out    io.Writer
	Logger *logging.Logger
	Now    func() time.Time
}

func (e Env) withDefaults() Env {
	if e.HomeDir == "" {
		e.HomeDir, _ = os.UserHomeDir()
	}
	if e.Command == nil {
		e.Command = exec.CommandContext
	}
	if e.Editor == "" {
		e.Editor = "nano"
	}
	if e.JavaPath == nil {
		e.JavaPath = DefaultJavaPath
	}
	e.Minecraft = e.Minecraft.withDefaults()
	if e.Out == nil {
		e.Out = os.Stdout
	}
	if e.Logger == nil {
		e.Logger = logging.NopLogger()
	}
	if e.Now == nil {
		e.Now = time.Now
	}
	return e
}

// steamHome resolves the steamapps/common directory. It is looked up on use
// so a missing Steam install only fails the games that need it.
func (e Env) steamHome() (string, error) {
	return steam.HomePath(e.SteamHomeCandidates)
}

func (e Env) updateSteam(ctx context.Context, app steam.App) error {
	if e.Steam == nil {
		return errors.NewValidationError("no Steam updater configured")
	}
	return e.Steam.Update(ctx, app)
}

// Deps are the shared services a game page is built from.
type Deps struct {
	DB       *store.DB
	Sessions lifecycle.Sessions
	Prompter prompt.Prompter
	Env      Env
	Logger   *logging.Logger
}

// Entry is one game of the registry.
type Entry struct {
	Key   string
	Title string
	Table string
	// Open builds the game's lifecycle controller.
	Open func(ctx context.Context, deps Deps) (lifecycle.Page, error)
	// List returns the identity of every stored instance of the game.
	List func(ctx context.Context, db *store.DB) ([]instance.Meta, error)
}

func register[T any, P store.Entity[T]](key, title string, newAdapter func(Env) lifecycle.Adapter[T]) Entry {
	table := newAdapter(Env{}).Table()
	return Entry{
		Key:   key,
		Title: title,
		Table: table,
		Open: func(ctx context.Context, deps Deps) (lifecycle.Page, error) {
			t, err := store.NewTable[T, P](ctx, deps.DB, table)
			if err != nil {
				return nil, err
			}
			env := deps.Env.withDefaults()
			env.Logger = env.Logger.WithGame(key)
			return lifecycle.NewController[T, P](key, newAdapter(env), t, deps.Sessions, deps.Prompter, deps.Logger), nil
		},
		List: func(ctx context.Context, db *store.DB) ([]instance.Meta, error) {
			t, err := store.NewTable[T, P](ctx, db, table)
			if err != nil {
				return nil, err
			}
			records, err := t.FindAll(ctx)
			if err != nil {
				return nil, err
			}
			metas := make([]instance.Meta, len(records))
			for i := range records {
				metas[i] = *P(&records[i]).Metadata()
			}
			return metas, nil
		},
	}
}

// Registry lists the supported games in menu order.
var Registry = []Entry{
	register[ValheimRecord, *ValheimRecord]("valheim", "Valheim", func(env Env) lifecycle.Adapter[ValheimRecord] {
		return NewValheim(env)
	}),
	register[PalworldRecord, *PalworldRecord]("palworld", "Palworld", func(env Env) lifecycle.Adapter[PalworldRecord] {
		return NewPalworld(env)
	}),
	register[TerrariaRecord, *TerrariaRecord]("terraria", "Terraria", func(env Env) lifecycle.Adapter[TerrariaRecord] {
		return NewTerraria(env)
	}),
	register[DSTRecord, *DSTRecord]("dst", "Don't Starve Together", func(env Env) lifecycle.Adapter[DSTRecord] {
		return NewDST(env)
	}),
	register[MinecraftJavaRecord, *MinecraftJavaRecord]("minecraft-java", "Minecraft (Java Edition) (Vanilla | Modded)", func(env Env) lifecycle.Adapter[MinecraftJavaRecord] {
		return NewMinecraftJava(env)
	}),
}

// Lookup returns the registry entry for key.
func Lookup(key string) (Entry, bool) {
	for _, e := range Registry {
		if e.Key == key {
			return e, true
		}
	}
	return Entry{}, false
}

// MenuEntries adapts the registry for lifecycle.NewMenu.
func MenuEntries(deps Deps) []lifecycle.MenuEntry {
	entries := make([]lifecycle.MenuEntry, len(Registry))
	for i, e := range Registry {
		entries[i] = lifecycle.MenuEntry{
			Key:   e.Key,
			Title: e.Title,
			Open: func(ctx context.Context) (lifecycle.Page, error) {
				return e.Open(ctx, deps)
			},
		}
	}
	return entries
}
