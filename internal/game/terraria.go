package game

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xoxserver/xox-server/internal/errors"
	"github.com/xoxserver/xox-server/internal/instance"
	"github.com/xoxserver/xox-server/internal/lifecycle"
	"github.com/xoxserver/xox-server/internal/prompt"
)

// TerrariaAppID is the Steam app of Terraria. Its dedicated server ships with
// the game, so an owning account is required.
const TerrariaAppID = "105600"

const seedsURL = "https://terraria.fandom.com/wiki/Secret_world_seeds"

// TerrariaRecord is a stored Terraria instance. The name is also the world
// name.
type TerrariaRecord struct {
	instance.Meta
	SteamAppBetaBranch *string `db:"steam_app_beta_branch"`
	SteamUsername      *string `db:"steam_username"`

	Autocreate int     `db:"game_autocreate"`
	Difficulty *int    `db:"game_difficulty"`
	Seed       *string `db:"game_seed"`
	Port       int     `db:"game_port"`
	MaxPlayers int     `db:"game_maxplayers"`
	Password   *string `db:"game_password"`
	Motd       *string `db:"game_motd"`
	NPCStream  *int    `db:"game_npcstream"`
	Priority   *int    `db:"game_priority"`
	Secure     bool    `db:"game_secure"`
	UPnP       bool    `db:"game_upnp"`
}

// Terraria is the Terraria adapter.
type Terraria struct {
	env Env
}

// NewTerraria creates the Terraria adapter.
func NewTerraria(env Env) *Terraria {
	return &Terraria{env: env.withDefaults()}
}

func (a *Terraria) Table() string { return "game_terraria" }

func (a *Terraria) DefaultSchema() TerrariaRecord {
	return TerrariaRecord{
		Autocreate: 1,
		Difficulty: ptr(0),
		Port:       7777,
		MaxPlayers: 16,
		NPCStream:  ptr(60),
		Priority:   ptr(3),
		Secure:     true,
		UPnP:       true,
	}
}

// WorldsDir is where the server keeps its worlds and generated configs.
func (a *Terraria) WorldsDir() string {
	return filepath.Join(a.env.HomeDir, ".local/share/Terraria/Worlds")
}

func (a *Terraria) worldPath(name string) string {
	return filepath.Join(a.WorldsDir(), name+".wld")
}

func (a *Terraria) configPath(name string) string {
	return filepath.Join(a.WorldsDir(), name+".systemgenerated.conf")
}

func (a *Terraria) executable() (string, error) {
	home, err := a.env.steamHome()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, "Terraria", "TerrariaServer.bin.x86_64"), nil
}

var (
	worldSizes = []prompt.Choice{
		{Label: "Small", Value: "1"},
		{Label: "Medium", Value: "2"},
		{Label: "Large", Value: "3"},
	}
	difficulties = []prompt.Choice{
		{Label: "Normal", Value: "0"},
		{Label: "Expert", Value: "1"},
		{Label: "Master", Value: "2"},
		{Label: "Journey", Value: "3"},
	}
	priorities = []prompt.Choice{
		{Label: "Realtime", Value: "0"},
		{Label: "High", Value: "1"},
		{Label: "Above Normal", Value: "2"},
		{Label: "Normal", Value: "3"},
		{Label: "Below Normal", Value: "4"},
		{Label: "Idle", Value: "5"},
	}
)

func (a *Terraria) PromptConfiguration(ctx context.Context, p prompt.Prompter, current TerrariaRecord) (TerrariaRecord, error) {
	var err error
	if current.SteamAppBetaBranch, err = askOptional(ctx, p, betaBranchTitle, current.SteamAppBetaBranch); err != nil {
		return current, err
	}
	if current.Name, err = askName(ctx, p, "Game World Name (e.g., 'Victor-World' for an existing world)", current.Name); err != nil {
		return current, err
	}

	world := a.worldPath(current.Name)
	if fileExists(world) {
		p.Info("Found existing world at " + world)
	} else {
		p.Info("No existing world found at " + world + ", creating a new one")

		seedTitle := hyperlink(seedsURL, "Game Seed (Leave empty for random)")
		if current.Seed, err = askOptional(ctx, p, seedTitle, current.Seed); err != nil {
			return current, err
		}
		if current.Autocreate, err = selectInt(ctx, p, "Game World Size", worldSizes, current.Autocreate); err != nil {
			return current, err
		}
		difficulty, err := selectInt(ctx, p, "Game Difficulty", difficulties, deref(current.Difficulty))
		if err != nil {
			return current, err
		}
		current.Difficulty = &difficulty
	}

	if current.Port, err = askInt(ctx, p, "Game Port (e.g. 7777)", current.Port, validPort); err != nil {
		return current, err
	}
	current.Motd, err = askOptional(ctx, p, "Game Message of the Day (Leave empty for none)", current.Motd)
	return current, err
}

// PromptAdvancedConfiguration asks for the rarely changed server options.
func (a *Terraria) PromptAdvancedConfiguration(ctx context.Context, p prompt.Prompter, current TerrariaRecord) (TerrariaRecord, error) {
	priority, err := selectInt(ctx, p, "Game Priority", priorities, deref(current.Priority))
	if err != nil {
		return current, err
	}
	current.Priority = &priority

	if current.Password, err = askOptional(ctx, p, "Game Password", current.Password); err != nil {
		return current, err
	}
	npc, err := askInt(ctx, p, "Game NPC Stream", deref(current.NPCStream), nil)
	if err != nil {
		return current, err
	}
	current.NPCStream = &npc

	if current.MaxPlayers, err = askInt(ctx, p, "Game Max Players", current.MaxPlayers, positive); err != nil {
		return current, err
	}
	if current.Secure, err = p.Confirm(ctx, "Game Secure", current.Secure); err != nil {
		return current, err
	}
	current.UPnP, err = p.Confirm(ctx, "Game UPnP", current.UPnP)
	return current, err
}

func (a *Terraria) PerformStartupInitialization(ctx context.Context, _ prompt.Prompter, rec TerrariaRecord) error {
	if err := a.env.updateSteam(ctx, steamApp(TerrariaAppID, rec.SteamAppBetaBranch, rec.SteamUsername, false)); err != nil {
		return err
	}
	exe, err := a.executable()
	if err != nil {
		return err
	}
	if err := os.Chmod(exe, 0755); err != nil {
		return errors.Wrap(err, "failed to make the server executable")
	}
	if err := os.MkdirAll(a.WorldsDir(), 0755); err != nil {
		return errors.Wrap(err, "failed to create worlds directory")
	}
	if err := os.WriteFile(a.configPath(rec.Name), []byte(ServerConfig(rec)), 0644); err != nil {
		return errors.Wrap(err, "failed to write server config")
	}
	a.env.Logger.Debug("wrote server config", "path", a.configPath(rec.Name))
	return nil
}

// ServerConfig renders the server's key=value config file. Unset optional
// keys are left out; difficulty and priority are left out at their zero
// value too.
func ServerConfig(rec TerrariaRecord) string {
	lines := []string{"autocreate=" + strconv.Itoa(rec.Autocreate)}
	if s := deref(rec.Seed); s != "" {
		lines = append(lines, "seed="+s)
	}
	if d := deref(rec.Difficulty); d != 0 {
		lines = append(lines, "difficulty="+strconv.Itoa(d))
	}
	lines = append(lines, "port="+strconv.Itoa(rec.Port))
	if s := deref(rec.Password); s != "" {
		lines = append(lines, "password="+s)
	}
	if s := deref(rec.Motd); s != "" {
		lines = append(lines, "motd="+s)
	}
	lines = append(lines,
		"secure="+boolFlag(rec.Secure),
		"language=en-US",
		"upnp="+boolFlag(rec.UPnP),
	)
	if n := deref(rec.NPCStream); n != 0 {
		lines = append(lines, "npcstream="+strconv.Itoa(n))
	}
	if n := deref(rec.Priority); n != 0 {
		lines = append(lines, "priority="+strconv.Itoa(n))
	}
	return strings.Join(lines, "\n")
}

func (a *Terraria) Launches(rec TerrariaRecord) ([]lifecycle.Launch, error) {
	exe, err := a.executable()
	if err != nil {
		return nil, err
	}
	maxPlayers := rec.MaxPlayers
	if maxPlayers <= 0 {
		maxPlayers = 16
	}
	return []lifecycle.Launch{{
		Dir: filepath.Dir(exe),
		Commands: []string{
			shellQuote(exe),
			"-config", shellQuote(a.configPath(rec.Name)),
			"-world", shellQuote(a.worldPath(rec.Name)),
			"-worldname", shellQuote(rec.Name),
			"-maxplayers", strconv.Itoa(maxPlayers),
		},
	}}, nil
}

// selectInt offers numeric choices and marks the current one.
func selectInt(ctx context.Context, p prompt.Prompter, title string, choices []prompt.Choice, current int) (int, error) {
	v, err := p.Select(ctx, title, choices, strconv.Itoa(current))
	if err != nil {
		return 0, err
	}
	return parseInt(v)
}

func validPort(n int) error {
	if n < 1 || n > 65535 {
		return errors.NewValidationError("Port must be between 1 and 65535").WithValue(n)
	}
	return nil
}

func positive(n int) error {
	if n <= 0 {
		return errors.NewValidationError("Value must be greater than 0").WithValue(n)
	}
	return nil
}

func boolFlag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
