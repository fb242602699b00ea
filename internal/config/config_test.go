package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Environment != EnvProduction {
		t.Errorf("Environment = %q, want %q", cfg.Environment, EnvProduction)
	}
	if cfg.Steam.Path != "/usr/games/steamcmd" {
		t.Errorf("Steam.Path = %q, want /usr/games/steamcmd", cfg.Steam.Path)
	}
	if cfg.Steam.MaxRetries != 5 {
		t.Errorf("Steam.MaxRetries = %d, want 5", cfg.Steam.MaxRetries)
	}
	if cfg.Steam.RetryDelay() != 3*time.Second {
		t.Errorf("Steam.RetryDelay() = %v, want 3s", cfg.Steam.RetryDelay())
	}
	if cfg.Session.Multiplexer != MultiplexerScreen {
		t.Errorf("Session.Multiplexer = %q, want %q", cfg.Session.Multiplexer, MultiplexerScreen)
	}
	if len(cfg.Paths.SteamHomeCandidates) != 5 {
		t.Errorf("len(SteamHomeCandidates) = %d, want 5", len(cfg.Paths.SteamHomeCandidates))
	}
	if errs := cfg.Validate(); len(errs) != 0 {
		t.Errorf("Default().Validate() = %v, want no errors", errs)
	}
}

func TestConfig_DataDir(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}

	tests := []struct {
		name        string
		environment string
		dataDir     string
		database    string
		wantDir     string
		wantDB      string
	}{
		{
			name:        "production default",
			environment: EnvProduction,
			wantDir:     filepath.Join(home, ".xox-server"),
			wantDB:      filepath.Join(home, ".xox-server", DatabaseFileName),
		},
		{
			name:        "development default",
			environment: EnvDevelopment,
			wantDir:     "dist",
			wantDB:      filepath.Join("dist", DatabaseFileName),
		},
		{
			name:        "explicit data dir with tilde",
			environment: EnvProduction,
			dataDir:     "~/games/xox",
			wantDir:     filepath.Join(home, "games", "xox"),
			wantDB:      filepath.Join(home, "games", "xox", DatabaseFileName),
		},
		{
			name:        "explicit database",
			environment: EnvDevelopment,
			database:    "/var/lib/xox/state.db",
			wantDir:     "dist",
			wantDB:      "/var/lib/xox/state.db",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Environment = tt.environment
			cfg.Paths.DataDir = tt.dataDir
			cfg.Paths.Database = tt.database

			if got := cfg.DataDir(); got != tt.wantDir {
				t.Errorf("DataDir() = %q, want %q", got, tt.wantDir)
			}
			if got := cfg.DatabasePath(); got != tt.wantDB {
				t.Errorf("DatabasePath() = %q, want %q", got, tt.wantDB)
			}
		})
	}
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}

	tests := []struct {
		in   string
		want string
	}{
		{"~", home},
		{"~/Steam/steamapps/common", filepath.Join(home, "Steam", "steamapps", "common")},
		{"/abs/path", "/abs/path"},
		{"relative", "relative"},
		{"~user/x", "~user/x"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ExpandHome(tt.in); got != tt.want {
				t.Errorf("ExpandHome(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestConfigDir(t *testing.T) {
	t.Run("with XDG_CONFIG_HOME", func(t *testing.T) {
		t.Setenv("XDG_CONFIG_HOME", "/custom/config")
		if got := ConfigDir(); got != "/custom/config/xox-server" {
			t.Errorf("ConfigDir() = %q, want /custom/config/xox-server", got)
		}
		if got := ConfigFile(); got != "/custom/config/xox-server/config.yaml" {
			t.Errorf("ConfigFile() = %q", got)
		}
	})

	t.Run("without XDG_CONFIG_HOME", func(t *testing.T) {
		t.Setenv("XDG_CONFIG_HOME", "")
		home, _ := os.UserHomeDir()
		want := filepath.Join(home, ".config", "xox-server")
		if got := ConfigDir(); got != want {
			t.Errorf("ConfigDir() = %q, want %q", got, want)
		}
	})
}

func TestGet(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	SetDefaults()

	cfg := Get()
	if cfg.Steam.Path != "/usr/games/steamcmd" {
		t.Errorf("Get().Steam.Path = %q, want default", cfg.Steam.Path)
	}
}

func TestBindLegacyEnv(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	SetDefaults()
	BindLegacyEnv()

	t.Setenv("STEAM_PATH", "/opt/steamcmd/steamcmd.sh")
	t.Setenv("STEAM_USERNAME", "legacy-user")
	t.Setenv("XOX_STEAM_USERNAME", "new-user")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Steam.Path != "/opt/steamcmd/steamcmd.sh" {
		t.Errorf("Steam.Path = %q, want legacy STEAM_PATH", cfg.Steam.Path)
	}
	if cfg.Steam.Username != "new-user" {
		t.Errorf("Steam.Username = %q, want prefixed variable to win", cfg.Steam.Username)
	}
}

func TestGet_FallsBackOnInvalidConfig(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	SetDefaults()
	viper.Set("session.multiplexer", "zellij")

	if _, err := Load(); err == nil {
		t.Fatal("Load() should reject an unknown multiplexer")
	}
	if got := Get().Session.Multiplexer; got != MultiplexerScreen {
		t.Errorf("Get().Session.Multiplexer = %q, want default %q", got, MultiplexerScreen)
	}
}
