package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Environments
const (
	EnvProduction  = "production"
	EnvDevelopment = "development"
)

// Multiplexer backends
const (
	MultiplexerScreen = "screen"
	MultiplexerTmux   = "tmux"
)

// DatabaseFileName is the SQLite file inside the data directory.
const DatabaseFileName = "appdata.sqlite3"

// Config represents the complete xox-server configuration
type Config struct {
	// Environment is "production" or "development". Development keeps data
	// under ./dist and allows running as root.
	Environment string         `mapstructure:"environment" yaml:"environment"`
	Paths       PathsConfig    `mapstructure:"paths" yaml:"paths"`
	Steam       SteamConfig    `mapstructure:"steam" yaml:"steam"`
	Session     SessionConfig  `mapstructure:"session" yaml:"session"`
	Logging     LoggingConfig  `mapstructure:"logging" yaml:"logging"`
	Download    DownloadConfig `mapstructure:"download" yaml:"download"`
	Prompt      PromptConfig   `mapstructure:"prompt" yaml:"prompt"`
}

// PathsConfig controls where xox-server keeps its state
type PathsConfig struct {
	// DataDir holds the database and the debug log.
	// Empty means $HOME/.xox-server in production and ./dist in development.
	DataDir string `mapstructure:"data_dir" yaml:"data_dir"`
	// Database overrides the SQLite file location.
	Database string `mapstructure:"database" yaml:"database"`
	// SteamHomeCandidates are probed in order for the steamapps/common directory
	// that holds installed dedicated servers.
	SteamHomeCandidates []string `mapstructure:"steam_home_candidates" yaml:"steam_home_candidates"`
}

// SteamConfig controls SteamCMD updates
type SteamConfig struct {
	// Path to the steamcmd executable (legacy env: STEAM_PATH)
	Path string `mapstructure:"path" yaml:"path"`
	// Username used when an instance sets none (legacy env: STEAM_USERNAME)
	Username string `mapstructure:"username" yaml:"username"`
	// MaxRetries is the number of attempts per update
	MaxRetries int `mapstructure:"max_retries" yaml:"max_retries"`
	// RetryDelaySeconds is the constant wait between attempts
	RetryDelaySeconds int `mapstructure:"retry_delay_seconds" yaml:"retry_delay_seconds"`
	// Platform forces the platform steamcmd downloads for: "linux" or "windows".
	Platform string `mapstructure:"platform" yaml:"platform"`
}

// SessionConfig controls the terminal multiplexer
type SessionConfig struct {
	// Multiplexer is "screen" (default) or "tmux"
	Multiplexer string `mapstructure:"multiplexer" yaml:"multiplexer"`
	// TmuxSocket is the dedicated tmux socket name (tmux -L)
	TmuxSocket string `mapstructure:"tmux_socket" yaml:"tmux_socket"`
}

// LoggingConfig controls the debug log
type LoggingConfig struct {
	// Enabled writes {data_dir}/debug.log
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
	// Level is one of debug, info, warn, error
	Level string `mapstructure:"level" yaml:"level"`
	// MaxSizeMB rotates the log past this size
	MaxSizeMB int `mapstructure:"max_size_mb" yaml:"max_size_mb"`
	// MaxBackups is the number of rotated logs to keep
	MaxBackups int `mapstructure:"max_backups" yaml:"max_backups"`
}

// DownloadConfig controls HTTP downloads of server distributions
type DownloadConfig struct {
	TimeoutSeconds int `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
	Retries        int `mapstructure:"retries" yaml:"retries"`
}

// PromptConfig controls operator prompts
type PromptConfig struct {
	// Accessible forces line-based prompts; they are also used whenever
	// stdin is not a terminal.
	Accessible bool `mapstructure:"accessible" yaml:"accessible"`
	// Theme is one of charm, dracula, catppuccin, base16, base
	Theme string `mapstructure:"theme" yaml:"theme"`
}

// Default returns a Config with sensible default values
func Default() *Config {
	return &Config{
		Environment: EnvProduction,
		Paths: PathsConfig{
			SteamHomeCandidates: []string{
				"~/.local/share/Steam/steamapps/common",
				"~/.steam/root/steamapps/common",
				"~/.steam/steam/steamapps/common",
				"~/.steam/SteamApps/common",
				"~/Steam/steamapps/common",
			},
		},
		Steam: SteamConfig{
			Path:              "/usr/games/steamcmd",
			MaxRetries:        5,
			RetryDelaySeconds: 3,
			Platform:          "linux",
		},
		Session: SessionConfig{
			Multiplexer: MultiplexerScreen,
			TmuxSocket:  "xox",
		},
		Logging: LoggingConfig{
			Enabled:    true,
			Level:      "info",
			MaxSizeMB:  5,
			MaxBackups: 2,
		},
		Download: DownloadConfig{
			TimeoutSeconds: 300,
			Retries:        3,
		},
		Prompt: PromptConfig{
			Theme: "charm",
		},
	}
}

// SetDefaults registers default values with viper
func SetDefaults() {
	defaults := Default()

	viper.SetDefault("environment", defaults.Environment)

	viper.SetDefault("paths.data_dir", defaults.Paths.DataDir)
	viper.SetDefault("paths.database", defaults.Paths.Database)
	viper.SetDefault("paths.steam_home_candidates", defaults.Paths.SteamHomeCandidates)

	viper.SetDefault("steam.path", defaults.Steam.Path)
	viper.SetDefault("steam.username", defaults.Steam.Username)
	viper.SetDefault("steam.max_retries", defaults.Steam.MaxRetries)
	viper.SetDefault("steam.retry_delay_seconds", defaults.Steam.RetryDelaySeconds)
	viper.SetDefault("steam.platform", defaults.Steam.Platform)

	viper.SetDefault("session.multiplexer", defaults.Session.Multiplexer)
	viper.SetDefault("session.tmux_socket", defaults.Session.TmuxSocket)

	viper.SetDefault("logging.enabled", defaults.Logging.Enabled)
	viper.SetDefault("logging.level", defaults.Logging.Level)
	viper.SetDefault("logging.max_size_mb", defaults.Logging.MaxSizeMB)
	viper.SetDefault("logging.max_backups", defaults.Logging.MaxBackups)

	viper.SetDefault("download.timeout_seconds", defaults.Download.TimeoutSeconds)
	viper.SetDefault("download.retries", defaults.Download.Retries)

	viper.SetDefault("prompt.accessible", defaults.Prompt.Accessible)
	viper.SetDefault("prompt.theme", defaults.Prompt.Theme)
}

// BindLegacyEnv binds the environment variables the tool has always honored
// next to their XOX_ prefixed names. The prefixed name wins.
func BindLegacyEnv() {
	_ = viper.BindEnv("steam.path", "XOX_STEAM_PATH", "STEAM_PATH")
	_ = viper.BindEnv("steam.username", "XOX_STEAM_USERNAME", "STEAM_USERNAME")
}

// Load reads the configuration from viper into a Config struct and validates it
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

// ConfigDir returns the path to the user's config directory
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "xox-server")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".xox-server"
	}
	return filepath.Join(home, ".config", "xox-server")
}

// ConfigFile returns the path to the config file
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// IsDevelopment reports whether the development environment is selected.
func (c *Config) IsDevelopment() bool {
	return c.Environment == EnvDevelopment
}

// DataDir returns the resolved data directory.
func (c *Config) DataDir() string {
	if c.Paths.DataDir != "" {
		return ExpandHome(c.Paths.DataDir)
	}
	if c.IsDevelopment() {
		return "dist"
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".xox-server"
	}
	return filepath.Join(home, ".xox-server")
}

// DatabasePath returns the resolved SQLite file location.
func (c *Config) DatabasePath() string {
	if c.Paths.Database != "" {
		return ExpandHome(c.Paths.Database)
	}
	return filepath.Join(c.DataDir(), DatabaseFileName)
}

// SteamHomeCandidates returns the candidate directories with ~ expanded.
func (c *Config) SteamHomeCandidates() []string {
	out := make([]string, len(c.Paths.SteamHomeCandidates))
	for i, p := range c.Paths.SteamHomeCandidates {
		out[i] = ExpandHome(p)
	}
	return out
}

// RetryDelay returns the wait between SteamCMD attempts.
func (c *SteamConfig) RetryDelay() time.Duration {
	return time.Duration(c.RetryDelaySeconds) * time.Second
}

// Timeout returns the per-request download timeout.
func (c *DownloadConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// ExpandHome expands a leading ~ to the user's home directory.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	if path == "~" {
		return home
	}
	return filepath.Join(home, path[2:])
}
