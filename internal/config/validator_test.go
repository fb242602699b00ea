package config

import (
	"strings"
	"testing"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		modify    func(*Config)
		wantField string
	}{
		{"unknown environment", func(c *Config) { c.Environment = "staging" }, "environment"},
		{"null byte in data dir", func(c *Config) { c.Paths.DataDir = "/tmp/\x00" }, "paths.data_dir"},
		{"null byte in database", func(c *Config) { c.Paths.Database = "a\x00b" }, "paths.database"},
		{"no steam home candidates", func(c *Config) { c.Paths.SteamHomeCandidates = nil }, "paths.steam_home_candidates"},
		{"empty steam path", func(c *Config) { c.Steam.Path = "" }, "steam.path"},
		{"zero retries", func(c *Config) { c.Steam.MaxRetries = 0 }, "steam.max_retries"},
		{"negative delay", func(c *Config) { c.Steam.RetryDelaySeconds = -1 }, "steam.retry_delay_seconds"},
		{"unknown platform", func(c *Config) { c.Steam.Platform = "macos" }, "steam.platform"},
		{"username with space", func(c *Config) { c.Steam.Username = "two words" }, "steam.username"},
		{"unknown multiplexer", func(c *Config) { c.Session.Multiplexer = "zellij" }, "session.multiplexer"},
		{"tmux without socket", func(c *Config) {
			c.Session.Multiplexer = MultiplexerTmux
			c.Session.TmuxSocket = ""
		}, "session.tmux_socket"},
		{"unknown log level", func(c *Config) { c.Logging.Level = "trace" }, "logging.level"},
		{"zero log size", func(c *Config) { c.Logging.MaxSizeMB = 0 }, "logging.max_size_mb"},
		{"huge log size", func(c *Config) { c.Logging.MaxSizeMB = 5000 }, "logging.max_size_mb"},
		{"negative backups", func(c *Config) { c.Logging.MaxBackups = -1 }, "logging.max_backups"},
		{"zero download timeout", func(c *Config) { c.Download.TimeoutSeconds = 0 }, "download.timeout_seconds"},
		{"negative download retries", func(c *Config) { c.Download.Retries = -2 }, "download.retries"},
		{"unknown theme", func(c *Config) { c.Prompt.Theme = "solarized" }, "prompt.theme"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)

			errs := cfg.Validate()
			if len(errs) != 1 {
				t.Fatalf("Validate() returned %d errors, want 1: %v", len(errs), errs)
			}
			if errs[0].Field != tt.wantField {
				t.Errorf("Field = %q, want %q", errs[0].Field, tt.wantField)
			}
		})
	}
}

func TestValidate_TmuxWithSocket(t *testing.T) {
	cfg := Default()
	cfg.Session.Multiplexer = MultiplexerTmux
	if errs := cfg.Validate(); len(errs) != 0 {
		t.Errorf("Validate() = %v, want no errors", errs)
	}
}

func TestValidationErrors_Error(t *testing.T) {
	single := ValidationErrors{{Field: "steam.path", Value: "", Message: "must not be empty"}}
	if got := single.Error(); got != "steam.path: must not be empty (got: )" {
		t.Errorf("Error() = %q", got)
	}

	multiple := ValidationErrors{
		{Field: "a", Value: 1, Message: "bad"},
		{Field: "b", Value: 2, Message: "worse"},
	}
	got := multiple.Error()
	if !strings.HasPrefix(got, "2 validation errors:") || !strings.Contains(got, "2. b: worse (got: 2)") {
		t.Errorf("Error() = %q", got)
	}

	if (ValidationErrors{}).Error() != "" {
		t.Error("empty ValidationErrors should render as empty string")
	}
}
