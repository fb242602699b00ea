package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/xoxserver/xox-server/internal/errors"
	"github.com/xoxserver/xox-server/internal/instance"
	"github.com/xoxserver/xox-server/internal/prompt"
	"github.com/xoxserver/xox-server/internal/session"
)

// executeCommand runs a fresh command tree with args and returns captured output
func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)

	root := newRootCmd()
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetIn(strings.NewReader(""))
	root.SetArgs(args)
	err := root.Execute()
	return buf.String(), err
}

// setupTestEnvironment isolates configuration and data in temp directories.
func setupTestEnvironment(t *testing.T) (dataDir string) {
	t.Helper()
	dataDir = t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("XOX_ENVIRONMENT", "development")
	t.Setenv("XOX_PATHS_DATA_DIR", dataDir)
	t.Setenv("XOX_LOGGING_ENABLED", "false")
	t.Setenv("STEAM_USERNAME", "")
	return dataDir
}

func TestRootCommand(t *testing.T) {
	root := newRootCmd()
	if root.Use != "xox-server" {
		t.Errorf("Use = %q", root.Use)
	}

	cmdMap := make(map[string]*cobra.Command)
	for _, c := range root.Commands() {
		cmdMap[c.Name()] = c
	}
	for _, name := range []string{"sessions", "config", "instances"} {
		if cmdMap[name] == nil {
			t.Errorf("missing subcommand %q", name)
		}
	}
	if c := cmdMap["sessions"]; c != nil {
		var subs []string
		for _, s := range c.Commands() {
			subs = append(subs, s.Name())
		}
		if strings.Join(subs, ",") != "kill,list" {
			t.Errorf("sessions subcommands = %v", subs)
		}
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		want       int
		wantStderr string
	}{
		{"success", nil, 0, ""},
		{"abort", prompt.ErrAborted, ExitInterrupted, ""},
		{"wrapped abort", errors.Wrap(prompt.ErrAborted, "menu"), ExitInterrupted, ""},
		{"failure", errors.New("boom"), 1, "Runtime Exception, boom"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stderr bytes.Buffer
			if got := ExitCode(tt.err, &stderr); got != tt.want {
				t.Errorf("ExitCode() = %d, want %d", got, tt.want)
			}
			if tt.wantStderr == "" {
				if stderr.Len() != 0 {
					t.Errorf("stderr = %q", stderr.String())
				}
			} else if !strings.Contains(stderr.String(), tt.wantStderr) {
				t.Errorf("stderr = %q, want %q", stderr.String(), tt.wantStderr)
			}
		})
	}
}

func TestOwner(t *testing.T) {
	owners := []sessionOwner{
		{id: session.Identity{DisplayName: "My-World", ExternalID: "abcd1234"}, label: "Valheim: My-World"},
		{id: session.Identity{DisplayName: "XoX-DST", ExternalID: "0000ffff"}, label: "Don't Starve Together: XoX-DST"},
	}
	tests := []struct {
		session string
		want    string
		wantOK  bool
	}{
		{"My-World-abcd1234", "Valheim: My-World", true},
		{"XoX-DST-caves-0000ffff", "Don't Starve Together: XoX-DST (caves)", true},
		{"XoX-DST-0000fffe", "", false},
		{"other", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.session, func(t *testing.T) {
			got, ok := owner(tt.session, owners)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("owner(%q) = %q, %v", tt.session, got, ok)
			}
		})
	}
}

func TestPrintSessions(t *testing.T) {
	var buf bytes.Buffer
	printSessions(&buf, nil, nil)
	if !strings.Contains(buf.String(), "No running sessions") {
		t.Errorf("empty output = %q", buf.String())
	}

	buf.Reset()
	owners := []sessionOwner{{id: session.Identity{DisplayName: "My-World", ExternalID: "abcd1234"}, label: "Valheim: My-World"}}
	printSessions(&buf, []string{"My-World-abcd1234", "stray"}, owners)
	out := buf.String()
	for _, want := range []string{"2 running session(s)", "My-World-abcd1234  Valheim: My-World", "stray", "(unmanaged)"} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q missing %q", out, want)
		}
	}
}

func TestPrintInstances(t *testing.T) {
	var buf bytes.Buffer
	printInstances(&buf, "Terraria", []instance.Meta{{ExternalID: "abcd1234", Name: "Victor-World"}})
	if !strings.Contains(buf.String(), "(abcd1234) Victor-World") {
		t.Errorf("output = %q", buf.String())
	}
}

func TestConfigShow(t *testing.T) {
	dataDir := setupTestEnvironment(t)
	t.Setenv("XOX_SESSION_MULTIPLEXER", "tmux")

	out, err := executeCommand(t, "config")
	if err != nil {
		t.Fatalf("config error = %v", err)
	}
	for _, want := range []string{
		"# Config file: (none - using defaults)",
		"# Database: " + filepath.Join(dataDir, "appdata.sqlite3"),
		"multiplexer: tmux",
		"platform: linux",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestConfigShow_File(t *testing.T) {
	setupTestEnvironment(t)
	file := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(file, []byte("session:\n  multiplexer: tmux\n"), 0644); err != nil {
		t.Fatal(err)
	}

	out, err := executeCommand(t, "config", "--config", file)
	if err != nil {
		t.Fatalf("config error = %v", err)
	}
	if !strings.Contains(out, "multiplexer: tmux") || !strings.Contains(out, file) {
		t.Errorf("output = %s", out)
	}
}

func TestConfigInit(t *testing.T) {
	setupTestEnvironment(t)
	if _, err := executeCommand(t, "config", "init"); err != nil {
		t.Fatalf("config init error = %v", err)
	}
	data, err := os.ReadFile(filepath.Join(os.Getenv("XDG_CONFIG_HOME"), "xox-server", "config.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "steam_home_candidates:") || !strings.Contains(string(data), "retry_delay_seconds: 3") {
		t.Errorf("config file = %s", data)
	}

	if _, err := executeCommand(t, "config", "init"); err == nil {
		t.Error("second init succeeded, want error")
	}
}

func TestInstances(t *testing.T) {
	dataDir := setupTestEnvironment(t)

	out, err := executeCommand(t, "instances", "valheim")
	if err != nil {
		t.Fatalf("instances error = %v", err)
	}
	if !strings.Contains(out, "Valheim") || !strings.Contains(out, "no instances") {
		t.Errorf("output = %q", out)
	}
	if _, err := os.Stat(filepath.Join(dataDir, "appdata.sqlite3")); err != nil {
		t.Errorf("database not created: %v", err)
	}

	if _, err := executeCommand(t, "instances", "theforest"); err == nil {
		t.Error("unknown game succeeded, want error")
	}
}
