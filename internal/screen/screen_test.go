package screen

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
)

// fakeScreen installs a shell script standing in for screen. It records its
// arguments and working directory to a log file and prints stdout.
func fakeScreen(t *testing.T, stdout string, exitCode int) (*Multiplexer, string) {
	t.Helper()
	dir := t.TempDir()
	logPath := filepath.Join(dir, "calls.log")
	outPath := filepath.Join(dir, "stdout.txt")
	if err := os.WriteFile(outPath, []byte(stdout), 0644); err != nil {
		t.Fatal(err)
	}

	script := "#!/bin/sh\n" +
		"printf '%s|' \"$PWD\" >> " + logPath + "\n" +
		"for a in \"$@\"; do printf '%s\\037' \"$a\" >> " + logPath + "; done\n" +
		"echo >> " + logPath + "\n" +
		"cat " + outPath + "\n" +
		"exit " + string(rune('0'+exitCode)) + "\n"
	bin := filepath.Join(dir, "screen")
	if err := os.WriteFile(bin, []byte(script), 0755); err != nil {
		t.Fatal(err)
	}
	return &Multiplexer{Binary: bin}, logPath
}

type call struct {
	dir  string
	args []string
}

func readCalls(t *testing.T, logPath string) []call {
	t.Helper()
	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read call log: %v", err)
	}
	var calls []call
	for _, line := range strings.Split(strings.TrimRight(string(data), "\n"), "\n") {
		dir, rest, _ := strings.Cut(line, "|")
		args := strings.Split(strings.TrimSuffix(rest, "\x1f"), "\x1f")
		calls = append(calls, call{dir: dir, args: args})
	}
	return calls
}

const listOutput = "There are screens on:\n" +
	"\t4242.Test-World-a1b2c3d4\t(Detached)\n" +
	"\t4300.Caves-caves-ffff0000\t(10/15/2026 09:00:01 PM)\t(Attached)\n" +
	"2 Sockets in /run/screen/S-steam.\n"

func TestParseList(t *testing.T) {
	tests := []struct {
		name string
		out  string
		want []string
	}{
		{"sessions", listOutput, []string{"Test-World-a1b2c3d4", "Caves-caves-ffff0000"}},
		{"no sockets", "No Sockets found in /run/screen/S-steam.\n", nil},
		{"empty", "", nil},
		{"dotted name", "\t17.my.world-1\t(Detached)\n", []string{"my.world-1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseList([]byte(tt.out)); !slices.Equal(got, tt.want) {
				t.Errorf("ParseList() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestListSessions_NonZeroExit(t *testing.T) {
	mux, _ := fakeScreen(t, listOutput, 1)

	names, err := mux.ListSessions(context.Background())
	if err != nil {
		t.Fatalf("ListSessions() error = %v", err)
	}
	if len(names) != 2 {
		t.Errorf("ListSessions() = %v, want 2 sessions", names)
	}
}

func TestListSessions_MissingBinary(t *testing.T) {
	mux := &Multiplexer{Binary: filepath.Join(t.TempDir(), "no-screen")}
	if _, err := mux.ListSessions(context.Background()); err == nil {
		t.Error("ListSessions() should fail when screen is missing")
	}
}

func TestSpawn(t *testing.T) {
	mux, logPath := fakeScreen(t, "", 0)
	workDir := t.TempDir()

	if err := mux.Spawn(context.Background(), "World-a1b2", "./run.sh; echo done", workDir); err != nil {
		t.Fatalf("Spawn() error = %v", err)
	}

	calls := readCalls(t, logPath)
	if len(calls) != 1 {
		t.Fatalf("got %d calls, want 1", len(calls))
	}
	want := []string{"-dm", "-S", "World-a1b2", "bash", "-c", "./run.sh; echo done"}
	if !slices.Equal(calls[0].args, want) {
		t.Errorf("args = %q, want %q", calls[0].args, want)
	}
	resolved, _ := filepath.EvalSymlinks(workDir)
	if calls[0].dir != workDir && calls[0].dir != resolved {
		t.Errorf("dir = %q, want %q", calls[0].dir, workDir)
	}
}

func TestSpawn_Failure(t *testing.T) {
	mux, _ := fakeScreen(t, "Cannot open your terminal", 1)
	err := mux.Spawn(context.Background(), "x", "true", "")
	if err == nil || !strings.Contains(err.Error(), "Cannot open your terminal") {
		t.Errorf("Spawn() error = %v, want output in error", err)
	}
}

func TestKill(t *testing.T) {
	mux, logPath := fakeScreen(t, "", 0)
	if err := mux.Kill(context.Background(), "World-a1b2"); err != nil {
		t.Fatalf("Kill() error = %v", err)
	}
	want := []string{"-S", "World-a1b2", "-X", "quit"}
	if got := readCalls(t, logPath)[0].args; !slices.Equal(got, want) {
		t.Errorf("args = %q, want %q", got, want)
	}
}
