// Package screen drives GNU screen as the session multiplexer.
package screen

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/xoxserver/xox-server/internal/errors"
)

// DefaultBinary is looked up in PATH.
const DefaultBinary = "screen"

// Multiplexer runs detached sessions under GNU screen.
type Multiplexer struct {
	// Binary is the screen executable. Empty means DefaultBinary.
	Binary string
}

// New returns a Multiplexer using the screen found in PATH.
func New() *Multiplexer {
	return &Multiplexer{Binary: DefaultBinary}
}

func (m *Multiplexer) command(ctx context.Context, args ...string) *exec.Cmd {
	binary := m.Binary
	if binary == "" {
		binary = DefaultBinary
	}
	return exec.CommandContext(ctx, binary, args...)
}

// ListSessions runs screen -ls. screen exits non-zero both when no session
// exists and, on many builds, when some do, so the output is parsed either way.
func (m *Multiplexer) ListSessions(ctx context.Context) ([]string, error) {
	out, err := m.command(ctx, "-ls").Output()
	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		return nil, fmt.Errorf("failed to run screen -ls: %w", err)
	}
	return ParseList(out), nil
}

// ParseList extracts session names from screen -ls output, whose session
// lines look like "\t12345.name\t(Detached)".
func ParseList(out []byte) []string {
	var names []string
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "\t") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		_, name, ok := strings.Cut(fields[0], ".")
		if !ok || name == "" {
			continue
		}
		names = append(names, name)
	}
	return names
}

// Spawn starts a detached session: screen -dm -S name bash -c script.
func (m *Multiplexer) Spawn(ctx context.Context, name, script, dir string) error {
	cmd := m.command(ctx, "-dm", "-S", name, "bash", "-c", script)
	cmd.Dir = dir
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("screen -dm failed: %w: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}

// Attach runs screen -r on the operator's terminal.
func (m *Multiplexer) Attach(ctx context.Context, name string) error {
	cmd := m.command(ctx, "-r", name)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

// Kill asks the session to quit.
func (m *Multiplexer) Kill(ctx context.Context, name string) error {
	if out, err := m.command(ctx, "-S", name, "-X", "quit").CombinedOutput(); err != nil {
		return fmt.Errorf("screen -X quit failed: %w: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}
