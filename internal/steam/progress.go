package steam

import (
	"bytes"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/x/ansi"
	"golang.org/x/term"
)

const defaultWidth = 80

// TerminalWidth returns the width of stdout, or 80 when it is not a terminal.
func TerminalWidth() int {
	w, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || w <= 0 {
		return defaultWidth
	}
	return w
}

// ProgressWriter collapses a child process's output into a single status line
// that is redrawn in place: each non-empty line is written as "\r> line",
// truncated to the terminal width and padded so a shorter line fully covers
// the previous one. SteamCMD and the Forge installers print thousands of
// progress lines; this keeps the operator's scrollback clean.
type ProgressWriter struct {
	mu      sync.Mutex
	out     io.Writer
	width   func() int
	pending []byte
	drawn   bool
}

// NewProgressWriter returns a ProgressWriter drawing on out. A nil width
// means TerminalWidth.
func NewProgressWriter(out io.Writer, width func() int) *ProgressWriter {
	if width == nil {
		width = TerminalWidth
	}
	return &ProgressWriter{out: out, width: width}
}

// Write implements io.Writer. Both '\n' and '\r' end a line; an unterminated
// tail is held until more output or Close.
func (p *ProgressWriter) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.pending = append(p.pending, b...)
	for {
		i := bytes.IndexAny(p.pending, "\r\n")
		if i < 0 {
			break
		}
		line := string(p.pending[:i])
		p.pending = p.pending[i+1:]
		if err := p.draw(line); err != nil {
			return len(b), err
		}
	}
	return len(b), nil
}

func (p *ProgressWriter) draw(line string) error {
	msg := strings.TrimSpace(line)
	if msg == "" {
		return nil
	}
	_, err := io.WriteString(p.out, FormatProgress(msg, p.width()))
	p.drawn = true
	return err
}

// Close draws any unterminated output and ends the status line.
func (p *ProgressWriter) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.pending) > 0 {
		line := string(p.pending)
		p.pending = nil
		if err := p.draw(line); err != nil {
			return err
		}
	}
	if p.drawn {
		p.drawn = false
		_, err := io.WriteString(p.out, "\n")
		return err
	}
	return nil
}

// FormatProgress renders msg as a redrawable status line for a terminal
// width columns wide.
func FormatProgress(msg string, width int) string {
	limit := width - 10
	if limit < 1 {
		limit = 1
	}
	line := "\r> " + ansi.Truncate(msg, limit, "")
	if pad := width + 1 - ansi.StringWidth(line); pad > 0 {
		line += strings.Repeat(" ", pad)
	}
	return line
}
