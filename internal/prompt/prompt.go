// Package prompt is the operator-facing side of the console: selection menus,
// text inputs and confirmations built on charmbracelet/huh, plus the styled
// "!" and "X" status lines.
//
// Everything that talks to the operator goes through the Prompter interface so
// the lifecycle controller and the game adapters can be driven by a scripted
// prompter in tests.
package prompt

import (
	"context"
	"io"
	"os"

	"github.com/charmbracelet/huh"
	"golang.org/x/term"

	"github.com/xoxserver/xox-server/internal/errors"
)

// ErrAborted is returned when the operator aborts a prompt with Ctrl+C or Esc.
var ErrAborted = errors.ErrAborted

// Theme names accepted in configuration.
const (
	ThemeDefault    = "default"
	ThemeCharm      = "charm"
	ThemeDracula    = "dracula"
	ThemeCatppuccin = "catppuccin"
	ThemeBase16     = "base16"
)

// Choice is one entry of a selection menu.
type Choice struct {
	Label string
	Value string
}

// Field describes a single-line text input.
type Field struct {
	Title       string
	Default     string
	Placeholder string
	// Validate, if set, is run on every submission; a non-nil error is shown
	// and the operator is asked again.
	Validate func(string) error
}

// Prompter asks the operator questions and prints status lines.
type Prompter interface {
	// Select shows a menu and returns the Value of the chosen entry. def
	// preselects the entry with that value, if any.
	Select(ctx context.Context, title string, choices []Choice, def string) (string, error)
	Input(ctx context.Context, field Field) (string, error)
	Confirm(ctx context.Context, title string, def bool) (bool, error)

	// Info prints "! msg".
	Info(msg string)
	// Error prints "X msg".
	Error(msg string)
}

// Options configures a Console.
type Options struct {
	Theme string
	// Accessible forces huh's line-based accessible mode. It is also used
	// whenever stdin is not a terminal.
	Accessible bool
	In         io.Reader
	Out        io.Writer
}

// Console is the huh-backed Prompter.
type Console struct {
	theme      *huh.Theme
	accessible bool
	in         io.Reader
	out        io.Writer
}

// New creates a Console. Nil In and Out mean the process's stdin and stdout.
func New(opts Options) *Console {
	c := &Console{
		theme:      huhTheme(opts.Theme),
		accessible: opts.Accessible || !isInputTerminal(),
		in:         opts.In,
		out:        opts.Out,
	}
	if c.in == nil {
		c.in = os.Stdin
	}
	if c.out == nil {
		c.out = os.Stdout
	}
	return c
}

func isInputTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

func huhTheme(name string) *huh.Theme {
	switch name {
	case ThemeCharm, "":
		return huh.ThemeCharm()
	case ThemeDracula:
		return huh.ThemeDracula()
	case ThemeCatppuccin:
		return huh.ThemeCatppuccin()
	case ThemeBase16:
		return huh.ThemeBase16()
	default:
		return huh.ThemeBase()
	}
}

// Themes lists the accepted theme names.
func Themes() []string {
	return []string{ThemeDefault, ThemeCharm, ThemeDracula, ThemeCatppuccin, ThemeBase16}
}

func (c *Console) run(ctx context.Context, field huh.Field) error {
	form := huh.NewForm(huh.NewGroup(field)).
		WithTheme(c.theme).
		WithAccessible(c.accessible).
		WithShowHelp(false).
		WithInput(c.in).
		WithOutput(c.out)

	err := form.RunWithContext(ctx)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, huh.ErrUserAborted):
		return ErrAborted
	case ctx.Err() != nil:
		return ctx.Err()
	default:
		return errors.Wrap(err, "prompt failed")
	}
}

// Select implements Prompter.
func (c *Console) Select(ctx context.Context, title string, choices []Choice, def string) (string, error) {
	if len(choices) == 0 {
		return "", errors.NewIllegalArgumentError("select needs at least one choice", title)
	}

	opts := make([]huh.Option[string], len(choices))
	for i, ch := range choices {
		opts[i] = huh.NewOption(ch.Label, ch.Value)
	}

	result := def
	sel := huh.NewSelect[string]().
		Title(title).
		Options(opts...).
		Value(&result)

	if err := c.run(ctx, sel); err != nil {
		return "", err
	}
	return result, nil
}

// Input implements Prompter.
func (c *Console) Input(ctx context.Context, field Field) (string, error) {
	result := field.Default
	in := huh.NewInput().
		Title(field.Title).
		Placeholder(field.Placeholder).
		Value(&result)
	if field.Validate != nil {
		in = in.Validate(field.Validate)
	}

	if err := c.run(ctx, in); err != nil {
		return "", err
	}
	return result, nil
}

// Confirm implements Prompter.
func (c *Console) Confirm(ctx context.Context, title string, def bool) (bool, error) {
	result := def
	confirm := huh.NewConfirm().
		Title(title).
		Affirmative("Yes").
		Negative("No").
		Value(&result)

	if err := c.run(ctx, confirm); err != nil {
		return false, err
	}
	return result, nil
}

// Info implements Prompter.
func (c *Console) Info(msg string) {
	_, _ = io.WriteString(c.out, FormatInfo(msg)+"\n")
}

// Error implements Prompter.
func (c *Console) Error(msg string) {
	_, _ = io.WriteString(c.out, FormatError(msg)+"\n")
}
