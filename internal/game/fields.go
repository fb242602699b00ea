package game

import (
	"context"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/x/ansi"

	"github.com/xoxserver/xox-server/internal/errors"
	"github.com/xoxserver/xox-server/internal/instance"
	"github.com/xoxserver/xox-server/internal/prompt"
	"github.com/xoxserver/xox-server/internal/steam"
)

const betaBranchTitle = "Steam App Beta Branch (Leave empty for none)"

// askName asks for an instance name and returns it normalized.
func askName(ctx context.Context, p prompt.Prompter, title, current string) (string, error) {
	v, err := p.Input(ctx, prompt.Field{
		Title:   title,
		Default: current,
		Validate: func(v string) error {
			return instance.ValidateName(instance.NormalizeName(v))
		},
	})
	if err != nil {
		return "", err
	}
	return instance.NormalizeName(v), nil
}

// askOptional asks for a free-form value; an empty answer clears it.
func askOptional(ctx context.Context, p prompt.Prompter, title string, current *string) (*string, error) {
	v, err := p.Input(ctx, prompt.Field{Title: title, Default: deref(current)})
	if err != nil {
		return nil, err
	}
	return optional(strings.TrimSpace(v)), nil
}

// askInt asks for an integer. check, if set, validates the parsed value.
func askInt(ctx context.Context, p prompt.Prompter, title string, current int, check func(int) error) (int, error) {
	v, err := p.Input(ctx, prompt.Field{
		Title:   title,
		Default: strconv.Itoa(current),
		Validate: func(v string) error {
			n, err := parseInt(v)
			if err != nil {
				return err
			}
			if check != nil {
				return check(n)
			}
			return nil
		},
	})
	if err != nil {
		return 0, err
	}
	return parseInt(v)
}

func parseInt(v string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, errors.NewValidationError("Only numbers are allowed").WithValue(v)
	}
	return n, nil
}

// askDirectory asks for the path of an existing directory.
func askDirectory(ctx context.Context, p prompt.Prompter, title, current string) (string, error) {
	v, err := p.Input(ctx, prompt.Field{Title: title, Default: current, Validate: validateDirectory})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(v), nil
}

func validateDirectory(v string) error {
	v = strings.TrimSpace(v)
	if v == "" {
		return errors.NewValidationError("Path cannot be empty")
	}
	info, err := os.Stat(v)
	if err != nil {
		return errors.NewValidationError("Path does not exist").WithValue(v)
	}
	if !info.IsDir() {
		return errors.NewValidationError("Path is not a directory").WithValue(v)
	}
	return nil
}

// askVerified repeats an input until verify accepts the answer. verify runs
// after the form closes because it may hit the network; an empty answer is
// replaced by fallback before verification.
func askVerified(ctx context.Context, p prompt.Prompter, field prompt.Field, fallback string, verify func(string) (bool, error)) (string, error) {
	for {
		v, err := p.Input(ctx, field)
		if err != nil {
			return "", err
		}
		v = strings.TrimSpace(v)
		if v == "" {
			v = fallback
		}
		ok, err := verify(v)
		if err != nil {
			return "", err
		}
		if ok {
			return v, nil
		}
		p.Error("Version does not exist")
		field.Default = v
	}
}

// hyperlink wraps text in an OSC 8 terminal hyperlink to url.
func hyperlink(url, text string) string {
	return ansi.SetHyperlink(url) + text + ansi.ResetHyperlink()
}

// shellQuote single-quotes s for bash.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

func steamApp(appID string, branch, username *string, anonymous bool) steam.App {
	return steam.App{
		AppID:      appID,
		BetaBranch: deref(branch),
		Username:   deref(username),
		Anonymous:  anonymous,
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}

func ptr[T any](v T) *T {
	return &v
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
