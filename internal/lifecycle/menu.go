package lifecycle

import (
	"context"

	"github.com/xoxserver/xox-server/internal/errors"
	"github.com/xoxserver/xox-server/internal/logging"
	"github.com/xoxserver/xox-server/internal/prompt"
)

const (
	TitleMenu = "Which game would you like to start"
	LabelQuit = "Quit"

	choiceQuit = "quit"
)

// MenuEntry is one game offered by the top-level menu.
type MenuEntry struct {
	Key   string
	Title string
	// Open builds the game's page. It runs each time the game is chosen.
	Open func(ctx context.Context) (Page, error)
}

// Menu is the top-level game picker.
type Menu struct {
	entries  []MenuEntry
	prompter prompt.Prompter
	logger   *logging.Logger
}

// NewMenu creates a Menu offering entries in order.
func NewMenu(p prompt.Prompter, logger *logging.Logger, entries ...MenuEntry) *Menu {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Menu{entries: entries, prompter: p, logger: logger}
}

// Run shows the menu until the operator quits. Leaving a game's page returns
// here. A game that cannot be opened is reported and the menu shown again.
func (m *Menu) Run(ctx context.Context) error {
	choices := make([]prompt.Choice, 0, len(m.entries)+1)
	for _, e := range m.entries {
		choices = append(choices, prompt.Choice{Label: e.Title, Value: e.Key})
	}
	choices = append(choices, prompt.Choice{Label: LabelQuit, Value: choiceQuit})

	last := ""
	for {
		selected, err := m.prompter.Select(ctx, TitleMenu, choices, last)
		if err != nil {
			return err
		}
		if selected == choiceQuit {
			return nil
		}
		last = selected

		entry, ok := m.find(selected)
		if !ok {
			return errors.NewNotFoundError("game", selected)
		}

		page, err := entry.Open(ctx)
		if err != nil {
			if !errors.IsRecoverable(err) {
				return err
			}
			m.logger.Error("failed to open game", "game", entry.Key, "error", err)
			m.prompter.Error(errors.UserMessage(err))
			continue
		}
		if err := page.Run(ctx); err != nil {
			return err
		}
	}
}

func (m *Menu) find(key string) (MenuEntry, bool) {
	for _, e := range m.entries {
		if e.Key == key {
			return e, true
		}
	}
	return MenuEntry{}, false
}
