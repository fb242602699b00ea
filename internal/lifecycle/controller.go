package lifecycle

import (
	"context"
	"fmt"
	"strings"

	"github.com/xoxserver/xox-server/internal/errors"
	"github.com/xoxserver/xox-server/internal/logging"
	"github.com/xoxserver/xox-server/internal/prompt"
	"github.com/xoxserver/xox-server/internal/session"
	"github.com/xoxserver/xox-server/internal/store"
)

// State is a Controller state.
type State int

const (
	Listing State = iota
	Creating
	Updating
	AdvancedUpdating
	Deleting
	Launching
	Done
)

func (s State) String() string {
	switch s {
	case Listing:
		return "listing"
	case Creating:
		return "creating"
	case Updating:
		return "updating"
	case AdvancedUpdating:
		return "advanced-updating"
	case Deleting:
		return "deleting"
	case Launching:
		return "launching"
	case Done:
		return "done"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Menu labels and prompts.
const (
	TitleListing      = "Which instance would you like to play with"
	TitleListingEmpty = "No instance found, what would you like to do"
	TitleUpdate       = "Which instance would you like to update"
	TitleDelete       = "Which instance would you like to delete"
	TitleAttach       = "Do you want to attach the screen to the terminal"

	LabelCreate   = "Create New Instance"
	LabelUpdate   = "Update Existing Instance"
	LabelAdvanced = "Advanced Update Options"
	LabelDelete   = "Delete Instance"
	LabelCancel   = "Cancel"
)

// Menu choice values. Launch choices are launchPrefix followed by the
// instance's external id.
const (
	choiceCreate   = "create"
	choiceUpdate   = "update"
	choiceAdvanced = "advanced"
	choiceDelete   = "delete"
	choiceCancel   = "cancel"
	launchPrefix   = "launch:"
)

// Controller runs one game's instance menu.
type Controller[T any, P store.Entity[T]] struct {
	game     string
	adapter  Adapter[T]
	store    Store[T]
	sessions Sessions
	prompter prompt.Prompter
	logger   *logging.Logger
}

// NewController creates a Controller for the game named game.
func NewController[T any, P store.Entity[T]](
	game string,
	adapter Adapter[T],
	st Store[T],
	sessions Sessions,
	p prompt.Prompter,
	logger *logging.Logger,
) *Controller[T, P] {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Controller[T, P]{
		game:     game,
		adapter:  adapter,
		store:    st,
		sessions: sessions,
		prompter: p,
		logger:   logger.WithGame(game),
	}
}

func meta[T any, P store.Entity[T]](rec *T) Identity {
	m := P(rec).Metadata()
	return Identity{ExternalID: m.ExternalID, Name: m.Name}
}

// Identity is the part of a record the controller reads.
type Identity struct {
	ExternalID string
	Name       string
}

// Session returns the session identity of the instance.
func (id Identity) Session() session.Identity {
	return session.Identity{DisplayName: id.Name, ExternalID: id.ExternalID}
}

// Label is the menu text for the instance.
func (id Identity) Label() string {
	return "(" + id.ExternalID + ") " + id.Name
}

// Run loops over Listing until the operator cancels. It returns an error only
// when the store cannot be listed or the operator aborts.
func (c *Controller[T, P]) Run(ctx context.Context) error {
	for {
		records, err := c.store.FindAll(ctx)
		if err != nil {
			return errors.Wrapf(err, "failed to list %s instances", c.game)
		}

		next, target, err := c.list(ctx, records)
		if err != nil {
			return err
		}
		if next == Done {
			return nil
		}

		if err := c.transition(ctx, next, records, target); err != nil {
			if !errors.IsRecoverable(err) {
				return err
			}
			c.logger.Error("transition failed", "state", next.String(), "error", err)
			c.prompter.Error(errors.UserMessage(err))
		}
	}
}

// list shows the Listing menu and returns the chosen state and, for a
// launch, the index of the chosen record.
func (c *Controller[T, P]) list(ctx context.Context, records []T) (State, int, error) {
	title := TitleListing
	if len(records) == 0 {
		title = TitleListingEmpty
	}

	choices := make([]prompt.Choice, 0, len(records)+5)
	for i := range records {
		id := meta[T, P](&records[i])
		choices = append(choices, prompt.Choice{Label: id.Label(), Value: launchPrefix + id.ExternalID})
	}
	choices = append(choices, prompt.Choice{Label: LabelCreate, Value: choiceCreate})
	if len(records) > 0 {
		choices = append(choices, prompt.Choice{Label: LabelUpdate, Value: choiceUpdate})
		if _, ok := c.adapter.(AdvancedConfigurer[T]); ok {
			choices = append(choices, prompt.Choice{Label: LabelAdvanced, Value: choiceAdvanced})
		}
		choices = append(choices, prompt.Choice{Label: LabelDelete, Value: choiceDelete})
	}
	choices = append(choices, prompt.Choice{Label: LabelCancel, Value: choiceCancel})

	selected, err := c.prompter.Select(ctx, title, choices, "")
	if err != nil {
		return Done, -1, err
	}

	switch selected {
	case choiceCreate:
		return Creating, -1, nil
	case choiceUpdate:
		return Updating, -1, nil
	case choiceAdvanced:
		return AdvancedUpdating, -1, nil
	case choiceDelete:
		return Deleting, -1, nil
	case choiceCancel:
		return Done, -1, nil
	}

	externalID := strings.TrimPrefix(selected, launchPrefix)
	for i := range records {
		if meta[T, P](&records[i]).ExternalID == externalID {
			return Launching, i, nil
		}
	}
	return Listing, -1, errors.NewNotFoundError("instance", externalID)
}

func (c *Controller[T, P]) transition(ctx context.Context, next State, records []T, target int) error {
	switch next {
	case Creating:
		return c.create(ctx)
	case Updating:
		return c.update(ctx, records, c.adapter.PromptConfiguration)
	case AdvancedUpdating:
		advanced, ok := c.adapter.(AdvancedConfigurer[T])
		if !ok {
			return nil
		}
		return c.update(ctx, records, advanced.PromptAdvancedConfiguration)
	case Deleting:
		return c.delete(ctx, records)
	case Launching:
		return c.launch(ctx, records[target])
	}
	return nil
}

func (c *Controller[T, P]) create(ctx context.Context) error {
	fields, err := c.adapter.PromptConfiguration(ctx, c.prompter, c.adapter.DefaultSchema())
	if err != nil {
		return err
	}
	created, err := c.store.Create(ctx, fields)
	if err != nil {
		return err
	}
	id := meta[T, P](&created)
	c.logger.WithInstance(id.ExternalID).Info("instance created", "name", id.Name)
	return nil
}

// choose asks the operator to pick one of records. A nil result means Cancel.
func (c *Controller[T, P]) choose(ctx context.Context, title string, records []T) (*T, error) {
	choices := make([]prompt.Choice, 0, len(records)+1)
	for i := range records {
		id := meta[T, P](&records[i])
		choices = append(choices, prompt.Choice{Label: id.Label(), Value: id.ExternalID})
	}
	choices = append(choices, prompt.Choice{Label: LabelCancel, Value: choiceCancel})

	selected, err := c.prompter.Select(ctx, title, choices, "")
	if err != nil || selected == choiceCancel {
		return nil, err
	}
	for i := range records {
		if meta[T, P](&records[i]).ExternalID == selected {
			return &records[i], nil
		}
	}
	return nil, errors.NewNotFoundError("instance", selected)
}

type configure[T any] func(ctx context.Context, p prompt.Prompter, current T) (T, error)

func (c *Controller[T, P]) update(ctx context.Context, records []T, prompter configure[T]) error {
	rec, err := c.choose(ctx, TitleUpdate, records)
	if err != nil || rec == nil {
		return err
	}
	id := meta[T, P](rec)

	fields, err := prompter(ctx, c.prompter, *rec)
	if err != nil {
		return err
	}
	if err := c.store.Update(ctx, id.ExternalID, fields); err != nil {
		return err
	}
	c.logger.WithInstance(id.ExternalID).Info("instance updated")
	return nil
}

func (c *Controller[T, P]) delete(ctx context.Context, records []T) error {
	rec, err := c.choose(ctx, TitleDelete, records)
	if err != nil || rec == nil {
		return err
	}
	id := meta[T, P](rec)

	if err := c.store.Delete(ctx, id.ExternalID); err != nil {
		return err
	}
	c.logger.WithInstance(id.ExternalID).Info("instance deleted", "name", id.Name)
	return nil
}

// launch prepares rec, starts every session that is not already running and
// offers to attach to the primary one. A session that already exists is left
// alone; the operator decides whether to kill it.
func (c *Controller[T, P]) launch(ctx context.Context, rec T) error {
	id := meta[T, P](&rec)
	logger := c.logger.WithInstance(id.ExternalID)

	if err := c.adapter.PerformStartupInitialization(ctx, c.prompter, rec); err != nil {
		return err
	}
	launches, err := c.adapter.Launches(rec)
	if err != nil {
		return err
	}

	primary := id.Session()
	for _, l := range launches {
		sid := primary.Shard(l.Shard)
		if c.sessions.Exists(ctx, sid) {
			logger.Info("session already running", "session", sid.Name())
			c.prompter.Info(fmt.Sprintf("Screen %s is already running, skipping creation", sid.Name()))
			continue
		}
		err := c.sessions.Create(ctx, sid, l.Commands, l.Dir)
		if errors.Is(err, errors.ErrSessionExists) {
			c.prompter.Error(errors.UserMessage(err))
			continue
		}
		if err != nil {
			return err
		}
		logger.Info("session created", "session", sid.Name(), "dir", l.Dir)
	}

	if !c.sessions.Exists(ctx, primary) {
		return nil
	}
	attach, err := c.prompter.Confirm(ctx, TitleAttach, true)
	if err != nil || !attach {
		return err
	}
	return c.sessions.Attach(ctx, primary)
}
