// Package lifecycle drives a game's instances through the operator console:
// list them, create, update or delete one, or launch it into a session and
// attach to it.
//
// A Controller is the per-game state machine
//
//	Listing -> {Creating, Updating, Deleting, Launching} -> Listing
//
// which ends in Done when the operator picks Cancel. Errors raised by a
// transition are reported and the controller returns to Listing; only an
// operator abort or a failing store listing ends the loop with an error.
package lifecycle

import (
	"context"

	"github.com/xoxserver/xox-server/internal/prompt"
	"github.com/xoxserver/xox-server/internal/session"
)

// Launch is one detached session started for an instance. Commands are
// joined with spaces and run by bash in Dir.
type Launch struct {
	// Shard names a secondary session of the same instance, such as a Don't
	// Starve Together caves shard. Empty means the primary session.
	Shard    string
	Dir      string
	Commands []string
}

// Adapter is the game-specific half of a Controller.
type Adapter[T any] interface {
	// Table is the store table holding the game's instances.
	Table() string
	// DefaultSchema returns the field values offered for a new instance.
	DefaultSchema() T
	// PromptConfiguration asks the operator for the instance's fields,
	// pre-filled from current.
	PromptConfiguration(ctx context.Context, p prompt.Prompter, current T) (T, error)
	// PerformStartupInitialization prepares a launch: updates binaries,
	// writes config files, accepts licenses. It must be safe to repeat.
	PerformStartupInitialization(ctx context.Context, p prompt.Prompter, rec T) error
	// Launches lists the sessions to start for rec, primary first.
	Launches(rec T) ([]Launch, error)
}

// AdvancedConfigurer is implemented by adapters that have a second, rarely
// used set of fields. The controller then offers "Advanced Update Options".
type AdvancedConfigurer[T any] interface {
	PromptAdvancedConfiguration(ctx context.Context, p prompt.Prompter, current T) (T, error)
}

// Store is the instance persistence a Controller needs.
type Store[T any] interface {
	FindAll(ctx context.Context) ([]T, error)
	Create(ctx context.Context, fields T) (T, error)
	Update(ctx context.Context, externalID string, fields T) error
	Delete(ctx context.Context, externalID string) error
}

// Sessions is the session registry a Controller needs.
type Sessions interface {
	Exists(ctx context.Context, id session.Identity) bool
	Create(ctx context.Context, id session.Identity, commands []string, dir string) error
	Attach(ctx context.Context, id session.Identity) error
}

// Page is anything the top-level menu can open.
type Page interface {
	Run(ctx context.Context) error
}
