package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/xoxserver/xox-server/internal/game"
	"github.com/xoxserver/xox-server/internal/prompt"
	"github.com/xoxserver/xox-server/internal/session"
	"github.com/xoxserver/xox-server/internal/store"
)

func newSessionsCmd() *cobra.Command {
	sessionsCmd := &cobra.Command{
		Use:   "sessions",
		Short: "List or kill running server sessions",
		Long: `Commands for the detached sessions servers run in.

Without a subcommand, lists every live session and the instance it belongs to.`,
		RunE: runSessionsList,
	}

	sessionsCmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List live sessions",
			RunE:  runSessionsList,
		},
		&cobra.Command{
			Use:   "kill <session-name>",
			Short: "Terminate a session",
			Long: `Terminate a session by its full name, as printed by 'xox-server sessions'.

With screen (the default) the session is quit at once and the server gets no
chance to save. With tmux the server first receives Ctrl+C and gets up to 10
seconds to exit before the session is killed.`,
			Args: cobra.ExactArgs(1),
			RunE: runSessionsKill,
		},
	)
	return sessionsCmd
}

func runSessionsList(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	names, err := a.sessions.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}
	owners, err := sessionOwners(ctx, a.db)
	if err != nil {
		return err
	}
	printSessions(cmd.OutOrStdout(), names, owners)
	return nil
}

// sessionOwner pairs the session identity of a stored instance with its
// "Game: name" label.
type sessionOwner struct {
	id    session.Identity
	label string
}

func sessionOwners(ctx context.Context, db *store.DB) ([]sessionOwner, error) {
	var owners []sessionOwner
	for _, e := range game.Registry {
		metas, err := e.List(ctx, db)
		if err != nil {
			return nil, fmt.Errorf("failed to list %s instances: %w", e.Title, err)
		}
		for _, m := range metas {
			owners = append(owners, sessionOwner{
				id:    session.Identity{DisplayName: m.Name, ExternalID: m.ExternalID},
				label: e.Title + ": " + m.Name,
			})
		}
	}
	return owners, nil
}

// owner finds the instance a session belongs to, shard sessions included.
func owner(name string, owners []sessionOwner) (string, bool) {
	for _, o := range owners {
		shard, ok := o.id.Owns(name)
		if !ok {
			continue
		}
		if shard != "" {
			return o.label + " (" + shard + ")", true
		}
		return o.label, true
	}
	return "", false
}

func printSessions(w io.Writer, names []string, owners []sessionOwner) {
	if len(names) == 0 {
		fmt.Fprintln(w, prompt.FormatInfo("No running sessions"))
		return
	}
	fmt.Fprintln(w, prompt.Title.Render(fmt.Sprintf("%d running session(s)", len(names))))
	for _, name := range names {
		label, ok := owner(name, owners)
		if !ok {
			label = prompt.Muted.Render("(unmanaged)")
		}
		fmt.Fprintf(w, "  %s  %s\n", name, label)
	}
}

func runSessionsKill(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.sessions.Kill(ctx, args[0]); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), prompt.Success.Render("Killed session "+args[0]))
	return nil
}
