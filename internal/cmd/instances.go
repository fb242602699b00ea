package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/xoxserver/xox-server/internal/game"
	"github.com/xoxserver/xox-server/internal/instance"
	"github.com/xoxserver/xox-server/internal/prompt"
)

func newInstancesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "instances [game]",
		Short: "List stored instances",
		Long: `List the stored instances of every game, or of one game by key.

Game keys: valheim, palworld, terraria, dst, minecraft-java`,
		Args: cobra.MaximumNArgs(1),
		RunE: runInstances,
	}
}

func runInstances(cmd *cobra.Command, args []string) error {
	entries := game.Registry
	if len(args) == 1 {
		e, ok := game.Lookup(args[0])
		if !ok {
			return fmt.Errorf("unknown game %q", args[0])
		}
		entries = []game.Entry{e}
	}

	ctx := cmd.Context()
	a, err := newApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	w := cmd.OutOrStdout()
	for _, e := range entries {
		metas, err := e.List(ctx, a.db)
		if err != nil {
			return fmt.Errorf("failed to list %s instances: %w", e.Title, err)
		}
		printInstances(w, e.Title, metas)
	}
	return nil
}

func printInstances(w io.Writer, title string, metas []instance.Meta) {
	fmt.Fprintln(w, prompt.Title.Render(title))
	if len(metas) == 0 {
		fmt.Fprintln(w, "  "+prompt.Muted.Render("no instances"))
		return
	}
	for _, m := range metas {
		fmt.Fprintf(w, "  %s  %s\n", m.Label(), prompt.Muted.Render(m.CreatedAt.Local().Format(time.DateTime)))
	}
}
