package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/xoxserver/xox-server/internal/config"
	"github.com/xoxserver/xox-server/internal/errors"
	"github.com/xoxserver/xox-server/internal/game"
	"github.com/xoxserver/xox-server/internal/lifecycle"
	"github.com/xoxserver/xox-server/internal/prompt"
)

// ExitInterrupted is the exit code after SIGINT or an operator abort.
const ExitInterrupted = 130

var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "xox-server",
		Short: "Interactive console for dedicated game servers",
		Long: `xox-server manages dedicated game server instances for Valheim, Palworld,
Terraria, Don't Starve Together and Minecraft (Java Edition).

Without a subcommand it opens the interactive console: pick a game, then
create, update, delete or launch one of its instances. Launched servers run
in detached screen (or tmux) sessions that survive the console.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: checkUser,
		RunE:              runConsole,
	}

	root.PersistentFlags().StringP("config", "c", "", "config file (default is $HOME/.config/xox-server/config.yaml)")
	_ = viper.BindPFlag("config", root.PersistentFlags().Lookup("config"))

	root.AddCommand(newSessionsCmd(), newConfigCmd(), newInstancesCmd())
	return root
}

// Execute runs the root command
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	cobra.OnInitialize(initConfig)
}

func initConfig() {
	// Set defaults first so they're available even without a config file
	config.SetDefaults()

	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(config.ConfigDir())
		viper.AddConfigPath(".")
	}

	viper.SetEnvPrefix("XOX")
	// e.g. XOX_STEAM_MAX_RETRIES for steam.max_retries
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	config.BindLegacyEnv()

	// Read config file if it exists (ignore error if not found)
	_ = viper.ReadInConfig()
}

// checkUser refuses to run as root outside development: servers started
// from here would write root-owned files into the operator's Steam and
// world directories.
func checkUser(*cobra.Command, []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if !cfg.IsDevelopment() && os.Geteuid() == 0 {
		return errors.NewValidationError("This program is not meant to be run as root as it may break some of the environment things")
	}
	return nil
}

func runConsole(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	a.logger.Info("console started", "environment", a.cfg.Environment, "database", a.db.Path())
	menu := lifecycle.NewMenu(a.prompter, a.logger, game.MenuEntries(a.deps())...)
	return menu.Run(ctx)
}

// ExitCode maps the result of Execute to a process exit code, reporting
// unexpected errors on stderr.
func ExitCode(err error, stderr io.Writer) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, prompt.ErrAborted), errors.Is(err, context.Canceled):
		return ExitInterrupted
	default:
		fmt.Fprintf(stderr, "\n%s\n", prompt.FormatError("Runtime Exception, "+errors.UserMessage(err)))
		return 1
	}
}
