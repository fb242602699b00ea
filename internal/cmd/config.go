package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/xoxserver/xox-server/internal/config"
	"github.com/xoxserver/xox-server/internal/prompt"
)

func newConfigCmd() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "View xox-server configuration",
		Long: `View xox-server configuration.

Without arguments, prints the resolved configuration as YAML: defaults,
overridden by the config file, overridden by XOX_* environment variables
(STEAM_PATH and STEAM_USERNAME are honored too).`,
		RunE: runConfigShow,
	}

	configCmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Show current configuration",
			RunE:  runConfigShow,
		},
		&cobra.Command{
			Use:   "init",
			Short: "Create a default config file",
			Long:  `Create a config file at ~/.config/xox-server/config.yaml holding the default values.`,
			RunE:  runConfigInit,
		},
		&cobra.Command{
			Use:   "path",
			Short: "Show the config file path",
			RunE:  runConfigPath,
		},
	)
	return configCmd
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	out, err := yaml.Marshal(settings())
	if err != nil {
		return fmt.Errorf("failed to render configuration: %w", err)
	}

	w := cmd.OutOrStdout()
	if viper.ConfigFileUsed() != "" {
		fmt.Fprintf(w, "# Config file: %s\n", viper.ConfigFileUsed())
	} else {
		fmt.Fprintln(w, "# Config file: (none - using defaults)")
	}
	fmt.Fprintf(w, "# Database: %s\n", cfg.DatabasePath())
	fmt.Fprint(w, string(out))
	return nil
}

// settings returns the resolved settings without the --config flag itself.
func settings() map[string]any {
	all := viper.AllSettings()
	delete(all, "config")
	return all
}

func runConfigInit(cmd *cobra.Command, _ []string) error {
	configFile := config.ConfigFile()
	if _, err := os.Stat(configFile); err == nil {
		return fmt.Errorf("config file already exists at %s", configFile)
	}
	if err := os.MkdirAll(filepath.Dir(configFile), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	out, err := yaml.Marshal(config.Default())
	if err != nil {
		return fmt.Errorf("failed to render configuration: %w", err)
	}
	content := "# xox-server configuration\n" + string(out)
	if err := os.WriteFile(configFile, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), prompt.Success.Render("Created config file at "+configFile))
	return nil
}

func runConfigPath(cmd *cobra.Command, _ []string) error {
	w := cmd.OutOrStdout()
	if viper.ConfigFileUsed() != "" {
		fmt.Fprintf(w, "Active config: %s\n", viper.ConfigFileUsed())
	} else {
		fmt.Fprintf(w, "Default path: %s (not created)\n", config.ConfigFile())
	}

	fmt.Fprintln(w, "\nSearch paths:")
	fmt.Fprintf(w, "  1. %s\n", config.ConfigFile())
	fmt.Fprintln(w, "  2. ./config.yaml (current directory)")
	fmt.Fprintln(w, "\nEnvironment variables: XOX_* (e.g., XOX_STEAM_MAX_RETRIES)")
	return nil
}
