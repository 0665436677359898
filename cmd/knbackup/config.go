package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"knbackup/pkg/config"
	"knbackup/pkg/ui"
)

const defaultSettingsPath = "~/.knbackup/settings.yaml"

var forceInit bool

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the settings file",
	Long: `Manage the knbackup settings file.

Settings are loaded from, in order of priority:
  - Command line flags
  - Environment variables (KNB_*), including a .env file
  - The settings file
  - Default values`,
}

// initCmd represents the config init command
var initCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write a settings file with the default values",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runConfigInit,
}

// showCmd represents the config show command
var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective settings",
	Long: `Show the settings after applying every source.

Secrets are masked.`,
	Args: cobra.NoArgs,
	RunE: runConfigShow,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(initCmd)
	configCmd.AddCommand(showCmd)

	initCmd.Flags().BoolVarP(&forceInit, "force", "f", false, "overwrite an existing file")
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := defaultSettingsPath
	if settingsFile != "" {
		path = settingsFile
	}
	if len(args) == 1 {
		path = args[0]
	}
	path = config.ExpandHome(path)

	if _, err := os.Stat(path); err == nil && !forceInit {
		return fmt.Errorf("settings file %s already exists (use --force to overwrite)", path)
	}

	if err := config.DefaultConfig().Save(path); err != nil {
		return err
	}

	ui.PrintSuccess("Settings file created: " + path)
	fmt.Fprintln(ui.Output, "\nNext steps:")
	fmt.Fprintln(ui.Output, "1. Set download.output_dir and render.font_path (a Korean TTF/OTF font)")
	fmt.Fprintln(ui.Output, "2. Run 'knbackup login -u <user id>' once")
	fmt.Fprintln(ui.Output, "3. Run 'knbackup download'")
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig(map[string]interface{}{})
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg.Masked())
	if err != nil {
		return fmt.Errorf("failed to format configuration: %w", err)
	}

	ui.PrintHighlight("Current configuration")
	fmt.Fprintln(ui.Output)
	fmt.Fprint(ui.Output, string(data))

	fmt.Fprintln(ui.Output, "\nConfiguration sources (in order of priority):")
	fmt.Fprintln(ui.Output, "1. Command line flags")
	fmt.Fprintln(ui.Output, "2. Environment variables (KNB_*)")
	if settingsFile != "" {
		fmt.Fprintf(ui.Output, "3. Settings file: %s\n", settingsFile)
	} else {
		fmt.Fprintln(ui.Output, "3. Settings file: (searched in default locations)")
	}
	fmt.Fprintln(ui.Output, "4. Default values")
	return nil
}
