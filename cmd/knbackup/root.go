package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/spf13/cobra"

	"knbackup/pkg/config"
	"knbackup/pkg/logger"
	"knbackup/pkg/ui"
)

var (
	// Version information, set with -ldflags
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	settingsFile  string
	logLevel      string
	logFile       string
	noColor       bool
	notifications bool
	quiet         bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "knbackup",
	Short: "Back up Kidsnote daily reports and their photos",
	Long: `knbackup archives the daily reports (알림장) of every child on a Kidsnote
account to a local folder, together with their attached photos.

Each report is saved as a text file and, optionally, as a rendered image.
Photos already present with the expected size are not downloaded again, so
repeated runs only fetch what is new.

Login state is kept in a profile (~/.knbackup/config.toml by default) so a
refresh token can be reused instead of the password.`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger.Version = version
		if noColor {
			ui.SetColor(false)
		}
		if !quiet && cmd.Name() != "version" && cmd.Name() != "help" && cmd.Parent() != configCmd {
			ui.PrintBanner()
		}
	},
}

// Execute runs the root command and exits non-zero on failure
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		ui.PrintError("Error", err)
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&settingsFile, "settings", "", "YAML settings file (default .knbackup.yaml or ~/.knbackup/settings.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "also write logs to this file (rotated)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().BoolVar(&notifications, "notifications", false, "send a desktop notification when a run ends")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress all output except errors")

	rootCmd.SetVersionTemplate(`knbackup {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// globalFlags returns the persistent flags as config overrides
func globalFlags() map[string]interface{} {
	flags := map[string]interface{}{
		"log-level":     logLevel,
		"log-file":      logFile,
		"no-color":      noColor,
		"notifications": notifications,
	}
	if quiet {
		flags["log-level"] = "error"
	}
	return flags
}

// loadConfig loads settings with flags applied and installs the logger
func loadConfig(flags map[string]interface{}) (*config.Config, logger.Logger, error) {
	for k, v := range globalFlags() {
		flags[k] = v
	}

	cfg, err := config.Load(settingsFile, flags)
	if err != nil {
		return nil, nil, err
	}

	log, err := logger.New(&cfg.Logging)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger.SetLogger(log)
	return cfg, log, nil
}
