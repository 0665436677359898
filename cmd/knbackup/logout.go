package main

import (
	"github.com/spf13/cobra"

	"knbackup/pkg/ui"
)

var logoutOpts authOptions

// logoutCmd represents the logout command
var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove the saved profile",
	Long: `Remove the saved user id and refresh token from the profile store.

The next 'login' or 'download' needs a password or a refresh token again.`,
	Args: cobra.NoArgs,
	RunE: runLogout,
}

func init() {
	rootCmd.AddCommand(logoutCmd)
	logoutCmd.Flags().StringVar(&logoutOpts.profilePath, "config", "", "profile file (default ~/.knbackup/config.toml)")
	logoutCmd.Flags().StringVar(&logoutOpts.profileBackend, "profile-backend", "", "profile store: file, keyring or encrypted")
}

func runLogout(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig(logoutOpts.flags())
	if err != nil {
		return err
	}

	_, store, err := newBackup(cfg, log)
	if err != nil {
		return err
	}
	if err := store.Clear(); err != nil {
		return err
	}

	if !quiet {
		ui.PrintSuccess("Profile removed from " + store.Location())
	}
	return nil
}
