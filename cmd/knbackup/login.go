package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"knbackup/pkg/ui"
)

var loginOpts authOptions

// loginCmd represents the login command
var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in, list the children on the account and save the profile",
	Long: `Log in to Kidsnote and save the user id and refresh token to the profile.

A refresh token (flag, environment or profile) is used when available;
otherwise the user id and password are. Later runs of 'download' reuse the
saved refresh token.`,
	Example: `  # First login with a password prompt
  knbackup login -u mom@example.com

  # Keep the profile in the OS keychain
  knbackup login -u mom@example.com --profile-backend keyring`,
	Args: cobra.NoArgs,
	RunE: runLogin,
}

func init() {
	rootCmd.AddCommand(loginCmd)
	loginOpts.register(loginCmd)
}

func runLogin(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig(loginOpts.flags())
	if err != nil {
		return err
	}

	b, store, err := newBackup(cfg, log)
	if err != nil {
		return err
	}
	creds, err := credentials(cfg, store)
	if err != nil {
		return err
	}

	info, err := b.Login(cmd.Context(), creds)
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	if quiet {
		return nil
	}
	ui.PrintInfo("Account", info.User.Username)
	fmt.Fprintln(ui.Output, ui.RenderChildren(info))
	ui.PrintSuccess("Profile saved to " + store.Location())
	return nil
}
