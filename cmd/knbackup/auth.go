package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"knbackup/pkg/backup"
	"knbackup/pkg/config"
	"knbackup/pkg/kidsnote"
	"knbackup/pkg/logger"
	"knbackup/pkg/profile"
)

// authOptions are the login flags shared by login and download
type authOptions struct {
	clientID       string
	user           string
	pass           string
	refreshToken   string
	profilePath    string
	profileBackend string
}

func (o *authOptions) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&o.clientID, "client_id", "c", "", "OAuth client id (env KNB_CLIENT_ID)")
	cmd.Flags().StringVarP(&o.user, "user", "u", "", "Kidsnote user id (env KNB_USER_ID)")
	cmd.Flags().StringVarP(&o.pass, "pass", "p", "", "Kidsnote password (env KNB_USER_PASS; prompted when omitted)")
	cmd.Flags().StringVarP(&o.refreshToken, "refresh-token", "r", "", "refresh token (env KNB_REFRESH_TOKEN)")
	cmd.Flags().StringVar(&o.profilePath, "config", "", "profile file (default "+config.DefaultProfilePath+")")
	cmd.Flags().StringVar(&o.profileBackend, "profile-backend", "", "profile store: file, keyring or encrypted")
}

func (o *authOptions) flags() map[string]interface{} {
	return map[string]interface{}{
		"client-id":       o.clientID,
		"user":            o.user,
		"pass":            o.pass,
		"refresh-token":   o.refreshToken,
		"config":          o.profilePath,
		"profile-backend": o.profileBackend,
	}
}

// newBackup wires the client and profile store for cfg
func newBackup(cfg *config.Config, log logger.Logger) (*backup.Backup, profile.Store, error) {
	store, err := profile.NewStore(cfg.Profile.Backend, cfg.Profile.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open profile store: %w", err)
	}
	client := kidsnote.NewClient(nil, cfg.Kidsnote, log)
	return backup.New(cfg, client, store, log), store, nil
}

// credentials collects the login inputs, prompting for the password when a
// user id is known, no refresh token is available and stdin is a terminal
func credentials(cfg *config.Config, store profile.Store) (backup.Credentials, error) {
	creds := backup.Credentials{
		UserID:       cfg.Kidsnote.UserID,
		Password:     cfg.Kidsnote.Password,
		RefreshToken: cfg.Kidsnote.RefreshToken,
	}
	if creds.Password != "" || creds.RefreshToken != "" {
		return creds, nil
	}

	stored, err := store.Load()
	if err == nil && stored.RefreshToken != "" {
		return creds, nil
	}
	if creds.UserID == "" || !term.IsTerminal(int(os.Stdin.Fd())) {
		return creds, nil
	}

	fmt.Fprintf(os.Stderr, "Password for %s: ", creds.UserID)
	pass, err := readPassword()
	if err != nil {
		return creds, fmt.Errorf("failed to read password: %w", err)
	}
	creds.Password = pass
	return creds, nil
}

// readPassword reads a password from stdin without echoing
func readPassword() (string, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		password, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err == nil {
			return string(password), nil
		}
	}

	reader := bufio.NewReader(os.Stdin)
	input, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(input), nil
}
