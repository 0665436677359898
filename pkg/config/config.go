package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultHost is the Kidsnote API host
	DefaultHost = "https://kapi.kidsnote.com"

	// DefaultClientID is the public client id shipped with the Kidsnote mobile app
	DefaultClientID = "eTU0bU4xbHBhWTcyTmlQTEZPQnp5WlNkS2FMV0h4ZUNUV0VoUXp4RzpleENKNVQ5TmlzaGc2NkpEQzh1b1NZN29PM1hTVVVVcjlHRG5penVWaGd3TDJyWkpNVkJHY0hYYTh1UDZ2VmlHbGE2VERGVE8ybDFIMEw3cEdIckFRQ1lpMWsyakEwVTVVT2RmQ2pXeDdSVVJDMk0xZlhhd1ZNRXBIdGJDZExQbQ=="

	// DefaultProfilePath is where the {user_id, refresh_token} profile lives
	DefaultProfilePath = "~/.knbackup/config.toml"

	// DefaultTimezone is the service's regional zone, sent with date filters
	DefaultTimezone = "Asia/Seoul"

	// DefaultPathTimezone dates archive folders, file names and report titles
	DefaultPathTimezone = "UTC"
)

// Config holds all configuration options for knbackup
type Config struct {
	// Kidsnote API access
	Kidsnote KidsnoteConfig `yaml:"kidsnote" json:"kidsnote"`

	// Report and image download behavior
	Download DownloadConfig `yaml:"download" json:"download"`

	// Where the login profile is persisted
	Profile ProfileConfig `yaml:"profile" json:"profile"`

	// Rendering of report text
	Render RenderConfig `yaml:"render" json:"render"`

	// Notification preferences
	Notifications NotificationConfig `yaml:"notifications" json:"notifications"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// KidsnoteConfig holds API endpoint and credential settings.
// Password and RefreshToken are never written to the settings file.
type KidsnoteConfig struct {
	Host           string        `yaml:"host" json:"host"`
	ClientID       string        `yaml:"client_id" json:"client_id"`
	UserID         string        `yaml:"user_id" json:"user_id"`
	Password       string        `yaml:"-" json:"-"`
	RefreshToken   string        `yaml:"-" json:"-"`
	RequestTimeout time.Duration `yaml:"request_timeout" json:"request_timeout"`
}

// DownloadConfig holds download-specific configuration
type DownloadConfig struct {
	OutputDir     string        `yaml:"output_dir" json:"output_dir"`
	ImageTimeout  time.Duration `yaml:"image_timeout" json:"image_timeout"`
	RetryAttempts int           `yaml:"retry_attempts" json:"retry_attempts"`
	RetryDelay    time.Duration `yaml:"retry_delay" json:"retry_delay"`
	PageDelay     time.Duration `yaml:"page_delay" json:"page_delay"`
	ImageDelay    time.Duration `yaml:"image_delay" json:"image_delay"`
	MaxPages      int           `yaml:"max_pages" json:"max_pages"`
	PageSize      int           `yaml:"page_size" json:"page_size"`
	Timezone      string        `yaml:"timezone" json:"timezone"`
	PathTimezone  string        `yaml:"path_timezone" json:"path_timezone"`
	DateStart     string        `yaml:"-" json:"-"`
	DateEnd       string        `yaml:"-" json:"-"`
	DryRun        bool          `yaml:"-" json:"-"`
}

// ProfileConfig selects the profile store
type ProfileConfig struct {
	Path    string `yaml:"path" json:"path"`
	Backend string `yaml:"backend" json:"backend"`
}

// RenderConfig controls the text-to-image rendering of report bodies
type RenderConfig struct {
	Enabled   bool    `yaml:"enabled" json:"enabled"`
	FontPath  string  `yaml:"font_path" json:"font_path"`
	FontSize  float64 `yaml:"font_size" json:"font_size"`
	WrapWidth int     `yaml:"wrap_width" json:"wrap_width"`
}

// NotificationConfig holds notification preferences
type NotificationConfig struct {
	Enabled bool `yaml:"enabled" json:"enabled"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level      string `yaml:"level" json:"level"`
	File       string `yaml:"file" json:"file"`
	MaxSize    int    `yaml:"max_size" json:"max_size"`
	MaxBackups int    `yaml:"max_backups" json:"max_backups"`
	MaxAge     int    `yaml:"max_age" json:"max_age"`
	Compress   bool   `yaml:"compress" json:"compress"`
	NoColor    bool   `yaml:"-" json:"-"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Kidsnote: KidsnoteConfig{
			Host:           DefaultHost,
			ClientID:       DefaultClientID,
			RequestTimeout: 30 * time.Second,
		},
		Download: DownloadConfig{
			OutputDir:     "./output",
			ImageTimeout:  5 * time.Second,
			RetryAttempts: 3,
			RetryDelay:    500 * time.Millisecond,
			PageDelay:     time.Second,
			ImageDelay:    time.Millisecond,
			MaxPages:      10000,
			PageSize:      0, // server default
			Timezone:      DefaultTimezone,
			PathTimezone:  DefaultPathTimezone,
		},
		Profile: ProfileConfig{
			Path:    DefaultProfilePath,
			Backend: "file",
		},
		Render: RenderConfig{
			Enabled:   true,
			FontSize:  24,
			WrapWidth: 40,
		},
		Notifications: NotificationConfig{
			Enabled: false,
		},
		Logging: LoggingConfig{
			Level:      "info",
			File:       "",
			MaxSize:    50,
			MaxBackups: 3,
			MaxAge:     28,
			Compress:   false,
		},
	}
}

// LoadFromEnv loads configuration from KNB_* environment variables
func (c *Config) LoadFromEnv() error {
	var errs []error

	setString := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setInt := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	setDuration := func(key string, dst *time.Duration) {
		if v := os.Getenv(key); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = d
		}
	}

	setString("KNB_HOST", &c.Kidsnote.Host)
	setString("KNB_CLIENT_ID", &c.Kidsnote.ClientID)
	setString("KNB_USER_ID", &c.Kidsnote.UserID)
	setString("KNB_USER_PASS", &c.Kidsnote.Password)
	setString("KNB_REFRESH_TOKEN", &c.Kidsnote.RefreshToken)
	setDuration("KNB_REQUEST_TIMEOUT", &c.Kidsnote.RequestTimeout)

	setString("KNB_OUTPUT_DIR", &c.Download.OutputDir)
	setString("KNB_TIMEZONE", &c.Download.Timezone)
	setString("KNB_PATH_TIMEZONE", &c.Download.PathTimezone)
	setDuration("KNB_IMAGE_TIMEOUT", &c.Download.ImageTimeout)
	setInt("KNB_RETRY_ATTEMPTS", &c.Download.RetryAttempts)

	setString("KNB_PROFILE_PATH", &c.Profile.Path)
	setString("KNB_PROFILE_BACKEND", &c.Profile.Backend)

	setString("KNB_FONT_PATH", &c.Render.FontPath)

	if v := os.Getenv("KNB_NOTIFICATIONS_ENABLED"); v != "" {
		c.Notifications.Enabled = strings.ToLower(v) == "true"
	}

	setString("KNB_LOG_LEVEL", &c.Logging.Level)
	setString("KNB_LOG_FILE", &c.Logging.File)

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// LoadFromFile loads configuration from a YAML settings file
func (c *Config) LoadFromFile(path string) error {
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil // No settings file found, not an error
		}
	}

	data, err := os.ReadFile(ExpandHome(path))
	if err != nil {
		return fmt.Errorf("failed to read settings file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse settings file: %w", err)
	}

	return nil
}

// findConfigFile searches for a settings file in standard locations
func (c *Config) findConfigFile() string {
	locations := []string{
		".knbackup.yaml",
		".knbackup.yml",
		ExpandHome("~/.knbackup/settings.yaml"),
		ExpandHome("~/.knbackup/settings.yml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	if c.Kidsnote.Host == "" {
		errs = append(errs, errors.New("kidsnote host is required"))
	} else if u, err := url.Parse(c.Kidsnote.Host); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("kidsnote host %q is not an absolute URL", c.Kidsnote.Host))
	}
	if c.Kidsnote.ClientID == "" {
		errs = append(errs, errors.New("client id is required"))
	}
	if c.Kidsnote.RequestTimeout <= 0 {
		errs = append(errs, errors.New("request timeout must be positive"))
	}

	if c.Download.OutputDir == "" {
		errs = append(errs, errors.New("output directory is required"))
	}
	if c.Download.ImageTimeout <= 0 {
		errs = append(errs, errors.New("image timeout must be positive"))
	}
	if c.Download.RetryAttempts < 1 {
		errs = append(errs, errors.New("retry attempts must be at least 1"))
	}
	if c.Download.PageDelay < 0 || c.Download.ImageDelay < 0 || c.Download.RetryDelay < 0 {
		errs = append(errs, errors.New("delays cannot be negative"))
	}
	if c.Download.MaxPages <= 0 {
		errs = append(errs, errors.New("max pages must be positive"))
	}
	if c.Download.PageSize < 0 {
		errs = append(errs, errors.New("page size cannot be negative"))
	}
	if _, err := time.LoadLocation(c.Download.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("invalid timezone %q: %w", c.Download.Timezone, err))
	}
	if _, err := time.LoadLocation(c.Download.PathTimezone); err != nil {
		errs = append(errs, fmt.Errorf("invalid path timezone %q: %w", c.Download.PathTimezone, err))
	}

	validBackends := map[string]bool{
		"file": true, "keyring": true, "encrypted": true,
	}
	if !validBackends[strings.ToLower(c.Profile.Backend)] {
		errs = append(errs, fmt.Errorf("invalid profile backend %q", c.Profile.Backend))
	}
	if c.Profile.Path == "" {
		errs = append(errs, errors.New("profile path is required"))
	}

	if c.Render.FontSize <= 0 {
		errs = append(errs, errors.New("render font size must be positive"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// PathLocation returns the zone that dates archive paths and titles.
// An empty or unknown name means UTC.
func (d DownloadConfig) PathLocation() *time.Location {
	loc, err := time.LoadLocation(d.PathTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Save saves the configuration to a YAML settings file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	path = ExpandHome(path)
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration.
// Only non-zero values override.
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	str := func(key string, dst *string) {
		if v, ok := flags[key].(string); ok && v != "" {
			*dst = v
		}
	}

	str("client-id", &c.Kidsnote.ClientID)
	str("user", &c.Kidsnote.UserID)
	str("pass", &c.Kidsnote.Password)
	str("refresh-token", &c.Kidsnote.RefreshToken)
	str("config", &c.Profile.Path)
	str("profile-backend", &c.Profile.Backend)
	str("output", &c.Download.OutputDir)
	str("date-start", &c.Download.DateStart)
	str("date-end", &c.Download.DateEnd)
	str("font", &c.Render.FontPath)
	str("log-level", &c.Logging.Level)
	str("log-file", &c.Logging.File)

	if v, ok := flags["test"].(bool); ok && v {
		c.Download.DryRun = true
	}
	if v, ok := flags["no-render"].(bool); ok && v {
		c.Render.Enabled = false
	}
	if v, ok := flags["no-color"].(bool); ok && v {
		c.Logging.NoColor = true
	}
	if v, ok := flags["notifications"].(bool); ok && v {
		c.Notifications.Enabled = true
	}
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Settings file > Defaults
func Load(settingsPath string, flags map[string]interface{}) (*Config, error) {
	// Missing .env files are fine
	_ = godotenv.Load(".env")
	_ = godotenv.Load(ExpandHome("~/.knbackup/.env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(settingsPath); err != nil {
		return nil, fmt.Errorf("failed to load settings file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// ExpandHome resolves a leading "~/" against the user's home directory.
// When the home directory is unknown the current directory is used.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		home = "."
	}
	if path == "~" {
		return home
	}
	return filepath.Join(home, path[2:])
}

// Masked returns a copy with secrets hidden, for display
func (c *Config) Masked() *Config {
	cp := *c
	cp.Kidsnote.Password = mask(c.Kidsnote.Password)
	cp.Kidsnote.RefreshToken = mask(c.Kidsnote.RefreshToken)
	cp.Kidsnote.ClientID = mask(c.Kidsnote.ClientID)
	return &cp
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return "****"
	}
	return s[:4] + "****" + s[len(s)-4:]
}
