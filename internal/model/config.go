package model

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Scan frequencies accepted by ScanConfig.Frequency.
const (
	FrequencyHourly     = "hourly"
	FrequencyTwiceDaily = "twicedaily"
	FrequencyDaily      = "daily"
)

// DatabaseConfig locates the SQLite database.
type DatabaseConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// IMAPConfig holds session limits for mailbox connections.
type IMAPConfig struct {
	// TimeoutSec caps dial, each command, and logout.
	TimeoutSec int `mapstructure:"timeout_sec" yaml:"timeout_sec"`

	// PageSize is the default number of messages per listing page.
	PageSize int `mapstructure:"page_size" yaml:"page_size"`
}

// Timeout returns TimeoutSec as a duration.
func (c IMAPConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSec) * time.Second
}

// ScanConfig controls the scheduled scanner.
type ScanConfig struct {
	// Frequency is one of hourly, twicedaily or daily.
	Frequency string `mapstructure:"frequency" yaml:"frequency"`

	// Folder is the mailbox folder scanned for insights.
	Folder string `mapstructure:"folder" yaml:"folder"`

	// MaxMessages bounds how many of the newest messages one scan reads.
	MaxMessages int `mapstructure:"max_messages" yaml:"max_messages"`
}

// Interval converts Frequency to a ticker interval.
func (c ScanConfig) Interval() (time.Duration, error) {
	switch c.Frequency {
	case FrequencyHourly, "":
		return time.Hour, nil
	case FrequencyTwiceDaily:
		return 12 * time.Hour, nil
	case FrequencyDaily:
		return 24 * time.Hour, nil
	default:
		return 0, fmt.Errorf("unknown scan frequency %q", c.Frequency)
	}
}

// ClassifierConfig holds classifier switches.
type ClassifierConfig struct {
	Debug bool `mapstructure:"debug" yaml:"debug"`
}

// LogConfig holds logging preferences.
type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
}

// SecretConfig selects where the credential encryption key lives.
type SecretConfig struct {
	// Backend is "keyring" or "env".
	Backend string `mapstructure:"backend" yaml:"backend"`

	// EnvVar names the variable read by the env backend.
	EnvVar string `mapstructure:"env_var" yaml:"env_var"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	// UserID owns every account and insight created by this install.
	UserID string `mapstructure:"user_id" yaml:"user_id"`

	Database   DatabaseConfig   `mapstructure:"database" yaml:"database"`
	IMAP       IMAPConfig       `mapstructure:"imap" yaml:"imap"`
	Scan       ScanConfig       `mapstructure:"scan" yaml:"scan"`
	Classifier ClassifierConfig `mapstructure:"classifier" yaml:"classifier"`
	Log        LogConfig        `mapstructure:"log" yaml:"log"`
	Secret     SecretConfig     `mapstructure:"secret" yaml:"secret"`
}

// DefaultConfigDir returns ~/.config/finmail.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "finmail")
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/finmail/config.yaml.
func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.yaml")
}

// DefaultConfig returns a sensible default configuration.
func DefaultConfig() *AppConfig {
	return &AppConfig{
		UserID:   "local",
		Database: DatabaseConfig{Path: filepath.Join(DefaultConfigDir(), "finmail.db")},
		IMAP: IMAPConfig{
			TimeoutSec: 5,
			PageSize:   20,
		},
		Scan: ScanConfig{
			Frequency:   FrequencyHourly,
			Folder:      "INBOX",
			MaxMessages: 100,
		},
		Log:    LogConfig{Level: "info"},
		Secret: SecretConfig{Backend: "keyring", EnvVar: "FINMAIL_ENCRYPTION_KEY"},
	}
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// If the file does not exist, it returns a default configuration.
// Environment variables prefixed with FINMAIL_ override file values,
// e.g. FINMAIL_SCAN_FREQUENCY=daily.
func LoadConfig(path string) (*AppConfig, error) {
	def := DefaultConfig()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("finmail")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Set defaults so missing keys resolve to sensible values.
	v.SetDefault("user_id", def.UserID)
	v.SetDefault("database.path", def.Database.Path)
	v.SetDefault("imap.timeout_sec", def.IMAP.TimeoutSec)
	v.SetDefault("imap.page_size", def.IMAP.PageSize)
	v.SetDefault("scan.frequency", def.Scan.Frequency)
	v.SetDefault("scan.folder", def.Scan.Folder)
	v.SetDefault("scan.max_messages", def.Scan.MaxMessages)
	v.SetDefault("classifier.debug", false)
	v.SetDefault("log.level", def.Log.Level)
	v.SetDefault("secret.backend", def.Secret.Backend)
	v.SetDefault("secret.env_var", def.Secret.EnvVar)

	if err := v.ReadInConfig(); err != nil {
		_, missing := err.(*os.PathError)
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			missing = true
		}
		// A missing file is fine: defaults and environment still apply.
		if !missing {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	cfg := &AppConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if cfg.IMAP.TimeoutSec <= 0 {
		cfg.IMAP.TimeoutSec = def.IMAP.TimeoutSec
	}
	if cfg.IMAP.PageSize <= 0 {
		cfg.IMAP.PageSize = def.IMAP.PageSize
	}
	if _, err := cfg.Scan.Interval(); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	return cfg, nil
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("user_id", cfg.UserID)
	v.Set("database", cfg.Database)
	v.Set("imap", cfg.IMAP)
	v.Set("scan", cfg.Scan)
	v.Set("classifier", cfg.Classifier)
	v.Set("log", cfg.Log)
	v.Set("secret", cfg.Secret)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
