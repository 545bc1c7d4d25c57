// Package config loads dyad's user-level settings.
package config

import (
	"os"
	"path/filepath"
)

// Settings is the user configuration stored in ~/.local/dyad/settings.yaml.
type Settings struct {
	// Logging configures file-based logging.
	Logging LoggingConfig `yaml:"logging,omitempty" mapstructure:"logging"`

	// Engine configures where the engine binary comes from and goes.
	Engine EngineConfig `yaml:"engine,omitempty" mapstructure:"engine"`
}

// LoggingConfig configures file-based logging.
// File logging is ENABLED by default - users can disable via settings.yaml.
type LoggingConfig struct {
	// FileEnabled enables logging to file (default: true)
	FileEnabled *bool `yaml:"file_enabled,omitempty" mapstructure:"file_enabled"`
	// MaxSizeMB is the max size in MB before rotation (default: 50)
	MaxSizeMB int `yaml:"max_size_mb,omitempty" mapstructure:"max_size_mb"`
	// MaxAgeDays is max days to retain old logs (default: 7)
	MaxAgeDays int `yaml:"max_age_days,omitempty" mapstructure:"max_age_days"`
	// MaxBackups is max number of old log files to keep (default: 3)
	MaxBackups int `yaml:"max_backups,omitempty" mapstructure:"max_backups"`
}

// EngineConfig configures the engine install.
type EngineConfig struct {
	// Repo is the "owner/name" repository publishing engine releases.
	Repo string `yaml:"repo,omitempty" mapstructure:"repo"`
	// InstallDir is where the binary is placed (default: ~/.local/dyad/bin)
	InstallDir string `yaml:"install_dir,omitempty" mapstructure:"install_dir"`
	// BinaryName is the engine executable name (default: dyad-engine)
	BinaryName string `yaml:"binary_name,omitempty" mapstructure:"binary_name"`
	// VerifyCmd is run after placement with the binary path appended.
	// Empty skips verification.
	VerifyCmd string `yaml:"verify_cmd,omitempty" mapstructure:"verify_cmd"`
}

// IsFileEnabled returns whether file logging is enabled.
// Defaults to true if not explicitly set.
func (c *LoggingConfig) IsFileEnabled() bool {
	if c.FileEnabled == nil {
		return true
	}
	return *c.FileEnabled
}

// GetMaxSizeMB returns the max size in MB, defaulting to 50 if not set.
func (c *LoggingConfig) GetMaxSizeMB() int {
	if c.MaxSizeMB <= 0 {
		return 50
	}
	return c.MaxSizeMB
}

// GetMaxAgeDays returns the max age in days, defaulting to 7 if not set.
func (c *LoggingConfig) GetMaxAgeDays() int {
	if c.MaxAgeDays <= 0 {
		return 7
	}
	return c.MaxAgeDays
}

// GetMaxBackups returns the max backups, defaulting to 3 if not set.
func (c *LoggingConfig) GetMaxBackups() int {
	if c.MaxBackups <= 0 {
		return 3
	}
	return c.MaxBackups
}

// GetRepo returns the engine release repo, defaulting to the official one.
func (c *EngineConfig) GetRepo() string {
	if c.Repo == "" {
		return "0xalgebra/dyad-engine"
	}
	return c.Repo
}

// GetInstallDir returns the install directory, defaulting to ~/.local/dyad/bin.
func (c *EngineConfig) GetInstallDir() string {
	if c.InstallDir != "" {
		return c.InstallDir
	}
	home, err := HomeDir()
	if err != nil {
		return "bin"
	}
	return filepath.Join(home, "bin")
}

// GetBinaryName returns the engine binary name, defaulting to dyad-engine.
func (c *EngineConfig) GetBinaryName() string {
	if c.BinaryName == "" {
		return "dyad-engine"
	}
	return c.BinaryName
}

// HomeDir returns dyad's home directory (~/.local/dyad), creating nothing.
func HomeDir() (string, error) {
	if dir := os.Getenv("DYAD_HOME"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".local", "dyad"), nil
}

// LogsDir returns the directory for log files.
func LogsDir() (string, error) {
	home, err := HomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, "logs"), nil
}

// SettingsPath returns the settings file path.
func SettingsPath() (string, error) {
	home, err := HomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, "settings.yaml"), nil
}
