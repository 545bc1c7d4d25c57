package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// SettingsLoader reads Settings from a YAML file with DYAD_ environment
// overrides. A missing file yields defaults rather than an error.
type SettingsLoader struct {
	path string
}

// NewSettingsLoader creates a loader bound to the default settings path.
func NewSettingsLoader() (*SettingsLoader, error) {
	path, err := SettingsPath()
	if err != nil {
		return nil, err
	}
	return &SettingsLoader{path: path}, nil
}

// NewSettingsLoaderAt creates a loader bound to an explicit path. Used by
// tests and the --config flag.
func NewSettingsLoaderAt(path string) *SettingsLoader {
	return &SettingsLoader{path: path}
}

// Path returns the settings file path this loader reads.
func (l *SettingsLoader) Path() string {
	return l.path
}

// Load reads, overlays environment variables, and unmarshals the settings.
func (l *SettingsLoader) Load() (*Settings, error) {
	v := viper.New()
	v.SetConfigFile(l.path)
	v.SetConfigType("yaml")

	v.SetEnvPrefix("DYAD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return nil, fmt.Errorf("reading settings %s: %w", l.path, err)
		}
	}

	var settings Settings
	if err := v.Unmarshal(&settings); err != nil {
		return nil, fmt.Errorf("parsing settings %s: %w", l.path, err)
	}
	return &settings, nil
}
