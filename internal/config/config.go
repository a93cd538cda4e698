package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Settings is the persisted configuration
type Settings struct {
	VaultPath       string `yaml:"vault_path"`
	AutofillEnabled bool   `yaml:"autofill_enabled"`
	Headless        bool   `yaml:"headless"`
	Width           int    `yaml:"width"`
	Height          int    `yaml:"height"`
	ProfileDir      string `yaml:"profile_dir,omitempty"` // Chrome/Chromium profile directory for authenticated sessions
}

// Dir returns ~/.credbridge
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".credbridge"), nil
}

// DefaultPath returns the settings file location
func DefaultPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "settings.yaml"), nil
}

// Defaults returns the settings used when no file exists. dir is the
// directory holding the vault.
func Defaults(dir string) Settings {
	return Settings{
		VaultPath:       filepath.Join(dir, "credentials.vault"),
		AutofillEnabled: true,
		Headless:        false,
		Width:           1280,
		Height:          720,
	}
}

// Load reads the settings file at path on top of the defaults. A missing
// file is not an error.
func Load(path string) (Settings, error) {
	s := Defaults(filepath.Dir(path))

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return s, nil
		}
		return s, fmt.Errorf("failed to read settings: %w", err)
	}

	if err := yaml.Unmarshal(data, &s); err != nil {
		return s, fmt.Errorf("failed to parse settings %s: %w", path, err)
	}
	return s, nil
}

// ApplyEnv overrides settings from CREDBRIDGE_* environment variables
func (s *Settings) ApplyEnv() error {
	if v := os.Getenv("CREDBRIDGE_VAULT"); v != "" {
		s.VaultPath = v
	}
	if v := os.Getenv("CREDBRIDGE_PROFILE"); v != "" {
		s.ProfileDir = v
	}
	if v := os.Getenv("CREDBRIDGE_AUTOFILL"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid CREDBRIDGE_AUTOFILL %q: %w", v, err)
		}
		s.AutofillEnabled = b
	}
	if v := os.Getenv("CREDBRIDGE_HEADLESS"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid CREDBRIDGE_HEADLESS %q: %w", v, err)
		}
		s.Headless = b
	}
	return nil
}

// Save writes the settings file, creating its directory
func (s Settings) Save(path string) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write settings: %w", err)
	}
	return nil
}
