package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/lyallcooper/hashmaker/internal/types"
)

// DefaultSettings returns the report settings used when no file exists.
// The test date defaults to today.
func DefaultSettings(now time.Time) types.Settings {
	return types.Settings{
		Algorithm: types.SHA256,
		TestDate:  now.Format("2006-01-02"),
	}
}

// LoadSettings reads report settings from a YAML file.
func LoadSettings(path string) (types.Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultSettings(time.Now()), nil
		}
		return types.Settings{}, fmt.Errorf("failed to read settings file: %w", err)
	}

	s := DefaultSettings(time.Now())
	if err := yaml.Unmarshal(data, &s); err != nil {
		return types.Settings{}, fmt.Errorf("failed to parse settings YAML: %w", err)
	}

	alg, err := types.ParseAlgorithm(string(s.Algorithm))
	if err != nil {
		return types.Settings{}, fmt.Errorf("settings: %w", err)
	}
	s.Algorithm = alg

	return s, nil
}

// SaveSettings writes settings as YAML, creating the parent directory.
func SaveSettings(path string, s types.Settings) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create settings directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write settings file: %w", err)
	}
	return nil
}

// SettingsStore holds the live report settings. Values are replaced whole.
type SettingsStore struct {
	mu       sync.RWMutex
	settings types.Settings
	path     string
}

// NewSettingsStore returns a store seeded with s. A non-empty path makes
// Set persist to disk.
func NewSettingsStore(s types.Settings, path string) *SettingsStore {
	return &SettingsStore{settings: s, path: path}
}

// Get returns a copy of the current settings.
func (st *SettingsStore) Get() types.Settings {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.settings
}

// Set validates and replaces the current settings.
func (st *SettingsStore) Set(s types.Settings) error {
	alg, err := types.ParseAlgorithm(string(s.Algorithm))
	if err != nil {
		return err
	}
	s.Algorithm = alg

	st.mu.Lock()
	defer st.mu.Unlock()
	if st.path != "" {
		if err := SaveSettings(st.path, s); err != nil {
			return err
		}
	}
	st.settings = s
	return nil
}
