package config

import (
	"os"
	"path/filepath"
)

// Paths holds the standard directories for gemchat data.
type Paths struct {
	Data   string // ~/.local/share/gemchat
	Config string // ~/.config/gemchat
}

// GetPaths returns the standard paths, honoring XDG overrides.
func GetPaths() *Paths {
	return &Paths{
		Data:   filepath.Join(getEnvOrDefault("XDG_DATA_HOME", filepath.Join(os.Getenv("HOME"), ".local", "share")), "gemchat"),
		Config: filepath.Join(getEnvOrDefault("XDG_CONFIG_HOME", filepath.Join(os.Getenv("HOME"), ".config")), "gemchat"),
	}
}

// EnsurePaths creates the data and config directories.
func (p *Paths) EnsurePaths() error {
	for _, dir := range []string{p.Data, p.Config} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return nil
}

// StoragePath returns the directory backing the file session store.
func (p *Paths) StoragePath() string {
	return filepath.Join(p.Data, "storage")
}

// settingsCandidates lists recognized settings file names, in priority
// order.
var settingsCandidates = []string{
	"settings.json",
	"settings.jsonc",
	"settings.yaml",
	"settings.yml",
}

// findSettingsFile returns the first existing settings file under the
// config directory, or "".
func findSettingsFile() string {
	dir := GetPaths().Config
	for _, name := range settingsCandidates {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

func getEnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
