// Package config provides user settings and server configuration.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// DefaultModel is the baseline model used when settings name none.
const DefaultModel = "gemini-2.0-flash"

// Settings are the user-tunable generation settings the orchestrator
// consumes. They are passed in explicitly at call time so the core stays
// testable without a storage backend.
type Settings struct {
	ServerURL         string `json:"serverUrl" yaml:"server_url"`
	Model             string `json:"model" yaml:"model"`
	SystemInstruction string `json:"systemInstruction" yaml:"system_instruction"`
	UseGrounding      bool   `json:"useGrounding" yaml:"use_grounding"`
	UseCodeExecution  bool   `json:"useCodeExecution" yaml:"use_code_execution"`
	AutoSpeak         bool   `json:"autoSpeak" yaml:"auto_speak"`

	// Storage selects the session store backend: "file" (default) or
	// "redis".
	Storage   string `json:"storage" yaml:"storage"`
	RedisAddr string `json:"redisAddr" yaml:"redis_addr"`
}

// DefaultSettings returns the baseline settings: default model, tools
// disabled, file-backed storage.
func DefaultSettings() Settings {
	return Settings{
		ServerURL: "http://localhost:3000",
		Model:     DefaultModel,
		Storage:   "file",
	}
}

// Load reads settings from the given file, falling back to defaults when
// the file is absent. JSON and JSONC are selected by default; a .yaml or
// .yml extension switches to YAML. Environment variables override file
// values. An empty path means "first existing candidate under the config
// directory".
func Load(path string) (Settings, error) {
	s := DefaultSettings()

	if path == "" {
		path = findSettingsFile()
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return s, fmt.Errorf("failed to read settings: %w", err)
			}
		} else if err := unmarshalSettings(path, data, &s); err != nil {
			return s, fmt.Errorf("failed to parse settings %s: %w", path, err)
		}
	}

	applyEnvOverrides(&s)
	normalize(&s)
	return s, nil
}

func unmarshalSettings(path string, data []byte, s *Settings) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(data, s)
	default:
		// Strip comments so hand-edited settings files may carry them.
		return json.Unmarshal(jsonc.ToJSON(data), s)
	}
}

// applyEnvOverrides applies GEMCHAT_* environment overrides on top of
// file values.
func applyEnvOverrides(s *Settings) {
	if v := os.Getenv("GEMCHAT_SERVER_URL"); v != "" {
		s.ServerURL = v
	}
	if v := os.Getenv("GEMCHAT_MODEL"); v != "" {
		s.Model = v
	}
	if v := os.Getenv("GEMCHAT_SYSTEM_INSTRUCTION"); v != "" {
		s.SystemInstruction = v
	}
	if v := os.Getenv("GEMCHAT_STORAGE"); v != "" {
		s.Storage = v
	}
	if v := os.Getenv("GEMCHAT_REDIS_ADDR"); v != "" {
		s.RedisAddr = v
	}
	if v := os.Getenv("GEMCHAT_USE_GROUNDING"); v != "" {
		s.UseGrounding = v == "true" || v == "1"
	}
	if v := os.Getenv("GEMCHAT_USE_CODE_EXECUTION"); v != "" {
		s.UseCodeExecution = v == "true" || v == "1"
	}
}

func normalize(s *Settings) {
	if s.Model == "" {
		s.Model = DefaultModel
	}
	if s.ServerURL == "" {
		s.ServerURL = DefaultSettings().ServerURL
	}
	s.ServerURL = strings.TrimRight(s.ServerURL, "/")
	if s.Storage == "" {
		s.Storage = "file"
	}
}

// Save writes settings to the given path as indented JSON.
func Save(s Settings, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
