package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultSettings(t *testing.T) {
	s := DefaultSettings()

	assert.Equal(t, DefaultModel, s.Model)
	assert.False(t, s.UseGrounding)
	assert.False(t, s.UseCodeExecution)
	assert.Equal(t, "file", s.Storage)
}

func TestLoad_MissingFileFallsBackToDefaults(t *testing.T) {
	s, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	require.NoError(t, err)
	assert.Equal(t, DefaultModel, s.Model)
}

func TestLoad_JSONCWithComments(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.jsonc")
	content := `{
		// which model to talk to
		"model": "gemini-2.5-pro",
		"useGrounding": true,
		"serverUrl": "http://localhost:9999/"
	}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "gemini-2.5-pro", s.Model)
	assert.True(t, s.UseGrounding)
	// Trailing slash is normalized away.
	assert.Equal(t, "http://localhost:9999", s.ServerURL)
}

func TestLoad_YAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	content := "model: gemini-2.0-flash-lite\nuse_code_execution: true\nstorage: redis\nredis_addr: localhost:6379\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "gemini-2.0-flash-lite", s.Model)
	assert.True(t, s.UseCodeExecution)
	assert.Equal(t, "redis", s.Storage)
	assert.Equal(t, "localhost:6379", s.RedisAddr)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"model":"from-file"}`), 0644))

	t.Setenv("GEMCHAT_MODEL", "from-env")
	s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", s.Model)
}

func TestLoad_MalformedFileReturnsError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "settings.json")
	want := Settings{
		ServerURL:         "http://localhost:3000",
		Model:             "gemini-2.0-flash",
		SystemInstruction: "Be terse.",
		UseGrounding:      true,
		Storage:           "file",
	}
	require.NoError(t, Save(want, path))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}
