package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeConfig places a config file in the fake home's allowed directory.
func writeConfig(t *testing.T, content string, perm os.FileMode) string {
	t.Helper()

	home := t.TempDir()
	t.Setenv("HOME", home)

	dir := filepath.Join(home, ".config", "agentd")
	require.NoError(t, os.MkdirAll(dir, 0o700))

	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), perm))
	return path
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 8787, cfg.Server.Port)
	assert.Equal(t, "claude-sonnet-4-5", cfg.LLM.Model)
}

func TestLoad_FromFile(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9000
llm:
  model: claude-haiku-4-5
  api_key: sk-test
engine:
  max_tool_executions: 8
  working_dir: /srv/workspace
`, 0o600)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "claude-haiku-4-5", cfg.LLM.Model)
	assert.Equal(t, "sk-test", cfg.LLM.APIKey.Value())
	assert.Equal(t, 8, cfg.Engine.MaxToolExecutions)
	assert.Equal(t, "/srv/workspace", cfg.Engine.WorkingDir)
	// Untouched sections keep their defaults.
	assert.Equal(t, 8000, cfg.Context.MaxTotalSize)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 9000\n", 0o600)
	t.Setenv("AGENTD_SERVER_PORT", "9500")
	t.Setenv("AGENTD_LLM_API_KEY", "sk-from-env")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9500, cfg.Server.Port)
	assert.Equal(t, "sk-from-env", cfg.LLM.APIKey.Value())
}

func TestLoad_RejectsWeakPermissions(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 9000\n", 0o644)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insecure config file permissions")
}

func TestLoad_RejectsPathOutsideAllowedDirs(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	outside := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(outside, []byte("server:\n  port: 9000\n"), 0o600))

	_, err := Load(outside)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be in")
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "server: [not a map", 0o600)

	_, err := Load(path)
	require.Error(t, err)
}
