package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func clearKeys(t *testing.T) {
	t.Helper()
	for _, k := range []string{"GEMINI_API_KEY", "GOOGLE_API_KEY", "OPENAI_API_KEY", "ANTHROPIC_API_KEY", "WAKALAT_MODEL_API_KEY"} {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearKeys(t)
	t.Chdir(t.TempDir())

	cfg, err := load(viper.New(), "")
	require.NoError(t, err)

	assert.Equal(t, ":3000", cfg.Server.Addr)
	assert.Equal(t, "gemini", cfg.Model.Provider)
	assert.Equal(t, "gemini-2.5-flash", cfg.Model.Name)
	assert.Empty(t, cfg.Model.APIKey)
	assert.Equal(t, "uv", cfg.MCP.Command)
	assert.Equal(t, []string{"run", "main.py"}, cfg.MCP.Args)
	assert.Equal(t, "native", cfg.MCP.LaunchMode)
	assert.Equal(t, 3, cfg.Assistant.MaxToolIterations)
	assert.True(t, cfg.Assistant.UseMCPTools)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadFileAndEnv(t *testing.T) {
	clearKeys(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "wakalat.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  addr: ":8080"
model:
  provider: openai
  name: gpt-4o-mini
mcp:
  command: python
  args: ["-m", "legal_mcp"]
  working_directory: /srv/legal
  launch_mode: shell
assistant:
  use_mcp_tools: false
`), 0o644))

	t.Setenv("WAKALAT_SERVER_ADDR", ":9090")
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := load(viper.New(), path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr, "environment wins over file")
	assert.Equal(t, "openai", cfg.Model.Provider)
	assert.Equal(t, "gpt-4o-mini", cfg.Model.Name)
	assert.Equal(t, "sk-test", cfg.Model.APIKey)
	assert.Equal(t, "python", cfg.MCP.Command)
	assert.Equal(t, []string{"-m", "legal_mcp"}, cfg.MCP.Args)
	assert.Equal(t, "/srv/legal", cfg.MCP.WorkingDirectory)
	assert.Equal(t, "shell", cfg.MCP.LaunchMode)
	assert.False(t, cfg.Assistant.UseMCPTools)
}

func TestLoadGeminiKeyFallback(t *testing.T) {
	clearKeys(t)
	t.Chdir(t.TempDir())
	t.Setenv("GOOGLE_API_KEY", "google-key")

	cfg, err := load(viper.New(), "")
	require.NoError(t, err)
	assert.Equal(t, "google-key", cfg.Model.APIKey)

	t.Setenv("WAKALAT_MODEL_API_KEY", "explicit")
	cfg, err = load(viper.New(), "")
	require.NoError(t, err)
	assert.Equal(t, "explicit", cfg.Model.APIKey)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := load(viper.New(), filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestWriteSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wakalat.yaml")
	require.NoError(t, WriteSample(path, false))
	assert.Error(t, WriteSample(path, false))
	require.NoError(t, WriteSample(path, true))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "api_key")

	var back Config
	require.NoError(t, yaml.Unmarshal(data, &back))
	assert.Equal(t, "uv", back.MCP.Command)
	assert.Equal(t, []string{"run", "main.py"}, back.MCP.Args)
	assert.True(t, back.Assistant.UseMCPTools)

	clearKeys(t)
	cfg, err := load(viper.New(), path)
	require.NoError(t, err)
	assert.Equal(t, *Defaults(), *cfg)
}

func TestMCPDefaultKeepsCustomArgs(t *testing.T) {
	c := MCPConfig{Command: "node", Args: nil}
	c.Default()
	assert.Equal(t, "node", c.Command)
	assert.Empty(t, c.Args)
}
