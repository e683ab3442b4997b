package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/Protocol-Lattice/wakalat-agent/pkg/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wakalat.yaml")
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"config", "init", path})
	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, out.String(), "wrote "+path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "command: uv")
	assert.NotContains(t, string(data), "api_key")

	rootCmd.SetArgs([]string{"config", "init", path})
	assert.Error(t, rootCmd.Execute())
}

func TestFindTool(t *testing.T) {
	descriptors := []mcp.ToolDescriptor{{Name: "lookup_statute"}, {Name: "search_precedents"}}
	d, ok := findTool(descriptors, "search_precedents")
	require.True(t, ok)
	assert.Equal(t, "search_precedents", d.Name)

	_, ok = findTool(descriptors, "missing")
	assert.False(t, ok)
}
