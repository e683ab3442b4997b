// Package config loads the service configuration from an optional YAML file,
// a .env file and WAKALAT_ prefixed environment variables.
package config

import (
	"strings"
)

const (
	BackupAddr              = ":3000"
	BackupCORSOrigin        = "*"
	BackupProvider          = "gemini"
	BackupGeminiModel       = "gemini-2.5-flash"
	BackupMaxTokens         = 2048
	BackupCommand           = "uv"
	BackupLaunchMode        = "native"
	BackupClientName        = "wakalat-agent"
	BackupClientVersion     = "1.0.0"
	BackupMaxToolIterations = 3
	BackupLogLevel          = "info"
)

// BackupArgs are the arguments used with BackupCommand.
var BackupArgs = []string{"run", "main.py"}

type Config struct {
	Server    ServerConfig    `mapstructure:"server" yaml:"server"`
	Model     ModelConfig     `mapstructure:"model" yaml:"model"`
	MCP       MCPConfig       `mapstructure:"mcp" yaml:"mcp"`
	Assistant AssistantConfig `mapstructure:"assistant" yaml:"assistant"`
	Log       LogConfig       `mapstructure:"log" yaml:"log"`
}

type ServerConfig struct {
	Addr       string `mapstructure:"addr" yaml:"addr"`
	CORSOrigin string `mapstructure:"cors_origin" yaml:"cors_origin"`
}

func (instance *ServerConfig) Default() {
	if instance.Addr == "" {
		instance.Addr = BackupAddr
	}
	if instance.CORSOrigin == "" {
		instance.CORSOrigin = BackupCORSOrigin
	}
}

// ModelConfig selects the hosted model. APIKey is the single secret of the
// service and is never written to sample files.
type ModelConfig struct {
	Provider  string `mapstructure:"provider" yaml:"provider"`
	Name      string `mapstructure:"name" yaml:"name"`
	APIKey    string `mapstructure:"api_key" yaml:"-"`
	BaseURL   string `mapstructure:"base_url" yaml:"base_url,omitempty"`
	MaxTokens int    `mapstructure:"max_tokens" yaml:"max_tokens"`
}

func (instance *ModelConfig) Default() {
	instance.Provider = strings.ToLower(strings.TrimSpace(instance.Provider))
	if instance.Provider == "" {
		instance.Provider = BackupProvider
	}
	if instance.Name == "" && (instance.Provider == "gemini" || instance.Provider == "google") {
		instance.Name = BackupGeminiModel
	}
	if instance.MaxTokens <= 0 {
		instance.MaxTokens = BackupMaxTokens
	}
}

type MCPConfig struct {
	Command          string   `mapstructure:"command" yaml:"command"`
	Args             []string `mapstructure:"args" yaml:"args"`
	WorkingDirectory string   `mapstructure:"working_directory" yaml:"working_directory"`
	LaunchMode       string   `mapstructure:"launch_mode" yaml:"launch_mode"`
	ClientName       string   `mapstructure:"client_name" yaml:"client_name"`
	ClientVersion    string   `mapstructure:"client_version" yaml:"client_version"`
	AutoConnect      bool     `mapstructure:"auto_connect" yaml:"auto_connect"`
}

func (instance *MCPConfig) Default() {
	if instance.Command == "" {
		instance.Command = BackupCommand
		if len(instance.Args) == 0 {
			instance.Args = append([]string(nil), BackupArgs...)
		}
	}
	if instance.LaunchMode == "" {
		instance.LaunchMode = BackupLaunchMode
	}
	if instance.ClientName == "" {
		instance.ClientName = BackupClientName
	}
	if instance.ClientVersion == "" {
		instance.ClientVersion = BackupClientVersion
	}
}

type AssistantConfig struct {
	// SystemPrompt overrides the built-in legal analyst prompt when set.
	SystemPrompt      string `mapstructure:"system_prompt" yaml:"system_prompt,omitempty"`
	MaxToolIterations int    `mapstructure:"max_tool_iterations" yaml:"max_tool_iterations"`
	UseMCPTools       bool   `mapstructure:"use_mcp_tools" yaml:"use_mcp_tools"`
}

func (instance *AssistantConfig) Default() {
	if instance.MaxToolIterations <= 0 {
		instance.MaxToolIterations = BackupMaxToolIterations
	}
}

type LogConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Development bool   `mapstructure:"development" yaml:"development"`
}

func (instance *LogConfig) Default() {
	if instance.Level == "" {
		instance.Level = BackupLogLevel
	}
}

// Default fills every unset field of every section.
func (c *Config) Default() {
	c.Server.Default()
	c.Model.Default()
	c.MCP.Default()
	c.Assistant.Default()
	c.Log.Default()
}

// Defaults returns a fully defaulted configuration.
func Defaults() *Config {
	cfg := &Config{Assistant: AssistantConfig{UseMCPTools: true}}
	cfg.Default()
	return cfg
}
