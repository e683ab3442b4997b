package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const EnvPrefix = "WAKALAT"

// Load reads configuration. path names an explicit config file; when empty a
// wakalat.yaml in the working directory is used if present. A .env file in
// the working directory is loaded first and never overrides variables that
// are already set.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return load(viper.New(), path)
}

func load(v *viper.Viper, path string) (*Config, error) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("wakalat")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.Default()
	if cfg.Model.APIKey == "" {
		cfg.Model.APIKey = apiKeyFromEnv(cfg.Model.Provider)
	}
	return &cfg, nil
}

// setDefaults registers every key so that environment variables are seen by
// Unmarshal even when no config file mentions them.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", BackupAddr)
	v.SetDefault("server.cors_origin", BackupCORSOrigin)
	v.SetDefault("model.provider", BackupProvider)
	v.SetDefault("model.name", "")
	v.SetDefault("model.api_key", "")
	v.SetDefault("model.base_url", "")
	v.SetDefault("model.max_tokens", BackupMaxTokens)
	v.SetDefault("mcp.command", BackupCommand)
	v.SetDefault("mcp.args", BackupArgs)
	v.SetDefault("mcp.working_directory", "")
	v.SetDefault("mcp.launch_mode", BackupLaunchMode)
	v.SetDefault("mcp.client_name", BackupClientName)
	v.SetDefault("mcp.client_version", BackupClientVersion)
	v.SetDefault("mcp.auto_connect", false)
	v.SetDefault("assistant.system_prompt", "")
	v.SetDefault("assistant.max_tool_iterations", BackupMaxToolIterations)
	v.SetDefault("assistant.use_mcp_tools", true)
	v.SetDefault("log.level", BackupLogLevel)
	v.SetDefault("log.development", false)
}

// apiKeyFromEnv returns the provider's conventional key variable.
func apiKeyFromEnv(provider string) string {
	var names []string
	switch provider {
	case "openai":
		names = []string{"OPENAI_API_KEY"}
	case "anthropic", "claude":
		names = []string{"ANTHROPIC_API_KEY"}
	case "ollama":
		return ""
	default:
		names = []string{"GEMINI_API_KEY", "GOOGLE_API_KEY"}
	}
	for _, name := range names {
		if key := strings.TrimSpace(os.Getenv(name)); key != "" {
			return key
		}
	}
	return ""
}

// WriteSample writes the default configuration as YAML. Existing files are
// only replaced when overwrite is set.
func WriteSample(path string, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists", path)
		}
	}
	data, err := yaml.Marshal(Defaults())
	if err != nil {
		return fmt.Errorf("encode sample config: %w", err)
	}
	header := []byte("# wakalat-agent configuration. The model API key is read from\n# WAKALAT_MODEL_API_KEY or GEMINI_API_KEY and never stored here.\n")
	return os.WriteFile(path, append(header, data...), 0o644)
}
