package models

import (
	"context"
	"fmt"
	"strings"

	"github.com/Protocol-Lattice/wakalat-agent/pkg/errs"
)

const (
	DefaultGeminiModel    = "gemini-2.5-flash"
	DefaultAnthropicModel = "claude-sonnet-4-5"
)

// BackendConfig selects and configures a model provider.
type BackendConfig struct {
	Provider  string
	Model     string
	APIKey    string
	BaseURL   string
	MaxTokens int
}

// NewBackend builds the backend for cfg.Provider. Gemini is the default. A
// missing API key yields an error matching errs.ErrNotConfigured so callers
// can fall back to an unconfigured agent.
func NewBackend(ctx context.Context, cfg BackendConfig) (Backend, error) {
	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))

	switch provider {
	case "", "gemini", "google", "openai", "anthropic", "claude":
		if strings.TrimSpace(cfg.APIKey) == "" {
			return nil, errs.Wrap(fmt.Errorf("no API key for provider %q", providerName(provider)), errs.NotConfigured, "model API key not configured")
		}
	}

	switch provider {
	case "", "gemini", "google":
		return NewGeminiBackend(ctx, cfg.APIKey, cfg.Model, cfg.MaxTokens)
	case "openai":
		return NewOpenAIBackend(cfg.APIKey, cfg.Model, cfg.BaseURL, cfg.MaxTokens)
	case "ollama":
		return NewOllamaBackend(cfg.BaseURL, cfg.Model)
	case "anthropic", "claude":
		return NewAnthropicBackend(cfg.APIKey, cfg.Model, cfg.MaxTokens)
	case "dummy", "scripted":
		return NewScriptedBackend(), nil
	default:
		return nil, fmt.Errorf("unknown provider: %s", cfg.Provider)
	}
}

func providerName(p string) string {
	if p == "" {
		return "gemini"
	}
	return p
}
