package models

import (
	"context"
	"testing"

	"github.com/Protocol-Lattice/wakalat-agent/pkg/errs"
	genai "github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBackendErrorsOnUnknownProvider(t *testing.T) {
	_, err := NewBackend(context.Background(), BackendConfig{Provider: "unknown"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown provider")
}

func TestNewBackendWithoutKeyIsNotConfigured(t *testing.T) {
	for _, provider := range []string{"", "gemini", "openai", "anthropic"} {
		_, err := NewBackend(context.Background(), BackendConfig{Provider: provider})
		assert.ErrorIs(t, err, errs.ErrNotConfigured, provider)
	}
}

func TestNewBackendScripted(t *testing.T) {
	b, err := NewBackend(context.Background(), BackendConfig{Provider: "dummy"})
	require.NoError(t, err)
	assert.Equal(t, "scripted", b.Name())
}

func TestNewBackendOllamaNeedsModel(t *testing.T) {
	_, err := NewBackend(context.Background(), BackendConfig{Provider: "ollama"})
	require.Error(t, err)

	b, err := NewBackend(context.Background(), BackendConfig{Provider: "ollama", Model: "llama3.1"})
	require.NoError(t, err)
	assert.Equal(t, "ollama", b.Name())
}

func TestGeminiDeclaration(t *testing.T) {
	decl := geminiDeclaration(FunctionDeclaration{
		Name:        "search_precedents",
		Description: "Search case law",
		Parameters: &Parameters{
			Type: "object",
			Properties: map[string]Property{
				"query":  {Type: "string", Description: "terms"},
				"courts": {Type: "array", Items: map[string]any{"type": "string", "enum": []any{"SC", "HC"}}},
				"year":   {Type: "integer"},
			},
			Required: []string{"query"},
		},
	})

	assert.Equal(t, "search_precedents", decl.Name)
	require.NotNil(t, decl.Parameters)
	assert.Equal(t, genai.TypeObject, decl.Parameters.Type)
	assert.Equal(t, []string{"query"}, decl.Parameters.Required)
	assert.Equal(t, genai.TypeString, decl.Parameters.Properties["query"].Type)
	assert.Equal(t, "terms", decl.Parameters.Properties["query"].Description)
	assert.Equal(t, genai.TypeInteger, decl.Parameters.Properties["year"].Type)

	courts := decl.Parameters.Properties["courts"]
	assert.Equal(t, genai.TypeArray, courts.Type)
	require.NotNil(t, courts.Items)
	assert.Equal(t, genai.TypeString, courts.Items.Type)
	assert.Equal(t, []string{"SC", "HC"}, courts.Items.Enum)
}

func TestGeminiTurn(t *testing.T) {
	resp := &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
		Content: &genai.Content{Parts: []genai.Part{
			genai.Text("Looking up "),
			genai.FunctionCall{Name: "search_precedents", Args: map[string]any{"query": "bail"}},
			genai.Text("now"),
		}},
	}}}

	turn := geminiTurn(resp)
	assert.Equal(t, "Looking up now", turn.Text)
	assert.Equal(t, []FunctionCall{{Name: "search_precedents", Args: map[string]any{"query": "bail"}}}, turn.FunctionCalls)
	assert.Equal(t, Turn{}, geminiTurn(&genai.GenerateContentResponse{}))
}

func TestGeminiParts(t *testing.T) {
	parts := geminiParts(Outgoing{FunctionResponses: []FunctionResponse{{Name: "a", Response: map[string]any{"ok": true}}}})
	require.Len(t, parts, 1)
	assert.Equal(t, genai.FunctionResponse{Name: "a", Response: map[string]any{"ok": true}}, parts[0])
	assert.Equal(t, []genai.Part{genai.Text("hi")}, geminiParts(Outgoing{Text: "hi"}))
}

func TestOllamaTools(t *testing.T) {
	tools, err := ollamaTools([]FunctionDeclaration{searchDecl})
	require.NoError(t, err)
	require.Len(t, tools, 1)
	assert.Equal(t, "function", tools[0].Type)
	assert.Equal(t, "search_precedents", tools[0].Function.Name)
	assert.Equal(t, []string{"query"}, tools[0].Function.Parameters.Required)
}

func TestOllamaArgs(t *testing.T) {
	args, err := ollamaArgs(map[string]any{"query": "bail", "limit": 3})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"query": "bail", "limit": 3.0}, args)
}
