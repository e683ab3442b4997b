package models

import (
	"context"
	"errors"
	"fmt"
	"strings"

	genai "github.com/google/generative-ai-go/genai"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// ---------------------------- Google Gemini ----------------------------------

type GeminiBackend struct {
	Client    *genai.Client
	Model     string
	MaxTokens int32
}

func NewGeminiBackend(ctx context.Context, apiKey, model string, maxTokens int) (*GeminiBackend, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("missing GEMINI_API_KEY or GOOGLE_API_KEY")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("gemini init: %w", err)
	}
	if strings.TrimSpace(model) == "" {
		model = DefaultGeminiModel
	}
	return &GeminiBackend{Client: client, Model: model, MaxTokens: int32(maxTokens)}, nil
}

func (g *GeminiBackend) Name() string { return "gemini" }

func (g *GeminiBackend) Close() error {
	if g.Client == nil {
		return nil
	}
	return g.Client.Close()
}

func (g *GeminiBackend) StartChat(_ context.Context, opts ChatOptions) (ChatSession, error) {
	model := g.Client.GenerativeModel(g.Model)
	if g.MaxTokens > 0 {
		model.SetMaxOutputTokens(g.MaxTokens)
	}
	if len(opts.Declarations) > 0 {
		decls := make([]*genai.FunctionDeclaration, 0, len(opts.Declarations))
		for _, d := range opts.Declarations {
			decls = append(decls, geminiDeclaration(d))
		}
		model.Tools = []*genai.Tool{{FunctionDeclarations: decls}}
	}

	cs := model.StartChat()
	for _, m := range opts.History {
		if strings.TrimSpace(m.Content) == "" {
			continue
		}
		cs.History = append(cs.History, &genai.Content{
			Role:  geminiRole(m.Role),
			Parts: []genai.Part{genai.Text(m.Content)},
		})
	}
	return &geminiSession{cs: cs}, nil
}

type geminiSession struct {
	cs *genai.ChatSession
}

func (s *geminiSession) Send(ctx context.Context, msg Outgoing) (Turn, error) {
	resp, err := s.cs.SendMessage(ctx, geminiParts(msg)...)
	if err != nil {
		return Turn{}, fmt.Errorf("gemini generate: %w", err)
	}
	return geminiTurn(resp), nil
}

func (s *geminiSession) SendStream(ctx context.Context, msg Outgoing) TurnIterator {
	return &geminiIterator{it: s.cs.SendMessageStream(ctx, geminiParts(msg)...)}
}

type geminiIterator struct {
	it *genai.GenerateContentResponseIterator
}

func (g *geminiIterator) Next() (Turn, error) {
	resp, err := g.it.Next()
	if errors.Is(err, iterator.Done) {
		return Turn{}, iterator.Done
	}
	if err != nil {
		return Turn{}, fmt.Errorf("gemini stream: %w", err)
	}
	return geminiTurn(resp), nil
}

func geminiRole(r Role) string {
	if r == RoleModel || r == "assistant" {
		return "model"
	}
	return "user"
}

func geminiParts(msg Outgoing) []genai.Part {
	parts := make([]genai.Part, 0, len(msg.FunctionResponses)+1)
	if msg.Text != "" {
		parts = append(parts, genai.Text(msg.Text))
	}
	for _, fr := range msg.FunctionResponses {
		parts = append(parts, genai.FunctionResponse{Name: fr.Name, Response: fr.Response})
	}
	return parts
}

func geminiTurn(resp *genai.GenerateContentResponse) Turn {
	var turn Turn
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return turn
	}
	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		switch p := part.(type) {
		case genai.Text:
			text.WriteString(string(p))
		case genai.FunctionCall:
			turn.FunctionCalls = append(turn.FunctionCalls, FunctionCall{Name: p.Name, Args: p.Args})
		case *genai.FunctionCall:
			if p != nil {
				turn.FunctionCalls = append(turn.FunctionCalls, FunctionCall{Name: p.Name, Args: p.Args})
			}
		}
	}
	turn.Text = text.String()
	return turn
}

func geminiDeclaration(d FunctionDeclaration) *genai.FunctionDeclaration {
	decl := &genai.FunctionDeclaration{Name: d.Name, Description: d.Description}
	if d.Parameters == nil {
		return decl
	}
	schema := &genai.Schema{
		Type:     geminiType(d.Parameters.Type),
		Required: append([]string(nil), d.Parameters.Required...),
	}
	if len(d.Parameters.Properties) > 0 {
		schema.Properties = make(map[string]*genai.Schema, len(d.Parameters.Properties))
		for name, p := range d.Parameters.Properties {
			prop := &genai.Schema{Type: geminiType(p.Type), Description: p.Description}
			if p.Items != nil {
				prop.Items = geminiSchema(p.Items)
			}
			schema.Properties[name] = prop
		}
	}
	decl.Parameters = schema
	return decl
}

// geminiSchema converts a raw JSON schema fragment, such as an array's item
// schema, recursively.
func geminiSchema(raw map[string]any) *genai.Schema {
	s := &genai.Schema{}
	if t, ok := raw["type"].(string); ok {
		s.Type = geminiType(t)
	}
	s.Description, _ = raw["description"].(string)
	s.Format, _ = raw["format"].(string)
	if enum, ok := raw["enum"].([]any); ok {
		for _, e := range enum {
			s.Enum = append(s.Enum, fmt.Sprint(e))
		}
	}
	if items, ok := raw["items"].(map[string]any); ok {
		s.Items = geminiSchema(items)
	}
	if props, ok := raw["properties"].(map[string]any); ok && len(props) > 0 {
		s.Properties = make(map[string]*genai.Schema, len(props))
		for name, v := range props {
			if m, ok := v.(map[string]any); ok {
				s.Properties[name] = geminiSchema(m)
			}
		}
	}
	if req, ok := raw["required"].([]any); ok {
		for _, r := range req {
			if name, ok := r.(string); ok {
				s.Required = append(s.Required, name)
			}
		}
	}
	return s
}

func geminiType(t string) genai.Type {
	switch strings.ToLower(strings.TrimSpace(t)) {
	case "string":
		return genai.TypeString
	case "number":
		return genai.TypeNumber
	case "integer":
		return genai.TypeInteger
	case "boolean":
		return genai.TypeBoolean
	case "array":
		return genai.TypeArray
	case "object":
		return genai.TypeObject
	default:
		return genai.TypeString
	}
}
