package models

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	anthropicopt "github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicBackend talks to Anthropic's Messages API using tool_use and
// tool_result blocks for function calling.
type AnthropicBackend struct {
	Client    *anthropic.Client
	Model     string
	MaxTokens int
}

func NewAnthropicBackend(apiKey, model string, maxTokens int) (*AnthropicBackend, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("missing ANTHROPIC_API_KEY")
	}
	cl := anthropic.NewClient(
		anthropicopt.WithAPIKey(apiKey),
	)
	if strings.TrimSpace(model) == "" {
		model = DefaultAnthropicModel
	}
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	return &AnthropicBackend{Client: &cl, Model: model, MaxTokens: maxTokens}, nil
}

func (a *AnthropicBackend) Name() string { return "anthropic" }

func (a *AnthropicBackend) Close() error { return nil }

func (a *AnthropicBackend) StartChat(_ context.Context, opts ChatOptions) (ChatSession, error) {
	s := &anthropicSession{backend: a}
	for _, d := range opts.Declarations {
		schema := anthropic.ToolInputSchemaParam{Properties: map[string]any{}}
		if d.Parameters != nil {
			if len(d.Parameters.Properties) > 0 {
				schema.Properties = d.Parameters.Properties
			}
			schema.Required = d.Parameters.Required
		}
		s.tools = append(s.tools, anthropic.ToolUnionParam{OfTool: &anthropic.ToolParam{
			Name:        d.Name,
			Description: anthropic.String(d.Description),
			InputSchema: schema,
		}})
	}
	for _, m := range opts.History {
		if strings.TrimSpace(m.Content) == "" {
			continue
		}
		if m.Role == RoleModel || m.Role == "assistant" {
			s.messages = append(s.messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		} else {
			s.messages = append(s.messages, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		}
	}
	return s, nil
}

type anthropicSession struct {
	backend  *AnthropicBackend
	tools    []anthropic.ToolUnionParam
	messages []anthropic.MessageParam
	pending  []string
}

func (s *anthropicSession) Send(ctx context.Context, msg Outgoing) (Turn, error) {
	var blocks []anthropic.ContentBlockParamUnion
	for i, fr := range msg.FunctionResponses {
		payload, err := json.Marshal(fr.Response)
		if err != nil {
			return Turn{}, fmt.Errorf("anthropic: encode %s result: %w", fr.Name, err)
		}
		if i >= len(s.pending) {
			break
		}
		_, failed := fr.Response["error"]
		blocks = append(blocks, anthropic.NewToolResultBlock(s.pending[i], string(payload), failed))
	}
	if msg.Text != "" {
		blocks = append(blocks, anthropic.NewTextBlock(msg.Text))
	}
	s.pending = nil
	if len(blocks) > 0 {
		s.messages = append(s.messages, anthropic.NewUserMessage(blocks...))
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(s.backend.Model),
		MaxTokens: int64(s.backend.MaxTokens),
		Messages:  s.messages,
	}
	if len(s.tools) > 0 {
		params.Tools = s.tools
	}

	reply, err := s.backend.Client.Messages.New(ctx, params)
	if err != nil {
		return Turn{}, err
	}
	s.messages = append(s.messages, reply.ToParam())

	var (
		turn Turn
		text strings.Builder
	)
	for _, cb := range reply.Content {
		switch block := cb.AsAny().(type) {
		case anthropic.TextBlock:
			text.WriteString(block.Text)
		case anthropic.ToolUseBlock:
			args := map[string]any{}
			if len(block.Input) > 0 {
				if err := json.Unmarshal(block.Input, &args); err != nil {
					return Turn{}, fmt.Errorf("anthropic: decode %s input: %w", block.Name, err)
				}
			}
			s.pending = append(s.pending, block.ID)
			turn.FunctionCalls = append(turn.FunctionCalls, FunctionCall{Name: block.Name, Args: args})
		}
	}
	turn.Text = text.String()
	return turn, nil
}

func (s *anthropicSession) SendStream(ctx context.Context, msg Outgoing) TurnIterator {
	return singleTurn(s.Send(ctx, msg))
}
