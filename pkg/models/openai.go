package models

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
)

type OpenAIBackend struct {
	Client    *openai.Client
	Model     string
	MaxTokens int
}

func NewOpenAIBackend(apiKey, model, baseURL string, maxTokens int) (*OpenAIBackend, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("missing OPENAI_API_KEY")
	}
	cfg := openai.DefaultConfig(apiKey)
	if strings.TrimSpace(baseURL) != "" {
		cfg.BaseURL = baseURL
	}
	if strings.TrimSpace(model) == "" {
		model = openai.GPT4oMini
	}
	return &OpenAIBackend{Client: openai.NewClientWithConfig(cfg), Model: model, MaxTokens: maxTokens}, nil
}

func (o *OpenAIBackend) Name() string { return "openai" }

func (o *OpenAIBackend) Close() error { return nil }

func (o *OpenAIBackend) StartChat(_ context.Context, opts ChatOptions) (ChatSession, error) {
	s := &openaiSession{backend: o}
	for _, d := range opts.Declarations {
		var params any = map[string]any{"type": "object", "properties": map[string]any{}}
		if d.Parameters != nil {
			params = d.Parameters
		}
		s.tools = append(s.tools, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        d.Name,
				Description: d.Description,
				Parameters:  params,
			},
		})
	}
	for _, m := range opts.History {
		role := openai.ChatMessageRoleUser
		if m.Role == RoleModel || m.Role == "assistant" {
			role = openai.ChatMessageRoleAssistant
		}
		s.messages = append(s.messages, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}
	return s, nil
}

type openaiSession struct {
	backend  *OpenAIBackend
	tools    []openai.Tool
	messages []openai.ChatCompletionMessage
	// pending holds the ids of the tool calls of the last reply, in order.
	pending []string
}

func (s *openaiSession) Send(ctx context.Context, msg Outgoing) (Turn, error) {
	if msg.Text != "" {
		s.messages = append(s.messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleUser,
			Content: msg.Text,
		})
	}
	for i, fr := range msg.FunctionResponses {
		payload, err := json.Marshal(fr.Response)
		if err != nil {
			return Turn{}, fmt.Errorf("openai: encode %s result: %w", fr.Name, err)
		}
		id := ""
		if i < len(s.pending) {
			id = s.pending[i]
		}
		s.messages = append(s.messages, openai.ChatCompletionMessage{
			Role:       openai.ChatMessageRoleTool,
			Content:    string(payload),
			Name:       fr.Name,
			ToolCallID: id,
		})
	}
	s.pending = nil

	req := openai.ChatCompletionRequest{
		Model:     s.backend.Model,
		Messages:  s.messages,
		MaxTokens: s.backend.MaxTokens,
	}
	if len(s.tools) > 0 {
		req.Tools = s.tools
	}

	resp, err := s.backend.Client.CreateChatCompletion(ctx, req)
	if err != nil {
		return Turn{}, err
	}
	if len(resp.Choices) == 0 {
		return Turn{}, errors.New("no response from OpenAI")
	}

	reply := resp.Choices[0].Message
	s.messages = append(s.messages, reply)

	turn := Turn{Text: reply.Content}
	for _, tc := range reply.ToolCalls {
		args := map[string]any{}
		if strings.TrimSpace(tc.Function.Arguments) != "" {
			if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
				return Turn{}, fmt.Errorf("openai: decode %s arguments: %w", tc.Function.Name, err)
			}
		}
		s.pending = append(s.pending, tc.ID)
		turn.FunctionCalls = append(turn.FunctionCalls, FunctionCall{Name: tc.Function.Name, Args: args})
	}
	return turn, nil
}

func (s *openaiSession) SendStream(ctx context.Context, msg Outgoing) TurnIterator {
	return singleTurn(s.Send(ctx, msg))
}
