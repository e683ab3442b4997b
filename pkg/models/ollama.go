package models

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	ollama "github.com/ollama/ollama/api"
)

// ---------------------------- Ollama -----------------------------------------

type OllamaBackend struct {
	Client *ollama.Client
	Model  string
}

func NewOllamaBackend(host, model string) (*OllamaBackend, error) {
	if strings.TrimSpace(host) == "" {
		host = "http://localhost:11434"
	}
	u, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("invalid ollama host %q: %w", host, err)
	}
	if strings.TrimSpace(model) == "" {
		return nil, fmt.Errorf("ollama: model name is required")
	}

	httpClient := &http.Client{
		Timeout: 120 * time.Second,
	}
	return &OllamaBackend{Client: ollama.NewClient(u, httpClient), Model: model}, nil
}

func (o *OllamaBackend) Name() string { return "ollama" }

func (o *OllamaBackend) Close() error { return nil }

func (o *OllamaBackend) StartChat(_ context.Context, opts ChatOptions) (ChatSession, error) {
	s := &ollamaSession{backend: o}
	if len(opts.Declarations) > 0 {
		tools, err := ollamaTools(opts.Declarations)
		if err != nil {
			return nil, err
		}
		s.tools = tools
	}
	for _, m := range opts.History {
		role := "user"
		if m.Role == RoleModel || m.Role == "assistant" {
			role = "assistant"
		}
		s.messages = append(s.messages, ollama.Message{Role: role, Content: m.Content})
	}
	return s, nil
}

// ollamaTools goes through the wire format so the declaration maps onto
// whatever shape the client library uses for tool schemas.
func ollamaTools(decls []FunctionDeclaration) (ollama.Tools, error) {
	type wireTool struct {
		Type     string              `json:"type"`
		Function FunctionDeclaration `json:"function"`
	}
	wire := make([]wireTool, 0, len(decls))
	for _, d := range decls {
		wire = append(wire, wireTool{Type: "function", Function: d})
	}
	data, err := json.Marshal(wire)
	if err != nil {
		return nil, fmt.Errorf("ollama: encode tools: %w", err)
	}
	var tools ollama.Tools
	if err := json.Unmarshal(data, &tools); err != nil {
		return nil, fmt.Errorf("ollama: decode tools: %w", err)
	}
	return tools, nil
}

type ollamaSession struct {
	backend  *OllamaBackend
	tools    ollama.Tools
	messages []ollama.Message
}

func (s *ollamaSession) Send(ctx context.Context, msg Outgoing) (Turn, error) {
	if msg.Text != "" {
		s.messages = append(s.messages, ollama.Message{Role: "user", Content: msg.Text})
	}
	for _, fr := range msg.FunctionResponses {
		payload, err := json.Marshal(map[string]any{"name": fr.Name, "response": fr.Response})
		if err != nil {
			return Turn{}, fmt.Errorf("ollama: encode %s result: %w", fr.Name, err)
		}
		s.messages = append(s.messages, ollama.Message{Role: "tool", Content: string(payload)})
	}

	stream := false
	req := &ollama.ChatRequest{
		Model:    s.backend.Model,
		Messages: s.messages,
		Stream:   &stream,
	}
	if len(s.tools) > 0 {
		req.Tools = s.tools
	}

	var (
		text  strings.Builder
		reply ollama.Message
	)
	if err := s.backend.Client.Chat(ctx, req, func(cr ollama.ChatResponse) error {
		text.WriteString(cr.Message.Content)
		reply.Role = cr.Message.Role
		reply.ToolCalls = append(reply.ToolCalls, cr.Message.ToolCalls...)
		return nil
	}); err != nil {
		return Turn{}, err
	}
	reply.Content = text.String()
	if reply.Role == "" {
		reply.Role = "assistant"
	}
	s.messages = append(s.messages, reply)

	turn := Turn{Text: reply.Content}
	for _, tc := range reply.ToolCalls {
		args, err := ollamaArgs(tc.Function.Arguments)
		if err != nil {
			return Turn{}, fmt.Errorf("ollama: decode %s arguments: %w", tc.Function.Name, err)
		}
		turn.FunctionCalls = append(turn.FunctionCalls, FunctionCall{Name: tc.Function.Name, Args: args})
	}
	return turn, nil
}

func (s *ollamaSession) SendStream(ctx context.Context, msg Outgoing) TurnIterator {
	return singleTurn(s.Send(ctx, msg))
}

func ollamaArgs(v any) (map[string]any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	args := map[string]any{}
	if err := json.Unmarshal(data, &args); err != nil {
		return nil, err
	}
	return args, nil
}
