package models

import (
	"context"
)

// Property describes one function argument in the model's schema dialect.
type Property struct {
	Type        string         `json:"type"`
	Description string         `json:"description"`
	Items       map[string]any `json:"items,omitempty"`
}

// Parameters is the argument object schema of a function declaration.
type Parameters struct {
	Type       string              `json:"type"`
	Properties map[string]Property `json:"properties"`
	Required   []string            `json:"required,omitempty"`
}

// FunctionDeclaration is a callable tool as offered to the model.
type FunctionDeclaration struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Parameters  *Parameters `json:"parameters,omitempty"`
}

// FunctionCall is one invocation requested by the model.
type FunctionCall struct {
	Name string         `json:"name"`
	Args map[string]any `json:"args"`
}

// FunctionResponse carries the outcome of a FunctionCall back to the model.
type FunctionResponse struct {
	Name     string         `json:"name"`
	Response map[string]any `json:"response"`
}

type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Message is one prior turn of the conversation.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// FunctionCallHandler executes a model-issued call and returns its result.
type FunctionCallHandler func(ctx context.Context, call FunctionCall) (any, error)

// GenerateOptions configures a single generation request.
type GenerateOptions struct {
	FunctionDeclarations []FunctionDeclaration
	History              []Message
	FunctionCallHandler  FunctionCallHandler
}

// Response is the final outcome of a generation. FunctionCalls lists the calls
// the model issued in its first reply, if any.
type Response struct {
	Text          string
	FunctionCalls []FunctionCall
}

// StreamChunk is one fragment of a streaming generation. The last chunk has
// Done set and carries the accumulated FullText, or Err when generation failed.
type StreamChunk struct {
	Delta    string
	FullText string
	Done     bool
	Err      error
}

// ChatOptions opens a chat session. Declarations is nil when no tools are
// offered.
type ChatOptions struct {
	Declarations []FunctionDeclaration
	History      []Message
}

// Outgoing is one message sent to the model: either prompt text or the
// responses to the calls of the previous turn.
type Outgoing struct {
	Text              string
	FunctionResponses []FunctionResponse
}

// Turn is one model reply.
type Turn struct {
	Text          string
	FunctionCalls []FunctionCall
}

// TurnIterator yields partial replies of a streamed turn. Next returns
// iterator.Done once the turn is complete.
type TurnIterator interface {
	Next() (Turn, error)
}

// ChatSession is a stateful conversation with a hosted model.
type ChatSession interface {
	Send(ctx context.Context, msg Outgoing) (Turn, error)
	SendStream(ctx context.Context, msg Outgoing) TurnIterator
}

// Backend is a hosted conversational model provider.
type Backend interface {
	Name() string
	StartChat(ctx context.Context, opts ChatOptions) (ChatSession, error)
	Close() error
}
