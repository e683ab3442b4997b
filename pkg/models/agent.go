package models

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/Protocol-Lattice/wakalat-agent/pkg/errs"
	"go.uber.org/zap"
	"google.golang.org/api/iterator"
)

// Agent drives a Backend through one request: the prompt, at most one batch
// of function calls, and the model's reply to their results.
type Agent struct {
	backend Backend
	logger  *zap.Logger
}

// AgentOption customises an Agent.
type AgentOption func(*Agent)

// WithAgentLogger sets the logger used for function-call events.
func WithAgentLogger(logger *zap.Logger) AgentOption {
	return func(a *Agent) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// NewAgent wraps backend. A nil backend yields an agent that is not
// configured.
func NewAgent(backend Backend, opts ...AgentOption) *Agent {
	a := &Agent{backend: backend, logger: zap.NewNop()}
	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}
	return a
}

// IsConfigured reports whether a model backend is available.
func (a *Agent) IsConfigured() bool {
	return a != nil && a.backend != nil
}

// Backend returns the wrapped backend, or nil.
func (a *Agent) Backend() Backend {
	if a == nil {
		return nil
	}
	return a.backend
}

func (a *Agent) startChat(ctx context.Context, opts GenerateOptions) (ChatSession, error) {
	if !a.IsConfigured() {
		return nil, errs.ErrNotConfigured
	}
	chat := ChatOptions{History: append([]Message(nil), opts.History...)}
	if len(opts.FunctionDeclarations) > 0 {
		chat.Declarations = append([]FunctionDeclaration(nil), opts.FunctionDeclarations...)
	}
	return a.backend.StartChat(ctx, chat)
}

// GenerateResponse sends prompt with the conversation history and the offered
// functions. When the model asks for function calls they are all executed
// through the handler and their results sent back in a single message; the
// model's answer to that message is final. Model errors are returned as-is.
func (a *Agent) GenerateResponse(ctx context.Context, prompt string, opts GenerateOptions) (Response, error) {
	session, err := a.startChat(ctx, opts)
	if err != nil {
		return Response{}, err
	}

	first, err := session.Send(ctx, Outgoing{Text: prompt})
	if err != nil {
		return Response{}, err
	}
	if len(first.FunctionCalls) == 0 || opts.FunctionCallHandler == nil {
		return Response{Text: first.Text, FunctionCalls: first.FunctionCalls}, nil
	}

	outcomes := a.invokeAll(ctx, first.FunctionCalls, opts.FunctionCallHandler)
	final, err := session.Send(ctx, Outgoing{FunctionResponses: responsesOf(outcomes)})
	if err != nil {
		return Response{}, err
	}
	return Response{Text: final.Text, FunctionCalls: first.FunctionCalls}, nil
}

// GenerateStreamingResponse behaves like GenerateResponse but delivers text as
// the backend produces it. Function calls are handled only once the first
// streamed reply has ended. The channel is closed after the chunk with Done
// set.
func (a *Agent) GenerateStreamingResponse(ctx context.Context, prompt string, opts GenerateOptions) (<-chan StreamChunk, error) {
	session, err := a.startChat(ctx, opts)
	if err != nil {
		return nil, err
	}

	out := make(chan StreamChunk)
	go func() {
		defer close(out)
		var full strings.Builder

		emit := func(chunk StreamChunk) bool {
			select {
			case out <- chunk:
				return true
			case <-ctx.Done():
				return false
			}
		}
		fail := func(err error) {
			emit(StreamChunk{Err: err, Done: true, FullText: full.String()})
		}

		calls, err := drain(session.SendStream(ctx, Outgoing{Text: prompt}), &full, emit)
		if err != nil {
			fail(err)
			return
		}

		if len(calls) > 0 && opts.FunctionCallHandler != nil {
			outcomes := a.invokeAll(ctx, calls, opts.FunctionCallHandler)
			if full.Len() > 0 {
				// Keep the pre-call text separate from the answer.
				if !emit(StreamChunk{Delta: "\n\n"}) {
					return
				}
				full.WriteString("\n\n")
			}
			if _, err := drain(session.SendStream(ctx, Outgoing{FunctionResponses: responsesOf(outcomes)}), &full, emit); err != nil {
				fail(err)
				return
			}
		}

		emit(StreamChunk{Done: true, FullText: full.String()})
	}()
	return out, nil
}

// drain forwards the text of every partial turn and collects the function
// calls seen before the stream ended.
func drain(it TurnIterator, full *strings.Builder, emit func(StreamChunk) bool) ([]FunctionCall, error) {
	var calls []FunctionCall
	for {
		turn, err := it.Next()
		if errors.Is(err, iterator.Done) {
			return calls, nil
		}
		if err != nil {
			return nil, err
		}
		calls = append(calls, turn.FunctionCalls...)
		if turn.Text == "" {
			continue
		}
		full.WriteString(turn.Text)
		if !emit(StreamChunk{Delta: turn.Text, FullText: full.String()}) {
			return nil, context.Canceled
		}
	}
}

// CallOutcome is the result of one function call: either Result or Err.
type CallOutcome struct {
	Call   FunctionCall
	Result any
	Err    error
}

// Response converts the outcome into the payload sent back to the model.
func (o CallOutcome) Response() FunctionResponse {
	if o.Err != nil {
		return FunctionResponse{Name: o.Call.Name, Response: map[string]any{"error": errs.Message(o.Err)}}
	}
	return FunctionResponse{Name: o.Call.Name, Response: asResponseMap(o.Result)}
}

// invokeAll runs the calls in order. A failing or panicking handler only
// affects its own outcome.
func (a *Agent) invokeAll(ctx context.Context, calls []FunctionCall, handler FunctionCallHandler) []CallOutcome {
	outcomes := make([]CallOutcome, 0, len(calls))
	for _, call := range calls {
		result, err := safeInvoke(ctx, handler, call)
		if err != nil {
			a.logger.Warn("function call failed", zap.String("function", call.Name), zap.Error(err))
		} else {
			a.logger.Debug("function call completed", zap.String("function", call.Name))
		}
		outcomes = append(outcomes, CallOutcome{Call: call, Result: result, Err: err})
	}
	return outcomes
}

func safeInvoke(ctx context.Context, handler FunctionCallHandler, call FunctionCall) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = fmt.Errorf("function %s panicked: %v", call.Name, r)
		}
	}()
	return handler(ctx, call)
}

func responsesOf(outcomes []CallOutcome) []FunctionResponse {
	out := make([]FunctionResponse, 0, len(outcomes))
	for _, o := range outcomes {
		out = append(out, o.Response())
	}
	return out
}

// asResponseMap shapes an arbitrary handler result as the object the model
// APIs expect. Objects pass through, anything else is wrapped under "result".
func asResponseMap(v any) map[string]any {
	switch m := v.(type) {
	case nil:
		return map[string]any{}
	case map[string]any:
		return m
	}

	data, err := json.Marshal(v)
	if err != nil {
		return map[string]any{"result": fmt.Sprint(v)}
	}
	var obj map[string]any
	if err := json.Unmarshal(data, &obj); err == nil && obj != nil {
		return obj
	}
	var decoded any
	if err := json.Unmarshal(data, &decoded); err != nil {
		return map[string]any{"result": string(data)}
	}
	return map[string]any{"result": decoded}
}
