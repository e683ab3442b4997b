package models

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/Protocol-Lattice/wakalat-agent/pkg/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var searchDecl = FunctionDeclaration{
	Name:        "search_precedents",
	Description: "Search case law",
	Parameters: &Parameters{
		Type:       "object",
		Properties: map[string]Property{"query": {Type: "string", Description: "terms"}},
		Required:   []string{"query"},
	},
}

func TestAgentNotConfigured(t *testing.T) {
	agent := NewAgent(nil)
	assert.False(t, agent.IsConfigured())

	_, err := agent.GenerateResponse(context.Background(), "hi", GenerateOptions{})
	assert.ErrorIs(t, err, errs.ErrNotConfigured)

	_, err = agent.GenerateStreamingResponse(context.Background(), "hi", GenerateOptions{})
	assert.ErrorIs(t, err, errs.ErrNotConfigured)
}

func TestGenerateResponseWithoutCalls(t *testing.T) {
	backend := NewScriptedBackend(Turn{Text: "Section 379 defines theft."})
	agent := NewAgent(backend)
	history := []Message{{Role: RoleUser, Content: "hello"}, {Role: RoleModel, Content: "hi"}}

	resp, err := agent.GenerateResponse(context.Background(), "what is theft?", GenerateOptions{History: history})
	require.NoError(t, err)
	assert.Equal(t, "Section 379 defines theft.", resp.Text)
	assert.Empty(t, resp.FunctionCalls)

	chats := backend.Chats()
	require.Len(t, chats, 1)
	assert.Nil(t, chats[0].Declarations, "tools must be omitted when none are offered")
	assert.Equal(t, history, chats[0].History)
	assert.Len(t, backend.Messages(), 1)
}

func TestGenerateResponseOffersDeclarations(t *testing.T) {
	backend := NewScriptedBackend(Turn{Text: "ok"})
	_, err := NewAgent(backend).GenerateResponse(context.Background(), "q", GenerateOptions{
		FunctionDeclarations: []FunctionDeclaration{searchDecl},
	})
	require.NoError(t, err)
	assert.Equal(t, []FunctionDeclaration{searchDecl}, backend.Chats()[0].Declarations)
}

func TestOneFailingCallDoesNotBlockOthers(t *testing.T) {
	calls := []FunctionCall{
		{Name: "a", Args: map[string]any{"n": 1.0}},
		{Name: "b", Args: map[string]any{"n": 2.0}},
		{Name: "c", Args: map[string]any{"n": 3.0}},
	}
	backend := NewScriptedBackend(Turn{FunctionCalls: calls}, Turn{Text: "combined answer"})

	var order []string
	handler := func(_ context.Context, call FunctionCall) (any, error) {
		order = append(order, call.Name)
		if call.Name == "b" {
			return nil, errors.New("lookup failed")
		}
		return map[string]any{"ok": call.Name}, nil
	}

	resp, err := NewAgent(backend).GenerateResponse(context.Background(), "q", GenerateOptions{
		FunctionDeclarations: []FunctionDeclaration{searchDecl},
		FunctionCallHandler:  handler,
	})
	require.NoError(t, err)
	assert.Equal(t, "combined answer", resp.Text)
	assert.Equal(t, calls, resp.FunctionCalls)
	assert.Equal(t, []string{"a", "b", "c"}, order)

	msgs := backend.Messages()
	require.Len(t, msgs, 2)
	followUp := msgs[1]
	assert.Empty(t, followUp.Text)
	require.Len(t, followUp.FunctionResponses, 3)
	assert.Equal(t, FunctionResponse{Name: "a", Response: map[string]any{"ok": "a"}}, followUp.FunctionResponses[0])
	assert.Equal(t, FunctionResponse{Name: "b", Response: map[string]any{"error": "lookup failed"}}, followUp.FunctionResponses[1])
	assert.Equal(t, FunctionResponse{Name: "c", Response: map[string]any{"ok": "c"}}, followUp.FunctionResponses[2])
}

func TestOnlyOneRoundOfCalls(t *testing.T) {
	again := Turn{Text: "still thinking", FunctionCalls: []FunctionCall{{Name: "a"}}}
	backend := NewScriptedBackend(Turn{FunctionCalls: []FunctionCall{{Name: "a"}}}, again)

	calls := 0
	resp, err := NewAgent(backend).GenerateResponse(context.Background(), "q", GenerateOptions{
		FunctionCallHandler: func(context.Context, FunctionCall) (any, error) {
			calls++
			return nil, nil
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, "still thinking", resp.Text)
	assert.Len(t, backend.Messages(), 2)
}

func TestHandlerPanicBecomesErrorPayload(t *testing.T) {
	backend := NewScriptedBackend(Turn{FunctionCalls: []FunctionCall{{Name: "a"}}}, Turn{Text: "done"})
	_, err := NewAgent(backend).GenerateResponse(context.Background(), "q", GenerateOptions{
		FunctionCallHandler: func(context.Context, FunctionCall) (any, error) { panic("kaboom") },
	})
	require.NoError(t, err)
	resp := backend.Messages()[1].FunctionResponses[0].Response
	assert.Contains(t, resp["error"], "kaboom")
}

func TestNilHandlerReturnsCalls(t *testing.T) {
	call := FunctionCall{Name: "search_precedents", Args: map[string]any{"query": "bail"}}
	backend := NewScriptedBackend(Turn{Text: "let me check", FunctionCalls: []FunctionCall{call}})

	resp, err := NewAgent(backend).GenerateResponse(context.Background(), "q", GenerateOptions{})
	require.NoError(t, err)
	assert.Equal(t, "let me check", resp.Text)
	assert.Equal(t, []FunctionCall{call}, resp.FunctionCalls)
	assert.Len(t, backend.Messages(), 1)
}

func TestModelErrorsPropagate(t *testing.T) {
	boom := errors.New("401 unauthorized")
	backend := NewScriptedBackend()
	backend.Err = boom

	_, err := NewAgent(backend).GenerateResponse(context.Background(), "q", GenerateOptions{})
	assert.Same(t, boom, err)
}

func TestAsResponseMap(t *testing.T) {
	type hit struct {
		Title string `json:"title"`
	}
	assert.Equal(t, map[string]any{}, asResponseMap(nil))
	assert.Equal(t, map[string]any{"k": "v"}, asResponseMap(map[string]any{"k": "v"}))
	assert.Equal(t, map[string]any{"title": "Maneka Gandhi"}, asResponseMap(hit{Title: "Maneka Gandhi"}))
	assert.Equal(t, map[string]any{"result": "plain"}, asResponseMap("plain"))
	assert.Equal(t, map[string]any{"result": []any{1.0, 2.0}}, asResponseMap([]int{1, 2}))
}

func TestCallOutcomeUsesPlainErrorMessage(t *testing.T) {
	o := CallOutcome{Call: FunctionCall{Name: "x"}, Err: errs.ErrNotConnected}
	assert.Equal(t, map[string]any{"error": "MCP server is not connected"}, o.Response().Response)
}

func collect(t *testing.T, ch <-chan StreamChunk) ([]string, StreamChunk) {
	t.Helper()
	var (
		deltas []string
		last   StreamChunk
	)
	for chunk := range ch {
		if chunk.Delta != "" {
			deltas = append(deltas, chunk.Delta)
		}
		last = chunk
	}
	return deltas, last
}

func TestStreamingWithoutCalls(t *testing.T) {
	backend := NewScriptedBackend(Turn{Text: "Bail is the rule"})
	ch, err := NewAgent(backend).GenerateStreamingResponse(context.Background(), "q", GenerateOptions{})
	require.NoError(t, err)

	deltas, last := collect(t, ch)
	assert.Equal(t, []string{"Bail ", "is ", "the ", "rule"}, deltas)
	assert.True(t, last.Done)
	assert.NoError(t, last.Err)
	assert.Equal(t, "Bail is the rule", last.FullText)
}

func TestStreamingHandlesCallsAfterSegment(t *testing.T) {
	backend := NewScriptedBackend(
		Turn{Text: "Searching", FunctionCalls: []FunctionCall{{Name: "search_precedents", Args: map[string]any{"query": "bail"}}}},
		Turn{Text: "Found two cases"},
	)

	var sawCall bool
	ch, err := NewAgent(backend).GenerateStreamingResponse(context.Background(), "q", GenerateOptions{
		FunctionCallHandler: func(context.Context, FunctionCall) (any, error) {
			sawCall = true
			return map[string]any{"hits": 2}, nil
		},
	})
	require.NoError(t, err)

	_, last := collect(t, ch)
	assert.True(t, sawCall)
	assert.Equal(t, "Searching\n\nFound two cases", last.FullText)

	msgs := backend.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, map[string]any{"hits": 2}, msgs[1].FunctionResponses[0].Response)
}

func TestStreamingReportsModelError(t *testing.T) {
	backend := NewScriptedBackend()
	backend.Err = errors.New("quota exceeded")

	ch, err := NewAgent(backend).GenerateStreamingResponse(context.Background(), "q", GenerateOptions{})
	require.NoError(t, err)
	_, last := collect(t, ch)
	assert.True(t, last.Done)
	assert.EqualError(t, last.Err, "quota exceeded")
}

func TestScriptedBackendEchoes(t *testing.T) {
	backend := NewScriptedBackend()
	resp, err := NewAgent(backend).GenerateResponse(context.Background(), "first\n\nsecond\n  ", GenerateOptions{})
	require.NoError(t, err)
	assert.Equal(t, "Dummy response: second", resp.Text)

	resp, err = NewAgent(backend).GenerateResponse(context.Background(), "\n\n", GenerateOptions{})
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(resp.Text, "<empty prompt>"))
}
