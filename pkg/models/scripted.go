package models

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"google.golang.org/api/iterator"
)

// ScriptedBackend replays canned turns without any network access. Once the
// script is exhausted it answers like an echo model, repeating the last
// non-empty line of the prompt after Prefix. It records every exchange so
// callers can inspect what would have been sent to a real model.
type ScriptedBackend struct {
	Prefix string
	// Err, when set, is returned by every Send.
	Err error

	mu       sync.Mutex
	turns    []Turn
	chats    []ChatOptions
	messages []Outgoing
}

// NewScriptedBackend returns a backend that replies with turns in order.
func NewScriptedBackend(turns ...Turn) *ScriptedBackend {
	return &ScriptedBackend{Prefix: "Dummy response:", turns: append([]Turn(nil), turns...)}
}

func (s *ScriptedBackend) Name() string { return "scripted" }

func (s *ScriptedBackend) Close() error { return nil }

func (s *ScriptedBackend) StartChat(_ context.Context, opts ChatOptions) (ChatSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chats = append(s.chats, opts)
	return &scriptedSession{backend: s}, nil
}

// Chats returns the options of every chat started so far.
func (s *ScriptedBackend) Chats() []ChatOptions {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ChatOptions(nil), s.chats...)
}

// Messages returns every message sent so far, across sessions.
func (s *ScriptedBackend) Messages() []Outgoing {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Outgoing(nil), s.messages...)
}

func (s *ScriptedBackend) next(msg Outgoing) (Turn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, msg)
	if s.Err != nil {
		return Turn{}, s.Err
	}
	if len(s.turns) > 0 {
		turn := s.turns[0]
		s.turns = s.turns[1:]
		return turn, nil
	}
	return Turn{Text: s.echo(msg)}, nil
}

func (s *ScriptedBackend) echo(msg Outgoing) string {
	if len(msg.FunctionResponses) > 0 {
		names := make([]string, 0, len(msg.FunctionResponses))
		for _, fr := range msg.FunctionResponses {
			names = append(names, fr.Name)
		}
		return fmt.Sprintf("%s received results from %s", s.Prefix, strings.Join(names, ", "))
	}

	lines := strings.Split(msg.Text, "\n")
	var last string
	for i := len(lines) - 1; i >= 0; i-- {
		if candidate := strings.TrimSpace(lines[i]); candidate != "" {
			last = candidate
			break
		}
	}
	if last == "" {
		last = "<empty prompt>"
	}
	return fmt.Sprintf("%s %s", s.Prefix, last)
}

type scriptedSession struct {
	backend *ScriptedBackend
}

func (s *scriptedSession) Send(_ context.Context, msg Outgoing) (Turn, error) {
	return s.backend.next(msg)
}

// SendStream splits the scripted text on spaces so consumers see several
// fragments.
func (s *scriptedSession) SendStream(_ context.Context, msg Outgoing) TurnIterator {
	turn, err := s.backend.next(msg)
	if err != nil {
		return &sliceIterator{err: err}
	}
	var parts []Turn
	words := strings.SplitAfter(turn.Text, " ")
	for _, w := range words {
		if w != "" {
			parts = append(parts, Turn{Text: w})
		}
	}
	if len(turn.FunctionCalls) > 0 {
		parts = append(parts, Turn{FunctionCalls: turn.FunctionCalls})
	}
	return &sliceIterator{turns: parts}
}

// sliceIterator yields a fixed list of turns, or a single error.
type sliceIterator struct {
	turns []Turn
	err   error
}

func (it *sliceIterator) Next() (Turn, error) {
	if it.err != nil {
		err := it.err
		it.err = iterator.Done
		return Turn{}, err
	}
	if len(it.turns) == 0 {
		return Turn{}, iterator.Done
	}
	turn := it.turns[0]
	it.turns = it.turns[1:]
	return turn, nil
}

// singleTurn adapts a blocking Send into a TurnIterator for backends without
// native streaming.
func singleTurn(turn Turn, err error) TurnIterator {
	if err != nil {
		return &sliceIterator{err: err}
	}
	return &sliceIterator{turns: []Turn{turn}}
}

var _ Backend = (*ScriptedBackend)(nil)
