package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"sync"
)

type handlerFunc func(params json.RawMessage) (any, *rpcError)

// inMemoryServer answers newline framed JSON-RPC requests written by a client
// transport on the other end of a pipe pair.
type inMemoryServer struct {
	reader   *bufio.Reader
	writer   io.WriteCloser
	handlers map[string]handlerFunc
	mu       sync.RWMutex

	notifications []string
	requests      []string
}

func newInMemoryPair() (*stdioTransport, *inMemoryServer) {
	clientRead, serverWrite := io.Pipe()
	serverRead, clientWrite := io.Pipe()

	transport := newStdioTransport(clientWrite, clientRead)
	server := &inMemoryServer{
		reader:   bufio.NewReader(serverRead),
		writer:   serverWrite,
		handlers: make(map[string]handlerFunc),
	}
	server.handle("initialize", func(json.RawMessage) (any, *rpcError) {
		return map[string]any{
			"protocolVersion": protocolVersion,
			"serverInfo":      map[string]string{"name": "mock-server", "version": "1.0.0"},
			"capabilities":    map[string]any{"tools": map[string]any{}},
		}, nil
	})
	return transport, server
}

func (s *inMemoryServer) handle(method string, fn handlerFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[method] = fn
}

// handleRaw answers method with a literal JSON result.
func (s *inMemoryServer) handleRaw(method, result string) {
	s.handle(method, func(json.RawMessage) (any, *rpcError) {
		return json.RawMessage(result), nil
	})
}

func (s *inMemoryServer) seen() (requests, notifications []string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.requests...), append([]string(nil), s.notifications...)
}

func (s *inMemoryServer) serve(ctx context.Context) {
	defer s.writer.Close()
	for {
		if ctx.Err() != nil {
			return
		}
		line, err := s.reader.ReadBytes('\n')
		if err != nil {
			return
		}

		var req struct {
			ID     json.RawMessage `json:"id"`
			Method string          `json:"method"`
			Params json.RawMessage `json:"params"`
		}
		if err := json.Unmarshal(line, &req); err != nil {
			s.write(map[string]any{"jsonrpc": "2.0", "id": nil, "error": rpcError{Code: -32700, Message: err.Error()}})
			continue
		}

		if len(req.ID) == 0 {
			s.mu.Lock()
			s.notifications = append(s.notifications, req.Method)
			s.mu.Unlock()
			continue
		}

		s.mu.Lock()
		s.requests = append(s.requests, req.Method)
		handler := s.handlers[req.Method]
		s.mu.Unlock()

		if handler == nil {
			s.write(map[string]any{"jsonrpc": "2.0", "id": req.ID, "error": rpcError{Code: -32601, Message: "method not found"}})
			continue
		}

		result, rpcErr := handler(req.Params)
		if rpcErr != nil {
			s.write(map[string]any{"jsonrpc": "2.0", "id": req.ID, "error": rpcErr})
			continue
		}
		s.write(map[string]any{"jsonrpc": "2.0", "id": req.ID, "result": result})
	}
}

func (s *inMemoryServer) write(v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		return
	}
	_, _ = s.writer.Write(append(payload, '\n'))
}
