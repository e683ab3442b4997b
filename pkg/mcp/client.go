// Package mcp implements the client side of the Model Context Protocol over a
// newline framed stdio transport, together with the process-wide connection
// that the assistant uses to reach its tool-providing server.
package mcp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
)

// protocolVersion is the revision announced during initialize. Servers answer
// with the version they settle on.
const protocolVersion = "2024-11-05"

// ClientInfo describes the calling application when establishing an MCP
// session.
type ClientInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// ServerInfo represents the metadata returned by the MCP server during the
// initialise handshake.
type ServerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// Options control how the MCP client initialises the remote server.
type Options struct {
	ClientInfo      ClientInfo
	Capabilities    map[string]any
	ProtocolVersion string
}

// Transport is the underlying message transport used by the MCP client. Each
// payload is one complete JSON-RPC message.
type Transport interface {
	Send(ctx context.Context, payload []byte) error
	Receive(ctx context.Context) ([]byte, error)
	Close() error
}

// Client speaks JSON-RPC 2.0 to a single MCP server. Requests are serialised:
// one request is written and its response read before the next request starts.
type Client struct {
	transport    Transport
	info         ClientInfo
	capabilities map[string]any
	protoVersion string

	idCounter atomic.Uint64
	mu        sync.Mutex
	closed    atomic.Bool

	serverInfo ServerInfo
}

// NewClient creates an MCP client using the provided transport. The function
// immediately performs the initialise handshake and will close the transport if
// the handshake fails.
func NewClient(ctx context.Context, transport Transport, opts Options) (*Client, error) {
	if transport == nil {
		return nil, errors.New("mcp: transport is nil")
	}

	info := opts.ClientInfo
	if strings.TrimSpace(info.Name) == "" {
		info.Name = "wakalat-agent"
	}
	if strings.TrimSpace(info.Version) == "" {
		info.Version = "dev"
	}

	caps := opts.Capabilities
	if caps == nil {
		caps = map[string]any{"tools": map[string]any{}}
	}

	proto := opts.ProtocolVersion
	if strings.TrimSpace(proto) == "" {
		proto = protocolVersion
	}

	client := &Client{
		transport:    transport,
		info:         info,
		capabilities: caps,
		protoVersion: proto,
	}

	if err := client.initialize(ctx); err != nil {
		transport.Close()
		return nil, err
	}

	return client, nil
}

// Close releases the underlying transport. Close is idempotent.
func (c *Client) Close() error {
	if c == nil {
		return nil
	}
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	return c.transport.Close()
}

// Server returns metadata captured during the initialise handshake.
func (c *Client) Server() ServerInfo {
	if c == nil {
		return ServerInfo{}
	}
	return c.serverInfo
}

// ListToolsRaw issues tools/list and returns the tool entries exactly as the
// server shaped them, following pagination cursors. Each page is normalised
// with NormalizeToolList, so servers that do not follow the usual
// {"tools": [...]} envelope are still understood.
func (c *Client) ListToolsRaw(ctx context.Context) ([]any, error) {
	if err := c.ensureOpen(); err != nil {
		return nil, err
	}

	var (
		cursor string
		tools  = []any{}
		seen   = map[string]struct{}{}
	)

	for {
		params := map[string]any{}
		if cursor != "" {
			params["cursor"] = cursor
		}

		var page json.RawMessage
		if err := c.call(ctx, "tools/list", params, &page); err != nil {
			return nil, err
		}

		tools = append(tools, NormalizeToolList(page)...)
		next := nextCursor(page)
		if next == "" {
			break
		}
		if _, repeated := seen[next]; repeated {
			break
		}
		seen[next] = struct{}{}
		cursor = next
	}

	return tools, nil
}

// ListTools returns the decoded tool descriptors advertised by the server.
func (c *Client) ListTools(ctx context.Context) ([]ToolDescriptor, error) {
	raw, err := c.ListToolsRaw(ctx)
	if err != nil {
		return nil, err
	}
	return DecodeToolDescriptors(raw), nil
}

// CallTool invokes a named tool and returns the decoded result payload. A
// result flagged with isError is returned as-is: it is a well formed answer
// from the server and callers decide how to surface it. JSON-RPC level
// failures are returned as errors.
func (c *Client) CallTool(ctx context.Context, name string, arguments map[string]any) (any, error) {
	if err := c.ensureOpen(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(name) == "" {
		return nil, errors.New("mcp: tool name is required")
	}

	if arguments == nil {
		arguments = map[string]any{}
	}
	params := map[string]any{
		"name":      name,
		"arguments": arguments,
	}

	var raw json.RawMessage
	if err := c.call(ctx, "tools/call", params, &raw); err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return map[string]any{}, nil
	}

	var result any
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("mcp: decode tool result: %w", err)
	}
	return result, nil
}

// Ping checks that the server still answers requests.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.ensureOpen(); err != nil {
		return err
	}
	return c.call(ctx, "ping", map[string]any{}, nil)
}

// ensureOpen validates that the client has not been closed.
func (c *Client) ensureOpen() error {
	if c == nil {
		return errors.New("mcp: client is nil")
	}
	if c.closed.Load() {
		return errors.New("mcp: client has been closed")
	}
	return nil
}

func (c *Client) initialize(ctx context.Context) error {
	params := map[string]any{
		"protocolVersion": c.protoVersion,
		"clientInfo":      c.info,
		"capabilities":    c.capabilities,
	}

	var resp struct {
		ProtocolVersion string     `json:"protocolVersion"`
		ServerInfo      ServerInfo `json:"serverInfo"`
	}

	if err := c.call(ctx, "initialize", params, &resp); err != nil {
		return fmt.Errorf("mcp: initialize: %w", err)
	}
	c.serverInfo = resp.ServerInfo

	return c.notify(ctx, "notifications/initialized", nil)
}

type request struct {
	JSONRPC string `json:"jsonrpc"`
	ID      string `json:"id,omitempty"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

type responseEnvelope struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type rpcError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// RPCError is returned when the server answers a request with a JSON-RPC
// error object.
type RPCError struct {
	Method  string
	Code    int
	Message string
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("mcp: %s failed (%d): %s", e.Method, e.Code, e.Message)
}

func (c *Client) notify(ctx context.Context, method string, params any) error {
	payload, err := json.Marshal(request{JSONRPC: "2.0", Method: method, Params: params})
	if err != nil {
		return fmt.Errorf("mcp: marshal notification: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.transport.Send(ctx, payload)
}

func (c *Client) call(ctx context.Context, method string, params any, out any) error {
	if ctx == nil {
		ctx = context.Background()
	}

	id := strconv.FormatUint(c.idCounter.Add(1), 10)
	payload, err := json.Marshal(request{JSONRPC: "2.0", ID: id, Method: method, Params: params})
	if err != nil {
		return fmt.Errorf("mcp: marshal request: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	if c.closed.Load() {
		return errors.New("mcp: client has been closed")
	}

	if err := c.transport.Send(ctx, payload); err != nil {
		return err
	}

	for {
		msg, err := c.transport.Receive(ctx)
		if err != nil {
			return err
		}

		var env responseEnvelope
		if err := json.Unmarshal(msg, &env); err != nil {
			return fmt.Errorf("mcp: decode response: %w", err)
		}

		if env.Method != "" {
			// Server initiated traffic. Answer pings so the server does not
			// consider us dead, ignore everything else.
			if env.Method == "ping" && len(env.ID) > 0 {
				c.replyEmpty(ctx, env.ID)
			}
			continue
		}

		if rawID(env.ID) != id {
			continue
		}

		if env.Error != nil {
			return &RPCError{Method: method, Code: env.Error.Code, Message: env.Error.Message}
		}

		if out != nil && len(env.Result) > 0 {
			if err := json.Unmarshal(env.Result, out); err != nil {
				return fmt.Errorf("mcp: decode result: %w", err)
			}
		}
		return nil
	}
}

func (c *Client) replyEmpty(ctx context.Context, id json.RawMessage) {
	reply := struct {
		JSONRPC string          `json:"jsonrpc"`
		ID      json.RawMessage `json:"id"`
		Result  struct{}        `json:"result"`
	}{JSONRPC: "2.0", ID: id}
	payload, err := json.Marshal(reply)
	if err != nil {
		return
	}
	_ = c.transport.Send(ctx, payload)
}

// rawID renders a JSON-RPC id as a plain string so numeric and string ids
// compare equal.
func rawID(id json.RawMessage) string {
	trimmed := bytes.TrimSpace(id)
	var s string
	if err := json.Unmarshal(trimmed, &s); err == nil {
		return s
	}
	return string(trimmed)
}

// ----------------------------------------------------------------------------
// Transport implementations

// stdioTransport frames each message as a single line of JSON terminated by a
// newline, which is how MCP servers speak over stdin/stdout. A single reader
// goroutine owns stdout so Receive can give up when its context ends.
type stdioTransport struct {
	reader       *bufio.Reader
	writer       io.Writer
	stdinCloser  io.Closer
	stdoutCloser io.Closer
	writeMu      sync.Mutex

	readOnce sync.Once
	lines    chan []byte
	readErr  error
	done     chan struct{}

	closeOnce sync.Once
	closeErr  error
}

func newStdioTransport(stdin io.WriteCloser, stdout io.ReadCloser) *stdioTransport {
	return &stdioTransport{
		reader:       bufio.NewReader(stdout),
		writer:       stdin,
		stdinCloser:  stdin,
		stdoutCloser: stdout,
		lines:        make(chan []byte),
		done:         make(chan struct{}),
	}
}

// NewStreamTransport speaks newline-delimited JSON over an arbitrary stream
// pair, such as the pipes of an in-process server.
func NewStreamTransport(w io.WriteCloser, r io.ReadCloser) Transport {
	return newStdioTransport(w, r)
}

func (t *stdioTransport) Send(ctx context.Context, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if bytes.ContainsAny(payload, "\r\n") {
		return errors.New("mcp: message contains a newline")
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	buf := make([]byte, 0, len(payload)+1)
	buf = append(buf, payload...)
	buf = append(buf, '\n')
	_, err := t.writer.Write(buf)
	return err
}

// Receive returns the next non-empty line. It returns ctx.Err() as soon as
// ctx ends; a line that arrives later is kept for the next call.
func (t *stdioTransport) Receive(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	t.readOnce.Do(func() { go t.readLoop() })

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case line, ok := <-t.lines:
		if !ok {
			// readErr is written before lines is closed.
			return nil, t.readErr
		}
		return line, nil
	}
}

func (t *stdioTransport) readLoop() {
	defer close(t.lines)
	for {
		line, err := t.reader.ReadBytes('\n')
		if trimmed := bytes.TrimSpace(line); len(trimmed) > 0 {
			select {
			case t.lines <- trimmed:
			case <-t.done:
				t.readErr = io.ErrClosedPipe
				return
			}
		}
		if err != nil {
			t.readErr = err
			return
		}
	}
}

func (t *stdioTransport) Close() error {
	t.closeOnce.Do(func() {
		close(t.done)
		if t.stdinCloser != nil {
			if e := t.stdinCloser.Close(); e != nil {
				t.closeErr = e
			}
		}
		if t.stdoutCloser != nil {
			if e := t.stdoutCloser.Close(); e != nil && t.closeErr == nil {
				t.closeErr = e
			}
		}
	})
	return t.closeErr
}
