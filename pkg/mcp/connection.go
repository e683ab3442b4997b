package mcp

import (
	"context"
	"runtime"
	"strings"
	"sync"

	"github.com/Protocol-Lattice/wakalat-agent/pkg/errs"
	"go.uber.org/zap"
)

// Status is a snapshot of the connection state. Connected and Connecting are
// never both true. Error is only set after a failed connect attempt.
type Status struct {
	Connected  bool        `json:"connected"`
	Connecting bool        `json:"connecting,omitempty"`
	Error      string      `json:"error,omitempty"`
	ServerInfo *ServerInfo `json:"serverInfo,omitempty"`
}

func (s Status) clone() Status {
	out := s
	if s.ServerInfo != nil {
		info := *s.ServerInfo
		out.ServerInfo = &info
	}
	return out
}

// Dialer launches a server and performs the handshake.
type Dialer func(ctx context.Context, cfg ConnectionConfig) (*Session, error)

// ConnectionOption customises a Connection.
type ConnectionOption func(*Connection)

// WithDialer replaces the default stdio process launcher.
func WithDialer(d Dialer) ConnectionOption {
	return func(c *Connection) {
		if d != nil {
			c.dial = d
		}
	}
}

// WithLogger sets the logger used for lifecycle events.
func WithLogger(logger *zap.Logger) ConnectionOption {
	return func(c *Connection) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithLaunchMode selects how the working directory is applied by the default
// dialer.
func WithLaunchMode(mode LaunchMode) ConnectionOption {
	return func(c *Connection) {
		if mode != "" {
			c.launchMode = mode
		}
	}
}

// WithClientInfo sets the identity announced during the handshake.
func WithClientInfo(info ClientInfo) ConnectionOption {
	return func(c *Connection) {
		c.clientInfo = info
	}
}

// WithStatusObserver registers a callback invoked with every new status.
func WithStatusObserver(fn func(Status)) ConnectionOption {
	return func(c *Connection) {
		c.observer = fn
	}
}

// Connection owns the single session to the tool-providing server. All
// mutation goes through Connect and Disconnect; readers always receive
// copies.
type Connection struct {
	// opMu serialises Connect and Disconnect. mu guards the fields below and
	// is never held across process launch or network I/O.
	opMu sync.Mutex
	mu   sync.RWMutex

	session *Session
	status  Status
	config  *ConnectionConfig

	dial       Dialer
	launchMode LaunchMode
	clientInfo ClientInfo
	logger     *zap.Logger
	observer   func(Status)
}

// NewConnection builds a disconnected Connection.
func NewConnection(opts ...ConnectionOption) *Connection {
	c := &Connection{
		launchMode: LaunchNative,
		clientInfo: ClientInfo{Name: "wakalat-agent", Version: "1.0.0"},
		logger:     zap.NewNop(),
	}
	c.dial = c.dialStdio
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

var (
	defaultOnce sync.Once
	defaultConn *Connection
)

// Default returns the process-wide connection, creating it on first use. The
// options only apply to that first call.
func Default(opts ...ConnectionOption) *Connection {
	defaultOnce.Do(func() {
		defaultConn = NewConnection(opts...)
	})
	return defaultConn
}

func (c *Connection) dialStdio(ctx context.Context, cfg ConnectionConfig) (*Session, error) {
	launch := BuildLaunch(runtime.GOOS, c.launchMode, cfg)
	return StartStdio(ctx, StdioConfig{
		Launch:  launch,
		Options: Options{ClientInfo: c.clientInfo},
	})
}

// Connect tears down any existing session, launches the server described by
// cfg and performs the handshake. It never returns an error: failures are
// reported through Status.Error.
func (c *Connection) Connect(ctx context.Context, cfg ConnectionConfig) Status {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	c.teardown()

	cfgCopy := cfg
	cfgCopy.Args = append([]string(nil), cfg.Args...)
	c.setState(nil, &cfgCopy, Status{Connecting: true})

	c.logger.Info("connecting to MCP server",
		zap.String("command", cfg.Command),
		zap.Strings("args", cfg.Args),
		zap.String("cwd", cfg.WorkingDirectory),
		zap.String("launchMode", string(c.launchMode)))

	session, err := c.dialSafely(ctx, cfgCopy)
	if err != nil {
		wrapped := errs.Wrap(err, errs.ConnectionFailed, "connect to MCP server")
		c.logger.Error("MCP connection failed", zap.Error(wrapped))
		return c.setState(nil, &cfgCopy, Status{Error: errs.Message(err)})
	}

	// Some servers take a moment before they answer tools/list; a failure
	// here does not fail the connection.
	if tools, err := session.Client.ListToolsRaw(ctx); err != nil {
		c.logger.Warn("could not verify MCP connection by listing tools", zap.Error(err))
	} else {
		c.logger.Info("MCP connection verified", zap.Int("tools", len(tools)))
	}

	info := session.Client.Server()
	if strings.TrimSpace(info.Name) == "" {
		info = ServerInfo{Name: c.clientInfo.Name, Version: c.clientInfo.Version}
	}
	return c.setState(session, &cfgCopy, Status{Connected: true, ServerInfo: &info})
}

func (c *Connection) dialSafely(ctx context.Context, cfg ConnectionConfig) (session *Session, err error) {
	defer func() {
		if r := recover(); r != nil {
			session = nil
			err = errs.New(errs.ConnectionFailed, "MCP dialer panicked")
		}
	}()
	session, err = c.dial(ctx, cfg)
	if err == nil && (session == nil || session.Client == nil) {
		err = errs.New(errs.ConnectionFailed, "MCP dialer returned no client")
	}
	return session, err
}

// Disconnect closes the session if one exists. Calling it while disconnected
// leaves the status untouched.
func (c *Connection) Disconnect() {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	if c.teardown() {
		c.mu.RLock()
		cfg := c.config
		c.mu.RUnlock()
		c.setState(nil, cfg, Status{})
	}
}

// teardown closes the transport and then the client, logging and swallowing
// individual failures so both steps always run. It reports whether there was
// a session to close.
func (c *Connection) teardown() bool {
	c.mu.Lock()
	session := c.session
	c.session = nil
	c.mu.Unlock()

	if session == nil {
		return false
	}
	if session.Transport != nil {
		if err := session.Transport.Close(); err != nil {
			c.logger.Warn("error closing MCP transport", zap.Error(err))
		}
	}
	if session.Client != nil {
		if err := session.Client.Close(); err != nil {
			c.logger.Warn("error closing MCP client", zap.Error(err))
		}
	}
	c.logger.Info("MCP session closed")
	return true
}

func (c *Connection) setState(session *Session, cfg *ConnectionConfig, status Status) Status {
	c.mu.Lock()
	c.session = session
	c.config = cfg
	c.status = status
	snapshot := c.status.clone()
	c.mu.Unlock()

	if c.observer != nil {
		c.observer(snapshot.clone())
	}
	return snapshot
}

// Status returns a copy of the current status.
func (c *Connection) Status() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.status.clone()
}

// Config returns a copy of the configuration of the last connect attempt.
func (c *Connection) Config() (ConnectionConfig, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.config == nil {
		return ConnectionConfig{}, false
	}
	cfg := *c.config
	cfg.Args = append([]string(nil), c.config.Args...)
	return cfg, true
}

// IsConnected requires both the connected flag and a live client handle.
func (c *Connection) IsConnected() bool {
	_, ok := c.client()
	return ok
}

func (c *Connection) client() (*Client, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.status.Connected || c.session == nil || c.session.Client == nil {
		return nil, false
	}
	return c.session.Client, true
}

// ListCapabilities returns the tools advertised by the connected server.
func (c *Connection) ListCapabilities(ctx context.Context) ([]ToolDescriptor, error) {
	client, ok := c.client()
	if !ok {
		return nil, errs.ErrNotConnected
	}

	raw, err := client.ListToolsRaw(ctx)
	if err != nil {
		c.logger.Error("error listing MCP tools", zap.Error(err))
		return nil, errs.Wrap(err, errs.CapabilityListingFailed, "list MCP tools")
	}

	tools := DecodeToolDescriptors(raw)
	if len(tools) > 0 {
		names := make([]string, 0, len(tools))
		for _, t := range tools {
			names = append(names, t.Name)
		}
		c.logger.Debug("listed MCP tools", zap.Int("count", len(tools)), zap.Strings("names", names))
	}
	return tools, nil
}

// InvokeCapability calls a tool and returns the server's raw result.
func (c *Connection) InvokeCapability(ctx context.Context, name string, args map[string]any) (any, error) {
	client, ok := c.client()
	if !ok {
		return nil, errs.ErrNotConnected
	}

	result, err := client.CallTool(ctx, name, args)
	if err != nil {
		c.logger.Error("error calling MCP tool", zap.String("tool", name), zap.Error(err))
		return nil, errs.Wrap(err, errs.ToolInvocationFailed, "call tool "+name)
	}
	return result, nil
}

// Ping checks that the connected server still answers. Staleness is otherwise
// only discovered on the next call.
func (c *Connection) Ping(ctx context.Context) error {
	client, ok := c.client()
	if !ok {
		return errs.ErrNotConnected
	}
	if err := client.Ping(ctx); err != nil {
		return errs.Wrap(err, errs.ConnectionFailed, "ping MCP server")
	}
	return nil
}
