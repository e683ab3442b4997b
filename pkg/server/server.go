// Package server exposes the assistant and the MCP connection over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/Protocol-Lattice/wakalat-agent/pkg/agent"
	"github.com/Protocol-Lattice/wakalat-agent/pkg/errs"
	"github.com/Protocol-Lattice/wakalat-agent/pkg/mcp"
	"github.com/Protocol-Lattice/wakalat-agent/pkg/metrics"
	"github.com/Protocol-Lattice/wakalat-agent/pkg/models"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Assistant answers chat messages.
type Assistant interface {
	IsConfigured() bool
	Run(ctx context.Context, opts agent.RunOptions) (agent.RunResult, error)
}

// Connection manages the MCP session.
type Connection interface {
	Connect(ctx context.Context, cfg mcp.ConnectionConfig) mcp.Status
	Disconnect()
	Status() mcp.Status
	Config() (mcp.ConnectionConfig, bool)
	IsConnected() bool
	ListCapabilities(ctx context.Context) ([]mcp.ToolDescriptor, error)
	InvokeCapability(ctx context.Context, name string, args map[string]any) (any, error)
}

type Options struct {
	Assistant  Assistant
	Connection Connection
	// Defaults fill fields missing from a connect request.
	Defaults   mcp.ConnectionConfig
	CORSOrigin string
	Metrics    *metrics.Recorder
	Logger     *zap.Logger
}

type Server struct {
	assistant  Assistant
	conn       Connection
	defaults   mcp.ConnectionConfig
	corsOrigin string
	metrics    *metrics.Recorder
	logger     *zap.Logger
	// paragraphDelay paces streamed paragraphs.
	paragraphDelay time.Duration
}

func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	origin := opts.CORSOrigin
	if origin == "" {
		origin = "*"
	}
	return &Server{
		assistant:      opts.Assistant,
		conn:           opts.Connection,
		defaults:       opts.Defaults,
		corsOrigin:     origin,
		metrics:        opts.Metrics,
		logger:         logger,
		paragraphDelay: 20 * time.Millisecond,
	}
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.requestID)
	r.Use(s.cors)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Post("/chat", s.chat)
		r.Get("/chat", s.chatInfo)
		r.Post("/chat/stream", s.chatStream)
		r.Post("/mcp/connect", s.connect)
		r.Get("/mcp/connect", s.status)
		r.Get("/mcp/tools", s.listTools)
		r.Post("/mcp/tools", s.callTool)
	})
	return r
}

// Serve listens on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			zap.String("requestId", id),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)))
	})
}

func (s *Server) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", s.corsOrigin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Request-ID")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"error": msg})
}

// ---------------------------------------------------------------------------
// Chat

type chatRequest struct {
	Message             string           `json:"message"`
	ConversationHistory []models.Message `json:"conversationHistory"`
	UseMCPTools         *bool            `json:"useMCPTools"`
}

type chatResponse struct {
	Success   bool                   `json:"success"`
	Response  string                 `json:"response"`
	ToolCalls []agent.ToolCallRecord `json:"toolCalls"`
	RunID     string                 `json:"runId"`
}

func (s *Server) decodeChat(w http.ResponseWriter, r *http.Request) (agent.RunOptions, bool) {
	var body chatRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return agent.RunOptions{}, false
	}
	if strings.TrimSpace(body.Message) == "" {
		writeError(w, http.StatusBadRequest, "Message is required")
		return agent.RunOptions{}, false
	}
	if s.assistant == nil || !s.assistant.IsConfigured() {
		writeError(w, errs.HTTPStatus(errs.ErrNotConfigured), errs.ErrNotConfigured.Message)
		return agent.RunOptions{}, false
	}
	useTools := true
	if body.UseMCPTools != nil {
		useTools = *body.UseMCPTools
	}
	return agent.RunOptions{
		Message:             body.Message,
		ConversationHistory: body.ConversationHistory,
		UseMCPTools:         useTools,
	}, true
}

func (s *Server) chat(w http.ResponseWriter, r *http.Request) {
	opts, ok := s.decodeChat(w, r)
	if !ok {
		return
	}
	result, err := s.assistant.Run(r.Context(), opts)
	if err != nil {
		s.logger.Error("chat failed", zap.Error(err))
		writeError(w, errs.HTTPStatus(err), errs.Message(err))
		return
	}
	writeJSON(w, http.StatusOK, chatResponse{
		Success:   true,
		Response:  result.FinalText,
		ToolCalls: result.ToolCalls,
		RunID:     result.RunID,
	})
}

func (s *Server) chatInfo(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"message":    "Chat endpoint. Use POST to send messages.",
		"configured": s.assistant != nil && s.assistant.IsConfigured(),
	})
}

var paragraphBreak = regexp.MustCompile(`\n{2,}`)

// Paragraphs splits text on blank lines, dropping empty pieces.
func Paragraphs(text string) []string {
	var out []string
	for _, p := range paragraphBreak.Split(text, -1) {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// chatStream runs the assistant to completion and then writes the answer one
// paragraph at a time.
func (s *Server) chatStream(w http.ResponseWriter, r *http.Request) {
	opts, ok := s.decodeChat(w, r)
	if !ok {
		return
	}
	result, err := s.assistant.Run(r.Context(), opts)
	if err != nil {
		s.logger.Error("chat stream failed", zap.Error(err))
		writeError(w, errs.HTTPStatus(err), errs.Message(err))
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("X-Run-ID", result.RunID)
	w.WriteHeader(http.StatusOK)
	flusher, _ := w.(http.Flusher)

	chunks := Paragraphs(result.FinalText)
	if len(chunks) == 0 {
		_, _ = w.Write([]byte(result.FinalText))
		return
	}
	for i, chunk := range chunks {
		if i > 0 && s.paragraphDelay > 0 {
			select {
			case <-r.Context().Done():
				return
			case <-time.After(s.paragraphDelay):
			}
		}
		if _, err := w.Write([]byte(chunk + "\n\n")); err != nil {
			return
		}
		if flusher != nil {
			flusher.Flush()
		}
	}
}

// ---------------------------------------------------------------------------
// MCP connection

type connectRequest struct {
	Action string                `json:"action"`
	Config *mcp.ConnectionConfig `json:"config"`
}

func (s *Server) connect(w http.ResponseWriter, r *http.Request) {
	var body connectRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	switch body.Action {
	case "connect":
		if body.Config == nil {
			writeError(w, http.StatusBadRequest, "Config is required")
			return
		}
		cfg := s.withDefaults(*body.Config)
		status := s.conn.Connect(r.Context(), cfg)
		s.metrics.SetConnected(status.Connected)
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "status": s.conn.Status()})
	case "disconnect":
		s.conn.Disconnect()
		s.metrics.SetConnected(false)
		// The connection keeps the error of a failed attempt; the caller asked
		// for a disconnect and gets a clean status.
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "status": mcp.Status{}})
	case "status":
		s.status(w, r)
	default:
		writeError(w, http.StatusBadRequest, "Invalid action")
	}
}

func (s *Server) withDefaults(cfg mcp.ConnectionConfig) mcp.ConnectionConfig {
	if strings.TrimSpace(cfg.Command) == "" {
		cfg.Command = s.defaults.Command
	}
	if cfg.Args == nil {
		cfg.Args = append([]string(nil), s.defaults.Args...)
	}
	if strings.TrimSpace(cfg.WorkingDirectory) == "" {
		cfg.WorkingDirectory = s.defaults.WorkingDirectory
	}
	return cfg
}

// status reports the connection state and, once a connect was attempted, the
// command it launched.
func (s *Server) status(w http.ResponseWriter, _ *http.Request) {
	body := map[string]any{"success": true, "status": s.conn.Status()}
	if cfg, ok := s.conn.Config(); ok {
		body["config"] = cfg
	}
	writeJSON(w, http.StatusOK, body)
}

// ---------------------------------------------------------------------------
// MCP tools

func (s *Server) listTools(w http.ResponseWriter, r *http.Request) {
	if !s.conn.IsConnected() {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"success": false,
			"error":   "MCP client not connected",
			"status":  s.conn.Status(),
		})
		return
	}

	tools, err := s.conn.ListCapabilities(r.Context())
	s.metrics.CapabilityListing(err)
	if err != nil {
		writeJSON(w, errs.HTTPStatus(err), map[string]any{"success": false, "error": errs.Message(err)})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "tools": tools, "toolCount": len(tools)})
}

type callToolRequest struct {
	ToolName string         `json:"toolName"`
	Args     map[string]any `json:"args"`
}

func (s *Server) callTool(w http.ResponseWriter, r *http.Request) {
	var body callToolRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(body.ToolName) == "" {
		writeError(w, http.StatusBadRequest, "Tool name is required")
		return
	}
	if !s.conn.IsConnected() {
		writeError(w, http.StatusBadRequest, "MCP client not connected")
		return
	}
	if body.Args == nil {
		body.Args = map[string]any{}
	}

	result, err := s.conn.InvokeCapability(r.Context(), body.ToolName, body.Args)
	s.metrics.ToolCall(body.ToolName, err)
	if err != nil {
		writeError(w, errs.HTTPStatus(err), errs.Message(err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "result": result})
}
