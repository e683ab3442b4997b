// Package agent runs a user turn: it gathers the connected server's tools,
// offers them to the model and keeps an audit trail of every tool call.
package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Protocol-Lattice/wakalat-agent/pkg/errs"
	"github.com/Protocol-Lattice/wakalat-agent/pkg/metrics"
	"github.com/Protocol-Lattice/wakalat-agent/pkg/models"
	"github.com/Protocol-Lattice/wakalat-agent/pkg/tools"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Assistant is safe for concurrent use; each Run has its own audit trail.
type Assistant struct {
	generator         Generator
	tools             ToolServer
	systemPrompt      string
	maxToolIterations int
	logger            *zap.Logger
	metrics           *metrics.Recorder
}

// Options configure a new Assistant.
type Options struct {
	Generator         Generator
	Tools             ToolServer
	SystemPrompt      string
	MaxToolIterations int
	Logger            *zap.Logger
	Metrics           *metrics.Recorder
}

// New creates an Assistant. A nil or unconfigured Generator is accepted; Run
// then fails with errs.ErrNotConfigured.
func New(opts Options) *Assistant {
	systemPrompt := opts.SystemPrompt
	if strings.TrimSpace(systemPrompt) == "" {
		systemPrompt = DefaultSystemPrompt
	}
	maxIter := opts.MaxToolIterations
	if maxIter <= 0 {
		maxIter = DefaultMaxToolIterations
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Assistant{
		generator:         opts.Generator,
		tools:             opts.Tools,
		systemPrompt:      systemPrompt,
		maxToolIterations: maxIter,
		logger:            logger,
		metrics:           opts.Metrics,
	}
}

// IsConfigured reports whether the model agent can serve requests.
func (a *Assistant) IsConfigured() bool {
	return a != nil && a.generator != nil && a.generator.IsConfigured()
}

// MaxToolIterations returns the configured default.
func (a *Assistant) MaxToolIterations() int {
	return a.maxToolIterations
}

// Run answers one message. The only error it returns is errs.ErrNotConfigured;
// tool listing failures are absorbed and model failures become the final
// text.
func (a *Assistant) Run(ctx context.Context, opts RunOptions) (RunResult, error) {
	turn, err := a.begin(ctx, opts)
	if err != nil {
		return RunResult{}, err
	}

	start := time.Now()
	resp, err := a.generator.GenerateResponse(ctx, turn.prompt, turn.gen)
	a.metrics.Generation(time.Since(start), err)
	if err != nil {
		return turn.failed(err)
	}
	return turn.result(resp.Text), nil
}

// RunStream is Run with incremental delivery: emit receives each text
// fragment as the model produces it. On failure the error text is emitted as
// the last fragment.
func (a *Assistant) RunStream(ctx context.Context, opts RunOptions, emit func(delta string)) (RunResult, error) {
	turn, err := a.begin(ctx, opts)
	if err != nil {
		return RunResult{}, err
	}
	if emit == nil {
		emit = func(string) {}
	}

	start := time.Now()
	stream, err := a.generator.GenerateStreamingResponse(ctx, turn.prompt, turn.gen)
	if err != nil {
		a.metrics.Generation(time.Since(start), err)
		res, rerr := turn.failed(err)
		if rerr == nil {
			emit(res.FinalText)
		}
		return res, rerr
	}

	var full strings.Builder
	for chunk := range stream {
		if chunk.Err != nil {
			err = chunk.Err
			continue
		}
		if chunk.Delta != "" {
			full.WriteString(chunk.Delta)
			emit(chunk.Delta)
		}
	}
	if err == nil && ctx.Err() != nil {
		err = ctx.Err()
	}
	a.metrics.Generation(time.Since(start), err)
	if err != nil {
		res, rerr := turn.failed(err)
		if rerr == nil {
			emit(res.FinalText)
		}
		return res, rerr
	}

	res := turn.result(full.String())
	if full.Len() == 0 {
		emit(res.FinalText)
	}
	return res, nil
}

// turnState carries what Run and RunStream share for one turn.
type turnState struct {
	id     string
	prompt string
	gen    models.GenerateOptions
	trail  *auditTrail
	logger *zap.Logger
}

func (a *Assistant) begin(ctx context.Context, opts RunOptions) (*turnState, error) {
	if !a.IsConfigured() {
		return nil, errs.ErrNotConfigured
	}

	id := uuid.NewString()
	logger := a.logger.With(zap.String("runId", id))

	maxIter := opts.MaxToolIterations
	if maxIter <= 0 {
		maxIter = a.maxToolIterations
	}
	logger.Debug("starting assistant run",
		zap.Bool("useMCPTools", opts.UseMCPTools),
		zap.Int("history", len(opts.ConversationHistory)),
		zap.Int("maxToolIterations", maxIter))

	turn := &turnState{
		id:     id,
		prompt: buildUserPrompt(a.systemPrompt, opts.Message),
		gen:    models.GenerateOptions{History: opts.ConversationHistory},
		trail:  &auditTrail{},
		logger: logger,
	}
	if decls := a.declarations(ctx, logger, opts.UseMCPTools); len(decls) > 0 {
		turn.gen.FunctionDeclarations = decls
		turn.gen.FunctionCallHandler = a.handler(logger, turn.trail)
	}
	return turn, nil
}

func (t *turnState) result(text string) RunResult {
	if strings.TrimSpace(text) == "" {
		text = noResponseText
	}
	return RunResult{RunID: t.id, FinalText: text, ToolCalls: t.trail.records()}
}

func (t *turnState) failed(err error) (RunResult, error) {
	if errors.Is(err, errs.ErrNotConfigured) {
		return RunResult{}, err
	}
	t.logger.Error("error generating response", zap.Error(errs.Wrap(err, errs.GenerationFailed, "generate response")))
	return RunResult{
		RunID:     t.id,
		FinalText: fmt.Sprintf(errorResponseFmt, errs.Message(err)),
		ToolCalls: t.trail.records(),
	}, nil
}

// declarations fetches and translates the server's tools. Any failure leaves
// the turn without tools.
func (a *Assistant) declarations(ctx context.Context, logger *zap.Logger, useTools bool) []models.FunctionDeclaration {
	if !useTools {
		logger.Debug("MCP tools disabled for this run")
		return nil
	}
	if a.tools == nil || !a.tools.IsConnected() {
		logger.Debug("MCP server not connected, answering without tools")
		return nil
	}

	descs, err := a.tools.ListCapabilities(ctx)
	a.metrics.CapabilityListing(err)
	if err != nil {
		logger.Warn("unable to list MCP tools, answering without tools", zap.Error(err))
		return nil
	}
	if len(descs) == 0 {
		logger.Warn("no tools available from MCP server, answering from general knowledge")
		return nil
	}

	decls := tools.TranslateAll(descs)
	names := make([]string, 0, len(decls))
	for _, d := range decls {
		names = append(names, d.Name)
	}
	logger.Info("offering MCP tools to the model", zap.Strings("tools", names))
	return decls
}

// handler forwards model function calls to the tool server. Every attempt is
// recorded, including calls refused because the server went away.
func (a *Assistant) handler(logger *zap.Logger, trail *auditTrail) models.FunctionCallHandler {
	return func(ctx context.Context, call models.FunctionCall) (any, error) {
		args := call.Args
		if args == nil {
			args = map[string]any{}
		}

		if !a.tools.IsConnected() {
			err := errs.ErrNotConnected
			trail.add(ToolCallRecord{Tool: call.Name, Arguments: args, Result: errorResult(err)})
			a.metrics.ToolCall(call.Name, err)
			return nil, err
		}

		logger.Info("executing MCP tool", zap.String("tool", call.Name), zap.Any("args", args))
		result, err := a.tools.InvokeCapability(ctx, call.Name, args)
		a.metrics.ToolCall(call.Name, err)
		if err != nil {
			logger.Error("error calling tool", zap.String("tool", call.Name), zap.Error(err))
			trail.add(ToolCallRecord{Tool: call.Name, Arguments: args, Result: errorResult(err)})
			return nil, err
		}

		trail.add(ToolCallRecord{Tool: call.Name, Arguments: args, Result: result})
		return result, nil
	}
}

func errorResult(err error) map[string]any {
	return map[string]any{"error": errs.Message(err)}
}

type auditTrail struct {
	mu      sync.Mutex
	entries []ToolCallRecord
}

func (t *auditTrail) add(r ToolCallRecord) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries = append(t.entries, r)
}

func (t *auditTrail) records() []ToolCallRecord {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]ToolCallRecord{}, t.entries...)
}
