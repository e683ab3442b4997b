package main

import (
	"context"
	"errors"
	"strings"

	"github.com/Protocol-Lattice/wakalat-agent/pkg/agent"
	"github.com/Protocol-Lattice/wakalat-agent/pkg/config"
	"github.com/Protocol-Lattice/wakalat-agent/pkg/errs"
	"github.com/Protocol-Lattice/wakalat-agent/pkg/logging"
	"github.com/Protocol-Lattice/wakalat-agent/pkg/mcp"
	"github.com/Protocol-Lattice/wakalat-agent/pkg/metrics"
	"github.com/Protocol-Lattice/wakalat-agent/pkg/models"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// app holds the components shared by every subcommand.
type app struct {
	cfg       *config.Config
	logger    *zap.Logger
	metrics   *metrics.Recorder
	conn      *mcp.Connection
	backend   models.Backend
	assistant *agent.Assistant
}

func bootstrap(ctx context.Context, cmd *cobra.Command) (*app, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if level, _ := cmd.Flags().GetString("log-level"); strings.TrimSpace(level) != "" {
		cfg.Log.Level = level
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		return nil, err
	}

	rec := metrics.New()
	conn := mcp.Default(
		mcp.WithLogger(logger),
		mcp.WithLaunchMode(mcp.LaunchMode(cfg.MCP.LaunchMode)),
		mcp.WithClientInfo(mcp.ClientInfo{Name: cfg.MCP.ClientName, Version: cfg.MCP.ClientVersion}),
		mcp.WithStatusObserver(func(s mcp.Status) { rec.SetConnected(s.Connected) }),
	)

	backend, err := models.NewBackend(ctx, models.BackendConfig{
		Provider:  cfg.Model.Provider,
		Model:     cfg.Model.Name,
		APIKey:    cfg.Model.APIKey,
		BaseURL:   cfg.Model.BaseURL,
		MaxTokens: cfg.Model.MaxTokens,
	})
	switch {
	case errors.Is(err, errs.ErrNotConfigured):
		logger.Warn("model API key not configured; chat requests will be rejected",
			zap.String("provider", cfg.Model.Provider))
		backend = nil
	case err != nil:
		return nil, err
	}

	var generator agent.Generator
	if backend != nil {
		generator = models.NewAgent(backend, models.WithAgentLogger(logger))
	}

	assistant := agent.New(agent.Options{
		Generator:         generator,
		Tools:             conn,
		SystemPrompt:      cfg.Assistant.SystemPrompt,
		MaxToolIterations: cfg.Assistant.MaxToolIterations,
		Logger:            logger,
		Metrics:           rec,
	})

	return &app{
		cfg:       cfg,
		logger:    logger,
		metrics:   rec,
		conn:      conn,
		backend:   backend,
		assistant: assistant,
	}, nil
}

func (a *app) connectionDefaults() mcp.ConnectionConfig {
	return mcp.ConnectionConfig{
		Command:          a.cfg.MCP.Command,
		Args:             append([]string(nil), a.cfg.MCP.Args...),
		WorkingDirectory: a.cfg.MCP.WorkingDirectory,
	}
}

// connect starts the configured MCP server and reports the resulting status.
func (a *app) connect(ctx context.Context) mcp.Status {
	status := a.conn.Connect(ctx, a.connectionDefaults())
	if !status.Connected {
		a.logger.Warn("MCP server unavailable", zap.String("error", status.Error))
	}
	return status
}

func (a *app) close() {
	a.conn.Disconnect()
	if a.backend != nil {
		if err := a.backend.Close(); err != nil {
			a.logger.Debug("closing model backend", zap.Error(err))
		}
	}
	_ = a.logger.Sync()
}
