package agent

import (
	"context"

	"github.com/Protocol-Lattice/wakalat-agent/pkg/mcp"
	"github.com/Protocol-Lattice/wakalat-agent/pkg/models"
)

// ToolServer is the connection to the tool-providing server.
type ToolServer interface {
	IsConnected() bool
	ListCapabilities(ctx context.Context) ([]mcp.ToolDescriptor, error)
	InvokeCapability(ctx context.Context, name string, args map[string]any) (any, error)
}

// Generator is the model agent that answers prompts.
type Generator interface {
	IsConfigured() bool
	GenerateResponse(ctx context.Context, prompt string, opts models.GenerateOptions) (models.Response, error)
	GenerateStreamingResponse(ctx context.Context, prompt string, opts models.GenerateOptions) (<-chan models.StreamChunk, error)
}

// ToolCallRecord is one entry of a run's audit trail. Result holds either the
// server's raw answer or {"error": message}.
type ToolCallRecord struct {
	Tool      string         `json:"tool"`
	Arguments map[string]any `json:"arguments"`
	Result    any            `json:"result"`
}

// RunOptions describes one user turn.
type RunOptions struct {
	Message             string
	ConversationHistory []models.Message
	UseMCPTools         bool
	// MaxToolIterations is accepted for forward compatibility. Tool calling
	// is limited to a single round regardless of its value.
	MaxToolIterations int
}

// RunResult is the outcome of one turn.
type RunResult struct {
	RunID     string           `json:"runId"`
	FinalText string           `json:"finalText"`
	ToolCalls []ToolCallRecord `json:"toolCalls"`
}
