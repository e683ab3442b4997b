package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Protocol-Lattice/wakalat-agent/pkg/mcp"
)

// Invoker is the subset of the MCP connection used to run a capability.
type Invoker interface {
	InvokeCapability(ctx context.Context, name string, args map[string]any) (any, error)
}

// Capability pairs a remote tool with the invoker that reaches it.
type Capability struct {
	invoker    Invoker
	descriptor mcp.ToolDescriptor
}

// NewCapability wraps descriptor for invocation through invoker.
func NewCapability(invoker Invoker, descriptor mcp.ToolDescriptor) *Capability {
	return &Capability{invoker: invoker, descriptor: descriptor}
}

// Name returns the remote tool name.
func (c *Capability) Name() string {
	if c == nil {
		return ""
	}
	return c.descriptor.Name
}

// Description returns the remote tool description.
func (c *Capability) Description() string {
	if c == nil {
		return ""
	}
	return c.descriptor.Description
}

// Missing lists required arguments absent from args, in declaration order.
func (c *Capability) Missing(args map[string]any) []string {
	var missing []string
	for _, key := range c.descriptor.InputSchema.Required {
		if _, ok := args[key]; !ok {
			missing = append(missing, key)
		}
	}
	return missing
}

// Run invokes the remote tool and renders its answer as text. Conventional
// tools/call results yield their text parts, falling back to structured JSON;
// any other payload is printed as indented JSON. Results flagged isError are
// returned as errors.
func (c *Capability) Run(ctx context.Context, args map[string]any) (string, error) {
	if c == nil || c.invoker == nil {
		return "", fmt.Errorf("capability is not initialised")
	}
	if missing := c.Missing(args); len(missing) > 0 {
		return "", fmt.Errorf("%s: missing required arguments: %s", c.Name(), strings.Join(missing, ", "))
	}

	raw, err := c.invoker.InvokeCapability(ctx, c.descriptor.Name, args)
	if err != nil {
		return "", err
	}

	if result, ok := mcp.AsCallResult(raw); ok {
		output := strings.TrimSpace(result.PrimaryText())
		if result.IsError {
			if output == "" {
				output = "tool reported an error"
			}
			return "", fmt.Errorf("%s: %s", c.Name(), output)
		}
		return output, nil
	}

	data, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		return fmt.Sprint(raw), nil
	}
	return string(data), nil
}
