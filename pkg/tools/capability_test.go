package tools

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/Protocol-Lattice/wakalat-agent/pkg/mcp"
)

type fakeInvoker struct {
	result any
	err    error
	calls  []string
}

func (f *fakeInvoker) InvokeCapability(_ context.Context, name string, _ map[string]any) (any, error) {
	f.calls = append(f.calls, name)
	return f.result, f.err
}

var statute = mcp.ToolDescriptor{
	Name:        "lookup_statute",
	Description: "Statute text",
	InputSchema: mcp.InputSchema{Required: []string{"act", "section"}},
}

func TestCapabilityRunText(t *testing.T) {
	inv := &fakeInvoker{result: map[string]any{
		"content": []any{map[string]any{"type": "text", "text": "Section 379. Theft."}},
	}}
	out, err := NewCapability(inv, statute).Run(context.Background(), map[string]any{"act": "IPC", "section": "379"})
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if out != "Section 379. Theft." {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestCapabilityRunJSONFallback(t *testing.T) {
	inv := &fakeInvoker{result: map[string]any{"hits": []any{"a"}}}
	out, err := NewCapability(inv, mcp.ToolDescriptor{Name: "raw"}).Run(context.Background(), nil)
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if out != "{\n  \"hits\": [\n    \"a\"\n  ]\n}" {
		t.Fatalf("unexpected output: %s", out)
	}
}

func TestCapabilityRunMissingArgs(t *testing.T) {
	inv := &fakeInvoker{}
	_, err := NewCapability(inv, statute).Run(context.Background(), map[string]any{"act": "IPC"})
	if err == nil || !strings.Contains(err.Error(), "section") {
		t.Fatalf("expected missing argument error, got %v", err)
	}
	if len(inv.calls) != 0 {
		t.Fatalf("server must not be called")
	}
}

func TestCapabilityRunToolError(t *testing.T) {
	inv := &fakeInvoker{result: map[string]any{
		"isError": true,
		"content": []any{map[string]any{"type": "text", "text": "unknown act"}},
	}}
	_, err := NewCapability(inv, mcp.ToolDescriptor{Name: "x"}).Run(context.Background(), nil)
	if err == nil || err.Error() != "x: unknown act" {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCapabilityRunPropagatesInvokerError(t *testing.T) {
	boom := errors.New("boom")
	_, err := NewCapability(&fakeInvoker{err: boom}, mcp.ToolDescriptor{Name: "x"}).Run(context.Background(), nil)
	if !errors.Is(err, boom) {
		t.Fatalf("expected invoker error, got %v", err)
	}
}
