package mcp

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Content represents a single content part returned from a tool invocation.
type Content struct {
	Type     string          `json:"type"`
	Text     string          `json:"text,omitempty"`
	Data     json.RawMessage `json:"data,omitempty"`
	MimeType string          `json:"mimeType,omitempty"`
}

// CallResult is the conventional shape of a tools/call result.
type CallResult struct {
	Content           []Content      `json:"content"`
	StructuredContent map[string]any `json:"structuredContent,omitempty"`
	IsError           bool           `json:"isError,omitempty"`
}

// AsCallResult reinterprets a raw tool result. The boolean is false when the
// payload does not look like a tools/call result.
func AsCallResult(raw any) (CallResult, bool) {
	data, err := json.Marshal(raw)
	if err != nil {
		return CallResult{}, false
	}
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return CallResult{}, false
	}
	if _, ok := probe["content"]; !ok {
		return CallResult{}, false
	}
	var result CallResult
	if err := json.Unmarshal(data, &result); err != nil {
		return CallResult{}, false
	}
	return result, true
}

// Text concatenates text parts within the result. Multiple segments are joined
// with a newline to preserve ordering while offering a consumable string.
func (r CallResult) Text() string {
	var segments []string
	for _, part := range r.Content {
		if part.Type != "text" {
			continue
		}
		if trimmed := strings.TrimSpace(part.Text); trimmed != "" {
			segments = append(segments, trimmed)
		}
	}
	return strings.Join(segments, "\n")
}

// JSON returns the structured payload of the result, pretty printed. When
// there is none an empty string is returned.
func (r CallResult) JSON() string {
	if len(r.StructuredContent) > 0 {
		data, err := json.MarshalIndent(r.StructuredContent, "", "  ")
		if err == nil {
			return string(data)
		}
	}
	for _, part := range r.Content {
		if part.Type != "json" || len(part.Data) == 0 {
			continue
		}
		var buf bytes.Buffer
		if err := json.Indent(&buf, part.Data, "", "  "); err != nil {
			return string(part.Data)
		}
		return buf.String()
	}
	return ""
}

// PrimaryText prefers the aggregated text segments and falls back to the JSON
// payload.
func (r CallResult) PrimaryText() string {
	if txt := r.Text(); txt != "" {
		return txt
	}
	return r.JSON()
}
