package mcp

import (
	"bytes"
	"encoding/json"
	"strings"
)

// NormalizeToolList extracts the list of tool entries from a tools/list
// response. Servers do not agree on the envelope, so the shapes are tried in
// order:
//
//  1. the response is itself an array
//  2. {"tools": [...]}
//  3. {"result": [...]} or {"result": {"tools": [...]}}
//  4. the first array-valued property, in document order
//
// Anything else yields an empty, non-nil slice.
func NormalizeToolList(raw json.RawMessage) []any {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return []any{}
	}

	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return []any{}
	}

	switch v := decoded.(type) {
	case []any:
		return v
	case map[string]any:
		if tools, ok := v["tools"].([]any); ok {
			return tools
		}
		if result, ok := v["result"]; ok {
			switch r := result.(type) {
			case []any:
				return r
			case map[string]any:
				if tools, ok := r["tools"].([]any); ok {
					return tools
				}
			}
			return []any{}
		}
		if arr := firstArrayProperty(raw); arr != nil {
			return arr
		}
	}
	return []any{}
}

// firstArrayProperty walks the top-level object token by token so that the
// first array is picked in the order the server wrote it, which a Go map
// would not preserve.
func firstArrayProperty(raw json.RawMessage) []any {
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil
	}
	for dec.More() {
		if _, err := dec.Token(); err != nil {
			return nil
		}
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil
		}
		trimmed := bytes.TrimSpace(value)
		if len(trimmed) == 0 || trimmed[0] != '[' {
			continue
		}
		var arr []any
		if err := json.Unmarshal(trimmed, &arr); err == nil {
			return arr
		}
	}
	return nil
}

func nextCursor(raw json.RawMessage) string {
	var page struct {
		NextCursor string `json:"nextCursor"`
	}
	if err := json.Unmarshal(raw, &page); err != nil {
		return ""
	}
	return strings.TrimSpace(page.NextCursor)
}
