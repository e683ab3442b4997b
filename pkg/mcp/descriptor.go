package mcp

import (
	"reflect"

	"github.com/mitchellh/mapstructure"
)

// ToolDescriptor is a tool as advertised by the MCP server.
type ToolDescriptor struct {
	Name        string      `json:"name" mapstructure:"name"`
	Description string      `json:"description,omitempty" mapstructure:"description"`
	InputSchema InputSchema `json:"inputSchema" mapstructure:"inputSchema"`
}

// InputSchema is the JSON schema subset used to describe tool arguments.
type InputSchema struct {
	Type       string                    `json:"type,omitempty" mapstructure:"type"`
	Properties map[string]PropertySchema `json:"properties,omitempty" mapstructure:"properties"`
	Required   []string                  `json:"required,omitempty" mapstructure:"required"`
}

// PropertySchema describes one argument. Items holds the element schema of
// array arguments verbatim.
type PropertySchema struct {
	Type        string         `json:"type,omitempty" mapstructure:"type"`
	Description string         `json:"description,omitempty" mapstructure:"description"`
	Items       map[string]any `json:"items,omitempty" mapstructure:"items"`
}

// DecodeToolDescriptors converts normalised tools/list entries into
// descriptors. It never fails: entries that cannot be decoded in full keep
// whatever fields could be read, and non-object entries become empty
// descriptors.
func DecodeToolDescriptors(entries []any) []ToolDescriptor {
	out := make([]ToolDescriptor, 0, len(entries))
	for _, entry := range entries {
		out = append(out, decodeToolDescriptor(entry))
	}
	return out
}

func decodeToolDescriptor(entry any) ToolDescriptor {
	m, ok := entry.(map[string]any)
	if !ok {
		return ToolDescriptor{}
	}

	src := make(map[string]any, len(m)+1)
	for k, v := range m {
		src[k] = v
	}
	if _, ok := src["inputSchema"]; !ok {
		if alt, ok := src["input_schema"]; ok {
			src["inputSchema"] = alt
		}
	}
	delete(src, "input_schema")

	var desc ToolDescriptor
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       firstStringHook,
		WeaklyTypedInput: true,
		Result:           &desc,
	})
	if err == nil {
		if err = decoder.Decode(src); err == nil {
			return desc
		}
	}

	return bestEffortDescriptor(src)
}

// firstStringHook accepts JSON schema union types such as ["string", "null"]
// where a single type name is expected.
func firstStringHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if to.Kind() != reflect.String || from.Kind() != reflect.Slice {
		return data, nil
	}
	list, ok := data.([]any)
	if !ok {
		return data, nil
	}
	for _, item := range list {
		if s, ok := item.(string); ok && s != "null" {
			return s, nil
		}
	}
	return "", nil
}

func bestEffortDescriptor(m map[string]any) ToolDescriptor {
	var desc ToolDescriptor
	desc.Name, _ = m["name"].(string)
	desc.Description, _ = m["description"].(string)

	schema, _ := m["inputSchema"].(map[string]any)
	if schema == nil {
		return desc
	}
	desc.InputSchema.Type, _ = schema["type"].(string)
	if req, ok := schema["required"].([]any); ok {
		for _, r := range req {
			if s, ok := r.(string); ok {
				desc.InputSchema.Required = append(desc.InputSchema.Required, s)
			}
		}
	}
	props, _ := schema["properties"].(map[string]any)
	if len(props) == 0 {
		return desc
	}
	desc.InputSchema.Properties = make(map[string]PropertySchema, len(props))
	for name, raw := range props {
		var prop PropertySchema
		if p, ok := raw.(map[string]any); ok {
			prop.Type, _ = p["type"].(string)
			prop.Description, _ = p["description"].(string)
			prop.Items, _ = p["items"].(map[string]any)
		}
		desc.InputSchema.Properties[name] = prop
	}
	return desc
}
