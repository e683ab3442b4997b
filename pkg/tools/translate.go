// Package tools maps MCP tool descriptors onto the function declarations
// offered to the model.
package tools

import (
	"strings"

	"github.com/Protocol-Lattice/wakalat-agent/pkg/mcp"
	"github.com/Protocol-Lattice/wakalat-agent/pkg/models"
)

const (
	unknownToolName        = "unknown_tool"
	noDescriptionAvailable = "No description available"
	defaultPropertyType    = "string"
)

// Translate converts a tool descriptor into a function declaration. It never
// fails: missing names, descriptions and property types get defaults, array
// item schemas are carried over and an empty required list is left out.
func Translate(desc mcp.ToolDescriptor) models.FunctionDeclaration {
	name := strings.TrimSpace(desc.Name)
	if name == "" {
		name = unknownToolName
	}
	description := desc.Description
	if strings.TrimSpace(description) == "" {
		description = noDescriptionAvailable
	}

	params := &models.Parameters{
		Type:       "object",
		Properties: make(map[string]models.Property, len(desc.InputSchema.Properties)),
	}
	for key, prop := range desc.InputSchema.Properties {
		typ := prop.Type
		if strings.TrimSpace(typ) == "" {
			typ = defaultPropertyType
		}
		out := models.Property{Type: typ, Description: prop.Description}
		if prop.Items != nil {
			out.Items = copyMap(prop.Items)
		}
		params.Properties[key] = out
	}
	if len(desc.InputSchema.Required) > 0 {
		params.Required = append([]string(nil), desc.InputSchema.Required...)
	}

	return models.FunctionDeclaration{
		Name:        name,
		Description: description,
		Parameters:  params,
	}
}

// TranslateAll translates every descriptor, preserving order.
func TranslateAll(descs []mcp.ToolDescriptor) []models.FunctionDeclaration {
	out := make([]models.FunctionDeclaration, 0, len(descs))
	for _, d := range descs {
		out = append(out, Translate(d))
	}
	return out
}

func copyMap(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		if nested, ok := v.(map[string]any); ok {
			v = copyMap(nested)
		}
		out[k] = v
	}
	return out
}
