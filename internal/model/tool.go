// Package model holds the core records shared by the dispatcher and its adapters.
package model

import "github.com/mcpagent/mcpagent/pkg/types"

// ParamSpec describes a single input parameter of a tool.
type ParamSpec struct {
	Type        string
	Description string
	// Default is advertised to clients only. Handlers apply their own defaults.
	Default  any
	Required bool
}

// Param is a named ParamSpec. Tools declare their parameters as an ordered list.
type Param struct {
	Name string
	ParamSpec
}

// ToolDescriptor describes a tool exposed by the agent.
// Descriptors are built once at startup and never mutated.
type ToolDescriptor struct {
	Name        string
	Description string
	Params      []Param

	// Dangerous is informational. It does not restrict execution.
	Dangerous bool
}

// RequiredParams returns the names of required parameters in declaration order.
func (t *ToolDescriptor) RequiredParams() []string {
	var required []string
	for _, p := range t.Params {
		if p.Required {
			required = append(required, p.Name)
		}
	}
	return required
}

// InputSchema builds the JSON schema object advertised for the tool.
func (t *ToolDescriptor) InputSchema() types.ToolInputSchema {
	props := make(map[string]any, len(t.Params))
	for _, p := range t.Params {
		prop := map[string]any{
			"type":        p.Type,
			"description": p.Description,
		}
		if p.Default != nil {
			prop["default"] = p.Default
		}
		props[p.Name] = prop
	}
	return types.ToolInputSchema{
		Type:       "object",
		Properties: props,
		Required:   t.RequiredParams(),
	}
}

// ToAPI converts the descriptor into its wire form.
func (t *ToolDescriptor) ToAPI() types.Tool {
	return types.Tool{
		Name:        t.Name,
		Description: t.Description,
		InputSchema: t.InputSchema(),
		Dangerous:   t.Dangerous,
	}
}

// ToolsToAPI converts a list of descriptors, preserving order.
func ToolsToAPI(tools []ToolDescriptor) []types.Tool {
	out := make([]types.Tool, len(tools))
	for i := range tools {
		out[i] = tools[i].ToAPI()
	}
	return out
}
