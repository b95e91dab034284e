package contract

import "context"

// ParamType is the JSON type of a tool parameter.
type ParamType string

const (
	ParamString  ParamType = "string"
	ParamInteger ParamType = "integer"
	ParamNumber  ParamType = "number"
	ParamBoolean ParamType = "boolean"
)

type ParamSpec struct {
	Name        string
	Type        ParamType
	Description string
	Required    bool
	Enum        []string
}

// ToolFunc performs the backend operation behind a tool. Arguments have
// already been coerced and validated against the descriptor's params.
type ToolFunc func(ctx context.Context, args map[string]any) (any, error)

// ToolDescriptor is the immutable registration record of a tool. Params keep
// declaration order so the rendered schema is stable.
type ToolDescriptor struct {
	Name        string
	Description string
	Params      []ParamSpec
	Func        ToolFunc
}

func (d ToolDescriptor) Param(name string) (ParamSpec, bool) {
	for _, p := range d.Params {
		if p.Name == name {
			return p, true
		}
	}
	return ParamSpec{}, false
}

// JSONSchema renders the params as a draft-07 object schema.
func (d ToolDescriptor) JSONSchema() map[string]any {
	props := make(map[string]any, len(d.Params))
	required := make([]string, 0, len(d.Params))
	for _, p := range d.Params {
		prop := map[string]any{
			"type":        string(p.Type),
			"description": p.Description,
		}
		if len(p.Enum) > 0 {
			enum := make([]any, 0, len(p.Enum))
			for _, v := range p.Enum {
				enum = append(enum, v)
			}
			prop["enum"] = enum
		}
		if p.Required {
			if p.Type == ParamString {
				prop["minLength"] = 1
			}
			required = append(required, p.Name)
		}
		props[p.Name] = prop
	}

	out := map[string]any{
		"type":                 "object",
		"properties":           props,
		"additionalProperties": false,
	}
	if len(required) > 0 {
		out["required"] = required
	}
	return out
}
