package tool

import (
	"fmt"
	"strings"

	"github.com/spf13/cast"
	"github.com/xeipuuv/gojsonschema"

	contractx "github.com/tanpawarit/Medicare-IDCard-Assistant/agent/contract"
)

type argValidator struct {
	desc   contractx.ToolDescriptor
	schema *gojsonschema.Schema
}

func newArgValidator(desc contractx.ToolDescriptor) (*argValidator, error) {
	seen := make(map[string]struct{}, len(desc.Params))
	for _, p := range desc.Params {
		if strings.TrimSpace(p.Name) == "" {
			return nil, fmt.Errorf("%w: tool=%s has a param without name", contractx.ErrValidation, desc.Name)
		}
		if _, dup := seen[p.Name]; dup {
			return nil, fmt.Errorf("%w: tool=%s repeats param %s", contractx.ErrValidation, desc.Name, p.Name)
		}
		seen[p.Name] = struct{}{}
		switch p.Type {
		case contractx.ParamString, contractx.ParamInteger, contractx.ParamNumber, contractx.ParamBoolean:
		default:
			return nil, fmt.Errorf("%w: tool=%s param %s has unsupported type %q", contractx.ErrValidation, desc.Name, p.Name, p.Type)
		}
	}

	schema, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(desc.JSONSchema()))
	if err != nil {
		return nil, fmt.Errorf("%w: compile schema for tool=%s: %v", contractx.ErrValidation, desc.Name, err)
	}
	return &argValidator{desc: desc, schema: schema}, nil
}

// Prepare coerces raw LLM arguments to the declared param types and checks
// them against the tool schema. The input map is left untouched.
func (v *argValidator) Prepare(raw map[string]any) (map[string]any, error) {
	args := make(map[string]any, len(raw))
	for name, value := range raw {
		p, ok := v.desc.Param(name)
		if !ok || value == nil {
			args[name] = value
			continue
		}
		coerced, err := coerce(p.Type, value)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", contractx.ErrArgumentValidation, name, err)
		}
		args[name] = coerced
	}

	result, err := v.schema.Validate(gojsonschema.NewGoLoader(args))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", contractx.ErrArgumentValidation, err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return nil, fmt.Errorf("%w: %s", contractx.ErrArgumentValidation, strings.Join(msgs, "; "))
	}
	return args, nil
}

func coerce(typ contractx.ParamType, value any) (any, error) {
	switch typ {
	case contractx.ParamString:
		switch value.(type) {
		case map[string]any, []any:
			return nil, fmt.Errorf("expected string, got %T", value)
		}
		s, err := cast.ToStringE(value)
		if err != nil {
			return nil, err
		}
		return strings.TrimSpace(s), nil
	case contractx.ParamInteger:
		return cast.ToInt64E(value)
	case contractx.ParamNumber:
		return cast.ToFloat64E(value)
	case contractx.ParamBoolean:
		return cast.ToBoolE(value)
	default:
		return value, nil
	}
}
