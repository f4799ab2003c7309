package engine

import (
	"fmt"
	"math"
	"strings"

	"github.com/TimurManjosov/godecider/internal/rules"
)

// ValueType is the declared type of a dynamic config value.
type ValueType string

const (
	TypeBoolean ValueType = "boolean"
	TypeInteger ValueType = "integer"
	TypeFloat   ValueType = "float"
	TypeString  ValueType = "string"
	TypeMap     ValueType = "map"
)

// ParseValueType accepts the canonical names plus a few common spellings.
func ParseValueType(s string) (ValueType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "boolean", "bool":
		return TypeBoolean, nil
	case "integer", "int":
		return TypeInteger, nil
	case "float", "number", "double":
		return TypeFloat, nil
	case "string", "str":
		return TypeString, nil
	case "map", "object":
		return TypeMap, nil
	default:
		return "", fmt.Errorf("%w: unknown value type %q", ErrInvalidParams, s)
	}
}

// Zero returns the zero value of t.
func (t ValueType) Zero() any {
	switch t {
	case TypeBoolean:
		return false
	case TypeInteger:
		return int64(0)
	case TypeFloat:
		return 0.0
	case TypeString:
		return ""
	case TypeMap:
		return map[string]any{}
	default:
		return nil
	}
}

// dynamicMaker returns a typed value straight from configuration.
type dynamicMaker struct {
	typ   ValueType
	value any
}

type dynamicParams struct {
	Type  string `param:"type"`
	Value any    `param:"value"`
}

func newDynamicMaker(_ rules.FeatureConfig, spec rules.StrategySpec) (DecisionMaker, error) {
	var p dynamicParams
	if err := decodeParams(spec, &p); err != nil {
		return nil, err
	}
	typ, err := ParseValueType(p.Type)
	if err != nil {
		return nil, err
	}
	if p.Value == nil {
		return nil, paramError("dynamic_config needs a value")
	}
	value, err := CoerceValue(typ, p.Value)
	if err != nil {
		return nil, err
	}
	return &dynamicMaker{typ: typ, value: value}, nil
}

func (m *dynamicMaker) Name() string { return KindDynamicConfig }

// ValueType implements typed.
func (m *dynamicMaker) ValueType() ValueType { return m.typ }

func (m *dynamicMaker) Evaluate(Context) (*Decision, error) {
	d := staticDecision(true, "")
	d.Value = copyValue(m.value)
	return d, nil
}

// CoerceValue converts v to the Go representation of t: bool, int64, float64,
// string or map[string]any. Integers are accepted for floats and integral
// floats for integers.
func CoerceValue(t ValueType, v any) (any, error) {
	switch t {
	case TypeBoolean:
		if b, ok := v.(bool); ok {
			return b, nil
		}
	case TypeInteger:
		n, ok := normalizeValue(v)
		switch i := n.(type) {
		case int64:
			return i, nil
		case float64:
			if ok && i == math.Trunc(i) && math.Abs(i) < 1<<53 {
				return int64(i), nil
			}
		}
	case TypeFloat:
		n, _ := normalizeValue(v)
		switch f := n.(type) {
		case int64:
			return float64(f), nil
		case float64:
			return f, nil
		}
	case TypeString:
		if s, ok := v.(string); ok {
			return s, nil
		}
	case TypeMap:
		if m, ok := stringMap(v); ok {
			return m, nil
		}
	}
	return nil, fmt.Errorf("%w: value %v (%T) is not of type %s", ErrInvalidParams, v, v, t)
}

// stringMap deep-converts YAML and JSON maps into map[string]any.
func stringMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(m))
		for k, val := range m {
			c, ok := plainValue(val)
			if !ok {
				return nil, false
			}
			out[k] = c
		}
		return out, true
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, val := range m {
			key, ok := k.(string)
			if !ok {
				return nil, false
			}
			c, ok := plainValue(val)
			if !ok {
				return nil, false
			}
			out[key] = c
		}
		return out, true
	default:
		return nil, false
	}
}

func plainValue(v any) (any, bool) {
	switch val := v.(type) {
	case nil:
		return nil, true
	case map[string]any, map[any]any:
		return stringMap(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			c, ok := plainValue(item)
			if !ok {
				return nil, false
			}
			out[i] = c
		}
		return out, true
	default:
		if n, ok := normalizeValue(val); ok {
			return n, true
		}
		return nil, false
	}
}

// copyValue deep-copies maps and slices so callers cannot alter the table.
func copyValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = copyValue(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = copyValue(item)
		}
		return out
	default:
		return v
	}
}
