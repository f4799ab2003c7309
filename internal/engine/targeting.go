package engine

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/TimurManjosov/godecider/internal/rules"
	"github.com/diegoholiveira/jsonlogic/v3"
)

// targetingMaker decides when a JSON Logic rule (jsonlogic.com) matches the
// context and has no opinion otherwise.
//
// Example:
//
//	{"kind": "targeting", "rule": {"in": [{"var": "country_code"}, ["US", "CA"]]}, "variant": "na"}
type targetingMaker struct {
	rule    []byte
	enabled bool
	variant string
}

type targetingParams struct {
	Rule    any    `param:"rule"`
	Enabled *bool  `param:"enabled"`
	Variant string `param:"variant"`
}

func newTargetingMaker(_ rules.FeatureConfig, spec rules.StrategySpec) (DecisionMaker, error) {
	var p targetingParams
	if err := decodeParams(spec, &p); err != nil {
		return nil, err
	}

	var rule []byte
	switch r := p.Rule.(type) {
	case nil:
		return nil, paramError("targeting needs a rule")
	case string:
		if strings.TrimSpace(r) == "" {
			return nil, paramError("targeting rule is empty")
		}
		rule = []byte(r)
	default:
		plain, ok := plainValue(r)
		if !ok {
			return nil, paramError("targeting rule must be a JSON object")
		}
		b, err := json.Marshal(plain)
		if err != nil {
			return nil, paramError("targeting rule: %v", err)
		}
		rule = b
	}

	if !json.Valid(rule) {
		return nil, paramError("targeting rule is not valid JSON")
	}
	var out bytes.Buffer
	if err := jsonlogic.Apply(bytes.NewReader(rule), strings.NewReader("{}"), &out); err != nil {
		return nil, paramError("targeting rule is not valid JSON Logic: %v", err)
	}

	enabled := true
	if p.Enabled != nil {
		enabled = *p.Enabled
	}
	return &targetingMaker{rule: rule, enabled: enabled, variant: p.Variant}, nil
}

func (m *targetingMaker) Name() string { return KindTargeting }

func (m *targetingMaker) Evaluate(ctx Context) (*Decision, error) {
	data, err := json.Marshal(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedContext, err)
	}

	var out bytes.Buffer
	if err := jsonlogic.Apply(bytes.NewReader(m.rule), bytes.NewReader(data), &out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedContext, err)
	}
	var result any
	if err := json.Unmarshal(out.Bytes(), &result); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedContext, err)
	}

	if !isTruthy(result) {
		return nil, nil
	}
	return staticDecision(m.enabled, m.variant), nil
}

// isTruthy follows JavaScript-like truthiness rules.
func isTruthy(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case bool:
		return val
	case float64:
		return val != 0
	case string:
		return val != ""
	case []any:
		return len(val) > 0
	case map[string]any:
		return len(val) > 0
	default:
		return true
	}
}
