package rules

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"gopkg.in/yaml.v3"
)

// Document is one parsed configuration source: every feature the decider knows.
type Document struct {
	Features []FeatureConfig `json:"features" yaml:"features"`
}

// FeatureConfig is the static definition of one feature.
// Chain is evaluated in order; the first strategy with an opinion wins.
// ID, Version, Owner and EmitEvent are metadata for exposure logging only.
type FeatureConfig struct {
	Name           string         `json:"name" yaml:"name"`
	ID             int64          `json:"id,omitempty" yaml:"id,omitempty"`
	Version        string         `json:"version,omitempty" yaml:"version,omitempty"`
	Owner          string         `json:"owner,omitempty" yaml:"owner,omitempty"`
	EmitEvent      bool           `json:"emit_event,omitempty" yaml:"emit_event,omitempty"`
	Enabled        *bool          `json:"enabled,omitempty" yaml:"enabled,omitempty"` // nil means enabled
	StartTS        int64          `json:"start_ts,omitempty" yaml:"start_ts,omitempty"`
	StopTS         int64          `json:"stop_ts,omitempty" yaml:"stop_ts,omitempty"`
	ShuffleVersion int            `json:"shuffle_version,omitempty" yaml:"shuffle_version,omitempty"`
	Chain          []StrategySpec `json:"chain" yaml:"chain"`
}

// IsEnabled reports the feature's kill switch; features are enabled unless set otherwise.
func (f FeatureConfig) IsEnabled() bool {
	return f.Enabled == nil || *f.Enabled
}

// ActiveAt reports whether the feature should run its chain at now.
// A zero StartTS or StopTS leaves that side of the window open.
func (f FeatureConfig) ActiveAt(now time.Time) bool {
	if !f.IsEnabled() {
		return false
	}
	ts := now.Unix()
	if f.StartTS != 0 && ts < f.StartTS {
		return false
	}
	if f.StopTS != 0 && ts >= f.StopTS {
		return false
	}
	return true
}

// StrategySpec names a decision-maker kind and carries its parameters.
// In documents the kind and the parameters share one object:
//
//	{"kind": "range", "identifier": "user_id", "start": 0, "end": 0.5}
type StrategySpec struct {
	Kind   string
	Params map[string]any
}

// Param returns a parameter by name.
func (s StrategySpec) Param(name string) (any, bool) {
	v, ok := s.Params[name]
	return v, ok
}

func (s *StrategySpec) fromMap(raw map[string]any) error {
	kind, _ := raw["kind"].(string)
	if _, ok := raw["kind"]; ok && kind == "" {
		return fmt.Errorf("%w: strategy kind must be a non-empty string", ErrMalformedDocument)
	}
	params := make(map[string]any, len(raw))
	for k, v := range raw {
		if k == "kind" {
			continue
		}
		params[k] = v
	}
	s.Kind = kind
	s.Params = params
	return nil
}

func (s StrategySpec) toMap() map[string]any {
	out := make(map[string]any, len(s.Params)+1)
	for k, v := range s.Params {
		out[k] = v
	}
	out["kind"] = s.Kind
	return out
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *StrategySpec) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	return s.fromMap(raw)
}

// MarshalJSON implements json.Marshaler.
func (s StrategySpec) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.toMap())
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (s *StrategySpec) UnmarshalYAML(node *yaml.Node) error {
	var raw map[string]any
	if err := node.Decode(&raw); err != nil {
		return err
	}
	for k, v := range raw {
		raw[k] = stringKeys(v)
	}
	return s.fromMap(raw)
}

// stringKeys rewrites YAML mappings with non-string keys, such as the
// unquoted numeric ids of an override table, into JSON-compatible maps.
func stringKeys(v any) any {
	switch t := v.(type) {
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[fmt.Sprint(k)] = stringKeys(val)
		}
		return out
	case map[string]any:
		for k, val := range t {
			t[k] = stringKeys(val)
		}
		return t
	case []any:
		for i, val := range t {
			t[i] = stringKeys(val)
		}
		return t
	default:
		return v
	}
}

// MarshalYAML implements yaml.Marshaler.
func (s StrategySpec) MarshalYAML() (any, error) {
	return s.toMap(), nil
}

// Names returns the feature names of the document in sorted order.
func (d *Document) Names() []string {
	names := make([]string, 0, len(d.Features))
	for _, f := range d.Features {
		names = append(names, f.Name)
	}
	sort.Strings(names)
	return names
}
