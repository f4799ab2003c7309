package rules

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

const checkoutYAML = `
features:
  - name: checkout_experiment
    id: 42
    version: "3"
    owner: payments
    emit_event: true
    chain:
      - kind: override
        identifier: user_id
        values:
          qa_tester: treatment
      - kind: multi_variant
        identifier: user_id
        variants:
          - {name: control, start: 0.0, end: 0.5}
          - {name: treatment, start: 0.5, end: 1.0}
`

func TestParse_YAML(t *testing.T) {
	doc, err := Parse([]byte(checkoutYAML), FormatYAML)
	if err != nil {
		t.Fatalf("Parse() failed: %v", err)
	}
	if len(doc.Features) != 1 {
		t.Fatalf("Expected 1 feature, got %d", len(doc.Features))
	}

	f := doc.Features[0]
	if f.Name != "checkout_experiment" || f.ID != 42 || f.Version != "3" || f.Owner != "payments" || !f.EmitEvent {
		t.Errorf("metadata not decoded: %+v", f)
	}
	if len(f.Chain) != 2 {
		t.Fatalf("Expected 2 strategies, got %d", len(f.Chain))
	}
	if f.Chain[0].Kind != "override" {
		t.Errorf("Expected first kind override, got %q", f.Chain[0].Kind)
	}
	if _, ok := f.Chain[0].Param("kind"); ok {
		t.Error("kind must not be left in params")
	}
	values, ok := f.Chain[0].Params["values"].(map[string]any)
	if !ok || values["qa_tester"] != "treatment" {
		t.Errorf("override values not decoded: %#v", f.Chain[0].Params["values"])
	}
}

func TestParse_YAMLNumericKeys(t *testing.T) {
	doc, err := Parse([]byte(`
features:
  - name: checkout
    chain:
      - kind: override
        identifier: user_id
        values: {12345: treatment, true: control}
`), FormatYAML)
	if err != nil {
		t.Fatalf("Parse() failed: %v", err)
	}

	values, ok := doc.Features[0].Chain[0].Params["values"].(map[string]any)
	if !ok {
		t.Fatalf("Expected string-keyed values, got %#v", doc.Features[0].Chain[0].Params["values"])
	}
	if values["12345"] != "treatment" || values["true"] != "control" {
		t.Errorf("Unexpected values %#v", values)
	}
	if _, err := json.Marshal(doc); err != nil {
		t.Errorf("Document should be JSON encodable: %v", err)
	}
}

func TestParse_JSON(t *testing.T) {
	data := `{"features": [{"name": "dark_mode", "chain": [{"kind": "range", "identifier": "user_id", "start": 0, "end": 0.5}]}]}`
	doc, err := Parse([]byte(data), FormatJSON)
	if err != nil {
		t.Fatalf("Parse() failed: %v", err)
	}
	spec := doc.Features[0].Chain[0]
	if spec.Kind != "range" {
		t.Errorf("Expected kind range, got %q", spec.Kind)
	}
	if spec.Params["end"] != 0.5 {
		t.Errorf("Expected end 0.5, got %v", spec.Params["end"])
	}
}

func TestParse_UnknownFieldRejected(t *testing.T) {
	data := `{"features": [{"name": "dark_mode", "colour": "blue", "chain": [{"kind": "value", "enabled": true}]}]}`
	_, err := Parse([]byte(data), FormatJSON)
	if !errors.Is(err, ErrMalformedDocument) {
		t.Errorf("Expected ErrMalformedDocument, got %v", err)
	}

	yamlData := "features:\n  - name: dark_mode\n    colour: blue\n    chain: [{kind: value, enabled: true}]\n"
	_, err = Parse([]byte(yamlData), FormatYAML)
	if !errors.Is(err, ErrMalformedDocument) {
		t.Errorf("Expected ErrMalformedDocument for YAML, got %v", err)
	}
}

func TestParse_WrongType(t *testing.T) {
	// id must be numeric
	data := `{"features": [{"name": "test", "id": "1", "chain": [{"kind": "value", "enabled": true}]}]}`
	_, err := Parse([]byte(data), FormatJSON)
	if !errors.Is(err, ErrMalformedDocument) {
		t.Errorf("Expected ErrMalformedDocument, got %v", err)
	}
}

func TestParse_Empty(t *testing.T) {
	if _, err := Parse(nil, FormatJSON); !errors.Is(err, ErrMalformedDocument) {
		t.Errorf("Expected ErrMalformedDocument for empty JSON, got %v", err)
	}
	if _, err := Parse([]byte(""), FormatYAML); !errors.Is(err, ErrMalformedDocument) {
		t.Errorf("Expected ErrMalformedDocument for empty YAML, got %v", err)
	}
}

func TestParse_EmptyKind(t *testing.T) {
	data := `{"features": [{"name": "test", "chain": [{"kind": ""}]}]}`
	if _, err := Parse([]byte(data), FormatJSON); !errors.Is(err, ErrMalformedDocument) {
		t.Errorf("Expected ErrMalformedDocument, got %v", err)
	}
}

func TestParseFeature(t *testing.T) {
	f, err := ParseFeature([]byte(`{"name": "row_feature", "chain": [{"kind": "value", "enabled": false}]}`))
	if err != nil {
		t.Fatalf("ParseFeature() failed: %v", err)
	}
	if f.Name != "row_feature" || f.Chain[0].Params["enabled"] != false {
		t.Errorf("unexpected feature: %+v", f)
	}

	if _, err := ParseFeature([]byte(`{"name":`)); !errors.Is(err, ErrMalformedDocument) {
		t.Errorf("Expected ErrMalformedDocument, got %v", err)
	}
}

func TestFormatFromPath(t *testing.T) {
	cases := map[string]Format{
		"features.yaml": FormatYAML,
		"features.YML":  FormatYAML,
		"features.json": FormatJSON,
		"features":      FormatJSON,
	}
	for path, want := range cases {
		if got := FormatFromPath(path); got != want {
			t.Errorf("FormatFromPath(%q) = %q, want %q", path, got, want)
		}
	}
}

func TestStrategySpec_JSONKeepsKind(t *testing.T) {
	spec := StrategySpec{Kind: "value", Params: map[string]any{"enabled": true}}
	data, err := json.Marshal(spec)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded StrategySpec
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.Kind != "value" || decoded.Params["enabled"] != true {
		t.Errorf("unexpected spec: %+v", decoded)
	}
}

func TestFeatureConfig_ActiveAt(t *testing.T) {
	off := false
	now := time.Unix(1000, 0)

	tests := []struct {
		name string
		f    FeatureConfig
		want bool
	}{
		{"default", FeatureConfig{}, true},
		{"disabled", FeatureConfig{Enabled: &off}, false},
		{"inside window", FeatureConfig{StartTS: 500, StopTS: 2000}, true},
		{"before start", FeatureConfig{StartTS: 1001}, false},
		{"at stop", FeatureConfig{StopTS: 1000}, false},
		{"open start", FeatureConfig{StopTS: 1001}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.f.ActiveAt(now); got != tt.want {
				t.Errorf("ActiveAt() = %v, want %v", got, tt.want)
			}
		})
	}
}
