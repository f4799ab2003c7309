package decider

import (
	"context"
	"errors"
	"testing"

	"github.com/TimurManjosov/godecider/internal/engine"
)

func TestView_PinsTable(t *testing.T) {
	d, src := newDecider(t, flipA)
	v := d.View()
	oldETag := v.ETag()

	src.Set(mustParse(t, flipB))
	if err := d.Reload(context.Background()); err != nil {
		t.Fatalf("Reload() failed: %v", err)
	}

	if v.ETag() != oldETag {
		t.Errorf("Expected view ETag %s, got %s", oldETag, v.ETag())
	}
	if got := len(v.Features()); got != 1 {
		t.Errorf("Expected 1 feature in the pinned view, got %d", got)
	}
	dec, err := v.Choose("flip", engine.Context{})
	if err != nil || dec.Variant != "a" {
		t.Errorf("Expected the old table to decide flip=a, got %+v, %v", dec, err)
	}
	if _, err := v.Feature("extra"); !errors.Is(err, ErrUnknownFeature) {
		t.Errorf("Expected ErrUnknownFeature for a feature of the new table, got %v", err)
	}

	fresh := d.View()
	if fresh.ETag() == oldETag || len(fresh.Features()) != 2 {
		t.Errorf("Expected a new view to see the reloaded table, got %s with %d features", fresh.ETag(), len(fresh.Features()))
	}
}

func TestView_DynamicConfig(t *testing.T) {
	d, _ := newDecider(t, testConfig)
	v := d.View()

	tests := []struct {
		name    string
		typ     engine.ValueType
		value   any
		wantErr error
	}{
		{"max_upload_mb", engine.TypeInteger, int64(25), nil},
		{"retired_promo", engine.TypeString, "", nil},
		{"dark_mode", "", nil, ErrNotDynamicConfig},
		{"missing", "", nil, ErrUnknownFeature},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			typ, value, err := v.DynamicConfig(tt.name)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Expected error %v, got %v", tt.wantErr, err)
			}
			if typ != tt.typ || value != tt.value {
				t.Errorf("Expected %s %v, got %s %v", tt.typ, tt.value, typ, value)
			}
		})
	}
}

func TestExpose(t *testing.T) {
	d, _ := newDecider(t, testConfig)

	dec, err := d.Expose("checkout_experiment", "treatment", userCtx("alice"))
	if err != nil {
		t.Fatalf("Expose() failed: %v", err)
	}
	if dec.Variant != "treatment" || dec.Exposure.DecisionMaker != engine.MakerExpose {
		t.Errorf("unexpected exposure %+v", dec)
	}
	if dec.Exposure.IdentifierValue != "alice" || dec.Exposure.ExperimentID != 42 || !dec.Exposure.EmitEvent {
		t.Errorf("Expected identifier and metadata in exposure, got %+v", dec.Exposure)
	}

	if _, err := d.Expose("missing", "treatment", userCtx("alice")); !errors.Is(err, ErrUnknownFeature) {
		t.Errorf("Expected ErrUnknownFeature, got %v", err)
	}
}

func TestInit_NumericOverrideKeys(t *testing.T) {
	d, _ := newDecider(t, `
features:
  - name: beta
    chain:
      - kind: override
        identifier: user_id
        values: {12345: treatment, qa_tester: control}
`)

	for _, id := range []any{int64(12345), "12345"} {
		dec, err := d.Choose("beta", engine.NewContext(map[string]any{engine.UserID: id}))
		if err != nil {
			t.Fatalf("Choose(%v) failed: %v", id, err)
		}
		if dec.Variant != "treatment" {
			t.Errorf("Expected treatment for user %v, got %q", id, dec.Variant)
		}
	}
}
