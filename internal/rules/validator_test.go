package rules

import (
	"errors"
	"strings"
	"testing"
)

func valueSpec() StrategySpec {
	return StrategySpec{Kind: "value", Params: map[string]any{"enabled": true}}
}

func TestValidateDocument_Valid(t *testing.T) {
	doc := &Document{Features: []FeatureConfig{
		{Name: "dark_mode", Chain: []StrategySpec{valueSpec()}},
		{Name: "search.v2", Chain: []StrategySpec{valueSpec()}, StartTS: 10, StopTS: 20},
	}}
	if err := ValidateDocument(doc); err != nil {
		t.Errorf("Expected valid document, got %v", err)
	}
}

func TestValidateDocument_Duplicate(t *testing.T) {
	doc := &Document{Features: []FeatureConfig{
		{Name: "dark_mode", Chain: []StrategySpec{valueSpec()}},
		{Name: "dark_mode", Chain: []StrategySpec{valueSpec()}},
	}}
	err := ValidateDocument(doc)
	if !errors.Is(err, ErrDuplicateFeature) {
		t.Fatalf("Expected ErrDuplicateFeature, got %v", err)
	}

	var fe *FeatureError
	if !errors.As(err, &fe) || fe.Feature != "dark_mode" {
		t.Errorf("Expected FeatureError for dark_mode, got %v", err)
	}
}

func TestValidateDocument_Nil(t *testing.T) {
	if err := ValidateDocument(nil); !errors.Is(err, ErrMalformedDocument) {
		t.Errorf("Expected ErrMalformedDocument, got %v", err)
	}
}

func TestValidateFeature_Errors(t *testing.T) {
	tests := []struct {
		name    string
		feature FeatureConfig
		index   int
	}{
		{"empty name", FeatureConfig{Name: " ", Chain: []StrategySpec{valueSpec()}}, -1},
		{"long name", FeatureConfig{Name: strings.Repeat("a", MaxNameLength+1), Chain: []StrategySpec{valueSpec()}}, -1},
		{"bad characters", FeatureConfig{Name: "dark mode!", Chain: []StrategySpec{valueSpec()}}, -1},
		{"empty chain", FeatureConfig{Name: "dark_mode"}, -1},
		{"missing kind", FeatureConfig{Name: "dark_mode", Chain: []StrategySpec{valueSpec(), {}}}, 1},
		{"inverted window", FeatureConfig{Name: "dark_mode", Chain: []StrategySpec{valueSpec()}, StartTS: 20, StopTS: 10}, -1},
		{"negative timestamp", FeatureConfig{Name: "dark_mode", Chain: []StrategySpec{valueSpec()}, StartTS: -1}, -1},
		{"negative shuffle", FeatureConfig{Name: "dark_mode", Chain: []StrategySpec{valueSpec()}, ShuffleVersion: -1}, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateFeature(tt.feature)
			if !errors.Is(err, ErrInvalidFeature) {
				t.Fatalf("Expected ErrInvalidFeature, got %v", err)
			}
			var fe *FeatureError
			if !errors.As(err, &fe) {
				t.Fatalf("Expected *FeatureError, got %T", err)
			}
			if fe.Index != tt.index {
				t.Errorf("Index = %d, want %d", fe.Index, tt.index)
			}
		})
	}
}

func TestFeatureError_Message(t *testing.T) {
	err := &FeatureError{Feature: "dark_mode", Index: 2, Err: ErrInvalidFeature}
	if got := err.Error(); got != `feature "dark_mode" chain[2]: invalid feature` {
		t.Errorf("Error() = %q", got)
	}
	err.Index = -1
	if got := err.Error(); got != `feature "dark_mode": invalid feature` {
		t.Errorf("Error() = %q", got)
	}
}
