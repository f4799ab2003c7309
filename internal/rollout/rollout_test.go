package rollout

import (
	"errors"
	"strconv"
	"testing"
)

func TestRangeValidate(t *testing.T) {
	tests := []struct {
		name    string
		r       Range
		wantErr bool
	}{
		{"full", Range{0, 1}, false},
		{"half", Range{0, 0.5}, false},
		{"tail", Range{0.5, 1}, false},
		{"empty", Range{0.3, 0.3}, true},
		{"inverted", Range{0.6, 0.2}, true},
		{"negative start", Range{-0.1, 0.5}, true},
		{"end above one", Range{0.5, 1.2}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.r.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidRange) {
				t.Errorf("Expected ErrInvalidRange, got %v", err)
			}
		})
	}
}

func TestRangeContains(t *testing.T) {
	r := Range{Start: 0.2, End: 0.5}
	if !r.Contains(0.2) {
		t.Error("Start bound should be inclusive")
	}
	if r.Contains(0.5) {
		t.Error("End bound should be exclusive")
	}
	if r.Contains(0.1) || r.Contains(0.9) {
		t.Error("Buckets outside the range should not be contained")
	}
}

func TestRange_PercentageAccuracy(t *testing.T) {
	r := Range{Start: 0, End: 0.3}
	total := 100000
	hits := 0
	for i := 0; i < total; i++ {
		if r.Contains(Bucket("accuracy_check", "id-"+strconv.Itoa(i))) {
			hits++
		}
	}

	fraction := float64(hits) / float64(total)
	if fraction < 0.29 || fraction > 0.31 {
		t.Errorf("Expected ~30%% in range, got %.4f", fraction)
	}
}

func TestNewPartition_Valid(t *testing.T) {
	p, err := NewPartition([]Variant{
		{Name: "treatment", Range: Range{0.5, 1.0}},
		{Name: "control", Range: Range{0, 0.5}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got, _ := p.Select(0.1); got != "control" {
		t.Errorf("Select(0.1) = %q, want control", got)
	}
	if got, _ := p.Select(0.5); got != "treatment" {
		t.Errorf("Select(0.5) = %q, want treatment", got)
	}
	if got, _ := p.Select(0.999999); got != "treatment" {
		t.Errorf("Select(0.999999) = %q, want treatment", got)
	}
	if names := p.Names(); len(names) != 2 || names[0] != "treatment" {
		t.Errorf("Names() should keep configuration order, got %v", names)
	}
}

func TestNewPartition_ZeroWidthVariant(t *testing.T) {
	p, err := NewPartition([]Variant{
		{Name: "holdout", Range: Range{0, 1}},
		{Name: "control_1", Range: Range{0, 0}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(p.Variants()) != 1 {
		t.Errorf("Expected zero-width variant to be inactive, got %v", p.Variants())
	}
	if got, _ := p.Select(0); got != "holdout" {
		t.Errorf("Select(0) = %q, want holdout", got)
	}
}

func TestNewPartition_SnapsFloatNoise(t *testing.T) {
	p, err := NewPartition([]Variant{
		{Name: "a", Range: Range{0, 0.1 + 0.2}},
		{Name: "b", Range: Range{0.3, 1}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Every bucket around the seam must resolve to some variant.
	for _, b := range []float64{0.29999999999, 0.3, 0.30000000000000004, 0.3000001} {
		if _, ok := p.Select(b); !ok {
			t.Errorf("Select(%v) found no variant", b)
		}
	}
}

func TestNewPartition_Errors(t *testing.T) {
	tests := []struct {
		name     string
		variants []Variant
		want     error
	}{
		{"empty", nil, ErrInvalidVariants},
		{"unnamed", []Variant{{Name: "", Range: Range{0, 1}}}, ErrInvalidVariants},
		{"duplicate", []Variant{{Name: "a", Range: Range{0, 0.5}}, {Name: "a", Range: Range{0.5, 1}}}, ErrInvalidVariants},
		{"gap in middle", []Variant{{Name: "a", Range: Range{0, 0.4}}, {Name: "b", Range: Range{0.5, 1}}}, ErrPartitionGap},
		{"gap at start", []Variant{{Name: "a", Range: Range{0.1, 1}}}, ErrPartitionGap},
		{"gap at end", []Variant{{Name: "a", Range: Range{0, 0.2}}, {Name: "b", Range: Range{0.2, 0.8}}}, ErrPartitionGap},
		{"overlap", []Variant{{Name: "a", Range: Range{0, 0.6}}, {Name: "b", Range: Range{0.5, 1}}}, ErrPartitionOverlap},
		{"out of bounds", []Variant{{Name: "a", Range: Range{0, 1.5}}}, ErrInvalidRange},
		{"inverted", []Variant{{Name: "a", Range: Range{0.5, 0.2}}, {Name: "b", Range: Range{0, 1}}}, ErrInvalidRange},
		{"only zero width", []Variant{{Name: "a", Range: Range{0, 0}}}, ErrPartitionGap},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewPartition(tt.variants)
			if !errors.Is(err, tt.want) {
				t.Errorf("NewPartition() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestPartition_Completeness(t *testing.T) {
	p, err := NewPartition([]Variant{
		{Name: "control_1", Range: Range{0.0, 0.2}},
		{Name: "control_2", Range: Range{0.2, 0.4}},
		{Name: "variant_2", Range: Range{0.4, 0.6}},
		{Name: "variant_3", Range: Range{0.6, 0.8}},
		{Name: "variant_4", Range: Range{0.8, 1.0}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for i := 0; i < 10000; i++ {
		b := Bucket("exp_1", "t2_"+strconv.Itoa(i))
		if _, ok := p.Select(b); !ok {
			t.Fatalf("bucket %v resolved to no variant", b)
		}
	}
}

func TestFromWeights(t *testing.T) {
	variants, err := FromWeights([]WeightedVariant{
		{Name: "control", Weight: 50},
		{Name: "treatment", Weight: 30},
		{Name: "premium", Weight: 20},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []Range{{0, 0.5}, {0.5, 0.8}, {0.8, 1}}
	for i, v := range variants {
		if v.Range != want[i] {
			t.Errorf("variant %s range = %v, want %v", v.Name, v.Range, want[i])
		}
	}
}

func TestFromWeights_BasisPoints(t *testing.T) {
	variants, err := FromWeights([]WeightedVariant{
		{Name: "a", Weight: 2500},
		{Name: "b", Weight: 7500},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if variants[0].Range.End != 0.25 {
		t.Errorf("Expected first range to end at 0.25, got %v", variants[0].Range.End)
	}
}

func TestFromWeights_InvalidSum(t *testing.T) {
	_, err := FromWeights([]WeightedVariant{
		{Name: "control", Weight: 50},
		{Name: "experiment", Weight: 30},
	})
	if !errors.Is(err, ErrInvalidVariantWeights) {
		t.Errorf("Expected ErrInvalidVariantWeights, got %v", err)
	}
}

func TestFromWeights_NegativeWeight(t *testing.T) {
	_, err := FromWeights([]WeightedVariant{
		{Name: "control", Weight: -10},
		{Name: "experiment", Weight: 110},
	})
	if !errors.Is(err, ErrInvalidVariantWeights) {
		t.Errorf("Expected ErrInvalidVariantWeights, got %v", err)
	}
}

func TestPartition_Distribution(t *testing.T) {
	variants, _ := FromWeights([]WeightedVariant{
		{Name: "control", Weight: 50},
		{Name: "treatment", Weight: 30},
		{Name: "premium", Weight: 20},
	})
	p, err := NewPartition(variants)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	counts := map[string]int{}
	total := 10000
	for i := 0; i < total; i++ {
		name, _ := p.Select(Bucket("feature_x", "user-"+strconv.Itoa(i)))
		counts[name]++
	}

	checkVariantDistribution(t, counts, "control", 50, total)
	checkVariantDistribution(t, counts, "treatment", 30, total)
	checkVariantDistribution(t, counts, "premium", 20, total)
}

func checkVariantDistribution(t *testing.T, counts map[string]int, name string, expectedPct int, total int) {
	t.Helper()
	count := counts[name]
	actualPct := float64(count) / float64(total) * 100
	minPct := float64(expectedPct) - 5
	maxPct := float64(expectedPct) + 5

	if actualPct < minPct || actualPct > maxPct {
		t.Errorf("Variant %s: expected ~%d%%, got %.2f%% (%d/%d)", name, expectedPct, actualPct, count, total)
	}
}
