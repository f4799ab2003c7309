// Package rollout provides deterministic bucketing for feature rollouts.
// It hashes a feature name and an identifier value into a stable point in [0, 1)
// and answers range membership questions about that point. This ensures:
//   - Same identifier always gets same result for a feature (deterministic)
//   - Even distribution across the unit interval (uses xxHash algorithm)
//   - Consistency between independent processes loading the same configuration
//   - Widening a range [0, p) only adds identifiers, never removes them
package rollout

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// epsilon absorbs float noise when checking that variant ranges touch.
const epsilon = 1e-9

var (
	// ErrInvalidRange is returned when range bounds fall outside [0, 1] or start >= end.
	ErrInvalidRange = errors.New("invalid range")

	// ErrPartitionGap is returned when variant ranges leave part of [0, 1) uncovered.
	ErrPartitionGap = errors.New("variant ranges leave a gap")

	// ErrPartitionOverlap is returned when two variant ranges overlap.
	ErrPartitionOverlap = errors.New("variant ranges overlap")

	// ErrInvalidVariants is returned for empty, unnamed or duplicate variants.
	ErrInvalidVariants = errors.New("invalid variants")

	// ErrInvalidVariantWeights is returned when variant weights don't sum to 100 or 10000.
	ErrInvalidVariantWeights = errors.New("variant weights must sum to 100 or 10000")
)

// Range is a half-open interval [Start, End) of the unit interval.
type Range struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Validate checks 0 <= Start < End <= 1.
func (r Range) Validate() error {
	if math.IsNaN(r.Start) || math.IsNaN(r.End) {
		return fmt.Errorf("%w: bounds must be numbers", ErrInvalidRange)
	}
	if r.Start < 0 || r.End > 1 {
		return fmt.Errorf("%w: [%g, %g) must lie within [0, 1)", ErrInvalidRange, r.Start, r.End)
	}
	if r.Start >= r.End {
		return fmt.Errorf("%w: start %g must be below end %g", ErrInvalidRange, r.Start, r.End)
	}
	return nil
}

// Contains reports whether bucket falls in [Start, End).
func (r Range) Contains(bucket float64) bool {
	return bucket >= r.Start && bucket < r.End
}

// Width returns End - Start.
func (r Range) Width() float64 { return r.End - r.Start }

// Variant represents one arm of a multi-variant experiment.
type Variant struct {
	Name  string `json:"name"`
	Range Range  `json:"range"`
}

// Partition is a validated set of variants whose ranges cover [0, 1) exactly once.
// Zero-width variants are allowed (a paused arm) and never selected.
type Partition struct {
	variants []Variant // sorted by start, contiguous, zero-width arms removed
	names    []string  // every configured name, in configuration order
}

// NewPartition validates variants and returns the partition they describe.
//
// Rules:
//  1. At least one variant, every name non-empty and unique
//  2. Every range satisfies 0 <= start <= end <= 1
//  3. Non-empty ranges, sorted by start, begin at 0, end at 1 and touch each other
//
// Ranges that touch within a tiny tolerance are snapped together so that every
// bucket in [0, 1) selects exactly one variant.
func NewPartition(variants []Variant) (Partition, error) {
	if len(variants) == 0 {
		return Partition{}, fmt.Errorf("%w: at least one variant is required", ErrInvalidVariants)
	}

	seen := make(map[string]bool, len(variants))
	names := make([]string, 0, len(variants))
	active := make([]Variant, 0, len(variants))
	for _, v := range variants {
		if v.Name == "" {
			return Partition{}, fmt.Errorf("%w: variant name cannot be empty", ErrInvalidVariants)
		}
		if seen[v.Name] {
			return Partition{}, fmt.Errorf("%w: duplicate variant name %q", ErrInvalidVariants, v.Name)
		}
		seen[v.Name] = true
		names = append(names, v.Name)

		r := v.Range
		if math.IsNaN(r.Start) || math.IsNaN(r.End) || r.Start < 0 || r.End > 1 || r.Start > r.End {
			return Partition{}, fmt.Errorf("%w: variant %q has bounds [%g, %g)", ErrInvalidRange, v.Name, r.Start, r.End)
		}
		if r.Width() > 0 {
			active = append(active, v)
		}
	}

	sort.SliceStable(active, func(i, j int) bool {
		return active[i].Range.Start < active[j].Range.Start
	})

	cursor := 0.0
	for i := range active {
		r := active[i].Range
		switch {
		case r.Start > cursor+epsilon:
			return Partition{}, fmt.Errorf("%w: [%g, %g) is not covered", ErrPartitionGap, cursor, r.Start)
		case r.Start < cursor-epsilon:
			return Partition{}, fmt.Errorf("%w: variant %q starts at %g before %g", ErrPartitionOverlap, active[i].Name, r.Start, cursor)
		}
		active[i].Range.Start = cursor
		cursor = r.End
	}
	if cursor < 1-epsilon {
		return Partition{}, fmt.Errorf("%w: [%g, 1) is not covered", ErrPartitionGap, cursor)
	}
	if len(active) > 0 {
		active[len(active)-1].Range.End = 1
	}

	return Partition{variants: active, names: names}, nil
}

// Select returns the variant whose range contains bucket.
// Returns false only for buckets outside [0, 1).
func (p Partition) Select(bucket float64) (string, bool) {
	if bucket < 0 || bucket >= 1 {
		return "", false
	}
	for _, v := range p.variants {
		if bucket < v.Range.End {
			return v.Name, true
		}
	}
	return "", false
}

// Names returns every configured variant name, including zero-width ones.
func (p Partition) Names() []string {
	out := make([]string, len(p.names))
	copy(out, p.names)
	return out
}

// Variants returns the non-empty variants in bucket order.
func (p Partition) Variants() []Variant {
	out := make([]Variant, len(p.variants))
	copy(out, p.variants)
	return out
}

// WeightedVariant is a variant expressed as an integer weight instead of a range.
type WeightedVariant struct {
	Name   string `json:"name"`
	Weight int    `json:"weight"`
}

// FromWeights converts integer weights into contiguous ranges.
// Weights must be non-negative and sum to exactly 100 (percent) or 10000 (basis points).
//
// Example: [A:50, B:30, C:20]
//   - A → [0.0, 0.5)
//   - B → [0.5, 0.8)
//   - C → [0.8, 1.0)
func FromWeights(weighted []WeightedVariant) ([]Variant, error) {
	if len(weighted) == 0 {
		return nil, fmt.Errorf("%w: at least one variant is required", ErrInvalidVariants)
	}

	total := 0
	for _, w := range weighted {
		if w.Weight < 0 {
			return nil, fmt.Errorf("%w: variant %q has negative weight %d", ErrInvalidVariantWeights, w.Name, w.Weight)
		}
		total += w.Weight
	}
	if total != 100 && total != 10000 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidVariantWeights, total)
	}

	variants := make([]Variant, 0, len(weighted))
	cumulative := 0
	for _, w := range weighted {
		start := float64(cumulative) / float64(total)
		cumulative += w.Weight
		end := float64(cumulative) / float64(total)
		variants = append(variants, Variant{Name: w.Name, Range: Range{Start: start, End: end}})
	}
	return variants, nil
}
