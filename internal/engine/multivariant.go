package engine

import (
	"math"

	"github.com/TimurManjosov/godecider/internal/rollout"
	"github.com/TimurManjosov/godecider/internal/rules"
)

// multiVariantMaker assigns every identifier to exactly one variant.
type multiVariantMaker struct {
	feature    string
	shuffle    int
	identifier string
	partition  rollout.Partition
}

type variantParam struct {
	Name   string   `param:"name"`
	Start  *float64 `param:"start"`
	End    *float64 `param:"end"`
	Weight *float64 `param:"weight"`
}

type multiVariantParams struct {
	Identifier string         `param:"identifier"`
	Variants   []variantParam `param:"variants"`
}

func newMultiVariantMaker(feature rules.FeatureConfig, spec rules.StrategySpec) (DecisionMaker, error) {
	var p multiVariantParams
	if err := decodeParams(spec, &p); err != nil {
		return nil, err
	}
	if p.Identifier == "" {
		return nil, paramError("multi_variant needs an identifier")
	}

	variants, err := variantRanges(p.Variants)
	if err != nil {
		return nil, err
	}
	partition, err := rollout.NewPartition(variants)
	if err != nil {
		return nil, err
	}
	return &multiVariantMaker{
		feature:    feature.Name,
		shuffle:    feature.ShuffleVersion,
		identifier: p.Identifier,
		partition:  partition,
	}, nil
}

// variantRanges accepts variants given either all as ranges or all as weights.
func variantRanges(params []variantParam) ([]rollout.Variant, error) {
	if len(params) == 0 {
		return nil, paramError("multi_variant needs at least one variant")
	}

	weighted := params[0].Weight != nil
	for _, v := range params {
		hasRange := v.Start != nil || v.End != nil
		switch {
		case weighted && (hasRange || v.Weight == nil):
			return nil, paramError("variant %q: variants must all use weights or all use ranges", v.Name)
		case !weighted && v.Weight != nil:
			return nil, paramError("variant %q: variants must all use weights or all use ranges", v.Name)
		case !weighted && (v.Start == nil || v.End == nil):
			return nil, paramError("variant %q needs start and end", v.Name)
		}
	}

	if weighted {
		ws := make([]rollout.WeightedVariant, 0, len(params))
		for _, v := range params {
			w := *v.Weight
			if w != math.Trunc(w) || math.IsInf(w, 0) {
				return nil, paramError("variant %q: weight %v must be a whole number", v.Name, w)
			}
			ws = append(ws, rollout.WeightedVariant{Name: v.Name, Weight: int(w)})
		}
		return rollout.FromWeights(ws)
	}

	out := make([]rollout.Variant, 0, len(params))
	for _, v := range params {
		out = append(out, rollout.Variant{Name: v.Name, Range: rollout.Range{Start: *v.Start, End: *v.End}})
	}
	return out, nil
}

func (m *multiVariantMaker) Name() string { return KindMultiVariant }

// IdentifierKind implements identified.
func (m *multiVariantMaker) IdentifierKind() string { return m.identifier }

// Variants returns every configured variant name.
func (m *multiVariantMaker) Variants() []string { return m.partition.Names() }

func (m *multiVariantMaker) Evaluate(ctx Context) (*Decision, error) {
	raw, ok := ctx.Get(m.identifier)
	if !ok {
		return nil, nil
	}
	id, err := identifierString(raw)
	if err != nil {
		return nil, err
	}

	bucket := rollout.BucketWithShuffle(m.feature, m.shuffle, id)
	variant, ok := m.partition.Select(bucket)
	if !ok {
		return nil, nil
	}
	return bucketedDecision(true, variant, m.identifier, id, bucket), nil
}
