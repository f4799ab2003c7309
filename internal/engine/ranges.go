package engine

import (
	"github.com/TimurManjosov/godecider/internal/rollout"
	"github.com/TimurManjosov/godecider/internal/rules"
)

// rangeMaker enables the feature for identifiers whose bucket falls in [start, end).
// Outside the range it decides "disabled" unless fallthrough is set, in which
// case it has no opinion and the next strategy runs.
type rangeMaker struct {
	feature     string
	shuffle     int
	identifier  string
	rng         rollout.Range
	variant     string
	passThrough bool
}

type rangeParams struct {
	Identifier  string  `param:"identifier"`
	Start       float64 `param:"start"`
	End         float64 `param:"end"`
	Variant     string  `param:"variant"`
	Fallthrough bool    `param:"fallthrough"`
}

func newRangeMaker(feature rules.FeatureConfig, spec rules.StrategySpec) (DecisionMaker, error) {
	var p rangeParams
	if err := decodeParams(spec, &p); err != nil {
		return nil, err
	}
	if p.Identifier == "" {
		return nil, paramError("range needs an identifier")
	}
	rng := rollout.Range{Start: p.Start, End: p.End}
	if err := rng.Validate(); err != nil {
		return nil, err
	}
	return &rangeMaker{
		feature:     feature.Name,
		shuffle:     feature.ShuffleVersion,
		identifier:  p.Identifier,
		rng:         rng,
		variant:     p.Variant,
		passThrough: p.Fallthrough,
	}, nil
}

func (m *rangeMaker) Name() string { return KindRange }

// IdentifierKind implements identified.
func (m *rangeMaker) IdentifierKind() string { return m.identifier }

func (m *rangeMaker) Evaluate(ctx Context) (*Decision, error) {
	raw, ok := ctx.Get(m.identifier)
	if !ok {
		return nil, nil
	}
	id, err := identifierString(raw)
	if err != nil {
		return nil, err
	}

	bucket := rollout.BucketWithShuffle(m.feature, m.shuffle, id)
	if m.rng.Contains(bucket) {
		return bucketedDecision(true, m.variant, m.identifier, id, bucket), nil
	}
	if m.passThrough {
		return nil, nil
	}
	return bucketedDecision(false, "", m.identifier, id, bucket), nil
}
