package engine

import "github.com/TimurManjosov/godecider/internal/rules"

// valueMaker always returns its configured outcome.
type valueMaker struct {
	enabled bool
	variant string
}

type valueParams struct {
	Enabled *bool  `param:"enabled"`
	Variant string `param:"variant"`
}

func newValueMaker(_ rules.FeatureConfig, spec rules.StrategySpec) (DecisionMaker, error) {
	var p valueParams
	if err := decodeParams(spec, &p); err != nil {
		return nil, err
	}
	if p.Enabled == nil && p.Variant == "" {
		return nil, paramError("value needs enabled or variant")
	}

	// a variant alone implies enabled
	enabled := true
	if p.Enabled != nil {
		enabled = *p.Enabled
	}
	return &valueMaker{enabled: enabled, variant: p.Variant}, nil
}

func (m *valueMaker) Name() string { return KindValue }

func (m *valueMaker) Evaluate(Context) (*Decision, error) {
	return staticDecision(m.enabled, m.variant), nil
}
