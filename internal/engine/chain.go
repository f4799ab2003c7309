package engine

import (
	"time"

	"github.com/TimurManjosov/godecider/internal/rollout"
	"github.com/TimurManjosov/godecider/internal/rules"
)

// identified is implemented by strategies that bucket or match on one identifier kind.
type identified interface {
	IdentifierKind() string
}

// typed is implemented by strategies that return a dynamic config value.
type typed interface {
	ValueType() ValueType
}

// Feature is a compiled feature: its definition plus the ready-to-run chain.
// A Feature is immutable and safe for concurrent use.
type Feature struct {
	config rules.FeatureConfig
	makers []DecisionMaker
}

// Compile validates cfg and builds every strategy of its chain with reg.
// Errors are *rules.FeatureError values naming the failing chain position.
func Compile(reg *Registry, cfg rules.FeatureConfig) (*Feature, error) {
	if err := rules.ValidateFeature(cfg); err != nil {
		return nil, err
	}

	makers := make([]DecisionMaker, 0, len(cfg.Chain))
	for i, spec := range cfg.Chain {
		m, err := reg.Build(cfg, spec)
		if err != nil {
			return nil, &rules.FeatureError{Feature: cfg.Name, Index: i, Err: err}
		}
		makers = append(makers, m)
	}
	return &Feature{config: cfg, makers: makers}, nil
}

// Name returns the feature name.
func (f *Feature) Name() string { return f.config.Name }

// Config returns the feature definition.
func (f *Feature) Config() rules.FeatureConfig { return f.config }

// Identifier returns the identifier kind the feature buckets on, or "" when
// no strategy of its chain uses one.
func (f *Feature) Identifier() string {
	for _, m := range f.makers {
		if id, ok := m.(identified); ok && id.IdentifierKind() != "" {
			return id.IdentifierKind()
		}
	}
	return ""
}

// DynamicType returns the value type when the feature is a dynamic config.
func (f *Feature) DynamicType() (ValueType, bool) {
	for _, m := range f.makers {
		if t, ok := m.(typed); ok {
			return t.ValueType(), true
		}
	}
	return "", false
}

// Variants returns the variant names of the feature's experiment, if any.
func (f *Feature) Variants() []string {
	for _, m := range f.makers {
		if mv, ok := m.(*multiVariantMaker); ok {
			return mv.Variants()
		}
	}
	return nil
}

// Evaluate runs the chain against ctx. The first strategy that decides or
// fails ends the chain. When none decides, or the feature is inactive at now,
// the result is disabled with no variant.
func (f *Feature) Evaluate(ctx Context, now time.Time) (Decision, error) {
	if !f.config.ActiveAt(now) {
		return f.finish(Decision{}, MakerInactive), nil
	}

	for _, m := range f.makers {
		d, err := m.Evaluate(ctx)
		if err != nil {
			evalErr := &EvalError{Feature: f.config.Name, DecisionMaker: m.Name(), Err: err}
			if id, ok := m.(identified); ok {
				evalErr.Identifier = id.IdentifierKind()
			}
			return Decision{}, evalErr
		}
		if d != nil {
			return f.finish(*d, m.Name()), nil
		}
	}
	return f.finish(Decision{}, MakerDefault), nil
}

func (f *Feature) finish(d Decision, maker string) Decision {
	d.Feature = f.config.Name
	if maker == MakerDefault || maker == MakerInactive {
		d.Exposure.Bucket = rollout.NoBucket
	}
	d.Exposure.DecisionMaker = maker
	d.Exposure.ExperimentID = f.config.ID
	d.Exposure.Version = f.config.Version
	d.Exposure.Owner = f.config.Owner
	d.Exposure.EmitEvent = f.config.EmitEvent
	d.Exposure.StartTS = f.config.StartTS
	d.Exposure.StopTS = f.config.StopTS
	return d
}

// Expose builds the exposure of a variant the caller already assigned, for
// callers that chose without exposing and record the exposure later. The
// identifier value is taken from ctx when it carries the feature's identifier.
func (f *Feature) Expose(variant string, ctx Context) Decision {
	d := Decision{Enabled: variant != "", Variant: variant}
	if kind := f.Identifier(); kind != "" {
		d.Exposure.Identifier = kind
		if raw, ok := ctx.Get(kind); ok {
			if id, err := identifierString(raw); err == nil {
				d.Exposure.IdentifierValue = id
			}
		}
	}
	d = f.finish(d, MakerExpose)
	d.Exposure.Bucket = rollout.NoBucket
	return d
}
