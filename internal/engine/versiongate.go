package engine

import (
	"fmt"

	"github.com/Masterminds/semver/v3"
	"github.com/TimurManjosov/godecider/internal/rules"
)

// versionGateMaker decides when a semantic version in the context satisfies a
// constraint such as ">= 2.3.0, < 3". It has no opinion when the version is
// missing or outside the constraint.
type versionGateMaker struct {
	identifier string
	constraint *semver.Constraints
	enabled    bool
	variant    string
}

type versionGateParams struct {
	Identifier string `param:"identifier"`
	Constraint string `param:"constraint"`
	Enabled    *bool  `param:"enabled"`
	Variant    string `param:"variant"`
}

func newVersionGateMaker(_ rules.FeatureConfig, spec rules.StrategySpec) (DecisionMaker, error) {
	var p versionGateParams
	if err := decodeParams(spec, &p); err != nil {
		return nil, err
	}
	if p.Identifier == "" {
		p.Identifier = AppVersion
	}
	if p.Constraint == "" {
		return nil, paramError("version_gate needs a constraint")
	}
	c, err := semver.NewConstraint(p.Constraint)
	if err != nil {
		return nil, paramError("version_gate constraint %q: %v", p.Constraint, err)
	}

	enabled := true
	if p.Enabled != nil {
		enabled = *p.Enabled
	}
	return &versionGateMaker{identifier: p.Identifier, constraint: c, enabled: enabled, variant: p.Variant}, nil
}

func (m *versionGateMaker) Name() string { return KindVersionGate }

// IdentifierKind implements identified.
func (m *versionGateMaker) IdentifierKind() string { return m.identifier }

func (m *versionGateMaker) Evaluate(ctx Context) (*Decision, error) {
	raw, ok := ctx.Get(m.identifier)
	if !ok {
		return nil, nil
	}
	s, ok := raw.(string)
	if !ok {
		return nil, fmt.Errorf("%w: %s must be a version string, got %T", ErrMalformedContext, m.identifier, raw)
	}
	if s == "" {
		return nil, ErrInvalidIdentifier
	}
	v, err := semver.NewVersion(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %q: %v", ErrMalformedContext, m.identifier, s, err)
	}

	if !m.constraint.Check(v) {
		return nil, nil
	}
	d := staticDecision(m.enabled, m.variant)
	d.Exposure.Identifier = m.identifier
	d.Exposure.IdentifierValue = s
	return d, nil
}
