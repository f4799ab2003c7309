package engine

import "github.com/TimurManjosov/godecider/internal/rules"

// overrideMaker pins explicit identifier values to a variant, bypassing buckets.
// An empty variant in the table means "enabled, no variant".
type overrideMaker struct {
	identifier string
	values     map[string]string
	enabled    bool
}

type overrideParams struct {
	Identifier string         `param:"identifier"`
	Values     map[any]string `param:"values"`
	Enabled    *bool          `param:"enabled"`
}

func newOverrideMaker(_ rules.FeatureConfig, spec rules.StrategySpec) (DecisionMaker, error) {
	var p overrideParams
	if err := decodeParams(spec, &p); err != nil {
		return nil, err
	}
	if p.Identifier == "" {
		return nil, paramError("override needs an identifier")
	}
	if len(p.Values) == 0 {
		return nil, paramError("override needs at least one value")
	}

	// YAML decodes unquoted keys such as 12345 as numbers; key them by the
	// same string form the identifier is matched with.
	values := make(map[string]string, len(p.Values))
	for k, v := range p.Values {
		id, err := identifierString(k)
		if err != nil {
			return nil, paramError("override value key %v is not a valid identifier", k)
		}
		if _, dup := values[id]; dup {
			return nil, paramError("override value key %q is listed twice", id)
		}
		values[id] = v
	}

	enabled := true
	if p.Enabled != nil {
		enabled = *p.Enabled
	}
	return &overrideMaker{identifier: p.Identifier, values: values, enabled: enabled}, nil
}

func (m *overrideMaker) Name() string { return KindOverride }

// IdentifierKind implements identified.
func (m *overrideMaker) IdentifierKind() string { return m.identifier }

func (m *overrideMaker) Evaluate(ctx Context) (*Decision, error) {
	raw, ok := ctx.Get(m.identifier)
	if !ok {
		return nil, nil
	}
	id, err := identifierString(raw)
	if err != nil {
		return nil, err
	}

	variant, ok := m.values[id]
	if !ok {
		return nil, nil
	}
	d := staticDecision(m.enabled, variant)
	d.Exposure.Identifier = m.identifier
	d.Exposure.IdentifierValue = id
	return d, nil
}
