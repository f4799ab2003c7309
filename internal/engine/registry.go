package engine

import (
	"fmt"
	"sort"
	"strings"

	"github.com/TimurManjosov/godecider/internal/rules"
	"github.com/go-viper/mapstructure/v2"
)

// Strategy kinds.
const (
	KindValue         = "value"
	KindRange         = "range"
	KindOverride      = "override"
	KindMultiVariant  = "multi_variant"
	KindDynamicConfig = "dynamic_config"
	KindTargeting     = "targeting"
	KindVersionGate   = "version_gate"
)

// Registry ids accepted by LookupRegistry.
const (
	RegistryDefault  = "default"
	RegistryExtended = "extended"
)

// DecisionMaker is one compiled strategy of a feature chain.
// Evaluate returns (nil, nil) when the strategy has no opinion.
type DecisionMaker interface {
	Name() string
	Evaluate(ctx Context) (*Decision, error)
}

// Factory compiles a strategy spec of one feature into a DecisionMaker.
type Factory func(feature rules.FeatureConfig, spec rules.StrategySpec) (DecisionMaker, error)

// Registry maps strategy kinds to factories. A Registry is safe for
// concurrent use once it is no longer being registered into.
type Registry struct {
	id        string
	factories map[string]Factory
}

// NewRegistry returns an empty registry.
func NewRegistry(id string) *Registry {
	return &Registry{id: id, factories: make(map[string]Factory)}
}

// DefaultRegistry knows value, range, override, multi_variant and dynamic_config.
func DefaultRegistry() *Registry {
	r := NewRegistry(RegistryDefault)
	r.Register(KindValue, newValueMaker)
	r.Register(KindRange, newRangeMaker)
	r.Register(KindOverride, newOverrideMaker)
	r.Register(KindMultiVariant, newMultiVariantMaker)
	r.Register(KindDynamicConfig, newDynamicMaker)
	return r
}

// ExtendedRegistry is DefaultRegistry plus targeting and version_gate.
func ExtendedRegistry() *Registry {
	r := DefaultRegistry().Clone(RegistryExtended)
	r.Register(KindTargeting, newTargetingMaker)
	r.Register(KindVersionGate, newVersionGateMaker)
	return r
}

// LookupRegistry returns the built-in registry with the given id.
// An empty id selects the default registry.
func LookupRegistry(id string) (*Registry, error) {
	switch strings.ToLower(strings.TrimSpace(id)) {
	case "", RegistryDefault:
		return DefaultRegistry(), nil
	case RegistryExtended:
		return ExtendedRegistry(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownRegistry, id)
	}
}

// ID returns the registry id.
func (r *Registry) ID() string { return r.id }

// Register adds or replaces the factory for kind.
func (r *Registry) Register(kind string, f Factory) {
	r.factories[normalizeKind(kind)] = f
}

// Clone copies the registry under a new id.
func (r *Registry) Clone(id string) *Registry {
	c := NewRegistry(id)
	for k, f := range r.factories {
		c.factories[k] = f
	}
	return c
}

// Kinds returns the registered kinds in sorted order.
func (r *Registry) Kinds() []string {
	kinds := make([]string, 0, len(r.factories))
	for k := range r.factories {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// Build compiles one strategy spec.
func (r *Registry) Build(feature rules.FeatureConfig, spec rules.StrategySpec) (DecisionMaker, error) {
	kind := normalizeKind(spec.Kind)
	f, ok := r.factories[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q is not in registry %q", ErrUnknownStrategy, spec.Kind, r.id)
	}
	return f(feature, spec)
}

func normalizeKind(kind string) string {
	k := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(kind)), "-", "_")
	switch k {
	case "static", "constant", "value":
		return KindValue
	case "percentage", "percent", "rollout", "range":
		return KindRange
	case "overrides", "override":
		return KindOverride
	case "multivariant", "variants", "experiment", "multi_variant":
		return KindMultiVariant
	case "dynamic", "dynamicconfig", "dc", "dynamic_config":
		return KindDynamicConfig
	case "jsonlogic", "rule", "targeting":
		return KindTargeting
	case "semver", "versiongate", "version_gate":
		return KindVersionGate
	default:
		return k
	}
}

// decodeParams decodes a strategy's parameters into out. Unknown parameters
// are rejected and values are not coerced between strings and numbers.
func decodeParams(spec rules.StrategySpec, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      out,
		TagName:     "param",
		ErrorUnused: true,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(spec.Params); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidParams, err)
	}
	return nil
}

func paramError(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrInvalidParams}, args...)...)
}
