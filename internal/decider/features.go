package decider

import (
	"time"

	"github.com/TimurManjosov/godecider/internal/engine"
)

// FeatureInfo describes a configured feature without evaluating it.
type FeatureInfo struct {
	Name        string   `json:"name" yaml:"name"`
	ID          int64    `json:"id,omitempty" yaml:"id,omitempty"`
	Version     string   `json:"version,omitempty" yaml:"version,omitempty"`
	Owner       string   `json:"owner,omitempty" yaml:"owner,omitempty"`
	Enabled     bool     `json:"enabled" yaml:"enabled"`
	Identifier  string   `json:"identifier,omitempty" yaml:"identifier,omitempty"`
	Variants    []string `json:"variants,omitempty" yaml:"variants,omitempty"`
	DynamicType string   `json:"dynamic_type,omitempty" yaml:"dynamic_type,omitempty"`
	Strategies  []string `json:"strategies" yaml:"strategies"`
}

func infoOf(f *engine.Feature) FeatureInfo {
	cfg := f.Config()
	info := FeatureInfo{
		Name:       cfg.Name,
		ID:         cfg.ID,
		Version:    cfg.Version,
		Owner:      cfg.Owner,
		Enabled:    cfg.IsEnabled(),
		Identifier: f.Identifier(),
		Variants:   f.Variants(),
		Strategies: make([]string, 0, len(cfg.Chain)),
	}
	if typ, ok := f.DynamicType(); ok {
		info.DynamicType = string(typ)
	}
	for _, s := range cfg.Chain {
		info.Strategies = append(info.Strategies, s.Kind)
	}
	return info
}

// Feature describes one configured feature.
func (d *Decider) Feature(name string) (FeatureInfo, error) { return d.View().Feature(name) }

// Features describes every configured feature, sorted by name.
func (d *Decider) Features() []FeatureInfo { return d.View().Features() }

// DynamicConfigs returns the current value of every dynamic config.
// An inactive dynamic config reports the zero value of its type.
func (d *Decider) DynamicConfigs() map[string]any { return d.View().DynamicConfigs() }

// GetBool returns the value of a boolean dynamic config.
func (d *Decider) GetBool(name string) (bool, error) {
	v, err := d.lookupDynamic(name, engine.TypeBoolean)
	if err != nil {
		return false, err
	}
	return v.(bool), nil
}

// GetInt returns the value of an integer dynamic config.
func (d *Decider) GetInt(name string) (int64, error) {
	v, err := d.lookupDynamic(name, engine.TypeInteger)
	if err != nil {
		return 0, err
	}
	return v.(int64), nil
}

// GetFloat returns the value of a float dynamic config.
func (d *Decider) GetFloat(name string) (float64, error) {
	v, err := d.lookupDynamic(name, engine.TypeFloat)
	if err != nil {
		return 0, err
	}
	return v.(float64), nil
}

// GetString returns the value of a string dynamic config.
func (d *Decider) GetString(name string) (string, error) {
	v, err := d.lookupDynamic(name, engine.TypeString)
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// GetMap returns a copy of the value of a map dynamic config.
func (d *Decider) GetMap(name string) (map[string]any, error) {
	v, err := d.lookupDynamic(name, engine.TypeMap)
	if err != nil {
		return nil, err
	}
	return v.(map[string]any), nil
}

func (d *Decider) lookupDynamic(name string, want engine.ValueType) (any, error) {
	return d.View().lookupDynamic(name, want)
}

// dynamicValue evaluates a dynamic config with an empty context. Any outcome
// that does not carry a value of typ yields the zero value.
func dynamicValue(f *engine.Feature, typ engine.ValueType, now time.Time) any {
	dec, err := f.Evaluate(engine.Context{}, now)
	if err != nil || dec.Value == nil {
		return typ.Zero()
	}
	v, err := engine.CoerceValue(typ, dec.Value)
	if err != nil {
		return typ.Zero()
	}
	return v
}
