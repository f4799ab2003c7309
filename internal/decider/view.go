package decider

import (
	"errors"
	"fmt"
	"time"

	"github.com/TimurManjosov/godecider/internal/engine"
	"github.com/TimurManjosov/godecider/internal/snapshot"
	"github.com/TimurManjosov/godecider/internal/telemetry"
)

// View reads one table. Every call on a View sees the same features and ETag
// and the same clock reading, even when a reload installs a new table while
// the View is in use. Handlers that report an ETag next to data take one View
// per request.
type View struct {
	d   *Decider
	t   *snapshot.Table
	now time.Time
}

// View pins the table currently serving.
func (d *Decider) View() *View {
	return &View{d: d, t: d.holder.Load(), now: d.now()}
}

// ETag identifies the table of the view.
func (v *View) ETag() string { return v.t.ETag }

func (v *View) lookup(name string) (*engine.Feature, error) {
	f, ok := v.t.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFeature, name)
	}
	return f, nil
}

// Choose evaluates one feature. See Decider.Choose.
func (v *View) Choose(feature string, ctx engine.Context) (engine.Decision, error) {
	f, err := v.lookup(feature)
	if err != nil {
		v.d.metrics.ObserveError(telemetry.ErrorUnknownFeature)
		return engine.Decision{}, err
	}

	dec, err := f.Evaluate(ctx, v.now)
	if err != nil {
		v.d.metrics.ObserveError(telemetry.ErrorEval)
		return engine.Decision{}, err
	}
	v.d.metrics.ObserveDecision(dec.Exposure.DecisionMaker, dec.Enabled)
	return dec, nil
}

// ChooseAll evaluates every experiment and flag. See Decider.ChooseAll.
func (v *View) ChooseAll(ctx engine.Context, identifier string) (map[string]engine.Decision, error) {
	out := make(map[string]engine.Decision, v.t.Len())
	var errs []error
	for _, f := range v.t.Features() {
		if _, dynamic := f.DynamicType(); dynamic {
			continue
		}
		if identifier != "" && f.Identifier() != identifier {
			continue
		}
		dec, err := f.Evaluate(ctx, v.now)
		if err != nil {
			v.d.metrics.ObserveError(telemetry.ErrorEval)
			errs = append(errs, err)
			continue
		}
		v.d.metrics.ObserveDecision(dec.Exposure.DecisionMaker, dec.Enabled)
		out[f.Name()] = dec
	}
	return out, errors.Join(errs...)
}

// Expose builds the exposure for a variant assigned by an earlier Choose.
// The feature is not evaluated; see Decider.Expose.
func (v *View) Expose(feature, variant string, ctx engine.Context) (engine.Decision, error) {
	f, err := v.lookup(feature)
	if err != nil {
		return engine.Decision{}, err
	}
	return f.Expose(variant, ctx), nil
}

// Feature describes one configured feature.
func (v *View) Feature(name string) (FeatureInfo, error) {
	f, err := v.lookup(name)
	if err != nil {
		return FeatureInfo{}, err
	}
	return infoOf(f), nil
}

// Features describes every configured feature, sorted by name.
func (v *View) Features() []FeatureInfo {
	fs := v.t.Features()
	out := make([]FeatureInfo, 0, len(fs))
	for _, f := range fs {
		out = append(out, infoOf(f))
	}
	return out
}

// DynamicConfigs returns the value of every dynamic config.
// An inactive dynamic config reports the zero value of its type.
func (v *View) DynamicConfigs() map[string]any {
	out := make(map[string]any)
	for _, f := range v.t.Features() {
		typ, ok := f.DynamicType()
		if !ok {
			continue
		}
		out[f.Name()] = dynamicValue(f, typ, v.now)
	}
	return out
}

// DynamicConfig returns the type and value of one dynamic config.
func (v *View) DynamicConfig(name string) (engine.ValueType, any, error) {
	f, err := v.lookup(name)
	if err != nil {
		return "", nil, err
	}
	typ, ok := f.DynamicType()
	if !ok {
		return "", nil, fmt.Errorf("%w: %q", ErrNotDynamicConfig, name)
	}
	return typ, dynamicValue(f, typ, v.now), nil
}

func (v *View) lookupDynamic(name string, want engine.ValueType) (any, error) {
	typ, val, err := v.DynamicConfig(name)
	if err != nil {
		return nil, err
	}
	if typ != want {
		return nil, fmt.Errorf("%w: %q is %s, not %s", ErrTypeMismatch, name, typ, want)
	}
	return val, nil
}
