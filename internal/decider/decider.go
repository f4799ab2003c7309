// Package decider is the entry point for feature decisions.
//
// A Decider is built once from a configuration source and then shared by
// every request handler. Choose never performs I/O: all features are compiled
// into an in-memory table at Init and replaced wholesale on Reload.
//
// Lifecycle:
//  1. Init (or New) loads the document, validates it and compiles every feature.
//     Any error aborts construction; no Decider exists for a bad configuration.
//  2. Choose, ChooseAll and the typed getters read the current table.
//  3. Reload or Watch install a new table atomically. A failing reload keeps
//     the table that is already serving.
package decider

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/TimurManjosov/godecider/internal/engine"
	"github.com/TimurManjosov/godecider/internal/snapshot"
	"github.com/TimurManjosov/godecider/internal/store"
	"github.com/TimurManjosov/godecider/internal/telemetry"
	"github.com/rs/zerolog"
)

var (
	// ErrUnknownFeature is returned by Choose for a name that is not in the table.
	ErrUnknownFeature = errors.New("unknown feature")

	// ErrNotDynamicConfig is returned by the typed getters for a feature that
	// is not a dynamic config.
	ErrNotDynamicConfig = errors.New("feature is not a dynamic config")

	// ErrTypeMismatch is returned by the typed getters when the configured
	// value type differs from the requested one.
	ErrTypeMismatch = errors.New("dynamic config type mismatch")

	// ErrNotWatchable is returned by Watch when the source cannot signal changes.
	ErrNotWatchable = errors.New("configuration source does not support watching")
)

// InitError reports why a Decider could not be constructed.
// Err is a source error, an unknown registry, or a *rules.FeatureError
// locating the offending feature and chain position.
type InitError struct {
	Source string
	Err    error
}

func (e *InitError) Error() string {
	if e.Source == "" {
		return fmt.Sprintf("init decider: %v", e.Err)
	}
	return fmt.Sprintf("init decider from %s: %v", e.Source, e.Err)
}

func (e *InitError) Unwrap() error { return e.Err }

// Option configures a Decider.
type Option func(*Decider)

// WithClock sets the time source used for feature time windows.
func WithClock(now func() time.Time) Option {
	return func(d *Decider) {
		if now != nil {
			d.now = now
		}
	}
}

// WithLogger sets the logger for reload and watch events.
func WithLogger(log zerolog.Logger) Option {
	return func(d *Decider) { d.log = log }
}

// WithMetrics records decisions and reloads in m.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(d *Decider) { d.metrics = m }
}

// Decider evaluates features against request contexts.
// It is safe for concurrent use.
type Decider struct {
	reg     *engine.Registry
	src     store.Source
	holder  *snapshot.Holder
	now     func() time.Time
	log     zerolog.Logger
	metrics *telemetry.Metrics

	reloadMu sync.Mutex
}

// Init builds a Decider using the strategy registry named registryID.
// An empty registryID selects the default registry.
func Init(ctx context.Context, registryID string, src store.Source, opts ...Option) (*Decider, error) {
	reg, err := engine.LookupRegistry(registryID)
	if err != nil {
		return nil, &InitError{Source: describe(src), Err: err}
	}
	return New(ctx, reg, src, opts...)
}

// New builds a Decider from src using reg.
func New(ctx context.Context, reg *engine.Registry, src store.Source, opts ...Option) (*Decider, error) {
	if src == nil {
		return nil, &InitError{Err: fmt.Errorf("%w: no source", store.ErrSourceUnavailable)}
	}

	d := &Decider{
		reg: reg,
		src: src,
		now: time.Now,
		log: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(d)
	}

	t, err := d.build(ctx)
	if err != nil {
		return nil, &InitError{Source: src.Describe(), Err: err}
	}
	d.holder = snapshot.NewHolder(t)
	d.metrics.SetTable(t.Len(), t.LoadedAt)

	d.log.Info().
		Str("source", src.Describe()).
		Str("registry", reg.ID()).
		Int("features", t.Len()).
		Str("etag", t.ETag).
		Msg("decider initialised")
	return d, nil
}

func (d *Decider) build(ctx context.Context) (*snapshot.Table, error) {
	doc, err := d.src.Load(ctx)
	if err != nil {
		return nil, err
	}
	return snapshot.Build(d.reg, doc)
}

func describe(src store.Source) string {
	if src == nil {
		return ""
	}
	return src.Describe()
}

// Choose evaluates one feature.
//
// Errors:
//   - ErrUnknownFeature (wrapped) when the feature is not configured
//   - *engine.EvalError when a strategy rejects the context
func (d *Decider) Choose(feature string, ctx engine.Context) (engine.Decision, error) {
	return d.View().Choose(feature, ctx)
}

// ChooseAll evaluates every experiment and flag in the table. Dynamic configs
// are left out; see DynamicConfigs. When identifier is not empty only features
// bucketing on that identifier kind are evaluated.
//
// Features that fail to evaluate are missing from the result and their
// errors are joined into the returned error.
func (d *Decider) ChooseAll(ctx engine.Context, identifier string) (map[string]engine.Decision, error) {
	return d.View().ChooseAll(ctx, identifier)
}

// Expose returns the exposure of variant for a caller that chose without
// exposing. It fails only with ErrUnknownFeature. Whether the exposure is
// logged is up to the caller: Exposure.EmitEvent carries the feature's choice.
func (d *Decider) Expose(feature, variant string, ctx engine.Context) (engine.Decision, error) {
	return d.View().Expose(feature, variant, ctx)
}

// ETag identifies the table currently serving.
func (d *Decider) ETag() string { return d.holder.Load().ETag }

// LoadedAt returns when the current table was built.
func (d *Decider) LoadedAt() time.Time { return d.holder.Load().LoadedAt }

// RegistryID returns the id of the strategy registry in use.
func (d *Decider) RegistryID() string { return d.reg.ID() }

// Source describes where configuration is loaded from.
func (d *Decider) Source() string { return d.src.Describe() }

// Subscribe returns a channel receiving the ETag of every newly installed
// table, and a func to stop the subscription.
func (d *Decider) Subscribe() (<-chan string, func()) { return d.holder.Subscribe() }
