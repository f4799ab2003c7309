package decider

import (
	"context"
	"fmt"

	"github.com/TimurManjosov/godecider/internal/store"
)

// Reload loads the source again and installs the result. On any error the
// current table stays in place and the error is returned.
// A document identical to the serving one is not swapped in.
func (d *Decider) Reload(ctx context.Context) error {
	d.reloadMu.Lock()
	defer d.reloadMu.Unlock()

	t, err := d.build(ctx)
	if err != nil {
		d.metrics.ObserveReload(false, 0, d.now())
		d.log.Error().Err(err).Str("source", d.src.Describe()).Msg("reload failed, keeping current table")
		return fmt.Errorf("reload %s: %w", d.src.Describe(), err)
	}

	if t.ETag == d.holder.Load().ETag {
		d.log.Debug().Str("etag", t.ETag).Msg("configuration unchanged")
		return nil
	}

	prev := d.holder.Swap(t)
	d.metrics.ObserveReload(true, t.Len(), t.LoadedAt)
	d.log.Info().
		Str("source", d.src.Describe()).
		Int("features", t.Len()).
		Str("etag", t.ETag).
		Str("previous_etag", prev.ETag).
		Msg("configuration reloaded")
	return nil
}

// Watch reloads every time the source signals a change. It blocks until ctx
// is done or the source stops signalling, and returns ErrNotWatchable when
// the source has no change notifications. Reload failures are logged and
// do not stop the watch.
func (d *Decider) Watch(ctx context.Context) error {
	w, ok := d.src.(store.Watcher)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotWatchable, d.src.Describe())
	}

	changes, err := w.Changes(ctx)
	if err != nil {
		return fmt.Errorf("watch %s: %w", d.src.Describe(), err)
	}

	d.log.Info().Str("source", d.src.Describe()).Msg("watching configuration")
	for {
		select {
		case <-ctx.Done():
			return nil
		case _, ok := <-changes:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				d.log.Warn().Str("source", d.src.Describe()).Msg("configuration watch ended")
				return fmt.Errorf("watch %s: %w", d.src.Describe(), store.ErrSourceUnavailable)
			}
			_ = d.Reload(ctx)
		}
	}
}
