package store

import (
	"context"
	"errors"

	"github.com/TimurManjosov/godecider/internal/rules"
)

// ErrSourceUnavailable is returned when a source cannot be read at all.
var ErrSourceUnavailable = errors.New("configuration source unavailable")

// Source yields parsed configuration documents.
// Implementations must be safe for concurrent use.
type Source interface {
	// Load reads and parses the current document.
	Load(ctx context.Context) (*rules.Document, error)

	// Describe returns a short human-readable location, e.g. "file:features.yaml".
	Describe() string

	// Close releases any resources held by the source.
	Close() error
}

// Watcher is implemented by sources that can signal configuration changes.
type Watcher interface {
	// Changes returns a channel that receives a value after the source changed.
	// Signals are coalesced. The channel is closed when ctx is done or the
	// underlying watch fails permanently.
	Changes(ctx context.Context) (<-chan struct{}, error)
}

// signal performs a non-blocking send; a pending signal already covers this change.
func signal(ch chan<- struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}
