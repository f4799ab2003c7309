// Package snapshot holds the compiled configuration table and swaps it atomically.
package snapshot

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/TimurManjosov/godecider/internal/engine"
	"github.com/TimurManjosov/godecider/internal/rules"
)

// Table is an immutable, fully compiled set of features.
type Table struct {
	ETag       string
	RegistryID string
	LoadedAt   time.Time
	features   map[string]*engine.Feature
	names      []string
}

// Build validates doc and compiles every feature with reg. Any error rejects
// the whole document; no partial table is ever returned.
func Build(reg *engine.Registry, doc *rules.Document) (*Table, error) {
	if err := rules.ValidateDocument(doc); err != nil {
		return nil, err
	}

	features := make(map[string]*engine.Feature, len(doc.Features))
	for _, cfg := range doc.Features {
		f, err := engine.Compile(reg, cfg)
		if err != nil {
			return nil, err
		}
		features[cfg.Name] = f
	}

	blob, err := json.Marshal(struct {
		Registry string          `json:"registry"`
		Document *rules.Document `json:"document"`
	}{reg.ID(), doc})
	if err != nil {
		return nil, err
	}
	sum := sha256.Sum256(blob)

	return &Table{
		ETag:       `W/"` + hex.EncodeToString(sum[:]) + `"`,
		RegistryID: reg.ID(),
		LoadedAt:   time.Now().UTC(),
		features:   features,
		names:      doc.Names(),
	}, nil
}

// Lookup returns the compiled feature with the given name.
func (t *Table) Lookup(name string) (*engine.Feature, bool) {
	f, ok := t.features[name]
	return f, ok
}

// Names returns the feature names in sorted order.
func (t *Table) Names() []string {
	out := make([]string, len(t.names))
	copy(out, t.names)
	return out
}

// Len returns the number of features.
func (t *Table) Len() int { return len(t.features) }

// Features returns the compiled features sorted by name.
func (t *Table) Features() []*engine.Feature {
	out := make([]*engine.Feature, 0, len(t.names))
	for _, n := range t.names {
		out = append(out, t.features[n])
	}
	return out
}

// Holder publishes the current Table. Readers never lock; a new table
// replaces the old one in a single pointer swap.
type Holder struct {
	current atomic.Pointer[Table]
	notifier
}

// NewHolder returns a Holder serving t.
func NewHolder(t *Table) *Holder {
	h := &Holder{notifier: newNotifier()}
	h.current.Store(t)
	return h
}

// Load returns the table in effect.
func (h *Holder) Load() *Table { return h.current.Load() }

// Swap installs t, notifies subscribers with its ETag and returns the previous table.
func (h *Holder) Swap(t *Table) *Table {
	prev := h.current.Swap(t)
	h.publish(t.ETag)
	return prev
}
