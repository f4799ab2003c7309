package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/TimurManjosov/godecider/internal/rules"
)

// MemorySource serves a document held in memory.
// It uses RWMutex for thread-safe concurrent access and is suitable for tests
// and for embedding callers that build their configuration in code.
type MemorySource struct {
	mu   sync.RWMutex
	doc  *rules.Document
	subs map[chan struct{}]struct{}
}

// NewMemorySource creates a source serving doc. A nil doc makes Load fail
// with ErrSourceUnavailable until Set is called.
func NewMemorySource(doc *rules.Document) *MemorySource {
	return &MemorySource{doc: doc, subs: make(map[chan struct{}]struct{})}
}

// Load returns a copy of the current document.
func (m *MemorySource) Load(_ context.Context) (*rules.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.doc == nil {
		return nil, fmt.Errorf("%w: no document set", ErrSourceUnavailable)
	}
	features := make([]rules.FeatureConfig, len(m.doc.Features))
	copy(features, m.doc.Features)
	return &rules.Document{Features: features}, nil
}

// Set replaces the document and signals watchers.
func (m *MemorySource) Set(doc *rules.Document) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.doc = doc
	for ch := range m.subs {
		signal(ch)
	}
}

// Describe implements Source.
func (m *MemorySource) Describe() string { return "memory" }

// Close is a no-op.
func (m *MemorySource) Close() error { return nil }

// Changes implements Watcher.
func (m *MemorySource) Changes(ctx context.Context) (<-chan struct{}, error) {
	ch := make(chan struct{}, 1)
	m.mu.Lock()
	m.subs[ch] = struct{}{}
	m.mu.Unlock()

	go func() {
		<-ctx.Done()
		m.mu.Lock()
		delete(m.subs, ch)
		close(ch)
		m.mu.Unlock()
	}()
	return ch, nil
}
