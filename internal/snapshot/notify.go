package snapshot

import (
	"sync"
)

type subCh = chan string // carries new ETags

type notifier struct {
	mu   *sync.Mutex
	subs map[subCh]struct{}
}

func newNotifier() notifier {
	return notifier{mu: &sync.Mutex{}, subs: make(map[subCh]struct{})}
}

// Subscribe registers a listener and returns its channel and an unsubscribe func.
// The unsubscribe func closes the channel and may be called more than once.
func (n notifier) Subscribe() (<-chan string, func()) {
	ch := make(subCh, 1)
	n.mu.Lock()
	n.subs[ch] = struct{}{}
	n.mu.Unlock()

	var once sync.Once
	unsub := func() {
		once.Do(func() {
			n.mu.Lock()
			delete(n.subs, ch)
			close(ch)
			n.mu.Unlock()
		})
	}
	return ch, unsub
}

// publish notifies all listeners (non-blocking).
func (n notifier) publish(etag string) {
	n.mu.Lock()
	for ch := range n.subs {
		select {
		case ch <- etag:
		default: // slow listener already has a pending update
		}
	}
	n.mu.Unlock()
}
