// Package activity keeps an advisory in-process registry of recently active
// sessions. It is tolerant of lost updates; nothing correctness-critical may
// depend on it.
package activity

import (
	"sync"
	"time"
)

// Registry tracks session ids seen within the TTL window. Entries are
// pruned by a background ticker.
type Registry struct {
	mu      sync.RWMutex
	seen    map[string]time.Time
	ttl     time.Duration
	done    chan struct{}
	closeMu sync.Once

	now func() time.Time
}

// NewRegistry creates a registry pruning entries older than ttl, checking
// every interval.
func NewRegistry(ttl, interval time.Duration) *Registry {
	r := &Registry{
		seen: make(map[string]time.Time),
		ttl:  ttl,
		done: make(chan struct{}),
		now:  time.Now,
	}
	go r.pruneLoop(interval)
	return r
}

// Touch records activity for a session id.
func (r *Registry) Touch(sessionID string) {
	if sessionID == "" {
		return
	}
	r.mu.Lock()
	r.seen[sessionID] = r.now()
	r.mu.Unlock()
}

// Count returns the number of sessions active within the TTL window.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cutoff := r.now().Add(-r.ttl)
	n := 0
	for _, t := range r.seen {
		if t.After(cutoff) {
			n++
		}
	}
	return n
}

// Active returns the session ids active within the TTL window.
func (r *Registry) Active() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cutoff := r.now().Add(-r.ttl)
	out := make([]string, 0, len(r.seen))
	for id, t := range r.seen {
		if t.After(cutoff) {
			out = append(out, id)
		}
	}
	return out
}

// Close stops the prune loop.
func (r *Registry) Close() {
	r.closeMu.Do(func() { close(r.done) })
}

func (r *Registry) pruneLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.prune()
		case <-r.done:
			return
		}
	}
}

func (r *Registry) prune() {
	cutoff := r.now().Add(-r.ttl)
	r.mu.Lock()
	for id, t := range r.seen {
		if !t.After(cutoff) {
			delete(r.seen, id)
		}
	}
	r.mu.Unlock()
}
