package store

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/registrypulse/registrypulse/internal/ratings"
	"github.com/registrypulse/registrypulse/internal/registry"
)

// Entry is one cached listing together with the time it was stored.
type Entry struct {
	Listing   []ratings.Rated
	UpdatedAt time.Time
}

// Store is a thread-safe in-memory listing cache, keyed by filter fingerprint.
// A background goroutine (Run) periodically evicts entries older than the TTL.
type Store struct {
	mu   sync.RWMutex
	data map[string]*Entry
	ttl  time.Duration
	now  func() time.Time // injectable for deterministic tests
}

// New creates a Store with the given TTL.
func New(ttl time.Duration) *Store {
	return &Store{
		data: make(map[string]*Entry),
		ttl:  ttl,
		now:  time.Now,
	}
}

// Key returns the cache fingerprint for a listing filter. Type order does not
// affect the key.
func Key(f registry.Filter) string {
	types := make([]string, len(f.Types))
	for i, t := range f.Types {
		types[i] = string(t)
	}
	sort.Strings(types)
	return "name=" + f.Name + "|regex=" + f.Regex + "|types=" + strings.Join(types, ",")
}

// TTL returns the configured entry lifetime.
func (s *Store) TTL() time.Duration {
	return s.ttl
}

// Put stores or replaces the listing for key.
// Callers must not modify listing after calling Put.
func (s *Store) Put(key string, listing []ratings.Rated) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = &Entry{
		Listing:   listing,
		UpdatedAt: s.now(),
	}
}

// Get returns the entry for key and whether it is still fresh. A stale entry
// that has not yet been evicted is still returned — the caller decides whether
// stale data is better than none.
func (s *Store) Get(key string) (entry *Entry, fresh bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.data[key]
	if !ok {
		return nil, false
	}
	return e, s.now().Sub(e.UpdatedAt) < s.ttl
}

// Count returns the total number of entries currently held, including stale ones.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

// Evict removes entries whose UpdatedAt is older than now minus TTL.
// It returns the number of entries removed.
func (s *Store) Evict(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := now.Add(-s.ttl)
	removed := 0
	for key, e := range s.data {
		if !e.UpdatedAt.After(cutoff) {
			delete(s.data, key)
			removed++
		}
	}
	return removed
}

// Run starts the background TTL eviction loop. It ticks at half the TTL
// interval (minimum 1 second) so entries are evicted promptly. Run blocks
// until ctx is cancelled.
func (s *Store) Run(ctx context.Context) {
	interval := s.ttl / 2
	if interval < time.Second {
		interval = time.Second
	}
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			if n := s.Evict(now); n > 0 {
				slog.Debug("store: evicted expired listings", "count", n)
			}
		}
	}
}
