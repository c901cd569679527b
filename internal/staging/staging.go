// Package staging provides the in-memory per-customer draft store used by
// the two-phase checkout. Drafts live outside the durable schema on purpose:
// a customer who walks away mid-checkout leaves nothing behind but a map
// entry, which the TTL sweep eventually evicts.
package staging

import (
	"context"
	"sync"
	"time"

	"github.com/bloomhaus/orderflow/internal/domain/checkout"
)

const defaultTTL = 30 * time.Minute

// Store is a mutex-guarded map of customer id to staged draft. It implements
// checkout.StagingStore.
type Store struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]entry
}

type entry struct {
	draft    checkout.Draft
	stagedAt time.Time
}

var _ checkout.StagingStore = (*Store)(nil)

// New creates a Store. A non-positive ttl falls back to the default.
func New(ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Store{
		ttl:     ttl,
		entries: make(map[string]entry),
	}
}

// Put overwrites the customer's current draft and resets its TTL.
func (s *Store) Put(customerID string, d checkout.Draft) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[customerID] = entry{draft: d, stagedAt: time.Now()}
}

// Get returns the customer's current draft. Expired drafts are treated as
// absent even before the sweep removes them.
func (s *Store) Get(customerID string) (checkout.Draft, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[customerID]
	if !ok {
		return checkout.Draft{}, false
	}
	if time.Since(e.stagedAt) >= s.ttl {
		delete(s.entries, customerID)
		return checkout.Draft{}, false
	}
	return e.draft, true
}

// Clear removes the customer's draft.
func (s *Store) Clear(customerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, customerID)
}

// sweep removes entries older than the TTL.
func (s *Store) sweep(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, e := range s.entries {
		if now.Sub(e.stagedAt) >= s.ttl {
			delete(s.entries, id)
		}
	}
}

// StartCleanup launches a background goroutine that periodically evicts
// expired drafts. It stops when ctx is cancelled.
func (s *Store) StartCleanup(ctx context.Context) {
	ticker := time.NewTicker(s.ttl)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				s.sweep(now)
			}
		}
	}()
}
