package offers

import (
	"context"
	"sync"
	"time"

	"github.com/cx-tal-miterani/fare-booking/internal/models"
	"github.com/google/uuid"
)

type entry struct {
	offer  *Offer
	expiry time.Time
}

// MemoryStore is a process-local Store. Expired offers are kept as
// tombstones for one extra TTL so lookups can report ErrExpired rather
// than ErrNotFound.
type MemoryStore struct {
	mu         sync.Mutex
	ttl        time.Duration
	now        func() time.Time
	entries    map[string]entry
	tombstones map[string]time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		ttl:        ttl,
		now:        time.Now,
		entries:    make(map[string]entry),
		tombstones: make(map[string]time.Time),
	}
}

func (s *MemoryStore) Save(ctx context.Context, route models.Route, amount float64, currency string) (string, error) {
	now := s.now()
	offer := &Offer{
		ID:        uuid.NewString(),
		Route:     route.Clone(),
		Amount:    amount,
		Currency:  currency,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	s.mu.Lock()
	s.entries[offer.ID] = entry{offer: offer, expiry: offer.ExpiresAt}
	s.mu.Unlock()
	return offer.ID, nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*Offer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, err := s.lookupLocked(id)
	if err != nil {
		return nil, err
	}
	return e.offer.clone(), nil
}

func (s *MemoryStore) Consume(ctx context.Context, id string) (*Offer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, err := s.lookupLocked(id)
	if err != nil {
		return nil, err
	}
	delete(s.entries, id)
	return e.offer, nil
}

// Release puts a consumed offer back with whatever lifetime it had left.
func (s *MemoryStore) Release(ctx context.Context, offer *Offer) error {
	if offer == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.now().Before(offer.ExpiresAt) {
		s.tombstones[offer.ID] = offer.ExpiresAt.Add(s.ttl)
		return ErrExpired
	}
	s.entries[offer.ID] = entry{offer: offer.clone(), expiry: offer.ExpiresAt}
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	delete(s.entries, id)
	delete(s.tombstones, id)
	s.mu.Unlock()
	return nil
}

// Run sweeps expired entries and old tombstones until ctx is done.
func (s *MemoryStore) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *MemoryStore) sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for id, e := range s.entries {
		if !now.Before(e.expiry) {
			delete(s.entries, id)
			s.tombstones[id] = e.expiry.Add(s.ttl)
		}
	}
	for id, until := range s.tombstones {
		if !now.Before(until) {
			delete(s.tombstones, id)
		}
	}
}

func (s *MemoryStore) lookupLocked(id string) (entry, error) {
	e, ok := s.entries[id]
	if !ok {
		if until, dead := s.tombstones[id]; dead && s.now().Before(until) {
			return entry{}, ErrExpired
		}
		return entry{}, ErrNotFound
	}
	if !s.now().Before(e.expiry) {
		delete(s.entries, id)
		s.tombstones[id] = e.expiry.Add(s.ttl)
		return entry{}, ErrExpired
	}
	return e, nil
}
