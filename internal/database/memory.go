package database

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/cx-tal-miterani/fare-booking/internal/models"
	"github.com/google/uuid"
)

// MemoryRepository keeps bookings in process memory. Used when no
// DATABASE_URL is configured and in tests.
type MemoryRepository struct {
	mu        sync.RWMutex
	bookings  map[uuid.UUID]*models.Booking
	documents map[uuid.UUID]*models.TicketDocument
	now       func() time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		bookings:  make(map[uuid.UUID]*models.Booking),
		documents: make(map[uuid.UUID]*models.TicketDocument),
		now:       time.Now,
	}
}

func (r *MemoryRepository) Create(_ context.Context, b *models.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if holdsProviderOrder(b) {
		for _, existing := range r.bookings {
			if existing.Provider == b.Provider && existing.ProviderBookingID == b.ProviderBookingID {
				return fmt.Errorf("%w: %s %s", ErrDuplicateOrder, b.Provider, b.ProviderBookingID)
			}
		}
	}
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	now := r.now()
	b.Version = 1
	b.CreatedAt = now
	b.UpdatedAt = now
	r.bookings[b.ID] = cloneBooking(b)
	return nil
}

func (r *MemoryRepository) Get(_ context.Context, id uuid.UUID) (*models.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.bookings[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneBooking(b), nil
}

func (r *MemoryRepository) ListByUser(_ context.Context, userID string) ([]*models.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*models.Booking
	for _, b := range r.bookings {
		if b.UserID == userID {
			out = append(out, cloneBooking(b))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r *MemoryRepository) Update(_ context.Context, b *models.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.bookings[b.ID]
	if !ok {
		return ErrNotFound
	}
	if stored.Version != b.Version {
		return ErrVersionConflict
	}
	b.Version++
	b.CreatedAt = stored.CreatedAt
	b.UpdatedAt = r.now()
	r.bookings[b.ID] = cloneBooking(b)
	return nil
}

func (r *MemoryRepository) SaveDocument(_ context.Context, doc *models.TicketDocument) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.bookings[doc.BookingID]; !ok {
		return ErrNotFound
	}
	doc.CreatedAt = r.now()
	cp := *doc
	cp.Content = append([]byte(nil), doc.Content...)
	r.documents[doc.BookingID] = &cp
	return nil
}

func (r *MemoryRepository) GetDocument(_ context.Context, bookingID uuid.UUID) (*models.TicketDocument, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	doc, ok := r.documents[bookingID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *doc
	cp.Content = append([]byte(nil), doc.Content...)
	return &cp, nil
}
