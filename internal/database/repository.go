package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/cx-tal-miterani/fare-booking/internal/models"
	"github.com/google/uuid"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrVersionConflict = errors.New("booking was modified concurrently")
	ErrDuplicateOrder  = errors.New("provider order already belongs to a booking")
)

const maxUpdateAttempts = 3

// BookingRepository persists bookings and their ticket documents.
// Update only succeeds when the stored version equals b.Version; on success
// b.Version is incremented. Create rejects a second booking for the same
// real provider order with ErrDuplicateOrder.
type BookingRepository interface {
	Create(ctx context.Context, b *models.Booking) error
	Get(ctx context.Context, id uuid.UUID) (*models.Booking, error)
	ListByUser(ctx context.Context, userID string) ([]*models.Booking, error)
	Update(ctx context.Context, b *models.Booking) error
	SaveDocument(ctx context.Context, doc *models.TicketDocument) error
	GetDocument(ctx context.Context, bookingID uuid.UUID) (*models.TicketDocument, error)
}

// UpdateBooking loads the booking, applies fn and writes it back,
// re-reading and re-applying fn when another writer got there first.
// An error from fn aborts without writing.
func UpdateBooking(ctx context.Context, repo BookingRepository, id uuid.UUID, fn func(b *models.Booking) error) (*models.Booking, error) {
	var lastErr error
	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		b, err := repo.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if err := fn(b); err != nil {
			return nil, err
		}
		err = repo.Update(ctx, b)
		if err == nil {
			return b, nil
		}
		if !errors.Is(err, ErrVersionConflict) {
			return nil, err
		}
		lastErr = err
	}
	return nil, fmt.Errorf("update booking %s: %w", id, lastErr)
}

// holdsProviderOrder reports whether b is backed by a real provider order
func holdsProviderOrder(b *models.Booking) bool {
	return b.ProviderBookingID != "" && !b.IsMock()
}
