package database

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/cx-tal-miterani/fare-booking/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBooking(userID string) *models.Booking {
	return &models.Booking{
		UserID:     userID,
		OfferID:    "offer-1",
		Passengers: []models.Passenger{{FirstName: "Ivan", LastName: "Petrov"}},
		Payment:    models.Payment{Status: models.PaymentStatusPending, Amount: 120, Currency: "RUB"},
		Status:     models.BookingStatusReserved,
		Provider:   "local",
	}
}

func TestMemoryRepository_CreateAndGet(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	b := newBooking("user-1")
	require.NoError(t, repo.Create(ctx, b))
	assert.NotEqual(t, uuid.Nil, b.ID)
	assert.Equal(t, 1, b.Version)

	got, err := repo.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "user-1", got.UserID)
	assert.Equal(t, 120.0, got.Payment.Amount)

	got.Passengers[0].FirstName = "changed"
	again, err := repo.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ivan", again.Passengers[0].FirstName, "returned bookings are copies")
}

func TestMemoryRepository_GetMissing(t *testing.T) {
	repo := NewMemoryRepository()

	_, err := repo.Get(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = repo.GetDocument(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryRepository_UpdateRejectsStaleVersion(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	b := newBooking("user-1")
	require.NoError(t, repo.Create(ctx, b))

	first, _ := repo.Get(ctx, b.ID)
	second, _ := repo.Get(ctx, b.ID)

	first.Status = models.BookingStatusTicketed
	require.NoError(t, repo.Update(ctx, first))
	assert.Equal(t, 2, first.Version)

	second.Status = models.BookingStatusCanceled
	assert.ErrorIs(t, repo.Update(ctx, second), ErrVersionConflict)

	stored, _ := repo.Get(ctx, b.ID)
	assert.Equal(t, models.BookingStatusTicketed, stored.Status)
}

func TestMemoryRepository_ListByUser(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newBooking("user-1")))
	require.NoError(t, repo.Create(ctx, newBooking("user-1")))
	require.NoError(t, repo.Create(ctx, newBooking("user-2")))

	list, err := repo.ListByUser(ctx, "user-1")
	require.NoError(t, err)
	assert.Len(t, list, 2)

	list, err = repo.ListByUser(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestMemoryRepository_DocumentUpsert(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	b := newBooking("user-1")
	require.NoError(t, repo.Create(ctx, b))

	require.NoError(t, repo.SaveDocument(ctx, &models.TicketDocument{BookingID: b.ID, Content: []byte("v1"), Token: "a"}))
	require.NoError(t, repo.SaveDocument(ctx, &models.TicketDocument{BookingID: b.ID, Content: []byte("v2"), Token: "b"}))

	doc, err := repo.GetDocument(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), doc.Content)
	assert.Equal(t, "b", doc.Token)

	err = repo.SaveDocument(ctx, &models.TicketDocument{BookingID: uuid.New(), Content: []byte("x")})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateBooking_RetriesConcurrentWriters(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	b := newBooking("user-1")
	b.Payment.Amount = 0
	require.NoError(t, repo.Create(ctx, b))

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = UpdateBooking(ctx, repo, b.ID, func(b *models.Booking) error {
				b.Payment.Amount++
				return nil
			})
		}()
	}
	wg.Wait()

	stored, err := repo.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, 2.0, stored.Payment.Amount)
	assert.Equal(t, 3, stored.Version)
}

func TestUpdateBooking_MutatorErrorSkipsWrite(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	b := newBooking("user-1")
	require.NoError(t, repo.Create(ctx, b))

	boom := errors.New("not allowed")
	_, err := UpdateBooking(ctx, repo, b.ID, func(b *models.Booking) error {
		b.Status = models.BookingStatusCanceled
		return boom
	})
	assert.ErrorIs(t, err, boom)

	stored, _ := repo.Get(ctx, b.ID)
	assert.Equal(t, models.BookingStatusReserved, stored.Status)
	assert.Equal(t, 1, stored.Version)
}

func TestMemoryRepository_RejectsDuplicateProviderOrder(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	first := newBooking("user-1")
	first.ProviderBookingID = "ORD-1"
	require.NoError(t, repo.Create(ctx, first))

	dup := newBooking("user-2")
	dup.ProviderBookingID = "ORD-1"
	err := repo.Create(ctx, dup)
	assert.ErrorIs(t, err, ErrDuplicateOrder)

	list, err := repo.ListByUser(ctx, "user-2")
	require.NoError(t, err)
	assert.Empty(t, list)

	otherProvider := newBooking("user-2")
	otherProvider.Provider = "other-gds"
	otherProvider.ProviderBookingID = "ORD-1"
	assert.NoError(t, repo.Create(ctx, otherProvider), "order ids are scoped to their provider")
}

func TestMemoryRepository_MockBookingsShareNoOrder(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		b := newBooking("user-1")
		b.Provider = models.MockProvider
		b.ProviderBookingID = "MOCK-0001"
		require.NoError(t, repo.Create(ctx, b))
	}
	for i := 0; i < 2; i++ {
		require.NoError(t, repo.Create(ctx, newBooking("user-1")), "bookings without an order id are never duplicates")
	}

	list, err := repo.ListByUser(ctx, "user-1")
	require.NoError(t, err)
	assert.Len(t, list, 4)
}
