package offers

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/cx-tal-miterani/fare-booking/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRoute() models.Route {
	return models.Route{
		ID:       "r-1",
		Provider: "gds",
		Segments: []models.Segment{{Flights: []models.Flight{{Carrier: "SU", FlightNumber: "1420"}}}},
		Amount:   9800,
		Currency: "RUB",
		BrandFares: []models.BrandFare{
			{BrandID: "STD", Amount: 12000, Currency: "RUB"},
		},
	}
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestStore(ttl time.Duration) (*MemoryStore, *clock) {
	c := &clock{now: time.Date(2025, 12, 1, 12, 0, 0, 0, time.UTC)}
	s := NewMemoryStore(ttl)
	s.now = c.Now
	return s, c
}

func TestMemoryStore_SaveGet(t *testing.T) {
	s, _ := newTestStore(time.Minute)
	ctx := context.Background()

	id, err := s.Save(ctx, sampleRoute(), 12000, "RUB")
	require.NoError(t, err)
	require.NotEmpty(t, id)

	offer, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, sampleRoute(), offer.Route)
	assert.Equal(t, 12000.0, offer.Amount)

	offer.Route.BrandFares[0].Amount = 1
	again, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 12000.0, again.Route.BrandFares[0].Amount, "stored snapshot must not be shared")
}

func TestMemoryStore_ExpiredIsDistinctFromMissing(t *testing.T) {
	s, c := newTestStore(time.Minute)
	ctx := context.Background()

	id, err := s.Save(ctx, sampleRoute(), 1, "RUB")
	require.NoError(t, err)

	c.Advance(90 * time.Second)

	_, err = s.Get(ctx, id)
	assert.ErrorIs(t, err, ErrExpired)
	_, err = s.Consume(ctx, id)
	assert.ErrorIs(t, err, ErrExpired)

	_, err = s.Get(ctx, "never-existed")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_SweepForgetsOldTombstones(t *testing.T) {
	s, c := newTestStore(time.Minute)
	ctx := context.Background()

	id, err := s.Save(ctx, sampleRoute(), 1, "RUB")
	require.NoError(t, err)

	c.Advance(90 * time.Second)
	s.sweep()
	_, err = s.Get(ctx, id)
	assert.ErrorIs(t, err, ErrExpired)

	c.Advance(2 * time.Minute)
	s.sweep()
	_, err = s.Get(ctx, id)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_ConsumeOnce(t *testing.T) {
	s, _ := newTestStore(time.Minute)
	ctx := context.Background()

	id, err := s.Save(ctx, sampleRoute(), 1, "RUB")
	require.NoError(t, err)

	_, err = s.Consume(ctx, id)
	require.NoError(t, err)

	_, err = s.Consume(ctx, id)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.Get(ctx, id)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_ConcurrentConsume(t *testing.T) {
	s, _ := newTestStore(time.Minute)
	ctx := context.Background()

	id, err := s.Save(ctx, sampleRoute(), 1, "RUB")
	require.NoError(t, err)

	const workers = 16
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		success int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.Consume(ctx, id); err == nil {
				mu.Lock()
				success++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, success)
}

func TestMemoryStore_Release(t *testing.T) {
	s, c := newTestStore(time.Minute)
	ctx := context.Background()

	id, err := s.Save(ctx, sampleRoute(), 1, "RUB")
	require.NoError(t, err)

	offer, err := s.Consume(ctx, id)
	require.NoError(t, err)
	require.NoError(t, s.Release(ctx, offer))

	got, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, offer.ExpiresAt, got.ExpiresAt)

	offer, err = s.Consume(ctx, id)
	require.NoError(t, err)
	c.Advance(90 * time.Second)
	assert.ErrorIs(t, s.Release(ctx, offer), ErrExpired)
	_, err = s.Get(ctx, id)
	assert.ErrorIs(t, err, ErrExpired)
}

func TestMemoryStore_Delete(t *testing.T) {
	s, _ := newTestStore(time.Minute)
	ctx := context.Background()

	id, err := s.Save(ctx, sampleRoute(), 1, "RUB")
	require.NoError(t, err)
	require.NoError(t, s.Delete(ctx, id))

	_, err = s.Get(ctx, id)
	assert.ErrorIs(t, err, ErrNotFound)
}
