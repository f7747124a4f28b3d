package search

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/cx-tal-miterani/fare-booking/internal/models"
	"github.com/cx-tal-miterani/fare-booking/internal/offers"
	"github.com/cx-tal-miterani/fare-booking/internal/provider"
	"github.com/cx-tal-miterani/fare-booking/internal/provider/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func route(i int) models.Route {
	dep := time.Date(2025, 12, 10, 6, 0, 0, 0, time.UTC).Add(time.Duration(i) * time.Hour)
	return models.Route{
		ID:       fmt.Sprintf("r-%d", i),
		Provider: "mock-gds",
		Segments: []models.Segment{{Flights: []models.Flight{{
			Carrier:          "SU",
			FlightNumber:     strconv.Itoa(i),
			DepartureAirport: "MOW",
			ArrivalAirport:   "TJM",
			DepartureTime:    dep,
			ArrivalTime:      dep.Add(150 * time.Minute),
		}}}},
		Prices:   []models.PriceTier{{PassengerType: "ADT", Amount: float64(1000 + i), Currency: "RUB"}},
		Amount:   float64(1000 + i),
		Currency: "RUB",
	}
}

func routes(n int) []models.Route {
	out := make([]models.Route, n)
	for i := range out {
		out[i] = route(i)
	}
	return out
}

func brandFares(flights []models.Flight) []models.BrandFare {
	return []models.BrandFare{
		{BrandID: "LIGHT", Title: "Light", Amount: 1500, Currency: "RUB", Flights: flights},
		{BrandID: "FLEX", Title: "Flex", Amount: 2500, Currency: "RUB", Flights: flights},
	}
}

func flightIndex(flights []models.Flight) int {
	i, _ := strconv.Atoi(flights[0].FlightNumber)
	return i
}

func validInput() Input {
	return Input{Origin: "MOW", Destination: "TJM", DepartDate: "2025-12-10", Adults: 1}
}

func newAggregator(gw provider.Gateway, store offers.Store) *Aggregator {
	return New(Dependency{Gateway: gw, Offers: store, BatchSize: 5})
}

func TestSearch_InvalidInputReturnsMessage(t *testing.T) {
	tests := []struct {
		name string
		in   Input
	}{
		{name: "bad origin", in: Input{Origin: "MO", Destination: "TJM", DepartDate: "2025-12-10", Adults: 1}},
		{name: "same endpoints", in: Input{Origin: "MOW", Destination: "mow", DepartDate: "2025-12-10", Adults: 1}},
		{name: "bad date", in: Input{Origin: "MOW", Destination: "TJM", DepartDate: "10.12.2025", Adults: 1}},
		{name: "no adults", in: Input{Origin: "MOW", Destination: "TJM", DepartDate: "2025-12-10"}},
		{name: "too many infants", in: Input{Origin: "MOW", Destination: "TJM", DepartDate: "2025-12-10", Adults: 1, Infants: 2}},
		{name: "too many passengers", in: Input{Origin: "MOW", Destination: "TJM", DepartDate: "2025-12-10", Adults: 6, Children: 4}},
		{name: "return before depart", in: Input{Origin: "MOW", Destination: "TJM", DepartDate: "2025-12-10", ReturnDate: "2025-12-09", Adults: 1}},
		{name: "unknown cabin", in: Input{Origin: "MOW", Destination: "TJM", DepartDate: "2025-12-10", Adults: 1, Cabin: "premium"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := new(mocks.MockGateway)
			agg := newAggregator(gw, offers.NewMemoryStore(time.Minute))

			res := agg.Search(context.Background(), tt.in)

			assert.Equal(t, models.OutcomeFailed, res.Outcome)
			assert.NotEmpty(t, res.Message)
			assert.Empty(t, res.Cards)
			gw.AssertNotCalled(t, "PriceRoutes", mock.Anything, mock.Anything)
		})
	}
}

func TestSearch_RoundTripIssuesOneCallWithReversedReturn(t *testing.T) {
	gw := new(mocks.MockGateway)
	agg := newAggregator(gw, offers.NewMemoryStore(time.Minute))

	gw.On("PriceRoutes", mock.Anything, mock.MatchedBy(func(q models.SearchQuery) bool {
		return len(q.Directions) == 2 &&
			q.Directions[0].From == "MOW" && q.Directions[0].To == "TJM" &&
			q.Directions[1].From == "TJM" && q.Directions[1].To == "MOW" &&
			q.Directions[1].Date.Format(dateLayout) == "2025-12-20"
	})).Return([]models.Route{}, nil).Once()

	in := validInput()
	in.ReturnDate = "2025-12-20"
	res := agg.Search(context.Background(), in)

	assert.Equal(t, models.OutcomeLive, res.Outcome)
	assert.Equal(t, msgNoResults, res.Message)
	gw.AssertNumberOfCalls(t, "PriceRoutes", 1)
	gw.AssertExpectations(t)
}

func TestSearch_ProviderFailureServesFallback(t *testing.T) {
	gw := new(mocks.MockGateway)
	store := offers.NewMemoryStore(time.Minute)
	agg := newAggregator(gw, store)

	gw.On("PriceRoutes", mock.Anything, mock.Anything).Return(nil, &provider.Error{Op: "price_routes", StatusCode: 503})

	res := agg.Search(context.Background(), validInput())

	assert.Equal(t, models.OutcomeDegraded, res.Outcome)
	assert.Equal(t, msgFallback, res.Message)
	require.NotEmpty(t, res.Cards)
	gw.AssertNotCalled(t, "PriceBrandFare", mock.Anything, mock.Anything, mock.Anything)
	for _, c := range res.Cards {
		assert.Equal(t, models.FareSourceTiers, c.FareSource)
	}
	assert.Zero(t, res.EnrichmentFailures)

	again := agg.Search(context.Background(), validInput())
	require.Len(t, again.Cards, len(res.Cards))
	for i := range res.Cards {
		assert.Equal(t, res.Cards[i].Price, again.Cards[i].Price, "fallback data is deterministic")
		assert.Equal(t, res.Cards[i].DepartTime, again.Cards[i].DepartTime)
	}

	offer, err := store.Get(context.Background(), res.Cards[0].OfferID)
	require.NoError(t, err)
	assert.Equal(t, "MOW", offer.Route.Flights()[0].DepartureAirport)
}

func TestSearch_PartialEnrichmentFailureKeepsOrder(t *testing.T) {
	gw := new(mocks.MockGateway)
	store := offers.NewMemoryStore(time.Minute)
	agg := newAggregator(gw, store)

	failing := map[int]bool{2: true, 5: true}
	gw.On("PriceRoutes", mock.Anything, mock.Anything).Return(routes(7), nil)
	gw.On("PriceBrandFare", mock.Anything, mock.MatchedBy(func(f []models.Flight) bool {
		return failing[flightIndex(f)]
	}), mock.Anything).Return(nil, errors.New("timeout"))
	gw.On("PriceBrandFare", mock.Anything, mock.Anything, mock.Anything).Return(brandFares(nil), nil)

	res := agg.Search(context.Background(), validInput())

	assert.Equal(t, models.OutcomeLive, res.Outcome)
	assert.Equal(t, 2, res.EnrichmentFailures)
	require.Len(t, res.Cards, 7)

	for i, card := range res.Cards {
		offer, err := store.Get(context.Background(), card.OfferID)
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("r-%d", i), offer.Route.ID, "cards follow provider order")

		if failing[i] {
			assert.Equal(t, models.FareSourceTiers, card.FareSource)
			assert.Equal(t, float64(1000+i), card.Price)
			require.Len(t, card.Fares, 1)
			assert.Equal(t, "ADT", card.Fares[0].Title)
			assert.Empty(t, offer.Route.BrandFares)
		} else {
			assert.Equal(t, models.FareSourceBrand, card.FareSource)
			assert.Equal(t, 1500.0, card.Price)
			assert.Len(t, card.Fares, 2)
			assert.Len(t, offer.Route.BrandFares, 2)
		}
	}
}

func TestSearch_EnrichmentRunsInSequentialBatches(t *testing.T) {
	gw := new(mocks.MockGateway)
	agg := newAggregator(gw, offers.NewMemoryStore(time.Minute))

	const n = 12
	var (
		mu          sync.Mutex
		inFlight    int
		maxInFlight int
		completed   int
		violations  []int
	)

	gw.On("PriceRoutes", mock.Anything, mock.Anything).Return(routes(n), nil)
	gw.On("PriceBrandFare", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			i := flightIndex(args.Get(1).([]models.Flight))
			mu.Lock()
			if completed < (i/5)*5 {
				violations = append(violations, i)
			}
			inFlight++
			if inFlight > maxInFlight {
				maxInFlight = inFlight
			}
			mu.Unlock()

			time.Sleep(20 * time.Millisecond)

			mu.Lock()
			inFlight--
			completed++
			mu.Unlock()
		}).
		Return(brandFares(nil), nil)

	res := agg.Search(context.Background(), validInput())

	require.Len(t, res.Cards, n)
	assert.LessOrEqual(t, maxInFlight, 5)
	assert.Greater(t, maxInFlight, 1, "calls inside a batch run concurrently")
	assert.Empty(t, violations, "a batch started before the previous one finished")
	gw.AssertNumberOfCalls(t, "PriceBrandFare", n)
}

func TestSearch_ProjectsSegmentsAndStops(t *testing.T) {
	gw := new(mocks.MockGateway)
	agg := newAggregator(gw, offers.NewMemoryStore(time.Minute))

	r := route(0)
	first := r.Segments[0].Flights[0]
	first.ArrivalAirport = "SVX"
	second := models.Flight{
		Carrier: "SU", FlightNumber: "0",
		DepartureAirport: "SVX", ArrivalAirport: "TJM",
		DepartureTime: first.ArrivalTime.Add(time.Hour),
		ArrivalTime:   first.ArrivalTime.Add(2 * time.Hour),
	}
	r.Segments[0].Flights = []models.Flight{first, second}

	gw.On("PriceRoutes", mock.Anything, mock.Anything).Return([]models.Route{r}, nil)
	gw.On("PriceBrandFare", mock.Anything, mock.Anything, mock.Anything).Return(brandFares(nil), nil)

	res := agg.Search(context.Background(), validInput())
	require.Len(t, res.Cards, 1)

	card := res.Cards[0]
	assert.Equal(t, "MOW", card.From)
	assert.Equal(t, "TJM", card.To)
	assert.Equal(t, 1, card.StopsCount)
	assert.Equal(t, 270, card.DurationMinutes)
	require.Len(t, card.Segments, 1)
	assert.Len(t, card.Segments[0].Flights, 2)
}

type failingStore struct{ offers.Store }

func (failingStore) Save(context.Context, models.Route, float64, string) (string, error) {
	return "", errors.New("redis down")
}

func TestSearch_OfferStoreFailure(t *testing.T) {
	gw := new(mocks.MockGateway)
	agg := newAggregator(gw, failingStore{})

	gw.On("PriceRoutes", mock.Anything, mock.Anything).Return(routes(2), nil)
	gw.On("PriceBrandFare", mock.Anything, mock.Anything, mock.Anything).Return(brandFares(nil), nil)

	res := agg.Search(context.Background(), validInput())

	assert.Equal(t, models.OutcomeFailed, res.Outcome)
	assert.Equal(t, msgNoOffers, res.Message)
	assert.Empty(t, res.Cards)
}
