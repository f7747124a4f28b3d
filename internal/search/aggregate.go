package search

import (
	"context"
	"math"
	"time"

	"github.com/cx-tal-miterani/fare-booking/internal/models"
	"github.com/cx-tal-miterani/fare-booking/internal/observability"
	"golang.org/x/sync/errgroup"
)

const (
	msgFallback  = "live pricing is unavailable, showing fallback results"
	msgNoResults = "no itineraries found"
	msgNoOffers  = "results could not be stored, please retry"
)

// Search never returns an error: bad input, provider failure and empty
// results all come back as a result with a message.
func (a *Aggregator) Search(ctx context.Context, in Input) *models.SearchResult {
	start := time.Now()
	result := &models.SearchResult{Outcome: models.OutcomeLive, Cards: []models.ItineraryCard{}}
	defer func() {
		result.SearchTimeMs = time.Since(start).Milliseconds()
		observability.SearchesTotal.WithLabelValues(string(result.Outcome)).Inc()
	}()

	query, err := BuildQuery(in)
	if err != nil {
		result.Outcome = models.OutcomeFailed
		result.Message = err.Error()
		return result
	}

	routes, err := a.gateway.PriceRoutes(ctx, query)
	if err != nil {
		a.logger.Warn("route pricing failed, serving fallback",
			"provider", a.gateway.Name(),
			"directions", len(query.Directions),
			"error", err,
		)
		// Fallback routes are not sent through brand-fare enrichment: the provider
		// is already failing, so their cards carry price-tier fares only.
		routes = a.fallback(query)
		result.Outcome = models.OutcomeDegraded
		result.Message = msgFallback
	} else {
		result.EnrichmentFailures = a.enrich(ctx, query.Passengers, routes)
	}

	stored := 0
	for _, r := range routes {
		price, currency := cardPrice(r)
		id, err := a.offers.Save(ctx, r, price, currency)
		if err != nil {
			a.logger.Error("offer save failed", "route_id", r.ID, "error", err)
			continue
		}
		stored++
		result.Cards = append(result.Cards, project(id, r, price, currency))
	}

	switch {
	case len(routes) > 0 && stored == 0:
		result.Outcome = models.OutcomeFailed
		result.Message = msgNoOffers
	case len(routes) == 0 && result.Message == "":
		result.Message = msgNoResults
	}

	a.logger.Info("search completed",
		"from", query.Directions[0].From,
		"to", query.Directions[0].To,
		"outcome", result.Outcome,
		"routes", len(routes),
		"cards", len(result.Cards),
		"enrichment_failures", result.EnrichmentFailures,
	)
	return result
}

// enrich prices brand fares in sequential batches; calls inside a batch run
// concurrently and the next batch starts only after the whole batch is done.
// Each result is written back at its route's index, so order is preserved.
// A failed route keeps its price tiers. Returns the number of failures.
func (a *Aggregator) enrich(ctx context.Context, pax models.PassengerCounts, routes []models.Route) int {
	failed := make([]bool, len(routes))
	for lo := 0; lo < len(routes); lo += a.batchSize {
		hi := min(lo+a.batchSize, len(routes))
		var g errgroup.Group
		for i := lo; i < hi; i++ {
			i := i // per-iteration copy; go directive lowered to 1.21 for the local toolchain
			g.Go(func() error {
				fares, err := a.gateway.PriceBrandFare(ctx, routes[i].Flights(), pax)
				if err != nil || len(fares) == 0 {
					failed[i] = true
					a.logger.Warn("brand fare enrichment failed", "route_id", routes[i].ID, "error", err)
					return nil
				}
				routes[i].BrandFares = fares
				return nil
			})
		}
		_ = g.Wait()
	}

	n := 0
	for _, f := range failed {
		if f {
			n++
		}
	}
	if n > 0 {
		observability.EnrichmentFailuresTotal.Add(float64(n))
	}
	return n
}

func cardPrice(r models.Route) (float64, string) {
	if len(r.BrandFares) == 0 {
		return r.Amount, r.Currency
	}
	cheapest := r.BrandFares[0]
	for _, bf := range r.BrandFares[1:] {
		if bf.Amount < cheapest.Amount {
			cheapest = bf
		}
	}
	return cheapest.Amount, cheapest.Currency
}

func project(offerID string, r models.Route, price float64, currency string) models.ItineraryCard {
	card := models.ItineraryCard{
		OfferID:  offerID,
		Price:    price,
		Currency: currency,
	}

	if len(r.BrandFares) > 0 {
		card.FareSource = models.FareSourceBrand
		for _, bf := range r.BrandFares {
			card.Fares = append(card.Fares, models.FareOption{
				BrandID:  bf.BrandID,
				Title:    bf.Title,
				Amount:   bf.Amount,
				Currency: bf.Currency,
				Baggage:  bf.Baggage,
				CarryOn:  bf.CarryOn,
				Meal:     bf.Meal,
				Refund:   bf.Refund,
				Exchange: bf.Exchange,
			})
		}
	} else {
		card.FareSource = models.FareSourceTiers
		for _, p := range r.Prices {
			card.Fares = append(card.Fares, models.FareOption{
				Title:    p.PassengerType,
				Amount:   p.Amount,
				Currency: p.Currency,
			})
		}
	}

	for _, s := range r.Segments {
		if len(s.Flights) == 0 {
			continue
		}
		first, last := s.Flights[0], s.Flights[len(s.Flights)-1]
		sc := models.SegmentCard{
			From:            first.DepartureAirport,
			To:              last.ArrivalAirport,
			DepartTime:      first.DepartureTime,
			ArrivalTime:     last.ArrivalTime,
			DurationMinutes: minutesBetween(first.DepartureTime, last.ArrivalTime),
			Stops:           len(s.Flights) - 1,
			Flights:         append([]models.Flight(nil), s.Flights...),
		}
		card.Segments = append(card.Segments, sc)
		card.StopsCount += sc.Stops
	}

	if len(card.Segments) > 0 {
		out := card.Segments[0]
		card.From = out.From
		card.To = out.To
		card.DepartTime = out.DepartTime
		card.ArrivalTime = out.ArrivalTime
		card.DurationMinutes = out.DurationMinutes
	}
	return card
}

func minutesBetween(from, to time.Time) int {
	return int(math.Round(to.Sub(from).Minutes()))
}
