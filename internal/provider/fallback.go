package provider

import (
	"fmt"
	"hash/fnv"
	"math"
	"strings"
	"time"

	"github.com/cx-tal-miterani/fare-booking/internal/models"
)

var (
	fallbackCarriers = []string{"SU", "S7", "UT", "DP", "U6"}
	fallbackHubs     = []string{"OVB", "SVX", "LED", "KZN"}
)

const fallbackCurrency = "RUB"

// FallbackRoutes returns a deterministic dataset for a query. It is served
// when live pricing is unavailable and always yields the same routes for
// the same query.
func FallbackRoutes(query models.SearchQuery) []models.Route {
	if len(query.Directions) == 0 {
		return nil
	}
	seed := querySeed(query)
	cabin := string(query.Cabin)
	if cabin == "" {
		cabin = string(models.CabinEconomy)
	}

	shapes := []struct {
		stops      int
		startHour  int
		multiplier float64
	}{
		{stops: 0, startHour: 6, multiplier: 1.0},
		{stops: 1, startHour: 9, multiplier: 0.82},
		{stops: 0, startHour: 18, multiplier: 1.15},
	}

	routes := make([]models.Route, 0, len(shapes))
	for i, shape := range shapes {
		carrier := fallbackCarriers[(int(seed%97)+i)%len(fallbackCarriers)]
		route := models.Route{
			ID:                fmt.Sprintf("fb-%08x-%d", uint32(seed), i),
			Provider:          "fallback",
			Currency:          fallbackCurrency,
			ValidatingCarrier: carrier,
		}
		for d, dir := range query.Directions {
			hour := (shape.startHour + int((seed>>uint(d+i))%3)) % 24
			flights := buildFallbackSegment(dir, carrier, cabin, shape.stops, hour, seed+uint64(i*31+d*7))
			route.Segments = append(route.Segments, models.Segment{Flights: flights})
		}

		base := (4500 + float64(seed%9000)) * shape.multiplier * cabinFactor(query.Cabin) * float64(len(query.Directions))
		route.Prices, route.Amount = fallbackPrices(base, query.Passengers)
		routes = append(routes, route)
	}
	return routes
}

func buildFallbackSegment(dir models.Direction, carrier, cabin string, stops, hour int, seed uint64) []models.Flight {
	airports := []string{dir.From}
	if stops > 0 {
		airports = append(airports, fallbackHub(dir.From, dir.To, seed))
	}
	airports = append(airports, dir.To)

	depart := time.Date(dir.Date.Year(), dir.Date.Month(), dir.Date.Day(), hour, int(seed%4)*15, 0, 0, time.UTC)
	flights := make([]models.Flight, 0, len(airports)-1)
	for leg := 0; leg < len(airports)-1; leg++ {
		duration := time.Duration(70+int((seed>>uint(leg*3))%240)) * time.Minute
		arrive := depart.Add(duration)
		flights = append(flights, models.Flight{
			Carrier:          carrier,
			FlightNumber:     fmt.Sprintf("%d", 100+int((seed>>uint(leg*5))%800)),
			DepartureAirport: airports[leg],
			ArrivalAirport:   airports[leg+1],
			DepartureTime:    depart,
			ArrivalTime:      arrive,
			CabinClass:       cabin,
			FareClass:        fareClassFor(cabin),
			SeatsAvailable:   9,
			Aircraft:         "320",
		})
		depart = arrive.Add(90 * time.Minute)
	}
	return flights
}

func fallbackPrices(base float64, pax models.PassengerCounts) ([]models.PriceTier, float64) {
	adult := roundAmount(base)
	child := roundAmount(base * 0.75)
	infant := roundAmount(base * 0.1)

	tiers := []models.PriceTier{{PassengerType: "ADT", Amount: adult, Currency: fallbackCurrency}}
	total := adult * float64(pax.Adults)
	if pax.Children > 0 {
		tiers = append(tiers, models.PriceTier{PassengerType: "CHD", Amount: child, Currency: fallbackCurrency})
		total += child * float64(pax.Children)
	}
	if pax.Infants > 0 {
		tiers = append(tiers, models.PriceTier{PassengerType: "INF", Amount: infant, Currency: fallbackCurrency})
		total += infant * float64(pax.Infants)
	}
	return tiers, roundAmount(total)
}

func fallbackHub(from, to string, seed uint64) string {
	for i := range fallbackHubs {
		hub := fallbackHubs[(int(seed%uint64(len(fallbackHubs)))+i)%len(fallbackHubs)]
		if hub != from && hub != to {
			return hub
		}
	}
	return fallbackHubs[0]
}

func querySeed(q models.SearchQuery) uint64 {
	h := fnv.New64a()
	for _, d := range q.Directions {
		fmt.Fprintf(h, "%s|%s|%s;", strings.ToUpper(d.From), strings.ToUpper(d.To), d.Date.Format(wireDateLayout))
	}
	fmt.Fprintf(h, "%d/%d/%d/%s", q.Passengers.Adults, q.Passengers.Children, q.Passengers.Infants, q.Cabin)
	return h.Sum64()
}

func cabinFactor(c models.CabinClass) float64 {
	switch c {
	case models.CabinBusiness:
		return 3.2
	case models.CabinFirst:
		return 5
	default:
		return 1
	}
}

func fareClassFor(cabin string) string {
	switch models.CabinClass(cabin) {
	case models.CabinBusiness:
		return "J"
	case models.CabinFirst:
		return "F"
	default:
		return "Y"
	}
}

func roundAmount(v float64) float64 {
	return math.Round(v*100) / 100
}
