package models

import "time"

// Flight is a single leg operated by one carrier
type Flight struct {
	Carrier          string    `json:"carrier"`
	FlightNumber     string    `json:"flightNumber"`
	DepartureAirport string    `json:"departureAirport"`
	ArrivalAirport   string    `json:"arrivalAirport"`
	DepartureTime    time.Time `json:"departureTime"`
	ArrivalTime      time.Time `json:"arrivalTime"`
	CabinClass       string    `json:"cabinClass"`
	FareClass        string    `json:"fareClass,omitempty"`
	SeatsAvailable   int       `json:"seatsAvailable,omitempty"`
	Aircraft         string    `json:"aircraft,omitempty"`
}

// Segment is one direction of travel (outbound or return)
type Segment struct {
	Flights []Flight `json:"flights"`
}

// PriceTier is a raw per-passenger-type price returned by route pricing
type PriceTier struct {
	PassengerType string  `json:"passengerType"`
	Amount        float64 `json:"amount"`
	Currency      string  `json:"currency"`
}

// BrandFare is a named fare bundle priced for an exact set of flights
type BrandFare struct {
	BrandID  string   `json:"brandId"`
	Title    string   `json:"title"`
	Amount   float64  `json:"amount"`
	Currency string   `json:"currency"`
	Baggage  string   `json:"baggage,omitempty"`
	CarryOn  string   `json:"carryOn,omitempty"`
	Meal     string   `json:"meal,omitempty"`
	Refund   string   `json:"refund,omitempty"`
	Exchange string   `json:"exchange,omitempty"`
	Flights  []Flight `json:"flights"`
}

// Route is a priced itinerary as returned by the provider
type Route struct {
	ID                string      `json:"id"`
	Provider          string      `json:"provider"`
	Segments          []Segment   `json:"segments"`
	Prices            []PriceTier `json:"prices"`
	Amount            float64     `json:"amount"`
	Currency          string      `json:"currency"`
	ValidatingCarrier string      `json:"validatingCarrier,omitempty"`
	BrandFares        []BrandFare `json:"brandFares,omitempty"`
}

// Flights returns every flight of the route in travel order
func (r Route) Flights() []Flight {
	var out []Flight
	for _, s := range r.Segments {
		out = append(out, s.Flights...)
	}
	return out
}

// Clone returns a deep copy so cached routes never share slices with callers
func (r Route) Clone() Route {
	out := r
	out.Segments = make([]Segment, len(r.Segments))
	for i, s := range r.Segments {
		out.Segments[i] = Segment{Flights: append([]Flight(nil), s.Flights...)}
	}
	out.Prices = append([]PriceTier(nil), r.Prices...)
	if r.BrandFares != nil {
		out.BrandFares = make([]BrandFare, len(r.BrandFares))
		for i, bf := range r.BrandFares {
			bf.Flights = append([]Flight(nil), bf.Flights...)
			out.BrandFares[i] = bf
		}
	}
	return out
}

// BrandFare looks up a brand fare by id
func (r Route) BrandFare(brandID string) (BrandFare, bool) {
	for _, bf := range r.BrandFares {
		if bf.BrandID == brandID {
			return bf, true
		}
	}
	return BrandFare{}, false
}
