package models

import "time"

// Outcome distinguishes live provider data from fallback and hard failure
type Outcome string

const (
	OutcomeLive     Outcome = "live"
	OutcomeDegraded Outcome = "degraded"
	OutcomeFailed   Outcome = "failed"
)

type CabinClass string

const (
	CabinEconomy  CabinClass = "economy"
	CabinBusiness CabinClass = "business"
	CabinFirst    CabinClass = "first"
)

// PassengerCounts holds seat counts by passenger type
type PassengerCounts struct {
	Adults   int `json:"adults"`
	Children int `json:"children"`
	Infants  int `json:"infants"`
}

// Total returns the number of travellers, infants included
func (p PassengerCounts) Total() int {
	return p.Adults + p.Children + p.Infants
}

// Direction is one leg of the requested journey
type Direction struct {
	From string    `json:"from"`
	To   string    `json:"to"`
	Date time.Time `json:"date"`
}

// SearchQuery is a validated itinerary search
type SearchQuery struct {
	Directions []Direction     `json:"directions"`
	Passengers PassengerCounts `json:"passengers"`
	Cabin      CabinClass      `json:"cabin"`
}

// FareOption is a fare shown on an itinerary card
type FareOption struct {
	BrandID  string  `json:"brandId,omitempty"`
	Title    string  `json:"title"`
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
	Baggage  string  `json:"baggage,omitempty"`
	CarryOn  string  `json:"carryOn,omitempty"`
	Meal     string  `json:"meal,omitempty"`
	Refund   string  `json:"refund,omitempty"`
	Exchange string  `json:"exchange,omitempty"`
}

type FareSource string

const (
	FareSourceBrand FareSource = "brand"
	FareSourceTiers FareSource = "tiers"
)

// SegmentCard summarises one direction for display
type SegmentCard struct {
	From            string    `json:"from"`
	To              string    `json:"to"`
	DepartTime      time.Time `json:"departTime"`
	ArrivalTime     time.Time `json:"arrivalTime"`
	DurationMinutes int       `json:"durationMinutes"`
	Stops           int       `json:"stops"`
	Flights         []Flight  `json:"flights"`
}

// ItineraryCard is the search-result projection of a stored offer
type ItineraryCard struct {
	OfferID         string        `json:"offerId"`
	Price           float64       `json:"price"`
	Currency        string        `json:"currency"`
	Fares           []FareOption  `json:"fares"`
	FareSource      FareSource    `json:"fareSource"`
	Segments        []SegmentCard `json:"segments"`
	From            string        `json:"from"`
	To              string        `json:"to"`
	DepartTime      time.Time     `json:"departTime"`
	ArrivalTime     time.Time     `json:"arrivalTime"`
	DurationMinutes int           `json:"durationMinutes"`
	StopsCount      int           `json:"stopsCount"`
}

// SearchResult is what a search returns; it is never an error
type SearchResult struct {
	Outcome            Outcome         `json:"outcome"`
	Message            string          `json:"message,omitempty"`
	Cards              []ItineraryCard `json:"cards"`
	EnrichmentFailures int             `json:"enrichmentFailures"`
	SearchTimeMs       int64           `json:"searchTimeMs"`
}
