package models

// TicketingInput starts the recalc → confirm sequence for one booking
type TicketingInput struct {
	BookingID string         `json:"bookingId"`
	Confirm   ConfirmRequest `json:"confirm"`
}

// TicketingResult is the result of the ticketing sequence
type TicketingResult struct {
	BookingID     string   `json:"bookingId"`
	Amount        float64  `json:"amount"`
	Currency      string   `json:"currency"`
	PriceChanged  bool     `json:"priceChanged"`
	TicketNumbers []string `json:"ticketNumbers,omitempty"`
}
