package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/cx-tal-miterani/fare-booking/internal/models"
)

// Gateway is the set of reservation-provider operations the rest of the
// system depends on. Implementations never retry on their own.
type Gateway interface {
	Name() string
	PriceRoutes(ctx context.Context, query models.SearchQuery) ([]models.Route, error)
	PriceBrandFare(ctx context.Context, flights []models.Flight, pax models.PassengerCounts) ([]models.BrandFare, error)
	CreateReservation(ctx context.Context, req ReservationRequest) (*Reservation, error)
	RecalcReservation(ctx context.Context, orderID string) (*Recalculation, error)
	ConfirmReservation(ctx context.Context, orderID string, extra models.ConfirmRequest) (*Confirmation, error)
	FetchTicketDocument(ctx context.Context, orderID string) (*Document, error)
	VoidReservation(ctx context.Context, orderID string) error
	CancelReservation(ctx context.Context, orderID string) error
}

// ReservationRequest is the minimal payload needed to open a provider order
type ReservationRequest struct {
	Segments   []models.Segment
	BrandFare  models.BrandFare
	Passengers []models.Passenger
	Contact    models.Contact
	Counts     models.PassengerCounts
}

type Reservation struct {
	OrderID  string
	Amount   float64
	Currency string
	Raw      json.RawMessage
}

type Recalculation struct {
	OrderID        string
	Amount         float64
	Currency       string
	PreviousAmount float64
	Changed        bool
	Raw            json.RawMessage
}

type Confirmation struct {
	OrderID       string
	Status        string
	TicketNumbers []string
	Raw           json.RawMessage
}

type Document struct {
	Content     []byte
	ContentType string
}

// Error is returned for every failed provider call: transport failures,
// timeouts, non-2xx answers and responses that fail validation.
type Error struct {
	Op         string
	StatusCode int
	Body       string
	Err        error
}

func (e *Error) Error() string {
	switch {
	case e.StatusCode != 0 && e.Err != nil:
		return fmt.Sprintf("provider %s: status %d: %v", e.Op, e.StatusCode, e.Err)
	case e.StatusCode != 0:
		return fmt.Sprintf("provider %s: status %d: %s", e.Op, e.StatusCode, e.Body)
	case e.Err != nil:
		return fmt.Sprintf("provider %s: %v", e.Op, e.Err)
	default:
		return fmt.Sprintf("provider %s failed", e.Op)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsProviderError reports whether err came from a provider call
func IsProviderError(err error) bool {
	var pe *Error
	return errors.As(err, &pe)
}
