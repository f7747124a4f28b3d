package events

import (
	"context"
	"errors"
	"time"

	"github.com/cx-tal-miterani/fare-booking/internal/models"
)

type Type string

const (
	TypeReserved       Type = "booking.reserved"
	TypeDegraded       Type = "booking.degraded"
	TypeRecalculated   Type = "booking.recalculated"
	TypeTicketed       Type = "booking.ticketed"
	TypePaid           Type = "booking.paid"
	TypeCanceled       Type = "booking.canceled"
	TypeDocumentIssued Type = "booking.document_issued"
)

// Event is a booking lifecycle notification
type Event struct {
	Type          Type                 `json:"type"`
	BookingID     string               `json:"bookingId"`
	UserID        string               `json:"userId"`
	Status        models.BookingStatus `json:"status"`
	PaymentStatus models.PaymentStatus `json:"paymentStatus"`
	Amount        float64              `json:"amount"`
	Currency      string               `json:"currency"`
	Provider      string               `json:"provider"`
	Version       int                  `json:"version"`
	OccurredAt    time.Time            `json:"occurredAt"`
}

func NewBookingEvent(t Type, b *models.Booking) Event {
	return Event{
		Type:          t,
		BookingID:     b.ID.String(),
		UserID:        b.UserID,
		Status:        b.Status,
		PaymentStatus: b.Payment.Status,
		Amount:        b.Payment.Amount,
		Currency:      b.Payment.Currency,
		Provider:      b.Provider,
		Version:       b.Version,
		OccurredAt:    time.Now().UTC(),
	}
}

// Publisher delivers lifecycle events to interested parties
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Nop drops every event
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }

// Multi fans an event out to every publisher and joins their errors
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, e Event) error {
	var errs []error
	for _, p := range m {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
