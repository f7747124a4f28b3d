package activities

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cx-tal-miterani/fare-booking/internal/database"
	"github.com/cx-tal-miterani/fare-booking/internal/models"
	"github.com/cx-tal-miterani/fare-booking/internal/provider"
	"github.com/google/uuid"
	"go.temporal.io/sdk/temporal"
)

// Activity names used when registering with a worker and scheduling from workflows
const (
	RecalcActivityName  = "RecalcReservation"
	ConfirmActivityName = "ConfirmReservation"
)

// Application error types carried across the workflow boundary
const (
	ErrTypeProvider        = "ProviderError"
	ErrTypeNotReserved     = "NotReserved"
	ErrTypeVersionConflict = "VersionConflict"
)

var ErrNotReserved = errors.New("booking is not a reserved provider booking")

// ProviderErrorDetails are attached to ProviderError application errors
type ProviderErrorDetails struct {
	Op         string `json:"op"`
	StatusCode int    `json:"statusCode"`
	Body       string `json:"body"`
}

type RecalcResult struct {
	BookingID      string  `json:"bookingId"`
	Amount         float64 `json:"amount"`
	Currency       string  `json:"currency"`
	PreviousAmount float64 `json:"previousAmount"`
	Changed        bool    `json:"changed"`
}

type ConfirmResult struct {
	BookingID     string   `json:"bookingId"`
	OrderID       string   `json:"orderId"`
	Status        string   `json:"status"`
	TicketNumbers []string `json:"ticketNumbers,omitempty"`
}

// Activities holds the dependencies of the ticketing activities
type Activities struct {
	gateway provider.Gateway
	repo    database.BookingRepository
	logger  *slog.Logger
}

func NewActivities(gw provider.Gateway, repo database.BookingRepository, logger *slog.Logger) *Activities {
	if logger == nil {
		logger = slog.Default()
	}
	return &Activities{gateway: gw, repo: repo, logger: logger}
}

// RecalcReservation activity - refreshes the order total from the provider
func (a *Activities) RecalcReservation(ctx context.Context, bookingID string) (*RecalcResult, error) {
	res, err := a.recalc(ctx, bookingID)
	return res, toApplicationError(err)
}

// ConfirmReservation activity - confirms the order and marks the booking ticketed
func (a *Activities) ConfirmReservation(ctx context.Context, in models.TicketingInput) (*ConfirmResult, error) {
	res, err := a.confirm(ctx, in)
	return res, toApplicationError(err)
}

// Ticket runs recalculation and confirmation in-process. It is used when
// no workflow engine is configured.
func (a *Activities) Ticket(ctx context.Context, in models.TicketingInput) (*models.TicketingResult, error) {
	rec, err := a.recalc(ctx, in.BookingID)
	if err != nil {
		return nil, err
	}
	conf, err := a.confirm(ctx, in)
	if err != nil {
		return nil, err
	}
	return TicketingResult(rec, conf), nil
}

// TicketingResult combines the outputs of both steps
func TicketingResult(rec *RecalcResult, conf *ConfirmResult) *models.TicketingResult {
	return &models.TicketingResult{
		BookingID:     rec.BookingID,
		Amount:        rec.Amount,
		Currency:      rec.Currency,
		PriceChanged:  rec.Changed,
		TicketNumbers: conf.TicketNumbers,
	}
}

func (a *Activities) recalc(ctx context.Context, bookingID string) (*RecalcResult, error) {
	b, err := a.reserved(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	a.logger.Info("recalculating reservation", "booking_id", bookingID, "order_id", b.ProviderBookingID)

	rec, err := a.gateway.RecalcReservation(ctx, b.ProviderBookingID)
	if err != nil {
		return nil, err
	}

	updated, err := database.UpdateBooking(ctx, a.repo, b.ID, func(b *models.Booking) error {
		if b.Status != models.BookingStatusReserved {
			return fmt.Errorf("%w: booking is %s", ErrNotReserved, b.Status)
		}
		b.Payment.Amount = rec.Amount
		if rec.Currency != "" {
			b.Payment.Currency = rec.Currency
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if rec.Changed {
		a.logger.Warn("order total changed before confirmation", "booking_id", bookingID,
			"previous", rec.PreviousAmount, "amount", rec.Amount)
	}

	return &RecalcResult{
		BookingID:      bookingID,
		Amount:         updated.Payment.Amount,
		Currency:       updated.Payment.Currency,
		PreviousAmount: rec.PreviousAmount,
		Changed:        rec.Changed,
	}, nil
}

func (a *Activities) confirm(ctx context.Context, in models.TicketingInput) (*ConfirmResult, error) {
	b, err := a.reserved(ctx, in.BookingID)
	if err != nil {
		return nil, err
	}
	a.logger.Info("confirming reservation", "booking_id", in.BookingID, "order_id", b.ProviderBookingID)

	conf, err := a.gateway.ConfirmReservation(ctx, b.ProviderBookingID, in.Confirm)
	if err != nil {
		return nil, err
	}

	_, err = database.UpdateBooking(ctx, a.repo, b.ID, func(b *models.Booking) error {
		if b.Status != models.BookingStatusReserved {
			return fmt.Errorf("%w: booking is %s", ErrNotReserved, b.Status)
		}
		b.Status = models.BookingStatusTicketed
		b.Confirmation = conf.Raw
		return nil
	})
	if err != nil {
		a.logger.Error("order confirmed but booking not updated", "booking_id", in.BookingID,
			"order_id", b.ProviderBookingID, "error", err)
		return nil, err
	}

	return &ConfirmResult{
		BookingID:     in.BookingID,
		OrderID:       conf.OrderID,
		Status:        conf.Status,
		TicketNumbers: conf.TicketNumbers,
	}, nil
}

func (a *Activities) reserved(ctx context.Context, bookingID string) (*models.Booking, error) {
	id, err := uuid.Parse(bookingID)
	if err != nil {
		return nil, fmt.Errorf("invalid booking id %q: %w", bookingID, err)
	}
	b, err := a.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load booking %s: %w", bookingID, err)
	}
	if b.Status != models.BookingStatusReserved || b.IsMock() {
		return nil, fmt.Errorf("%w: booking %s is %s via %s", ErrNotReserved, bookingID, b.Status, b.Provider)
	}
	return b, nil
}

// toApplicationError marks every failure non-retryable and keeps provider
// status details readable on the caller side.
func toApplicationError(err error) error {
	if err == nil {
		return nil
	}
	var pe *provider.Error
	switch {
	case errors.As(err, &pe):
		return temporal.NewNonRetryableApplicationError(err.Error(), ErrTypeProvider, err,
			ProviderErrorDetails{Op: pe.Op, StatusCode: pe.StatusCode, Body: pe.Body})
	case errors.Is(err, ErrNotReserved):
		return temporal.NewNonRetryableApplicationError(err.Error(), ErrTypeNotReserved, err)
	case errors.Is(err, database.ErrVersionConflict):
		return temporal.NewNonRetryableApplicationError(err.Error(), ErrTypeVersionConflict, err)
	}
	return err
}
