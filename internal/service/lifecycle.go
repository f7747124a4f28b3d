package service

import (
	"context"
	"fmt"

	"github.com/cx-tal-miterani/fare-booking/internal/events"
	"github.com/cx-tal-miterani/fare-booking/internal/models"
)

func (s *bookingServiceImpl) GetBooking(ctx context.Context, userID, bookingID string) (*models.Booking, error) {
	return s.owned(ctx, userID, bookingID)
}

func (s *bookingServiceImpl) ListBookings(ctx context.Context, userID string) ([]*models.Booking, error) {
	list, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	if list == nil {
		list = []*models.Booking{}
	}
	return list, nil
}

// RecalcBooking asks the provider for the current order total and stores it
// as the payment amount.
func (s *bookingServiceImpl) RecalcBooking(ctx context.Context, userID, bookingID string) (*models.Booking, error) {
	b, err := s.owned(ctx, userID, bookingID)
	if err != nil {
		return nil, err
	}
	if b.Status != models.BookingStatusReserved || b.IsMock() {
		return nil, fmt.Errorf("%w: cannot recalculate a %s booking", ErrInvalidState, describe(b))
	}

	rec, err := s.gateway.RecalcReservation(ctx, b.ProviderBookingID)
	if err != nil {
		return nil, err
	}

	updated, err := s.mutate(ctx, b.ID, func(b *models.Booking) error {
		if b.Status != models.BookingStatusReserved {
			return fmt.Errorf("%w: booking is %s", ErrInvalidState, b.Status)
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
		s.logger.Info("order total changed", "booking_id", b.ID, "previous", rec.PreviousAmount, "amount", rec.Amount)
	}
	s.publish(ctx, events.TypeRecalculated, updated)
	return updated, nil
}

// ConfirmBooking tickets a reserved booking: recalculation first, then
// confirmation with the provider. Provider errors are returned unchanged.
func (s *bookingServiceImpl) ConfirmBooking(ctx context.Context, userID, bookingID string, req *models.ConfirmRequest) (*models.Booking, error) {
	b, err := s.owned(ctx, userID, bookingID)
	if err != nil {
		return nil, err
	}
	if b.Status != models.BookingStatusReserved || b.IsMock() {
		return nil, fmt.Errorf("%w: cannot confirm a %s booking", ErrInvalidState, describe(b))
	}

	in := models.TicketingInput{BookingID: b.ID.String()}
	if req != nil {
		in.Confirm = *req
	}
	res, err := s.ticketer.Ticket(ctx, in)
	if err != nil {
		if current, getErr := s.repo.Get(ctx, b.ID); getErr == nil && current.Status != models.BookingStatusReserved {
			return nil, fmt.Errorf("%w: booking is %s", ErrInvalidState, current.Status)
		}
		return nil, err
	}

	updated, err := s.repo.Get(ctx, b.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload booking: %w", err)
	}
	s.logger.Info("booking ticketed", "booking_id", b.ID, "amount", res.Amount, "price_changed", res.PriceChanged)
	s.publish(ctx, events.TypeTicketed, updated)
	return updated, nil
}

// PayBooking records the payment as paid. No money moves here.
func (s *bookingServiceImpl) PayBooking(ctx context.Context, userID, bookingID string) (*models.Booking, error) {
	b, err := s.owned(ctx, userID, bookingID)
	if err != nil {
		return nil, err
	}
	if b.Payment.Status == models.PaymentStatusPaid {
		return b, nil
	}

	updated, err := s.mutate(ctx, b.ID, func(b *models.Booking) error {
		if b.Status == models.BookingStatusCanceled {
			return fmt.Errorf("%w: booking is canceled", ErrInvalidState)
		}
		if b.Payment.Status != models.PaymentStatusPending && b.Payment.Status != models.PaymentStatusPaid {
			return fmt.Errorf("%w: payment is %s", ErrInvalidState, b.Payment.Status)
		}
		b.Payment.Status = models.PaymentStatusPaid
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events.TypePaid, updated)
	return updated, nil
}

// CancelBooking cancels a reserved order or voids a ticketed one with the
// provider, then marks the booking canceled. Paid bookings become refunded.
func (s *bookingServiceImpl) CancelBooking(ctx context.Context, userID, bookingID string) (*models.Booking, error) {
	b, err := s.owned(ctx, userID, bookingID)
	if err != nil {
		return nil, err
	}

	if !b.IsMock() {
		switch b.Status {
		case models.BookingStatusReserved:
			err = s.gateway.CancelReservation(ctx, b.ProviderBookingID)
		case models.BookingStatusTicketed:
			err = s.gateway.VoidReservation(ctx, b.ProviderBookingID)
		default:
			return nil, fmt.Errorf("%w: booking is %s", ErrInvalidState, b.Status)
		}
		if err != nil {
			return nil, err
		}
	}

	from := b.Status
	updated, err := s.mutate(ctx, b.ID, func(b *models.Booking) error {
		if b.Status == models.BookingStatusCanceled {
			return fmt.Errorf("%w: booking is canceled", ErrInvalidState)
		}
		b.Status = models.BookingStatusCanceled
		switch b.Payment.Status {
		case models.PaymentStatusPaid:
			b.Payment.Status = models.PaymentStatusRefunded
		case models.PaymentStatusPending:
			b.Payment.Status = models.PaymentStatusCanceled
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("booking canceled", "booking_id", b.ID, "from", from, "payment", updated.Payment.Status)
	s.publish(ctx, events.TypeCanceled, updated)
	return updated, nil
}

func describe(b *models.Booking) string {
	if b.IsMock() {
		return "degraded"
	}
	return string(b.Status)
}
