package provider

import (
	"context"
	"time"

	"github.com/cx-tal-miterani/fare-booking/internal/models"
	"golang.org/x/time/rate"
)

type rateLimitedGateway struct {
	gw      Gateway
	limiter *rate.Limiter
}

// NewRateLimited spaces calls to gw at least interval apart. A zero
// interval returns gw unchanged.
func NewRateLimited(gw Gateway, interval time.Duration) Gateway {
	if interval <= 0 {
		return gw
	}
	return &rateLimitedGateway{gw: gw, limiter: rate.NewLimiter(rate.Every(interval), 1)}
}

func (r *rateLimitedGateway) wait(ctx context.Context, op string) error {
	if err := r.limiter.Wait(ctx); err != nil {
		return &Error{Op: op, Err: err}
	}
	return nil
}

func (r *rateLimitedGateway) Name() string {
	return r.gw.Name()
}

func (r *rateLimitedGateway) PriceRoutes(ctx context.Context, query models.SearchQuery) ([]models.Route, error) {
	if err := r.wait(ctx, "price_routes"); err != nil {
		return nil, err
	}
	return r.gw.PriceRoutes(ctx, query)
}

func (r *rateLimitedGateway) PriceBrandFare(ctx context.Context, flights []models.Flight, pax models.PassengerCounts) ([]models.BrandFare, error) {
	if err := r.wait(ctx, "price_brand_fare"); err != nil {
		return nil, err
	}
	return r.gw.PriceBrandFare(ctx, flights, pax)
}

func (r *rateLimitedGateway) CreateReservation(ctx context.Context, req ReservationRequest) (*Reservation, error) {
	if err := r.wait(ctx, "create_reservation"); err != nil {
		return nil, err
	}
	return r.gw.CreateReservation(ctx, req)
}

func (r *rateLimitedGateway) RecalcReservation(ctx context.Context, orderID string) (*Recalculation, error) {
	if err := r.wait(ctx, "recalc_reservation"); err != nil {
		return nil, err
	}
	return r.gw.RecalcReservation(ctx, orderID)
}

func (r *rateLimitedGateway) ConfirmReservation(ctx context.Context, orderID string, extra models.ConfirmRequest) (*Confirmation, error) {
	if err := r.wait(ctx, "confirm_reservation"); err != nil {
		return nil, err
	}
	return r.gw.ConfirmReservation(ctx, orderID, extra)
}

func (r *rateLimitedGateway) FetchTicketDocument(ctx context.Context, orderID string) (*Document, error) {
	if err := r.wait(ctx, "fetch_ticket_document"); err != nil {
		return nil, err
	}
	return r.gw.FetchTicketDocument(ctx, orderID)
}

func (r *rateLimitedGateway) VoidReservation(ctx context.Context, orderID string) error {
	if err := r.wait(ctx, "void_reservation"); err != nil {
		return err
	}
	return r.gw.VoidReservation(ctx, orderID)
}

func (r *rateLimitedGateway) CancelReservation(ctx context.Context, orderID string) error {
	if err := r.wait(ctx, "cancel_reservation"); err != nil {
		return err
	}
	return r.gw.CancelReservation(ctx, orderID)
}
