package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cx-tal-miterani/fare-booking/internal/events"
	"github.com/cx-tal-miterani/fare-booking/internal/models"
	"github.com/cx-tal-miterani/fare-booking/internal/observability"
	"github.com/cx-tal-miterani/fare-booking/internal/offers"
	"github.com/cx-tal-miterani/fare-booking/internal/provider"
	"github.com/google/uuid"
)

const (
	maxPassengers = 9
	dateLayout    = "2006-01-02"
)

// CreateBooking redeems an offer and opens a provider reservation for it.
//
// The offer is consumed before anything else so only one caller can redeem
// it. When a later step fails the offer is released again and a local mock
// booking is stored, returned with OK=false and outcome degraded.
func (s *bookingServiceImpl) CreateBooking(ctx context.Context, userID string, req *models.CreateBookingRequest) (*models.CreateBookingResult, error) {
	if err := validateCreate(req); err != nil {
		return nil, err
	}

	offer, err := s.offers.Consume(ctx, req.OfferID)
	switch {
	case errors.Is(err, offers.ErrNotFound):
		observability.OffersConsumedTotal.WithLabelValues("not_found").Inc()
		return nil, ErrOfferNotFound
	case errors.Is(err, offers.ErrExpired):
		observability.OffersConsumedTotal.WithLabelValues("expired").Inc()
		return nil, ErrOfferExpired
	case err != nil:
		return nil, fmt.Errorf("failed to consume offer: %w", err)
	}
	observability.OffersConsumedTotal.WithLabelValues("ok").Inc()

	passengers := normalizePassengers(req.Passengers)
	contact := s.normalizeContact(req.Contact)

	fare, res, err := s.reserve(ctx, offer, req.BrandID, passengers, contact)
	if err != nil {
		return s.degrade(ctx, userID, req, offer, fare, passengers, contact, err)
	}

	booking := &models.Booking{
		UserID:            userID,
		OfferID:           offer.ID,
		BrandID:           fare.BrandID,
		Passengers:        passengers,
		Contact:           contact,
		Payment:           models.Payment{Status: models.PaymentStatusPending, Amount: fare.Amount, Currency: fare.Currency},
		Status:            models.BookingStatusReserved,
		Provider:          s.gateway.Name(),
		ProviderBookingID: res.OrderID,
		RawProviderData:   res.Raw,
	}
	if err := s.repo.Create(ctx, booking); err != nil {
		// The provider order exists; keep the offer consumed so it is not sold twice.
		s.logger.Error("provider order created but booking not persisted",
			"order_id", res.OrderID, "offer_id", offer.ID, "user_id", userID, "error", err)
		observability.BookingsTotal.WithLabelValues(string(models.OutcomeFailed)).Inc()
		return nil, fmt.Errorf("failed to persist booking for order %s: %w", res.OrderID, err)
	}

	observability.BookingsTotal.WithLabelValues(string(models.OutcomeLive)).Inc()
	s.logger.Info("booking reserved", "booking_id", booking.ID, "order_id", res.OrderID, "amount", fare.Amount)
	s.publish(ctx, events.TypeReserved, booking)

	return &models.CreateBookingResult{OK: true, Outcome: models.OutcomeLive, Booking: booking}, nil
}

// reserve re-prices the chosen brand fare and opens the provider order.
// The returned fare is the freshest price known, even on failure.
func (s *bookingServiceImpl) reserve(ctx context.Context, offer *offers.Offer, brandID string, passengers []models.Passenger, contact models.Contact) (models.BrandFare, *provider.Reservation, error) {
	route := offer.Route
	chosen := s.chooseBrand(route, brandID)

	flights := chosen.Flights
	if len(flights) == 0 {
		flights = route.Flights()
	}
	counts := countPassengers(passengers)

	fresh, err := s.gateway.PriceBrandFare(ctx, flights, counts)
	if err != nil {
		return chosen, nil, fmt.Errorf("re-price: %w", err)
	}
	fare, ok := pickFare(fresh, chosen.BrandID)
	if !ok {
		return chosen, nil, fmt.Errorf("re-price: provider returned no brand fares")
	}
	if len(fare.Flights) == 0 {
		fare.Flights = flights
	}
	if fare.Amount != chosen.Amount {
		s.logger.Info("brand fare re-priced", "offer_id", offer.ID, "brand_id", fare.BrandID,
			"cached_amount", chosen.Amount, "amount", fare.Amount)
	}

	res, err := s.gateway.CreateReservation(ctx, provider.ReservationRequest{
		Segments:   route.Segments,
		BrandFare:  fare,
		Passengers: passengers,
		Contact:    contact,
		Counts:     counts,
	})
	if err != nil {
		return fare, nil, fmt.Errorf("create reservation: %w", err)
	}
	return fare, res, nil
}

// chooseBrand resolves brandID leniently: unknown or empty ids fall back to
// the first brand fare of the route.
func (s *bookingServiceImpl) chooseBrand(route models.Route, brandID string) models.BrandFare {
	if bf, ok := route.BrandFare(brandID); ok {
		return bf
	}
	if len(route.BrandFares) > 0 {
		s.logger.Warn("brand fare not found on route, using first", "route_id", route.ID,
			"requested", brandID, "using", route.BrandFares[0].BrandID)
		return route.BrandFares[0]
	}
	return models.BrandFare{BrandID: brandID, Amount: route.Amount, Currency: route.Currency}
}

func pickFare(fares []models.BrandFare, brandID string) (models.BrandFare, bool) {
	if len(fares) == 0 {
		return models.BrandFare{}, false
	}
	for _, f := range fares {
		if brandID != "" && f.BrandID == brandID {
			return f, true
		}
	}
	return fares[0], true
}

func (s *bookingServiceImpl) degrade(ctx context.Context, userID string, req *models.CreateBookingRequest, offer *offers.Offer,
	fare models.BrandFare, passengers []models.Passenger, contact models.Contact, cause error) (*models.CreateBookingResult, error) {

	s.logger.Warn("reservation failed, storing mock booking", "offer_id", offer.ID, "user_id", userID, "error", cause)

	if err := s.offers.Release(ctx, offer); err != nil {
		s.logger.Warn("failed to release offer", "offer_id", offer.ID, "error", err)
	}

	amount, currency := fare.Amount, fare.Currency
	if currency == "" {
		amount, currency = offer.Amount, offer.Currency
	}
	brandID := fare.BrandID
	if brandID == "" {
		brandID = req.BrandID
	}

	booking := &models.Booking{
		UserID:            userID,
		OfferID:           offer.ID,
		BrandID:           brandID,
		Passengers:        passengers,
		Contact:           contact,
		Payment:           models.Payment{Status: models.PaymentStatusPending, Amount: amount, Currency: currency},
		Status:            models.BookingStatusReserved,
		Provider:          models.MockProvider,
		ProviderBookingID: "MOCK-" + strings.ToUpper(uuid.NewString()[:8]),
		FailureReason:     cause.Error(),
	}
	if err := s.repo.Create(ctx, booking); err != nil {
		observability.BookingsTotal.WithLabelValues(string(models.OutcomeFailed)).Inc()
		return nil, fmt.Errorf("failed to persist mock booking: %w", errors.Join(cause, err))
	}

	observability.BookingsTotal.WithLabelValues(string(models.OutcomeDegraded)).Inc()
	s.publish(ctx, events.TypeDegraded, booking)

	return &models.CreateBookingResult{
		OK:      false,
		Outcome: models.OutcomeDegraded,
		Booking: booking,
		Error:   cause.Error(),
	}, nil
}

func validateCreate(req *models.CreateBookingRequest) error {
	if req == nil {
		return &ValidationError{Field: "body", Msg: "is required"}
	}
	if strings.TrimSpace(req.OfferID) == "" {
		return &ValidationError{Field: "offerId", Msg: "is required"}
	}
	if len(req.Passengers) == 0 {
		return &ValidationError{Field: "passengers", Msg: "at least one passenger is required"}
	}
	if len(req.Passengers) > maxPassengers {
		return &ValidationError{Field: "passengers", Msg: fmt.Sprintf("at most %d passengers", maxPassengers)}
	}
	for i, p := range req.Passengers {
		field := func(name string) string { return fmt.Sprintf("passengers[%d].%s", i, name) }
		required := []struct{ name, value string }{
			{"firstName", p.FirstName},
			{"lastName", p.LastName},
			{"gender", p.Gender},
			{"citizenship", p.Citizenship},
			{"birthDate", p.BirthDate},
			{"documentNumber", p.DocumentNumber},
			{"documentExpiry", p.DocumentExpiry},
		}
		for _, r := range required {
			if strings.TrimSpace(r.value) == "" {
				return &ValidationError{Field: field(r.name), Msg: "is required"}
			}
		}
		switch strings.ToUpper(strings.TrimSpace(p.Gender)) {
		case "M", "F":
		default:
			return &ValidationError{Field: field("gender"), Msg: "must be M or F"}
		}
		if _, err := time.Parse(dateLayout, strings.TrimSpace(p.BirthDate)); err != nil {
			return &ValidationError{Field: field("birthDate"), Msg: "must be YYYY-MM-DD"}
		}
		if _, err := time.Parse(dateLayout, strings.TrimSpace(p.DocumentExpiry)); err != nil {
			return &ValidationError{Field: field("documentExpiry"), Msg: "must be YYYY-MM-DD"}
		}
		switch strings.ToUpper(strings.TrimSpace(p.PassengerType)) {
		case "", "ADT", "CHD", "INF":
		default:
			return &ValidationError{Field: field("passengerType"), Msg: "must be ADT, CHD or INF"}
		}
	}
	return nil
}

func normalizePassengers(in []models.Passenger) []models.Passenger {
	out := make([]models.Passenger, len(in))
	for i, p := range in {
		p.FirstName = strings.ToUpper(strings.TrimSpace(p.FirstName))
		p.LastName = strings.ToUpper(strings.TrimSpace(p.LastName))
		p.MiddleName = strings.ToUpper(strings.TrimSpace(p.MiddleName))
		p.Gender = strings.ToUpper(strings.TrimSpace(p.Gender))
		p.Citizenship = strings.ToUpper(strings.TrimSpace(p.Citizenship))
		p.BirthDate = strings.TrimSpace(p.BirthDate)
		p.DocumentNumber = strings.TrimSpace(p.DocumentNumber)
		p.DocumentExpiry = strings.TrimSpace(p.DocumentExpiry)
		p.PassengerType = strings.ToUpper(strings.TrimSpace(p.PassengerType))
		if p.PassengerType == "" {
			p.PassengerType = "ADT"
		}
		out[i] = p
	}
	return out
}

// normalizeContact fills missing phone or email from the configured
// defaults because the provider rejects orders without both.
func (s *bookingServiceImpl) normalizeContact(c models.Contact) models.Contact {
	c.Phone = strings.TrimSpace(c.Phone)
	c.Email = strings.TrimSpace(c.Email)
	if c.Phone == "" {
		c.Phone = s.defaultContact.Phone
	}
	if c.Email == "" {
		c.Email = s.defaultContact.Email
	}
	return c
}

func countPassengers(pax []models.Passenger) models.PassengerCounts {
	var c models.PassengerCounts
	for _, p := range pax {
		switch p.PassengerType {
		case "CHD":
			c.Children++
		case "INF":
			c.Infants++
		default:
			c.Adults++
		}
	}
	return c
}
