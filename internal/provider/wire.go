package provider

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cx-tal-miterani/fare-booking/internal/models"
)

// v1 wire shapes. They are decoded and validated here and never leave the package.

const wireDateLayout = "2006-01-02"

type wireMoney struct {
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
}

type wireDirection struct {
	DepartureAirport string `json:"departure_airport"`
	ArrivalAirport   string `json:"arrival_airport"`
	Date             string `json:"date"`
}

type wireSearchRequest struct {
	Directions   []wireDirection `json:"directions"`
	Adults       int             `json:"adults"`
	Children     int             `json:"children"`
	Infants      int             `json:"infants"`
	ServiceClass string          `json:"service_class"`
}

type wireFlight struct {
	Carrier          string    `json:"carrier"`
	FlightNumber     string    `json:"flight_number"`
	DepartureAirport string    `json:"departure_airport"`
	ArrivalAirport   string    `json:"arrival_airport"`
	DepartureAt      time.Time `json:"departure_at"`
	ArrivalAt        time.Time `json:"arrival_at"`
	ServiceClass     string    `json:"service_class"`
	BookingClass     string    `json:"booking_class,omitempty"`
	Seats            int       `json:"seats,omitempty"`
	Aircraft         string    `json:"aircraft,omitempty"`
}

type wireSegment struct {
	Flights []wireFlight `json:"flights"`
}

type wirePrice struct {
	PassengerType string  `json:"passenger_type"`
	Amount        float64 `json:"amount"`
	Currency      string  `json:"currency"`
}

type wireRoute struct {
	ID                string        `json:"id"`
	ValidatingCarrier string        `json:"validating_carrier"`
	Segments          []wireSegment `json:"segments"`
	Prices            []wirePrice   `json:"prices"`
	Total             wireMoney     `json:"total"`
}

type wireSearchResponse struct {
	Routes []wireRoute `json:"routes"`
}

type wireBrandFareRequest struct {
	Flights  []wireFlight `json:"flights"`
	Adults   int          `json:"adults"`
	Children int          `json:"children"`
	Infants  int          `json:"infants"`
}

type wireBrandFare struct {
	BrandID  string       `json:"brand_id"`
	Name     string       `json:"name"`
	Total    wireMoney    `json:"total"`
	Baggage  string       `json:"baggage"`
	CarryOn  string       `json:"carry_on"`
	Meal     string       `json:"meal"`
	Refund   string       `json:"refund"`
	Exchange string       `json:"exchange"`
	Flights  []wireFlight `json:"flights"`
}

type wireBrandFareResponse struct {
	BrandFares []wireBrandFare `json:"brand_fares"`
}

type wirePassenger struct {
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	MiddleName     string `json:"middle_name,omitempty"`
	Gender         string `json:"gender"`
	Citizenship    string `json:"citizenship"`
	BirthDate      string `json:"birth_date"`
	DocumentNumber string `json:"document_number"`
	DocumentExpiry string `json:"document_expiry,omitempty"`
	Type           string `json:"type"`
}

type wireContact struct {
	Phone string `json:"phone"`
	Email string `json:"email"`
}

type wireOrderRequest struct {
	Segments   []wireSegment   `json:"segments"`
	BrandID    string          `json:"brand_id"`
	Flights    []wireFlight    `json:"flights"`
	Passengers []wirePassenger `json:"passengers"`
	Contact    wireContact     `json:"contact"`
	Adults     int             `json:"adults"`
	Children   int             `json:"children"`
	Infants    int             `json:"infants"`
}

type wireOrderResponse struct {
	OrderID string    `json:"order_id"`
	Total   wireMoney `json:"total"`
}

type wireRecalcResponse struct {
	OrderID       string     `json:"order_id"`
	Total         wireMoney  `json:"total"`
	PreviousTotal *wireMoney `json:"previous_total,omitempty"`
	PriceChanged  bool       `json:"price_changed"`
}

type wireDocument struct {
	DocumentNumber string `json:"document_number"`
	DocumentExpiry string `json:"document_expiry,omitempty"`
}

type wireConfirmRequest struct {
	Documents     []wireDocument `json:"documents,omitempty"`
	PaymentMethod string         `json:"payment_method,omitempty"`
	PaymentRef    string         `json:"payment_ref,omitempty"`
}

type wireConfirmResponse struct {
	OrderID string   `json:"order_id"`
	Status  string   `json:"status"`
	Tickets []string `json:"tickets"`
}

var errInvalidResponse = errors.New("invalid provider response")

func toWireSearch(q models.SearchQuery) wireSearchRequest {
	req := wireSearchRequest{
		Adults:       q.Passengers.Adults,
		Children:     q.Passengers.Children,
		Infants:      q.Passengers.Infants,
		ServiceClass: strings.ToUpper(string(q.Cabin)),
	}
	for _, d := range q.Directions {
		req.Directions = append(req.Directions, wireDirection{
			DepartureAirport: d.From,
			ArrivalAirport:   d.To,
			Date:             d.Date.Format(wireDateLayout),
		})
	}
	return req
}

func toWireFlights(flights []models.Flight) []wireFlight {
	out := make([]wireFlight, 0, len(flights))
	for _, f := range flights {
		out = append(out, wireFlight{
			Carrier:          f.Carrier,
			FlightNumber:     f.FlightNumber,
			DepartureAirport: f.DepartureAirport,
			ArrivalAirport:   f.ArrivalAirport,
			DepartureAt:      f.DepartureTime,
			ArrivalAt:        f.ArrivalTime,
			ServiceClass:     strings.ToUpper(f.CabinClass),
			BookingClass:     f.FareClass,
			Seats:            f.SeatsAvailable,
			Aircraft:         f.Aircraft,
		})
	}
	return out
}

func toWireSegments(segments []models.Segment) []wireSegment {
	out := make([]wireSegment, 0, len(segments))
	for _, s := range segments {
		out = append(out, wireSegment{Flights: toWireFlights(s.Flights)})
	}
	return out
}

func toWireOrder(req ReservationRequest) wireOrderRequest {
	out := wireOrderRequest{
		Segments: toWireSegments(req.Segments),
		BrandID:  req.BrandFare.BrandID,
		Flights:  toWireFlights(req.BrandFare.Flights),
		Contact:  wireContact{Phone: req.Contact.Phone, Email: req.Contact.Email},
		Adults:   req.Counts.Adults,
		Children: req.Counts.Children,
		Infants:  req.Counts.Infants,
	}
	for _, p := range req.Passengers {
		out.Passengers = append(out.Passengers, wirePassenger{
			FirstName:      p.FirstName,
			LastName:       p.LastName,
			MiddleName:     p.MiddleName,
			Gender:         p.Gender,
			Citizenship:    p.Citizenship,
			BirthDate:      p.BirthDate,
			DocumentNumber: p.DocumentNumber,
			DocumentExpiry: p.DocumentExpiry,
			Type:           p.PassengerType,
		})
	}
	return out
}

func toWireConfirm(extra models.ConfirmRequest) wireConfirmRequest {
	out := wireConfirmRequest{
		PaymentMethod: extra.PaymentMethod,
		PaymentRef:    extra.PaymentRef,
	}
	for _, d := range extra.Documents {
		out.Documents = append(out.Documents, wireDocument{
			DocumentNumber: d.DocumentNumber,
			DocumentExpiry: d.DocumentExpiry,
		})
	}
	return out
}

func (f wireFlight) toDomain() (models.Flight, error) {
	if f.Carrier == "" || f.FlightNumber == "" {
		return models.Flight{}, fmt.Errorf("%w: flight without carrier or number", errInvalidResponse)
	}
	if f.DepartureAirport == "" || f.ArrivalAirport == "" {
		return models.Flight{}, fmt.Errorf("%w: flight %s%s without airports", errInvalidResponse, f.Carrier, f.FlightNumber)
	}
	if f.DepartureAt.IsZero() || f.ArrivalAt.IsZero() || f.ArrivalAt.Before(f.DepartureAt) {
		return models.Flight{}, fmt.Errorf("%w: flight %s%s has invalid times", errInvalidResponse, f.Carrier, f.FlightNumber)
	}
	return models.Flight{
		Carrier:          f.Carrier,
		FlightNumber:     f.FlightNumber,
		DepartureAirport: f.DepartureAirport,
		ArrivalAirport:   f.ArrivalAirport,
		DepartureTime:    f.DepartureAt,
		ArrivalTime:      f.ArrivalAt,
		CabinClass:       strings.ToLower(f.ServiceClass),
		FareClass:        f.BookingClass,
		SeatsAvailable:   f.Seats,
		Aircraft:         f.Aircraft,
	}, nil
}

func flightsToDomain(in []wireFlight) ([]models.Flight, error) {
	out := make([]models.Flight, 0, len(in))
	for _, wf := range in {
		f, err := wf.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

func (r wireRoute) toDomain(providerName string) (models.Route, error) {
	if r.ID == "" {
		return models.Route{}, fmt.Errorf("%w: route without id", errInvalidResponse)
	}
	if len(r.Segments) == 0 {
		return models.Route{}, fmt.Errorf("%w: route %s has no segments", errInvalidResponse, r.ID)
	}
	route := models.Route{
		ID:                r.ID,
		Provider:          providerName,
		Amount:            r.Total.Amount,
		Currency:          r.Total.Currency,
		ValidatingCarrier: r.ValidatingCarrier,
	}
	for _, s := range r.Segments {
		if len(s.Flights) == 0 {
			return models.Route{}, fmt.Errorf("%w: route %s has an empty segment", errInvalidResponse, r.ID)
		}
		flights, err := flightsToDomain(s.Flights)
		if err != nil {
			return models.Route{}, err
		}
		route.Segments = append(route.Segments, models.Segment{Flights: flights})
	}
	for _, p := range r.Prices {
		route.Prices = append(route.Prices, models.PriceTier{
			PassengerType: p.PassengerType,
			Amount:        p.Amount,
			Currency:      p.Currency,
		})
	}
	if route.Amount <= 0 {
		return models.Route{}, fmt.Errorf("%w: route %s has no total", errInvalidResponse, r.ID)
	}
	return route, nil
}

// requested is used when the provider omits the flight list of a brand fare:
// the fare was then priced for exactly the flights that were sent.
func (b wireBrandFare) toDomain(requested []models.Flight) (models.BrandFare, error) {
	if b.BrandID == "" {
		return models.BrandFare{}, fmt.Errorf("%w: brand fare without id", errInvalidResponse)
	}
	if b.Total.Amount <= 0 {
		return models.BrandFare{}, fmt.Errorf("%w: brand fare %s has no total", errInvalidResponse, b.BrandID)
	}
	flights := append([]models.Flight(nil), requested...)
	if len(b.Flights) > 0 {
		var err error
		flights, err = flightsToDomain(b.Flights)
		if err != nil {
			return models.BrandFare{}, err
		}
	}
	title := b.Name
	if title == "" {
		title = b.BrandID
	}
	return models.BrandFare{
		BrandID:  b.BrandID,
		Title:    title,
		Amount:   b.Total.Amount,
		Currency: b.Total.Currency,
		Baggage:  b.Baggage,
		CarryOn:  b.CarryOn,
		Meal:     b.Meal,
		Refund:   b.Refund,
		Exchange: b.Exchange,
		Flights:  flights,
	}, nil
}
