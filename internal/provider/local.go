package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"strings"
	"sync"
	"time"

	"github.com/cx-tal-miterani/fare-booking/internal/documents"
	"github.com/cx-tal-miterani/fare-booking/internal/models"
	"github.com/google/uuid"
)

var errUnknownOrder = errors.New("unknown order")

type localBrand struct {
	id         string
	title      string
	multiplier float64
	baggage    string
	carryOn    string
	meal       string
	refund     string
	exchange   string
}

var localBrands = []localBrand{
	{id: "LIGHT", title: "Light", multiplier: 1, baggage: "no checked bag", carryOn: "1 x 10kg", meal: "for a fee", refund: "non-refundable", exchange: "for a fee"},
	{id: "STANDARD", title: "Standard", multiplier: 1.25, baggage: "1 x 23kg", carryOn: "1 x 10kg", meal: "included", refund: "for a fee", exchange: "for a fee"},
	{id: "FLEX", title: "Flex", multiplier: 1.6, baggage: "2 x 23kg", carryOn: "1 x 10kg", meal: "included", refund: "free", exchange: "free"},
}

type localOrder struct {
	id        string
	request   ReservationRequest
	amount    float64
	currency  string
	status    string
	tickets   []string
	createdAt time.Time
}

// Local is an in-process gateway used when no provider endpoint is
// configured. Prices come from the fallback dataset and orders live in memory.
type Local struct {
	name string
	now  func() time.Time

	mu     sync.Mutex
	orders map[string]*localOrder
}

func NewLocal(name string) *Local {
	if name == "" {
		name = "local"
	}
	return &Local{
		name:   name,
		now:    time.Now,
		orders: make(map[string]*localOrder),
	}
}

func (l *Local) Name() string {
	return l.name
}

func (l *Local) PriceRoutes(ctx context.Context, query models.SearchQuery) ([]models.Route, error) {
	if len(query.Directions) == 0 {
		return nil, &Error{Op: "price_routes", Err: errors.New("no directions")}
	}
	routes := FallbackRoutes(query)
	for i := range routes {
		routes[i].Provider = l.name
		routes[i].ID = strings.Replace(routes[i].ID, "fb-", "loc-", 1)
	}
	return routes, nil
}

func (l *Local) PriceBrandFare(ctx context.Context, flights []models.Flight, pax models.PassengerCounts) ([]models.BrandFare, error) {
	if len(flights) == 0 {
		return nil, &Error{Op: "price_brand_fare", Err: errors.New("no flights")}
	}
	h := fnv.New32a()
	for _, f := range flights {
		fmt.Fprintf(h, "%s%s@%s;", f.Carrier, f.FlightNumber, f.DepartureTime.UTC().Format(time.RFC3339))
	}
	base := 3000 + float64(h.Sum32()%6000)
	weight := float64(pax.Adults) + 0.75*float64(pax.Children) + 0.1*float64(pax.Infants)
	if weight == 0 {
		weight = 1
	}

	fares := make([]models.BrandFare, 0, len(localBrands))
	for _, b := range localBrands {
		fares = append(fares, models.BrandFare{
			BrandID:  b.id,
			Title:    b.title,
			Amount:   roundAmount(base * b.multiplier * weight),
			Currency: fallbackCurrency,
			Baggage:  b.baggage,
			CarryOn:  b.carryOn,
			Meal:     b.meal,
			Refund:   b.refund,
			Exchange: b.exchange,
			Flights:  append([]models.Flight(nil), flights...),
		})
	}
	return fares, nil
}

func (l *Local) CreateReservation(ctx context.Context, req ReservationRequest) (*Reservation, error) {
	const op = "create_reservation"
	if len(req.Segments) == 0 || len(req.BrandFare.Flights) == 0 {
		return nil, &Error{Op: op, StatusCode: 422, Body: "no flights to reserve"}
	}
	if len(req.Passengers) == 0 {
		return nil, &Error{Op: op, StatusCode: 422, Body: "no passengers"}
	}

	order := &localOrder{
		id:        "LOC-" + strings.ToUpper(uuid.NewString()[:8]),
		request:   req,
		amount:    req.BrandFare.Amount,
		currency:  req.BrandFare.Currency,
		status:    "booked",
		createdAt: l.now(),
	}
	l.mu.Lock()
	l.orders[order.id] = order
	l.mu.Unlock()

	raw, _ := json.Marshal(map[string]any{
		"order_id": order.id,
		"status":   order.status,
		"total":    wireMoney{Amount: order.amount, Currency: order.currency},
	})
	return &Reservation{OrderID: order.id, Amount: order.amount, Currency: order.currency, Raw: raw}, nil
}

func (l *Local) RecalcReservation(ctx context.Context, orderID string) (*Recalculation, error) {
	order, err := l.order("recalc_reservation", orderID)
	if err != nil {
		return nil, err
	}
	raw, _ := json.Marshal(wireRecalcResponse{
		OrderID: order.id,
		Total:   wireMoney{Amount: order.amount, Currency: order.currency},
	})
	return &Recalculation{
		OrderID:        order.id,
		Amount:         order.amount,
		Currency:       order.currency,
		PreviousAmount: order.amount,
		Raw:            raw,
	}, nil
}

func (l *Local) ConfirmReservation(ctx context.Context, orderID string, extra models.ConfirmRequest) (*Confirmation, error) {
	const op = "confirm_reservation"
	l.mu.Lock()
	defer l.mu.Unlock()

	order, ok := l.orders[orderID]
	if !ok {
		return nil, &Error{Op: op, StatusCode: 404, Err: errUnknownOrder}
	}
	if order.status != "booked" {
		return nil, &Error{Op: op, StatusCode: 409, Body: "order is " + order.status}
	}
	order.status = "ticketed"
	order.tickets = make([]string, 0, len(order.request.Passengers))
	for i := range order.request.Passengers {
		order.tickets = append(order.tickets, fmt.Sprintf("555-%010d", uint32(order.createdAt.UnixNano())%1_000_000_000+uint32(i)))
	}

	raw, _ := json.Marshal(wireConfirmResponse{OrderID: order.id, Status: order.status, Tickets: order.tickets})
	return &Confirmation{
		OrderID:       order.id,
		Status:        order.status,
		TicketNumbers: append([]string(nil), order.tickets...),
		Raw:           raw,
	}, nil
}

func (l *Local) FetchTicketDocument(ctx context.Context, orderID string) (*Document, error) {
	const op = "fetch_ticket_document"
	order, err := l.order(op, orderID)
	if err != nil {
		return nil, err
	}
	if order.status != "ticketed" {
		return nil, &Error{Op: op, StatusCode: 409, Body: "order is not ticketed"}
	}
	content, _, err := documents.RenderTicket(documents.TicketData{
		OrderID:       order.id,
		Passengers:    order.request.Passengers,
		Segments:      order.request.Segments,
		BrandTitle:    order.request.BrandFare.Title,
		TicketNumbers: order.tickets,
		Amount:        order.amount,
		Currency:      order.currency,
		IssuedAt:      l.now(),
	})
	if err != nil {
		return nil, &Error{Op: op, Err: err}
	}
	return &Document{Content: content, ContentType: documents.ContentTypePDF}, nil
}

func (l *Local) VoidReservation(ctx context.Context, orderID string) error {
	return l.transition("void_reservation", orderID, "ticketed", "voided")
}

func (l *Local) CancelReservation(ctx context.Context, orderID string) error {
	return l.transition("cancel_reservation", orderID, "booked", "canceled")
}

func (l *Local) transition(op, orderID, from, to string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	order, ok := l.orders[orderID]
	if !ok {
		return &Error{Op: op, StatusCode: 404, Err: errUnknownOrder}
	}
	if order.status != from {
		return &Error{Op: op, StatusCode: 409, Body: "order is " + order.status}
	}
	order.status = to
	return nil
}

// order returns a snapshot of the order
func (l *Local) order(op, orderID string) (localOrder, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	order, ok := l.orders[orderID]
	if !ok {
		return localOrder{}, &Error{Op: op, StatusCode: 404, Err: errUnknownOrder}
	}
	out := *order
	out.tickets = append([]string(nil), order.tickets...)
	return out, nil
}
