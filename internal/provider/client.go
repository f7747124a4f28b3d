package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cx-tal-miterani/fare-booking/internal/logging"
	"github.com/cx-tal-miterani/fare-booking/internal/models"
	"github.com/cx-tal-miterani/fare-booking/internal/observability"
)

const (
	previewLimit = 512
	maxBodyBytes = 32 << 20
)

type ClientConfig struct {
	BaseURL string
	Token   string
	Name    string
	Timeout time.Duration
}

// Client talks JSON over HTTPS to the reservation provider
type Client struct {
	baseURL string
	auth    string
	name    string
	http    *http.Client
	logger  *slog.Logger
}

func NewClient(cfg ClientConfig, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 3 * time.Minute
	}
	name := cfg.Name
	if name == "" {
		name = "gds"
	}
	auth := cfg.Token
	if auth != "" && !strings.Contains(auth, " ") {
		auth = "Bearer " + auth
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		auth:    auth,
		name:    name,
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

func (c *Client) Name() string {
	return c.name
}

func (c *Client) PriceRoutes(ctx context.Context, query models.SearchQuery) ([]models.Route, error) {
	const op = "price_routes"
	var resp wireSearchResponse
	if err := c.doJSON(ctx, op, http.MethodPost, "/v1/search/routes", toWireSearch(query), &resp); err != nil {
		return nil, err
	}
	routes := make([]models.Route, 0, len(resp.Routes))
	for _, wr := range resp.Routes {
		r, err := wr.toDomain(c.name)
		if err != nil {
			return nil, &Error{Op: op, Err: err}
		}
		routes = append(routes, r)
	}
	return routes, nil
}

func (c *Client) PriceBrandFare(ctx context.Context, flights []models.Flight, pax models.PassengerCounts) ([]models.BrandFare, error) {
	const op = "price_brand_fare"
	req := wireBrandFareRequest{
		Flights:  toWireFlights(flights),
		Adults:   pax.Adults,
		Children: pax.Children,
		Infants:  pax.Infants,
	}
	var resp wireBrandFareResponse
	if err := c.doJSON(ctx, op, http.MethodPost, "/v1/search/brand-fares", req, &resp); err != nil {
		return nil, err
	}
	fares := make([]models.BrandFare, 0, len(resp.BrandFares))
	for _, wb := range resp.BrandFares {
		bf, err := wb.toDomain(flights)
		if err != nil {
			return nil, &Error{Op: op, Err: err}
		}
		fares = append(fares, bf)
	}
	return fares, nil
}

func (c *Client) CreateReservation(ctx context.Context, req ReservationRequest) (*Reservation, error) {
	const op = "create_reservation"
	var resp wireOrderResponse
	raw, err := c.doJSONRaw(ctx, op, http.MethodPost, "/v1/orders", toWireOrder(req), &resp)
	if err != nil {
		return nil, err
	}
	if resp.OrderID == "" {
		return nil, &Error{Op: op, Body: logging.Preview(raw, previewLimit), Err: fmt.Errorf("%w: missing order id", errInvalidResponse)}
	}
	return &Reservation{
		OrderID:  resp.OrderID,
		Amount:   resp.Total.Amount,
		Currency: resp.Total.Currency,
		Raw:      raw,
	}, nil
}

func (c *Client) RecalcReservation(ctx context.Context, orderID string) (*Recalculation, error) {
	const op = "recalc_reservation"
	var resp wireRecalcResponse
	raw, err := c.doJSONRaw(ctx, op, http.MethodPost, orderPath(orderID, "recalc"), nil, &resp)
	if err != nil {
		return nil, err
	}
	if resp.Total.Amount <= 0 {
		return nil, &Error{Op: op, Body: logging.Preview(raw, previewLimit), Err: fmt.Errorf("%w: missing total", errInvalidResponse)}
	}
	out := &Recalculation{
		OrderID:  orderID,
		Amount:   resp.Total.Amount,
		Currency: resp.Total.Currency,
		Changed:  resp.PriceChanged,
		Raw:      raw,
	}
	if resp.PreviousTotal != nil {
		out.PreviousAmount = resp.PreviousTotal.Amount
	}
	return out, nil
}

func (c *Client) ConfirmReservation(ctx context.Context, orderID string, extra models.ConfirmRequest) (*Confirmation, error) {
	const op = "confirm_reservation"
	var resp wireConfirmResponse
	raw, err := c.doJSONRaw(ctx, op, http.MethodPost, orderPath(orderID, "confirm"), toWireConfirm(extra), &resp)
	if err != nil {
		return nil, err
	}
	return &Confirmation{
		OrderID:       orderID,
		Status:        resp.Status,
		TicketNumbers: resp.Tickets,
		Raw:           raw,
	}, nil
}

func (c *Client) FetchTicketDocument(ctx context.Context, orderID string) (*Document, error) {
	const op = "fetch_ticket_document"
	res, err := c.send(ctx, op, http.MethodGet, orderPath(orderID, "ticket"), nil)
	if err != nil {
		return nil, err
	}
	if len(res.body) == 0 {
		return nil, &Error{Op: op, StatusCode: res.status, Err: fmt.Errorf("%w: empty document", errInvalidResponse)}
	}
	contentType := res.contentType
	if contentType == "" {
		contentType = "application/pdf"
	}
	return &Document{Content: res.body, ContentType: contentType}, nil
}

func (c *Client) VoidReservation(ctx context.Context, orderID string) error {
	_, err := c.send(ctx, "void_reservation", http.MethodPost, orderPath(orderID, "void"), nil)
	return err
}

func (c *Client) CancelReservation(ctx context.Context, orderID string) error {
	_, err := c.send(ctx, "cancel_reservation", http.MethodPost, orderPath(orderID, "cancel"), nil)
	return err
}

func orderPath(orderID, action string) string {
	return "/v1/orders/" + url.PathEscape(orderID) + "/" + action
}

type rawResponse struct {
	status      int
	contentType string
	body        []byte
}

func (c *Client) doJSON(ctx context.Context, op, method, path string, in, out any) error {
	_, err := c.doJSONRaw(ctx, op, method, path, in, out)
	return err
}

func (c *Client) doJSONRaw(ctx context.Context, op, method, path string, in, out any) ([]byte, error) {
	res, err := c.send(ctx, op, method, path, in)
	if err != nil {
		return nil, err
	}
	if out != nil {
		if err := json.Unmarshal(res.body, out); err != nil {
			return nil, &Error{
				Op:         op,
				StatusCode: res.status,
				Body:       logging.Preview(res.body, previewLimit),
				Err:        fmt.Errorf("%w: %v", errInvalidResponse, err),
			}
		}
	}
	return res.body, nil
}

// send performs one request. Every outcome is logged and counted; nothing is retried.
func (c *Client) send(ctx context.Context, op, method, path string, in any) (*rawResponse, error) {
	start := time.Now()
	endpoint := c.baseURL + path

	var (
		body    io.Reader
		payload []byte
	)
	if in != nil {
		var err error
		payload, err = json.Marshal(in)
		if err != nil {
			return nil, &Error{Op: op, Err: fmt.Errorf("encode request: %w", err)}
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, &Error{Op: op, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.auth != "" {
		req.Header.Set("Authorization", c.auth)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.record(op, start, "error")
		c.logger.Error("provider call failed",
			"op", op,
			"endpoint", endpoint,
			"duration_ms", time.Since(start).Milliseconds(),
			"request", logging.Preview(payload, previewLimit),
			"error", err,
		)
		return nil, &Error{Op: op, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		c.record(op, start, "error")
		return nil, &Error{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("read response: %w", err)}
	}

	args := []any{
		"op", op,
		"endpoint", endpoint,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
		"request", logging.Preview(payload, previewLimit),
	}
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		args = append(args, "response", logging.Preview(raw, previewLimit))
	} else {
		args = append(args, "response_bytes", len(raw))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.record(op, start, "http_"+fmt.Sprint(resp.StatusCode))
		c.logger.Warn("provider call rejected", args...)
		return nil, &Error{Op: op, StatusCode: resp.StatusCode, Body: string(raw)}
	}

	c.record(op, start, "ok")
	c.logger.Info("provider call", args...)
	return &rawResponse{
		status:      resp.StatusCode,
		contentType: resp.Header.Get("Content-Type"),
		body:        raw,
	}, nil
}

func (c *Client) record(op string, start time.Time, result string) {
	observability.ProviderCallsTotal.WithLabelValues(op, result).Inc()
	observability.ProviderCallDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}
