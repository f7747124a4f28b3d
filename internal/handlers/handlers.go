package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/cx-tal-miterani/fare-booking/internal/activities"
	"github.com/cx-tal-miterani/fare-booking/internal/auth"
	"github.com/cx-tal-miterani/fare-booking/internal/database"
	"github.com/cx-tal-miterani/fare-booking/internal/models"
	"github.com/cx-tal-miterani/fare-booking/internal/provider"
	"github.com/cx-tal-miterani/fare-booking/internal/search"
	"github.com/cx-tal-miterani/fare-booking/internal/service"
	"github.com/gorilla/mux"
)

const maxBodyBytes = 1 << 20

// StatusStreamer upgrades a request into a live status stream for a booking
type StatusStreamer interface {
	ServeWS(w http.ResponseWriter, r *http.Request, bookingID string)
}

// Handler contains HTTP handlers for the API
type Handler struct {
	bookingService service.BookingService
	searcher       service.Searcher
	streamer       StatusStreamer
	logger         *slog.Logger
}

// NewHandler creates a new Handler instance
func NewHandler(bookingService service.BookingService, searcher service.Searcher, streamer StatusStreamer, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		bookingService: bookingService,
		searcher:       searcher,
		streamer:       streamer,
		logger:         logger,
	}
}

// Response helpers
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondServiceError maps service and provider errors to HTTP statuses
func (h *Handler) respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		respondError(w, http.StatusBadRequest, verr.Error())
	case errors.Is(err, service.ErrOfferExpired):
		respondError(w, http.StatusGone, err.Error())
	case errors.Is(err, service.ErrOfferNotFound),
		errors.Is(err, service.ErrBookingNotFound),
		errors.Is(err, service.ErrDocumentNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrForbidden):
		respondError(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, service.ErrInvalidState),
		errors.Is(err, activities.ErrNotReserved),
		errors.Is(err, database.ErrVersionConflict),
		errors.Is(err, database.ErrDuplicateOrder):
		respondError(w, http.StatusConflict, err.Error())
	case provider.IsProviderError(err):
		h.logger.Warn("provider call failed", "path", r.URL.Path, "error", err)
		respondError(w, http.StatusBadGateway, err.Error())
	default:
		h.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		respondError(w, http.StatusInternalServerError, "internal error")
	}
}

func decodeBody(r *http.Request, v interface{}, allowEmpty bool) error {
	err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(v)
	if errors.Is(err, io.EOF) && allowEmpty {
		return nil
	}
	return err
}

func userFrom(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, ok := auth.UserID(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthenticated")
	}
	return id, ok
}

// Health handles GET /health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// SearchFlights handles GET /api/flights/search
func (h *Handler) SearchFlights(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	in := search.Input{
		Origin:      q.Get("from"),
		Destination: q.Get("to"),
		DepartDate:  q.Get("date"),
		ReturnDate:  q.Get("return_date"),
		Adults:      intParam(q.Get("adults"), 1),
		Children:    intParam(q.Get("children"), 0),
		Infants:     intParam(q.Get("infants"), 0),
		Cabin:       q.Get("cabin"),
	}
	respondJSON(w, http.StatusOK, h.searcher.Search(r.Context(), in))
}

// intParam parses a count; malformed values become -1 so validation rejects them
func intParam(raw string, def int) int {
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return -1
	}
	return n
}

// CreateBooking handles POST /api/bookings
func (h *Handler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	userID, ok := userFrom(w, r)
	if !ok {
		return
	}

	var req models.CreateBookingRequest
	if err := decodeBody(r, &req, false); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := h.bookingService.CreateBooking(r.Context(), userID, &req)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	status := http.StatusCreated
	if !result.OK {
		status = http.StatusOK
	}
	respondJSON(w, status, result)
}

// ListBookings handles GET /api/bookings
func (h *Handler) ListBookings(w http.ResponseWriter, r *http.Request) {
	userID, ok := userFrom(w, r)
	if !ok {
		return
	}
	list, err := h.bookingService.ListBookings(r.Context(), userID)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, list)
}

// GetBooking handles GET /api/bookings/{id}
func (h *Handler) GetBooking(w http.ResponseWriter, r *http.Request) {
	h.bookingAction(w, r, h.bookingService.GetBooking)
}

// RecalcBooking handles POST /api/bookings/{id}/recalc
func (h *Handler) RecalcBooking(w http.ResponseWriter, r *http.Request) {
	h.bookingAction(w, r, h.bookingService.RecalcBooking)
}

// PayBooking handles POST /api/bookings/{id}/pay
func (h *Handler) PayBooking(w http.ResponseWriter, r *http.Request) {
	h.bookingAction(w, r, h.bookingService.PayBooking)
}

// CancelBooking handles POST /api/bookings/{id}/cancel
func (h *Handler) CancelBooking(w http.ResponseWriter, r *http.Request) {
	h.bookingAction(w, r, h.bookingService.CancelBooking)
}

// ConfirmBooking handles POST /api/bookings/{id}/confirm
func (h *Handler) ConfirmBooking(w http.ResponseWriter, r *http.Request) {
	var req models.ConfirmRequest
	if err := decodeBody(r, &req, true); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	h.bookingAction(w, r, func(ctx context.Context, userID, bookingID string) (*models.Booking, error) {
		return h.bookingService.ConfirmBooking(ctx, userID, bookingID, &req)
	})
}

func (h *Handler) bookingAction(w http.ResponseWriter, r *http.Request,
	fn func(ctx context.Context, userID, bookingID string) (*models.Booking, error)) {
	userID, ok := userFrom(w, r)
	if !ok {
		return
	}
	booking, err := fn(r.Context(), userID, mux.Vars(r)["id"])
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, booking)
}

// IssueTicketDocument handles POST /api/bookings/{id}/blank
func (h *Handler) IssueTicketDocument(w http.ResponseWriter, r *http.Request) {
	userID, ok := userFrom(w, r)
	if !ok {
		return
	}
	link, err := h.bookingService.IssueTicketDocument(r.Context(), userID, mux.Vars(r)["id"])
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, link)
}

// DownloadTicketDocument handles GET /booking/{id}/blank/file?token=
// The token is the only credential on this path.
func (h *Handler) DownloadTicketDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := h.bookingService.GetTicketDocument(r.Context(), mux.Vars(r)["id"], r.URL.Query().Get("token"))
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", doc.ContentType)
	w.Header().Set("Content-Disposition", `inline; filename="ticket-`+doc.BookingID.String()+`.pdf"`)
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Content-Length", strconv.Itoa(len(doc.Content)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc.Content)
}

// BookingUpdates handles GET /api/bookings/{id}/ws
func (h *Handler) BookingUpdates(w http.ResponseWriter, r *http.Request) {
	userID, ok := userFrom(w, r)
	if !ok {
		return
	}
	booking, err := h.bookingService.GetBooking(r.Context(), userID, mux.Vars(r)["id"])
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	h.streamer.ServeWS(w, r, booking.ID.String())
}
