package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cx-tal-miterani/fare-booking/internal/auth"
	"github.com/cx-tal-miterani/fare-booking/internal/database"
	"github.com/cx-tal-miterani/fare-booking/internal/models"
	"github.com/cx-tal-miterani/fare-booking/internal/provider"
	"github.com/cx-tal-miterani/fare-booking/internal/search"
	"github.com/cx-tal-miterani/fare-booking/internal/service"
	"github.com/cx-tal-miterani/fare-booking/internal/service/mocks"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testUser = "user-1"

type nopStreamer struct{}

func (nopStreamer) ServeWS(w http.ResponseWriter, r *http.Request, bookingID string) {
	w.WriteHeader(http.StatusSwitchingProtocols)
}

func asUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := r.Header.Get("X-Test-User"); id != "" {
			r = r.WithContext(auth.WithUserID(r.Context(), id))
		}
		next.ServeHTTP(w, r)
	})
}

func setupTestRouter(h *Handler) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/booking/{id}/blank/file", h.DownloadTicketDocument).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/flights/search", h.SearchFlights).Methods(http.MethodGet)

	bookings := api.PathPrefix("/bookings").Subrouter()
	bookings.Use(asUser)
	bookings.HandleFunc("", h.CreateBooking).Methods(http.MethodPost)
	bookings.HandleFunc("", h.ListBookings).Methods(http.MethodGet)
	bookings.HandleFunc("/{id}", h.GetBooking).Methods(http.MethodGet)
	bookings.HandleFunc("/{id}/confirm", h.ConfirmBooking).Methods(http.MethodPost)
	bookings.HandleFunc("/{id}/cancel", h.CancelBooking).Methods(http.MethodPost)
	bookings.HandleFunc("/{id}/blank", h.IssueTicketDocument).Methods(http.MethodPost)
	bookings.HandleFunc("/{id}/ws", h.BookingUpdates).Methods(http.MethodGet)
	return r
}

func newTestHandler() (*mocks.MockBookingService, *mocks.MockSearcher, *mux.Router) {
	svc := new(mocks.MockBookingService)
	searcher := new(mocks.MockSearcher)
	return svc, searcher, setupTestRouter(NewHandler(svc, searcher, nopStreamer{}, nil))
}

func do(router http.Handler, method, path string, body interface{}, user string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if s, ok := body.(string); ok {
		buf.WriteString(s)
	} else if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	if user != "" {
		req.Header.Set("X-Test-User", user)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHandler_SearchFlights(t *testing.T) {
	_, searcher, router := newTestHandler()

	expected := search.Input{Origin: "MOW", Destination: "TJM", DepartDate: "2025-12-10", Adults: 1, Children: -1}
	searcher.On("Search", mock.Anything, expected).Return(&models.SearchResult{
		Outcome: models.OutcomeFailed,
		Message: "invalid passenger counts",
		Cards:   []models.ItineraryCard{},
	})

	rec := do(router, http.MethodGet, "/api/flights/search?from=MOW&to=TJM&date=2025-12-10&children=two", nil, "")

	assert.Equal(t, http.StatusOK, rec.Code, "search never fails at the transport level")
	var res models.SearchResult
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&res))
	assert.Equal(t, models.OutcomeFailed, res.Outcome)
	searcher.AssertExpectations(t)
}

func TestHandler_CreateBooking(t *testing.T) {
	valid := models.CreateBookingRequest{
		OfferID:    "offer-1",
		Passengers: []models.Passenger{{
			FirstName: "Ivan", LastName: "Petrov", Gender: "M", Citizenship: "RU",
			BirthDate: "1990-01-01", DocumentNumber: "4500123456", DocumentExpiry: "2030-01-01",
		}},
	}
	booking := &models.Booking{ID: uuid.New(), UserID: testUser, Status: models.BookingStatusReserved}

	tests := []struct {
		name           string
		body           interface{}
		user           string
		mockResult     *models.CreateBookingResult
		mockErr        error
		expectCall     bool
		expectedStatus int
	}{
		{
			name:           "reserved",
			body:           valid,
			user:           testUser,
			mockResult:     &models.CreateBookingResult{OK: true, Outcome: models.OutcomeLive, Booking: booking},
			expectCall:     true,
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "degraded",
			body:           valid,
			user:           testUser,
			mockResult:     &models.CreateBookingResult{OK: false, Outcome: models.OutcomeDegraded, Booking: booking, Error: "provider down"},
			expectCall:     true,
			expectedStatus: http.StatusOK,
		},
		{
			name:           "validation error",
			body:           valid,
			user:           testUser,
			mockErr:        &service.ValidationError{Field: "passengers", Msg: "at least one passenger is required"},
			expectCall:     true,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "offer not found",
			body:           valid,
			user:           testUser,
			mockErr:        service.ErrOfferNotFound,
			expectCall:     true,
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "offer expired",
			body:           valid,
			user:           testUser,
			mockErr:        service.ErrOfferExpired,
			expectCall:     true,
			expectedStatus: http.StatusGone,
		},
		{
			name:           "provider order already booked",
			body:           valid,
			user:           testUser,
			mockErr:        fmt.Errorf("failed to persist booking for order ORD-1: %w", database.ErrDuplicateOrder),
			expectCall:     true,
			expectedStatus: http.StatusConflict,
		},
		{
			name:           "unexpected error",
			body:           valid,
			user:           testUser,
			mockErr:        fmt.Errorf("failed to persist booking: %w", assert.AnError),
			expectCall:     true,
			expectedStatus: http.StatusInternalServerError,
		},
		{
			name:           "malformed body",
			body:           "{not json",
			user:           testUser,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "unauthenticated",
			body:           valid,
			expectedStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _, router := newTestHandler()
			if tt.expectCall {
				svc.On("CreateBooking", mock.Anything, tt.user, mock.AnythingOfType("*models.CreateBookingRequest")).
					Return(tt.mockResult, tt.mockErr)
			}

			rec := do(router, http.MethodPost, "/api/bookings", tt.body, tt.user)

			assert.Equal(t, tt.expectedStatus, rec.Code)
			if tt.mockResult != nil {
				var res models.CreateBookingResult
				require.NoError(t, json.NewDecoder(rec.Body).Decode(&res))
				assert.Equal(t, tt.mockResult.OK, res.OK)
				assert.Equal(t, tt.mockResult.Outcome, res.Outcome)
			}
			svc.AssertExpectations(t)
		})
	}
}

func TestHandler_ConfirmBooking(t *testing.T) {
	id := uuid.New().String()

	tests := []struct {
		name           string
		mockReturn     *models.Booking
		mockErr        error
		expectedStatus int
	}{
		{name: "ticketed", mockReturn: &models.Booking{Status: models.BookingStatusTicketed}, expectedStatus: http.StatusOK},
		{name: "not owner", mockErr: service.ErrForbidden, expectedStatus: http.StatusForbidden},
		{name: "missing", mockErr: service.ErrBookingNotFound, expectedStatus: http.StatusNotFound},
		{name: "already ticketed", mockErr: fmt.Errorf("%w: booking is ticketed", service.ErrInvalidState), expectedStatus: http.StatusConflict},
		{name: "concurrent update", mockErr: fmt.Errorf("update booking: %w", database.ErrVersionConflict), expectedStatus: http.StatusConflict},
		{name: "provider failure", mockErr: &provider.Error{Op: "confirm_reservation", StatusCode: 500, Body: "down"}, expectedStatus: http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _, router := newTestHandler()
			svc.On("ConfirmBooking", mock.Anything, testUser, id, &models.ConfirmRequest{}).Return(tt.mockReturn, tt.mockErr)

			rec := do(router, http.MethodPost, "/api/bookings/"+id+"/confirm", nil, testUser)

			assert.Equal(t, tt.expectedStatus, rec.Code)
			svc.AssertExpectations(t)
		})
	}
}

func TestHandler_ConfirmBookingForwardsMetadata(t *testing.T) {
	svc, _, router := newTestHandler()
	id := uuid.New().String()
	req := &models.ConfirmRequest{PaymentMethod: "card", Documents: []models.PassengerDocument{{DocumentNumber: "4500123456"}}}

	svc.On("ConfirmBooking", mock.Anything, testUser, id, req).Return(&models.Booking{Status: models.BookingStatusTicketed}, nil)

	rec := do(router, http.MethodPost, "/api/bookings/"+id+"/confirm", req, testUser)

	assert.Equal(t, http.StatusOK, rec.Code)
	svc.AssertExpectations(t)
}

func TestHandler_DownloadTicketDocument(t *testing.T) {
	id := uuid.New()

	tests := []struct {
		name           string
		token          string
		mockReturn     *models.TicketDocument
		mockErr        error
		expectedStatus int
	}{
		{
			name:           "valid token",
			token:          "good",
			mockReturn:     &models.TicketDocument{BookingID: id, Content: []byte("%PDF-1.3"), ContentType: "application/pdf"},
			expectedStatus: http.StatusOK,
		},
		{name: "wrong token", token: "bad", mockErr: service.ErrForbidden, expectedStatus: http.StatusForbidden},
		{name: "missing token", token: "", mockErr: service.ErrForbidden, expectedStatus: http.StatusForbidden},
		{name: "not generated", token: "good", mockErr: service.ErrDocumentNotFound, expectedStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _, router := newTestHandler()
			svc.On("GetTicketDocument", mock.Anything, id.String(), tt.token).Return(tt.mockReturn, tt.mockErr)

			rec := do(router, http.MethodGet, "/booking/"+id.String()+"/blank/file?token="+tt.token, nil, "")

			assert.Equal(t, tt.expectedStatus, rec.Code)
			if tt.mockReturn != nil {
				assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
				assert.Equal(t, tt.mockReturn.Content, rec.Body.Bytes())
			} else {
				assert.NotContains(t, rec.Body.String(), "%PDF")
			}
			svc.AssertExpectations(t)
		})
	}
}

func TestHandler_IssueTicketDocument(t *testing.T) {
	svc, _, router := newTestHandler()
	id := uuid.New().String()
	link := &models.DocumentLink{URL: "/booking/" + id + "/blank/file?token=abc", Token: "abc"}

	svc.On("IssueTicketDocument", mock.Anything, testUser, id).Return(link, nil)

	rec := do(router, http.MethodPost, "/api/bookings/"+id+"/blank", nil, testUser)

	assert.Equal(t, http.StatusCreated, rec.Code)
	var got models.DocumentLink
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Equal(t, *link, got)
}

func TestHandler_ListBookings(t *testing.T) {
	svc, _, router := newTestHandler()
	svc.On("ListBookings", mock.Anything, testUser).Return([]*models.Booking{{ID: uuid.New(), UserID: testUser}}, nil)

	rec := do(router, http.MethodGet, "/api/bookings", nil, testUser)

	assert.Equal(t, http.StatusOK, rec.Code)
	var got []models.Booking
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Len(t, got, 1)
}

func TestHandler_BookingUpdatesChecksOwnership(t *testing.T) {
	svc, _, router := newTestHandler()
	id := uuid.New()

	svc.On("GetBooking", mock.Anything, "intruder", id.String()).Return(nil, service.ErrForbidden)
	svc.On("GetBooking", mock.Anything, testUser, id.String()).Return(&models.Booking{ID: id, UserID: testUser}, nil)

	rec := do(router, http.MethodGet, "/api/bookings/"+id.String()+"/ws", nil, "intruder")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(router, http.MethodGet, "/api/bookings/"+id.String()+"/ws", nil, testUser)
	assert.Equal(t, http.StatusSwitchingProtocols, rec.Code)
}

func TestHandler_CancelBooking(t *testing.T) {
	svc, _, router := newTestHandler()
	id := uuid.New().String()
	svc.On("CancelBooking", mock.Anything, testUser, id).Return(&models.Booking{
		Status:  models.BookingStatusCanceled,
		Payment: models.Payment{Status: models.PaymentStatusRefunded},
	}, nil)

	rec := do(router, http.MethodPost, "/api/bookings/"+id+"/cancel", nil, testUser)

	assert.Equal(t, http.StatusOK, rec.Code)
	var got models.Booking
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Equal(t, models.BookingStatusCanceled, got.Status)
}
