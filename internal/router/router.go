package router

import (
	"log/slog"
	"net/http"
	"slices"

	"github.com/cx-tal-miterani/fare-booking/internal/auth"
	"github.com/cx-tal-miterani/fare-booking/internal/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
)

type Options struct {
	Handler     *handlers.Handler
	Auth        *auth.Authenticator
	CORSOrigins []string
	Logger      *slog.Logger
}

// SetupRouter creates and configures the HTTP router
func SetupRouter(opts Options) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	h := opts.Handler

	r := mux.NewRouter()
	r.Use(recoverMiddleware(logger))
	r.Use(requestIDMiddleware)
	r.Use(observabilityMiddleware(logger))

	r.HandleFunc("/health", h.Health).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	// Ticket blanks are fetched with their capability token only
	r.HandleFunc("/booking/{id}/blank/file", h.DownloadTicketDocument).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/flights/search", h.SearchFlights).Methods(http.MethodGet)

	bookings := api.PathPrefix("/bookings").Subrouter()
	bookings.Use(opts.Auth.Middleware)
	bookings.HandleFunc("", h.CreateBooking).Methods(http.MethodPost)
	bookings.HandleFunc("", h.ListBookings).Methods(http.MethodGet)
	bookings.HandleFunc("/{id}", h.GetBooking).Methods(http.MethodGet)
	bookings.HandleFunc("/{id}/recalc", h.RecalcBooking).Methods(http.MethodPost)
	bookings.HandleFunc("/{id}/confirm", h.ConfirmBooking).Methods(http.MethodPost)
	bookings.HandleFunc("/{id}/pay", h.PayBooking).Methods(http.MethodPost)
	bookings.HandleFunc("/{id}/cancel", h.CancelBooking).Methods(http.MethodPost)
	bookings.HandleFunc("/{id}/blank", h.IssueTicketDocument).Methods(http.MethodPost)
	bookings.HandleFunc("/{id}/ws", h.BookingUpdates).Methods(http.MethodGet)

	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	// Credentials are only allowed for an explicit origin list
	credentials := !slices.Contains(origins, "*")
	corsHandler := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodOptions,
		},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: credentials,
	})
	return corsHandler.Handler(r)
}
