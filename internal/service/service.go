package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cx-tal-miterani/fare-booking/internal/database"
	"github.com/cx-tal-miterani/fare-booking/internal/events"
	"github.com/cx-tal-miterani/fare-booking/internal/models"
	"github.com/cx-tal-miterani/fare-booking/internal/offers"
	"github.com/cx-tal-miterani/fare-booking/internal/provider"
	"github.com/cx-tal-miterani/fare-booking/internal/search"
	"github.com/google/uuid"
)

var (
	ErrForbidden        = errors.New("forbidden")
	ErrBookingNotFound  = errors.New("booking not found")
	ErrOfferNotFound    = errors.New("offer not found or expired")
	ErrOfferExpired     = errors.New("offer expired")
	ErrInvalidState     = errors.New("invalid booking state")
	ErrDocumentNotFound = errors.New("ticket document not found")
)

// ValidationError reports a malformed booking request
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Msg)
}

// Searcher is the read side used by the search endpoint
type Searcher interface {
	Search(ctx context.Context, in search.Input) *models.SearchResult
}

// Ticketer runs recalculation followed by confirmation for one booking.
// Implementations either run the steps in-process or hand them to a workflow engine.
type Ticketer interface {
	Ticket(ctx context.Context, in models.TicketingInput) (*models.TicketingResult, error)
}

// BookingService defines the booking service interface
type BookingService interface {
	CreateBooking(ctx context.Context, userID string, req *models.CreateBookingRequest) (*models.CreateBookingResult, error)
	GetBooking(ctx context.Context, userID, bookingID string) (*models.Booking, error)
	ListBookings(ctx context.Context, userID string) ([]*models.Booking, error)
	RecalcBooking(ctx context.Context, userID, bookingID string) (*models.Booking, error)
	ConfirmBooking(ctx context.Context, userID, bookingID string, req *models.ConfirmRequest) (*models.Booking, error)
	PayBooking(ctx context.Context, userID, bookingID string) (*models.Booking, error)
	CancelBooking(ctx context.Context, userID, bookingID string) (*models.Booking, error)
	IssueTicketDocument(ctx context.Context, userID, bookingID string) (*models.DocumentLink, error)
	GetTicketDocument(ctx context.Context, bookingID, token string) (*models.TicketDocument, error)
}

type Dependency struct {
	Gateway        provider.Gateway
	Offers         offers.Store
	Repo           database.BookingRepository
	Ticketer       Ticketer
	Events         events.Publisher
	DefaultContact models.Contact
	PublicBaseURL  string
	Logger         *slog.Logger
}

// bookingServiceImpl implements BookingService
type bookingServiceImpl struct {
	gateway        provider.Gateway
	offers         offers.Store
	repo           database.BookingRepository
	ticketer       Ticketer
	events         events.Publisher
	defaultContact models.Contact
	publicBaseURL  string
	logger         *slog.Logger
}

// NewBookingService creates a new BookingService
func NewBookingService(dep Dependency) BookingService {
	logger := dep.Logger
	if logger == nil {
		logger = slog.Default()
	}
	pub := dep.Events
	if pub == nil {
		pub = events.Nop{}
	}
	return &bookingServiceImpl{
		gateway:        dep.Gateway,
		offers:         dep.Offers,
		repo:           dep.Repo,
		ticketer:       dep.Ticketer,
		events:         pub,
		defaultContact: dep.DefaultContact,
		publicBaseURL:  dep.PublicBaseURL,
		logger:         logger,
	}
}

// owned loads a booking and checks that userID owns it
func (s *bookingServiceImpl) owned(ctx context.Context, userID, bookingID string) (*models.Booking, error) {
	id, err := uuid.Parse(bookingID)
	if err != nil {
		return nil, ErrBookingNotFound
	}
	b, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrBookingNotFound
		}
		return nil, fmt.Errorf("failed to load booking: %w", err)
	}
	if b.UserID != userID {
		return nil, ErrForbidden
	}
	return b, nil
}

// mutate applies fn under the repository's version check
func (s *bookingServiceImpl) mutate(ctx context.Context, id uuid.UUID, fn func(b *models.Booking) error) (*models.Booking, error) {
	b, err := database.UpdateBooking(ctx, s.repo, id, fn)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	return b, nil
}

func (s *bookingServiceImpl) publish(ctx context.Context, t events.Type, b *models.Booking) {
	if err := s.events.Publish(ctx, events.NewBookingEvent(t, b)); err != nil {
		s.logger.Warn("failed to publish booking event", "type", t, "booking_id", b.ID, "error", err)
	}
}
