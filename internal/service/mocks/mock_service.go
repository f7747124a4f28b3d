package mocks

import (
	"context"

	"github.com/cx-tal-miterani/fare-booking/internal/models"
	"github.com/cx-tal-miterani/fare-booking/internal/search"
	"github.com/stretchr/testify/mock"
)

// MockBookingService is a mock implementation of BookingService
type MockBookingService struct {
	mock.Mock
}

func (m *MockBookingService) CreateBooking(ctx context.Context, userID string, req *models.CreateBookingRequest) (*models.CreateBookingResult, error) {
	args := m.Called(ctx, userID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.CreateBookingResult), args.Error(1)
}

func (m *MockBookingService) GetBooking(ctx context.Context, userID, bookingID string) (*models.Booking, error) {
	return m.booking(m.Called(ctx, userID, bookingID))
}

func (m *MockBookingService) ListBookings(ctx context.Context, userID string) ([]*models.Booking, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Booking), args.Error(1)
}

func (m *MockBookingService) RecalcBooking(ctx context.Context, userID, bookingID string) (*models.Booking, error) {
	return m.booking(m.Called(ctx, userID, bookingID))
}

func (m *MockBookingService) ConfirmBooking(ctx context.Context, userID, bookingID string, req *models.ConfirmRequest) (*models.Booking, error) {
	return m.booking(m.Called(ctx, userID, bookingID, req))
}

func (m *MockBookingService) PayBooking(ctx context.Context, userID, bookingID string) (*models.Booking, error) {
	return m.booking(m.Called(ctx, userID, bookingID))
}

func (m *MockBookingService) CancelBooking(ctx context.Context, userID, bookingID string) (*models.Booking, error) {
	return m.booking(m.Called(ctx, userID, bookingID))
}

func (m *MockBookingService) IssueTicketDocument(ctx context.Context, userID, bookingID string) (*models.DocumentLink, error) {
	args := m.Called(ctx, userID, bookingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DocumentLink), args.Error(1)
}

func (m *MockBookingService) GetTicketDocument(ctx context.Context, bookingID, token string) (*models.TicketDocument, error) {
	args := m.Called(ctx, bookingID, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TicketDocument), args.Error(1)
}

func (m *MockBookingService) booking(args mock.Arguments) (*models.Booking, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Booking), args.Error(1)
}

// MockSearcher is a mock implementation of Searcher
type MockSearcher struct {
	mock.Mock
}

func (m *MockSearcher) Search(ctx context.Context, in search.Input) *models.SearchResult {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).(*models.SearchResult)
}
