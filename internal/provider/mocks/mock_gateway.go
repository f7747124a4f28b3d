package mocks

import (
	"context"

	"github.com/cx-tal-miterani/fare-booking/internal/models"
	"github.com/cx-tal-miterani/fare-booking/internal/provider"
	"github.com/stretchr/testify/mock"
)

// MockGateway is a mock implementation of provider.Gateway
type MockGateway struct {
	mock.Mock
}

var _ provider.Gateway = (*MockGateway)(nil)

func (m *MockGateway) Name() string {
	return "mock-gds"
}

func (m *MockGateway) PriceRoutes(ctx context.Context, query models.SearchQuery) ([]models.Route, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Route), args.Error(1)
}

func (m *MockGateway) PriceBrandFare(ctx context.Context, flights []models.Flight, pax models.PassengerCounts) ([]models.BrandFare, error) {
	args := m.Called(ctx, flights, pax)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.BrandFare), args.Error(1)
}

func (m *MockGateway) CreateReservation(ctx context.Context, req provider.ReservationRequest) (*provider.Reservation, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*provider.Reservation), args.Error(1)
}

func (m *MockGateway) RecalcReservation(ctx context.Context, orderID string) (*provider.Recalculation, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*provider.Recalculation), args.Error(1)
}

func (m *MockGateway) ConfirmReservation(ctx context.Context, orderID string, extra models.ConfirmRequest) (*provider.Confirmation, error) {
	args := m.Called(ctx, orderID, extra)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*provider.Confirmation), args.Error(1)
}

func (m *MockGateway) FetchTicketDocument(ctx context.Context, orderID string) (*provider.Document, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*provider.Document), args.Error(1)
}

func (m *MockGateway) VoidReservation(ctx context.Context, orderID string) error {
	return m.Called(ctx, orderID).Error(0)
}

func (m *MockGateway) CancelReservation(ctx context.Context, orderID string) error {
	return m.Called(ctx, orderID).Error(0)
}
