package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type BookingStatus string

const (
	BookingStatusReserved BookingStatus = "reserved"
	BookingStatusTicketed BookingStatus = "ticketed"
	BookingStatusCanceled BookingStatus = "canceled"
)

type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusCanceled PaymentStatus = "canceled"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

// MockProvider tags bookings that were persisted without a provider order
const MockProvider = "local/mock"

type Passenger struct {
	FirstName      string `json:"firstName"`
	LastName       string `json:"lastName"`
	MiddleName     string `json:"middleName,omitempty"`
	Gender         string `json:"gender"`
	Citizenship    string `json:"citizenship"`
	BirthDate      string `json:"birthDate"`
	DocumentNumber string `json:"documentNumber"`
	DocumentExpiry string `json:"documentExpiry,omitempty"`
	PassengerType  string `json:"passengerType,omitempty"`
}

type Contact struct {
	Phone string `json:"phone"`
	Email string `json:"email"`
}

type Payment struct {
	Status   PaymentStatus `json:"status"`
	Amount   float64       `json:"amount"`
	Currency string        `json:"currency"`
}

// Booking is the local record of a provider reservation
type Booking struct {
	ID                uuid.UUID       `json:"id"`
	UserID            string          `json:"userId"`
	OfferID           string          `json:"offerId"`
	BrandID           string          `json:"brandId,omitempty"`
	Passengers        []Passenger     `json:"passengers"`
	Contact           Contact         `json:"contact"`
	Payment           Payment         `json:"payment"`
	Status            BookingStatus   `json:"status"`
	Provider          string          `json:"provider"`
	ProviderBookingID string          `json:"providerBookingId"`
	RawProviderData   json.RawMessage `json:"rawProviderData,omitempty"`
	Confirmation      json.RawMessage `json:"confirmation,omitempty"`
	FailureReason     string          `json:"failureReason,omitempty"`
	Version           int             `json:"version"`
	CreatedAt         time.Time       `json:"createdAt"`
	UpdatedAt         time.Time       `json:"updatedAt"`
}

// IsMock reports whether the booking has no provider order behind it
func (b *Booking) IsMock() bool {
	return b.Provider == MockProvider
}

// CreateBookingRequest is the purchase request for an offer
type CreateBookingRequest struct {
	OfferID    string      `json:"offerId"`
	BrandID    string      `json:"brandId"`
	Passengers []Passenger `json:"passengers"`
	Contact    Contact     `json:"contact"`
}

// CreateBookingResult reports how a purchase attempt ended
type CreateBookingResult struct {
	OK      bool     `json:"ok"`
	Outcome Outcome  `json:"outcome"`
	Booking *Booking `json:"booking,omitempty"`
	Error   string   `json:"error,omitempty"`
}

// PassengerDocument carries document details forwarded at confirmation
type PassengerDocument struct {
	DocumentNumber string `json:"documentNumber"`
	DocumentExpiry string `json:"documentExpiry,omitempty"`
}

// ConfirmRequest carries optional metadata forwarded to the provider on confirm
type ConfirmRequest struct {
	Documents     []PassengerDocument `json:"documents,omitempty"`
	PaymentMethod string              `json:"paymentMethod,omitempty"`
	PaymentRef    string              `json:"paymentRef,omitempty"`
}

// TicketDocument is a stored ticket blank guarded by a capability token
type TicketDocument struct {
	BookingID   uuid.UUID `json:"bookingId"`
	Content     []byte    `json:"-"`
	ContentType string    `json:"contentType"`
	Token       string    `json:"-"`
	CreatedAt   time.Time `json:"createdAt"`
}

// DocumentLink is returned after a ticket document is issued
type DocumentLink struct {
	URL   string `json:"url"`
	Token string `json:"token"`
}
