package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/cx-tal-miterani/fare-booking/internal/database"
	"github.com/cx-tal-miterani/fare-booking/internal/events"
	"github.com/cx-tal-miterani/fare-booking/internal/models"
	"github.com/google/uuid"
)

// IssueTicketDocument fetches the ticket blank from the provider and stores
// it behind a fresh access token. Issuing again replaces the token.
func (s *bookingServiceImpl) IssueTicketDocument(ctx context.Context, userID, bookingID string) (*models.DocumentLink, error) {
	b, err := s.owned(ctx, userID, bookingID)
	if err != nil {
		return nil, err
	}
	if b.Status != models.BookingStatusTicketed {
		return nil, fmt.Errorf("%w: booking is %s", ErrInvalidState, b.Status)
	}

	doc, err := s.gateway.FetchTicketDocument(ctx, b.ProviderBookingID)
	if err != nil {
		return nil, err
	}

	token := newToken()
	stored := &models.TicketDocument{
		BookingID:   b.ID,
		Content:     doc.Content,
		ContentType: doc.ContentType,
		Token:       token,
	}
	if err := s.repo.SaveDocument(ctx, stored); err != nil {
		return nil, fmt.Errorf("failed to store ticket document: %w", err)
	}

	s.publish(ctx, events.TypeDocumentIssued, b)
	return &models.DocumentLink{URL: s.documentURL(b.ID, token), Token: token}, nil
}

// GetTicketDocument serves a stored document to whoever holds its token.
// A missing or wrong token never reveals whether the booking exists.
func (s *bookingServiceImpl) GetTicketDocument(ctx context.Context, bookingID, token string) (*models.TicketDocument, error) {
	if token == "" {
		return nil, ErrForbidden
	}
	id, err := uuid.Parse(bookingID)
	if err != nil {
		return nil, ErrForbidden
	}
	doc, err := s.repo.GetDocument(ctx, id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrDocumentNotFound
		}
		return nil, fmt.Errorf("failed to load ticket document: %w", err)
	}
	if subtle.ConstantTimeCompare([]byte(doc.Token), []byte(token)) != 1 {
		return nil, ErrForbidden
	}
	return doc, nil
}

func (s *bookingServiceImpl) documentURL(id uuid.UUID, token string) string {
	path := fmt.Sprintf("/booking/%s/blank/file?token=%s", id, url.QueryEscape(token))
	return strings.TrimRight(s.publicBaseURL, "/") + path
}

func newToken() string {
	return strings.ReplaceAll(uuid.NewString()+uuid.NewString(), "-", "")
}
