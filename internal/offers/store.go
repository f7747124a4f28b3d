package offers

import (
	"context"
	"errors"
	"time"

	"github.com/cx-tal-miterani/fare-booking/internal/models"
)

var (
	ErrNotFound = errors.New("offer not found")
	ErrExpired  = errors.New("offer expired")
)

// Offer is a stored snapshot of a priced route, addressable by ID
type Offer struct {
	ID        string       `json:"id"`
	Route     models.Route `json:"route"`
	Amount    float64      `json:"amount"`
	Currency  string       `json:"currency"`
	CreatedAt time.Time    `json:"createdAt"`
	ExpiresAt time.Time    `json:"expiresAt"`
}

// Store keeps offers between search and purchase.
// Consume is the only way to redeem an offer: it is atomic, so two
// concurrent callers can never both receive the same offer.
type Store interface {
	Save(ctx context.Context, route models.Route, amount float64, currency string) (string, error)
	Get(ctx context.Context, id string) (*Offer, error)
	Consume(ctx context.Context, id string) (*Offer, error)
	Release(ctx context.Context, offer *Offer) error
	Delete(ctx context.Context, id string) error
}

func (o *Offer) clone() *Offer {
	out := *o
	out.Route = o.Route.Clone()
	return &out
}
