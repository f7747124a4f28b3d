package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/cx-tal-miterani/fare-booking/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository stores bookings in Postgres
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new repository
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

const bookingSelect = `
	SELECT id, user_id, offer_id, brand_id, passengers, contact,
	       payment_status, payment_amount, payment_currency,
	       status, provider, provider_booking_id, raw_provider_data, confirmation,
	       failure_reason, version, created_at, updated_at
	FROM bookings
`

func (r *PostgresRepository) Create(ctx context.Context, b *models.Booking) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	cols, err := encodeBooking(b)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO bookings (id, user_id, offer_id, brand_id, passengers, contact,
		                      payment_status, payment_amount, payment_currency,
		                      status, provider, provider_booking_id, raw_provider_data,
		                      confirmation, failure_reason, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, 1)
		RETURNING version, created_at, updated_at
	`
	err = r.pool.QueryRow(ctx, query,
		b.ID, b.UserID, b.OfferID, b.BrandID, cols.passengers, cols.contact,
		b.Payment.Status, b.Payment.Amount, b.Payment.Currency,
		b.Status, b.Provider, b.ProviderBookingID, cols.rawProvider,
		cols.confirmation, b.FailureReason,
	).Scan(&b.Version, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s %s", ErrDuplicateOrder, b.Provider, b.ProviderBookingID)
		}
		return fmt.Errorf("failed to create booking: %w", err)
	}
	return nil
}

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func (r *PostgresRepository) Get(ctx context.Context, id uuid.UUID) (*models.Booking, error) {
	b, err := scanBooking(r.pool.QueryRow(ctx, bookingSelect+` WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	return b, nil
}

func (r *PostgresRepository) ListByUser(ctx context.Context, userID string) ([]*models.Booking, error) {
	rows, err := r.pool.Query(ctx, bookingSelect+` WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query bookings: %w", err)
	}
	defer rows.Close()

	var out []*models.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate bookings: %w", err)
	}
	return out, nil
}

func (r *PostgresRepository) Update(ctx context.Context, b *models.Booking) error {
	cols, err := encodeBooking(b)
	if err != nil {
		return err
	}

	query := `
		UPDATE bookings
		SET brand_id = $3, passengers = $4, contact = $5,
		    payment_status = $6, payment_amount = $7, payment_currency = $8,
		    status = $9, provider = $10, provider_booking_id = $11,
		    raw_provider_data = $12, confirmation = $13, failure_reason = $14,
		    version = version + 1, updated_at = NOW()
		WHERE id = $1 AND version = $2
		RETURNING version, updated_at
	`
	err = r.pool.QueryRow(ctx, query,
		b.ID, b.Version, b.BrandID, cols.passengers, cols.contact,
		b.Payment.Status, b.Payment.Amount, b.Payment.Currency,
		b.Status, b.Provider, b.ProviderBookingID,
		cols.rawProvider, cols.confirmation, b.FailureReason,
	).Scan(&b.Version, &b.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return r.missingOrConflict(ctx, b.ID)
		}
		return fmt.Errorf("failed to update booking: %w", err)
	}
	return nil
}

func (r *PostgresRepository) missingOrConflict(ctx context.Context, id uuid.UUID) error {
	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM bookings WHERE id = $1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check booking: %w", err)
	}
	if !exists {
		return ErrNotFound
	}
	return ErrVersionConflict
}

func (r *PostgresRepository) SaveDocument(ctx context.Context, doc *models.TicketDocument) error {
	query := `
		INSERT INTO booking_documents (booking_id, content, content_type, token)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (booking_id) DO UPDATE
		SET content = EXCLUDED.content, content_type = EXCLUDED.content_type,
		    token = EXCLUDED.token, created_at = NOW()
		RETURNING created_at
	`
	err := r.pool.QueryRow(ctx, query, doc.BookingID, doc.Content, doc.ContentType, doc.Token).Scan(&doc.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save document: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetDocument(ctx context.Context, bookingID uuid.UUID) (*models.TicketDocument, error) {
	var doc models.TicketDocument
	err := r.pool.QueryRow(ctx, `
		SELECT booking_id, content, content_type, token, created_at
		FROM booking_documents
		WHERE booking_id = $1
	`, bookingID).Scan(&doc.BookingID, &doc.Content, &doc.ContentType, &doc.Token, &doc.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	return &doc, nil
}

func scanBooking(row pgx.Row) (*models.Booking, error) {
	var (
		b    models.Booking
		cols bookingColumns
	)
	err := row.Scan(
		&b.ID, &b.UserID, &b.OfferID, &b.BrandID, &cols.passengers, &cols.contact,
		&b.Payment.Status, &b.Payment.Amount, &b.Payment.Currency,
		&b.Status, &b.Provider, &b.ProviderBookingID, &cols.rawProvider, &cols.confirmation,
		&b.FailureReason, &b.Version, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := cols.decodeInto(&b); err != nil {
		return nil, err
	}
	return &b, nil
}
