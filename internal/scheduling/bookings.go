package scheduling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrSlotConflict signals the slot was booked by someone else between offer
// and submit. Callers must re-query and reprompt, never silently retry.
var ErrSlotConflict = errors.New("scheduling: slot no longer available")

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// BookingStore inserts appointment bookings. The table carries a uniqueness
// constraint on (provider_id, start_at) for non-cancelled rows; that
// constraint, not this code, is the at-most-one-booking-per-slot guarantee.
type BookingStore struct {
	db execer
}

// NewBookingStore creates a store backed by pgxpool.
func NewBookingStore(pool *pgxpool.Pool) *BookingStore {
	if pool == nil {
		panic("scheduling: pgx pool required")
	}
	return &BookingStore{db: pool}
}

func newBookingStoreWithExecer(db execer) *BookingStore {
	return &BookingStore{db: db}
}

// Create inserts a scheduled booking row. A unique-violation from the
// database maps to ErrSlotConflict.
func (s *BookingStore) Create(ctx context.Context, providerID, billingProviderID, payerID string, startAt, endAt time.Time) (string, error) {
	id := uuid.NewString()
	query := `
		INSERT INTO appointment_bookings
			(id, provider_id, billing_provider_id, payer_id, start_at, end_at, status)
		VALUES ($1, $2, $3, $4, $5, $6, 'scheduled')
	`
	_, err := s.db.Exec(ctx, query, id, providerID, billingProviderID, payerID, startAt, endAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return "", ErrSlotConflict
		}
		return "", fmt.Errorf("scheduling: insert booking: %w", err)
	}
	return id, nil
}
