package availability

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PostgresStore reads availability rules, exceptions, and bookings from the
// canonical relational database.
type PostgresStore struct {
	db querier
}

// NewPostgresStore initializes a store backed by pgxpool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	if pool == nil {
		panic("availability: pgx pool required")
	}
	return &PostgresStore{db: pool}
}

func newPostgresStoreWithQuerier(db querier) *PostgresStore {
	return &PostgresStore{db: db}
}

// RulesForProvider returns the provider's weekly template rows.
func (s *PostgresStore) RulesForProvider(ctx context.Context, providerID string) ([]RecurringRule, error) {
	query := `
		SELECT provider_id, day_of_week, start_minutes, end_minutes
		FROM recurring_availability_rules
		WHERE provider_id = $1
		ORDER BY day_of_week, start_minutes
	`
	rows, err := s.db.Query(ctx, query, providerID)
	if err != nil {
		return nil, fmt.Errorf("availability: query rules: %w", err)
	}
	defer rows.Close()

	var rules []RecurringRule
	for rows.Next() {
		var r RecurringRule
		var weekday int
		if err := rows.Scan(&r.ProviderID, &weekday, &r.StartMinutes, &r.EndMinutes); err != nil {
			return nil, fmt.Errorf("availability: scan rule: %w", err)
		}
		r.Weekday = time.Weekday(weekday)
		rules = append(rules, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("availability: iterate rules: %w", err)
	}
	return rules, nil
}

// ExceptionsForDate returns exception rows for the provider on one date.
func (s *PostgresStore) ExceptionsForDate(ctx context.Context, providerID string, day time.Time) ([]Exception, error) {
	query := `
		SELECT provider_id, exception_date, kind, start_minutes, end_minutes
		FROM availability_exceptions
		WHERE provider_id = $1 AND exception_date = $2
		ORDER BY kind
	`
	rows, err := s.db.Query(ctx, query, providerID, day)
	if err != nil {
		return nil, fmt.Errorf("availability: query exceptions: %w", err)
	}
	defer rows.Close()

	var exceptions []Exception
	for rows.Next() {
		var ex Exception
		var kind string
		if err := rows.Scan(&ex.ProviderID, &ex.Date, &kind, &ex.StartMinutes, &ex.EndMinutes); err != nil {
			return nil, fmt.Errorf("availability: scan exception: %w", err)
		}
		ex.Kind = ExceptionKind(kind)
		exceptions = append(exceptions, ex)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("availability: iterate exceptions: %w", err)
	}
	return exceptions, nil
}

// BookingsForRange returns the provider's bookings overlapping [from, to),
// including cancelled rows; callers decide what blocks.
func (s *PostgresStore) BookingsForRange(ctx context.Context, providerID string, from, to time.Time) ([]Booking, error) {
	query := `
		SELECT id, provider_id, start_at, end_at, status
		FROM appointment_bookings
		WHERE provider_id = $1 AND start_at < $3 AND end_at > $2
		ORDER BY start_at
	`
	rows, err := s.db.Query(ctx, query, providerID, from, to)
	if err != nil {
		return nil, fmt.Errorf("availability: query bookings: %w", err)
	}
	defer rows.Close()

	var bookings []Booking
	for rows.Next() {
		var b Booking
		var status string
		if err := rows.Scan(&b.ID, &b.ProviderID, &b.StartAt, &b.EndAt, &status); err != nil {
			return nil, fmt.Errorf("availability: scan booking: %w", err)
		}
		b.Status = BookingStatus(status)
		bookings = append(bookings, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("availability: iterate bookings: %w", err)
	}
	return bookings, nil
}
