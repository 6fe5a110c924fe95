package availability

import (
	"context"
	"time"

	"github.com/clearmind-health/booking-platform/pkg/logging"
)

// DayInputs bundles everything slot generation needs for one provider-day.
type DayInputs struct {
	Rules      []RecurringRule
	Exceptions []Exception
	Bookings   []Booking
	FromCache  bool
}

// Reader serves day inputs cache-first with a canonical-store fallback. The
// cache lags the store; staleness is tolerated, unavailability is not fatal.
type Reader struct {
	cache  CacheReader
	store  *PostgresStore
	logger *logging.Logger
}

// NewReader builds a reader. cache may be nil, in which case every read goes
// to the store.
func NewReader(cache CacheReader, store *PostgresStore, logger *logging.Logger) *Reader {
	if store == nil {
		panic("availability: postgres store required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Reader{cache: cache, store: store, logger: logger}
}

// DayInputsFor returns rules, exceptions, and bookings for one provider-day.
func (r *Reader) DayInputsFor(ctx context.Context, providerID string, day time.Time) (DayInputs, error) {
	if r.cache != nil {
		snap, err := r.cache.ReadDay(ctx, providerID, day)
		if err != nil {
			r.logger.Warn("availability cache unavailable; falling back to store",
				"provider_id", providerID,
				"date", day.Format("2006-01-02"),
				"error", err,
			)
		} else if snap != nil {
			return DayInputs{
				Rules:      snap.Rules,
				Exceptions: snap.Exceptions,
				Bookings:   snap.Bookings,
				FromCache:  true,
			}, nil
		}
	}

	rules, err := r.store.RulesForProvider(ctx, providerID)
	if err != nil {
		return DayInputs{}, err
	}
	exceptions, err := r.store.ExceptionsForDate(ctx, providerID, day)
	if err != nil {
		return DayInputs{}, err
	}
	dayEnd := day.AddDate(0, 0, 1)
	bookings, err := r.store.BookingsForRange(ctx, providerID, day, dayEnd)
	if err != nil {
		return DayInputs{}, err
	}
	return DayInputs{Rules: rules, Exceptions: exceptions, Bookings: bookings}, nil
}
