package availability

import (
	"context"
	"errors"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubCache struct {
	snap *DaySnapshot
	err  error
}

func (s *stubCache) ReadDay(ctx context.Context, providerID string, day time.Time) (*DaySnapshot, error) {
	return s.snap, s.err
}

func TestReaderCacheHitSkipsStore(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	cache := &stubCache{snap: &DaySnapshot{
		ProviderID: "prov-a",
		Rules:      []RecurringRule{{ProviderID: "prov-a", Weekday: time.Monday, StartMinutes: 540, EndMinutes: 720}},
	}}
	reader := NewReader(cache, newPostgresStoreWithQuerier(mock), nil)

	day := time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)
	inputs, err := reader.DayInputsFor(context.Background(), "prov-a", day)
	require.NoError(t, err)
	assert.True(t, inputs.FromCache)
	require.Len(t, inputs.Rules, 1)
	require.NoError(t, mock.ExpectationsWereMet(), "no store queries expected on a cache hit")
}

func TestReaderFallsBackToStore(t *testing.T) {
	day := time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		cache CacheReader
	}{
		{"cache miss", &stubCache{}},
		{"cache error", &stubCache{err: errors.New("redis down")}},
		{"no cache configured", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, err := pgxmock.NewPool()
			require.NoError(t, err)
			defer mock.Close()

			mock.ExpectQuery("SELECT provider_id, day_of_week").
				WithArgs("prov-a").
				WillReturnRows(pgxmock.NewRows([]string{"provider_id", "day_of_week", "start_minutes", "end_minutes"}).
					AddRow("prov-a", 1, 540, 720))
			mock.ExpectQuery("SELECT provider_id, exception_date").
				WithArgs("prov-a", day).
				WillReturnRows(pgxmock.NewRows([]string{"provider_id", "exception_date", "kind", "start_minutes", "end_minutes"}))
			mock.ExpectQuery("SELECT id, provider_id, start_at").
				WithArgs("prov-a", day, day.AddDate(0, 0, 1)).
				WillReturnRows(pgxmock.NewRows([]string{"id", "provider_id", "start_at", "end_at", "status"}).
					AddRow("b1", "prov-a", day.Add(9*time.Hour), day.Add(10*time.Hour), "confirmed"))

			reader := NewReader(tt.cache, newPostgresStoreWithQuerier(mock), nil)
			inputs, err := reader.DayInputsFor(context.Background(), "prov-a", day)
			require.NoError(t, err)
			assert.False(t, inputs.FromCache)
			require.Len(t, inputs.Rules, 1)
			assert.Equal(t, time.Monday, inputs.Rules[0].Weekday)
			require.Len(t, inputs.Bookings, 1)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestReaderStoreErrorPropagates(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("SELECT provider_id, day_of_week").
		WithArgs("prov-a").
		WillReturnError(errors.New("connection refused"))

	reader := NewReader(nil, newPostgresStoreWithQuerier(mock), nil)
	day := time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)
	_, err = reader.DayInputsFor(context.Background(), "prov-a", day)
	assert.Error(t, err)
}
