package availability

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*miniredis.Miniredis, *RedisCacheReader) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, NewRedisCacheReader(client, "availability")
}

func TestRedisCacheReaderHit(t *testing.T) {
	mr, reader := newTestCache(t)
	day := time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)

	snap := DaySnapshot{
		ProviderID: "prov-a",
		Date:       "2025-03-03",
		Rules: []RecurringRule{
			{ProviderID: "prov-a", Weekday: time.Monday, StartMinutes: 540, EndMinutes: 720},
		},
		Bookings: []Booking{
			{ID: "b1", ProviderID: "prov-a", StartAt: day.Add(9 * time.Hour), EndAt: day.Add(10 * time.Hour), Status: BookingConfirmed},
		},
		GeneratedAt: time.Now().UTC(),
	}
	raw, err := json.Marshal(snap)
	require.NoError(t, err)
	mr.Set("availability:prov-a:2025-03-03", string(raw))

	got, err := reader.ReadDay(context.Background(), "prov-a", day)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "prov-a", got.ProviderID)
	require.Len(t, got.Rules, 1)
	assert.Equal(t, 540, got.Rules[0].StartMinutes)
	require.Len(t, got.Bookings, 1)
	assert.Equal(t, BookingConfirmed, got.Bookings[0].Status)
}

func TestRedisCacheReaderMiss(t *testing.T) {
	_, reader := newTestCache(t)
	day := time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)

	got, err := reader.ReadDay(context.Background(), "prov-a", day)
	require.NoError(t, err)
	assert.Nil(t, got, "miss must return nil snapshot, nil error")
}

func TestRedisCacheReaderCorruptSnapshotIsMiss(t *testing.T) {
	mr, reader := newTestCache(t)
	day := time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)
	mr.Set("availability:prov-a:2025-03-03", "{not json")

	got, err := reader.ReadDay(context.Background(), "prov-a", day)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRedisCacheReaderServerDown(t *testing.T) {
	mr, reader := newTestCache(t)
	mr.Close()
	day := time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)

	_, err := reader.ReadDay(context.Background(), "prov-a", day)
	assert.Error(t, err)
}
