package availability

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// CacheReader is the read port over the externally populated availability
// cache. A nil snapshot with nil error means a cache miss; the engine never
// writes or blocks on population.
type CacheReader interface {
	ReadDay(ctx context.Context, providerID string, day time.Time) (*DaySnapshot, error)
}

// RedisCacheReader reads day snapshots the background populator stores in
// Redis as JSON.
type RedisCacheReader struct {
	client *redis.Client
	prefix string
}

// NewRedisCacheReader wraps a redis client. prefix defaults to "availability".
func NewRedisCacheReader(client *redis.Client, prefix string) *RedisCacheReader {
	if client == nil {
		panic("availability: redis client required")
	}
	if prefix == "" {
		prefix = "availability"
	}
	return &RedisCacheReader{client: client, prefix: prefix}
}

var _ CacheReader = (*RedisCacheReader)(nil)

// ReadDay fetches the snapshot for one provider and date.
func (r *RedisCacheReader) ReadDay(ctx context.Context, providerID string, day time.Time) (*DaySnapshot, error) {
	key := fmt.Sprintf("%s:%s:%s", r.prefix, providerID, day.Format("2006-01-02"))
	raw, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("availability: cache read %s: %w", key, err)
	}
	var snap DaySnapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		// A corrupt snapshot is treated as a miss, not a hard failure.
		return nil, nil
	}
	return &snap, nil
}
