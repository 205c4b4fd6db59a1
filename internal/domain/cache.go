package domain

import (
	"context"
	"time"
)

// StandingsCache holds the raw score rows the stats table is built from.
type StandingsCache interface {
	// Get returns ErrNotFound on a cache miss.
	Get(ctx context.Context) ([]TeamScores, error)
	Set(ctx context.Context, scores []TeamScores) error
	Invalidate(ctx context.Context) error
}

// RateLimiter provides distributed rate limiting.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// LockManager provides distributed locking.
type LockManager interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (unlock func(), err error)
}

// StreamMessage represents a single entry from a Redis stream.
type StreamMessage struct {
	ID      string `json:"id"`
	Payload []byte `json:"payload"`
}

// StreamTail passed as lastID to StreamRead reads the newest entries instead
// of the entries after an id.
const StreamTail = "+"

// SignalBus provides pub/sub and durable streams.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	StreamAppend(ctx context.Context, stream string, payload []byte) error
	StreamRead(ctx context.Context, stream string, lastID string, count int) ([]StreamMessage, error)
}
