package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/alanyoungcy/fantasybet/internal/domain"
)

// standingsKey holds the JSON-encoded per-team score rows.
const standingsKey = keyPrefix + "standings"

// StandingsCache implements domain.StandingsCache. Score uploads invalidate
// it; the TTL bounds staleness if an invalidation is lost.
type StandingsCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewStandingsCache creates a StandingsCache backed by the given Client.
func NewStandingsCache(c *Client, ttl time.Duration) *StandingsCache {
	return &StandingsCache{rdb: c.Underlying(), ttl: ttl}
}

func (sc *StandingsCache) Get(ctx context.Context) ([]domain.TeamScores, error) {
	data, err := sc.rdb.Get(ctx, standingsKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis: get standings: %w", err)
	}
	return decodeStandings(data)
}

func (sc *StandingsCache) Set(ctx context.Context, scores []domain.TeamScores) error {
	data, err := json.Marshal(scores)
	if err != nil {
		return fmt.Errorf("redis: marshal standings: %w", err)
	}
	if err := sc.rdb.Set(ctx, standingsKey, data, sc.ttl).Err(); err != nil {
		return fmt.Errorf("redis: set standings: %w", err)
	}
	return nil
}

func (sc *StandingsCache) Invalidate(ctx context.Context) error {
	if err := sc.rdb.Del(ctx, standingsKey).Err(); err != nil {
		return fmt.Errorf("redis: invalidate standings: %w", err)
	}
	return nil
}

func decodeStandings(data []byte) ([]domain.TeamScores, error) {
	var scores []domain.TeamScores
	if err := json.Unmarshal(data, &scores); err != nil {
		return nil, fmt.Errorf("redis: decode standings: %w", err)
	}
	return scores, nil
}

var _ domain.StandingsCache = (*StandingsCache)(nil)
