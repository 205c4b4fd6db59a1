package stats

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/alanyoungcy/fantasybet/internal/domain"
)

// Provider builds stats tables from the score store, going through the
// standings cache when one is configured.
type Provider struct {
	scores domain.ScoreStore
	cache  domain.StandingsCache
	logger *slog.Logger
}

// NewProvider creates a Provider. cache may be nil.
func NewProvider(scores domain.ScoreStore, cache domain.StandingsCache, logger *slog.Logger) *Provider {
	return &Provider{scores: scores, cache: cache, logger: logger}
}

// Table returns a snapshot of the current league table.
func (p *Provider) Table(ctx context.Context) (*Table, error) {
	if p.cache != nil {
		rows, err := p.cache.Get(ctx)
		if err == nil {
			return NewTable(rows), nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			p.logger.WarnContext(ctx, "stats: standings cache read failed",
				slog.String("error", err.Error()),
			)
		}
	}

	rows, err := p.scores.TeamScores(ctx)
	if err != nil {
		return nil, fmt.Errorf("stats: load team scores: %w", err)
	}

	if p.cache != nil {
		if err := p.cache.Set(ctx, rows); err != nil {
			p.logger.WarnContext(ctx, "stats: standings cache write failed",
				slog.String("error", err.Error()),
			)
		}
	}
	return NewTable(rows), nil
}

// Invalidate drops the cached score rows after the scores change.
func (p *Provider) Invalidate(ctx context.Context) {
	if p.cache == nil {
		return
	}
	if err := p.cache.Invalidate(ctx); err != nil {
		p.logger.WarnContext(ctx, "stats: standings cache invalidate failed",
			slog.String("error", err.Error()),
		)
	}
}
