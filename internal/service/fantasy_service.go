package service

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/alanyoungcy/fantasybet/internal/domain"
	"github.com/alanyoungcy/fantasybet/internal/stats"
)

// StandingsSource is a TableSource whose cached table can be dropped.
type StandingsSource interface {
	TableSource
	Invalidate(ctx context.Context)
}

// FantasyService records matchday points and serves the derived tables.
type FantasyService struct {
	stores    domain.Stores
	tx        domain.TxRunner
	standings StandingsSource
	logger    *slog.Logger
}

// NewFantasyService creates a FantasyService.
func NewFantasyService(stores domain.Stores, tx domain.TxRunner, standings StandingsSource, logger *slog.Logger) *FantasyService {
	return &FantasyService{stores: stores, tx: tx, standings: standings, logger: logger}
}

// UpsertScores writes a batch of matchday points. The batch is all or
// nothing.
func (s *FantasyService) UpsertScores(ctx context.Context, scores []domain.FantasyScore) (int, error) {
	if len(scores) == 0 {
		return 0, fmt.Errorf("%w: no scores given", domain.ErrInvalidInput)
	}
	for i := range scores {
		sc := &scores[i]
		sc.Team = strings.TrimSpace(sc.Team)
		switch {
		case sc.Team == "":
			return 0, fmt.Errorf("%w: score %d has no team", domain.ErrInvalidInput, i+1)
		case sc.Matchday < 1:
			return 0, fmt.Errorf("%w: score %d matchday must be at least 1", domain.ErrInvalidInput, i+1)
		case sc.Points < 0 || math.IsNaN(sc.Points) || math.IsInf(sc.Points, 0):
			return 0, fmt.Errorf("%w: score %d points must be a non-negative number", domain.ErrInvalidInput, i+1)
		}
	}

	err := s.tx.InTx(ctx, func(ctx context.Context, st domain.Stores) error {
		for _, sc := range scores {
			if err := st.Scores.Upsert(ctx, sc); err != nil {
				return fmt.Errorf("fantasy_service: upsert %s matchday %d: %w", sc.Team, sc.Matchday, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.standings.Invalidate(ctx)
	s.logger.InfoContext(ctx, "fantasy_service: scores upserted", slog.Int("count", len(scores)))
	return len(scores), nil
}

// Classification returns point totals per team, highest first.
func (s *FantasyService) Classification(ctx context.Context) ([]domain.ClassificationRow, error) {
	return s.stores.Scores.Classification(ctx)
}

// Matchday returns every team's points on one matchday.
func (s *FantasyService) Matchday(ctx context.Context, matchday int) ([]domain.FantasyScore, error) {
	if matchday < 1 {
		return nil, fmt.Errorf("%w: matchday must be at least 1", domain.ErrInvalidInput)
	}
	return s.stores.Scores.ListByMatchday(ctx, matchday)
}

// All returns every score row.
func (s *FantasyService) All(ctx context.Context) ([]domain.FantasyScore, error) {
	return s.stores.Scores.ListAll(ctx)
}

// Team returns one team's score history. An unknown team is not found.
func (s *FantasyService) Team(ctx context.Context, team string) ([]domain.FantasyScore, error) {
	rows, err := s.stores.Scores.ListByTeam(ctx, team)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("fantasy_service: team %q: %w", team, domain.ErrNotFound)
	}
	return rows, nil
}

// Standings returns the league table the odds are priced from.
func (s *FantasyService) Standings(ctx context.Context) ([]stats.Standing, error) {
	t, err := s.standings.Table(ctx)
	if err != nil {
		return nil, fmt.Errorf("fantasy_service: load table: %w", err)
	}
	return t.Standings(), nil
}
