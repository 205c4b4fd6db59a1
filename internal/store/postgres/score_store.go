package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/alanyoungcy/fantasybet/internal/domain"
)

// ScoreStore implements domain.ScoreStore using PostgreSQL. A replaced score
// keeps its row id, so team order follows the first insertion.
type ScoreStore struct {
	db DBTX
}

// NewScoreStore creates a new ScoreStore backed by db.
func NewScoreStore(db DBTX) *ScoreStore {
	return &ScoreStore{db: db}
}

const scoreColumns = `id, team_name, matchday, points, created_at`

func scanScore(r rowScanner) (domain.FantasyScore, error) {
	var sc domain.FantasyScore
	err := r.Scan(&sc.ID, &sc.Team, &sc.Matchday, &sc.Points, &sc.CreatedAt)
	return sc, err
}

func (s *ScoreStore) Upsert(ctx context.Context, sc domain.FantasyScore) error {
	if strings.TrimSpace(sc.Team) == "" || sc.Matchday < 1 {
		return fmt.Errorf("postgres: upsert score %q matchday %d: %w", sc.Team, sc.Matchday, domain.ErrInvalidInput)
	}
	const query = `
		INSERT INTO fantasy_scores (team_name, matchday, points)
		VALUES ($1, $2, $3)
		ON CONFLICT (team_name, matchday) DO UPDATE SET points = EXCLUDED.points`

	if _, err := s.db.Exec(ctx, query, sc.Team, sc.Matchday, sc.Points); err != nil {
		return fmt.Errorf("postgres: upsert score %s matchday %d: %w", sc.Team, sc.Matchday, classify(err))
	}
	return nil
}

func (s *ScoreStore) ListAll(ctx context.Context) ([]domain.FantasyScore, error) {
	return s.query(ctx, `SELECT `+scoreColumns+` FROM fantasy_scores ORDER BY matchday, team_name`)
}

func (s *ScoreStore) ListByMatchday(ctx context.Context, matchday int) ([]domain.FantasyScore, error) {
	return s.query(ctx, `SELECT `+scoreColumns+` FROM fantasy_scores WHERE matchday = $1 ORDER BY team_name`, matchday)
}

func (s *ScoreStore) ListByTeam(ctx context.Context, team string) ([]domain.FantasyScore, error) {
	return s.query(ctx, `SELECT `+scoreColumns+` FROM fantasy_scores WHERE team_name = $1 ORDER BY matchday`, team)
}

func (s *ScoreStore) query(ctx context.Context, query string, args ...any) ([]domain.FantasyScore, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list scores: %w", err)
	}
	scores, err := collectRows(rows, scanScore)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan scores: %w", err)
	}
	return scores, nil
}

// TeamScores pivots the rows into one points slice per team. Missing
// matchdays stay zero.
func (s *ScoreStore) TeamScores(ctx context.Context) ([]domain.TeamScores, error) {
	rows, err := s.query(ctx, `SELECT `+scoreColumns+` FROM fantasy_scores ORDER BY id`)
	if err != nil {
		return nil, err
	}

	var out []domain.TeamScores
	maxDay := 0
	index := make(map[string]int)
	for _, sc := range rows {
		maxDay = max(maxDay, sc.Matchday)
		if _, ok := index[sc.Team]; !ok {
			index[sc.Team] = len(out)
			out = append(out, domain.TeamScores{Team: sc.Team})
		}
	}
	for i := range out {
		out[i].Points = make([]float64, maxDay)
	}
	for _, sc := range rows {
		out[index[sc.Team]].Points[sc.Matchday-1] = sc.Points
	}
	return out, nil
}

// Classification totals points per team, highest first. Matchdays with zero
// points do not count as played.
func (s *ScoreStore) Classification(ctx context.Context) ([]domain.ClassificationRow, error) {
	const query = `
		SELECT team_name, SUM(points), COUNT(*) FILTER (WHERE points > 0)
		FROM fantasy_scores
		GROUP BY team_name
		ORDER BY SUM(points) DESC, MIN(id)`

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("postgres: classification: %w", err)
	}
	out, err := collectRows(rows, func(r rowScanner) (domain.ClassificationRow, error) {
		var row domain.ClassificationRow
		err := r.Scan(&row.Team, &row.TotalPoints, &row.MatchdaysPlayed)
		return row, err
	})
	if err != nil {
		return nil, fmt.Errorf("postgres: scan classification: %w", err)
	}
	return out, nil
}

var _ domain.ScoreStore = (*ScoreStore)(nil)
