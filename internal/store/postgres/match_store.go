package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/alanyoungcy/fantasybet/internal/domain"
)

// MatchStore implements domain.MatchStore using PostgreSQL.
type MatchStore struct {
	db DBTX
}

// NewMatchStore creates a new MatchStore backed by db.
func NewMatchStore(db DBTX) *MatchStore {
	return &MatchStore{db: db}
}

const matchColumns = `id, team1, team2, round, status, score_team1, score_team2,
	captain_score_team1, captain_score_team2, betting_closes_at, result_date, created_at`

func scanMatch(r rowScanner) (domain.Match, error) {
	var (
		m      domain.Match
		status string
	)
	err := r.Scan(
		&m.ID, &m.Team1, &m.Team2, &m.Round, &status,
		&m.Score1, &m.Score2, &m.Captain1, &m.Captain2,
		&m.BettingClosesAt, &m.ResultAt, &m.CreatedAt,
	)
	m.Status = domain.MatchStatus(status)
	return m, err
}

// Create inserts a match. (team1, team2, round) is unique.
func (s *MatchStore) Create(ctx context.Context, m domain.Match) (domain.Match, error) {
	if m.Status == "" {
		m.Status = domain.MatchStatusOpen
	}
	const query = `
		INSERT INTO matches (team1, team2, round, status, betting_closes_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + matchColumns

	out, err := scanMatch(s.db.QueryRow(ctx, query, m.Team1, m.Team2, m.Round, string(m.Status), m.BettingClosesAt))
	if err != nil {
		return domain.Match{}, fmt.Errorf("postgres: create match %s vs %s (%s): %w", m.Team1, m.Team2, m.Round, classify(err))
	}
	return out, nil
}

func (s *MatchStore) GetByID(ctx context.Context, id int64) (domain.Match, error) {
	m, err := scanMatch(s.db.QueryRow(ctx, `SELECT `+matchColumns+` FROM matches WHERE id = $1`, id))
	if err != nil {
		return domain.Match{}, fmt.Errorf("postgres: get match %d: %w", id, classify(err))
	}
	return m, nil
}

func (s *MatchStore) GetForUpdate(ctx context.Context, id int64) (domain.Match, error) {
	m, err := scanMatch(s.db.QueryRow(ctx, `SELECT `+matchColumns+` FROM matches WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return domain.Match{}, fmt.Errorf("postgres: lock match %d: %w", id, classify(err))
	}
	return m, nil
}

// List returns every match, most recently closing first.
func (s *MatchStore) List(ctx context.Context) ([]domain.Match, error) {
	return s.query(ctx, `SELECT `+matchColumns+` FROM matches ORDER BY betting_closes_at DESC, id DESC`)
}

// ListByStatus returns matches in status, soonest closing first.
func (s *MatchStore) ListByStatus(ctx context.Context, status domain.MatchStatus) ([]domain.Match, error) {
	return s.query(ctx, `SELECT `+matchColumns+` FROM matches WHERE status = $1 ORDER BY betting_closes_at, id`, string(status))
}

func (s *MatchStore) query(ctx context.Context, query string, args ...any) ([]domain.Match, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list matches: %w", err)
	}
	matches, err := collectRows(rows, scanMatch)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan matches: %w", err)
	}
	return matches, nil
}

func (s *MatchStore) UpdateBettingClose(ctx context.Context, id int64, at time.Time) error {
	tag, err := s.db.Exec(ctx, `UPDATE matches SET betting_closes_at = $2 WHERE id = $1`, id, at)
	if err != nil {
		return fmt.Errorf("postgres: update match %d close: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("postgres: update match %d close: %w", id, domain.ErrNotFound)
	}
	return nil
}

// SetResult finishes the match. The status guard in the WHERE clause makes a
// second submission fail instead of overwriting the score.
func (s *MatchStore) SetResult(ctx context.Context, id int64, res domain.MatchResult) error {
	const query = `
		UPDATE matches SET
			score_team1 = $2, score_team2 = $3,
			captain_score_team1 = $4, captain_score_team2 = $5,
			result_date = $6, status = 'finished'
		WHERE id = $1 AND status <> 'finished'`

	tag, err := s.db.Exec(ctx, query, id, res.Score1, res.Score2, res.Captain1, res.Captain2, res.At)
	if err != nil {
		return fmt.Errorf("postgres: set result match %d: %w", id, err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}
	if _, err := s.GetByID(ctx, id); err != nil {
		return err
	}
	return fmt.Errorf("postgres: set result match %d: %w", id, domain.ErrConflict)
}

func (s *MatchStore) CloseExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := s.db.Exec(ctx,
		`UPDATE matches SET status = 'closed' WHERE status = 'open' AND betting_closes_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("postgres: close expired matches: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (s *MatchStore) Delete(ctx context.Context, id int64) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM matches WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("postgres: delete match %d: %w", id, classify(err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("postgres: delete match %d: %w", id, domain.ErrNotFound)
	}
	return nil
}

var _ domain.MatchStore = (*MatchStore)(nil)
