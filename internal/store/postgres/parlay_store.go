package postgres

import (
	"context"
	"fmt"

	"github.com/alanyoungcy/fantasybet/internal/domain"
)

// ParlayStore implements domain.ParlayStore using PostgreSQL. Returned
// parlays carry their legs, loaded with one extra query per call.
type ParlayStore struct {
	db   DBTX
	bets *BetStore
}

// NewParlayStore creates a new ParlayStore backed by db.
func NewParlayStore(db DBTX) *ParlayStore {
	return &ParlayStore{db: db, bets: NewBetStore(db)}
}

const parlayColumns = `id, user_id, amount, total_odds, potential_return, status, result, created_at`

func scanParlay(r rowScanner) (domain.Parlay, error) {
	var (
		p      domain.Parlay
		status string
		result *string
	)
	if err := r.Scan(&p.ID, &p.UserID, &p.Amount, &p.TotalOdds, &p.PotentialReturn, &status, &result, &p.CreatedAt); err != nil {
		return domain.Parlay{}, err
	}
	p.Status = domain.BetStatus(status)
	if result != nil {
		r := domain.BetResult(*result)
		p.Result = &r
	}
	return p, nil
}

func (s *ParlayStore) Create(ctx context.Context, p domain.Parlay) (domain.Parlay, error) {
	if p.Status == "" {
		p.Status = domain.BetStatusPending
	}
	const query = `
		INSERT INTO parlay_bets (user_id, amount, total_odds, potential_return, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + parlayColumns

	out, err := scanParlay(s.db.QueryRow(ctx, query,
		p.UserID, p.Amount.Round(2), p.TotalOdds, p.PotentialReturn.Round(2), string(p.Status)))
	if err != nil {
		return domain.Parlay{}, fmt.Errorf("postgres: create parlay user %d: %w", p.UserID, classify(err))
	}
	return out, nil
}

// AddLeg links a bet to a parlay. A bet belongs to at most one parlay.
func (s *ParlayStore) AddLeg(ctx context.Context, parlayID, betID int64) error {
	_, err := s.db.Exec(ctx, `INSERT INTO parlay_bet_items (parlay_id, bet_id) VALUES ($1, $2)`, parlayID, betID)
	if err != nil {
		return fmt.Errorf("postgres: add leg %d to parlay %d: %w", betID, parlayID, classify(err))
	}
	return nil
}

func (s *ParlayStore) GetByID(ctx context.Context, id int64) (domain.Parlay, error) {
	p, err := scanParlay(s.db.QueryRow(ctx, `SELECT `+parlayColumns+` FROM parlay_bets WHERE id = $1`, id))
	if err != nil {
		return domain.Parlay{}, fmt.Errorf("postgres: get parlay %d: %w", id, classify(err))
	}
	if p.Legs, err = s.bets.query(ctx, betSelect+` WHERE i.parlay_id = $1 ORDER BY b.id`, id); err != nil {
		return domain.Parlay{}, err
	}
	return p, nil
}

func (s *ParlayStore) Legs(ctx context.Context, parlayID int64) ([]domain.Bet, error) {
	p, err := s.GetByID(ctx, parlayID)
	if err != nil {
		return nil, err
	}
	return p.Legs, nil
}

func (s *ParlayStore) ListByUser(ctx context.Context, userID int64, opts domain.ListOpts) ([]domain.Parlay, error) {
	query, args := withPage(
		`SELECT `+parlayColumns+` FROM parlay_bets WHERE user_id = $1 ORDER BY created_at DESC, id DESC`,
		[]any{userID}, opts)
	return s.query(ctx, query, args...)
}

func (s *ParlayStore) ListPublic(ctx context.Context, opts domain.ListOpts) ([]domain.Parlay, error) {
	query, args := withPage(
		`SELECT `+parlayColumns+` FROM parlay_bets ORDER BY created_at DESC, id DESC`,
		nil, opts)
	return s.query(ctx, query, args...)
}

func (s *ParlayStore) ListPending(ctx context.Context) ([]domain.Parlay, error) {
	return s.query(ctx, `SELECT `+parlayColumns+` FROM parlay_bets WHERE status = 'pending' ORDER BY created_at DESC, id DESC`)
}

// query loads parlays and then attaches the legs of all of them at once.
func (s *ParlayStore) query(ctx context.Context, query string, args ...any) ([]domain.Parlay, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list parlays: %w", err)
	}
	parlays, err := collectRows(rows, scanParlay)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan parlays: %w", err)
	}
	if len(parlays) == 0 {
		return parlays, nil
	}

	ids := make([]int64, len(parlays))
	index := make(map[int64]int, len(parlays))
	for i, p := range parlays {
		ids[i] = p.ID
		index[p.ID] = i
		parlays[i].Legs = []domain.Bet{}
	}
	legs, err := s.bets.query(ctx, betSelect+` WHERE i.parlay_id = ANY($1) ORDER BY b.id`, ids)
	if err != nil {
		return nil, err
	}
	for _, l := range legs {
		i := index[*l.ParlayID]
		parlays[i].Legs = append(parlays[i].Legs, l)
	}
	return parlays, nil
}

func (s *ParlayStore) UpdateStatus(ctx context.Context, id int64, from, to domain.BetStatus) error {
	var result *string
	if r := domain.ResultFor(to); r != nil {
		v := string(*r)
		result = &v
	}
	tag, err := s.db.Exec(ctx,
		`UPDATE parlay_bets SET status = $3, result = $4 WHERE id = $1 AND status = $2`,
		id, string(from), string(to), result)
	if err != nil {
		return fmt.Errorf("postgres: update parlay %d status: %w", id, err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}
	var exists bool
	if err := s.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM parlay_bets WHERE id = $1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("postgres: check parlay %d: %w", id, err)
	}
	if !exists {
		return fmt.Errorf("postgres: update parlay %d: %w", id, domain.ErrNotFound)
	}
	return fmt.Errorf("postgres: update parlay %d from %s: %w", id, from, domain.ErrConflict)
}

var _ domain.ParlayStore = (*ParlayStore)(nil)
