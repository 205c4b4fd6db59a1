package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/alanyoungcy/fantasybet/internal/domain"
)

// BetStore implements domain.BetStore using PostgreSQL. The parlay a leg
// belongs to is read from parlay_bet_items.
type BetStore struct {
	db DBTX
}

// NewBetStore creates a new BetStore backed by db.
func NewBetStore(db DBTX) *BetStore {
	return &BetStore{db: db}
}

const betSelect = `
	SELECT b.id, b.user_id, b.match_id, b.bet_type, b.selection, b.amount, b.odds,
	       b.potential_return, b.status, b.result, i.parlay_id, b.created_at
	FROM bets b
	LEFT JOIN parlay_bet_items i ON i.bet_id = b.id`

func scanBet(r rowScanner) (domain.Bet, error) {
	var (
		b         domain.Bet
		market    string
		selection string
		status    string
		result    *string
	)
	if err := r.Scan(
		&b.ID, &b.UserID, &b.MatchID, &market, &selection, &b.Amount, &b.Odds,
		&b.PotentialReturn, &status, &result, &b.ParlayID, &b.CreatedAt,
	); err != nil {
		return domain.Bet{}, err
	}
	sel, err := domain.ParseSelection(domain.MarketType(market), selection)
	if err != nil {
		return domain.Bet{}, fmt.Errorf("bet %d selection: %w", b.ID, err)
	}
	b.Selection = sel
	b.Status = domain.BetStatus(status)
	if result != nil {
		r := domain.BetResult(*result)
		b.Result = &r
	}
	return b, nil
}

func (s *BetStore) Create(ctx context.Context, b domain.Bet) (domain.Bet, error) {
	if b.Status == "" {
		b.Status = domain.BetStatusPending
	}
	const query = `
		INSERT INTO bets (user_id, match_id, bet_type, selection, amount, odds, potential_return, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at`

	b.Amount = b.Amount.Round(2)
	b.PotentialReturn = b.PotentialReturn.Round(2)
	err := s.db.QueryRow(ctx, query,
		b.UserID, b.MatchID, string(b.Selection.Market), b.Selection.String(),
		b.Amount, b.Odds, b.PotentialReturn, string(b.Status),
	).Scan(&b.ID, &b.CreatedAt)
	if err != nil {
		return domain.Bet{}, fmt.Errorf("postgres: create bet user %d match %d: %w", b.UserID, b.MatchID, classify(err))
	}
	return b, nil
}

func (s *BetStore) GetByID(ctx context.Context, id int64) (domain.Bet, error) {
	b, err := scanBet(s.db.QueryRow(ctx, betSelect+` WHERE b.id = $1`, id))
	if err != nil {
		return domain.Bet{}, fmt.Errorf("postgres: get bet %d: %w", id, classify(err))
	}
	return b, nil
}

// ListByMatch returns every bet on a match, legs included, oldest first.
func (s *BetStore) ListByMatch(ctx context.Context, matchID int64) ([]domain.Bet, error) {
	return s.query(ctx, betSelect+` WHERE b.match_id = $1 ORDER BY b.created_at, b.id`, matchID)
}

func (s *BetStore) ListByUser(ctx context.Context, userID int64, opts domain.ListOpts) ([]domain.Bet, error) {
	query, args := withPage(
		betSelect+` WHERE b.user_id = $1 AND b.amount > 0 ORDER BY b.created_at DESC, b.id DESC`,
		[]any{userID}, opts)
	return s.query(ctx, query, args...)
}

func (s *BetStore) ListPublic(ctx context.Context, opts domain.ListOpts) ([]domain.Bet, error) {
	query, args := withPage(
		betSelect+` WHERE b.amount > 0 ORDER BY b.created_at DESC, b.id DESC`,
		nil, opts)
	return s.query(ctx, query, args...)
}

func (s *BetStore) ListSettledBefore(ctx context.Context, before time.Time) ([]domain.Bet, error) {
	return s.query(ctx,
		betSelect+` WHERE b.status <> 'pending' AND b.created_at < $1 ORDER BY b.created_at, b.id`,
		before)
}

func (s *BetStore) query(ctx context.Context, query string, args ...any) ([]domain.Bet, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list bets: %w", err)
	}
	bets, err := collectRows(rows, scanBet)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan bets: %w", err)
	}
	return bets, nil
}

// UpdateStatus moves a bet from one status to another. The status guard keeps
// two settlement passes from resolving the same bet twice.
func (s *BetStore) UpdateStatus(ctx context.Context, id int64, from, to domain.BetStatus) error {
	var result *string
	if r := domain.ResultFor(to); r != nil {
		v := string(*r)
		result = &v
	}
	tag, err := s.db.Exec(ctx,
		`UPDATE bets SET status = $3, result = $4 WHERE id = $1 AND status = $2`,
		id, string(from), string(to), result)
	if err != nil {
		return fmt.Errorf("postgres: update bet %d status: %w", id, err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}
	if _, err := s.GetByID(ctx, id); err != nil {
		return err
	}
	return fmt.Errorf("postgres: update bet %d from %s: %w", id, from, domain.ErrConflict)
}

func (s *BetStore) CountByMatch(ctx context.Context, matchID int64) (int64, error) {
	var n int64
	if err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM bets WHERE match_id = $1`, matchID).Scan(&n); err != nil {
		return 0, fmt.Errorf("postgres: count bets match %d: %w", matchID, err)
	}
	return n, nil
}

var _ domain.BetStore = (*BetStore)(nil)
