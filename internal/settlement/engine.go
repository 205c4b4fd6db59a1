// Package settlement resolves bets and parlays once a match has a final
// score.
package settlement

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/fantasybet/internal/domain"
	"github.com/alanyoungcy/fantasybet/internal/ledger"
)

// Engine records match results and pays out winning bets. Every bet and
// every parlay is resolved in its own store transaction with a conditional
// status update, so a run that fails half way can be repeated with Resolve
// without paying anyone twice.
type Engine struct {
	stores domain.Stores
	tx     domain.TxRunner
	rules  Rules
	logger *slog.Logger
	now    func() time.Time
}

// NewEngine creates an Engine. stores serves the reads outside transactions.
func NewEngine(stores domain.Stores, tx domain.TxRunner, rules Rules, logger *slog.Logger) *Engine {
	return &Engine{
		stores: stores,
		tx:     tx,
		rules:  rules,
		logger: logger.With(slog.String("component", "settlement")),
		now:    time.Now,
	}
}

// Settle writes the final score of a match and resolves everything that
// depends on it. A finished match is rejected with domain.ErrConflict.
func (e *Engine) Settle(ctx context.Context, matchID int64, res domain.MatchResult) (domain.SettlementReport, error) {
	if res.Score1 < 0 || res.Score2 < 0 {
		return domain.SettlementReport{}, fmt.Errorf("%w: scores must not be negative", domain.ErrInvalidInput)
	}
	if (res.Captain1 != nil && *res.Captain1 < 0) || (res.Captain2 != nil && *res.Captain2 < 0) {
		return domain.SettlementReport{}, fmt.Errorf("%w: captain scores must not be negative", domain.ErrInvalidInput)
	}
	if res.At.IsZero() {
		res.At = e.now().UTC()
	}

	var match domain.Match
	err := e.tx.InTx(ctx, func(ctx context.Context, s domain.Stores) error {
		m, err := s.Matches.GetForUpdate(ctx, matchID)
		if err != nil {
			return fmt.Errorf("settlement: lock match %d: %w", matchID, err)
		}
		if m.Status == domain.MatchStatusFinished {
			return fmt.Errorf("settlement: match %d already finished: %w", matchID, domain.ErrConflict)
		}
		if res.Captain1 == nil || res.Captain2 == nil {
			if err := requireCaptainScores(ctx, s, m, res); err != nil {
				return err
			}
		}
		if err := s.Matches.SetResult(ctx, matchID, res); err != nil {
			return fmt.Errorf("settlement: set result match %d: %w", matchID, err)
		}
		match, err = s.Matches.GetByID(ctx, matchID)
		if err != nil {
			return fmt.Errorf("settlement: reload match %d: %w", matchID, err)
		}
		return nil
	})
	if err != nil {
		return domain.SettlementReport{}, err
	}

	e.logger.InfoContext(ctx, "settlement: result recorded",
		slog.Int64("match_id", matchID),
		slog.Int("score_team1", res.Score1),
		slog.Int("score_team2", res.Score2),
	)
	return e.resolve(ctx, match)
}

// Resolve re-runs bet and parlay resolution for a finished match. Bets that
// are no longer pending are skipped.
func (e *Engine) Resolve(ctx context.Context, matchID int64) (domain.SettlementReport, error) {
	m, err := e.stores.Matches.GetByID(ctx, matchID)
	if err != nil {
		return domain.SettlementReport{}, fmt.Errorf("settlement: get match %d: %w", matchID, err)
	}
	if m.Status != domain.MatchStatusFinished {
		return domain.SettlementReport{}, fmt.Errorf("settlement: match %d is %s, not finished: %w", matchID, m.Status, domain.ErrConflict)
	}
	return e.resolve(ctx, m)
}

// requireCaptainScores rejects a result that omits the captain score of a
// team still carrying pending captain bets.
func requireCaptainScores(ctx context.Context, s domain.Stores, m domain.Match, res domain.MatchResult) error {
	bets, err := s.Bets.ListByMatch(ctx, m.ID)
	if err != nil {
		return fmt.Errorf("settlement: list bets match %d: %w", m.ID, err)
	}
	for _, b := range bets {
		if b.Status != domain.BetStatusPending || b.Market() != domain.MarketCaptain {
			continue
		}
		team := b.Selection.Team
		if (team == m.Team1 && res.Captain1 == nil) || (team == m.Team2 && res.Captain2 == nil) {
			return fmt.Errorf("%w: captain score for %s is required, match %d has captain bets on it", domain.ErrInvalidInput, team, m.ID)
		}
	}
	return nil
}

func (e *Engine) resolve(ctx context.Context, m domain.Match) (domain.SettlementReport, error) {
	report := domain.SettlementReport{
		MatchID:   m.ID,
		Team1:     m.Team1,
		Team2:     m.Team2,
		Outcome:   domain.OutcomeOf(m, *m.Score1, *m.Score2),
		Score1:    *m.Score1,
		Score2:    *m.Score2,
		Paid:      decimal.Zero,
		SettledAt: e.now().UTC(),
	}

	bets, err := e.stores.Bets.ListByMatch(ctx, m.ID)
	if err != nil {
		report.Incomplete = true
		return report, fmt.Errorf("settlement: list bets match %d: %w", m.ID, err)
	}

	var errs []error
	for _, b := range bets {
		if b.Status != domain.BetStatusPending {
			report.BetsSkipped++
			continue
		}
		status, paid, err := e.resolveBet(ctx, m, b.ID)
		if err != nil {
			e.logger.WarnContext(ctx, "settlement: bet not resolved",
				slog.Int64("bet_id", b.ID),
				slog.String("error", err.Error()),
			)
			errs = append(errs, err)
			continue
		}
		switch status {
		case domain.BetStatusWon:
			report.BetsWon++
		case domain.BetStatusLost:
			report.BetsLost++
		default:
			report.BetsSkipped++
		}
		report.Paid = report.Paid.Add(paid)
	}

	if err := e.resolveParlays(ctx, &report); err != nil {
		errs = append(errs, err)
	}

	e.logger.InfoContext(ctx, "settlement: match resolved",
		slog.Int64("match_id", m.ID),
		slog.String("winner", report.Outcome.Winner),
		slog.Int("bets_won", report.BetsWon),
		slog.Int("bets_lost", report.BetsLost),
		slog.Int("parlays_won", report.ParlaysWon),
		slog.Int("parlays_lost", report.ParlaysLost),
		slog.String("paid", report.Paid.StringFixed(2)),
	)
	report.Incomplete = len(errs) > 0
	return report, errors.Join(errs...)
}

// resolveBet settles one bet. It returns the bet's status afterwards, which
// is the unchanged status when another run got there first.
func (e *Engine) resolveBet(ctx context.Context, m domain.Match, betID int64) (domain.BetStatus, decimal.Decimal, error) {
	var (
		status domain.BetStatus
		paid   = decimal.Zero
	)
	err := e.tx.InTx(ctx, func(ctx context.Context, s domain.Stores) error {
		b, err := s.Bets.GetByID(ctx, betID)
		if err != nil {
			return fmt.Errorf("settlement: get bet %d: %w", betID, err)
		}
		status = b.Status
		if b.Status != domain.BetStatusPending {
			return nil
		}

		won, err := e.rules.Evaluate(b.Selection, m)
		if err != nil {
			return fmt.Errorf("settlement: evaluate bet %d: %w", betID, err)
		}
		next := domain.BetStatusLost
		if won {
			next = domain.BetStatusWon
		}
		if err := s.Bets.UpdateStatus(ctx, betID, domain.BetStatusPending, next); err != nil {
			return fmt.Errorf("settlement: update bet %d: %w", betID, err)
		}
		status = next

		if won && !b.IsParlayLeg() && b.PotentialReturn.IsPositive() {
			desc := fmt.Sprintf("Won bet on %s vs %s: %s", m.Team1, m.Team2, b.Selection)
			if _, err := ledger.Credit(ctx, s, b.UserID, b.PotentialReturn, domain.TxBetWon, desc); err != nil {
				return fmt.Errorf("settlement: pay bet %d: %w", betID, err)
			}
			paid = ledger.Money(b.PotentialReturn)
		}
		return nil
	})
	if err != nil {
		return "", decimal.Zero, err
	}
	return status, paid, nil
}

// resolveParlays folds every pending parlay whose legs allow a verdict.
func (e *Engine) resolveParlays(ctx context.Context, report *domain.SettlementReport) error {
	parlays, err := e.stores.Parlays.ListPending(ctx)
	if err != nil {
		return fmt.Errorf("settlement: list pending parlays: %w", err)
	}

	var errs []error
	for _, p := range parlays {
		if domain.ParlayVerdict(p.Legs) == domain.BetStatusPending {
			continue
		}
		status, paid, err := e.resolveParlay(ctx, p.ID)
		if err != nil {
			e.logger.WarnContext(ctx, "settlement: parlay not resolved",
				slog.Int64("parlay_id", p.ID),
				slog.String("error", err.Error()),
			)
			errs = append(errs, err)
			continue
		}
		switch status {
		case domain.BetStatusWon:
			report.ParlaysWon++
		case domain.BetStatusLost:
			report.ParlaysLost++
		}
		report.Paid = report.Paid.Add(paid)
	}
	return errors.Join(errs...)
}

func (e *Engine) resolveParlay(ctx context.Context, parlayID int64) (domain.BetStatus, decimal.Decimal, error) {
	var (
		status domain.BetStatus
		paid   = decimal.Zero
	)
	err := e.tx.InTx(ctx, func(ctx context.Context, s domain.Stores) error {
		p, err := s.Parlays.GetByID(ctx, parlayID)
		if err != nil {
			return fmt.Errorf("settlement: get parlay %d: %w", parlayID, err)
		}
		if p.Status != domain.BetStatusPending {
			return nil
		}
		verdict := domain.ParlayVerdict(p.Legs)
		if verdict == domain.BetStatusPending {
			return nil
		}
		if err := s.Parlays.UpdateStatus(ctx, parlayID, domain.BetStatusPending, verdict); err != nil {
			return fmt.Errorf("settlement: update parlay %d: %w", parlayID, err)
		}
		status = verdict

		if verdict == domain.BetStatusWon && p.PotentialReturn.IsPositive() {
			desc := fmt.Sprintf("Won %d-leg parlay at %.2f", len(p.Legs), p.TotalOdds)
			if _, err := ledger.Credit(ctx, s, p.UserID, p.PotentialReturn, domain.TxParlayWon, desc); err != nil {
				return fmt.Errorf("settlement: pay parlay %d: %w", parlayID, err)
			}
			paid = ledger.Money(p.PotentialReturn)
		}
		return nil
	})
	if err != nil {
		return "", decimal.Zero, err
	}
	return status, paid, nil
}
