package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/alanyoungcy/fantasybet/internal/domain"
	"github.com/alanyoungcy/fantasybet/internal/odds"
	"github.com/alanyoungcy/fantasybet/internal/settlement"
)

// Notifier delivers operator notifications.
type Notifier interface {
	Notify(ctx context.Context, event, title, message string) error
}

// MatchDeps are the optional collaborators of MatchService. Nil fields
// disable the matching side effect.
type MatchDeps struct {
	Locks    domain.LockManager
	LockTTL  time.Duration
	Bus      domain.SignalBus
	Notifier Notifier
}

// MatchView is a match together with the markets currently offered on it.
type MatchView struct {
	domain.Match
	BetOptions *odds.BetOptions `json:"betOptions,omitempty"`
}

// CreateMatchRequest describes a new fixture.
type CreateMatchRequest struct {
	Team1           string
	Team2           string
	Round           string
	BettingClosesAt time.Time
}

// MatchService manages fixtures and drives settlement.
type MatchService struct {
	stores       domain.Stores
	table        TableSource
	engine       *settlement.Engine
	deps         MatchDeps
	marginMarket bool
	logger       *slog.Logger
	now          func() time.Time
}

// NewMatchService creates a MatchService.
func NewMatchService(stores domain.Stores, table TableSource, engine *settlement.Engine, marginMarket bool, deps MatchDeps, logger *slog.Logger) *MatchService {
	if deps.LockTTL <= 0 {
		deps.LockTTL = 30 * time.Second
	}
	return &MatchService{
		stores:       stores,
		table:        table,
		engine:       engine,
		deps:         deps,
		marginMarket: marginMarket,
		logger:       logger,
		now:          time.Now,
	}
}

// Teams lists the teams that have played at least one matchday.
func (s *MatchService) Teams(ctx context.Context) ([]string, error) {
	t, err := s.table.Table(ctx)
	if err != nil {
		return nil, fmt.Errorf("match_service: load table: %w", err)
	}
	return t.Teams(), nil
}

// Create adds a fixture between two known, distinct teams.
func (s *MatchService) Create(ctx context.Context, req CreateMatchRequest) (domain.Match, error) {
	req.Team1 = strings.TrimSpace(req.Team1)
	req.Team2 = strings.TrimSpace(req.Team2)
	req.Round = strings.TrimSpace(req.Round)
	switch {
	case req.Team1 == "" || req.Team2 == "":
		return domain.Match{}, fmt.Errorf("%w: both teams are required", domain.ErrInvalidInput)
	case req.Team1 == req.Team2:
		return domain.Match{}, fmt.Errorf("%w: a team cannot play itself", domain.ErrInvalidInput)
	case req.BettingClosesAt.IsZero():
		return domain.Match{}, fmt.Errorf("%w: betting_closes_at is required", domain.ErrInvalidInput)
	}

	t, err := s.table.Table(ctx)
	if err != nil {
		return domain.Match{}, fmt.Errorf("match_service: load table: %w", err)
	}
	for _, team := range []string{req.Team1, req.Team2} {
		if !t.Known(team) {
			return domain.Match{}, fmt.Errorf("%w: unknown team %q", domain.ErrInvalidInput, team)
		}
	}

	m, err := s.stores.Matches.Create(ctx, domain.Match{
		Team1:           req.Team1,
		Team2:           req.Team2,
		Round:           req.Round,
		Status:          domain.MatchStatusOpen,
		BettingClosesAt: req.BettingClosesAt.UTC(),
	})
	if err != nil {
		return domain.Match{}, fmt.Errorf("match_service: create match: %w", err)
	}

	s.audit(ctx, "match_created", map[string]any{
		"match_id": m.ID,
		"team1":    m.Team1,
		"team2":    m.Team2,
		"round":    m.Round,
	})
	s.logger.InfoContext(ctx, "match_service: match created",
		slog.Int64("match_id", m.ID),
		slog.String("team1", m.Team1),
		slog.String("team2", m.Team2),
	)
	return m, nil
}

// List returns every match, each open one with its bet options.
func (s *MatchService) List(ctx context.Context) ([]MatchView, error) {
	s.closeExpiredQuietly(ctx)
	matches, err := s.stores.Matches.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("match_service: list matches: %w", err)
	}
	return s.views(ctx, matches)
}

// ListByStatus returns open or closed matches with their bet options.
func (s *MatchService) ListByStatus(ctx context.Context, status domain.MatchStatus) ([]MatchView, error) {
	s.closeExpiredQuietly(ctx)
	matches, err := s.stores.Matches.ListByStatus(ctx, status)
	if err != nil {
		return nil, fmt.Errorf("match_service: list %s matches: %w", status, err)
	}
	return s.views(ctx, matches)
}

// Get returns one match with its bet options.
func (s *MatchService) Get(ctx context.Context, id int64) (MatchView, error) {
	m, err := s.stores.Matches.GetByID(ctx, id)
	if err != nil {
		return MatchView{}, fmt.Errorf("match_service: get match %d: %w", id, err)
	}
	views, err := s.views(ctx, []domain.Match{m})
	if err != nil {
		return MatchView{}, err
	}
	return views[0], nil
}

func (s *MatchService) views(ctx context.Context, matches []domain.Match) ([]MatchView, error) {
	out := make([]MatchView, 0, len(matches))
	if len(matches) == 0 {
		return out, nil
	}
	t, err := s.table.Table(ctx)
	if err != nil {
		return nil, fmt.Errorf("match_service: load table: %w", err)
	}
	for _, m := range matches {
		v := MatchView{Match: m}
		if m.Status != domain.MatchStatusFinished {
			opts, err := odds.GenerateBetOptions(t, m.Team1, m.Team2, odds.Options{MarginMarket: s.marginMarket})
			if err != nil {
				s.logger.DebugContext(ctx, "match_service: no bet options",
					slog.Int64("match_id", m.ID),
					slog.String("error", err.Error()),
				)
			} else {
				v.BetOptions = &opts
			}
		}
		out = append(out, v)
	}
	return out, nil
}

// UpdateBettingClose moves the betting deadline of an unfinished match.
func (s *MatchService) UpdateBettingClose(ctx context.Context, id int64, at time.Time) (domain.Match, error) {
	if at.IsZero() {
		return domain.Match{}, fmt.Errorf("%w: betting_closes_at is required", domain.ErrInvalidInput)
	}
	m, err := s.stores.Matches.GetByID(ctx, id)
	if err != nil {
		return domain.Match{}, fmt.Errorf("match_service: get match %d: %w", id, err)
	}
	if m.Status == domain.MatchStatusFinished {
		return domain.Match{}, fmt.Errorf("match_service: match %d is finished: %w", id, domain.ErrConflict)
	}
	if err := s.stores.Matches.UpdateBettingClose(ctx, id, at.UTC()); err != nil {
		return domain.Match{}, fmt.Errorf("match_service: update match %d: %w", id, err)
	}
	m.BettingClosesAt = at.UTC()
	return m, nil
}

// Delete removes a match nobody has bet on.
func (s *MatchService) Delete(ctx context.Context, id int64) error {
	n, err := s.stores.Bets.CountByMatch(ctx, id)
	if err != nil {
		return fmt.Errorf("match_service: count bets match %d: %w", id, err)
	}
	if n > 0 {
		return fmt.Errorf("match_service: match %d has %d bets: %w", id, n, domain.ErrConflict)
	}
	if err := s.stores.Matches.Delete(ctx, id); err != nil {
		return fmt.Errorf("match_service: delete match %d: %w", id, err)
	}
	s.audit(ctx, "match_deleted", map[string]any{"match_id": id})
	return nil
}

// Bets lists every bet on a match, parlay legs included.
func (s *MatchService) Bets(ctx context.Context, id int64) ([]domain.Bet, error) {
	if _, err := s.stores.Matches.GetByID(ctx, id); err != nil {
		return nil, fmt.Errorf("match_service: get match %d: %w", id, err)
	}
	return s.stores.Bets.ListByMatch(ctx, id)
}

// CloseExpired closes every open match whose betting window has passed.
func (s *MatchService) CloseExpired(ctx context.Context) (int64, error) {
	n, err := s.stores.Matches.CloseExpired(ctx, s.now().UTC())
	if err != nil {
		return 0, fmt.Errorf("match_service: close expired: %w", err)
	}
	if n > 0 {
		s.logger.InfoContext(ctx, "match_service: closed expired matches", slog.Int64("count", n))
	}
	return n, nil
}

func (s *MatchService) closeExpiredQuietly(ctx context.Context) {
	if _, err := s.CloseExpired(ctx); err != nil {
		s.logger.WarnContext(ctx, "match_service: close expired failed", slog.String("error", err.Error()))
	}
}

// Settle records a final score and resolves the match's bets. Concurrent
// settlements of the same match are refused with domain.ErrLockHeld.
func (s *MatchService) Settle(ctx context.Context, id int64, res domain.MatchResult) (domain.SettlementReport, error) {
	return s.settleLocked(ctx, id, func(ctx context.Context) (domain.SettlementReport, error) {
		return s.engine.Settle(ctx, id, res)
	})
}

// Resolve re-runs resolution for a finished match.
func (s *MatchService) Resolve(ctx context.Context, id int64) (domain.SettlementReport, error) {
	return s.settleLocked(ctx, id, func(ctx context.Context) (domain.SettlementReport, error) {
		return s.engine.Resolve(ctx, id)
	})
}

func (s *MatchService) settleLocked(ctx context.Context, id int64, run func(context.Context) (domain.SettlementReport, error)) (domain.SettlementReport, error) {
	if s.deps.Locks != nil {
		unlock, err := s.deps.Locks.Acquire(ctx, fmt.Sprintf("settle:match:%d", id), s.deps.LockTTL)
		if err != nil {
			return domain.SettlementReport{}, fmt.Errorf("match_service: settle match %d: %w", id, err)
		}
		defer unlock()
	}

	report, err := run(ctx)
	if report.MatchID == 0 {
		return report, err
	}
	if err != nil {
		// Some bets failed; the rest is committed and Resolve can finish the job.
		s.logger.ErrorContext(ctx, "match_service: settlement incomplete",
			slog.Int64("match_id", id),
			slog.String("error", err.Error()),
		)
	}

	s.publish(ctx, report)
	s.audit(ctx, "match_settled", map[string]any{
		"match_id":     report.MatchID,
		"score_team1":  report.Score1,
		"score_team2":  report.Score2,
		"winner":       report.Outcome.Winner,
		"bets_won":     report.BetsWon,
		"bets_lost":    report.BetsLost,
		"parlays_won":  report.ParlaysWon,
		"parlays_lost": report.ParlaysLost,
		"paid":         report.Paid.StringFixed(2),
	})
	if s.deps.Notifier != nil {
		winner := report.Outcome.Winner
		if winner == "" {
			winner = "draw"
		}
		msg := fmt.Sprintf("%s %d - %d %s (%s). Bets won %d, lost %d. Parlays won %d, lost %d. Paid %s coins.",
			report.Team1, report.Score1, report.Score2, report.Team2, winner,
			report.BetsWon, report.BetsLost, report.ParlaysWon, report.ParlaysLost, report.Paid.StringFixed(2))
		if nerr := s.deps.Notifier.Notify(ctx, "match_settled", "Match settled", msg); nerr != nil {
			s.logger.WarnContext(ctx, "match_service: notify failed",
				slog.Int64("match_id", id),
				slog.String("error", nerr.Error()),
			)
		}
	}
	return report, err
}

func (s *MatchService) publish(ctx context.Context, report domain.SettlementReport) {
	if s.deps.Bus == nil {
		return
	}
	payload, err := json.Marshal(report)
	if err != nil {
		s.logger.WarnContext(ctx, "match_service: encode settlement event", slog.String("error", err.Error()))
		return
	}
	if err := s.deps.Bus.Publish(ctx, domain.ChannelSettlements, payload); err != nil {
		s.logger.WarnContext(ctx, "match_service: publish settlement failed",
			slog.Int64("match_id", report.MatchID),
			slog.String("error", err.Error()),
		)
	}
	if err := s.deps.Bus.StreamAppend(ctx, domain.StreamSettlements, payload); err != nil {
		s.logger.WarnContext(ctx, "match_service: append settlement stream failed",
			slog.Int64("match_id", report.MatchID),
			slog.String("error", err.Error()),
		)
	}
}

func (s *MatchService) audit(ctx context.Context, event string, detail map[string]any) {
	if err := s.stores.Audit.Log(ctx, event, detail); err != nil {
		s.logger.WarnContext(ctx, "match_service: audit log failed",
			slog.String("event", event),
			slog.String("error", err.Error()),
		)
	}
}

// RecentSettlements returns the newest count settlement reports, oldest
// first.
func (s *MatchService) RecentSettlements(ctx context.Context, count int) ([]domain.SettlementReport, error) {
	if s.deps.Bus == nil {
		return []domain.SettlementReport{}, nil
	}
	msgs, err := s.deps.Bus.StreamRead(ctx, domain.StreamSettlements, domain.StreamTail, count)
	if err != nil {
		return nil, fmt.Errorf("match_service: read settlements: %w", err)
	}
	out := make([]domain.SettlementReport, 0, len(msgs))
	for _, m := range msgs {
		var r domain.SettlementReport
		if err := json.Unmarshal(m.Payload, &r); err != nil {
			s.logger.WarnContext(ctx, "match_service: skip undecodable settlement",
				slog.String("id", m.ID),
				slog.String("error", err.Error()),
			)
			continue
		}
		out = append(out, r)
	}
	return out, nil
}
