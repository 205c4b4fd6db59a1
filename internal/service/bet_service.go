package service

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/fantasybet/internal/domain"
	"github.com/alanyoungcy/fantasybet/internal/ledger"
	"github.com/alanyoungcy/fantasybet/internal/odds"
	"github.com/alanyoungcy/fantasybet/internal/stats"
)

// TableSource supplies the current league table.
type TableSource interface {
	Table(ctx context.Context) (*stats.Table, error)
}

// BettingRules holds placement policy taken from configuration.
type BettingRules struct {
	// LockoutAt stops placement and cancellation from this instant on. The
	// zero time disables the lockout.
	LockoutAt    time.Time
	MarginMarket bool
}

// PlaceBetRequest is a single bet as submitted by a user. Odds, when set, is
// the price the user saw and must still be the current quote.
type PlaceBetRequest struct {
	MatchID   int64
	Market    domain.MarketType
	Selection string
	Amount    decimal.Decimal
	Odds      *float64
}

// LegRequest is one leg of a parlay.
type LegRequest struct {
	MatchID   int64
	Market    domain.MarketType
	Selection string
	Odds      *float64
}

// PlaceParlayRequest is a parlay as submitted by a user.
type PlaceParlayRequest struct {
	Legs   []LegRequest
	Amount decimal.Decimal
}

// BetService places and cancels bets and parlays. Every balance change and
// the record it pays for commit in one store transaction.
type BetService struct {
	stores domain.Stores
	tx     domain.TxRunner
	table  TableSource
	rules  BettingRules
	logger *slog.Logger
	now    func() time.Time
}

// NewBetService creates a BetService.
func NewBetService(stores domain.Stores, tx domain.TxRunner, table TableSource, rules BettingRules, logger *slog.Logger) *BetService {
	return &BetService{
		stores: stores,
		tx:     tx,
		table:  table,
		rules:  rules,
		logger: logger,
		now:    time.Now,
	}
}

func (s *BetService) checkLockout() error {
	if !s.rules.LockoutAt.IsZero() && !s.now().Before(s.rules.LockoutAt) {
		return fmt.Errorf("%w: betting period is over", domain.ErrBettingClosed)
	}
	return nil
}

func positiveStake(amount decimal.Decimal) (decimal.Decimal, error) {
	amount = ledger.Money(amount)
	if !amount.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: amount must be positive", domain.ErrInvalidInput)
	}
	return amount, nil
}

// quote validates a selection against a match and prices it server-side.
func (s *BetService) quote(ctx context.Context, u domain.User, m domain.Match, market domain.MarketType, raw string, seen *float64) (domain.Selection, float64, error) {
	if !m.AcceptsBets(s.now()) {
		return domain.Selection{}, 0, fmt.Errorf("%w: match %d is not accepting bets", domain.ErrBettingClosed, m.ID)
	}
	if m.Involves(u.Username) {
		return domain.Selection{}, 0, domain.ErrSelfBet
	}

	sel, err := domain.ParseSelection(market, raw)
	if err != nil {
		return domain.Selection{}, 0, err
	}
	if sel.Market == domain.MarketMargin && !s.rules.MarginMarket {
		return domain.Selection{}, 0, fmt.Errorf("%w: margin market is not offered", domain.ErrInvalidInput)
	}

	table, err := s.table.Table(ctx)
	if err != nil {
		return domain.Selection{}, 0, fmt.Errorf("bet_service: load table: %w", err)
	}
	opts, err := odds.GenerateBetOptions(table, m.Team1, m.Team2, odds.Options{MarginMarket: s.rules.MarginMarket})
	if err != nil {
		return domain.Selection{}, 0, err
	}
	price, err := opts.Quote(sel)
	if err != nil {
		return domain.Selection{}, 0, err
	}
	if seen != nil && odds.Round2(*seen) != price {
		return domain.Selection{}, 0, fmt.Errorf("%w: quoted %.2f, now %.2f", domain.ErrOddsChanged, *seen, price)
	}
	return sel, price, nil
}

// PlaceBet debits the stake and records a single bet at the server quote.
func (s *BetService) PlaceBet(ctx context.Context, userID int64, req PlaceBetRequest) (domain.Bet, error) {
	if err := s.checkLockout(); err != nil {
		return domain.Bet{}, err
	}
	amount, err := positiveStake(req.Amount)
	if err != nil {
		return domain.Bet{}, err
	}

	var (
		user  domain.User
		match domain.Match
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		user, err = s.stores.Users.GetByID(gctx, userID)
		if err != nil {
			return fmt.Errorf("bet_service: get user %d: %w", userID, err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		match, err = s.stores.Matches.GetByID(gctx, req.MatchID)
		if err != nil {
			return fmt.Errorf("bet_service: get match %d: %w", req.MatchID, err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return domain.Bet{}, err
	}

	sel, price, err := s.quote(ctx, user, match, req.Market, req.Selection, req.Odds)
	if err != nil {
		return domain.Bet{}, err
	}

	var bet domain.Bet
	err = s.tx.InTx(ctx, func(ctx context.Context, st domain.Stores) error {
		m, err := st.Matches.GetForUpdate(ctx, match.ID)
		if err != nil {
			return fmt.Errorf("bet_service: lock match %d: %w", match.ID, err)
		}
		if !m.AcceptsBets(s.now()) {
			return fmt.Errorf("%w: match %d is not accepting bets", domain.ErrBettingClosed, m.ID)
		}
		desc := fmt.Sprintf("Bet on %s vs %s: %s @ %.2f", m.Team1, m.Team2, sel, price)
		if _, err := ledger.Debit(ctx, st, userID, amount, domain.TxBetPlaced, desc); err != nil {
			return err
		}
		bet, err = st.Bets.Create(ctx, domain.Bet{
			UserID:          userID,
			MatchID:         m.ID,
			Selection:       sel,
			Amount:          amount,
			Odds:            price,
			PotentialReturn: ledger.Payout(amount, price),
			Status:          domain.BetStatusPending,
		})
		if err != nil {
			return fmt.Errorf("bet_service: create bet: %w", err)
		}
		return nil
	})
	if err != nil {
		return domain.Bet{}, err
	}

	s.logger.InfoContext(ctx, "bet_service: bet placed",
		slog.Int64("bet_id", bet.ID),
		slog.Int64("user_id", userID),
		slog.Int64("match_id", bet.MatchID),
		slog.String("selection", sel.String()),
		slog.Float64("odds", price),
		slog.String("amount", amount.StringFixed(2)),
	)
	return bet, nil
}

type pricedLeg struct {
	match domain.Match
	sel   domain.Selection
	price float64
}

// PlaceParlay debits the stake and records a parlay with one zero-stake bet
// per leg.
func (s *BetService) PlaceParlay(ctx context.Context, userID int64, req PlaceParlayRequest) (domain.Parlay, error) {
	if err := s.checkLockout(); err != nil {
		return domain.Parlay{}, err
	}
	amount, err := positiveStake(req.Amount)
	if err != nil {
		return domain.Parlay{}, err
	}
	if n := len(req.Legs); n < odds.MinParlayLegs || n > odds.MaxParlayLegs {
		return domain.Parlay{}, fmt.Errorf("%w: a parlay needs %d to %d legs, got %d", domain.ErrInvalidInput, odds.MinParlayLegs, odds.MaxParlayLegs, n)
	}
	seen := make(map[int64]bool, len(req.Legs))
	for _, l := range req.Legs {
		if seen[l.MatchID] {
			return domain.Parlay{}, fmt.Errorf("%w: match %d appears in more than one leg", domain.ErrInvalidInput, l.MatchID)
		}
		seen[l.MatchID] = true
	}

	var user domain.User
	matches := make([]domain.Match, len(req.Legs))
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		user, err = s.stores.Users.GetByID(gctx, userID)
		if err != nil {
			return fmt.Errorf("bet_service: get user %d: %w", userID, err)
		}
		return nil
	})
	for i, l := range req.Legs {
		g.Go(func() error {
			m, err := s.stores.Matches.GetByID(gctx, l.MatchID)
			if err != nil {
				return fmt.Errorf("bet_service: get match %d: %w", l.MatchID, err)
			}
			matches[i] = m
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return domain.Parlay{}, err
	}

	legs := make([]pricedLeg, len(req.Legs))
	prices := make([]odds.Leg, len(req.Legs))
	for i, l := range req.Legs {
		sel, price, err := s.quote(ctx, user, matches[i], l.Market, l.Selection, l.Odds)
		if err != nil {
			return domain.Parlay{}, fmt.Errorf("leg %d: %w", i+1, err)
		}
		legs[i] = pricedLeg{match: matches[i], sel: sel, price: price}
		prices[i] = odds.Leg{Odds: price}
	}
	total, err := odds.PriceParlay(prices)
	if err != nil {
		return domain.Parlay{}, err
	}

	var parlay domain.Parlay
	// Lock in id order so concurrent parlays over the same matches cannot
	// deadlock.
	ids := make([]int64, len(legs))
	for i, l := range legs {
		ids[i] = l.match.ID
	}
	slices.Sort(ids)

	err = s.tx.InTx(ctx, func(ctx context.Context, st domain.Stores) error {
		for _, id := range ids {
			m, err := st.Matches.GetForUpdate(ctx, id)
			if err != nil {
				return fmt.Errorf("bet_service: lock match %d: %w", id, err)
			}
			if !m.AcceptsBets(s.now()) {
				return fmt.Errorf("%w: match %d is not accepting bets", domain.ErrBettingClosed, m.ID)
			}
		}

		desc := fmt.Sprintf("%d-leg parlay @ %.2f", len(legs), total)
		if _, err := ledger.Debit(ctx, st, userID, amount, domain.TxParlayPlaced, desc); err != nil {
			return err
		}
		p, err := st.Parlays.Create(ctx, domain.Parlay{
			UserID:          userID,
			Amount:          amount,
			TotalOdds:       total,
			PotentialReturn: ledger.Payout(amount, total),
			Status:          domain.BetStatusPending,
		})
		if err != nil {
			return fmt.Errorf("bet_service: create parlay: %w", err)
		}
		for _, l := range legs {
			b, err := st.Bets.Create(ctx, domain.Bet{
				UserID:          userID,
				MatchID:         l.match.ID,
				Selection:       l.sel,
				Amount:          decimal.Zero,
				Odds:            l.price,
				PotentialReturn: decimal.Zero,
				Status:          domain.BetStatusPending,
			})
			if err != nil {
				return fmt.Errorf("bet_service: create parlay leg: %w", err)
			}
			if err := st.Parlays.AddLeg(ctx, p.ID, b.ID); err != nil {
				return fmt.Errorf("bet_service: link leg %d to parlay %d: %w", b.ID, p.ID, err)
			}
		}
		parlay, err = st.Parlays.GetByID(ctx, p.ID)
		return err
	})
	if err != nil {
		return domain.Parlay{}, err
	}

	s.logger.InfoContext(ctx, "bet_service: parlay placed",
		slog.Int64("parlay_id", parlay.ID),
		slog.Int64("user_id", userID),
		slog.Int("legs", len(legs)),
		slog.Float64("total_odds", total),
		slog.String("amount", amount.StringFixed(2)),
	)
	return parlay, nil
}

// CancelBet refunds a pending single bet while its match still takes bets.
func (s *BetService) CancelBet(ctx context.Context, userID, betID int64) (domain.Bet, decimal.Decimal, error) {
	if err := s.checkLockout(); err != nil {
		return domain.Bet{}, decimal.Zero, err
	}

	var (
		bet     domain.Bet
		balance decimal.Decimal
	)
	err := s.tx.InTx(ctx, func(ctx context.Context, st domain.Stores) error {
		b, err := st.Bets.GetByID(ctx, betID)
		if err != nil {
			return fmt.Errorf("bet_service: get bet %d: %w", betID, err)
		}
		if b.UserID != userID {
			return fmt.Errorf("%w: bet %d belongs to another user", domain.ErrForbidden, betID)
		}
		if b.IsParlayLeg() {
			return fmt.Errorf("%w: bet %d is part of a parlay", domain.ErrInvalidInput, betID)
		}
		if b.Status != domain.BetStatusPending {
			return fmt.Errorf("bet_service: bet %d is %s: %w", betID, b.Status, domain.ErrConflict)
		}
		m, err := st.Matches.GetForUpdate(ctx, b.MatchID)
		if err != nil {
			return fmt.Errorf("bet_service: lock match %d: %w", b.MatchID, err)
		}
		if !m.AcceptsBets(s.now()) {
			return fmt.Errorf("%w: match %d is no longer open", domain.ErrBettingClosed, m.ID)
		}

		if err := st.Bets.UpdateStatus(ctx, betID, domain.BetStatusPending, domain.BetStatusCancelled); err != nil {
			return fmt.Errorf("bet_service: cancel bet %d: %w", betID, err)
		}
		desc := fmt.Sprintf("Cancelled bet #%d: %s @ %.2f", betID, b.Selection, b.Odds)
		balance, err = ledger.Credit(ctx, st, userID, b.Amount, domain.TxBetCancelled, desc)
		if err != nil {
			return err
		}
		bet, err = st.Bets.GetByID(ctx, betID)
		return err
	})
	if err != nil {
		return domain.Bet{}, decimal.Zero, err
	}

	s.logger.InfoContext(ctx, "bet_service: bet cancelled",
		slog.Int64("bet_id", betID),
		slog.Int64("user_id", userID),
		slog.String("refund", bet.Amount.StringFixed(2)),
	)
	return bet, balance, nil
}

// CancelParlay refunds a pending parlay none of whose legs has been decided.
func (s *BetService) CancelParlay(ctx context.Context, userID, parlayID int64) (domain.Parlay, decimal.Decimal, error) {
	if err := s.checkLockout(); err != nil {
		return domain.Parlay{}, decimal.Zero, err
	}

	var (
		parlay  domain.Parlay
		balance decimal.Decimal
	)
	err := s.tx.InTx(ctx, func(ctx context.Context, st domain.Stores) error {
		p, err := st.Parlays.GetByID(ctx, parlayID)
		if err != nil {
			return fmt.Errorf("bet_service: get parlay %d: %w", parlayID, err)
		}
		if p.UserID != userID {
			return fmt.Errorf("%w: parlay %d belongs to another user", domain.ErrForbidden, parlayID)
		}
		if p.Status != domain.BetStatusPending {
			return fmt.Errorf("bet_service: parlay %d is %s: %w", parlayID, p.Status, domain.ErrConflict)
		}
		for _, l := range p.Legs {
			if l.Status != domain.BetStatusPending {
				return fmt.Errorf("bet_service: parlay %d leg %d is %s: %w", parlayID, l.ID, l.Status, domain.ErrConflict)
			}
		}

		if err := st.Parlays.UpdateStatus(ctx, parlayID, domain.BetStatusPending, domain.BetStatusCancelled); err != nil {
			return fmt.Errorf("bet_service: cancel parlay %d: %w", parlayID, err)
		}
		for _, l := range p.Legs {
			if err := st.Bets.UpdateStatus(ctx, l.ID, domain.BetStatusPending, domain.BetStatusCancelled); err != nil {
				return fmt.Errorf("bet_service: cancel parlay leg %d: %w", l.ID, err)
			}
		}
		desc := fmt.Sprintf("Cancelled parlay #%d @ %.2f", parlayID, p.TotalOdds)
		balance, err = ledger.Credit(ctx, st, userID, p.Amount, domain.TxParlayCancelled, desc)
		if err != nil {
			return err
		}
		parlay, err = st.Parlays.GetByID(ctx, parlayID)
		return err
	})
	if err != nil {
		return domain.Parlay{}, decimal.Zero, err
	}

	s.logger.InfoContext(ctx, "bet_service: parlay cancelled",
		slog.Int64("parlay_id", parlayID),
		slog.Int64("user_id", userID),
		slog.String("refund", parlay.Amount.StringFixed(2)),
	)
	return parlay, balance, nil
}

// GetBet returns a bet visible to its owner or an administrator.
func (s *BetService) GetBet(ctx context.Context, userID int64, isAdmin bool, betID int64) (domain.Bet, error) {
	b, err := s.stores.Bets.GetByID(ctx, betID)
	if err != nil {
		return domain.Bet{}, fmt.Errorf("bet_service: get bet %d: %w", betID, err)
	}
	if b.UserID != userID && !isAdmin {
		return domain.Bet{}, fmt.Errorf("%w: bet %d belongs to another user", domain.ErrForbidden, betID)
	}
	return b, nil
}

// MyBets lists the user's single bets, newest first.
func (s *BetService) MyBets(ctx context.Context, userID int64, opts domain.ListOpts) ([]domain.Bet, error) {
	return s.stores.Bets.ListByUser(ctx, userID, opts)
}

// MyParlays lists the user's parlays with their legs, newest first.
func (s *BetService) MyParlays(ctx context.Context, userID int64, opts domain.ListOpts) ([]domain.Parlay, error) {
	return s.stores.Parlays.ListByUser(ctx, userID, opts)
}

// PublicFeed is every user's recent single bets and parlays.
type PublicFeed struct {
	Bets    []domain.Bet    `json:"bets"`
	Parlays []domain.Parlay `json:"parlays"`
}

// Public returns the public feed.
func (s *BetService) Public(ctx context.Context, opts domain.ListOpts) (PublicFeed, error) {
	var feed PublicFeed
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		feed.Bets, err = s.stores.Bets.ListPublic(gctx, opts)
		return err
	})
	g.Go(func() error {
		var err error
		feed.Parlays, err = s.stores.Parlays.ListPublic(gctx, opts)
		return err
	})
	if err := g.Wait(); err != nil {
		return PublicFeed{}, fmt.Errorf("bet_service: public feed: %w", err)
	}
	return feed, nil
}
