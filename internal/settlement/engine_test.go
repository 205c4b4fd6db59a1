package settlement_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/fantasybet/internal/domain"
	"github.com/alanyoungcy/fantasybet/internal/settlement"
	"github.com/alanyoungcy/fantasybet/internal/store/memory"
)

type fixture struct {
	db     *memory.DB
	s      domain.Stores
	engine *settlement.Engine
	user   domain.User
}

func newFixture(t *testing.T, rules settlement.Rules) *fixture {
	t.Helper()
	db := memory.New()
	s := db.Stores()
	u, err := s.Users.Create(context.Background(), domain.User{Username: "ana", Coins: decimal.NewFromInt(900)})
	require.NoError(t, err)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return &fixture{db: db, s: s, engine: settlement.NewEngine(s, db, rules, logger), user: u}
}

func (f *fixture) match(t *testing.T, a, b string) domain.Match {
	t.Helper()
	m, err := f.s.Matches.Create(context.Background(), domain.Match{
		Team1: a, Team2: b, Round: "R1",
		BettingClosesAt: time.Now().Add(time.Hour),
	})
	require.NoError(t, err)
	return m
}

func (f *fixture) bet(t *testing.T, m domain.Match, sel domain.Selection, stake int64, odds float64) domain.Bet {
	t.Helper()
	amount := decimal.NewFromInt(stake)
	b, err := f.s.Bets.Create(context.Background(), domain.Bet{
		UserID:          f.user.ID,
		MatchID:         m.ID,
		Selection:       sel,
		Amount:          amount,
		Odds:            odds,
		PotentialReturn: amount.Mul(decimal.NewFromFloat(odds)).Round(2),
	})
	require.NoError(t, err)
	return b
}

func (f *fixture) balance(t *testing.T) decimal.Decimal {
	t.Helper()
	u, err := f.s.Users.GetByID(context.Background(), f.user.ID)
	require.NoError(t, err)
	return u.Coins
}

func (f *fixture) txs(t *testing.T) []domain.Transaction {
	t.Helper()
	txs, err := f.s.Transactions.ListByUser(context.Background(), f.user.ID, domain.ListOpts{})
	require.NoError(t, err)
	return txs
}

func winner(team string) domain.Selection {
	return domain.Selection{Market: domain.MarketWinner, Team: team}
}

func ptr(n int) *int { return &n }

func TestSettleWinnerBet(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, settlement.Rules{})
	m := f.match(t, "A", "B")
	b := f.bet(t, m, winner("A"), 100, 1.64)
	loser := f.bet(t, m, winner("B"), 10, 2.27)

	report, err := f.engine.Settle(ctx, m.ID, domain.MatchResult{Score1: 90, Score2: 70})
	require.NoError(t, err)
	assert.Equal(t, "A", report.Outcome.Winner)
	assert.Equal(t, 20, report.Outcome.Margin)
	assert.Equal(t, 160, report.Outcome.Total)
	assert.Equal(t, 1, report.BetsWon)
	assert.Equal(t, 1, report.BetsLost)
	assert.Equal(t, "164", report.Paid.String())

	got, err := f.s.Bets.GetByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BetStatusWon, got.Status)
	got, err = f.s.Bets.GetByID(ctx, loser.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BetStatusLost, got.Status)
	require.NotNil(t, got.Result)
	assert.Equal(t, domain.BetResultLoss, *got.Result)

	assert.Equal(t, "1064", f.balance(t).String())
	txs := f.txs(t)
	require.Len(t, txs, 1)
	assert.Equal(t, domain.TxBetWon, txs[0].Type)
	assert.Equal(t, "164", txs[0].Amount.String())

	mm, err := f.s.Matches.GetByID(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.MatchStatusFinished, mm.Status)
	assert.NotNil(t, mm.ResultAt)
}

func TestSettleIsNotRepeatedAndResolveIsIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, settlement.Rules{})
	m := f.match(t, "A", "B")
	f.bet(t, m, winner("A"), 100, 1.64)

	_, err := f.engine.Settle(ctx, m.ID, domain.MatchResult{Score1: 90, Score2: 70})
	require.NoError(t, err)

	_, err = f.engine.Settle(ctx, m.ID, domain.MatchResult{Score1: 90, Score2: 70})
	assert.ErrorIs(t, err, domain.ErrConflict)

	report, err := f.engine.Resolve(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, report.BetsSkipped)
	assert.True(t, report.Paid.IsZero())

	assert.Equal(t, "1064", f.balance(t).String())
	assert.Len(t, f.txs(t), 1)
}

// flakyTx fails the status update of one bet inside every transaction.
type flakyTx struct {
	db     *memory.DB
	failID int64
}

type flakyBets struct {
	domain.BetStore
	failID int64
}

func (b flakyBets) UpdateStatus(ctx context.Context, id int64, from, to domain.BetStatus) error {
	if id == b.failID {
		return errors.New("connection reset")
	}
	return b.BetStore.UpdateStatus(ctx, id, from, to)
}

func (tx *flakyTx) InTx(ctx context.Context, fn func(ctx context.Context, s domain.Stores) error) error {
	return tx.db.InTx(ctx, func(ctx context.Context, s domain.Stores) error {
		s.Bets = flakyBets{BetStore: s.Bets, failID: tx.failID}
		return fn(ctx, s)
	})
}

func TestSettlePartialFailureIsFinishedByResolve(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, settlement.Rules{})
	m := f.match(t, "A", "B")
	ok := f.bet(t, m, winner("A"), 100, 1.64)
	stuck := f.bet(t, m, winner("A"), 10, 1.64)

	tx := &flakyTx{db: f.db, failID: stuck.ID}
	engine := settlement.NewEngine(f.s, tx, settlement.Rules{}, slog.New(slog.NewTextHandler(io.Discard, nil)))

	report, err := engine.Settle(ctx, m.ID, domain.MatchResult{Score1: 90, Score2: 70})
	require.Error(t, err)
	assert.True(t, report.Incomplete)
	assert.Equal(t, m.ID, report.MatchID)
	assert.Equal(t, 1, report.BetsWon)

	got, err := f.s.Bets.GetByID(ctx, ok.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BetStatusWon, got.Status)
	got, err = f.s.Bets.GetByID(ctx, stuck.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BetStatusPending, got.Status)

	tx.failID = 0
	report, err = engine.Resolve(ctx, m.ID)
	require.NoError(t, err)
	assert.False(t, report.Incomplete)
	assert.Equal(t, 1, report.BetsWon)
	assert.Equal(t, 1, report.BetsSkipped)
	assert.Equal(t, "1080.4", f.balance(t).String())
}

func TestResolveRequiresFinishedMatch(t *testing.T) {
	f := newFixture(t, settlement.Rules{})
	m := f.match(t, "A", "B")

	_, err := f.engine.Resolve(context.Background(), m.ID)
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestSettleUnknownMatch(t *testing.T) {
	f := newFixture(t, settlement.Rules{})
	_, err := f.engine.Settle(context.Background(), 999, domain.MatchResult{Score1: 1, Score2: 2})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSettleDrawHasNoWinner(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, settlement.Rules{})
	m := f.match(t, "A", "B")
	a := f.bet(t, m, winner("A"), 10, 1.9)
	b := f.bet(t, m, winner("B"), 10, 1.9)

	report, err := f.engine.Settle(ctx, m.ID, domain.MatchResult{Score1: 75, Score2: 75})
	require.NoError(t, err)
	assert.Empty(t, report.Outcome.Winner)
	assert.Equal(t, 2, report.BetsLost)

	for _, id := range []int64{a.ID, b.ID} {
		got, err := f.s.Bets.GetByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, domain.BetStatusLost, got.Status)
	}
	assert.Equal(t, "900", f.balance(t).String())
}

func TestOverUnderBoundary(t *testing.T) {
	over := domain.Selection{Market: domain.MarketOverUnder, Side: domain.SideOver, Line: 145}
	under := domain.Selection{Market: domain.MarketOverUnder, Side: domain.SideUnder, Line: 145}

	tests := []struct {
		name      string
		inclusive bool
		overWins  bool
	}{
		{"strict", false, false},
		{"inclusive", true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			f := newFixture(t, settlement.Rules{OverInclusive: tt.inclusive})
			m := f.match(t, "A", "B")
			o := f.bet(t, m, over, 10, 1.9)
			u := f.bet(t, m, under, 10, 1.9)

			_, err := f.engine.Settle(ctx, m.ID, domain.MatchResult{Score1: 70, Score2: 75})
			require.NoError(t, err)

			got, err := f.s.Bets.GetByID(ctx, o.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.overWins, got.Status == domain.BetStatusWon)

			got, err = f.s.Bets.GetByID(ctx, u.ID)
			require.NoError(t, err)
			assert.Equal(t, domain.BetStatusLost, got.Status)
		})
	}
}

func TestSettleCaptainBets(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, settlement.Rules{})
	m := f.match(t, "A", "B")
	capA := f.bet(t, m, domain.Selection{Market: domain.MarketCaptain, Team: "A"}, 10, 2.5)
	capB := f.bet(t, m, domain.Selection{Market: domain.MarketCaptain, Team: "B"}, 10, 2.5)

	_, err := f.engine.Settle(ctx, m.ID, domain.MatchResult{Score1: 80, Score2: 60})
	require.ErrorIs(t, err, domain.ErrInvalidInput)

	mm, err := f.s.Matches.GetByID(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.MatchStatusOpen, mm.Status, "rejected result must not be recorded")

	report, err := f.engine.Settle(ctx, m.ID, domain.MatchResult{Score1: 80, Score2: 60, Captain1: ptr(7), Captain2: ptr(6)})
	require.NoError(t, err)
	assert.Equal(t, 1, report.BetsWon)

	got, err := f.s.Bets.GetByID(ctx, capA.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BetStatusWon, got.Status)
	got, err = f.s.Bets.GetByID(ctx, capB.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BetStatusLost, got.Status)
	assert.Equal(t, "925", f.balance(t).String())
}

func TestSettleCaptainScoreOnlyForBackedTeam(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, settlement.Rules{})
	m := f.match(t, "A", "B")
	capA := f.bet(t, m, domain.Selection{Market: domain.MarketCaptain, Team: "A"}, 10, 2.5)

	_, err := f.engine.Settle(ctx, m.ID, domain.MatchResult{Score1: 80, Score2: 60, Captain2: ptr(9)})
	require.ErrorIs(t, err, domain.ErrInvalidInput)

	report, err := f.engine.Settle(ctx, m.ID, domain.MatchResult{Score1: 80, Score2: 60, Captain1: ptr(8)})
	require.NoError(t, err)
	assert.Equal(t, 1, report.BetsWon)

	got, err := f.s.Bets.GetByID(ctx, capA.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BetStatusWon, got.Status)
	assert.Equal(t, "925", f.balance(t).String())
}

func TestSettleMarginBets(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, settlement.Rules{})
	m := f.match(t, "A", "B")
	plus5 := f.bet(t, m, domain.Selection{Market: domain.MarketMargin, Team: "A", Threshold: 5}, 10, 2.95)
	plus20 := f.bet(t, m, domain.Selection{Market: domain.MarketMargin, Team: "A", Threshold: 20}, 10, 8.2)

	_, err := f.engine.Settle(ctx, m.ID, domain.MatchResult{Score1: 80, Score2: 70})
	require.NoError(t, err)

	got, err := f.s.Bets.GetByID(ctx, plus5.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BetStatusWon, got.Status)
	got, err = f.s.Bets.GetByID(ctx, plus20.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BetStatusLost, got.Status)
}

func (f *fixture) parlay(t *testing.T, stake int64, legs []domain.Bet) domain.Parlay {
	t.Helper()
	ctx := context.Background()
	total := 1.0
	for _, l := range legs {
		total *= l.Odds
	}
	amount := decimal.NewFromInt(stake)
	p, err := f.s.Parlays.Create(ctx, domain.Parlay{
		UserID:          f.user.ID,
		Amount:          amount,
		TotalOdds:       total,
		PotentialReturn: amount.Mul(decimal.NewFromFloat(total)).Round(2),
	})
	require.NoError(t, err)
	for _, l := range legs {
		require.NoError(t, f.s.Parlays.AddLeg(ctx, p.ID, l.ID))
	}
	return p
}

func TestParlayWithLosingLeg(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, settlement.Rules{})
	m1, m2, m3 := f.match(t, "A", "B"), f.match(t, "C", "D"), f.match(t, "E", "F")
	p := f.parlay(t, 50, []domain.Bet{
		f.bet(t, m1, winner("A"), 0, 1.5),
		f.bet(t, m2, winner("C"), 0, 2.0),
		f.bet(t, m3, winner("E"), 0, 1.8),
	})

	_, err := f.engine.Settle(ctx, m1.ID, domain.MatchResult{Score1: 80, Score2: 60})
	require.NoError(t, err)
	got, err := f.s.Parlays.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BetStatusPending, got.Status, "parlay waits for pending legs")

	report, err := f.engine.Settle(ctx, m2.ID, domain.MatchResult{Score1: 60, Score2: 80})
	require.NoError(t, err)
	assert.Equal(t, 1, report.ParlaysLost)

	_, err = f.engine.Settle(ctx, m3.ID, domain.MatchResult{Score1: 80, Score2: 60})
	require.NoError(t, err)

	got, err = f.s.Parlays.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BetStatusLost, got.Status)
	assert.Equal(t, "900", f.balance(t).String())
	assert.Empty(t, f.txs(t))
}

func TestParlayWinsOnceAllLegsWin(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, settlement.Rules{})
	m1, m2 := f.match(t, "A", "B"), f.match(t, "C", "D")
	p := f.parlay(t, 10, []domain.Bet{
		f.bet(t, m1, winner("A"), 0, 2.0),
		f.bet(t, m2, winner("C"), 0, 3.0),
	})

	_, err := f.engine.Settle(ctx, m1.ID, domain.MatchResult{Score1: 80, Score2: 60})
	require.NoError(t, err)
	report, err := f.engine.Settle(ctx, m2.ID, domain.MatchResult{Score1: 80, Score2: 60})
	require.NoError(t, err)
	assert.Equal(t, 1, report.ParlaysWon)
	assert.Equal(t, "60", report.Paid.String())

	got, err := f.s.Parlays.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BetStatusWon, got.Status)
	assert.Equal(t, "960", f.balance(t).String())

	txs := f.txs(t)
	require.Len(t, txs, 1)
	assert.Equal(t, domain.TxParlayWon, txs[0].Type)

	_, err = f.engine.Resolve(ctx, m2.ID)
	require.NoError(t, err)
	assert.Equal(t, "960", f.balance(t).String())
}
