package service

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/alanyoungcy/fantasybet/internal/auth"
	"github.com/alanyoungcy/fantasybet/internal/domain"
	"github.com/alanyoungcy/fantasybet/internal/odds"
	"github.com/alanyoungcy/fantasybet/internal/settlement"
	"github.com/alanyoungcy/fantasybet/internal/stats"
	"github.com/alanyoungcy/fantasybet/internal/store/memory"
)

type env struct {
	db       *memory.DB
	s        domain.Stores
	provider *stats.Provider
	bets     *BetService
	matches  *MatchService
	users    *UserService
	fantasy  *FantasyService
	bus      *fakeBus
	notifier *fakeNotifier
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newEnv(t *testing.T, rules BettingRules) *env {
	t.Helper()
	ctx := context.Background()
	db := memory.New()
	s := db.Stores()
	logger := discard()

	for _, sc := range []domain.FantasyScore{
		{Team: "Lions", Matchday: 1, Points: 80}, {Team: "Lions", Matchday: 2, Points: 80},
		{Team: "Bears", Matchday: 1, Points: 60}, {Team: "Bears", Matchday: 2, Points: 60},
		{Team: "Wolves", Matchday: 1, Points: 70}, {Team: "Wolves", Matchday: 2, Points: 70},
		{Team: "Eagles", Matchday: 1, Points: 75}, {Team: "Eagles", Matchday: 2, Points: 75},
	} {
		require.NoError(t, s.Scores.Upsert(ctx, sc))
	}

	provider := stats.NewProvider(s.Scores, nil, logger)
	engine := settlement.NewEngine(s, db, settlement.Rules{}, logger)
	bus := &fakeBus{}
	notifier := &fakeNotifier{}
	e := &env{
		db:       db,
		s:        s,
		provider: provider,
		bus:      bus,
		notifier: notifier,
		bets:     NewBetService(s, db, provider, rules, logger),
		matches: NewMatchService(s, provider, engine, rules.MarginMarket, MatchDeps{
			Locks:    newFakeLocks(),
			Bus:      bus,
			Notifier: notifier,
		}, logger),
		users: NewUserService(s, db, auth.NewTokens("0123456789abcdef", time.Hour), UserRules{
			StartingCoins:    decimal.NewFromInt(1000),
			CashOutThreshold: decimal.NewFromInt(10000),
			FantasyBudget:    10_000_000,
			BcryptCost:       bcrypt.MinCost,
			AdminUsernames:   []string{"root"},
		}, notifier, logger),
		fantasy: NewFantasyService(s, db, provider, logger),
	}
	return e
}

func (e *env) user(t *testing.T, name string, coins int64) domain.User {
	t.Helper()
	u, err := e.s.Users.Create(context.Background(), domain.User{Username: name, Coins: decimal.NewFromInt(coins)})
	require.NoError(t, err)
	return u
}

func (e *env) match(t *testing.T, a, b string) domain.Match {
	t.Helper()
	m, err := e.matches.Create(context.Background(), CreateMatchRequest{
		Team1: a, Team2: b, Round: "R1",
		BettingClosesAt: time.Now().Add(time.Hour),
	})
	require.NoError(t, err)
	return m
}

func (e *env) coins(t *testing.T, id int64) string {
	t.Helper()
	u, err := e.s.Users.GetByID(context.Background(), id)
	require.NoError(t, err)
	return u.Coins.String()
}

func (e *env) quote(t *testing.T, m domain.Match, sel domain.Selection) float64 {
	t.Helper()
	table, err := e.provider.Table(context.Background())
	require.NoError(t, err)
	opts, err := odds.GenerateBetOptions(table, m.Team1, m.Team2, odds.Options{MarginMarket: true})
	require.NoError(t, err)
	price, err := opts.Quote(sel)
	require.NoError(t, err)
	return price
}

type fakeBus struct {
	domain.SignalBus
	mu        sync.Mutex
	published [][]byte
	stream    []domain.StreamMessage
}

func (b *fakeBus) Publish(_ context.Context, _ string, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.published = append(b.published, payload)
	return nil
}

func (b *fakeBus) StreamAppend(_ context.Context, _ string, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stream = append(b.stream, domain.StreamMessage{ID: time.Now().String(), Payload: payload})
	return nil
}

func (b *fakeBus) StreamRead(_ context.Context, _ string, _ string, count int) ([]domain.StreamMessage, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.stream
	if count > 0 && len(out) > count {
		out = out[len(out)-count:]
	}
	return out, nil
}

type fakeLocks struct {
	mu   sync.Mutex
	held map[string]bool
}

func newFakeLocks() *fakeLocks { return &fakeLocks{held: make(map[string]bool)} }

func (l *fakeLocks) Acquire(_ context.Context, key string, _ time.Duration) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] {
		return nil, domain.ErrLockHeld
	}
	l.held[key] = true
	return func() {
		l.mu.Lock()
		delete(l.held, key)
		l.mu.Unlock()
	}, nil
}

type fakeNotifier struct {
	mu     sync.Mutex
	events []string
}

func (n *fakeNotifier) Notify(_ context.Context, event, _, _ string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
	return nil
}
