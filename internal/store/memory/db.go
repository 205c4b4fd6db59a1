// Package memory implements the domain stores in process memory. It backs the
// "memory" database driver and the service tests.
package memory

import (
	"context"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/alanyoungcy/fantasybet/internal/domain"
)

type state struct {
	seq        int64
	users      map[int64]domain.User
	matches    map[int64]domain.Match
	bets       map[int64]domain.Bet
	parlays    map[int64]domain.Parlay
	parlayLegs map[int64][]int64
	txs        []domain.Transaction
	scores     []domain.FantasyScore
	audit      []domain.AuditEntry
}

func newState() *state {
	return &state{
		users:      make(map[int64]domain.User),
		matches:    make(map[int64]domain.Match),
		bets:       make(map[int64]domain.Bet),
		parlays:    make(map[int64]domain.Parlay),
		parlayLegs: make(map[int64][]int64),
	}
}

func (s *state) nextID() int64 {
	s.seq++
	return s.seq
}

// clone copies everything a transaction may modify. Records are values, so a
// shallow copy of each map is enough except for the leg index.
func (s *state) clone() *state {
	c := &state{
		seq:        s.seq,
		users:      maps.Clone(s.users),
		matches:    maps.Clone(s.matches),
		bets:       maps.Clone(s.bets),
		parlays:    maps.Clone(s.parlays),
		parlayLegs: make(map[int64][]int64, len(s.parlayLegs)),
		txs:        slices.Clone(s.txs),
		scores:     slices.Clone(s.scores),
		audit:      slices.Clone(s.audit),
	}
	for k, v := range s.parlayLegs {
		c.parlayLegs[k] = slices.Clone(v)
	}
	return c
}

// DB is an in-memory database. Plain store calls are individually atomic;
// InTx runs a function against a private copy that replaces the live state
// only when the function succeeds.
type DB struct {
	mu    sync.Mutex
	state *state
	now   func() time.Time
}

// New returns an empty DB.
func New() *DB {
	return &DB{state: newState(), now: time.Now}
}

// SetClock overrides the creation timestamp source.
func (db *DB) SetClock(now func() time.Time) {
	db.mu.Lock()
	db.now = now
	db.mu.Unlock()
}

// Stores returns stores that operate directly on the live state.
func (db *DB) Stores() domain.Stores {
	return storesFor(view{db: db})
}

// InTx implements domain.TxRunner. Transactions are serialized; fn must use
// the stores it is given rather than db.Stores.
func (db *DB) InTx(ctx context.Context, fn func(ctx context.Context, s domain.Stores) error) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	draft := db.state.clone()
	if err := fn(ctx, storesFor(view{db: db, st: draft})); err != nil {
		return err
	}
	db.state = draft
	return nil
}

// Close is a no-op so DB fits the app closer list.
func (db *DB) Close() error { return nil }

// view resolves which state a store call operates on.
type view struct {
	db *DB
	st *state
}

func (v view) with(fn func(st *state) error) error {
	if v.st != nil {
		return fn(v.st)
	}
	v.db.mu.Lock()
	defer v.db.mu.Unlock()
	return fn(v.db.state)
}

func (v view) now() time.Time {
	return v.db.now().UTC()
}

func storesFor(v view) domain.Stores {
	return domain.Stores{
		Users:        &UserStore{v},
		Matches:      &MatchStore{v},
		Bets:         &BetStore{v},
		Parlays:      &ParlayStore{v},
		Transactions: &TransactionStore{v},
		Scores:       &ScoreStore{v},
		Audit:        &AuditStore{v},
	}
}

func paginate[T any](items []T, opts domain.ListOpts) []T {
	if opts.Offset > 0 {
		if opts.Offset >= len(items) {
			return []T{}
		}
		items = items[opts.Offset:]
	}
	if opts.Limit > 0 && opts.Limit < len(items) {
		items = items[:opts.Limit]
	}
	return items
}

// newestFirst orders records by creation time, then id, descending.
func newestFirst[T any](items []T, created func(T) time.Time, id func(T) int64) {
	slices.SortFunc(items, func(a, b T) int {
		if c := created(b).Compare(created(a)); c != 0 {
			return c
		}
		return int(id(b) - id(a))
	})
}

var _ domain.TxRunner = (*DB)(nil)
