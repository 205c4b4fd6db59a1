package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// ListOpts provides pagination and filtering for list queries.
type ListOpts struct {
	Limit  int
	Offset int
	Since  *time.Time
	Until  *time.Time
}

// UserStore persists accounts and balances.
type UserStore interface {
	Create(ctx context.Context, u User) (User, error)
	GetByID(ctx context.Context, id int64) (User, error)
	GetByUsername(ctx context.Context, username string) (User, error)
	// List returns every user ordered by coins, richest first.
	List(ctx context.Context) ([]User, error)
	// AdjustCoins adds delta to the balance and returns the new balance. It
	// returns ErrInsufficientFunds when the result would be negative.
	AdjustCoins(ctx context.Context, id int64, delta decimal.Decimal) (decimal.Decimal, error)
}

// MatchStore persists matches.
type MatchStore interface {
	Create(ctx context.Context, m Match) (Match, error)
	GetByID(ctx context.Context, id int64) (Match, error)
	// GetForUpdate reads a match and, inside a transaction, holds its row
	// until commit. Settlement of the match waits for the holder.
	GetForUpdate(ctx context.Context, id int64) (Match, error)
	List(ctx context.Context) ([]Match, error)
	ListByStatus(ctx context.Context, status MatchStatus) ([]Match, error)
	UpdateBettingClose(ctx context.Context, id int64, at time.Time) error
	// SetResult writes the final score and marks the match finished. It
	// returns ErrConflict when the match is already finished.
	SetResult(ctx context.Context, id int64, res MatchResult) error
	// CloseExpired moves open matches whose betting window ended before now
	// to closed and returns how many changed.
	CloseExpired(ctx context.Context, now time.Time) (int64, error)
	Delete(ctx context.Context, id int64) error
}

// BetStore persists single bets and parlay legs.
type BetStore interface {
	Create(ctx context.Context, b Bet) (Bet, error)
	GetByID(ctx context.Context, id int64) (Bet, error)
	ListByMatch(ctx context.Context, matchID int64) ([]Bet, error)
	// ListByUser returns the user's staked bets, newest first. Parlay legs
	// are excluded.
	ListByUser(ctx context.Context, userID int64, opts ListOpts) ([]Bet, error)
	// ListPublic returns staked bets of every user, newest first.
	ListPublic(ctx context.Context, opts ListOpts) ([]Bet, error)
	// ListSettledBefore returns resolved bets created before the cutoff.
	ListSettledBefore(ctx context.Context, before time.Time) ([]Bet, error)
	// UpdateStatus moves a bet from one status to another. It returns
	// ErrConflict when the bet is no longer in status from.
	UpdateStatus(ctx context.Context, id int64, from, to BetStatus) error
	CountByMatch(ctx context.Context, matchID int64) (int64, error)
}

// ParlayStore persists parlays and their leg links.
type ParlayStore interface {
	Create(ctx context.Context, p Parlay) (Parlay, error)
	AddLeg(ctx context.Context, parlayID, betID int64) error
	GetByID(ctx context.Context, id int64) (Parlay, error)
	Legs(ctx context.Context, parlayID int64) ([]Bet, error)
	ListByUser(ctx context.Context, userID int64, opts ListOpts) ([]Parlay, error)
	ListPublic(ctx context.Context, opts ListOpts) ([]Parlay, error)
	ListPending(ctx context.Context) ([]Parlay, error)
	// UpdateStatus behaves like BetStore.UpdateStatus.
	UpdateStatus(ctx context.Context, id int64, from, to BetStatus) error
}

// TransactionStore persists the append-only coin ledger.
type TransactionStore interface {
	Append(ctx context.Context, t Transaction) (Transaction, error)
	ListByUser(ctx context.Context, userID int64, opts ListOpts) ([]Transaction, error)
	ListBefore(ctx context.Context, before time.Time) ([]Transaction, error)
}

// ScoreStore persists fantasy points per team and matchday.
type ScoreStore interface {
	Upsert(ctx context.Context, s FantasyScore) error
	ListAll(ctx context.Context) ([]FantasyScore, error)
	ListByMatchday(ctx context.Context, matchday int) ([]FantasyScore, error)
	ListByTeam(ctx context.Context, team string) ([]FantasyScore, error)
	// TeamScores groups points per team, teams in first-insertion order and
	// points in matchday order.
	TeamScores(ctx context.Context) ([]TeamScores, error)
	Classification(ctx context.Context) ([]ClassificationRow, error)
}

// AuditEntry is a single audit log row.
type AuditEntry struct {
	ID        int64          `json:"id"`
	Event     string         `json:"event"`
	Detail    map[string]any `json:"detail"`
	CreatedAt time.Time      `json:"created_at"`
}

// AuditStore persists an append-only audit log.
type AuditStore interface {
	Log(ctx context.Context, event string, detail map[string]any) error
	List(ctx context.Context, opts ListOpts) ([]AuditEntry, error)
}

// Stores groups every store bound to the same connection or transaction.
type Stores struct {
	Users        UserStore
	Matches      MatchStore
	Bets         BetStore
	Parlays      ParlayStore
	Transactions TransactionStore
	Scores       ScoreStore
	Audit        AuditStore
}

// TxRunner runs fn against stores bound to a single transaction. The
// transaction commits when fn returns nil and rolls back otherwise.
type TxRunner interface {
	InTx(ctx context.Context, fn func(ctx context.Context, s Stores) error) error
}
