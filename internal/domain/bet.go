package domain

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// BetStatus tracks the bet lifecycle. Every status except pending is terminal.
type BetStatus string

const (
	BetStatusPending   BetStatus = "pending"
	BetStatusWon       BetStatus = "won"
	BetStatusLost      BetStatus = "lost"
	BetStatusCancelled BetStatus = "cancelled"
)

// BetResult is the resolution tag recorded next to a won or lost status.
type BetResult string

const (
	BetResultWin  BetResult = "win"
	BetResultLoss BetResult = "loss"
)

// ResultFor returns the resolution tag matching a terminal won/lost status.
func ResultFor(s BetStatus) *BetResult {
	var r BetResult
	switch s {
	case BetStatusWon:
		r = BetResultWin
	case BetStatusLost:
		r = BetResultLoss
	default:
		return nil
	}
	return &r
}

// Bet is a single wager on one match. A bet with a zero amount is a leg of a
// parlay; the parlay holds the stake.
type Bet struct {
	ID              int64           `json:"id"`
	UserID          int64           `json:"user_id"`
	MatchID         int64           `json:"match_id"`
	Selection       Selection       `json:"selection"`
	Amount          decimal.Decimal `json:"amount"`
	Odds            float64         `json:"odds"`
	PotentialReturn decimal.Decimal `json:"potential_return"`
	Status          BetStatus       `json:"status"`
	Result          *BetResult      `json:"result"`
	ParlayID        *int64          `json:"parlay_id,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}

// Market returns the bet's market type.
func (b Bet) Market() MarketType {
	return b.Selection.Market
}

// IsParlayLeg reports whether the bet is a zero-stake member of a parlay.
func (b Bet) IsParlayLeg() bool {
	return b.Amount.IsZero()
}

// MarshalJSON adds the market as bet_type next to the selection wire form.
func (b Bet) MarshalJSON() ([]byte, error) {
	type plain Bet
	return json.Marshal(struct {
		plain
		BetType MarketType `json:"bet_type"`
	}{plain(b), b.Selection.Market})
}
