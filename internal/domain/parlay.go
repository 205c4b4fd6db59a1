package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Parlay bundles 2 to 4 zero-stake leg bets under one stake. It pays only
// when every leg wins.
type Parlay struct {
	ID              int64           `json:"id"`
	UserID          int64           `json:"user_id"`
	Amount          decimal.Decimal `json:"amount"`
	TotalOdds       float64         `json:"total_odds"`
	PotentialReturn decimal.Decimal `json:"potential_return"`
	Status          BetStatus       `json:"status"`
	Result          *BetResult      `json:"result"`
	CreatedAt       time.Time       `json:"created_at"`
	Legs            []Bet           `json:"bets,omitempty"`
}

// ParlayVerdict folds the leg statuses of a parlay: lost as soon as any leg
// lost, won once every leg won, pending otherwise.
func ParlayVerdict(legs []Bet) BetStatus {
	if len(legs) == 0 {
		return BetStatusPending
	}
	allWon := true
	for _, l := range legs {
		switch l.Status {
		case BetStatusLost:
			return BetStatusLost
		case BetStatusWon:
		default:
			allWon = false
		}
	}
	if allWon {
		return BetStatusWon
	}
	return BetStatusPending
}
