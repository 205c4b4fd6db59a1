package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Event bus channel and stream names.
const (
	ChannelSettlements = "fantasybet:settlements"
	StreamSettlements  = "fantasybet:settlements:log"
)

// SettlementReport summarises one settlement pass over a match.
type SettlementReport struct {
	MatchID     int64           `json:"match_id"`
	Team1       string          `json:"team1"`
	Team2       string          `json:"team2"`
	Score1      int             `json:"score_team1"`
	Score2      int             `json:"score_team2"`
	Outcome     Outcome         `json:"outcome"`
	BetsWon     int             `json:"bets_won"`
	BetsLost    int             `json:"bets_lost"`
	BetsSkipped int             `json:"bets_skipped"`
	ParlaysWon  int             `json:"parlays_won"`
	ParlaysLost int             `json:"parlays_lost"`
	Paid        decimal.Decimal `json:"paid"`
	SettledAt   time.Time       `json:"settled_at"`

	// Incomplete marks a run that left bets or parlays pending. The result
	// is recorded; resolving the match again finishes the job.
	Incomplete bool `json:"incomplete,omitempty"`
}
