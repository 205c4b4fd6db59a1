package domain

import "time"

// MatchStatus tracks the match lifecycle.
type MatchStatus string

const (
	MatchStatusOpen     MatchStatus = "open"
	MatchStatusClosed   MatchStatus = "closed"
	MatchStatusFinished MatchStatus = "finished"
)

// Match is a head-to-head fixture between two fantasy teams in one round.
type Match struct {
	ID              int64       `json:"id"`
	Team1           string      `json:"team1"`
	Team2           string      `json:"team2"`
	Round           string      `json:"round"`
	Status          MatchStatus `json:"status"`
	Score1          *int        `json:"score_team1"`
	Score2          *int        `json:"score_team2"`
	Captain1        *int        `json:"captain_score_team1,omitempty"`
	Captain2        *int        `json:"captain_score_team2,omitempty"`
	BettingClosesAt time.Time   `json:"betting_closes_at"`
	ResultAt        *time.Time  `json:"result_date"`
	CreatedAt       time.Time   `json:"created_at"`
}

// Involves reports whether team plays in the match.
func (m Match) Involves(team string) bool {
	return m.Team1 == team || m.Team2 == team
}

// AcceptsBets reports whether the match is open and its betting window has
// not passed at now.
func (m Match) AcceptsBets(now time.Time) bool {
	return m.Status == MatchStatusOpen && now.Before(m.BettingClosesAt)
}

// MatchResult is the final score submitted by an administrator. A captain
// score is only required for a team with pending captain bets.
type MatchResult struct {
	Score1   int
	Score2   int
	Captain1 *int
	Captain2 *int
	At       time.Time
}

// Outcome holds the facts derived from a final score. Winner is empty on a
// draw.
type Outcome struct {
	Winner string `json:"winner"`
	Margin int    `json:"margin"`
	Total  int    `json:"total"`
}

// OutcomeOf derives the outcome of a finished match.
func OutcomeOf(m Match, score1, score2 int) Outcome {
	o := Outcome{Total: score1 + score2}
	switch {
	case score1 > score2:
		o.Winner = m.Team1
		o.Margin = score1 - score2
	case score2 > score1:
		o.Winner = m.Team2
		o.Margin = score2 - score1
	}
	return o
}
