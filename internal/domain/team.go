package domain

import "time"

// TeamScores is a team's per-matchday points, ordered by matchday. Zero
// entries are unplayed or bye matchdays.
type TeamScores struct {
	Team   string    `json:"team"`
	Points []float64 `json:"points"`
}

// FantasyScore is the points a team scored on one matchday.
type FantasyScore struct {
	ID        int64     `json:"id"`
	Team      string    `json:"team"`
	Matchday  int       `json:"matchday"`
	Points    float64   `json:"points"`
	CreatedAt time.Time `json:"created_at"`
}

// ClassificationRow is one line of the points table.
type ClassificationRow struct {
	Team            string  `json:"team"`
	TotalPoints     float64 `json:"total_points"`
	MatchdaysPlayed int     `json:"matchdays_played"`
}
