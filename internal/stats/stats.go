// Package stats derives per-team statistics and league standings from
// matchday fantasy points.
package stats

import (
	"math"
	"sort"

	"github.com/alanyoungcy/fantasybet/internal/domain"
)

// Stats summarises a team's played matchdays. Non-positive scores are
// unplayed or bye matchdays and are ignored.
type Stats struct {
	Average     float64 `json:"average"`
	Total       float64 `json:"total"`
	Max         float64 `json:"max"`
	Min         float64 `json:"min"`
	GamesPlayed int     `json:"gamesPlayed"`
}

// Standing is a team's row in the league table.
type Standing struct {
	Team     string `json:"team"`
	Position int    `json:"position"`
	Stats
}

// Compute derives stats from a sequence of matchday points. A team without a
// single positive score gets zeroed stats.
func Compute(points []float64) Stats {
	var s Stats
	for _, p := range points {
		if p <= 0 {
			continue
		}
		if s.GamesPlayed == 0 || p > s.Max {
			s.Max = p
		}
		if s.GamesPlayed == 0 || p < s.Min {
			s.Min = p
		}
		s.Total += p
		s.GamesPlayed++
	}
	if s.GamesPlayed > 0 {
		s.Average = round2(s.Total / float64(s.GamesPlayed))
	}
	return s
}

// Table is an immutable snapshot of every known team's stats and position.
type Table struct {
	order     []string
	stats     map[string]Stats
	standings []Standing
	positions map[string]int
}

// NewTable builds a table from score rows. Input order breaks ties in the
// standings.
func NewTable(rows []domain.TeamScores) *Table {
	t := &Table{
		order:     make([]string, 0, len(rows)),
		stats:     make(map[string]Stats, len(rows)),
		positions: make(map[string]int, len(rows)),
	}
	for _, r := range rows {
		if _, dup := t.stats[r.Team]; dup {
			continue
		}
		t.order = append(t.order, r.Team)
		t.stats[r.Team] = Compute(r.Points)
	}

	t.standings = make([]Standing, 0, len(t.order))
	for _, team := range t.order {
		t.standings = append(t.standings, Standing{Team: team, Stats: t.stats[team]})
	}
	sort.SliceStable(t.standings, func(i, j int) bool {
		return t.standings[i].Total > t.standings[j].Total
	})
	for i := range t.standings {
		t.standings[i].Position = i + 1
		t.positions[t.standings[i].Team] = i + 1
	}
	return t
}

// StatsFor returns a team's stats. ok is false for an unknown team.
func (t *Table) StatsFor(team string) (Stats, bool) {
	s, ok := t.stats[team]
	return s, ok
}

// Position returns a team's 1-based league position. ok is false for an
// unknown team.
func (t *Table) Position(team string) (int, bool) {
	p, ok := t.positions[team]
	return p, ok
}

// Standings returns the league table sorted by total points, highest first.
func (t *Table) Standings() []Standing {
	out := make([]Standing, len(t.standings))
	copy(out, t.standings)
	return out
}

// Teams lists teams that have played at least one matchday, in input order.
func (t *Table) Teams() []string {
	out := make([]string, 0, len(t.order))
	for _, team := range t.order {
		if t.stats[team].GamesPlayed > 0 {
			out = append(out, team)
		}
	}
	return out
}

// Known reports whether the table has any row for team.
func (t *Table) Known(team string) bool {
	_, ok := t.stats[team]
	return ok
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
