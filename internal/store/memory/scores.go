package memory

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/alanyoungcy/fantasybet/internal/domain"
)

// ScoreStore implements domain.ScoreStore. Rows are kept in insertion order,
// which fixes the team order of TeamScores.
type ScoreStore struct{ v view }

// Upsert inserts or replaces the points of a team on a matchday.
func (s *ScoreStore) Upsert(_ context.Context, sc domain.FantasyScore) error {
	if strings.TrimSpace(sc.Team) == "" || sc.Matchday < 1 {
		return fmt.Errorf("memory: upsert score %q matchday %d: %w", sc.Team, sc.Matchday, domain.ErrInvalidInput)
	}
	return s.v.with(func(st *state) error {
		for i, existing := range st.scores {
			if existing.Team == sc.Team && existing.Matchday == sc.Matchday {
				st.scores[i].Points = sc.Points
				return nil
			}
		}
		sc.ID = st.nextID()
		sc.CreatedAt = s.v.now()
		st.scores = append(st.scores, sc)
		return nil
	})
}

func (s *ScoreStore) ListAll(_ context.Context) ([]domain.FantasyScore, error) {
	return s.sorted(func(domain.FantasyScore) bool { return true })
}

func (s *ScoreStore) ListByMatchday(_ context.Context, matchday int) ([]domain.FantasyScore, error) {
	return s.sorted(func(sc domain.FantasyScore) bool { return sc.Matchday == matchday })
}

func (s *ScoreStore) ListByTeam(_ context.Context, team string) ([]domain.FantasyScore, error) {
	return s.sorted(func(sc domain.FantasyScore) bool { return sc.Team == team })
}

// sorted returns matching rows by matchday, then team.
func (s *ScoreStore) sorted(keep func(domain.FantasyScore) bool) ([]domain.FantasyScore, error) {
	var out []domain.FantasyScore
	err := s.v.with(func(st *state) error {
		out = []domain.FantasyScore{}
		for _, sc := range st.scores {
			if keep(sc) {
				out = append(out, sc)
			}
		}
		return nil
	})
	slices.SortStableFunc(out, func(a, b domain.FantasyScore) int {
		if a.Matchday != b.Matchday {
			return a.Matchday - b.Matchday
		}
		return strings.Compare(a.Team, b.Team)
	})
	return out, err
}

func (s *ScoreStore) TeamScores(_ context.Context) ([]domain.TeamScores, error) {
	var out []domain.TeamScores
	err := s.v.with(func(st *state) error {
		maxDay := 0
		index := make(map[string]int)
		for _, sc := range st.scores {
			maxDay = max(maxDay, sc.Matchday)
			if _, ok := index[sc.Team]; !ok {
				index[sc.Team] = len(out)
				out = append(out, domain.TeamScores{Team: sc.Team})
			}
		}
		for i := range out {
			out[i].Points = make([]float64, maxDay)
		}
		for _, sc := range st.scores {
			out[index[sc.Team]].Points[sc.Matchday-1] = sc.Points
		}
		return nil
	})
	return out, err
}

// Classification totals points per team, highest first. Matchdays with zero
// points do not count as played.
func (s *ScoreStore) Classification(ctx context.Context) ([]domain.ClassificationRow, error) {
	teams, err := s.TeamScores(ctx)
	if err != nil {
		return nil, err
	}
	rows := make([]domain.ClassificationRow, 0, len(teams))
	for _, t := range teams {
		row := domain.ClassificationRow{Team: t.Team}
		for _, p := range t.Points {
			row.TotalPoints += p
			if p > 0 {
				row.MatchdaysPlayed++
			}
		}
		rows = append(rows, row)
	}
	slices.SortStableFunc(rows, func(a, b domain.ClassificationRow) int {
		switch {
		case a.TotalPoints > b.TotalPoints:
			return -1
		case a.TotalPoints < b.TotalPoints:
			return 1
		}
		return 0
	})
	return rows, nil
}

var _ domain.ScoreStore = (*ScoreStore)(nil)
