package memory

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/alanyoungcy/fantasybet/internal/domain"
)

// MatchStore implements domain.MatchStore.
type MatchStore struct{ v view }

// Create inserts a match. (team1, team2, round) is unique.
func (s *MatchStore) Create(_ context.Context, m domain.Match) (domain.Match, error) {
	err := s.v.with(func(st *state) error {
		for _, existing := range st.matches {
			if existing.Team1 == m.Team1 && existing.Team2 == m.Team2 && existing.Round == m.Round {
				return fmt.Errorf("memory: create match %s vs %s (%s): %w", m.Team1, m.Team2, m.Round, domain.ErrAlreadyExists)
			}
		}
		m.ID = st.nextID()
		if m.Status == "" {
			m.Status = domain.MatchStatusOpen
		}
		m.CreatedAt = s.v.now()
		st.matches[m.ID] = m
		return nil
	})
	return m, err
}

// GetByID returns a match by id.
func (s *MatchStore) GetByID(_ context.Context, id int64) (domain.Match, error) {
	var m domain.Match
	err := s.v.with(func(st *state) error {
		var ok bool
		if m, ok = st.matches[id]; !ok {
			return fmt.Errorf("memory: get match %d: %w", id, domain.ErrNotFound)
		}
		return nil
	})
	return m, err
}

// GetForUpdate is GetByID; transactions already run one at a time.
func (s *MatchStore) GetForUpdate(ctx context.Context, id int64) (domain.Match, error) {
	return s.GetByID(ctx, id)
}

// List returns every match, most recently closing first.
func (s *MatchStore) List(_ context.Context) ([]domain.Match, error) {
	return s.filter(func(domain.Match) bool { return true }, true)
}

// ListByStatus returns matches in status, soonest closing first.
func (s *MatchStore) ListByStatus(_ context.Context, status domain.MatchStatus) ([]domain.Match, error) {
	return s.filter(func(m domain.Match) bool { return m.Status == status }, false)
}

func (s *MatchStore) filter(keep func(domain.Match) bool, desc bool) ([]domain.Match, error) {
	var out []domain.Match
	err := s.v.with(func(st *state) error {
		out = []domain.Match{}
		for _, m := range st.matches {
			if keep(m) {
				out = append(out, m)
			}
		}
		slices.SortFunc(out, func(a, b domain.Match) int {
			c := a.BettingClosesAt.Compare(b.BettingClosesAt)
			if c == 0 {
				c = int(a.ID - b.ID)
			}
			if desc {
				return -c
			}
			return c
		})
		return nil
	})
	return out, err
}

// UpdateBettingClose moves the betting deadline of a match.
func (s *MatchStore) UpdateBettingClose(_ context.Context, id int64, at time.Time) error {
	return s.v.with(func(st *state) error {
		m, ok := st.matches[id]
		if !ok {
			return fmt.Errorf("memory: update match %d: %w", id, domain.ErrNotFound)
		}
		m.BettingClosesAt = at
		st.matches[id] = m
		return nil
	})
}

// SetResult records the final score and finishes the match.
func (s *MatchStore) SetResult(_ context.Context, id int64, res domain.MatchResult) error {
	return s.v.with(func(st *state) error {
		m, ok := st.matches[id]
		if !ok {
			return fmt.Errorf("memory: set result match %d: %w", id, domain.ErrNotFound)
		}
		if m.Status == domain.MatchStatusFinished {
			return fmt.Errorf("memory: set result match %d: %w", id, domain.ErrConflict)
		}
		s1, s2 := res.Score1, res.Score2
		at := res.At
		m.Score1, m.Score2 = &s1, &s2
		m.Captain1, m.Captain2 = res.Captain1, res.Captain2
		m.ResultAt = &at
		m.Status = domain.MatchStatusFinished
		st.matches[id] = m
		return nil
	})
}

// CloseExpired closes open matches whose deadline is not after now.
func (s *MatchStore) CloseExpired(_ context.Context, now time.Time) (int64, error) {
	var n int64
	err := s.v.with(func(st *state) error {
		for id, m := range st.matches {
			if m.Status == domain.MatchStatusOpen && !now.Before(m.BettingClosesAt) {
				m.Status = domain.MatchStatusClosed
				st.matches[id] = m
				n++
			}
		}
		return nil
	})
	return n, err
}

// Delete removes a match.
func (s *MatchStore) Delete(_ context.Context, id int64) error {
	return s.v.with(func(st *state) error {
		if _, ok := st.matches[id]; !ok {
			return fmt.Errorf("memory: delete match %d: %w", id, domain.ErrNotFound)
		}
		delete(st.matches, id)
		return nil
	})
}

var _ domain.MatchStore = (*MatchStore)(nil)
