package memory

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/alanyoungcy/fantasybet/internal/domain"
)

// BetStore implements domain.BetStore.
type BetStore struct{ v view }

func (s *BetStore) Create(_ context.Context, b domain.Bet) (domain.Bet, error) {
	err := s.v.with(func(st *state) error {
		if _, ok := st.users[b.UserID]; !ok {
			return fmt.Errorf("memory: create bet user %d: %w", b.UserID, domain.ErrNotFound)
		}
		if _, ok := st.matches[b.MatchID]; !ok {
			return fmt.Errorf("memory: create bet match %d: %w", b.MatchID, domain.ErrNotFound)
		}
		b.ID = st.nextID()
		if b.Status == "" {
			b.Status = domain.BetStatusPending
		}
		b.Amount = b.Amount.Round(2)
		b.PotentialReturn = b.PotentialReturn.Round(2)
		b.CreatedAt = s.v.now()
		st.bets[b.ID] = b
		return nil
	})
	return b, err
}

func (s *BetStore) GetByID(_ context.Context, id int64) (domain.Bet, error) {
	var b domain.Bet
	err := s.v.with(func(st *state) error {
		var ok bool
		if b, ok = st.bets[id]; !ok {
			return fmt.Errorf("memory: get bet %d: %w", id, domain.ErrNotFound)
		}
		return nil
	})
	return b, err
}

// ListByMatch returns every bet on a match, legs included, oldest first.
func (s *BetStore) ListByMatch(_ context.Context, matchID int64) ([]domain.Bet, error) {
	out, err := s.collect(func(b domain.Bet) bool { return b.MatchID == matchID })
	slices.Reverse(out)
	return out, err
}

func (s *BetStore) ListByUser(_ context.Context, userID int64, opts domain.ListOpts) ([]domain.Bet, error) {
	out, err := s.collect(func(b domain.Bet) bool { return b.UserID == userID && !b.IsParlayLeg() })
	return paginate(out, opts), err
}

func (s *BetStore) ListPublic(_ context.Context, opts domain.ListOpts) ([]domain.Bet, error) {
	out, err := s.collect(func(b domain.Bet) bool { return !b.IsParlayLeg() })
	return paginate(out, opts), err
}

func (s *BetStore) ListSettledBefore(_ context.Context, before time.Time) ([]domain.Bet, error) {
	out, err := s.collect(func(b domain.Bet) bool {
		return b.Status != domain.BetStatusPending && b.CreatedAt.Before(before)
	})
	slices.Reverse(out)
	return out, err
}

// collect returns matching bets newest first.
func (s *BetStore) collect(keep func(domain.Bet) bool) ([]domain.Bet, error) {
	var out []domain.Bet
	err := s.v.with(func(st *state) error {
		out = []domain.Bet{}
		for _, b := range st.bets {
			if keep(b) {
				out = append(out, b)
			}
		}
		return nil
	})
	newestFirst(out,
		func(b domain.Bet) time.Time { return b.CreatedAt },
		func(b domain.Bet) int64 { return b.ID })
	return out, err
}

func (s *BetStore) UpdateStatus(_ context.Context, id int64, from, to domain.BetStatus) error {
	return s.v.with(func(st *state) error {
		b, ok := st.bets[id]
		if !ok {
			return fmt.Errorf("memory: update bet %d: %w", id, domain.ErrNotFound)
		}
		if b.Status != from {
			return fmt.Errorf("memory: update bet %d from %s (is %s): %w", id, from, b.Status, domain.ErrConflict)
		}
		b.Status = to
		b.Result = domain.ResultFor(to)
		st.bets[id] = b
		return nil
	})
}

func (s *BetStore) CountByMatch(_ context.Context, matchID int64) (int64, error) {
	var n int64
	err := s.v.with(func(st *state) error {
		for _, b := range st.bets {
			if b.MatchID == matchID {
				n++
			}
		}
		return nil
	})
	return n, err
}

var _ domain.BetStore = (*BetStore)(nil)
