package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/alanyoungcy/fantasybet/internal/domain"
)

// ParlayStore implements domain.ParlayStore. Returned parlays carry their
// legs.
type ParlayStore struct{ v view }

func (s *ParlayStore) Create(_ context.Context, p domain.Parlay) (domain.Parlay, error) {
	err := s.v.with(func(st *state) error {
		if _, ok := st.users[p.UserID]; !ok {
			return fmt.Errorf("memory: create parlay user %d: %w", p.UserID, domain.ErrNotFound)
		}
		p.ID = st.nextID()
		if p.Status == "" {
			p.Status = domain.BetStatusPending
		}
		p.Amount = p.Amount.Round(2)
		p.PotentialReturn = p.PotentialReturn.Round(2)
		p.CreatedAt = s.v.now()
		p.Legs = nil
		st.parlays[p.ID] = p
		return nil
	})
	return p, err
}

// AddLeg links a bet to a parlay.
func (s *ParlayStore) AddLeg(_ context.Context, parlayID, betID int64) error {
	return s.v.with(func(st *state) error {
		if _, ok := st.parlays[parlayID]; !ok {
			return fmt.Errorf("memory: add leg parlay %d: %w", parlayID, domain.ErrNotFound)
		}
		b, ok := st.bets[betID]
		if !ok {
			return fmt.Errorf("memory: add leg bet %d: %w", betID, domain.ErrNotFound)
		}
		if b.ParlayID != nil {
			return fmt.Errorf("memory: add leg bet %d: %w", betID, domain.ErrAlreadyExists)
		}
		pid := parlayID
		b.ParlayID = &pid
		st.bets[betID] = b
		st.parlayLegs[parlayID] = append(st.parlayLegs[parlayID], betID)
		return nil
	})
}

func (s *ParlayStore) GetByID(_ context.Context, id int64) (domain.Parlay, error) {
	var p domain.Parlay
	err := s.v.with(func(st *state) error {
		var ok bool
		if p, ok = st.parlays[id]; !ok {
			return fmt.Errorf("memory: get parlay %d: %w", id, domain.ErrNotFound)
		}
		p.Legs = legsOf(st, id)
		return nil
	})
	return p, err
}

func (s *ParlayStore) Legs(_ context.Context, parlayID int64) ([]domain.Bet, error) {
	var legs []domain.Bet
	err := s.v.with(func(st *state) error {
		if _, ok := st.parlays[parlayID]; !ok {
			return fmt.Errorf("memory: parlay legs %d: %w", parlayID, domain.ErrNotFound)
		}
		legs = legsOf(st, parlayID)
		return nil
	})
	return legs, err
}

func (s *ParlayStore) ListByUser(_ context.Context, userID int64, opts domain.ListOpts) ([]domain.Parlay, error) {
	out, err := s.collect(func(p domain.Parlay) bool { return p.UserID == userID })
	return paginate(out, opts), err
}

func (s *ParlayStore) ListPublic(_ context.Context, opts domain.ListOpts) ([]domain.Parlay, error) {
	out, err := s.collect(func(domain.Parlay) bool { return true })
	return paginate(out, opts), err
}

func (s *ParlayStore) ListPending(_ context.Context) ([]domain.Parlay, error) {
	return s.collect(func(p domain.Parlay) bool { return p.Status == domain.BetStatusPending })
}

func (s *ParlayStore) collect(keep func(domain.Parlay) bool) ([]domain.Parlay, error) {
	var out []domain.Parlay
	err := s.v.with(func(st *state) error {
		out = []domain.Parlay{}
		for id, p := range st.parlays {
			if keep(p) {
				p.Legs = legsOf(st, id)
				out = append(out, p)
			}
		}
		return nil
	})
	newestFirst(out,
		func(p domain.Parlay) time.Time { return p.CreatedAt },
		func(p domain.Parlay) int64 { return p.ID })
	return out, err
}

func (s *ParlayStore) UpdateStatus(_ context.Context, id int64, from, to domain.BetStatus) error {
	return s.v.with(func(st *state) error {
		p, ok := st.parlays[id]
		if !ok {
			return fmt.Errorf("memory: update parlay %d: %w", id, domain.ErrNotFound)
		}
		if p.Status != from {
			return fmt.Errorf("memory: update parlay %d from %s (is %s): %w", id, from, p.Status, domain.ErrConflict)
		}
		p.Status = to
		p.Result = domain.ResultFor(to)
		st.parlays[id] = p
		return nil
	})
}

func legsOf(st *state, parlayID int64) []domain.Bet {
	ids := st.parlayLegs[parlayID]
	legs := make([]domain.Bet, 0, len(ids))
	for _, id := range ids {
		legs = append(legs, st.bets[id])
	}
	return legs
}

var _ domain.ParlayStore = (*ParlayStore)(nil)
