package memory

import (
	"context"
	"fmt"
	"slices"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/fantasybet/internal/domain"
)

// UserStore implements domain.UserStore.
type UserStore struct{ v view }

// Create inserts a user. Usernames are unique.
func (s *UserStore) Create(_ context.Context, u domain.User) (domain.User, error) {
	err := s.v.with(func(st *state) error {
		for _, existing := range st.users {
			if existing.Username == u.Username {
				return fmt.Errorf("memory: create user %s: %w", u.Username, domain.ErrAlreadyExists)
			}
		}
		u.ID = st.nextID()
		u.Coins = u.Coins.Round(2)
		u.CreatedAt = s.v.now()
		st.users[u.ID] = u
		return nil
	})
	return u, err
}

// GetByID returns a user by id.
func (s *UserStore) GetByID(_ context.Context, id int64) (domain.User, error) {
	var u domain.User
	err := s.v.with(func(st *state) error {
		var ok bool
		if u, ok = st.users[id]; !ok {
			return fmt.Errorf("memory: get user %d: %w", id, domain.ErrNotFound)
		}
		return nil
	})
	return u, err
}

// GetByUsername returns a user by username.
func (s *UserStore) GetByUsername(_ context.Context, username string) (domain.User, error) {
	var u domain.User
	err := s.v.with(func(st *state) error {
		for _, existing := range st.users {
			if existing.Username == username {
				u = existing
				return nil
			}
		}
		return fmt.Errorf("memory: get user %s: %w", username, domain.ErrNotFound)
	})
	return u, err
}

// List returns every user, richest first.
func (s *UserStore) List(_ context.Context) ([]domain.User, error) {
	var out []domain.User
	err := s.v.with(func(st *state) error {
		out = make([]domain.User, 0, len(st.users))
		for _, u := range st.users {
			out = append(out, u)
		}
		slices.SortFunc(out, func(a, b domain.User) int {
			if c := b.Coins.Cmp(a.Coins); c != 0 {
				return c
			}
			return int(a.ID - b.ID)
		})
		return nil
	})
	return out, err
}

// AdjustCoins adds delta to the user's balance.
func (s *UserStore) AdjustCoins(_ context.Context, id int64, delta decimal.Decimal) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := s.v.with(func(st *state) error {
		u, ok := st.users[id]
		if !ok {
			return fmt.Errorf("memory: adjust coins user %d: %w", id, domain.ErrNotFound)
		}
		next := u.Coins.Add(delta).Round(2)
		if next.IsNegative() {
			return fmt.Errorf("memory: adjust coins user %d: %w", id, domain.ErrInsufficientFunds)
		}
		u.Coins = next
		st.users[id] = u
		balance = next
		return nil
	})
	return balance, err
}

var _ domain.UserStore = (*UserStore)(nil)
