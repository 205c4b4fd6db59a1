package memory

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/alanyoungcy/fantasybet/internal/domain"
)

// TransactionStore implements domain.TransactionStore.
type TransactionStore struct{ v view }

func (s *TransactionStore) Append(_ context.Context, t domain.Transaction) (domain.Transaction, error) {
	err := s.v.with(func(st *state) error {
		if _, ok := st.users[t.UserID]; !ok {
			return fmt.Errorf("memory: append transaction user %d: %w", t.UserID, domain.ErrNotFound)
		}
		t.ID = st.nextID()
		t.Amount = t.Amount.Round(2)
		t.CreatedAt = s.v.now()
		st.txs = append(st.txs, t)
		return nil
	})
	return t, err
}

func (s *TransactionStore) ListByUser(_ context.Context, userID int64, opts domain.ListOpts) ([]domain.Transaction, error) {
	var out []domain.Transaction
	err := s.v.with(func(st *state) error {
		out = []domain.Transaction{}
		for _, t := range st.txs {
			if t.UserID != userID {
				continue
			}
			if opts.Since != nil && t.CreatedAt.Before(*opts.Since) {
				continue
			}
			if opts.Until != nil && !t.CreatedAt.Before(*opts.Until) {
				continue
			}
			out = append(out, t)
		}
		return nil
	})
	newestFirst(out,
		func(t domain.Transaction) time.Time { return t.CreatedAt },
		func(t domain.Transaction) int64 { return t.ID })
	return paginate(out, opts), err
}

// ListBefore returns transactions created before the cutoff, oldest first.
func (s *TransactionStore) ListBefore(_ context.Context, before time.Time) ([]domain.Transaction, error) {
	var out []domain.Transaction
	err := s.v.with(func(st *state) error {
		out = []domain.Transaction{}
		for _, t := range st.txs {
			if t.CreatedAt.Before(before) {
				out = append(out, t)
			}
		}
		return nil
	})
	slices.SortStableFunc(out, func(a, b domain.Transaction) int { return a.CreatedAt.Compare(b.CreatedAt) })
	return out, err
}

var _ domain.TransactionStore = (*TransactionStore)(nil)
