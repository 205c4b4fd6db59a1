package memory

import (
	"context"
	"maps"
	"slices"

	"github.com/alanyoungcy/fantasybet/internal/domain"
)

// AuditStore implements domain.AuditStore.
type AuditStore struct{ v view }

func (s *AuditStore) Log(_ context.Context, event string, detail map[string]any) error {
	return s.v.with(func(st *state) error {
		st.audit = append(st.audit, domain.AuditEntry{
			ID:        st.nextID(),
			Event:     event,
			Detail:    maps.Clone(detail),
			CreatedAt: s.v.now(),
		})
		return nil
	})
}

// List returns entries newest first.
func (s *AuditStore) List(_ context.Context, opts domain.ListOpts) ([]domain.AuditEntry, error) {
	var out []domain.AuditEntry
	err := s.v.with(func(st *state) error {
		out = slices.Clone(st.audit)
		return nil
	})
	slices.Reverse(out)
	return paginate(out, opts), err
}

var _ domain.AuditStore = (*AuditStore)(nil)
