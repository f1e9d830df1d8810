package updater

import (
	"context"
	"fmt"

	"github.com/alfredjeanlab/adverthide/internal/model"
	"github.com/alfredjeanlab/adverthide/internal/store"
)

// Selector picks the content items due for demotion.
type Selector struct {
	store store.Store
}

func NewSelector(s store.Store) *Selector {
	return &Selector{store: s}
}

// Select returns candidate ids in selection order, never more than q.Limit.
func (s *Selector) Select(ctx context.Context, q model.CandidateQuery) ([]int64, error) {
	cs, err := s.store.SelectCandidates(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("select candidates: %w", err)
	}
	if len(cs) > q.Limit {
		cs = cs[:q.Limit]
	}
	return model.CandidateIDs(cs), nil
}
