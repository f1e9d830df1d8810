package updater

import (
	"context"
	"fmt"

	"github.com/alfredjeanlab/adverthide/internal/store"
)

// Applier moves content items from one access group to another.
type Applier struct {
	store store.Store
}

func NewApplier(s store.Store) *Applier {
	return &Applier{store: s}
}

// Apply sets access to `to` on exactly ids, skipping any item whose access
// is no longer `from`. It returns the ids actually changed. An empty id
// list touches nothing.
func (a *Applier) Apply(ctx context.Context, ids []int64, from, to int64) ([]int64, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	changed, err := a.store.UpdateAccess(ctx, ids, from, to)
	if err != nil {
		return nil, fmt.Errorf("update access: %w", err)
	}
	return changed, nil
}
