package store

import (
	"context"

	"github.com/alfredjeanlab/adverthide/internal/model"
)

// Store defines the persistence interface over the host platform's schema.
type Store interface {
	// Plugin params
	LoadParams(ctx context.Context, element, folder string) (*model.Params, error)
	SaveParams(ctx context.Context, params *model.Params) error

	// Custom fields. FieldID returns sql.ErrNoRows when no field has the name.
	FieldID(ctx context.Context, name string) (int64, error)

	// Content access
	SelectCandidates(ctx context.Context, q model.CandidateQuery) ([]model.Candidate, error)
	UpdateAccess(ctx context.Context, ids []int64, from, to int64) ([]int64, error) // returns the ids changed
	RestoreAccess(ctx context.Context, q model.RestoreQuery) (int64, error)

	// Transaction support
	RunInTransaction(ctx context.Context, fn func(tx Store) error) error

	// Lifecycle
	Close() error
}
