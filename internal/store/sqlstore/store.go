// Package sqlstore implements store.Store over database/sql for the host
// platform's schema. The postgres and mysql packages supply the connection
// and migrations; this package holds the queries shared by both.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/alfredjeanlab/adverthide/internal/model"
	"github.com/alfredjeanlab/adverthide/internal/store"
)

// Store implements store.Store backed by a SQL database.
type Store struct {
	db *sql.DB
	sc schema
}

// Compile-time check that Store implements store.Store.
var _ store.Store = (*Store)(nil)

// New wraps an open database handle. prefix is the host table prefix
// (e.g. "jos_"), which may be empty.
func New(db *sql.DB, d Dialect, prefix string) (*Store, error) {
	if err := ValidatePrefix(prefix); err != nil {
		return nil, err
	}
	return &Store{db: db, sc: schema{dialect: d, prefix: prefix}}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) LoadParams(ctx context.Context, element, folder string) (*model.Params, error) {
	return queryLoadParams(ctx, s.db, s.sc, element, folder)
}

func (s *Store) SaveParams(ctx context.Context, p *model.Params) error {
	return querySaveParams(ctx, s.db, s.sc, p)
}

func (s *Store) FieldID(ctx context.Context, name string) (int64, error) {
	return queryFieldID(ctx, s.db, s.sc, name)
}

func (s *Store) SelectCandidates(ctx context.Context, q model.CandidateQuery) ([]model.Candidate, error) {
	return querySelectCandidates(ctx, s.db, s.sc, q)
}

func (s *Store) UpdateAccess(ctx context.Context, ids []int64, from, to int64) ([]int64, error) {
	if s.sc.dialect.returning || len(ids) == 0 {
		return queryUpdateAccess(ctx, s.db, s.sc, ids, from, to)
	}
	var changed []int64
	err := s.RunInTransaction(ctx, func(tx store.Store) error {
		var err error
		changed, err = tx.UpdateAccess(ctx, ids, from, to)
		return err
	})
	if err != nil {
		return nil, err
	}
	return changed, nil
}

func (s *Store) RestoreAccess(ctx context.Context, q model.RestoreQuery) (int64, error) {
	return queryRestoreAccess(ctx, s.db, s.sc, q)
}

// RunInTransaction begins a database transaction, creates a txStore that
// delegates to it, calls fn, and commits on success or rolls back on error.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx store.Store) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	txS := &txStore{tx: tx, sc: s.sc}
	if err := fn(txS); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// txStore implements store.Store using a *sql.Tx.
type txStore struct {
	tx *sql.Tx
	sc schema
}

// Compile-time check that txStore implements store.Store.
var _ store.Store = (*txStore)(nil)

func (s *txStore) LoadParams(ctx context.Context, element, folder string) (*model.Params, error) {
	return queryLoadParams(ctx, s.tx, s.sc, element, folder)
}

func (s *txStore) SaveParams(ctx context.Context, p *model.Params) error {
	return querySaveParams(ctx, s.tx, s.sc, p)
}

func (s *txStore) FieldID(ctx context.Context, name string) (int64, error) {
	return queryFieldID(ctx, s.tx, s.sc, name)
}

func (s *txStore) SelectCandidates(ctx context.Context, q model.CandidateQuery) ([]model.Candidate, error) {
	return querySelectCandidates(ctx, s.tx, s.sc, q)
}

func (s *txStore) UpdateAccess(ctx context.Context, ids []int64, from, to int64) ([]int64, error) {
	return queryUpdateAccess(ctx, s.tx, s.sc, ids, from, to)
}

func (s *txStore) RestoreAccess(ctx context.Context, q model.RestoreQuery) (int64, error) {
	return queryRestoreAccess(ctx, s.tx, s.sc, q)
}

// RunInTransaction on a txStore reuses the existing transaction (no nesting).
func (s *txStore) RunInTransaction(_ context.Context, fn func(tx store.Store) error) error {
	return fn(s)
}

// Close is a no-op for a transaction store; the parent store owns the connection.
func (s *txStore) Close() error {
	return nil
}
