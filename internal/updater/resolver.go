package updater

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/alfredjeanlab/adverthide/internal/metrics"
	"github.com/alfredjeanlab/adverthide/internal/store"
)

// Resolver looks up custom field ids by exact name. Found ids are cached for
// the configured TTL; a missing field is looked up again on every call so a
// newly created field is picked up without a restart.
type Resolver struct {
	store  store.Store
	cache  *cache.Cache // nil = no caching
	logger *slog.Logger
}

// NewResolver creates a resolver. A ttl of zero disables caching.
func NewResolver(s store.Store, ttl time.Duration, logger *slog.Logger) *Resolver {
	r := &Resolver{store: s, logger: logger}
	if ttl > 0 {
		r.cache = cache.New(ttl, 2*ttl)
	}
	return r
}

// Resolve returns the id of the field called name. ok is false when no such
// field exists or the lookup failed; failures are logged.
func (r *Resolver) Resolve(ctx context.Context, name string) (int64, bool) {
	if r.cache != nil {
		if v, found := r.cache.Get(name); found {
			metrics.FieldCacheHits.Inc()
			return v.(int64), true
		}
		metrics.FieldCacheMisses.Inc()
	}

	id, err := r.store.FieldID(ctx, name)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			r.logger.Error("field lookup failed", "field", name, "err", err)
		}
		return 0, false
	}
	if r.cache != nil {
		r.cache.Set(name, id, cache.DefaultExpiration)
	}
	return id, true
}
