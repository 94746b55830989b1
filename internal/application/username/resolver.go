package username

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-signup-nosql/internal/domain"
	"github.com/go-signup-nosql/internal/observability/metrics"
	"github.com/go-signup-nosql/internal/pkg/validate"
	"go.uber.org/zap"
)

const cacheKeyPrefix = "username:"

type membershipIndex interface {
	MayExist(name string) bool
	Add(name string)
}

type availabilityCache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

type userStore interface {
	UsernameExists(ctx context.Context, username string) (bool, error)
}

// Resolver turns a username into an availability verdict using, in order, the
// membership index, the availability cache and the authoritative store. The
// index and cache only short-circuit; the store decides.
type Resolver struct {
	index membershipIndex
	cache availabilityCache
	store userStore
	log   *zap.Logger
}

type ResolverDeps struct {
	// Index may be nil when the startup build failed; every name is then
	// treated as possibly taken.
	Index  membershipIndex
	Cache  availabilityCache
	Store  userStore
	Logger *zap.Logger
}

func NewResolver(deps ResolverDeps) *Resolver {
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Resolver{
		index: deps.Index,
		cache: deps.Cache,
		store: deps.Store,
		log:   log.Named("username.resolver"),
	}
}

// Resolve never reports a name as available because of an infrastructure
// failure: on error the verdict is unavailable and a transient error is returned.
func (r *Resolver) Resolve(ctx context.Context, name string) (domain.Availability, error) {
	key := validate.Normalize(name)

	if r.index != nil && !r.index.MayExist(key) {
		metrics.UsernameChecksTotal.WithLabelValues(metrics.PathIndexAbsent).Inc()
		return available(key), nil
	}

	cached, err := r.cache.Get(ctx, cacheKeyPrefix+key)
	switch {
	case err == nil && cached == domain.AvailabilityTaken:
		metrics.UsernameChecksTotal.WithLabelValues(metrics.PathCacheTaken).Inc()
		return taken(key), nil
	case err == nil && cached == domain.AvailabilityAvailable:
		metrics.UsernameChecksTotal.WithLabelValues(metrics.PathCacheAvailable).Inc()
		return available(key), nil
	case err != nil && !errors.Is(err, domain.ErrNotFound):
		return r.fail(key, err)
	}

	exists, err := r.store.UsernameExists(ctx, key)
	if err != nil {
		return r.fail(key, err)
	}
	if exists {
		if err := r.cache.Set(ctx, cacheKeyPrefix+key, domain.AvailabilityTaken, domain.TakenTTL); err != nil {
			return r.fail(key, err)
		}
		metrics.UsernameChecksTotal.WithLabelValues(metrics.PathStoreTaken).Inc()
		return taken(key), nil
	}
	// The index said "maybe" but the store has no such name: a false positive.
	if err := r.cache.Set(ctx, cacheKeyPrefix+key, domain.AvailabilityAvailable, domain.AvailableTTL); err != nil {
		return r.fail(key, err)
	}
	metrics.UsernameChecksTotal.WithLabelValues(metrics.PathStoreAvailable).Inc()
	return available(key), nil
}

// MarkTaken records a committed registration: the name joins the index and
// any cached "available" verdict is overwritten. Failures are logged only;
// the store's unique constraint still guards later inserts.
func (r *Resolver) MarkTaken(ctx context.Context, name string) {
	key := validate.Normalize(name)
	if r.index != nil {
		r.index.Add(key)
	}
	if err := r.cache.Set(ctx, cacheKeyPrefix+key, domain.AvailabilityTaken, domain.TakenTTL); err != nil {
		r.log.Warn("could not cache taken username", zap.String("username", key), zap.Error(err))
	}
}

func (r *Resolver) fail(key string, err error) (domain.Availability, error) {
	metrics.UsernameChecksTotal.WithLabelValues(metrics.PathError).Inc()
	r.log.Error("username availability check failed", zap.String("username", key), zap.Error(err))
	return domain.Availability{Username: key, Available: false, Reason: domain.ReasonCheckFailed},
		domain.Transient(domain.ReasonCheckFailed, fmt.Errorf("resolve %s: %w", key, err))
}

func available(key string) domain.Availability {
	return domain.Availability{Username: key, Available: true, Reason: domain.ReasonAvailable}
}

func taken(key string) domain.Availability {
	return domain.Availability{Username: key, Available: false, Reason: domain.ReasonTaken}
}
