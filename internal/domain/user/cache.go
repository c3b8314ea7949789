package user

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/seniorcare/seniorcare/internal/platform/cache"
	"github.com/seniorcare/seniorcare/internal/platform/db"
	"github.com/seniorcare/seniorcare/internal/platform/metrics"
)

const cacheTTL = 24 * time.Hour

// CachedRepository keeps a copy of every user it reads or writes. When the
// store fails on GetByID with anything but not-found, the cached copy is
// served instead. Cached users carry no password hash.
type CachedRepository struct {
	Repository
	cache  cache.Cache
	logger zerolog.Logger
}

func NewCachedRepository(inner Repository, c cache.Cache, logger zerolog.Logger) *CachedRepository {
	return &CachedRepository{Repository: inner, cache: c, logger: logger}
}

func key(id uuid.UUID) string {
	return cache.Key(db.CollectionUsers, id.String())
}

func (r *CachedRepository) remember(ctx context.Context, u *User) {
	if err := r.cache.Set(ctx, key(u.ID), u, cacheTTL); err != nil {
		r.logger.Warn().Err(err).Str("user_id", u.ID.String()).Msg("failed to cache user")
	}
}

func (r *CachedRepository) forget(ctx context.Context, id uuid.UUID) {
	if err := r.cache.Delete(ctx, key(id)); err != nil {
		r.logger.Warn().Err(err).Str("user_id", id.String()).Msg("failed to evict cached user")
	}
}

func (r *CachedRepository) Create(ctx context.Context, u *User) error {
	if err := r.Repository.Create(ctx, u); err != nil {
		return err
	}
	r.remember(ctx, u)
	return nil
}

func (r *CachedRepository) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	u, err := r.Repository.GetByID(ctx, id)
	if err == nil {
		r.remember(ctx, u)
		return u, nil
	}
	if errors.Is(err, ErrNotFound) {
		r.forget(ctx, id)
		return nil, err
	}

	var cached User
	found, cerr := r.cache.Get(ctx, key(id), &cached)
	if cerr != nil || !found {
		return nil, err
	}
	metrics.CacheFallbacks.WithLabelValues(db.CollectionUsers).Inc()
	r.logger.Warn().Err(err).Str("user_id", id.String()).Msg("user store unavailable, serving cached copy")
	return &cached, nil
}

func (r *CachedRepository) GetByEmail(ctx context.Context, email string) (*User, error) {
	u, err := r.Repository.GetByEmail(ctx, email)
	if err == nil {
		r.remember(ctx, u)
	}
	return u, err
}

func (r *CachedRepository) Update(ctx context.Context, u *User) error {
	if err := r.Repository.Update(ctx, u); err != nil {
		return err
	}
	r.remember(ctx, u)
	return nil
}

func (r *CachedRepository) UpdatePassword(ctx context.Context, id uuid.UUID, hash string) error {
	return r.Repository.UpdatePassword(ctx, id, hash)
}

func (r *CachedRepository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	if err := r.Repository.SetActive(ctx, id, active); err != nil {
		return err
	}
	r.forget(ctx, id)
	return nil
}

func (r *CachedRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if err := r.Repository.Delete(ctx, id); err != nil {
		return err
	}
	r.forget(ctx, id)
	return nil
}
