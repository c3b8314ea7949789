package benefits

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/seniorcare/seniorcare/internal/platform/metrics"
)

// CachedRepository keeps the benefit catalog in memory. Successful reads
// refresh the map; when the store fails, benefit reads are answered from
// the map instead. Claims are never cached.
type CachedRepository struct {
	Repository
	mu       sync.RWMutex
	benefits map[uuid.UUID]*Benefit
	logger   zerolog.Logger
}

func NewCachedRepository(inner Repository, logger zerolog.Logger) *CachedRepository {
	return &CachedRepository{
		Repository: inner,
		benefits:   make(map[uuid.UUID]*Benefit),
		logger:     logger,
	}
}

func (r *CachedRepository) remember(b *Benefit) {
	cp := *b
	r.mu.Lock()
	r.benefits[b.ID] = &cp
	r.mu.Unlock()
}

func (r *CachedRepository) fallback(err error, op string) {
	metrics.CacheFallbacks.WithLabelValues("benefits").Inc()
	r.logger.Warn().Err(err).Str("op", op).Msg("benefit store unavailable, serving cached catalog")
}

func (r *CachedRepository) CreateBenefit(ctx context.Context, b *Benefit) error {
	if err := r.Repository.CreateBenefit(ctx, b); err != nil {
		return err
	}
	r.remember(b)
	return nil
}

func (r *CachedRepository) GetBenefit(ctx context.Context, id uuid.UUID) (*Benefit, error) {
	b, err := r.Repository.GetBenefit(ctx, id)
	switch {
	case err == nil:
		r.remember(b)
		return b, nil
	case errors.Is(err, ErrNotFound):
		r.mu.Lock()
		delete(r.benefits, id)
		r.mu.Unlock()
		return nil, err
	}
	r.mu.RLock()
	cached, ok := r.benefits[id]
	r.mu.RUnlock()
	if !ok {
		return nil, err
	}
	r.fallback(err, "get")
	cp := *cached
	return &cp, nil
}

func (r *CachedRepository) UpdateBenefit(ctx context.Context, b *Benefit) error {
	if err := r.Repository.UpdateBenefit(ctx, b); err != nil {
		return err
	}
	r.remember(b)
	return nil
}

func (r *CachedRepository) SetBenefitActive(ctx context.Context, id uuid.UUID, active bool) error {
	if err := r.Repository.SetBenefitActive(ctx, id, active); err != nil {
		return err
	}
	r.mu.Lock()
	if b, ok := r.benefits[id]; ok {
		b.IsActive = active
	}
	r.mu.Unlock()
	return nil
}

func (r *CachedRepository) ListBenefits(ctx context.Context, category string, activeOnly bool) ([]*Benefit, error) {
	items, err := r.Repository.ListBenefits(ctx, category, activeOnly)
	if err == nil {
		for _, b := range items {
			r.remember(b)
		}
		return items, nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	if len(r.benefits) == 0 {
		return nil, err
	}
	r.fallback(err, "list")
	var out []*Benefit
	for _, b := range r.benefits {
		if category != "" && b.Category != category {
			continue
		}
		if activeOnly && !b.IsActive {
			continue
		}
		cp := *b
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Title < out[j].Title })
	return out, nil
}

// Len returns the number of cached benefits.
func (r *CachedRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.benefits)
}
