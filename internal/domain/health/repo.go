package health

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("health record not found")

type Repository interface {
	Create(ctx context.Context, r *HealthRecord) error
	GetByID(ctx context.Context, id uuid.UUID) (*HealthRecord, error)
	Update(ctx context.Context, r *HealthRecord) error
	SoftDelete(ctx context.Context, id uuid.UUID) error
	ListByUser(ctx context.Context, userID uuid.UUID, f ListFilter, limit, offset int) ([]*HealthRecord, int, error)
	AllByUser(ctx context.Context, userID uuid.UUID) ([]*HealthRecord, error)
	DeleteByUser(ctx context.Context, userID uuid.UUID) error
}
