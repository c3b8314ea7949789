package alert

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("emergency alert not found")

type Repository interface {
	Create(ctx context.Context, a *EmergencyAlert) error
	GetByID(ctx context.Context, id uuid.UUID) (*EmergencyAlert, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*EmergencyAlert, int, error)
	ListRecent(ctx context.Context, limit, offset int) ([]*EmergencyAlert, int, error)
	CountSince(ctx context.Context, since time.Time) (int, error)
	DeleteByUser(ctx context.Context, userID uuid.UUID) error
}
