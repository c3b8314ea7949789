package reminder

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("reminder not found")

type Repository interface {
	Create(ctx context.Context, r *Reminder) error
	GetByID(ctx context.Context, id uuid.UUID) (*Reminder, error)
	Update(ctx context.Context, r *Reminder) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListByUser(ctx context.Context, userID uuid.UUID, activeOnly bool, limit, offset int) ([]*Reminder, int, error)
	// ListDue returns active reminders with next_trigger_at <= now, oldest first.
	ListDue(ctx context.Context, now time.Time, limit int) ([]*Reminder, error)
	ListActive(ctx context.Context) ([]*Reminder, error)
	// MarkTriggered records a firing and stores the following trigger time.
	MarkTriggered(ctx context.Context, id uuid.UUID, at time.Time, next *time.Time, active bool) error
	SetNextTrigger(ctx context.Context, id uuid.UUID, next *time.Time, active bool) error
	DeactivateBySource(ctx context.Context, sourceID uuid.UUID) (int, error)
	DeleteByUser(ctx context.Context, userID uuid.UUID) error
	CountActive(ctx context.Context) (int, error)
}
