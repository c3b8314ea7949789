package appointment

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound          = errors.New("appointment not found")
	ErrInvalidTransition = errors.New("appointment status does not allow this change")
)

type Repository interface {
	Create(ctx context.Context, a *Appointment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	Update(ctx context.Context, a *Appointment) error
	SetStatus(ctx context.Context, id uuid.UUID, status string) error
	SoftDelete(ctx context.Context, id uuid.UUID) error
	ListByUser(ctx context.Context, userID uuid.UUID, f ListFilter, limit, offset int) ([]*Appointment, int, error)
	ListUpcoming(ctx context.Context, userID uuid.UUID, now time.Time, limit int) ([]*Appointment, error)
	// MarkMissed moves scheduled appointments that ended before now to
	// missed and returns them.
	MarkMissed(ctx context.Context, now time.Time) ([]*Appointment, error)
	CountUpcoming(ctx context.Context, now time.Time) (int, error)
	DeleteByUser(ctx context.Context, userID uuid.UUID) error
}
