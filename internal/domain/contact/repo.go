package contact

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("emergency contact not found")

type Repository interface {
	Create(ctx context.Context, c *EmergencyContact) error
	GetByID(ctx context.Context, id uuid.UUID) (*EmergencyContact, error)
	Update(ctx context.Context, c *EmergencyContact) error
	// SetPrimary marks id as the user's primary contact and clears the flag
	// on every other contact of that user.
	SetPrimary(ctx context.Context, userID, id uuid.UUID) error
	SoftDelete(ctx context.Context, id uuid.UUID) error
	// ListByUser returns active contacts, primary first, then by priority.
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*EmergencyContact, error)
	DeleteByUser(ctx context.Context, userID uuid.UUID) error
}
