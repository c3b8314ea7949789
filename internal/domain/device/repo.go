package device

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("device token not found")

type Repository interface {
	// Upsert inserts the token or reassigns an existing one to d.UserID.
	Upsert(ctx context.Context, d *DeviceToken) error
	DeleteByToken(ctx context.Context, token string) error
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*DeviceToken, error)
	DeleteByUser(ctx context.Context, userID uuid.UUID) error
	Count(ctx context.Context) (int, error)
}
