package social

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound        = errors.New("social feature not found")
	ErrServiceNotFound = errors.New("social service not found")
	ErrFull            = errors.New("social feature is full")
	ErrAlreadyJoined   = errors.New("already joined this social feature")
	ErrNotJoined       = errors.New("not a participant of this social feature")
	ErrInactive        = errors.New("social feature is not active")
)

type Repository interface {
	CreateFeature(ctx context.Context, f *SocialFeature) error
	GetFeature(ctx context.Context, id uuid.UUID) (*SocialFeature, error)
	UpdateFeature(ctx context.Context, f *SocialFeature) error
	SetFeatureActive(ctx context.Context, id uuid.UUID, active bool) error
	ListFeatures(ctx context.Context, featureType string, limit, offset int) ([]*SocialFeature, int, error)
	// ListUpcomingFeatures returns active features starting after now,
	// soonest first.
	ListUpcomingFeatures(ctx context.Context, now time.Time, limit int) ([]*SocialFeature, error)

	// AddParticipant records the join and bumps the participant count. It
	// returns ErrAlreadyJoined or ErrFull without changing anything.
	AddParticipant(ctx context.Context, featureID, userID uuid.UUID) error
	RemoveParticipant(ctx context.Context, featureID, userID uuid.UUID) error
	ListParticipants(ctx context.Context, featureID uuid.UUID) ([]*Participant, error)
	DeleteParticipantsByUser(ctx context.Context, userID uuid.UUID) error

	CreateService(ctx context.Context, s *SocialService) error
	GetService(ctx context.Context, id uuid.UUID) (*SocialService, error)
	UpdateService(ctx context.Context, s *SocialService) error
	SetServiceActive(ctx context.Context, id uuid.UUID, active bool) error
	SearchServices(ctx context.Context, f ServiceFilter, limit, offset int) ([]*SocialService, int, error)
}
