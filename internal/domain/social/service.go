package social

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/seniorcare/seniorcare/internal/platform/db"
	"github.com/seniorcare/seniorcare/internal/platform/websocket"
)

type Service struct {
	repo      Repository
	publisher websocket.EventPublisher
	logger    zerolog.Logger
	now       func() time.Time
}

func NewService(repo Repository, logger zerolog.Logger) *Service {
	return &Service{
		repo:      repo,
		publisher: websocket.NopPublisher{},
		logger:    logger,
		now:       time.Now,
	}
}

func (s *Service) SetPublisher(p websocket.EventPublisher) {
	s.publisher = p
}

func (s *Service) publish(ctx context.Context, collection, eventType, id string, data interface{}) {
	ev := websocket.NewEvent(collection, eventType, id, "", data)
	if err := s.publisher.Publish(ctx, ev); err != nil {
		s.logger.Warn().Err(err).Str("collection", collection).Str("id", id).Msg("failed to publish event")
	}
}

func validateFeature(f *SocialFeature) error {
	f.Title = strings.TrimSpace(f.Title)
	if f.Title == "" {
		return fmt.Errorf("title is required")
	}
	f.FeatureType = strings.ToLower(f.FeatureType)
	if f.FeatureType == "" {
		f.FeatureType = FeatureEvent
	}
	if !ValidFeatureType(f.FeatureType) {
		return fmt.Errorf("invalid feature_type: %s", f.FeatureType)
	}
	if f.EndsAt != nil {
		if f.StartsAt == nil {
			return fmt.Errorf("starts_at is required when ends_at is set")
		}
		if !f.EndsAt.After(*f.StartsAt) {
			return fmt.Errorf("ends_at must be after starts_at")
		}
	}
	if f.MaxParticipants < 0 {
		return fmt.Errorf("max_participants cannot be negative")
	}
	return nil
}

func (s *Service) CreateFeature(ctx context.Context, f *SocialFeature) error {
	if err := validateFeature(f); err != nil {
		return err
	}
	f.IsActive = true
	f.ParticipantCount = 0
	if err := s.repo.CreateFeature(ctx, f); err != nil {
		return err
	}
	s.publish(ctx, db.CollectionSocialFeatures, websocket.EventCreated, f.ID.String(), f)
	return nil
}

func (s *Service) GetFeature(ctx context.Context, id uuid.UUID) (*SocialFeature, error) {
	return s.repo.GetFeature(ctx, id)
}

// UpdateFeature replaces the editable fields. Capacity cannot drop below
// the current participant count.
func (s *Service) UpdateFeature(ctx context.Context, upd *SocialFeature) (*SocialFeature, error) {
	f, err := s.repo.GetFeature(ctx, upd.ID)
	if err != nil {
		return nil, err
	}
	f.Title = upd.Title
	f.Description = upd.Description
	f.FeatureType = upd.FeatureType
	f.Location = upd.Location
	f.StartsAt = upd.StartsAt
	f.EndsAt = upd.EndsAt
	f.MaxParticipants = upd.MaxParticipants
	if err := validateFeature(f); err != nil {
		return nil, err
	}
	if f.MaxParticipants > 0 && f.MaxParticipants < f.ParticipantCount {
		return nil, fmt.Errorf("max_participants cannot be below the %d current participants", f.ParticipantCount)
	}
	if err := s.repo.UpdateFeature(ctx, f); err != nil {
		return nil, err
	}
	s.publish(ctx, db.CollectionSocialFeatures, websocket.EventUpdated, f.ID.String(), f)
	return f, nil
}

func (s *Service) DeactivateFeature(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.SetFeatureActive(ctx, id, false); err != nil {
		return err
	}
	s.publish(ctx, db.CollectionSocialFeatures, websocket.EventDeleted, id.String(), map[string]string{"id": id.String()})
	return nil
}

func (s *Service) ListFeatures(ctx context.Context, featureType string, limit, offset int) ([]*SocialFeature, int, error) {
	featureType = strings.ToLower(featureType)
	if featureType != "" && !ValidFeatureType(featureType) {
		return nil, 0, fmt.Errorf("invalid feature_type: %s", featureType)
	}
	return s.repo.ListFeatures(ctx, featureType, limit, offset)
}

func (s *Service) ListUpcoming(ctx context.Context, now time.Time, limit int) ([]*SocialFeature, error) {
	if limit <= 0 {
		limit = 10
	}
	return s.repo.ListUpcomingFeatures(ctx, now, limit)
}

// Join adds the user to an active feature that still has room.
func (s *Service) Join(ctx context.Context, featureID, userID uuid.UUID) (*SocialFeature, error) {
	f, err := s.repo.GetFeature(ctx, featureID)
	if err != nil {
		return nil, err
	}
	if !f.IsActive {
		return nil, ErrInactive
	}
	if f.IsFull() {
		return nil, ErrFull
	}
	if err := s.repo.AddParticipant(ctx, featureID, userID); err != nil {
		return nil, err
	}
	f.ParticipantCount++
	s.publish(ctx, db.CollectionSocialParticipants, websocket.EventCreated, featureID.String(),
		Participant{FeatureID: featureID, UserID: userID, JoinedAt: s.now()})
	return f, nil
}

func (s *Service) Leave(ctx context.Context, featureID, userID uuid.UUID) (*SocialFeature, error) {
	if err := s.repo.RemoveParticipant(ctx, featureID, userID); err != nil {
		return nil, err
	}
	f, err := s.repo.GetFeature(ctx, featureID)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, db.CollectionSocialParticipants, websocket.EventDeleted, featureID.String(),
		Participant{FeatureID: featureID, UserID: userID})
	return f, nil
}

func (s *Service) ListParticipants(ctx context.Context, featureID uuid.UUID) ([]*Participant, error) {
	if _, err := s.repo.GetFeature(ctx, featureID); err != nil {
		return nil, err
	}
	return s.repo.ListParticipants(ctx, featureID)
}

func (s *Service) DeleteByUser(ctx context.Context, userID uuid.UUID) error {
	return s.repo.DeleteParticipantsByUser(ctx, userID)
}

func validateService(svc *SocialService) error {
	svc.Name = strings.TrimSpace(svc.Name)
	if svc.Name == "" {
		return fmt.Errorf("name is required")
	}
	svc.Category = strings.ToLower(svc.Category)
	if svc.Category == "" {
		svc.Category = CategoryOther
	}
	if !ValidCategory(svc.Category) {
		return fmt.Errorf("invalid category: %s", svc.Category)
	}
	return nil
}

func (s *Service) CreateService(ctx context.Context, svc *SocialService) error {
	if err := validateService(svc); err != nil {
		return err
	}
	svc.IsActive = true
	if err := s.repo.CreateService(ctx, svc); err != nil {
		return err
	}
	s.publish(ctx, db.CollectionSocialServices, websocket.EventCreated, svc.ID.String(), svc)
	return nil
}

func (s *Service) GetService(ctx context.Context, id uuid.UUID) (*SocialService, error) {
	return s.repo.GetService(ctx, id)
}

func (s *Service) UpdateService(ctx context.Context, upd *SocialService) (*SocialService, error) {
	existing, err := s.repo.GetService(ctx, upd.ID)
	if err != nil {
		return nil, err
	}
	upd.IsActive = existing.IsActive
	upd.CreatedAt = existing.CreatedAt
	if err := validateService(upd); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateService(ctx, upd); err != nil {
		return nil, err
	}
	s.publish(ctx, db.CollectionSocialServices, websocket.EventUpdated, upd.ID.String(), upd)
	return upd, nil
}

func (s *Service) DeactivateService(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.SetServiceActive(ctx, id, false); err != nil {
		return err
	}
	s.publish(ctx, db.CollectionSocialServices, websocket.EventDeleted, id.String(), map[string]string{"id": id.String()})
	return nil
}

func (s *Service) SearchServices(ctx context.Context, f ServiceFilter, limit, offset int) ([]*SocialService, int, error) {
	f.Category = strings.ToLower(strings.TrimSpace(f.Category))
	f.City = strings.TrimSpace(f.City)
	f.Query = strings.TrimSpace(f.Query)
	if f.Category != "" && !ValidCategory(f.Category) {
		return nil, 0, fmt.Errorf("invalid category: %s", f.Category)
	}
	return s.repo.SearchServices(ctx, f, limit, offset)
}
