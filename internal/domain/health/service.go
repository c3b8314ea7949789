package health

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/seniorcare/seniorcare/internal/platform/db"
	"github.com/seniorcare/seniorcare/internal/platform/websocket"
)

type Service struct {
	records   Repository
	publisher websocket.EventPublisher
	logger    zerolog.Logger
	now       func() time.Time
}

func NewService(records Repository, logger zerolog.Logger) *Service {
	return &Service{
		records:   records,
		publisher: websocket.NopPublisher{},
		logger:    logger,
		now:       time.Now,
	}
}

func (s *Service) SetPublisher(p websocket.EventPublisher) {
	s.publisher = p
}

func (s *Service) publish(ctx context.Context, eventType string, r *HealthRecord) {
	ev := websocket.NewEvent(db.CollectionHealthRecords, eventType, r.ID.String(), r.UserID.String(), r)
	if err := s.publisher.Publish(ctx, ev); err != nil {
		s.logger.Warn().Err(err).Str("record_id", r.ID.String()).Msg("failed to publish health record event")
	}
}

func validateValues(r *HealthRecord) error {
	if r.RecordType == TypeBloodPressure {
		if r.Systolic == nil || r.Diastolic == nil {
			return fmt.Errorf("systolic and diastolic are required for blood_pressure")
		}
		if *r.Systolic <= 0 || *r.Diastolic <= 0 {
			return fmt.Errorf("systolic and diastolic must be positive")
		}
		if *r.Diastolic >= *r.Systolic {
			return fmt.Errorf("diastolic must be lower than systolic")
		}
		return nil
	}
	if r.Value == nil {
		return fmt.Errorf("value is required for %s", r.RecordType)
	}
	if *r.Value <= 0 {
		return fmt.Errorf("value must be positive")
	}
	if r.RecordType == TypeOxygenSaturation && *r.Value > 100 {
		return fmt.Errorf("oxygen_saturation cannot exceed 100")
	}
	return nil
}

func (s *Service) Create(ctx context.Context, r *HealthRecord) error {
	if r.UserID == uuid.Nil {
		return fmt.Errorf("user_id is required")
	}
	if r.RecordType == "" {
		return fmt.Errorf("record_type is required")
	}
	if !ValidType(r.RecordType) {
		return fmt.Errorf("invalid record_type: %s", r.RecordType)
	}
	if err := validateValues(r); err != nil {
		return err
	}
	if r.Unit == nil || *r.Unit == "" {
		u := DefaultUnit(r.RecordType)
		r.Unit = &u
	}
	if r.RecordedAt.IsZero() {
		r.RecordedAt = s.now().UTC()
	}
	if r.RecordedAt.After(s.now().Add(5 * time.Minute)) {
		return fmt.Errorf("recorded_at cannot be in the future")
	}
	if err := s.records.Create(ctx, r); err != nil {
		return err
	}
	s.publish(ctx, websocket.EventCreated, r)
	return nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*HealthRecord, error) {
	return s.records.GetByID(ctx, id)
}

// Update replaces the reading's values. The owner and type never change.
func (s *Service) Update(ctx context.Context, upd *HealthRecord) (*HealthRecord, error) {
	r, err := s.records.GetByID(ctx, upd.ID)
	if err != nil {
		return nil, err
	}
	if upd.Systolic != nil {
		r.Systolic = upd.Systolic
	}
	if upd.Diastolic != nil {
		r.Diastolic = upd.Diastolic
	}
	if upd.Value != nil {
		r.Value = upd.Value
	}
	if upd.Unit != nil && *upd.Unit != "" {
		r.Unit = upd.Unit
	}
	if upd.Notes != nil {
		r.Notes = upd.Notes
	}
	if !upd.RecordedAt.IsZero() {
		r.RecordedAt = upd.RecordedAt
	}
	if err := validateValues(r); err != nil {
		return nil, err
	}
	if err := s.records.Update(ctx, r); err != nil {
		return nil, err
	}
	s.publish(ctx, websocket.EventUpdated, r)
	return r, nil
}

func (s *Service) SoftDelete(ctx context.Context, id uuid.UUID) error {
	r, err := s.records.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.records.SoftDelete(ctx, id); err != nil {
		return err
	}
	s.publish(ctx, websocket.EventDeleted, r)
	return nil
}

func (s *Service) ListByUser(ctx context.Context, userID uuid.UUID, f ListFilter, limit, offset int) ([]*HealthRecord, int, error) {
	if f.RecordType != "" && !ValidType(f.RecordType) {
		return nil, 0, fmt.Errorf("invalid record_type: %s", f.RecordType)
	}
	return s.records.ListByUser(ctx, userID, f, limit, offset)
}

func (s *Service) Summary(ctx context.Context, userID uuid.UUID) (*HealthSummary, error) {
	records, err := s.records.AllByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return BuildSummary(userID, records), nil
}

func (s *Service) DeleteByUser(ctx context.Context, userID uuid.UUID) error {
	return s.records.DeleteByUser(ctx, userID)
}
