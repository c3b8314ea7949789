package reminder

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
	reminders Repository
	publisher websocket.EventPublisher
	logger    zerolog.Logger
	now       func() time.Time
}

func NewService(reminders Repository, logger zerolog.Logger) *Service {
	return &Service{
		reminders: reminders,
		publisher: websocket.NopPublisher{},
		logger:    logger,
		now:       time.Now,
	}
}

func (s *Service) SetPublisher(p websocket.EventPublisher) {
	s.publisher = p
}

func (s *Service) publish(ctx context.Context, eventType string, r *Reminder) {
	ev := websocket.NewEvent(db.CollectionReminders, eventType, r.ID.String(), r.UserID.String(), r)
	if err := s.publisher.Publish(ctx, ev); err != nil {
		s.logger.Warn().Err(err).Str("reminder_id", r.ID.String()).Msg("failed to publish reminder event")
	}
}

func normalize(r *Reminder) error {
	r.Title = strings.TrimSpace(r.Title)
	if r.Title == "" {
		return fmt.Errorf("title is required")
	}
	if r.StartAt.IsZero() {
		return fmt.Errorf("start_at is required")
	}
	if r.ReminderType == "" {
		r.ReminderType = TypeCustom
	}
	if !ValidType(r.ReminderType) {
		return fmt.Errorf("invalid reminder_type: %s", r.ReminderType)
	}
	r.Recurrence = strings.ToUpper(r.Recurrence)
	if r.Recurrence == "" {
		r.Recurrence = RecurNone
	}
	if !ValidRecurrence(r.Recurrence) {
		return fmt.Errorf("invalid recurrence: %s", r.Recurrence)
	}
	if r.Recurrence == RecurCustom && r.CustomIntervalDays < 1 {
		return fmt.Errorf("custom_interval_days must be at least 1 for CUSTOM recurrence")
	}
	if r.Recurrence != RecurCustom {
		r.CustomIntervalDays = 0
	}
	if r.EndAt != nil && !r.EndAt.After(r.StartAt) {
		return fmt.Errorf("end_at must be after start_at")
	}
	return nil
}

func (s *Service) Create(ctx context.Context, r *Reminder) error {
	if r.UserID == uuid.Nil {
		return fmt.Errorf("user_id is required")
	}
	if err := normalize(r); err != nil {
		return err
	}
	r.NextTriggerAt = NextTrigger(r, s.now())
	if r.NextTriggerAt == nil {
		return fmt.Errorf("reminder would never fire: start_at is in the past")
	}
	r.IsActive = true
	if err := s.reminders.Create(ctx, r); err != nil {
		return err
	}
	s.publish(ctx, websocket.EventCreated, r)
	return nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Reminder, error) {
	return s.reminders.GetByID(ctx, id)
}

// Update replaces the schedule and text of a reminder and recomputes its
// next trigger. A reminder whose schedule is exhausted becomes inactive.
func (s *Service) Update(ctx context.Context, upd *Reminder) (*Reminder, error) {
	r, err := s.reminders.GetByID(ctx, upd.ID)
	if err != nil {
		return nil, err
	}
	if upd.Title != "" {
		r.Title = upd.Title
	}
	if upd.Message != nil {
		r.Message = upd.Message
	}
	if upd.ReminderType != "" {
		r.ReminderType = upd.ReminderType
	}
	if !upd.StartAt.IsZero() {
		r.StartAt = upd.StartAt
	}
	if upd.Recurrence != "" {
		r.Recurrence = upd.Recurrence
		r.CustomIntervalDays = upd.CustomIntervalDays
	}
	if upd.EndAt != nil {
		r.EndAt = upd.EndAt
	}
	if err := normalize(r); err != nil {
		return nil, err
	}
	r.NextTriggerAt = NextTrigger(r, s.now())
	r.IsActive = r.NextTriggerAt != nil
	if err := s.reminders.Update(ctx, r); err != nil {
		return nil, err
	}
	s.publish(ctx, websocket.EventUpdated, r)
	return r, nil
}

// Cancel stops a reminder from firing but keeps it for history.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID) (*Reminder, error) {
	r, err := s.reminders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.reminders.SetNextTrigger(ctx, id, nil, false); err != nil {
		return nil, err
	}
	r.NextTriggerAt = nil
	r.IsActive = false
	s.publish(ctx, websocket.EventUpdated, r)
	return r, nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	r, err := s.reminders.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.reminders.Delete(ctx, id); err != nil {
		return err
	}
	s.publish(ctx, websocket.EventDeleted, r)
	return nil
}

func (s *Service) ListByUser(ctx context.Context, userID uuid.UUID, activeOnly bool, limit, offset int) ([]*Reminder, int, error) {
	return s.reminders.ListByUser(ctx, userID, activeOnly, limit, offset)
}

// ScheduleForAppointment replaces any pending reminder for the appointment
// with a one-shot reminder at the given time. Times already past schedule
// nothing.
func (s *Service) ScheduleForAppointment(ctx context.Context, userID, appointmentID uuid.UUID, title, message string, at time.Time) error {
	if _, err := s.reminders.DeactivateBySource(ctx, appointmentID); err != nil {
		return fmt.Errorf("cancel previous appointment reminder: %w", err)
	}
	if !at.After(s.now()) {
		return nil
	}
	src := appointmentID
	r := &Reminder{
		UserID:       userID,
		Title:        title,
		ReminderType: TypeAppointment,
		SourceID:     &src,
		StartAt:      at,
		Recurrence:   RecurNone,
	}
	if message != "" {
		r.Message = &message
	}
	return s.Create(ctx, r)
}

// CancelForSource deactivates every reminder created for sourceID.
func (s *Service) CancelForSource(ctx context.Context, sourceID uuid.UUID) error {
	n, err := s.reminders.DeactivateBySource(ctx, sourceID)
	if err != nil {
		return err
	}
	if n > 0 {
		s.logger.Debug().Str("source_id", sourceID.String()).Int("count", n).Msg("cancelled reminders for source")
	}
	return nil
}

func (s *Service) DeleteByUser(ctx context.Context, userID uuid.UUID) error {
	return s.reminders.DeleteByUser(ctx, userID)
}

func (s *Service) CountActive(ctx context.Context) (int, error) {
	return s.reminders.CountActive(ctx)
}
