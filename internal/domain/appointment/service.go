package appointment

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

// ReminderScheduler creates and cancels the one-shot reminder attached to
// an appointment.
type ReminderScheduler interface {
	ScheduleForAppointment(ctx context.Context, userID, appointmentID uuid.UUID, title, message string, at time.Time) error
	CancelForSource(ctx context.Context, sourceID uuid.UUID) error
}

type Service struct {
	appointments Repository
	reminders    ReminderScheduler
	publisher    websocket.EventPublisher
	logger       zerolog.Logger
	now          func() time.Time
}

func NewService(appointments Repository, logger zerolog.Logger) *Service {
	return &Service{
		appointments: appointments,
		publisher:    websocket.NopPublisher{},
		logger:       logger,
		now:          time.Now,
	}
}

func (s *Service) SetReminderScheduler(r ReminderScheduler) {
	s.reminders = r
}

func (s *Service) SetPublisher(p websocket.EventPublisher) {
	s.publisher = p
}

func (s *Service) publish(ctx context.Context, eventType string, a *Appointment) {
	ev := websocket.NewEvent(db.CollectionAppointments, eventType, a.ID.String(), a.UserID.String(), a)
	if err := s.publisher.Publish(ctx, ev); err != nil {
		s.logger.Warn().Err(err).Str("appointment_id", a.ID.String()).Msg("failed to publish appointment event")
	}
}

// syncReminder schedules or cancels the appointment's reminder. Failures
// are logged; the appointment change itself stands.
func (s *Service) syncReminder(ctx context.Context, a *Appointment) {
	if s.reminders == nil {
		return
	}
	var err error
	if at := a.ReminderAt(); at != nil && a.Status == StatusScheduled && !a.IsDeleted {
		err = s.reminders.ScheduleForAppointment(ctx, a.UserID, a.ID, a.Title, a.ReminderMessage(), *at)
	} else {
		err = s.reminders.CancelForSource(ctx, a.ID)
	}
	if err != nil {
		s.logger.Error().Err(err).Str("appointment_id", a.ID.String()).Msg("failed to sync appointment reminder")
	}
}

func validate(a *Appointment) error {
	a.Title = strings.TrimSpace(a.Title)
	if a.Title == "" {
		return fmt.Errorf("title is required")
	}
	if a.ScheduledAt.IsZero() {
		return fmt.Errorf("scheduled_at is required")
	}
	if a.DurationMinutes == 0 {
		a.DurationMinutes = DefaultDurationMinutes
	}
	if a.DurationMinutes < 0 {
		return fmt.Errorf("duration_minutes must be positive")
	}
	if a.ReminderMinutesBefore < 0 {
		return fmt.Errorf("reminder_minutes_before cannot be negative")
	}
	return nil
}

func (s *Service) Create(ctx context.Context, a *Appointment) error {
	if a.UserID == uuid.Nil {
		return fmt.Errorf("user_id is required")
	}
	if err := validate(a); err != nil {
		return err
	}
	if !a.ScheduledAt.After(s.now()) {
		return fmt.Errorf("scheduled_at must be in the future")
	}
	a.Status = StatusScheduled
	if err := s.appointments.Create(ctx, a); err != nil {
		return err
	}
	s.syncReminder(ctx, a)
	s.publish(ctx, websocket.EventCreated, a)
	return nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.appointments.GetByID(ctx, id)
}

// Update edits a scheduled appointment. Rescheduling moves its reminder, and
// edits to the reminder's wording replace it.
func (s *Service) Update(ctx context.Context, upd *Appointment) (*Appointment, error) {
	a, err := s.appointments.GetByID(ctx, upd.ID)
	if err != nil {
		return nil, err
	}
	if a.Status != StatusScheduled {
		return nil, ErrInvalidTransition
	}
	rescheduled := false
	oldTitle, oldMessage := a.Title, a.ReminderMessage()
	if upd.Title != "" {
		a.Title = upd.Title
	}
	if upd.DoctorName != nil {
		a.DoctorName = upd.DoctorName
	}
	if upd.Specialty != nil {
		a.Specialty = upd.Specialty
	}
	if upd.Facility != nil {
		a.Facility = upd.Facility
	}
	if upd.Address != nil {
		a.Address = upd.Address
	}
	if upd.Notes != nil {
		a.Notes = upd.Notes
	}
	if !upd.ScheduledAt.IsZero() && !upd.ScheduledAt.Equal(a.ScheduledAt) {
		if !upd.ScheduledAt.After(s.now()) {
			return nil, fmt.Errorf("scheduled_at must be in the future")
		}
		a.ScheduledAt = upd.ScheduledAt
		rescheduled = true
	}
	if upd.DurationMinutes != 0 {
		a.DurationMinutes = upd.DurationMinutes
	}
	if upd.ReminderMinutesBefore != a.ReminderMinutesBefore && upd.ReminderMinutesBefore >= 0 {
		a.ReminderMinutesBefore = upd.ReminderMinutesBefore
		rescheduled = true
	}
	if err := validate(a); err != nil {
		return nil, err
	}
	if err := s.appointments.Update(ctx, a); err != nil {
		return nil, err
	}
	if rescheduled || a.Title != oldTitle || a.ReminderMessage() != oldMessage {
		s.syncReminder(ctx, a)
	}
	s.publish(ctx, websocket.EventUpdated, a)
	return a, nil
}

func (s *Service) transition(ctx context.Context, id uuid.UUID, to string, from ...string) (*Appointment, error) {
	a, err := s.appointments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	allowed := false
	for _, f := range from {
		if a.Status == f {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, ErrInvalidTransition
	}
	if err := s.appointments.SetStatus(ctx, id, to); err != nil {
		return nil, err
	}
	a.Status = to
	s.syncReminder(ctx, a)
	s.publish(ctx, websocket.EventUpdated, a)
	return a, nil
}

func (s *Service) Cancel(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.transition(ctx, id, StatusCancelled, StatusScheduled)
}

func (s *Service) Complete(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.transition(ctx, id, StatusCompleted, StatusScheduled, StatusMissed)
}

func (s *Service) SoftDelete(ctx context.Context, id uuid.UUID) error {
	a, err := s.appointments.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.appointments.SoftDelete(ctx, id); err != nil {
		return err
	}
	a.IsDeleted = true
	s.syncReminder(ctx, a)
	s.publish(ctx, websocket.EventDeleted, a)
	return nil
}

func (s *Service) ListByUser(ctx context.Context, userID uuid.UUID, f ListFilter, limit, offset int) ([]*Appointment, int, error) {
	if f.Status != "" && !ValidStatus(f.Status) {
		return nil, 0, fmt.Errorf("invalid status: %s", f.Status)
	}
	return s.appointments.ListByUser(ctx, userID, f, limit, offset)
}

func (s *Service) ListUpcoming(ctx context.Context, userID uuid.UUID, now time.Time, limit int) ([]*Appointment, error) {
	if limit <= 0 {
		limit = 5
	}
	return s.appointments.ListUpcoming(ctx, userID, now, limit)
}

// MarkMissed moves scheduled appointments that have ended to missed.
func (s *Service) MarkMissed(ctx context.Context, now time.Time) (int, error) {
	missed, err := s.appointments.MarkMissed(ctx, now)
	if err != nil {
		return 0, err
	}
	for _, a := range missed {
		s.publish(ctx, websocket.EventUpdated, a)
	}
	return len(missed), nil
}

func (s *Service) CountUpcoming(ctx context.Context, now time.Time) (int, error) {
	return s.appointments.CountUpcoming(ctx, now)
}

func (s *Service) DeleteByUser(ctx context.Context, userID uuid.UUID) error {
	return s.appointments.DeleteByUser(ctx, userID)
}
