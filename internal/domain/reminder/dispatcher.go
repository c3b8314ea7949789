package reminder

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/seniorcare/seniorcare/internal/domain/user"
	"github.com/seniorcare/seniorcare/internal/platform/notification"
	"github.com/seniorcare/seniorcare/pkg/localtime"
)

// Dispatcher delivers a due reminder to its user.
type Dispatcher interface {
	Dispatch(ctx context.Context, r *Reminder) error
}

// Notifier is the part of the notification manager used to deliver reminders.
type Notifier interface {
	SendFromTemplate(ctx context.Context, templateID string, data map[string]string, recipient string) (*notification.Notification, error)
}

type UserLookup interface {
	Get(ctx context.Context, id uuid.UUID) (*user.User, error)
}

var templates = map[string]string{
	TypeMedication:  notification.TemplateMedicationReminder,
	TypeAppointment: notification.TemplateAppointmentReminder,
	TypeHealthCheck: notification.TemplateHealthCheckReminder,
	TypeCustom:      notification.TemplateCustomReminder,
}

// TemplateFor returns the notification template used for a reminder type.
func TemplateFor(reminderType string) string {
	if id, ok := templates[reminderType]; ok {
		return id
	}
	return notification.TemplateCustomReminder
}

// PushDispatcher sends reminders as push notifications to every device the
// user has registered.
type PushDispatcher struct {
	notifier Notifier
	users    UserLookup
}

func NewPushDispatcher(notifier Notifier, users UserLookup) *PushDispatcher {
	return &PushDispatcher{notifier: notifier, users: users}
}

func (d *PushDispatcher) Dispatch(ctx context.Context, r *Reminder) error {
	name := "there"
	if d.users != nil {
		if u, err := d.users.Get(ctx, r.UserID); err == nil && u.FirstName != "" {
			name = u.FirstName
		}
	}
	at := r.StartAt
	if r.NextTriggerAt != nil {
		at = *r.NextTriggerAt
	}
	data := map[string]string{
		"name":          name,
		"title":         r.Title,
		"message":       r.MessageText(),
		"date":          localtime.Date(at),
		"time":          localtime.Time(at),
		"reminder_id":   r.ID.String(),
		"reminder_type": r.ReminderType,
	}
	if r.SourceID != nil {
		data["source_id"] = r.SourceID.String()
	}
	if _, err := d.notifier.SendFromTemplate(ctx, TemplateFor(r.ReminderType), data, r.UserID.String()); err != nil {
		return fmt.Errorf("dispatch reminder %s: %w", r.ID, err)
	}
	return nil
}
