package appointment

import (
	"time"

	"github.com/google/uuid"

	"github.com/seniorcare/seniorcare/pkg/localtime"
)

const (
	StatusScheduled = "scheduled"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
	StatusMissed    = "missed"
)

func ValidStatus(s string) bool {
	switch s {
	case StatusScheduled, StatusCompleted, StatusCancelled, StatusMissed:
		return true
	}
	return false
}

const DefaultDurationMinutes = 30

type Appointment struct {
	ID                    uuid.UUID `db:"id" json:"id"`
	UserID                uuid.UUID `db:"user_id" json:"user_id"`
	Title                 string    `db:"title" json:"title"`
	DoctorName            *string   `db:"doctor_name" json:"doctor_name,omitempty"`
	Specialty             *string   `db:"specialty" json:"specialty,omitempty"`
	Facility              *string   `db:"facility" json:"facility,omitempty"`
	Address               *string   `db:"address" json:"address,omitempty"`
	ScheduledAt           time.Time `db:"scheduled_at" json:"scheduled_at"`
	DurationMinutes       int       `db:"duration_minutes" json:"duration_minutes"`
	Notes                 *string   `db:"notes" json:"notes,omitempty"`
	Status                string    `db:"status" json:"status"`
	ReminderMinutesBefore int       `db:"reminder_minutes_before" json:"reminder_minutes_before"`
	IsDeleted             bool      `db:"is_deleted" json:"-"`
	CreatedAt             time.Time `db:"created_at" json:"created_at"`
	UpdatedAt             time.Time `db:"updated_at" json:"updated_at"`
}

// FormattedDate renders the appointment day as "January 2, 2006" in Manila time.
func (a *Appointment) FormattedDate() string {
	return localtime.Date(a.ScheduledAt)
}

func (a *Appointment) FormattedTime() string {
	return localtime.Time(a.ScheduledAt)
}

func (a *Appointment) EndsAt() time.Time {
	d := a.DurationMinutes
	if d <= 0 {
		d = DefaultDurationMinutes
	}
	return a.ScheduledAt.Add(time.Duration(d) * time.Minute)
}

func (a *Appointment) IsUpcoming(now time.Time) bool {
	return a.Status == StatusScheduled && a.ScheduledAt.After(now)
}

// ReminderAt is when the user should be reminded, or nil when no reminder
// is wanted.
func (a *Appointment) ReminderAt() *time.Time {
	if a.ReminderMinutesBefore <= 0 {
		return nil
	}
	t := a.ScheduledAt.Add(-time.Duration(a.ReminderMinutesBefore) * time.Minute)
	return &t
}

// ReminderMessage is the body text of the appointment reminder.
func (a *Appointment) ReminderMessage() string {
	msg := ""
	if a.DoctorName != nil && *a.DoctorName != "" {
		msg = "With " + *a.DoctorName
	}
	if a.Facility != nil && *a.Facility != "" {
		if msg == "" {
			msg = "At " + *a.Facility
		} else {
			msg += " at " + *a.Facility
		}
	}
	if msg != "" {
		msg += "."
	}
	return msg
}

type ListFilter struct {
	Status string
}
