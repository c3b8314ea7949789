package reminder

import (
	"time"

	"github.com/google/uuid"
)

// Reminder types.
const (
	TypeMedication  = "medication"
	TypeAppointment = "appointment"
	TypeHealthCheck = "health_check"
	TypeCustom      = "custom"
)

func ValidType(t string) bool {
	switch t {
	case TypeMedication, TypeAppointment, TypeHealthCheck, TypeCustom:
		return true
	}
	return false
}

// Recurrence patterns.
const (
	RecurNone    = "NONE"
	RecurDaily   = "DAILY"
	RecurWeekly  = "WEEKLY"
	RecurMonthly = "MONTHLY"
	RecurYearly  = "YEARLY"
	RecurCustom  = "CUSTOM"
)

func ValidRecurrence(p string) bool {
	switch p {
	case RecurNone, RecurDaily, RecurWeekly, RecurMonthly, RecurYearly, RecurCustom:
		return true
	}
	return false
}

const day = 24 * time.Hour

// Interval returns the spacing between occurrences of a recurrence pattern.
// Months are 30 days and years 365. It returns 0 for one-shot reminders and
// for CUSTOM with fewer than one day.
func Interval(pattern string, customDays int) time.Duration {
	switch pattern {
	case RecurDaily:
		return day
	case RecurWeekly:
		return 7 * day
	case RecurMonthly:
		return 30 * day
	case RecurYearly:
		return 365 * day
	case RecurCustom:
		if customDays >= 1 {
			return time.Duration(customDays) * day
		}
	}
	return 0
}

type Reminder struct {
	ID                 uuid.UUID  `db:"id" json:"id"`
	UserID             uuid.UUID  `db:"user_id" json:"user_id"`
	Title              string     `db:"title" json:"title"`
	Message            *string    `db:"message" json:"message,omitempty"`
	ReminderType       string     `db:"reminder_type" json:"reminder_type"`
	SourceID           *uuid.UUID `db:"source_id" json:"source_id,omitempty"`
	StartAt            time.Time  `db:"start_at" json:"start_at"`
	Recurrence         string     `db:"recurrence" json:"recurrence"`
	CustomIntervalDays int        `db:"custom_interval_days" json:"custom_interval_days,omitempty"`
	EndAt              *time.Time `db:"end_at" json:"end_at,omitempty"`
	NextTriggerAt      *time.Time `db:"next_trigger_at" json:"next_trigger_at,omitempty"`
	LastTriggeredAt    *time.Time `db:"last_triggered_at" json:"last_triggered_at,omitempty"`
	IsActive           bool       `db:"is_active" json:"is_active"`
	CreatedAt          time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time  `db:"updated_at" json:"updated_at"`
}

func (r *Reminder) IsRepeating() bool {
	return r.Recurrence != RecurNone && r.Recurrence != ""
}

func (r *Reminder) MessageText() string {
	if r.Message == nil {
		return ""
	}
	return *r.Message
}

// NextTrigger returns the first occurrence of r strictly after now, or nil
// when r will not fire again.
func NextTrigger(r *Reminder, now time.Time) *time.Time {
	if !r.IsRepeating() {
		if r.StartAt.After(now) {
			t := r.StartAt
			return &t
		}
		return nil
	}

	interval := Interval(r.Recurrence, r.CustomIntervalDays)
	if interval <= 0 {
		return nil
	}
	next := r.StartAt
	if !next.After(now) {
		k := now.Sub(r.StartAt)/interval + 1
		next = r.StartAt.Add(k * interval)
	}
	if r.EndAt != nil && next.After(*r.EndAt) {
		return nil
	}
	return &next
}
