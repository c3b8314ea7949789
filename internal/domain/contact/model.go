package contact

import (
	"time"

	"github.com/google/uuid"

	"github.com/seniorcare/seniorcare/pkg/phone"
)

// EmergencyContact is someone who receives an SMS when the user raises an
// emergency alert.
type EmergencyContact struct {
	ID           uuid.UUID `db:"id" json:"id"`
	UserID       uuid.UUID `db:"user_id" json:"user_id"`
	Name         string    `db:"name" json:"name"`
	Relationship *string   `db:"relationship" json:"relationship,omitempty"`
	PhoneNumber  string    `db:"phone_number" json:"phone_number"`
	Email        *string   `db:"email" json:"email,omitempty"`
	IsPrimary    bool      `db:"is_primary" json:"is_primary"`
	Priority     int       `db:"priority" json:"priority"`
	NotifyBySMS  bool      `db:"notify_by_sms" json:"notify_by_sms"`
	IsActive     bool      `db:"is_active" json:"is_active"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// DisplayPhone renders the number as +63 9XX XXX XXXX.
func (c *EmergencyContact) DisplayPhone() string {
	return phone.Format(c.PhoneNumber)
}

// ReceivesAlerts reports whether the contact should get emergency SMS.
func (c *EmergencyContact) ReceivesAlerts() bool {
	return c.IsActive && c.NotifyBySMS
}
