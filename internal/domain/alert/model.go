package alert

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Alert statuses.
const (
	StatusSent         = "sent"
	StatusPartial      = "partial"
	StatusFailed       = "failed"
	StatusNoRecipients = "no_recipients"
)

// MaxMessageLength caps the SMS body so it fits in a few concatenated
// segments.
const MaxMessageLength = 480

const defaultMessage = "I need help."

// EmergencyAlert records one SOS fan-out to a user's emergency contacts.
type EmergencyAlert struct {
	ID             uuid.UUID `db:"id" json:"id"`
	UserID         uuid.UUID `db:"user_id" json:"user_id"`
	Message        string    `db:"message" json:"message"`
	Latitude       *float64  `db:"latitude" json:"latitude,omitempty"`
	Longitude      *float64  `db:"longitude" json:"longitude,omitempty"`
	LocationText   *string   `db:"location_text" json:"location_text,omitempty"`
	Status         string    `db:"status" json:"status"`
	RecipientCount int       `db:"recipient_count" json:"recipient_count"`
	SentCount      int       `db:"sent_count" json:"sent_count"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

type TriggerRequest struct {
	UserID       uuid.UUID `json:"user_id"`
	Message      string    `json:"message"`
	Latitude     *float64  `json:"latitude,omitempty"`
	Longitude    *float64  `json:"longitude,omitempty"`
	LocationText *string   `json:"location_text,omitempty"`
}

// ComposeMessage builds the SMS body sent to every recipient. Coordinates
// win over the free-text location when both are present.
func ComposeMessage(userName, msg string, lat, lng *float64, locationText *string) string {
	userName = strings.TrimSpace(userName)
	if userName == "" {
		userName = "your contact"
	}
	msg = strings.TrimSpace(msg)
	if msg == "" {
		msg = defaultMessage
	}
	s := fmt.Sprintf("EMERGENCY ALERT from %s: %s", userName, msg)
	switch {
	case lat != nil && lng != nil:
		s += fmt.Sprintf(" Location: https://maps.google.com/?q=%.6f,%.6f", *lat, *lng)
	case locationText != nil && strings.TrimSpace(*locationText) != "":
		s += " Location: " + strings.TrimSpace(*locationText)
	}
	if r := []rune(s); len(r) > MaxMessageLength {
		s = string(r[:MaxMessageLength])
	}
	return s
}

// statusFor derives the alert status from the delivery counts.
func statusFor(recipients, sent int) string {
	switch {
	case recipients == 0:
		return StatusNoRecipients
	case sent == recipients:
		return StatusSent
	case sent == 0:
		return StatusFailed
	default:
		return StatusPartial
	}
}
