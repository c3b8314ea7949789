package social

import (
	"time"

	"github.com/google/uuid"

	"github.com/seniorcare/seniorcare/pkg/localtime"
)

// Feature types.
const (
	FeatureEvent = "event"
	FeatureGroup = "group"
	FeatureClass = "class"
	FeatureForum = "forum"
)

func ValidFeatureType(t string) bool {
	switch t {
	case FeatureEvent, FeatureGroup, FeatureClass, FeatureForum:
		return true
	}
	return false
}

// Service categories.
const (
	CategoryHealthcare   = "healthcare"
	CategoryTransport    = "transport"
	CategoryMealDelivery = "meal_delivery"
	CategoryHomeCare     = "home_care"
	CategoryCounseling   = "counseling"
	CategoryLegal        = "legal"
	CategoryOther        = "other"
)

func ValidCategory(c string) bool {
	switch c {
	case CategoryHealthcare, CategoryTransport, CategoryMealDelivery, CategoryHomeCare,
		CategoryCounseling, CategoryLegal, CategoryOther:
		return true
	}
	return false
}

// SocialFeature is a community activity seniors can join.
type SocialFeature struct {
	ID               uuid.UUID  `db:"id" json:"id"`
	Title            string     `db:"title" json:"title"`
	Description      string     `db:"description" json:"description"`
	FeatureType      string     `db:"feature_type" json:"feature_type"`
	Location         *string    `db:"location" json:"location,omitempty"`
	StartsAt         *time.Time `db:"starts_at" json:"starts_at,omitempty"`
	EndsAt           *time.Time `db:"ends_at" json:"ends_at,omitempty"`
	OrganizerID      *uuid.UUID `db:"organizer_id" json:"organizer_id,omitempty"`
	MaxParticipants  int        `db:"max_participants" json:"max_participants"`
	ParticipantCount int        `db:"participant_count" json:"participant_count"`
	IsActive         bool       `db:"is_active" json:"is_active"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at" json:"updated_at"`
}

// IsFull reports whether the feature has reached its capacity. Zero
// capacity means unlimited.
func (f *SocialFeature) IsFull() bool {
	return f.MaxParticipants > 0 && f.ParticipantCount >= f.MaxParticipants
}

// SpotsLeft returns the remaining capacity, or -1 when unlimited.
func (f *SocialFeature) SpotsLeft() int {
	if f.MaxParticipants <= 0 {
		return -1
	}
	if n := f.MaxParticipants - f.ParticipantCount; n > 0 {
		return n
	}
	return 0
}

// FormattedSchedule renders the feature's time span in Manila time, e.g.
// "June 1, 2024, 9:00 AM - 11:00 AM".
func (f *SocialFeature) FormattedSchedule() string {
	if f.StartsAt == nil {
		return "Schedule to be announced"
	}
	s := localtime.Date(*f.StartsAt) + ", " + localtime.Time(*f.StartsAt)
	if f.EndsAt == nil {
		return s
	}
	if localtime.Date(*f.EndsAt) == localtime.Date(*f.StartsAt) {
		return s + " - " + localtime.Time(*f.EndsAt)
	}
	return s + " - " + localtime.Date(*f.EndsAt) + ", " + localtime.Time(*f.EndsAt)
}

// Participant links a user to a feature they joined.
type Participant struct {
	FeatureID uuid.UUID `db:"feature_id" json:"feature_id"`
	UserID    uuid.UUID `db:"user_id" json:"user_id"`
	JoinedAt  time.Time `db:"joined_at" json:"joined_at"`
}

// SocialService is a directory entry for a support service.
type SocialService struct {
	ID             uuid.UUID `db:"id" json:"id"`
	Name           string    `db:"name" json:"name"`
	Category       string    `db:"category" json:"category"`
	Description    string    `db:"description" json:"description"`
	ContactNumber  *string   `db:"contact_number" json:"contact_number,omitempty"`
	Email          *string   `db:"email" json:"email,omitempty"`
	Address        *string   `db:"address" json:"address,omitempty"`
	City           *string   `db:"city" json:"city,omitempty"`
	OperatingHours *string   `db:"operating_hours" json:"operating_hours,omitempty"`
	Website        *string   `db:"website" json:"website,omitempty"`
	IsActive       bool      `db:"is_active" json:"is_active"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// ServiceFilter narrows a directory search. Query matches name or
// description, case-insensitively.
type ServiceFilter struct {
	Category string
	City     string
	Query    string
}
