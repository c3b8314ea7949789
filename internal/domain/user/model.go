package user

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// SeniorAge is the age at which a user counts as a senior citizen.
const SeniorAge = 60

type User struct {
	ID              uuid.UUID  `db:"id" json:"id"`
	Email           string     `db:"email" json:"email"`
	PasswordHash    string     `db:"password_hash" json:"-"`
	FirstName       string     `db:"first_name" json:"first_name"`
	LastName        string     `db:"last_name" json:"last_name"`
	Phone           *string    `db:"phone" json:"phone,omitempty"`
	BirthDate       *time.Time `db:"birth_date" json:"birth_date,omitempty"`
	Gender          *string    `db:"gender" json:"gender,omitempty"`
	Address         *string    `db:"address" json:"address,omitempty"`
	City            *string    `db:"city" json:"city,omitempty"`
	Province        *string    `db:"province" json:"province,omitempty"`
	SeniorCitizenID *string    `db:"senior_citizen_id" json:"senior_citizen_id,omitempty"`
	Role            string     `db:"role" json:"role"`
	ProfileImageURL *string    `db:"profile_image_url" json:"profile_image_url,omitempty"`
	IsActive        bool       `db:"is_active" json:"is_active"`
	LastLoginAt     *time.Time `db:"last_login_at" json:"last_login_at,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`
}

func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// Age returns the user's age in whole years at now, or 0 when the birth
// date is unknown.
func (u *User) Age(now time.Time) int {
	if u.BirthDate == nil {
		return 0
	}
	b := u.BirthDate.UTC()
	now = now.UTC()
	age := now.Year() - b.Year()
	if now.Month() < b.Month() || (now.Month() == b.Month() && now.Day() < b.Day()) {
		age--
	}
	if age < 0 {
		return 0
	}
	return age
}

func (u *User) IsSenior(now time.Time) bool {
	return u.BirthDate != nil && u.Age(now) >= SeniorAge
}

// FormattedBirthDate renders the birth date as "January 2, 2006".
func (u *User) FormattedBirthDate() string {
	if u.BirthDate == nil {
		return ""
	}
	return u.BirthDate.Format("January 2, 2006")
}

func (u *User) Initials() string {
	var b strings.Builder
	for _, part := range []string{u.FirstName, u.LastName} {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		b.WriteString(strings.ToUpper(string([]rune(part)[:1])))
	}
	return b.String()
}

// SearchParams filters user listings. Query matches name or email.
type SearchParams struct {
	Role   string
	Active *bool
	Query  string
}

type RegisterRequest struct {
	Email           string     `json:"email"`
	Password        string     `json:"password"`
	FirstName       string     `json:"first_name"`
	LastName        string     `json:"last_name"`
	Phone           *string    `json:"phone,omitempty"`
	BirthDate       *time.Time `json:"birth_date,omitempty"`
	Gender          *string    `json:"gender,omitempty"`
	Address         *string    `json:"address,omitempty"`
	City            *string    `json:"city,omitempty"`
	Province        *string    `json:"province,omitempty"`
	SeniorCitizenID *string    `json:"senior_citizen_id,omitempty"`
	Role            string     `json:"role,omitempty"`
}

// ProfileUpdate carries the editable profile fields. Nil fields are left
// unchanged.
type ProfileUpdate struct {
	FirstName       *string    `json:"first_name,omitempty"`
	LastName        *string    `json:"last_name,omitempty"`
	Phone           *string    `json:"phone,omitempty"`
	BirthDate       *time.Time `json:"birth_date,omitempty"`
	Gender          *string    `json:"gender,omitempty"`
	Address         *string    `json:"address,omitempty"`
	City            *string    `json:"city,omitempty"`
	Province        *string    `json:"province,omitempty"`
	SeniorCitizenID *string    `json:"senior_citizen_id,omitempty"`
	ProfileImageURL *string    `json:"profile_image_url,omitempty"`
}

// AuthResult is returned by a successful login or registration.
type AuthResult struct {
	User      *User     `json:"user"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}
