package user

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func date(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func TestUser_FullNameAndInitials(t *testing.T) {
	u := &User{FirstName: "Lola", LastName: "Basyang"}
	if u.FullName() != "Lola Basyang" {
		t.Errorf("FullName = %q", u.FullName())
	}
	if u.Initials() != "LB" {
		t.Errorf("Initials = %q", u.Initials())
	}
	u = &User{FirstName: "juan"}
	if u.FullName() != "juan" || u.Initials() != "J" {
		t.Errorf("got %q / %q", u.FullName(), u.Initials())
	}
}

func TestUser_Age(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		birth *time.Time
		want  int
	}{
		{nil, 0},
		{date(1960, 6, 15), 64},
		{date(1960, 6, 16), 63},
		{date(1964, 1, 1), 60},
		{date(2030, 1, 1), 0},
	}
	for _, tt := range tests {
		u := &User{BirthDate: tt.birth}
		if got := u.Age(now); got != tt.want {
			t.Errorf("Age(%v) = %d, want %d", tt.birth, got, tt.want)
		}
	}
}

func TestUser_IsSenior(t *testing.T) {
	now := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)
	if (&User{}).IsSenior(now) {
		t.Error("user without birth date should not be a senior")
	}
	if !(&User{BirthDate: date(1964, 6, 15)}).IsSenior(now) {
		t.Error("60th birthday should count as senior")
	}
	if (&User{BirthDate: date(1964, 6, 16)}).IsSenior(now) {
		t.Error("59-year-old should not be a senior")
	}
}

func TestUser_FormattedBirthDate(t *testing.T) {
	u := &User{BirthDate: date(1955, 3, 9)}
	if got := u.FormattedBirthDate(); got != "March 9, 1955" {
		t.Errorf("FormattedBirthDate = %q", got)
	}
	if (&User{}).FormattedBirthDate() != "" {
		t.Error("expected empty string without birth date")
	}
}

func TestUser_PasswordHashNotSerialized(t *testing.T) {
	u := &User{Email: "a@b.ph", PasswordHash: "secret-hash"}
	raw, _ := json.Marshal(u)
	if strings.Contains(string(raw), "secret-hash") {
		t.Errorf("password hash leaked: %s", raw)
	}
}
