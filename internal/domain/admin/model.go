package admin

import "time"

// Overview is the dashboard's headline numbers. Unavailable lists the
// figures that could not be counted and were left at zero.
type Overview struct {
	TotalUsers           int       `json:"total_users"`
	ActiveUsers          int       `json:"active_users"`
	Seniors              int       `json:"seniors"`
	Caregivers           int       `json:"caregivers"`
	UpcomingAppointments int       `json:"upcoming_appointments"`
	PendingClaims        int       `json:"pending_claims"`
	ActiveBenefits       int       `json:"active_benefits"`
	ActiveReminders      int       `json:"active_reminders"`
	RegisteredDevices    int       `json:"registered_devices"`
	AlertsLast24h        int       `json:"alerts_last_24h"`
	Unavailable          []string  `json:"unavailable,omitempty"`
	GeneratedAt          time.Time `json:"generated_at"`
}
