package admin

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/seniorcare/seniorcare/internal/domain/user"
	"github.com/seniorcare/seniorcare/internal/platform/auth"
)

type UserCounter interface {
	Count(ctx context.Context, params user.SearchParams) (int, error)
}

type AppointmentCounter interface {
	CountUpcoming(ctx context.Context, now time.Time) (int, error)
}

type BenefitCounter interface {
	CountPending(ctx context.Context) (int, error)
	CountActive(ctx context.Context) (int, error)
}

type AlertCounter interface {
	CountSince(ctx context.Context, since time.Time) (int, error)
}

type ReminderCounter interface {
	CountActive(ctx context.Context) (int, error)
}

type DeviceCounter interface {
	Count(ctx context.Context) (int, error)
}

// Sources bundles everything the overview counts. Nil sources are skipped.
type Sources struct {
	Users        UserCounter
	Appointments AppointmentCounter
	Benefits     BenefitCounter
	Alerts       AlertCounter
	Reminders    ReminderCounter
	Devices      DeviceCounter
}

type Service struct {
	src    Sources
	logger zerolog.Logger
	now    func() time.Time
}

func NewService(src Sources, logger zerolog.Logger) *Service {
	return &Service{src: src, logger: logger, now: time.Now}
}

// Overview runs each count independently. A failing count is logged and
// reported in Unavailable instead of failing the whole dashboard.
func (s *Service) Overview(ctx context.Context) *Overview {
	now := s.now()
	o := &Overview{GeneratedAt: now.UTC()}
	active := true

	count := func(name string, dst *int, fn func() (int, error)) {
		n, err := fn()
		if err != nil {
			s.logger.Warn().Err(err).Str("figure", name).Msg("overview count failed")
			o.Unavailable = append(o.Unavailable, name)
			return
		}
		*dst = n
	}

	if u := s.src.Users; u != nil {
		count("total_users", &o.TotalUsers, func() (int, error) { return u.Count(ctx, user.SearchParams{}) })
		count("active_users", &o.ActiveUsers, func() (int, error) { return u.Count(ctx, user.SearchParams{Active: &active}) })
		count("seniors", &o.Seniors, func() (int, error) { return u.Count(ctx, user.SearchParams{Role: auth.RoleSenior}) })
		count("caregivers", &o.Caregivers, func() (int, error) { return u.Count(ctx, user.SearchParams{Role: auth.RoleCaregiver}) })
	}
	if a := s.src.Appointments; a != nil {
		count("upcoming_appointments", &o.UpcomingAppointments, func() (int, error) { return a.CountUpcoming(ctx, now) })
	}
	if b := s.src.Benefits; b != nil {
		count("pending_claims", &o.PendingClaims, func() (int, error) { return b.CountPending(ctx) })
		count("active_benefits", &o.ActiveBenefits, func() (int, error) { return b.CountActive(ctx) })
	}
	if r := s.src.Reminders; r != nil {
		count("active_reminders", &o.ActiveReminders, func() (int, error) { return r.CountActive(ctx) })
	}
	if d := s.src.Devices; d != nil {
		count("registered_devices", &o.RegisteredDevices, func() (int, error) { return d.Count(ctx) })
	}
	if al := s.src.Alerts; al != nil {
		count("alerts_last_24h", &o.AlertsLast24h, func() (int, error) { return al.CountSince(ctx, now.Add(-24*time.Hour)) })
	}
	return o
}
