package admin

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/seniorcare/seniorcare/internal/domain/user"
	"github.com/seniorcare/seniorcare/internal/platform/auth"
)

var testNow = time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

type fakeUsers struct{ err error }

func (f fakeUsers) Count(_ context.Context, p user.SearchParams) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	switch {
	case p.Active != nil:
		return 40, nil
	case p.Role == auth.RoleSenior:
		return 30, nil
	case p.Role == auth.RoleCaregiver:
		return 12, nil
	}
	return 45, nil
}

type fakeAppointments struct{ at time.Time }

func (f *fakeAppointments) CountUpcoming(_ context.Context, now time.Time) (int, error) {
	f.at = now
	return 7, nil
}

type fakeBenefits struct{}

func (fakeBenefits) CountPending(context.Context) (int, error) { return 3, nil }
func (fakeBenefits) CountActive(context.Context) (int, error)  { return 9, nil }

type fakeAlerts struct{ since time.Time }

func (f *fakeAlerts) CountSince(_ context.Context, since time.Time) (int, error) {
	f.since = since
	return 2, nil
}

type fakeCount int

func (f fakeCount) CountActive(context.Context) (int, error) { return int(f), nil }
func (f fakeCount) Count(context.Context) (int, error)       { return int(f), nil }

func newTestService(src Sources) *Service {
	svc := NewService(src, zerolog.Nop())
	svc.now = func() time.Time { return testNow }
	return svc
}

func TestOverview(t *testing.T) {
	appts, alerts := &fakeAppointments{}, &fakeAlerts{}
	svc := newTestService(Sources{
		Users:        fakeUsers{},
		Appointments: appts,
		Benefits:     fakeBenefits{},
		Alerts:       alerts,
		Reminders:    fakeCount(11),
		Devices:      fakeCount(5),
	})

	o := svc.Overview(context.Background())
	want := Overview{
		TotalUsers: 45, ActiveUsers: 40, Seniors: 30, Caregivers: 12,
		UpcomingAppointments: 7, PendingClaims: 3, ActiveBenefits: 9,
		ActiveReminders: 11, RegisteredDevices: 5, AlertsLast24h: 2,
		GeneratedAt: testNow,
	}
	if o.TotalUsers != want.TotalUsers || o.ActiveUsers != want.ActiveUsers || o.Seniors != want.Seniors ||
		o.Caregivers != want.Caregivers || o.UpcomingAppointments != want.UpcomingAppointments ||
		o.PendingClaims != want.PendingClaims || o.ActiveBenefits != want.ActiveBenefits ||
		o.ActiveReminders != want.ActiveReminders || o.RegisteredDevices != want.RegisteredDevices ||
		o.AlertsLast24h != want.AlertsLast24h || !o.GeneratedAt.Equal(want.GeneratedAt) {
		t.Errorf("got %+v, want %+v", o, want)
	}
	if len(o.Unavailable) != 0 {
		t.Errorf("expected no unavailable figures, got %v", o.Unavailable)
	}
	if !appts.at.Equal(testNow) {
		t.Errorf("expected upcoming counted from now, got %s", appts.at)
	}
	if !alerts.since.Equal(testNow.Add(-24 * time.Hour)) {
		t.Errorf("expected alerts counted from 24h ago, got %s", alerts.since)
	}
}

func TestOverview_FailedCountIsReported(t *testing.T) {
	svc := newTestService(Sources{
		Users:    fakeUsers{err: errors.New("db down")},
		Benefits: fakeBenefits{},
	})

	o := svc.Overview(context.Background())
	if len(o.Unavailable) != 4 || o.Unavailable[0] != "total_users" {
		t.Errorf("expected the four user figures to be unavailable, got %v", o.Unavailable)
	}
	if o.PendingClaims != 3 || o.TotalUsers != 0 {
		t.Errorf("unexpected overview: %+v", o)
	}
}
