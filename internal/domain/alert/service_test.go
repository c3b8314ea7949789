package alert

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/seniorcare/seniorcare/internal/domain/contact"
	"github.com/seniorcare/seniorcare/internal/domain/user"
	"github.com/seniorcare/seniorcare/internal/platform/notification"
)

// -- Mock Repository --

type mockAlertRepo struct {
	mu     sync.Mutex
	alerts map[uuid.UUID]*EmergencyAlert
	clock  time.Time
}

func newMockAlertRepo() *mockAlertRepo {
	return &mockAlertRepo{
		alerts: make(map[uuid.UUID]*EmergencyAlert),
		clock:  time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC),
	}
}

func (m *mockAlertRepo) Create(_ context.Context, a *EmergencyAlert) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a.ID = uuid.New()
	m.clock = m.clock.Add(time.Minute)
	a.CreatedAt = m.clock
	cp := *a
	m.alerts[a.ID] = &cp
	return nil
}

func (m *mockAlertRepo) GetByID(_ context.Context, id uuid.UUID) (*EmergencyAlert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.alerts[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *mockAlertRepo) filter(keep func(*EmergencyAlert) bool) []*EmergencyAlert {
	m.mu.Lock()
	defer m.mu.Unlock()
	var r []*EmergencyAlert
	for _, a := range m.alerts {
		if keep(a) {
			cp := *a
			r = append(r, &cp)
		}
	}
	sort.Slice(r, func(i, j int) bool { return r[i].CreatedAt.After(r[j].CreatedAt) })
	return r
}

func (m *mockAlertRepo) ListByUser(_ context.Context, userID uuid.UUID, limit, offset int) ([]*EmergencyAlert, int, error) {
	r := m.filter(func(a *EmergencyAlert) bool { return a.UserID == userID })
	return r, len(r), nil
}

func (m *mockAlertRepo) ListRecent(_ context.Context, limit, offset int) ([]*EmergencyAlert, int, error) {
	r := m.filter(func(*EmergencyAlert) bool { return true })
	return r, len(r), nil
}

func (m *mockAlertRepo) CountSince(_ context.Context, since time.Time) (int, error) {
	r := m.filter(func(a *EmergencyAlert) bool { return !a.CreatedAt.Before(since) })
	return len(r), nil
}

func (m *mockAlertRepo) DeleteByUser(_ context.Context, userID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, a := range m.alerts {
		if a.UserID == userID {
			delete(m.alerts, id)
		}
	}
	return nil
}

type fakeUsers map[uuid.UUID]*user.User

func (f fakeUsers) Get(_ context.Context, id uuid.UUID) (*user.User, error) {
	u, ok := f[id]
	if !ok {
		return nil, user.ErrNotFound
	}
	return u, nil
}

type fakeRecipients struct {
	contacts map[uuid.UUID][]*contact.EmergencyContact
	err      error
}

func (f *fakeRecipients) ListAlertRecipients(_ context.Context, userID uuid.UUID) ([]*contact.EmergencyContact, error) {
	return f.contacts[userID], f.err
}

type testEnv struct {
	svc        *Service
	repo       *mockAlertRepo
	sms        *notification.MockSMSSender
	users      fakeUsers
	recipients *fakeRecipients
}

func newTestEnv() *testEnv {
	env := &testEnv{
		repo:       newMockAlertRepo(),
		sms:        &notification.MockSMSSender{},
		users:      fakeUsers{},
		recipients: &fakeRecipients{contacts: make(map[uuid.UUID][]*contact.EmergencyContact)},
	}
	mgr := notification.NewManager(env.sms, nil, nil, nil, zerolog.Nop())
	env.svc = NewService(env.repo, env.users, env.recipients, mgr, zerolog.Nop())
	return env
}

func (env *testEnv) addUser(numbers ...string) uuid.UUID {
	id := uuid.New()
	env.users[id] = &user.User{ID: id, FirstName: "Nena", LastName: "Cruz", IsActive: true}
	for _, n := range numbers {
		env.recipients.contacts[id] = append(env.recipients.contacts[id],
			&contact.EmergencyContact{ID: uuid.New(), UserID: id, PhoneNumber: n, NotifyBySMS: true, IsActive: true})
	}
	return id
}

// -- Tests --

func TestTrigger_AllSent(t *testing.T) {
	env := newTestEnv()
	userID := env.addUser("639171234567", "639181234567")

	a, err := env.svc.Trigger(context.Background(), TriggerRequest{
		UserID: userID, Message: "Fell down", LocationText: ptr("Home"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.Status != StatusSent || a.RecipientCount != 2 || a.SentCount != 2 {
		t.Errorf("unexpected alert: %+v", a)
	}
	calls := env.sms.Calls()
	if len(calls) != 2 || calls[0].To != "639171234567" || calls[1].To != "639181234567" {
		t.Fatalf("unexpected sms calls: %+v", calls)
	}
	want := "EMERGENCY ALERT from Nena Cruz: Fell down Location: Home"
	if calls[0].Body != want || a.Message != want {
		t.Errorf("expected body %q, got %q", want, calls[0].Body)
	}
	if _, ok := env.repo.alerts[a.ID]; !ok {
		t.Error("expected alert to be stored")
	}
}

func TestTrigger_PartialFailureContinues(t *testing.T) {
	env := newTestEnv()
	userID := env.addUser("639171234567", "639181234567", "639191234567")
	env.sms.FailFor = map[string]bool{"639171234567": true}

	a, err := env.svc.Trigger(context.Background(), TriggerRequest{UserID: userID})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.Status != StatusPartial || a.SentCount != 2 {
		t.Errorf("expected partial with 2 sent, got %s/%d", a.Status, a.SentCount)
	}
	if len(env.sms.Calls()) != 3 {
		t.Errorf("expected every recipient to be attempted, got %d", len(env.sms.Calls()))
	}
}

func TestTrigger_AllFailed(t *testing.T) {
	env := newTestEnv()
	userID := env.addUser("639171234567")
	env.sms.ShouldFail = true

	a, err := env.svc.Trigger(context.Background(), TriggerRequest{UserID: userID})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.Status != StatusFailed {
		t.Errorf("expected failed, got %s", a.Status)
	}
}

func TestTrigger_NoRecipients(t *testing.T) {
	env := newTestEnv()
	userID := env.addUser()

	a, err := env.svc.Trigger(context.Background(), TriggerRequest{UserID: userID})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.Status != StatusNoRecipients || len(env.sms.Calls()) != 0 {
		t.Errorf("unexpected alert: %+v", a)
	}
	if len(env.repo.alerts) != 1 {
		t.Error("alert without recipients should still be stored")
	}
}

func TestTrigger_Validation(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	userID := env.addUser("639171234567")

	if _, err := env.svc.Trigger(ctx, TriggerRequest{}); err == nil {
		t.Error("expected error for missing user_id")
	}
	if _, err := env.svc.Trigger(ctx, TriggerRequest{UserID: userID, Latitude: ptr(14.0)}); err == nil {
		t.Error("expected error for latitude without longitude")
	}
	if _, err := env.svc.Trigger(ctx, TriggerRequest{UserID: userID, Latitude: ptr(91.0), Longitude: ptr(0.0)}); err == nil {
		t.Error("expected error for out of range latitude")
	}
	if _, err := env.svc.Trigger(ctx, TriggerRequest{UserID: uuid.New()}); !errors.Is(err, user.ErrNotFound) {
		t.Errorf("expected user.ErrNotFound, got %v", err)
	}
	env.recipients.err = errors.New("db down")
	if _, err := env.svc.Trigger(ctx, TriggerRequest{UserID: userID}); err == nil {
		t.Error("expected error when recipients cannot be loaded")
	}
	if len(env.sms.Calls()) != 0 {
		t.Error("no sms should be sent on validation failure")
	}
}

func TestForward(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	userID := env.addUser("639171234567")

	n, err := env.svc.Forward(ctx, userID, "0917 123 4567", "  Please call me  ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n == nil || n.Status != notification.StatusSent {
		t.Errorf("unexpected notification: %+v", n)
	}
	calls := env.sms.Calls()
	if len(calls) != 1 || calls[0].To != "639171234567" || calls[0].Body != "Please call me" {
		t.Errorf("unexpected sms calls: %+v", calls)
	}

	if _, err := env.svc.Forward(ctx, userID, "12345", "hi"); err == nil {
		t.Error("expected error for invalid number")
	}
	if _, err := env.svc.Forward(ctx, userID, "09171234567", " "); err == nil {
		t.Error("expected error for empty message")
	}
	env.svc.Forward(ctx, userID, "09171234567", strings.Repeat("a", 600))
	calls = env.sms.Calls()
	if got := len(calls[len(calls)-1].Body); got != MaxMessageLength {
		t.Errorf("expected forwarded body capped at %d, got %d", MaxMessageLength, got)
	}
	if len(env.repo.alerts) != 0 {
		t.Error("forward should not record an alert")
	}
}

func TestForward_OnlyToOwnContacts(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	userID := env.addUser("639171234567")
	other := env.addUser("639181112222")

	if _, err := env.svc.Forward(ctx, userID, "0918 111 2222", "hello"); !errors.Is(err, ErrRecipientNotAllowed) {
		t.Errorf("another user's contact: expected ErrRecipientNotAllowed, got %v", err)
	}
	if _, err := env.svc.Forward(ctx, uuid.New(), "0917 123 4567", "hello"); !errors.Is(err, ErrRecipientNotAllowed) {
		t.Errorf("user without contacts: expected ErrRecipientNotAllowed, got %v", err)
	}
	if len(env.sms.Calls()) != 0 {
		t.Fatalf("no sms should be sent, got %+v", env.sms.Calls())
	}

	env.recipients.err = errors.New("db down")
	if _, err := env.svc.Forward(ctx, other, "0918 111 2222", "hello"); err == nil || errors.Is(err, ErrRecipientNotAllowed) {
		t.Errorf("expected lookup error, got %v", err)
	}
	env.recipients.err = nil

	if _, err := env.svc.Forward(ctx, uuid.Nil, "0999 000 1111", "maintenance notice"); err != nil {
		t.Errorf("unrestricted forward: %v", err)
	}
	if len(env.sms.Calls()) != 1 {
		t.Errorf("expected one sms, got %d", len(env.sms.Calls()))
	}
}

func TestListAndCount(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	a := env.addUser("639171234567")
	b := env.addUser("639181234567")
	env.svc.Trigger(ctx, TriggerRequest{UserID: a})
	env.svc.Trigger(ctx, TriggerRequest{UserID: a})
	env.svc.Trigger(ctx, TriggerRequest{UserID: b})

	items, total, _ := env.svc.ListByUser(ctx, a, 20, 0)
	if total != 2 || !items[0].CreatedAt.After(items[1].CreatedAt) {
		t.Errorf("expected 2 alerts newest first, got %+v", items)
	}
	_, total, _ = env.svc.ListRecent(ctx, 20, 0)
	if total != 3 {
		t.Errorf("expected 3 recent alerts, got %d", total)
	}
	n, _ := env.svc.CountSince(ctx, time.Date(2024, 6, 1, 9, 2, 0, 0, time.UTC))
	if n != 2 {
		t.Errorf("expected 2 alerts since 9:02, got %d", n)
	}

	env.svc.DeleteByUser(ctx, a)
	_, total, _ = env.svc.ListRecent(ctx, 20, 0)
	if total != 1 {
		t.Errorf("expected 1 alert after delete, got %d", total)
	}
}
