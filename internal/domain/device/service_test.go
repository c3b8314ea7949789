package device

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/seniorcare/seniorcare/internal/platform/notification"
)

// -- Mock Repository --

type mockDeviceRepo struct {
	mu    sync.Mutex
	store map[string]*DeviceToken
}

func newMockDeviceRepo() *mockDeviceRepo {
	return &mockDeviceRepo{store: make(map[string]*DeviceToken)}
}

func (m *mockDeviceRepo) Upsert(_ context.Context, d *DeviceToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	if existing, ok := m.store[d.Token]; ok {
		existing.UserID = d.UserID
		existing.Platform = d.Platform
		existing.LastSeenAt = now
		*d = *existing
		return nil
	}
	d.ID = uuid.New()
	d.CreatedAt = now
	d.LastSeenAt = now
	cp := *d
	m.store[d.Token] = &cp
	return nil
}

func (m *mockDeviceRepo) DeleteByToken(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.store[token]; !ok {
		return ErrNotFound
	}
	delete(m.store, token)
	return nil
}

func (m *mockDeviceRepo) ListByUser(_ context.Context, userID uuid.UUID) ([]*DeviceToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var r []*DeviceToken
	for _, d := range m.store {
		if d.UserID == userID {
			r = append(r, d)
		}
	}
	sort.Slice(r, func(i, j int) bool { return r[i].Token < r[j].Token })
	return r, nil
}

func (m *mockDeviceRepo) DeleteByUser(_ context.Context, userID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for token, d := range m.store {
		if d.UserID == userID {
			delete(m.store, token)
		}
	}
	return nil
}

func (m *mockDeviceRepo) Count(_ context.Context) (int, error) {
	return len(m.store), nil
}

func newTestService() *Service {
	return NewService(newMockDeviceRepo())
}

var _ notification.TokenStore = (*Service)(nil)

func TestRegister_DefaultsAndValidation(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	userID := uuid.New()

	d := &DeviceToken{UserID: userID, Token: "  fcm-token-1 "}
	if err := svc.Register(ctx, d); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Token != "fcm-token-1" || d.Platform != PlatformAndroid {
		t.Errorf("unexpected device: %+v", d)
	}
	if d.ID == uuid.Nil {
		t.Error("expected id to be set")
	}

	if err := svc.Register(ctx, &DeviceToken{UserID: userID}); err == nil {
		t.Error("expected error for missing token")
	}
	if err := svc.Register(ctx, &DeviceToken{Token: "x"}); err == nil {
		t.Error("expected error for missing user")
	}
	if err := svc.Register(ctx, &DeviceToken{UserID: userID, Token: "x", Platform: "symbian"}); err == nil {
		t.Error("expected error for unknown platform")
	}
}

func TestRegister_UpsertMovesToken(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	first, second := uuid.New(), uuid.New()

	svc.Register(ctx, &DeviceToken{UserID: first, Token: "shared", Platform: "IOS"})
	svc.Register(ctx, &DeviceToken{UserID: second, Token: "shared", Platform: "ios"})

	if tokens, _ := svc.TokensForUser(ctx, first); len(tokens) != 0 {
		t.Errorf("token should have moved away from first user, got %v", tokens)
	}
	tokens, _ := svc.TokensForUser(ctx, second)
	if len(tokens) != 1 || tokens[0] != "shared" {
		t.Errorf("unexpected tokens: %v", tokens)
	}
	if n, _ := svc.Count(ctx); n != 1 {
		t.Errorf("expected a single registration, got %d", n)
	}
}

func TestUnregister(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	userID := uuid.New()
	svc.Register(ctx, &DeviceToken{UserID: userID, Token: "a"})
	svc.Register(ctx, &DeviceToken{UserID: userID, Token: "b"})

	if err := svc.RemoveToken(ctx, "a"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := svc.Unregister(ctx, "unknown"); err != nil {
		t.Errorf("unknown token should not error: %v", err)
	}
	tokens, _ := svc.TokensForUser(ctx, userID)
	if len(tokens) != 1 || tokens[0] != "b" {
		t.Errorf("unexpected tokens: %v", tokens)
	}

	if err := svc.DeleteByUser(ctx, userID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if items, _ := svc.ListByUser(ctx, userID); len(items) != 0 {
		t.Errorf("expected no devices, got %d", len(items))
	}
}
