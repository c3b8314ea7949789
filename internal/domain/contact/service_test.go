package contact

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// -- Mock Repository --

type mockContactRepo struct {
	mu    sync.Mutex
	store map[uuid.UUID]*EmergencyContact
}

func newMockContactRepo() *mockContactRepo {
	return &mockContactRepo{store: make(map[uuid.UUID]*EmergencyContact)}
}

func (m *mockContactRepo) Create(_ context.Context, c *EmergencyContact) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c.ID = uuid.New()
	c.IsActive = true
	c.CreatedAt = time.Now()
	cp := *c
	m.store[c.ID] = &cp
	return nil
}

func (m *mockContactRepo) GetByID(_ context.Context, id uuid.UUID) (*EmergencyContact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.store[id]
	if !ok || !c.IsActive {
		return nil, ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *mockContactRepo) Update(_ context.Context, c *EmergencyContact) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.store[c.ID]; !ok {
		return ErrNotFound
	}
	cp := *c
	m.store[c.ID] = &cp
	return nil
}

func (m *mockContactRepo) SetPrimary(_ context.Context, userID, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.store {
		if c.UserID == userID && c.IsActive {
			c.IsPrimary = c.ID == id
			n++
		}
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (m *mockContactRepo) SoftDelete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.store[id]
	if !ok || !c.IsActive {
		return ErrNotFound
	}
	c.IsActive = false
	c.IsPrimary = false
	return nil
}

func (m *mockContactRepo) ListByUser(_ context.Context, userID uuid.UUID) ([]*EmergencyContact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var r []*EmergencyContact
	for _, c := range m.store {
		if c.UserID == userID && c.IsActive {
			cp := *c
			r = append(r, &cp)
		}
	}
	sort.Slice(r, func(i, j int) bool {
		if r[i].IsPrimary != r[j].IsPrimary {
			return r[i].IsPrimary
		}
		return r[i].Priority < r[j].Priority
	})
	return r, nil
}

func (m *mockContactRepo) DeleteByUser(_ context.Context, userID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, c := range m.store {
		if c.UserID == userID {
			delete(m.store, id)
		}
	}
	return nil
}

func newTestService() (*Service, *mockContactRepo) {
	repo := newMockContactRepo()
	return NewService(repo, zerolog.Nop()), repo
}

func newContact(userID uuid.UUID, name, number string) *EmergencyContact {
	return &EmergencyContact{UserID: userID, Name: name, PhoneNumber: number, NotifyBySMS: true}
}

// -- Tests --

func TestCreate_Validation(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	userID := uuid.New()

	if err := svc.Create(ctx, newContact(uuid.Nil, "Ana", "09171234567")); err == nil {
		t.Error("expected error for missing user_id")
	}
	if err := svc.Create(ctx, newContact(userID, " ", "09171234567")); err == nil {
		t.Error("expected error for blank name")
	}
	if err := svc.Create(ctx, newContact(userID, "Ana", "")); err == nil {
		t.Error("expected error for missing phone")
	}
	if err := svc.Create(ctx, newContact(userID, "Ana", "12345")); err == nil {
		t.Error("expected error for invalid phone")
	}
}

func TestCreate_NormalizesPhone(t *testing.T) {
	svc, _ := newTestService()
	c := newContact(uuid.New(), "Ana", "0917-123-4567")
	if err := svc.Create(context.Background(), c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.PhoneNumber != "639171234567" {
		t.Errorf("expected normalized number, got %s", c.PhoneNumber)
	}
	if c.DisplayPhone() != "+63 917 123 4567" {
		t.Errorf("unexpected display phone %q", c.DisplayPhone())
	}
}

func TestCreate_FirstContactIsPrimary(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	userID := uuid.New()

	first := newContact(userID, "Ana", "09171234567")
	second := newContact(userID, "Ben", "09181234567")
	svc.Create(ctx, first)
	svc.Create(ctx, second)

	if !first.IsPrimary {
		t.Error("first contact should be primary")
	}
	if second.IsPrimary {
		t.Error("second contact should not be primary")
	}
	if first.Priority != 1 || second.Priority != 2 {
		t.Errorf("unexpected priorities %d, %d", first.Priority, second.Priority)
	}
}

func TestCreate_ExplicitPrimaryClearsOthers(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	userID := uuid.New()

	first := newContact(userID, "Ana", "09171234567")
	svc.Create(ctx, first)
	second := newContact(userID, "Ben", "09181234567")
	second.IsPrimary = true
	svc.Create(ctx, second)

	list, _ := svc.ListByUser(ctx, userID)
	if len(list) != 2 || list[0].ID != second.ID || list[1].IsPrimary {
		t.Errorf("expected only %s primary, got %+v", second.ID, list)
	}
}

func TestSetPrimary(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	userID := uuid.New()

	first := newContact(userID, "Ana", "09171234567")
	second := newContact(userID, "Ben", "09181234567")
	svc.Create(ctx, first)
	svc.Create(ctx, second)

	if _, err := svc.SetPrimary(ctx, second.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, _ := svc.Get(ctx, first.ID)
	if got.IsPrimary {
		t.Error("previous primary should be cleared")
	}
	got, _ = svc.Get(ctx, second.ID)
	if !got.IsPrimary {
		t.Error("expected new primary")
	}
}

func TestUpdate(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	c := newContact(uuid.New(), "Ana", "09171234567")
	svc.Create(ctx, c)

	upd := *c
	upd.Name = "Ana Cruz"
	upd.PhoneNumber = "+63 918 765 4321"
	upd.NotifyBySMS = false
	got, err := svc.Update(ctx, &upd)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Name != "Ana Cruz" || got.PhoneNumber != "639187654321" || got.NotifyBySMS {
		t.Errorf("unexpected update: %+v", got)
	}
	if !got.IsPrimary {
		t.Error("update should not change primary status")
	}

	upd.PhoneNumber = "bogus"
	if _, err := svc.Update(ctx, &upd); err == nil {
		t.Error("expected error for invalid phone")
	}
}

func TestSoftDelete_PromotesNextPrimary(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	userID := uuid.New()

	first := newContact(userID, "Ana", "09171234567")
	second := newContact(userID, "Ben", "09181234567")
	third := newContact(userID, "Cara", "09191234567")
	svc.Create(ctx, first)
	svc.Create(ctx, second)
	svc.Create(ctx, third)

	if err := svc.SoftDelete(ctx, first.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.Get(ctx, first.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	list, _ := svc.ListByUser(ctx, userID)
	if len(list) != 2 || list[0].ID != second.ID || !list[0].IsPrimary {
		t.Errorf("expected %s promoted to primary, got %+v", second.ID, list[0])
	}
}

func TestListAlertRecipients(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	userID := uuid.New()

	a := newContact(userID, "Ana", "09171234567")
	b := newContact(userID, "Ben", "09181234567")
	b.NotifyBySMS = false
	c := newContact(userID, "Cara", "09191234567")
	svc.Create(ctx, a)
	svc.Create(ctx, b)
	svc.Create(ctx, c)
	svc.Create(ctx, newContact(uuid.New(), "Other", "09201234567"))

	got, err := svc.ListAlertRecipients(ctx, userID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || got[0].ID != a.ID || got[1].ID != c.ID {
		t.Errorf("unexpected recipients: %+v", got)
	}
}
