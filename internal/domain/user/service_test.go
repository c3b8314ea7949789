package user

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/seniorcare/seniorcare/internal/platform/auth"
	"github.com/seniorcare/seniorcare/internal/platform/websocket"
)

// -- Mock Repository --

type mockUserRepo struct {
	mu    sync.Mutex
	store map[uuid.UUID]*User
	// getErr, when set, is returned by GetByID.
	getErr error
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{store: make(map[uuid.UUID]*User)}
}

func (m *mockUserRepo) Create(_ context.Context, u *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.store {
		if existing.Email == u.Email {
			return ErrEmailTaken
		}
	}
	u.ID = uuid.New()
	u.CreatedAt = time.Now()
	u.UpdatedAt = u.CreatedAt
	cp := *u
	m.store[u.ID] = &cp
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id uuid.UUID) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	u, ok := m.store[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.store {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *mockUserRepo) Update(_ context.Context, u *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.store[u.ID]; !ok {
		return ErrNotFound
	}
	cp := *u
	m.store[u.ID] = &cp
	return nil
}

func (m *mockUserRepo) modify(id uuid.UUID, fn func(u *User)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.store[id]
	if !ok {
		return ErrNotFound
	}
	fn(u)
	return nil
}

func (m *mockUserRepo) UpdatePassword(_ context.Context, id uuid.UUID, hash string) error {
	return m.modify(id, func(u *User) { u.PasswordHash = hash })
}

func (m *mockUserRepo) SetActive(_ context.Context, id uuid.UUID, active bool) error {
	return m.modify(id, func(u *User) { u.IsActive = active })
}

func (m *mockUserRepo) TouchLogin(_ context.Context, id uuid.UUID, at time.Time) error {
	return m.modify(id, func(u *User) { u.LastLoginAt = &at })
}

func (m *mockUserRepo) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.store[id]; !ok {
		return ErrNotFound
	}
	delete(m.store, id)
	return nil
}

func (m *mockUserRepo) matches(u *User, p SearchParams) bool {
	if p.Role != "" && u.Role != p.Role {
		return false
	}
	if p.Active != nil && u.IsActive != *p.Active {
		return false
	}
	if p.Query != "" {
		q := strings.ToLower(p.Query)
		if !strings.Contains(strings.ToLower(u.FirstName+" "+u.LastName+" "+u.Email), q) {
			return false
		}
	}
	return true
}

func (m *mockUserRepo) Search(_ context.Context, p SearchParams, limit, offset int) ([]*User, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var r []*User
	for _, u := range m.store {
		if m.matches(u, p) {
			r = append(r, u)
		}
	}
	return r, len(r), nil
}

func (m *mockUserRepo) Count(ctx context.Context, p SearchParams) (int, error) {
	_, total, err := m.Search(ctx, p, 0, 0)
	return total, err
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []websocket.Event
}

func (p *recordingPublisher) Publish(_ context.Context, ev websocket.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

const testSecret = "0123456789abcdef0123456789abcdef"

func newTestService() (*Service, *mockUserRepo) {
	repo := newMockUserRepo()
	issuer := auth.NewTokenIssuer([]byte(testSecret), "seniorcare", time.Hour)
	return NewService(repo, issuer, zerolog.Nop()), repo
}

func validRegistration() RegisterRequest {
	return RegisterRequest{
		Email:     "  Lola.Basyang@Example.PH ",
		Password:  "mabuhay123",
		FirstName: "Lola",
		LastName:  "Basyang",
	}
}

func TestRegister_Success(t *testing.T) {
	svc, repo := newTestService()
	pub := &recordingPublisher{}
	svc.SetPublisher(pub)

	u, err := svc.Register(context.Background(), validRegistration())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u.Email != "lola.basyang@example.ph" {
		t.Errorf("email not normalized: %q", u.Email)
	}
	if u.Role != auth.RoleSenior {
		t.Errorf("expected default role senior, got %q", u.Role)
	}
	if !u.IsActive {
		t.Error("new users should be active")
	}
	if repo.store[u.ID].PasswordHash == "mabuhay123" || repo.store[u.ID].PasswordHash == "" {
		t.Error("password should be stored hashed")
	}
	if len(pub.events) != 1 || pub.events[0].Type != websocket.EventCreated {
		t.Errorf("expected one created event, got %+v", pub.events)
	}
}

func TestRegister_Validation(t *testing.T) {
	svc, _ := newTestService()
	cases := map[string]func(r *RegisterRequest){
		"missing email":  func(r *RegisterRequest) { r.Email = "" },
		"invalid email":  func(r *RegisterRequest) { r.Email = "not-an-email" },
		"short password": func(r *RegisterRequest) { r.Password = "short" },
		"no first name":  func(r *RegisterRequest) { r.FirstName = " " },
		"no last name":   func(r *RegisterRequest) { r.LastName = "" },
		"bad role":       func(r *RegisterRequest) { r.Role = "doctor" },
	}
	for name, mutate := range cases {
		req := validRegistration()
		mutate(&req)
		if _, err := svc.Register(context.Background(), req); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	svc, _ := newTestService()
	if _, err := svc.Register(context.Background(), validRegistration()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err := svc.Register(context.Background(), validRegistration())
	if !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

func TestAuthenticate(t *testing.T) {
	svc, repo := newTestService()
	u, _ := svc.Register(context.Background(), validRegistration())

	res, err := svc.Authenticate(context.Background(), "LOLA.basyang@example.ph", "mabuhay123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Token == "" || res.User.ID != u.ID {
		t.Errorf("unexpected result: %+v", res)
	}
	if repo.store[u.ID].LastLoginAt == nil {
		t.Error("expected last login to be recorded")
	}

	claims, err := svc.issuer.Parse(res.Token)
	if err != nil {
		t.Fatalf("token should parse: %v", err)
	}
	if claims.Subject != u.ID.String() || len(claims.Roles) != 1 || claims.Roles[0] != auth.RoleSenior {
		t.Errorf("unexpected claims: %+v", claims)
	}
}

func TestAuthenticate_Failures(t *testing.T) {
	svc, _ := newTestService()
	u, _ := svc.Register(context.Background(), validRegistration())

	if _, err := svc.Authenticate(context.Background(), "nobody@example.ph", "mabuhay123"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("unknown email: expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := svc.Authenticate(context.Background(), u.Email, "wrong-password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong password: expected ErrInvalidCredentials, got %v", err)
	}

	if _, err := svc.Deactivate(context.Background(), u.ID); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if _, err := svc.Authenticate(context.Background(), u.Email, "mabuhay123"); !errors.Is(err, ErrInactive) {
		t.Errorf("inactive: expected ErrInactive, got %v", err)
	}

	if _, err := svc.Reactivate(context.Background(), u.ID); err != nil {
		t.Fatalf("reactivate: %v", err)
	}
	if _, err := svc.Authenticate(context.Background(), u.Email, "mabuhay123"); err != nil {
		t.Errorf("reactivated user should log in: %v", err)
	}
}

func TestLogout_RevokesToken(t *testing.T) {
	svc, _ := newTestService()
	store := auth.NewTokenRevocationStore(time.Hour)
	defer store.Close()
	svc.SetRevocations(store)

	u, _ := svc.Register(context.Background(), validRegistration())
	res, _ := svc.IssueToken(u)
	claims, err := svc.issuer.Parse(res.Token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	ctx := context.WithValue(context.Background(), auth.ClaimsKey, claims)
	if err := svc.Logout(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !store.IsRevoked(claims.ID) {
		t.Error("expected token to be revoked")
	}
	if err := svc.Logout(context.Background()); err == nil {
		t.Error("expected error without claims")
	}
}

func TestDeactivate_RevokesIssuedTokens(t *testing.T) {
	svc, _ := newTestService()
	store := auth.NewTokenRevocationStore(time.Hour)
	defer store.Close()
	svc.SetRevocations(store)

	u, err := svc.Register(context.Background(), validRegistration())
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	claims := &auth.Claims{}
	claims.Subject = u.ID.String()
	claims.IssuedAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))

	if store.IsRevokedClaims(claims) {
		t.Fatal("token should be valid before deactivation")
	}
	if _, err := svc.Deactivate(context.Background(), u.ID); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if !store.IsRevokedClaims(claims) {
		t.Error("expected earlier tokens to be revoked after deactivation")
	}
}

func TestUpdateProfile(t *testing.T) {
	svc, _ := newTestService()
	u, _ := svc.Register(context.Background(), validRegistration())

	city := "Quezon City"
	first := "Lolita"
	updated, err := svc.UpdateProfile(context.Background(), u.ID, ProfileUpdate{FirstName: &first, City: &city})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.FirstName != "Lolita" || updated.LastName != "Basyang" {
		t.Errorf("unexpected names: %q %q", updated.FirstName, updated.LastName)
	}
	if updated.City == nil || *updated.City != city {
		t.Errorf("city not updated: %v", updated.City)
	}

	empty := " "
	if _, err := svc.UpdateProfile(context.Background(), u.ID, ProfileUpdate{LastName: &empty}); err == nil {
		t.Error("expected error for empty last name")
	}
	if _, err := svc.UpdateProfile(context.Background(), uuid.New(), ProfileUpdate{}); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestChangePassword(t *testing.T) {
	svc, _ := newTestService()
	u, _ := svc.Register(context.Background(), validRegistration())

	if err := svc.ChangePassword(context.Background(), u.ID, "wrong-one", "newpassword1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials, got %v", err)
	}
	if err := svc.ChangePassword(context.Background(), u.ID, "mabuhay123", "short"); err == nil {
		t.Error("expected error for short password")
	}
	if err := svc.ChangePassword(context.Background(), u.ID, "mabuhay123", "newpassword1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.Authenticate(context.Background(), u.Email, "newpassword1"); err != nil {
		t.Errorf("new password should work: %v", err)
	}
}

func TestSearch(t *testing.T) {
	svc, _ := newTestService()
	svc.Register(context.Background(), validRegistration())
	cg := validRegistration()
	cg.Email = "ate.maria@example.ph"
	cg.FirstName = "Maria"
	cg.Role = auth.RoleCaregiver
	svc.Register(context.Background(), cg)

	items, total, err := svc.Search(context.Background(), SearchParams{Role: auth.RoleCaregiver}, 20, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 1 || items[0].FirstName != "Maria" {
		t.Errorf("unexpected result: %d", total)
	}
	n, _ := svc.Count(context.Background(), SearchParams{Query: "basyang"})
	if n != 2 {
		t.Errorf("expected 2 matches for last name, got %d", n)
	}
}

func TestDeleteWithRelated(t *testing.T) {
	svc, repo := newTestService()
	u, _ := svc.Register(context.Background(), validRegistration())

	var order []string
	ok := func(name string) RelatedCleaner {
		return NewCleaner(name, func(_ context.Context, id uuid.UUID) error {
			if id != u.ID {
				t.Errorf("%s: got id %s", name, id)
			}
			order = append(order, name)
			return nil
		})
	}
	svc.AddCleaner(ok("health_records"))
	svc.AddCleaner(NewCleaner("reminders", func(context.Context, uuid.UUID) error {
		order = append(order, "reminders")
		return errors.New("connection reset")
	}))
	svc.AddCleaner(ok("device_tokens"))

	err := svc.DeleteWithRelated(context.Background(), u.ID)
	if err == nil || !strings.Contains(err.Error(), "reminders: connection reset") {
		t.Fatalf("expected joined reminders error, got %v", err)
	}
	if strings.Join(order, ",") != "health_records,reminders,device_tokens" {
		t.Errorf("unexpected order: %v", order)
	}
	if _, exists := repo.store[u.ID]; exists {
		t.Error("user should be deleted even when a cleaner fails")
	}
}

func TestDeleteWithRelated_UnknownUser(t *testing.T) {
	svc, _ := newTestService()
	err := svc.DeleteWithRelated(context.Background(), uuid.New())
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
