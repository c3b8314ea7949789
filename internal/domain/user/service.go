package user

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/seniorcare/seniorcare/internal/platform/auth"
	"github.com/seniorcare/seniorcare/internal/platform/db"
	"github.com/seniorcare/seniorcare/internal/platform/websocket"
)

const MinPasswordLength = 8

// RelatedCleaner removes a user's documents from one collection.
type RelatedCleaner interface {
	Collection() string
	DeleteByUser(ctx context.Context, userID uuid.UUID) error
}

type cleanerFunc struct {
	collection string
	fn         func(ctx context.Context, userID uuid.UUID) error
}

func (c cleanerFunc) Collection() string { return c.collection }

func (c cleanerFunc) DeleteByUser(ctx context.Context, userID uuid.UUID) error {
	return c.fn(ctx, userID)
}

// NewCleaner adapts a delete function into a RelatedCleaner.
func NewCleaner(collection string, fn func(ctx context.Context, userID uuid.UUID) error) RelatedCleaner {
	return cleanerFunc{collection: collection, fn: fn}
}

type Service struct {
	users       Repository
	issuer      *auth.TokenIssuer
	revocations *auth.TokenRevocationStore
	publisher   websocket.EventPublisher
	cleaners    []RelatedCleaner
	logger      zerolog.Logger
	now         func() time.Time
}

func NewService(users Repository, issuer *auth.TokenIssuer, logger zerolog.Logger) *Service {
	return &Service{
		users:     users,
		issuer:    issuer,
		publisher: websocket.NopPublisher{},
		logger:    logger,
		now:       time.Now,
	}
}

func (s *Service) SetPublisher(p websocket.EventPublisher) {
	s.publisher = p
}

func (s *Service) SetRevocations(r *auth.TokenRevocationStore) {
	s.revocations = r
}

// AddCleaner registers a collection to purge in DeleteWithRelated. Cleaners
// run in registration order.
func (s *Service) AddCleaner(c RelatedCleaner) {
	s.cleaners = append(s.cleaners, c)
}

func (s *Service) publish(ctx context.Context, eventType string, u *User) {
	ev := websocket.NewEvent(db.CollectionUsers, eventType, u.ID.String(), u.ID.String(), u)
	if err := s.publisher.Publish(ctx, ev); err != nil {
		s.logger.Warn().Err(err).Str("user_id", u.ID.String()).Msg("failed to publish user event")
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *Service) Register(ctx context.Context, req RegisterRequest) (*User, error) {
	email := normalizeEmail(req.Email)
	if email == "" || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("a valid email is required")
	}
	if len(req.Password) < MinPasswordLength {
		return nil, fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	}
	if strings.TrimSpace(req.FirstName) == "" {
		return nil, fmt.Errorf("first_name is required")
	}
	if strings.TrimSpace(req.LastName) == "" {
		return nil, fmt.Errorf("last_name is required")
	}
	role := req.Role
	if role == "" {
		role = auth.RoleSenior
	}
	if !auth.ValidRole(role) {
		return nil, fmt.Errorf("invalid role: %s", role)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := &User{
		Email:           email,
		PasswordHash:    string(hash),
		FirstName:       strings.TrimSpace(req.FirstName),
		LastName:        strings.TrimSpace(req.LastName),
		Phone:           req.Phone,
		BirthDate:       req.BirthDate,
		Gender:          req.Gender,
		Address:         req.Address,
		City:            req.City,
		Province:        req.Province,
		SeniorCitizenID: req.SeniorCitizenID,
		Role:            role,
		IsActive:        true,
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}
	s.logger.Info().Str("user_id", u.ID.String()).Str("role", role).Msg("user registered")
	s.publish(ctx, websocket.EventCreated, u)
	return u, nil
}

// Authenticate verifies the credentials and issues an access token.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*AuthResult, error) {
	u, err := s.users.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}
	if !u.IsActive {
		return nil, ErrInactive
	}

	now := s.now().UTC()
	if err := s.users.TouchLogin(ctx, u.ID, now); err != nil {
		s.logger.Warn().Err(err).Str("user_id", u.ID.String()).Msg("failed to record login time")
	} else {
		u.LastLoginAt = &now
	}
	return s.IssueToken(u)
}

// IssueToken signs a token for an already authenticated user.
func (s *Service) IssueToken(u *User) (*AuthResult, error) {
	if s.issuer == nil {
		return nil, fmt.Errorf("token issuer is not configured")
	}
	token, exp, err := s.issuer.Issue(u.ID.String(), u.Email, []string{u.Role})
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	return &AuthResult{User: u, Token: token, ExpiresAt: exp}, nil
}

// Logout revokes the token carried by ctx until it would have expired.
func (s *Service) Logout(ctx context.Context) error {
	claims := auth.ClaimsFromContext(ctx)
	if claims == nil || claims.ID == "" {
		return fmt.Errorf("no token to revoke")
	}
	if s.revocations == nil {
		return nil
	}
	exp := s.now().Add(24 * time.Hour)
	if claims.ExpiresAt != nil {
		exp = claims.ExpiresAt.Time
	}
	s.revocations.Revoke(claims.ID, claims.Subject, exp)
	return nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.users.GetByID(ctx, id)
}

func (s *Service) UpdateProfile(ctx context.Context, id uuid.UUID, upd ProfileUpdate) (*User, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if upd.FirstName != nil {
		if strings.TrimSpace(*upd.FirstName) == "" {
			return nil, fmt.Errorf("first_name cannot be empty")
		}
		u.FirstName = strings.TrimSpace(*upd.FirstName)
	}
	if upd.LastName != nil {
		if strings.TrimSpace(*upd.LastName) == "" {
			return nil, fmt.Errorf("last_name cannot be empty")
		}
		u.LastName = strings.TrimSpace(*upd.LastName)
	}
	if upd.Phone != nil {
		u.Phone = upd.Phone
	}
	if upd.BirthDate != nil {
		u.BirthDate = upd.BirthDate
	}
	if upd.Gender != nil {
		u.Gender = upd.Gender
	}
	if upd.Address != nil {
		u.Address = upd.Address
	}
	if upd.City != nil {
		u.City = upd.City
	}
	if upd.Province != nil {
		u.Province = upd.Province
	}
	if upd.SeniorCitizenID != nil {
		u.SeniorCitizenID = upd.SeniorCitizenID
	}
	if upd.ProfileImageURL != nil {
		u.ProfileImageURL = upd.ProfileImageURL
	}
	if err := s.users.Update(ctx, u); err != nil {
		return nil, err
	}
	s.publish(ctx, websocket.EventUpdated, u)
	return u, nil
}

func (s *Service) ChangePassword(ctx context.Context, id uuid.UUID, current, next string) error {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if u.PasswordHash == "" {
		// Cached copies carry no hash; re-read by email for the real one.
		if u, err = s.users.GetByEmail(ctx, u.Email); err != nil {
			return err
		}
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(current)) != nil {
		return ErrInvalidCredentials
	}
	if len(next) < MinPasswordLength {
		return fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(next), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return s.users.UpdatePassword(ctx, id, string(hash))
}

func (s *Service) setActive(ctx context.Context, id uuid.UUID, active bool) (*User, error) {
	if err := s.users.SetActive(ctx, id, active); err != nil {
		return nil, err
	}
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, websocket.EventUpdated, u)
	return u, nil
}

// Deactivate soft-deletes the account. Deactivated users cannot log in and
// tokens already issued to them stop working.
func (s *Service) Deactivate(ctx context.Context, id uuid.UUID) (*User, error) {
	u, err := s.setActive(ctx, id, false)
	if err != nil {
		return nil, err
	}
	s.revokeAll(id)
	return u, nil
}

func (s *Service) revokeAll(id uuid.UUID) {
	if s.revocations == nil {
		return
	}
	ttl := 24 * time.Hour
	if s.issuer != nil {
		ttl = s.issuer.TTL()
	}
	s.revocations.RevokeUser(id.String(), ttl)
}

func (s *Service) Reactivate(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.setActive(ctx, id, true)
}

func (s *Service) Search(ctx context.Context, params SearchParams, limit, offset int) ([]*User, int, error) {
	return s.users.Search(ctx, params, limit, offset)
}

func (s *Service) Count(ctx context.Context, params SearchParams) (int, error) {
	return s.users.Count(ctx, params)
}

// DeleteWithRelated purges the user's documents from every registered
// collection and then the user itself. Every step is attempted; failures are
// joined into the returned error.
func (s *Service) DeleteWithRelated(ctx context.Context, id uuid.UUID) error {
	var errs []error
	for _, c := range s.cleaners {
		if err := c.DeleteByUser(ctx, id); err != nil {
			s.logger.Error().Err(err).Str("user_id", id.String()).Str("collection", c.Collection()).
				Msg("failed to delete related documents")
			errs = append(errs, fmt.Errorf("%s: %w", c.Collection(), err))
		}
	}
	if err := s.users.Delete(ctx, id); err != nil {
		errs = append(errs, fmt.Errorf("%s: %w", db.CollectionUsers, err))
	} else {
		s.revokeAll(id)
		s.publish(ctx, websocket.EventDeleted, &User{ID: id})
	}
	return errors.Join(errs...)
}
