package benefits

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/seniorcare/seniorcare/internal/domain/user"
	"github.com/seniorcare/seniorcare/internal/platform/db"
	"github.com/seniorcare/seniorcare/internal/platform/notification"
	"github.com/seniorcare/seniorcare/internal/platform/websocket"
)

type UserLookup interface {
	Get(ctx context.Context, id uuid.UUID) (*user.User, error)
}

// Notifier tells users about claim decisions.
type Notifier interface {
	SendFromTemplate(ctx context.Context, templateID string, data map[string]string, recipient string) (*notification.Notification, error)
}

type Service struct {
	repo      Repository
	users     UserLookup
	notifier  Notifier
	publisher websocket.EventPublisher
	logger    zerolog.Logger
	now       func() time.Time
}

func NewService(repo Repository, users UserLookup, logger zerolog.Logger) *Service {
	return &Service{
		repo:      repo,
		users:     users,
		publisher: websocket.NopPublisher{},
		logger:    logger,
		now:       time.Now,
	}
}

func (s *Service) SetNotifier(n Notifier) {
	s.notifier = n
}

func (s *Service) SetPublisher(p websocket.EventPublisher) {
	s.publisher = p
}

func (s *Service) publish(ctx context.Context, collection, eventType, id, userID string, data interface{}) {
	ev := websocket.NewEvent(collection, eventType, id, userID, data)
	if err := s.publisher.Publish(ctx, ev); err != nil {
		s.logger.Warn().Err(err).Str("collection", collection).Str("id", id).Msg("failed to publish event")
	}
}

func validateBenefit(b *Benefit) error {
	b.Title = strings.TrimSpace(b.Title)
	if b.Title == "" {
		return fmt.Errorf("title is required")
	}
	b.Category = strings.ToLower(strings.TrimSpace(b.Category))
	if b.Category == "" {
		return fmt.Errorf("category is required")
	}
	if b.Amount != nil && *b.Amount < 0 {
		return fmt.Errorf("amount cannot be negative")
	}
	if b.MinimumAge < 0 {
		return fmt.Errorf("minimum_age cannot be negative")
	}
	if b.Requirements == nil {
		b.Requirements = []string{}
	}
	return nil
}

// ListBenefits returns the catalog, optionally including inactive benefits.
func (s *Service) ListBenefits(ctx context.Context, category string, includeInactive bool) ([]*Benefit, error) {
	return s.repo.ListBenefits(ctx, strings.ToLower(category), !includeInactive)
}

func (s *Service) ListActive(ctx context.Context, category string) ([]*Benefit, error) {
	return s.ListBenefits(ctx, category, false)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Benefit, error) {
	return s.repo.GetBenefit(ctx, id)
}

func (s *Service) GetByTitle(ctx context.Context, title string) (*Benefit, error) {
	return s.repo.GetBenefitByTitle(ctx, strings.TrimSpace(title))
}

// Create adds a benefit to the catalog. New benefits are active.
func (s *Service) Create(ctx context.Context, b *Benefit) error {
	if err := validateBenefit(b); err != nil {
		return err
	}
	b.IsActive = true
	if err := s.repo.CreateBenefit(ctx, b); err != nil {
		return err
	}
	s.publish(ctx, db.CollectionBenefits, websocket.EventCreated, b.ID.String(), "", b)
	return nil
}

// Update replaces the editable fields of a benefit. Activation is changed
// through SetActive.
func (s *Service) Update(ctx context.Context, upd *Benefit) (*Benefit, error) {
	b, err := s.repo.GetBenefit(ctx, upd.ID)
	if err != nil {
		return nil, err
	}
	upd.IsActive = b.IsActive
	upd.CreatedAt = b.CreatedAt
	if err := validateBenefit(upd); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateBenefit(ctx, upd); err != nil {
		return nil, err
	}
	s.publish(ctx, db.CollectionBenefits, websocket.EventUpdated, upd.ID.String(), "", upd)
	return upd, nil
}

func (s *Service) SetActive(ctx context.Context, id uuid.UUID, active bool) (*Benefit, error) {
	if err := s.repo.SetBenefitActive(ctx, id, active); err != nil {
		return nil, err
	}
	b, err := s.repo.GetBenefit(ctx, id)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, db.CollectionBenefits, websocket.EventUpdated, id.String(), "", b)
	return b, nil
}

func (s *Service) Deactivate(ctx context.Context, id uuid.UUID) (*Benefit, error) {
	return s.SetActive(ctx, id, false)
}

// ReferenceNumber builds a claim reference of the form SC-YYYYMMDD-XXXXXX.
func ReferenceNumber(at time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", ""))[:6]
	return "SC-" + at.Format("20060102") + "-" + suffix
}

// Claim files a pending claim for a benefit on the user's behalf.
func (s *Service) Claim(ctx context.Context, userID, benefitID uuid.UUID, notes *string) (*ClaimedBenefit, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("user_id is required")
	}
	b, err := s.repo.GetBenefit(ctx, benefitID)
	if err != nil {
		return nil, err
	}
	if !b.IsActive {
		return nil, ErrInactive
	}
	now := s.now()
	if b.MinimumAge > 0 {
		u, err := s.users.Get(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("load user: %w", err)
		}
		if u.Age(now) < b.MinimumAge {
			return nil, ErrNotEligible
		}
	}
	open, err := s.repo.FindOpenClaim(ctx, userID, benefitID)
	if err == nil && open != nil {
		return nil, ErrAlreadyClaimed
	}
	if err != nil && !errors.Is(err, ErrClaimNotFound) {
		return nil, err
	}

	c := &ClaimedBenefit{
		UserID:          userID,
		BenefitID:       benefitID,
		Status:          ClaimPending,
		ReferenceNumber: ReferenceNumber(now),
		Notes:           notes,
		ClaimedAt:       now,
	}
	if err := s.repo.CreateClaim(ctx, c); err != nil {
		return nil, err
	}
	s.publish(ctx, db.CollectionClaimedBenefits, websocket.EventCreated, c.ID.String(), userID.String(), c)
	return c, nil
}

func (s *Service) GetClaim(ctx context.Context, id uuid.UUID) (*ClaimedBenefit, error) {
	return s.repo.GetClaim(ctx, id)
}

// resolve looks up the benefit behind each claim, one lookup per distinct
// benefit. Claims whose benefit is gone keep empty benefit fields.
func (s *Service) resolve(ctx context.Context, claims []*ClaimedBenefit) []ClaimView {
	seen := make(map[uuid.UUID]*Benefit)
	views := make([]ClaimView, len(claims))
	for i, c := range claims {
		b, ok := seen[c.BenefitID]
		if !ok {
			var err error
			b, err = s.repo.GetBenefit(ctx, c.BenefitID)
			if err != nil {
				s.logger.Warn().Err(err).Str("benefit_id", c.BenefitID.String()).Msg("failed to resolve claimed benefit")
			}
			seen[c.BenefitID] = b
		}
		views[i] = ClaimView{ClaimedBenefit: c}
		if b != nil {
			views[i].BenefitTitle = b.Title
			views[i].BenefitCategory = b.Category
			views[i].BenefitAmount = b.FormattedAmount()
		}
	}
	return views
}

func (s *Service) ClaimView(ctx context.Context, c *ClaimedBenefit) ClaimView {
	return s.resolve(ctx, []*ClaimedBenefit{c})[0]
}

func (s *Service) ListClaims(ctx context.Context, userID uuid.UUID) ([]ClaimView, error) {
	claims, err := s.repo.ListClaimsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.resolve(ctx, claims), nil
}

// ListAllClaims is the review queue for admins.
func (s *Service) ListAllClaims(ctx context.Context, status string, limit, offset int) ([]ClaimView, int, error) {
	if status != "" && !ValidClaimStatus(status) {
		return nil, 0, fmt.Errorf("invalid status: %s", status)
	}
	claims, total, err := s.repo.ListClaims(ctx, status, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	return s.resolve(ctx, claims), total, nil
}

// ReviewClaim moves a claim along pending -> approved|rejected and
// approved -> claimed, then tells the user.
func (s *Service) ReviewClaim(ctx context.Context, id uuid.UUID, status string, notes *string) (*ClaimedBenefit, error) {
	if !ValidClaimStatus(status) {
		return nil, fmt.Errorf("invalid status: %s", status)
	}
	c, err := s.repo.GetClaim(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanTransition(c.Status, status) {
		return nil, ErrInvalidTransition
	}
	now := s.now()
	c.Status = status
	c.ReviewedAt = &now
	if notes != nil {
		c.Notes = notes
	}
	if err := s.repo.UpdateClaimStatus(ctx, c); err != nil {
		return nil, err
	}
	s.publish(ctx, db.CollectionClaimedBenefits, websocket.EventUpdated, c.ID.String(), c.UserID.String(), c)
	s.notify(ctx, c)
	return c, nil
}

func (s *Service) notify(ctx context.Context, c *ClaimedBenefit) {
	if s.notifier == nil {
		return
	}
	title := "your benefit"
	if b, err := s.repo.GetBenefit(ctx, c.BenefitID); err == nil {
		title = b.Title
	}
	data := map[string]string{
		"benefit":   title,
		"reference": c.ReferenceNumber,
		"status":    c.Status,
		"claim_id":  c.ID.String(),
	}
	if _, err := s.notifier.SendFromTemplate(ctx, notification.TemplateBenefitClaimUpdate, data, c.UserID.String()); err != nil {
		s.logger.Warn().Err(err).Str("claim_id", c.ID.String()).Msg("failed to notify user of claim update")
	}
}

func (s *Service) CountPending(ctx context.Context) (int, error) {
	return s.repo.CountClaims(ctx, ClaimPending)
}

func (s *Service) CountActive(ctx context.Context) (int, error) {
	return s.repo.CountActiveBenefits(ctx)
}

func (s *Service) DeleteByUser(ctx context.Context, userID uuid.UUID) error {
	return s.repo.DeleteClaimsByUser(ctx, userID)
}
