package benefits

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrNotFound          = errors.New("benefit not found")
	ErrClaimNotFound     = errors.New("claim not found")
	ErrAlreadyClaimed    = errors.New("benefit already has an open claim")
	ErrNotEligible       = errors.New("user does not meet the benefit's minimum age")
	ErrInactive          = errors.New("benefit is not active")
	ErrInvalidTransition = errors.New("claim status does not allow this change")
)

type Repository interface {
	CreateBenefit(ctx context.Context, b *Benefit) error
	GetBenefit(ctx context.Context, id uuid.UUID) (*Benefit, error)
	GetBenefitByTitle(ctx context.Context, title string) (*Benefit, error)
	UpdateBenefit(ctx context.Context, b *Benefit) error
	SetBenefitActive(ctx context.Context, id uuid.UUID, active bool) error
	// ListBenefits returns benefits ordered by title. An empty category
	// matches every category.
	ListBenefits(ctx context.Context, category string, activeOnly bool) ([]*Benefit, error)
	CountActiveBenefits(ctx context.Context) (int, error)

	CreateClaim(ctx context.Context, c *ClaimedBenefit) error
	GetClaim(ctx context.Context, id uuid.UUID) (*ClaimedBenefit, error)
	UpdateClaimStatus(ctx context.Context, c *ClaimedBenefit) error
	// FindOpenClaim returns the user's pending or approved claim for a
	// benefit, or ErrClaimNotFound.
	FindOpenClaim(ctx context.Context, userID, benefitID uuid.UUID) (*ClaimedBenefit, error)
	ListClaimsByUser(ctx context.Context, userID uuid.UUID) ([]*ClaimedBenefit, error)
	ListClaims(ctx context.Context, status string, limit, offset int) ([]*ClaimedBenefit, int, error)
	CountClaims(ctx context.Context, status string) (int, error)
	DeleteClaimsByUser(ctx context.Context, userID uuid.UUID) error
}
