package benefits

import (
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Claim statuses.
const (
	ClaimPending  = "pending"
	ClaimApproved = "approved"
	ClaimRejected = "rejected"
	ClaimClaimed  = "claimed"
)

func ValidClaimStatus(s string) bool {
	switch s {
	case ClaimPending, ClaimApproved, ClaimRejected, ClaimClaimed:
		return true
	}
	return false
}

// claimTransitions lists the statuses a claim may move to from each status.
var claimTransitions = map[string][]string{
	ClaimPending:  {ClaimApproved, ClaimRejected},
	ClaimApproved: {ClaimClaimed},
}

// CanTransition reports whether a claim may move from one status to another.
func CanTransition(from, to string) bool {
	for _, s := range claimTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// DefaultMinimumAge is the age at which Filipinos qualify as senior citizens.
const DefaultMinimumAge = 60

// Benefit is a government or private program seniors can apply for.
type Benefit struct {
	ID             uuid.UUID `db:"id" json:"id"`
	Title          string    `db:"title" json:"title"`
	Description    string    `db:"description" json:"description"`
	Category       string    `db:"category" json:"category"`
	Agency         *string   `db:"agency" json:"agency,omitempty"`
	Eligibility    *string   `db:"eligibility" json:"eligibility,omitempty"`
	Requirements   []string  `db:"requirements" json:"requirements"`
	Amount         *float64  `db:"amount" json:"amount,omitempty"`
	MinimumAge     int       `db:"minimum_age" json:"minimum_age"`
	ApplicationURL *string   `db:"application_url" json:"application_url,omitempty"`
	ContactInfo    *string   `db:"contact_info" json:"contact_info,omitempty"`
	IsActive       bool      `db:"is_active" json:"is_active"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

var pesoPrinter = message.NewPrinter(language.English)

// FormattedAmount renders the amount in pesos, e.g. "₱1,000.00", or "N/A"
// when the benefit has no fixed amount.
func (b *Benefit) FormattedAmount() string {
	if b.Amount == nil || *b.Amount <= 0 {
		return "N/A"
	}
	return pesoPrinter.Sprintf("₱%.2f", *b.Amount)
}

// ClaimedBenefit records a user's application for a benefit.
type ClaimedBenefit struct {
	ID              uuid.UUID  `db:"id" json:"id"`
	UserID          uuid.UUID  `db:"user_id" json:"user_id"`
	BenefitID       uuid.UUID  `db:"benefit_id" json:"benefit_id"`
	Status          string     `db:"status" json:"status"`
	ReferenceNumber string     `db:"reference_number" json:"reference_number"`
	Notes           *string    `db:"notes" json:"notes,omitempty"`
	ClaimedAt       time.Time  `db:"claimed_at" json:"claimed_at"`
	ReviewedAt      *time.Time `db:"reviewed_at" json:"reviewed_at,omitempty"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`
}

// IsOpen reports whether the claim still blocks a new claim for the same
// benefit.
func (c *ClaimedBenefit) IsOpen() bool {
	return c.Status == ClaimPending || c.Status == ClaimApproved
}

// ClaimView is a claim with its benefit resolved for display.
type ClaimView struct {
	*ClaimedBenefit
	BenefitTitle    string `json:"benefit_title"`
	BenefitCategory string `json:"benefit_category"`
	BenefitAmount   string `json:"benefit_amount"`
}
