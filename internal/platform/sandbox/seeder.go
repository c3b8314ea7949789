// Package sandbox loads the reference data a fresh installation needs, such
// as the catalog of government benefits available to senior citizens.
package sandbox

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/seniorcare/seniorcare/internal/domain/benefits"
)

// BenefitStore is satisfied by *benefits.Service.
type BenefitStore interface {
	GetByTitle(ctx context.Context, title string) (*benefits.Benefit, error)
	Create(ctx context.Context, b *benefits.Benefit) error
}

// SeedResult lists the titles inserted and the ones already present.
type SeedResult struct {
	Created []string `json:"created"`
	Skipped []string `json:"skipped"`
}

func str(s string) *string { return &s }

func amount(v float64) *float64 { return &v }

// DefaultBenefits returns the built-in catalog. A fresh slice is returned
// on every call.
func DefaultBenefits() []benefits.Benefit {
	return []benefits.Benefit{
		{
			Title:          "Social Pension for Indigent Senior Citizens",
			Description:    "Monthly stipend for indigent seniors without a regular pension or support.",
			Category:       "financial",
			Agency:         str("DSWD"),
			Eligibility:    str("Indigent, frail or sickly senior citizens with no pension"),
			Requirements:   []string{"OSCA ID", "Barangay certificate of indigency", "Valid government ID"},
			Amount:         amount(1000),
			MinimumAge:     60,
			ApplicationURL: str("https://www.dswd.gov.ph"),
			ContactInfo:    str("Local DSWD field office or OSCA"),
		},
		{
			Title:        "Senior Citizen 20% Discount and VAT Exemption",
			Description:  "20% discount and VAT exemption on medicines, medical services, transport, food and lodging.",
			Category:     "discount",
			Agency:       str("OSCA"),
			Eligibility:  str("Filipino residents aged 60 and above"),
			Requirements: []string{"OSCA ID"},
			MinimumAge:   60,
			ContactInfo:  str("Office for Senior Citizens Affairs of your city or municipality"),
		},
		{
			Title:          "PhilHealth Lifetime Coverage for Senior Citizens",
			Description:    "Mandatory PhilHealth coverage for all senior citizens, premiums paid by the national government.",
			Category:       "healthcare",
			Agency:         str("PhilHealth"),
			Eligibility:    str("All senior citizens not yet covered"),
			Requirements:   []string{"OSCA ID or birth certificate", "PhilHealth Member Registration Form"},
			MinimumAge:     60,
			ApplicationURL: str("https://www.philhealth.gov.ph"),
			ContactInfo:    str("PhilHealth hotline (02) 8662-2588"),
		},
		{
			Title:        "Centenarian Cash Gift",
			Description:  "One-time cash gift and letter of felicitation for Filipinos who reach 100 years old.",
			Category:     "financial",
			Agency:       str("DSWD"),
			Eligibility:  str("Filipino citizens aged 100 and above"),
			Requirements: []string{"Birth certificate or passport", "Valid government ID", "Recent photo"},
			Amount:       amount(100000),
			MinimumAge:   100,
			ContactInfo:  str("Local DSWD field office"),
		},
		{
			Title:          "SSS Retirement Pension",
			Description:    "Monthly pension or lump sum for retired SSS members.",
			Category:       "pension",
			Agency:         str("SSS"),
			Eligibility:    str("Members aged 60 with at least 120 monthly contributions"),
			Requirements:   []string{"SSS number", "Retirement claim application", "Valid government ID"},
			MinimumAge:     60,
			ApplicationURL: str("https://www.sss.gov.ph"),
		},
		{
			Title:          "GSIS Old-Age Pension",
			Description:    "Pension for retired government employees.",
			Category:       "pension",
			Agency:         str("GSIS"),
			Eligibility:    str("Government service of at least 15 years"),
			Requirements:   []string{"GSIS eCard or UMID", "Application for retirement"},
			MinimumAge:     60,
			ApplicationURL: str("https://www.gsis.gov.ph"),
		},
		{
			Title:        "Free Flu and Pneumococcal Vaccination",
			Description:  "Free annual flu vaccine and pneumococcal vaccine at health centers.",
			Category:     "healthcare",
			Agency:       str("DOH"),
			Eligibility:  str("Senior citizens, priority for indigent seniors"),
			Requirements: []string{"OSCA ID"},
			MinimumAge:   60,
			ContactInfo:  str("Barangay health center"),
		},
		{
			Title:        "Priority Lanes and Express Services",
			Description:  "Express lanes in government offices, banks, hospitals and commercial establishments.",
			Category:     "privilege",
			Agency:       str("OSCA"),
			Requirements: []string{"OSCA ID"},
			MinimumAge:   60,
		},
	}
}

// SeedBenefits inserts every catalog entry whose title is not already
// present. Running it twice creates nothing the second time.
func SeedBenefits(ctx context.Context, store BenefitStore, catalog []benefits.Benefit) (*SeedResult, error) {
	res := &SeedResult{Created: []string{}, Skipped: []string{}}
	for i := range catalog {
		b := catalog[i]
		_, err := store.GetByTitle(ctx, b.Title)
		switch {
		case err == nil:
			res.Skipped = append(res.Skipped, b.Title)
			continue
		case !errors.Is(err, benefits.ErrNotFound):
			return res, fmt.Errorf("look up %q: %w", b.Title, err)
		}
		if err := store.Create(ctx, &b); err != nil {
			return res, fmt.Errorf("create %q: %w", b.Title, err)
		}
		res.Created = append(res.Created, b.Title)
	}
	return res, nil
}

// SeedHandler exposes seeding over HTTP for development environments.
type SeedHandler struct {
	store  BenefitStore
	logger zerolog.Logger
	mu     sync.Mutex
}

func NewSeedHandler(store BenefitStore, logger zerolog.Logger) *SeedHandler {
	return &SeedHandler{store: store, logger: logger}
}

func (h *SeedHandler) RegisterRoutes(g *echo.Group) {
	g.POST("/seed/benefits", h.handleSeedBenefits)
}

func (h *SeedHandler) handleSeedBenefits(c echo.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	res, err := SeedBenefits(c.Request().Context(), h.store, DefaultBenefits())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	h.logger.Info().Int("created", len(res.Created)).Int("skipped", len(res.Skipped)).Msg("benefits seeded")
	return c.JSON(http.StatusOK, res)
}
