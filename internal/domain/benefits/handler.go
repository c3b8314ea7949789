package benefits

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/seniorcare/seniorcare/internal/platform/auth"
	"github.com/seniorcare/seniorcare/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/benefits", h.ListBenefits)
	api.GET("/benefits/:id", h.GetBenefit)
	api.POST("/benefits/:id/claim", h.ClaimBenefit)
	api.GET("/claims/:id", h.GetClaim)
	api.GET("/users/:id/claims", h.ListUserClaims)

	admin := api.Group("", auth.RequireRole(auth.RoleAdmin))
	admin.POST("/benefits", h.CreateBenefit)
	admin.PUT("/benefits/:id", h.UpdateBenefit)
	admin.POST("/benefits/:id/deactivate", h.DeactivateBenefit)
	admin.POST("/benefits/:id/activate", h.ActivateBenefit)
	admin.GET("/claims", h.ListClaims)
	admin.POST("/claims/:id/review", h.ReviewClaim)
}

func httpError(err error, fallback int) error {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrClaimNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrAlreadyClaimed), errors.Is(err, ErrInvalidTransition):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, ErrNotEligible), errors.Is(err, ErrInactive):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}
	return echo.NewHTTPError(fallback, err.Error())
}

func parseID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}

// BenefitView adds the formatted amount.
type BenefitView struct {
	*Benefit
	FormattedAmount string `json:"formatted_amount"`
}

func benefitView(b *Benefit) BenefitView {
	return BenefitView{Benefit: b, FormattedAmount: b.FormattedAmount()}
}

// ListBenefits returns the active catalog. Admins may pass all=true to
// include deactivated benefits.
func (h *Handler) ListBenefits(c echo.Context) error {
	ctx := c.Request().Context()
	all, _ := strconv.ParseBool(c.QueryParam("all"))
	items, err := h.svc.ListBenefits(ctx, c.QueryParam("category"), all && auth.IsAdmin(ctx))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	views := make([]BenefitView, len(items))
	for i, b := range items {
		views[i] = benefitView(b)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"data": views, "total": len(views)})
}

func (h *Handler) GetBenefit(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	b, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return httpError(err, http.StatusInternalServerError)
	}
	if !b.IsActive && !auth.IsAdmin(c.Request().Context()) {
		return echo.NewHTTPError(http.StatusNotFound, ErrNotFound.Error())
	}
	return c.JSON(http.StatusOK, benefitView(b))
}

func (h *Handler) CreateBenefit(c echo.Context) error {
	b := Benefit{MinimumAge: DefaultMinimumAge}
	if err := c.Bind(&b); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.Create(c.Request().Context(), &b); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, benefitView(&b))
}

func (h *Handler) UpdateBenefit(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	existing, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return httpError(err, http.StatusInternalServerError)
	}
	upd := *existing
	if err := c.Bind(&upd); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	upd.ID = id
	b, err := h.svc.Update(c.Request().Context(), &upd)
	if err != nil {
		return httpError(err, http.StatusBadRequest)
	}
	return c.JSON(http.StatusOK, benefitView(b))
}

func (h *Handler) setActive(c echo.Context, active bool) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	b, err := h.svc.SetActive(c.Request().Context(), id, active)
	if err != nil {
		return httpError(err, http.StatusInternalServerError)
	}
	return c.JSON(http.StatusOK, benefitView(b))
}

func (h *Handler) DeactivateBenefit(c echo.Context) error {
	return h.setActive(c, false)
}

func (h *Handler) ActivateBenefit(c echo.Context) error {
	return h.setActive(c, true)
}

type claimRequest struct {
	UserID uuid.UUID `json:"user_id"`
	Notes  *string   `json:"notes"`
}

// ClaimBenefit files a claim for the caller, or for user_id when an admin
// files on someone's behalf.
func (h *Handler) ClaimBenefit(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var req claimRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ctx := c.Request().Context()
	if req.UserID == uuid.Nil {
		if uid, ok := auth.UserUUIDFromContext(ctx); ok {
			req.UserID = uid
		}
	}
	if req.UserID == uuid.Nil {
		return echo.NewHTTPError(http.StatusBadRequest, "user_id is required")
	}
	if err := auth.RequireWrite(ctx, req.UserID); err != nil {
		return err
	}
	claim, err := h.svc.Claim(ctx, req.UserID, id, req.Notes)
	if err != nil {
		return httpError(err, http.StatusBadRequest)
	}
	return c.JSON(http.StatusCreated, h.svc.ClaimView(ctx, claim))
}

func (h *Handler) GetClaim(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	claim, err := h.svc.GetClaim(ctx, id)
	if err != nil {
		return httpError(err, http.StatusInternalServerError)
	}
	if err := auth.RequireRead(ctx, claim.UserID); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, h.svc.ClaimView(ctx, claim))
}

func (h *Handler) ListUserClaims(c echo.Context) error {
	userID, err := parseID(c)
	if err != nil {
		return err
	}
	if err := auth.RequireRead(c.Request().Context(), userID); err != nil {
		return err
	}
	views, err := h.svc.ListClaims(c.Request().Context(), userID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"data": views, "total": len(views)})
}

func (h *Handler) ListClaims(c echo.Context) error {
	pg := pagination.FromContext(c)
	views, total, err := h.svc.ListAllClaims(c.Request().Context(), c.QueryParam("status"), pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(views, total, pg.Limit, pg.Offset))
}

type reviewRequest struct {
	Status string  `json:"status"`
	Notes  *string `json:"notes"`
}

func (h *Handler) ReviewClaim(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var req reviewRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ctx := c.Request().Context()
	claim, err := h.svc.ReviewClaim(ctx, id, req.Status, req.Notes)
	if err != nil {
		return httpError(err, http.StatusBadRequest)
	}
	return c.JSON(http.StatusOK, h.svc.ClaimView(ctx, claim))
}
