package social

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
	api.GET("/social/features", h.ListFeatures)
	api.GET("/social/features/upcoming", h.ListUpcoming)
	api.GET("/social/features/:id", h.GetFeature)
	api.POST("/social/features/:id/join", h.Join)
	api.POST("/social/features/:id/leave", h.Leave)
	api.GET("/social/features/:id/participants", h.ListParticipants)

	organizers := api.Group("", auth.RequireRole(auth.RoleCaregiver, auth.RoleAdmin))
	organizers.POST("/social/features", h.CreateFeature)
	organizers.PUT("/social/features/:id", h.UpdateFeature)
	organizers.DELETE("/social/features/:id", h.DeleteFeature)

	api.GET("/social/services", h.SearchServices)
	api.GET("/social/services/:id", h.GetService)

	admin := api.Group("", auth.RequireRole(auth.RoleAdmin))
	admin.POST("/social/services", h.CreateService)
	admin.PUT("/social/services/:id", h.UpdateService)
	admin.DELETE("/social/services/:id", h.DeleteService)
}

func httpError(err error, fallback int) error {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrServiceNotFound), errors.Is(err, ErrNotJoined):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrFull), errors.Is(err, ErrAlreadyJoined), errors.Is(err, ErrInactive):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
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

// FeatureView adds the rendered schedule and the remaining capacity.
type FeatureView struct {
	*SocialFeature
	Schedule  string `json:"schedule"`
	IsFull    bool   `json:"is_full"`
	SpotsLeft int    `json:"spots_left"`
}

func featureView(f *SocialFeature) FeatureView {
	return FeatureView{SocialFeature: f, Schedule: f.FormattedSchedule(), IsFull: f.IsFull(), SpotsLeft: f.SpotsLeft()}
}

func featureViews(items []*SocialFeature) []FeatureView {
	out := make([]FeatureView, len(items))
	for i, f := range items {
		out[i] = featureView(f)
	}
	return out
}

// loadOwnFeature fetches the :id feature for its organizer or an admin.
func (h *Handler) loadOwnFeature(c echo.Context) (*SocialFeature, error) {
	id, err := parseID(c)
	if err != nil {
		return nil, err
	}
	ctx := c.Request().Context()
	f, err := h.svc.GetFeature(ctx, id)
	if err != nil {
		return nil, httpError(err, http.StatusInternalServerError)
	}
	if auth.IsAdmin(ctx) {
		return f, nil
	}
	if uid, ok := auth.UserUUIDFromContext(ctx); ok && f.OrganizerID != nil && *f.OrganizerID == uid {
		return f, nil
	}
	return nil, echo.NewHTTPError(http.StatusForbidden, "only the organizer can manage this feature")
}

func (h *Handler) CreateFeature(c echo.Context) error {
	var f SocialFeature
	if err := c.Bind(&f); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ctx := c.Request().Context()
	if f.OrganizerID == nil || !auth.IsAdmin(ctx) {
		if uid, ok := auth.UserUUIDFromContext(ctx); ok {
			f.OrganizerID = &uid
		}
	}
	if err := h.svc.CreateFeature(ctx, &f); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, featureView(&f))
}

func (h *Handler) GetFeature(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	f, err := h.svc.GetFeature(c.Request().Context(), id)
	if err != nil {
		return httpError(err, http.StatusInternalServerError)
	}
	return c.JSON(http.StatusOK, featureView(f))
}

func (h *Handler) UpdateFeature(c echo.Context) error {
	existing, err := h.loadOwnFeature(c)
	if err != nil {
		return err
	}
	upd := *existing
	if err := c.Bind(&upd); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	upd.ID = existing.ID
	f, err := h.svc.UpdateFeature(c.Request().Context(), &upd)
	if err != nil {
		return httpError(err, http.StatusBadRequest)
	}
	return c.JSON(http.StatusOK, featureView(f))
}

func (h *Handler) DeleteFeature(c echo.Context) error {
	f, err := h.loadOwnFeature(c)
	if err != nil {
		return err
	}
	if err := h.svc.DeactivateFeature(c.Request().Context(), f.ID); err != nil {
		return httpError(err, http.StatusInternalServerError)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ListFeatures(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListFeatures(c.Request().Context(), c.QueryParam("type"), pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(featureViews(items), total, pg.Limit, pg.Offset))
}

func (h *Handler) ListUpcoming(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	items, err := h.svc.ListUpcoming(c.Request().Context(), h.svc.now(), limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"data": featureViews(items), "total": len(items)})
}

type membershipRequest struct {
	UserID uuid.UUID `json:"user_id"`
}

// member resolves whose membership a join or leave request changes: the
// caller, or user_id when the caller may write that user's data.
func member(c echo.Context) (uuid.UUID, error) {
	var req membershipRequest
	if err := c.Bind(&req); err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ctx := c.Request().Context()
	if req.UserID == uuid.Nil {
		if uid, ok := auth.UserUUIDFromContext(ctx); ok {
			req.UserID = uid
		}
	}
	if req.UserID == uuid.Nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "user_id is required")
	}
	if err := auth.RequireWrite(ctx, req.UserID); err != nil {
		return uuid.Nil, err
	}
	return req.UserID, nil
}

func (h *Handler) Join(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	userID, err := member(c)
	if err != nil {
		return err
	}
	f, err := h.svc.Join(c.Request().Context(), id, userID)
	if err != nil {
		return httpError(err, http.StatusInternalServerError)
	}
	return c.JSON(http.StatusOK, featureView(f))
}

func (h *Handler) Leave(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	userID, err := member(c)
	if err != nil {
		return err
	}
	f, err := h.svc.Leave(c.Request().Context(), id, userID)
	if err != nil {
		return httpError(err, http.StatusInternalServerError)
	}
	return c.JSON(http.StatusOK, featureView(f))
}

func (h *Handler) ListParticipants(c echo.Context) error {
	f, err := h.loadOwnFeature(c)
	if err != nil {
		return err
	}
	items, err := h.svc.ListParticipants(c.Request().Context(), f.ID)
	if err != nil {
		return httpError(err, http.StatusInternalServerError)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"data": items, "total": len(items)})
}

func (h *Handler) SearchServices(c echo.Context) error {
	pg := pagination.FromContext(c)
	f := ServiceFilter{
		Category: c.QueryParam("category"),
		City:     c.QueryParam("city"),
		Query:    c.QueryParam("q"),
	}
	items, total, err := h.svc.SearchServices(c.Request().Context(), f, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) GetService(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	s, err := h.svc.GetService(c.Request().Context(), id)
	if err != nil {
		return httpError(err, http.StatusInternalServerError)
	}
	return c.JSON(http.StatusOK, s)
}

func (h *Handler) CreateService(c echo.Context) error {
	var s SocialService
	if err := c.Bind(&s); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreateService(c.Request().Context(), &s); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, s)
}

func (h *Handler) UpdateService(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	existing, err := h.svc.GetService(c.Request().Context(), id)
	if err != nil {
		return httpError(err, http.StatusInternalServerError)
	}
	upd := *existing
	if err := c.Bind(&upd); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	upd.ID = id
	s, err := h.svc.UpdateService(c.Request().Context(), &upd)
	if err != nil {
		return httpError(err, http.StatusBadRequest)
	}
	return c.JSON(http.StatusOK, s)
}

func (h *Handler) DeleteService(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if err := h.svc.DeactivateService(c.Request().Context(), id); err != nil {
		return httpError(err, http.StatusInternalServerError)
	}
	return c.NoContent(http.StatusNoContent)
}
