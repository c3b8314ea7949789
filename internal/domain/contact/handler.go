package contact

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/seniorcare/seniorcare/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/emergency-contacts", h.CreateContact)
	api.GET("/emergency-contacts/:id", h.GetContact)
	api.PUT("/emergency-contacts/:id", h.UpdateContact)
	api.POST("/emergency-contacts/:id/primary", h.SetPrimary)
	api.DELETE("/emergency-contacts/:id", h.DeleteContact)
	api.GET("/users/:id/emergency-contacts", h.ListUserContacts)
}

// ContactView adds the formatted phone number.
type ContactView struct {
	*EmergencyContact
	DisplayPhone string `json:"display_phone"`
}

func view(c *EmergencyContact) ContactView {
	return ContactView{EmergencyContact: c, DisplayPhone: c.DisplayPhone()}
}

func notFoundOr(err error, status int) error {
	if errors.Is(err, ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "emergency contact not found")
	}
	return echo.NewHTTPError(status, err.Error())
}

func (h *Handler) load(c echo.Context, write bool) (*EmergencyContact, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	ec, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return nil, notFoundOr(err, http.StatusInternalServerError)
	}
	check := auth.RequireRead
	if write {
		check = auth.RequireWrite
	}
	if err := check(c.Request().Context(), ec.UserID); err != nil {
		return nil, err
	}
	return ec, nil
}

func (h *Handler) CreateContact(c echo.Context) error {
	ec := EmergencyContact{NotifyBySMS: true}
	if err := c.Bind(&ec); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ctx := c.Request().Context()
	if ec.UserID == uuid.Nil {
		if id, ok := auth.UserUUIDFromContext(ctx); ok {
			ec.UserID = id
		}
	}
	if ec.UserID != uuid.Nil {
		if err := auth.RequireWrite(ctx, ec.UserID); err != nil {
			return err
		}
	}
	if err := h.svc.Create(ctx, &ec); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, view(&ec))
}

func (h *Handler) GetContact(c echo.Context) error {
	ec, err := h.load(c, false)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, view(ec))
}

func (h *Handler) UpdateContact(c echo.Context) error {
	existing, err := h.load(c, true)
	if err != nil {
		return err
	}
	upd := *existing
	if err := c.Bind(&upd); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	upd.ID = existing.ID
	ec, err := h.svc.Update(c.Request().Context(), &upd)
	if err != nil {
		return notFoundOr(err, http.StatusBadRequest)
	}
	return c.JSON(http.StatusOK, view(ec))
}

func (h *Handler) SetPrimary(c echo.Context) error {
	existing, err := h.load(c, true)
	if err != nil {
		return err
	}
	ec, err := h.svc.SetPrimary(c.Request().Context(), existing.ID)
	if err != nil {
		return notFoundOr(err, http.StatusInternalServerError)
	}
	return c.JSON(http.StatusOK, view(ec))
}

func (h *Handler) DeleteContact(c echo.Context) error {
	existing, err := h.load(c, true)
	if err != nil {
		return err
	}
	if err := h.svc.SoftDelete(c.Request().Context(), existing.ID); err != nil {
		return notFoundOr(err, http.StatusInternalServerError)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ListUserContacts(c echo.Context) error {
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := auth.RequireRead(c.Request().Context(), userID); err != nil {
		return err
	}
	items, err := h.svc.ListByUser(c.Request().Context(), userID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	views := make([]ContactView, len(items))
	for i, ec := range items {
		views[i] = view(ec)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"data": views, "total": len(views)})
}
