package device

import (
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
	api.POST("/devices", h.RegisterDevice)
	api.POST("/devices/unregister", h.UnregisterDevice)
	api.GET("/users/:id/devices", h.ListUserDevices)
}

func (h *Handler) RegisterDevice(c echo.Context) error {
	var d DeviceToken
	if err := c.Bind(&d); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ctx := c.Request().Context()
	if d.UserID == uuid.Nil {
		if id, ok := auth.UserUUIDFromContext(ctx); ok {
			d.UserID = id
		}
	}
	if d.UserID != uuid.Nil {
		if err := auth.RequireWrite(ctx, d.UserID); err != nil {
			return err
		}
	}
	if err := h.svc.Register(ctx, &d); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, d)
}

type unregisterRequest struct {
	Token string `json:"token"`
}

func (h *Handler) UnregisterDevice(c echo.Context) error {
	var req unregisterRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Token == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "token is required")
	}
	if err := h.svc.Unregister(c.Request().Context(), req.Token); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ListUserDevices(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := auth.RequireRead(c.Request().Context(), id); err != nil {
		return err
	}
	items, err := h.svc.ListByUser(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"data": items, "total": len(items)})
}
