package admin

import (
	"net/http"

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
	g := api.Group("/admin", auth.RequireRole(auth.RoleAdmin))
	g.GET("/overview", h.GetOverview)
}

func (h *Handler) GetOverview(c echo.Context) error {
	return c.JSON(http.StatusOK, h.svc.Overview(c.Request().Context()))
}
