package alert

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/seniorcare/seniorcare/internal/domain/user"
	"github.com/seniorcare/seniorcare/internal/platform/auth"
	"github.com/seniorcare/seniorcare/pkg/pagination"
	"github.com/seniorcare/seniorcare/pkg/phone"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/alerts", h.Trigger)
	api.GET("/alerts/:id", h.GetAlert)
	api.GET("/users/:id/alerts", h.ListUserAlerts)
	api.POST("/sms/send", h.SendSMS)

	admin := api.Group("", auth.RequireRole(auth.RoleAdmin))
	admin.GET("/alerts", h.ListRecent)
}

func (h *Handler) Trigger(c echo.Context) error {
	var req TriggerRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ctx := c.Request().Context()
	if req.UserID == uuid.Nil {
		if uid, ok := auth.UserUUIDFromContext(ctx); ok {
			req.UserID = uid
		}
	}
	if req.UserID != uuid.Nil {
		if err := auth.RequireWrite(ctx, req.UserID); err != nil {
			return err
		}
	}
	a, err := h.svc.Trigger(ctx, req)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, a)
}

func (h *Handler) GetAlert(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	ctx := c.Request().Context()
	a, err := h.svc.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if err := auth.RequireRead(ctx, a.UserID); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) ListUserAlerts(c echo.Context) error {
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid user id")
	}
	ctx := c.Request().Context()
	if err := auth.RequireRead(ctx, userID); err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListByUser(ctx, userID, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) ListRecent(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListRecent(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

type smsRequest struct {
	Number  string `json:"number"`
	Message string `json:"message"`
}

// SendSMS relays a single text message to the SMS gateway. Non-admins can
// only reach their own emergency contacts.
func (h *Handler) SendSMS(c echo.Context) error {
	var req smsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ctx := c.Request().Context()
	from := uuid.Nil
	if !auth.IsAdmin(ctx) {
		id, ok := auth.UserUUIDFromContext(ctx)
		if !ok {
			return echo.NewHTTPError(http.StatusForbidden, "access denied")
		}
		from = id
	}
	n, err := h.svc.Forward(ctx, from, req.Number, req.Message)
	if err != nil {
		if errors.Is(err, ErrRecipientNotAllowed) {
			return echo.NewHTTPError(http.StatusForbidden, err.Error())
		}
		if errors.Is(err, errContactLookup) {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		if errors.Is(err, phone.ErrInvalidNumber) || n == nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]string{
		"status":          "sent",
		"notification_id": n.ID,
	})
}
