package reminder

import (
	"errors"
	"net/http"

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
	api.POST("/reminders", h.CreateReminder)
	api.GET("/reminders/:id", h.GetReminder)
	api.PUT("/reminders/:id", h.UpdateReminder)
	api.POST("/reminders/:id/cancel", h.CancelReminder)
	api.DELETE("/reminders/:id", h.DeleteReminder)
	api.GET("/users/:id/reminders", h.ListUserReminders)
}

func (h *Handler) load(c echo.Context, write bool) (*Reminder, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	r, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, echo.NewHTTPError(http.StatusNotFound, "reminder not found")
		}
		return nil, echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if write {
		err = auth.RequireWrite(c.Request().Context(), r.UserID)
	} else {
		err = auth.RequireRead(c.Request().Context(), r.UserID)
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

func (h *Handler) CreateReminder(c echo.Context) error {
	var r Reminder
	if err := c.Bind(&r); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ctx := c.Request().Context()
	if r.UserID == uuid.Nil {
		if id, ok := auth.UserUUIDFromContext(ctx); ok {
			r.UserID = id
		}
	}
	if r.UserID != uuid.Nil {
		if err := auth.RequireWrite(ctx, r.UserID); err != nil {
			return err
		}
	}
	if err := h.svc.Create(ctx, &r); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, r)
}

func (h *Handler) GetReminder(c echo.Context) error {
	r, err := h.load(c, false)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, r)
}

func (h *Handler) UpdateReminder(c echo.Context) error {
	existing, err := h.load(c, true)
	if err != nil {
		return err
	}
	var upd Reminder
	if err := c.Bind(&upd); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	upd.ID = existing.ID
	r, err := h.svc.Update(c.Request().Context(), &upd)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, r)
}

func (h *Handler) CancelReminder(c echo.Context) error {
	existing, err := h.load(c, true)
	if err != nil {
		return err
	}
	r, err := h.svc.Cancel(c.Request().Context(), existing.ID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, r)
}

func (h *Handler) DeleteReminder(c echo.Context) error {
	existing, err := h.load(c, true)
	if err != nil {
		return err
	}
	if err := h.svc.Delete(c.Request().Context(), existing.ID); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ListUserReminders(c echo.Context) error {
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := auth.RequireRead(c.Request().Context(), userID); err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	activeOnly := c.QueryParam("active") == "true"
	items, total, err := h.svc.ListByUser(c.Request().Context(), userID, activeOnly, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}
