package health

import (
	"errors"
	"net/http"
	"time"

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
	api.POST("/health-records", h.CreateRecord)
	api.GET("/health-records/:id", h.GetRecord)
	api.PUT("/health-records/:id", h.UpdateRecord)
	api.DELETE("/health-records/:id", h.DeleteRecord)
	api.GET("/users/:id/health-records", h.ListUserRecords)
	api.GET("/users/:id/health-summary", h.GetSummary)
}

func notFoundOr(err error, status int) error {
	if errors.Is(err, ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "health record not found")
	}
	return echo.NewHTTPError(status, err.Error())
}

// loadRecord fetches the :id record and checks the caller may see it.
func (h *Handler) loadRecord(c echo.Context, write bool) (*HealthRecord, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	r, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return nil, notFoundOr(err, http.StatusInternalServerError)
	}
	check := auth.RequireRead
	if write {
		check = auth.RequireWrite
	}
	if err := check(c.Request().Context(), r.UserID); err != nil {
		return nil, err
	}
	return r, nil
}

func (h *Handler) CreateRecord(c echo.Context) error {
	var r HealthRecord
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
	return c.JSON(http.StatusCreated, recordView(&r))
}

func (h *Handler) GetRecord(c echo.Context) error {
	r, err := h.loadRecord(c, false)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, recordView(r))
}

func (h *Handler) UpdateRecord(c echo.Context) error {
	existing, err := h.loadRecord(c, true)
	if err != nil {
		return err
	}
	var upd HealthRecord
	if err := c.Bind(&upd); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	upd.ID = existing.ID
	r, err := h.svc.Update(c.Request().Context(), &upd)
	if err != nil {
		return notFoundOr(err, http.StatusBadRequest)
	}
	return c.JSON(http.StatusOK, recordView(r))
}

func (h *Handler) DeleteRecord(c echo.Context) error {
	r, err := h.loadRecord(c, true)
	if err != nil {
		return err
	}
	if err := h.svc.SoftDelete(c.Request().Context(), r.ID); err != nil {
		return notFoundOr(err, http.StatusInternalServerError)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ListUserRecords(c echo.Context) error {
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := auth.RequireRead(c.Request().Context(), userID); err != nil {
		return err
	}
	f := ListFilter{RecordType: c.QueryParam("type")}
	if v := c.QueryParam("since"); v != "" {
		since, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "since must be an RFC 3339 timestamp")
		}
		f.Since = &since
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListByUser(c.Request().Context(), userID, f, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	views := make([]RecordView, len(items))
	for i, r := range items {
		views[i] = recordView(r)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(views, total, pg.Limit, pg.Offset))
}

func (h *Handler) GetSummary(c echo.Context) error {
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := auth.RequireRead(c.Request().Context(), userID); err != nil {
		return err
	}
	summary, err := h.svc.Summary(c.Request().Context(), userID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, summary)
}

// RecordView adds the rendered value and its classification.
type RecordView struct {
	*HealthRecord
	Display string `json:"display"`
	Status  string `json:"status"`
}

func recordView(r *HealthRecord) RecordView {
	return RecordView{HealthRecord: r, Display: r.DisplayValue(), Status: r.Classify()}
}
