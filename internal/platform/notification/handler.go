package notification

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/seniorcare/seniorcare/internal/platform/auth"
)

// NotificationHandler exposes notification operations over HTTP via Echo.
type NotificationHandler struct {
	manager *Manager
}

func NewNotificationHandler(mgr *Manager) *NotificationHandler {
	return &NotificationHandler{manager: mgr}
}

// RegisterRoutes registers the admin notification routes on the API group.
func (h *NotificationHandler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/notifications", auth.RequireRole(auth.RoleAdmin))
	g.POST("/push", h.HandlePush)
	g.POST("/send-template", h.HandleSendTemplate)
	g.GET("/stats", h.HandleStats)
	g.GET("/:id", h.HandleGet)
	g.GET("", h.HandleList)
}

type pushRequest struct {
	UserID  string            `json:"user_id"`
	Payload map[string]string `json:"payload"`
}

// HandlePush handles POST /notifications/push.
func (h *NotificationHandler) HandlePush(c echo.Context) error {
	var req pushRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "user_id must be a valid id"})
	}
	if req.Payload["title"] == "" && req.Payload["body"] == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "payload title or body is required"})
	}

	n, err := h.manager.SendPush(c.Request().Context(), userID, FromPayload(req.Payload))
	if err != nil && n == nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	// A failed delivery still returns the recorded notification.
	return c.JSON(http.StatusCreated, n)
}

type sendTemplateRequest struct {
	TemplateID string            `json:"template_id"`
	Recipient  string            `json:"recipient"`
	Data       map[string]string `json:"data"`
}

// HandleSendTemplate handles POST /notifications/send-template.
func (h *NotificationHandler) HandleSendTemplate(c echo.Context) error {
	var req sendTemplateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	n, err := h.manager.SendFromTemplate(c.Request().Context(), req.TemplateID, req.Data, req.Recipient)
	if err != nil && n == nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusCreated, n)
}

// HandleGet handles GET /notifications/:id.
func (h *NotificationHandler) HandleGet(c echo.Context) error {
	n, err := h.manager.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, n)
}

// HandleList handles GET /notifications?recipient=...&limit=...
func (h *NotificationHandler) HandleList(c echo.Context) error {
	recipient := c.QueryParam("recipient")
	if recipient == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "recipient query parameter is required"})
	}
	limit := 100
	if v, err := strconv.Atoi(c.QueryParam("limit")); err == nil && v > 0 && v < limit {
		limit = v
	}

	list, err := h.manager.ListByRecipient(c.Request().Context(), recipient, limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	if list == nil {
		list = []*Notification{}
	}
	return c.JSON(http.StatusOK, list)
}

// HandleStats handles GET /notifications/stats.
func (h *NotificationHandler) HandleStats(c echo.Context) error {
	return c.JSON(http.StatusOK, h.manager.Stats(c.Request().Context()))
}
