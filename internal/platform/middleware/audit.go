package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/seniorcare/seniorcare/internal/platform/auth"
)

// AuditEntry describes one access to user data through the API.
type AuditEntry struct {
	UserID        string
	UserRoles     []string
	Collection    string
	SubjectUserID string
	Action        string // read, create, update, delete
	IPAddress     string
	UserAgent     string
	Path          string
	Method        string
	Timestamp     time.Time
	RequestID     string
	StatusCode    int
}

// AuditRecorder persists audit entries somewhere other than the log.
type AuditRecorder interface {
	RecordAccess(entry AuditEntry) error
}

// AuditRecorderFunc is a function adapter for AuditRecorder.
type AuditRecorderFunc func(entry AuditEntry) error

func (f AuditRecorderFunc) RecordAccess(entry AuditEntry) error {
	return f(entry)
}

// routeCollections maps the first /api/v1 path segment to the collection
// it touches.
var routeCollections = map[string]string{
	"users":              "users",
	"auth":               "users",
	"health-records":     "health_records",
	"appointments":       "appointments",
	"benefits":           "benefits",
	"claims":             "claimed_benefits",
	"emergency-contacts": "emergency_contacts",
	"social":             "social_features",
	"reminders":          "reminders",
	"alerts":             "emergency_alerts",
	"sms":                "emergency_alerts",
	"devices":            "device_tokens",
	"notifications":      "notifications",
	"files":              "files",
	"admin":              "admin",
}

// Audit logs a structured data_access event for every /api/v1 request after
// the handler has run. The first recorder, if any, also receives the entry.
func Audit(logger zerolog.Logger, recorders ...AuditRecorder) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			path := req.URL.Path
			if !strings.HasPrefix(path, "/api/v1/") {
				return next(c)
			}

			err := next(c)

			ctx := req.Context()
			entry := AuditEntry{
				Timestamp:     time.Now().UTC(),
				Path:          path,
				Method:        req.Method,
				IPAddress:     c.RealIP(),
				UserAgent:     req.UserAgent(),
				StatusCode:    c.Response().Status,
				UserID:        auth.UserIDFromContext(ctx),
				UserRoles:     auth.RolesFromContext(ctx),
				Action:        httpMethodToAction(req.Method),
				Collection:    extractCollection(path),
				SubjectUserID: extractSubjectUserID(c),
			}
			if he, ok := err.(*echo.HTTPError); ok {
				entry.StatusCode = he.Code
			}
			entry.RequestID, _ = c.Get("request_id").(string)

			if len(recorders) > 0 && recorders[0] != nil {
				if recErr := recorders[0].RecordAccess(entry); recErr != nil {
					logger.Error().Err(recErr).
						Str("request_id", entry.RequestID).
						Msg("failed to record audit entry")
				}
			}

			logger.Info().
				Str("type", "audit").
				Str("request_id", entry.RequestID).
				Str("user_id", entry.UserID).
				Strs("user_roles", entry.UserRoles).
				Str("collection", entry.Collection).
				Str("subject_user_id", entry.SubjectUserID).
				Str("action", entry.Action).
				Str("method", entry.Method).
				Str("path", entry.Path).
				Str("remote_ip", entry.IPAddress).
				Int("status", entry.StatusCode).
				Msg("data_access")

			return err
		}
	}
}

func httpMethodToAction(method string) string {
	switch method {
	case http.MethodPost:
		return "create"
	case http.MethodPut, http.MethodPatch:
		return "update"
	case http.MethodDelete:
		return "delete"
	default:
		return "read"
	}
}

// extractCollection maps /api/v1/<segment>/... to a collection name.
func extractCollection(path string) string {
	segments := strings.Split(strings.TrimPrefix(path, "/api/v1/"), "/")
	if len(segments) == 0 || segments[0] == "" {
		return "unknown"
	}
	if segments[0] == "social" && len(segments) > 1 && segments[1] == "services" {
		return "social_services"
	}
	if name, ok := routeCollections[segments[0]]; ok {
		return name
	}
	return segments[0]
}

// extractSubjectUserID finds whose data was touched: /users/<id>/... in the
// path or a user_id query parameter.
func extractSubjectUserID(c echo.Context) string {
	path := c.Request().URL.Path
	if strings.HasPrefix(path, "/api/v1/users/") {
		segments := strings.Split(strings.TrimPrefix(path, "/api/v1/users/"), "/")
		if len(segments) > 0 && isUUID(segments[0]) {
			return segments[0]
		}
	}
	if uid := c.QueryParam("user_id"); isUUID(uid) {
		return uid
	}
	return ""
}

func isUUID(s string) bool {
	if s == "" {
		return false
	}
	_, err := uuid.Parse(s)
	return err == nil
}
