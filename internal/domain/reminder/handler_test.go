package reminder

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/seniorcare/seniorcare/internal/platform/auth"
)

func newTestHandler() (*Handler, *echo.Echo) {
	svc, _ := newTestService()
	return NewHandler(svc), echo.New()
}

func newContext(e *echo.Echo, method, target, body string, userID uuid.UUID, roles ...string) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req = req.WithContext(auth.WithIdentity(req.Context(), userID.String(), roles))
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestCreateReminder_Handler(t *testing.T) {
	h, e := newTestHandler()
	userID := uuid.New()
	body := `{"title":"Amlodipine","reminder_type":"medication","recurrence":"DAILY","start_at":"` +
		testNow.Add(time.Hour).Format(time.RFC3339) + `"}`
	c, rec := newContext(e, http.MethodPost, "/", body, userID, auth.RoleSenior)
	if err := h.CreateReminder(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	var r Reminder
	json.Unmarshal(rec.Body.Bytes(), &r)
	if r.UserID != userID || r.NextTriggerAt == nil {
		t.Errorf("unexpected reminder: %+v", r)
	}
}

func TestCancelReminder_Forbidden(t *testing.T) {
	h, e := newTestHandler()
	r := &Reminder{UserID: uuid.New(), Title: "Walk", StartAt: testNow.Add(time.Hour)}
	h.svc.Create(context.Background(), r)

	c, _ := newContext(e, http.MethodPost, "/", "", uuid.New(), auth.RoleCaregiver)
	c.SetParamNames("id")
	c.SetParamValues(r.ID.String())
	if he, ok := h.CancelReminder(c).(*echo.HTTPError); !ok || he.Code != http.StatusForbidden {
		t.Error("caregiver should not cancel another user's reminder")
	}

	c, rec := newContext(e, http.MethodPost, "/", "", r.UserID, auth.RoleSenior)
	c.SetParamNames("id")
	c.SetParamValues(r.ID.String())
	if err := h.CancelReminder(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(rec.Body.String(), `"is_active":false`) {
		t.Errorf("expected inactive reminder, got %s", rec.Body.String())
	}
}

func TestListUserReminders_Handler(t *testing.T) {
	h, e := newTestHandler()
	userID := uuid.New()
	h.svc.Create(context.Background(), &Reminder{UserID: userID, Title: "A", StartAt: testNow.Add(time.Hour)})

	c, rec := newContext(e, http.MethodGet, "/?active=true", "", userID, auth.RoleSenior)
	c.SetParamNames("id")
	c.SetParamValues(userID.String())
	if err := h.ListUserReminders(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var body map[string]interface{}
	json.Unmarshal(rec.Body.Bytes(), &body)
	if body["total"] != float64(1) {
		t.Errorf("expected 1 reminder, got %v", body["total"])
	}
}
