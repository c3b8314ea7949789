package contact

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/seniorcare/seniorcare/internal/platform/auth"
)

func newTestHandler() (*Handler, *echo.Echo) {
	svc, _ := newTestService()
	return NewHandler(svc), echo.New()
}

func newContext(e *echo.Echo, method, body string, userID uuid.UUID, roles ...string) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req = req.WithContext(auth.WithIdentity(req.Context(), userID.String(), roles))
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestCreateContact_DefaultsToSMS(t *testing.T) {
	h, e := newTestHandler()
	userID := uuid.New()
	c, rec := newContext(e, http.MethodPost, `{"name":"Ana","phone_number":"09171234567"}`, userID, auth.RoleSenior)
	if err := h.CreateContact(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	var v ContactView
	json.Unmarshal(rec.Body.Bytes(), &v)
	if !v.NotifyBySMS || !v.IsPrimary || v.UserID != userID {
		t.Errorf("unexpected contact: %+v", v.EmergencyContact)
	}
	if v.DisplayPhone != "+63 917 123 4567" {
		t.Errorf("unexpected display phone %q", v.DisplayPhone)
	}
}

func TestCreateContact_InvalidPhone(t *testing.T) {
	h, e := newTestHandler()
	c, _ := newContext(e, http.MethodPost, `{"name":"Ana","phone_number":"555-0100"}`, uuid.New(), auth.RoleSenior)
	he, ok := h.CreateContact(c).(*echo.HTTPError)
	if !ok || he.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %v", he)
	}
}

func TestUpdateContact_PartialBody(t *testing.T) {
	h, e := newTestHandler()
	ec := newContact(uuid.New(), "Ana", "09171234567")
	h.svc.Create(context.Background(), ec)

	c, rec := newContext(e, http.MethodPut, `{"name":"Ana Cruz"}`, ec.UserID, auth.RoleSenior)
	c.SetParamNames("id")
	c.SetParamValues(ec.ID.String())
	if err := h.UpdateContact(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var v ContactView
	json.Unmarshal(rec.Body.Bytes(), &v)
	if v.Name != "Ana Cruz" || v.PhoneNumber != "639171234567" || !v.NotifyBySMS {
		t.Errorf("unexpected contact: %+v", v.EmergencyContact)
	}
}

func TestDeleteContact_Forbidden(t *testing.T) {
	h, e := newTestHandler()
	ec := newContact(uuid.New(), "Ana", "09171234567")
	h.svc.Create(context.Background(), ec)

	c, _ := newContext(e, http.MethodDelete, "", uuid.New(), auth.RoleCaregiver)
	c.SetParamNames("id")
	c.SetParamValues(ec.ID.String())
	he, ok := h.DeleteContact(c).(*echo.HTTPError)
	if !ok || he.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %v", he)
	}
}

func TestListUserContacts_Caregiver(t *testing.T) {
	h, e := newTestHandler()
	userID := uuid.New()
	h.svc.Create(context.Background(), newContact(userID, "Ana", "09171234567"))
	h.svc.Create(context.Background(), newContact(userID, "Ben", "09181234567"))

	c, rec := newContext(e, http.MethodGet, "", uuid.New(), auth.RoleCaregiver)
	c.SetParamNames("id")
	c.SetParamValues(userID.String())
	if err := h.ListUserContacts(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var resp struct {
		Data  []ContactView `json:"data"`
		Total int           `json:"total"`
	}
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Total != 2 || resp.Data[0].Name != "Ana" {
		t.Errorf("unexpected list: %+v", resp)
	}
}

func TestGetContact_NotFound(t *testing.T) {
	h, e := newTestHandler()
	c, _ := newContext(e, http.MethodGet, "", uuid.New(), auth.RoleAdmin)
	c.SetParamNames("id")
	c.SetParamValues(uuid.New().String())
	he, ok := h.GetContact(c).(*echo.HTTPError)
	if !ok || he.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %v", he)
	}
}
