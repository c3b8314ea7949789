package benefits

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

func newContext(e *echo.Echo, method, target, body string, userID uuid.UUID, roles ...string) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req = req.WithContext(auth.WithIdentity(req.Context(), userID.String(), roles))
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func httpCode(t *testing.T, err error) int {
	t.Helper()
	he, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected *echo.HTTPError, got %v", err)
	}
	return he.Code
}

func TestListBenefits_Handler(t *testing.T) {
	env := newTestEnv()
	h, e := NewHandler(env.svc), echo.New()
	b := env.addBenefit(t, "Pension")
	env.addBenefit(t, "Discount")
	env.svc.Deactivate(context.Background(), b.ID)

	c, rec := newContext(e, http.MethodGet, "/?all=true", "", uuid.New(), auth.RoleSenior)
	if err := h.ListBenefits(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var resp struct {
		Data  []BenefitView `json:"data"`
		Total int           `json:"total"`
	}
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Total != 1 || resp.Data[0].FormattedAmount != "₱1,000.00" {
		t.Errorf("non-admins only see active benefits, got %+v", resp)
	}

	c, rec = newContext(e, http.MethodGet, "/?all=true", "", uuid.New(), auth.RoleAdmin)
	if err := h.ListBenefits(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Total != 2 {
		t.Errorf("admins should see all benefits, got %d", resp.Total)
	}
}

func TestGetBenefit_InactiveHidden(t *testing.T) {
	env := newTestEnv()
	h, e := NewHandler(env.svc), echo.New()
	b := env.addBenefit(t, "Pension")
	env.svc.Deactivate(context.Background(), b.ID)

	c, _ := newContext(e, http.MethodGet, "/", "", uuid.New(), auth.RoleSenior)
	c.SetParamNames("id")
	c.SetParamValues(b.ID.String())
	if code := httpCode(t, h.GetBenefit(c)); code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", code)
	}
}

func TestClaimBenefit_Handler(t *testing.T) {
	env := newTestEnv()
	h, e := NewHandler(env.svc), echo.New()
	b := env.addBenefit(t, "Pension")
	userID := env.addUser(62)

	c, rec := newContext(e, http.MethodPost, "/", `{}`, userID, auth.RoleSenior)
	c.SetParamNames("id")
	c.SetParamValues(b.ID.String())
	if err := h.ClaimBenefit(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	var v ClaimView
	json.Unmarshal(rec.Body.Bytes(), &v)
	if v.UserID != userID || v.BenefitTitle != "Pension" || v.Status != ClaimPending {
		t.Errorf("unexpected claim view: %+v", v)
	}

	c, _ = newContext(e, http.MethodPost, "/", `{}`, userID, auth.RoleSenior)
	c.SetParamNames("id")
	c.SetParamValues(b.ID.String())
	if code := httpCode(t, h.ClaimBenefit(c)); code != http.StatusConflict {
		t.Errorf("expected 409 for duplicate claim, got %d", code)
	}
}

func TestClaimBenefit_OnBehalfForbidden(t *testing.T) {
	env := newTestEnv()
	h, e := NewHandler(env.svc), echo.New()
	b := env.addBenefit(t, "Pension")
	senior := env.addUser(70)

	body := `{"user_id":"` + senior.String() + `"}`
	c, _ := newContext(e, http.MethodPost, "/", body, uuid.New(), auth.RoleCaregiver)
	c.SetParamNames("id")
	c.SetParamValues(b.ID.String())
	if code := httpCode(t, h.ClaimBenefit(c)); code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", code)
	}
}

func TestClaimBenefit_NotEligible(t *testing.T) {
	env := newTestEnv()
	h, e := NewHandler(env.svc), echo.New()
	b := env.addBenefit(t, "Pension")
	userID := env.addUser(45)

	c, _ := newContext(e, http.MethodPost, "/", `{}`, userID, auth.RoleSenior)
	c.SetParamNames("id")
	c.SetParamValues(b.ID.String())
	if code := httpCode(t, h.ClaimBenefit(c)); code != http.StatusUnprocessableEntity {
		t.Errorf("expected 422, got %d", code)
	}
}

func TestReviewClaim_Handler(t *testing.T) {
	env := newTestEnv()
	h, e := NewHandler(env.svc), echo.New()
	b := env.addBenefit(t, "Pension")
	claim, _ := env.svc.Claim(context.Background(), env.addUser(65), b.ID, nil)

	c, rec := newContext(e, http.MethodPost, "/", `{"status":"approved","notes":"ok"}`, uuid.New(), auth.RoleAdmin)
	c.SetParamNames("id")
	c.SetParamValues(claim.ID.String())
	if err := h.ReviewClaim(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var v ClaimView
	json.Unmarshal(rec.Body.Bytes(), &v)
	if v.Status != ClaimApproved {
		t.Errorf("expected approved, got %s", v.Status)
	}

	c, _ = newContext(e, http.MethodPost, "/", `{"status":"rejected"}`, uuid.New(), auth.RoleAdmin)
	c.SetParamNames("id")
	c.SetParamValues(claim.ID.String())
	if code := httpCode(t, h.ReviewClaim(c)); code != http.StatusConflict {
		t.Errorf("expected 409, got %d", code)
	}
}

func TestGetClaim_ReadAccess(t *testing.T) {
	env := newTestEnv()
	h, e := NewHandler(env.svc), echo.New()
	b := env.addBenefit(t, "Pension")
	owner := env.addUser(65)
	claim, _ := env.svc.Claim(context.Background(), owner, b.ID, nil)

	c, _ := newContext(e, http.MethodGet, "/", "", uuid.New(), auth.RoleSenior)
	c.SetParamNames("id")
	c.SetParamValues(claim.ID.String())
	if code := httpCode(t, h.GetClaim(c)); code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", code)
	}

	c, rec := newContext(e, http.MethodGet, "/", "", uuid.New(), auth.RoleCaregiver)
	c.SetParamNames("id")
	c.SetParamValues(claim.ID.String())
	if err := h.GetClaim(c); err != nil {
		t.Fatalf("caregiver should read claims: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}
