package practitioner

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/rdv/rdv/internal/platform/auth"
)

func newTestHandler() (*Handler, *echo.Echo) {
	svc := newTestService()
	h := NewHandler(svc)
	e := echo.New()
	return h, e
}

func authed(req *http.Request, pid, email string) *http.Request {
	return req.WithContext(auth.WithIdentity(req.Context(), pid, email))
}

func TestHandler_SaveProfile(t *testing.T) {
	h, e := newTestHandler()
	body := `{"name":"Dra. Ana","registration_number":"123","registration_region":"MG","phone":"31 99876-5432"}`
	req := httptest.NewRequest(http.MethodPut, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req = authed(req, "auth0|vet", "ana@example.com")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.SaveProfile(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	var p Profile
	json.Unmarshal(rec.Body.Bytes(), &p)
	if p.Email != "ana@example.com" || p.Phone != "+5531998765432" {
		t.Errorf("unexpected profile %+v", p)
	}
}

func TestHandler_SaveProfile_Invalid(t *testing.T) {
	h, e := newTestHandler()
	req := httptest.NewRequest(http.MethodPut, "/", strings.NewReader(`{"phone":"1"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req = authed(req, "auth0|vet", "")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := h.SaveProfile(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %v", err)
	}
}

func TestHandler_GetProfile_Unauthenticated(t *testing.T) {
	h, e := newTestHandler()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := h.GetProfile(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %v", err)
	}
}

func TestHandler_GetProfile_NotFound(t *testing.T) {
	h, e := newTestHandler()
	req := authed(httptest.NewRequest(http.MethodGet, "/", nil), "auth0|vet", "")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := h.GetProfile(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %v", err)
	}
}

func TestHandler_GetStatus(t *testing.T) {
	h, e := newTestHandler()
	h.svc.SaveProfile(context.Background(), "auth0|vet", "", ProfileInput{Name: "Ana"})

	req := authed(httptest.NewRequest(http.MethodGet, "/", nil), "auth0|vet", "")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.GetStatus(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var st Status
	json.Unmarshal(rec.Body.Bytes(), &st)
	if st.Complete {
		t.Error("expected incomplete profile")
	}
	if len(st.MissingFields) != 2 || st.MissingFields[0] != "registration_number" {
		t.Errorf("unexpected missing fields %v", st.MissingFields)
	}
}
