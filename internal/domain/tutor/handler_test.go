package tutor

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/rdv/rdv/internal/platform/auth"
)

func newTestHandler() (*Handler, *echo.Echo) {
	svc := newTestService()
	h := NewHandler(svc)
	e := echo.New()
	return h, e
}

func authed(req *http.Request) *http.Request {
	return req.WithContext(auth.WithIdentity(req.Context(), vet, "vet@example.com"))
}

func TestHandler_CreateTutor(t *testing.T) {
	h, e := newTestHandler()
	body := `{"name":"Carlos Pereira","phone":"21 99876-5432"}`
	req := authed(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body)))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.CreateTutor(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}
}

func TestHandler_CreateTutor_Invalid(t *testing.T) {
	h, e := newTestHandler()
	req := authed(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"Jo"}`)))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := h.CreateTutor(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %v", err)
	}
}

func TestHandler_GetTutor_InvalidID(t *testing.T) {
	h, e := newTestHandler()
	req := authed(httptest.NewRequest(http.MethodGet, "/", nil))
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("not-a-uuid")

	if err := h.GetTutor(c); err == nil {
		t.Error("expected error for invalid id")
	}
}

func TestHandler_GetTutor_NotFound(t *testing.T) {
	h, e := newTestHandler()
	req := authed(httptest.NewRequest(http.MethodGet, "/", nil))
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(uuid.New().String())

	err := h.GetTutor(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %v", err)
	}
}

func TestHandler_ListTutors(t *testing.T) {
	h, e := newTestHandler()
	h.svc.Create(context.Background(), vet, validInput())

	req := authed(httptest.NewRequest(http.MethodGet, "/?q=maria", nil))
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.ListTutors(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var resp map[string]interface{}
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp["total"] != float64(1) {
		t.Errorf("expected total 1, got %v", resp["total"])
	}
}

func TestHandler_ListTutors_Empty(t *testing.T) {
	h, e := newTestHandler()
	req := authed(httptest.NewRequest(http.MethodGet, "/", nil))
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.ListTutors(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(rec.Body.String(), `"data":[]`) {
		t.Errorf("expected empty data array, got %s", rec.Body.String())
	}
}

func TestHandler_DeleteTutor(t *testing.T) {
	h, e := newTestHandler()
	tu, _ := h.svc.Create(context.Background(), vet, validInput())

	req := authed(httptest.NewRequest(http.MethodDelete, "/", nil))
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(tu.ID.String())

	if err := h.DeleteTutor(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", rec.Code)
	}
}

func TestHandler_Unauthenticated(t *testing.T) {
	h, e := newTestHandler()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := h.ListTutors(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %v", err)
	}
}
