package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/rdv/rdv/internal/platform/auth"
)

type mockRecorder struct {
	mu      sync.Mutex
	entries []AuditEntry
	err     error
}

func (m *mockRecorder) RecordAccess(entry AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, entry)
	return m.err
}

func (m *mockRecorder) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func runAudit(t *testing.T, rec AuditRecorder, method, path, practitioner string, handler echo.HandlerFunc) error {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(method, path, nil)
	if practitioner != "" {
		req = req.WithContext(auth.WithIdentity(context.Background(), practitioner, ""))
	}
	c := e.NewContext(req, httptest.NewRecorder())
	c.Set("request_id", "req-123")
	return Audit(zerolog.Nop(), rec)(handler)(c)
}

func TestAudit_RecordsAPIAccess(t *testing.T) {
	rec := &mockRecorder{}
	id := uuid.New().String()

	err := runAudit(t, rec, http.MethodDelete, "/api/v1/tutors/"+id, "vet-1", func(c echo.Context) error {
		return c.NoContent(http.StatusNoContent)
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.count() != 1 {
		t.Fatalf("expected 1 entry, got %d", rec.count())
	}
	got := rec.entries[0]
	if got.Resource != "tutors" || got.ResourceID != id {
		t.Errorf("unexpected resource %s/%s", got.Resource, got.ResourceID)
	}
	if got.Action != "delete" {
		t.Errorf("expected delete action, got %s", got.Action)
	}
	if got.PractitionerID != "vet-1" {
		t.Errorf("expected practitioner vet-1, got %s", got.PractitionerID)
	}
	if got.RequestID != "req-123" {
		t.Errorf("expected request id req-123, got %s", got.RequestID)
	}
}

func TestAudit_PublicLookupIsVerify(t *testing.T) {
	rec := &mockRecorder{}
	code := uuid.New().String()

	runAudit(t, rec, http.MethodGet, "/public/documents/"+code, "", func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusNotFound, "document not found or invalid code")
	})
	if rec.count() != 1 {
		t.Fatalf("expected 1 entry, got %d", rec.count())
	}
	got := rec.entries[0]
	if got.Action != "verify" || got.ResourceID != code {
		t.Errorf("unexpected entry %+v", got)
	}
	if got.StatusCode != http.StatusNotFound {
		t.Errorf("expected status 404 from handler error, got %d", got.StatusCode)
	}
}

func TestAudit_SkipsOtherPaths(t *testing.T) {
	rec := &mockRecorder{}
	runAudit(t, rec, http.MethodGet, "/health", "", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	if rec.count() != 0 {
		t.Errorf("expected no entries for /health, got %d", rec.count())
	}
}

func TestAudit_RecorderErrorDoesNotFailRequest(t *testing.T) {
	rec := &mockRecorder{err: errors.New("disk full")}
	err := runAudit(t, rec, http.MethodGet, "/api/v1/documents", "vet-1", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	if err != nil {
		t.Fatalf("recorder failure must not fail the request: %v", err)
	}
}

func TestResourceFromPath(t *testing.T) {
	id := uuid.New().String()
	tests := []struct {
		path     string
		resource string
		id       string
	}{
		{"/api/v1/tutors", "tutors", ""},
		{"/api/v1/tutors/" + id + "/patients", "tutors", id},
		{"/api/v1/documents/drafts", "documents", ""},
		{"/public/documents/" + id, "documents", id},
		{"/api/v1/", "unknown", ""},
	}
	for _, tt := range tests {
		r, rid := resourceFromPath(tt.path)
		if r != tt.resource || rid != tt.id {
			t.Errorf("resourceFromPath(%q) = (%q, %q), want (%q, %q)", tt.path, r, rid, tt.resource, tt.id)
		}
	}
}

func TestAudit_GlobalWithGroupAuth(t *testing.T) {
	rec := &mockRecorder{}
	e := echo.New()
	e.Use(RequestID())
	e.Use(Audit(zerolog.Nop(), rec))
	api := e.Group("/api/v1", auth.DevAuthMiddleware("vet-1", "vet@example.com", nil))
	api.DELETE("/tutors/:id", func(c echo.Context) error {
		return c.NoContent(http.StatusNoContent)
	})

	id := uuid.New().String()
	req := httptest.NewRequest(http.MethodDelete, "/api/v1/tutors/"+id, nil)
	w := httptest.NewRecorder()
	e.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", w.Code)
	}
	if rec.count() != 1 {
		t.Fatalf("expected 1 entry, got %d", rec.count())
	}
	got := rec.entries[0]
	if got.PractitionerID != "vet-1" {
		t.Errorf("expected practitioner vet-1, got %q", got.PractitionerID)
	}
	if got.RequestID == "" {
		t.Error("expected request id to be recorded")
	}
	if got.ResourceID != id {
		t.Errorf("expected resource id %s, got %s", id, got.ResourceID)
	}
}
