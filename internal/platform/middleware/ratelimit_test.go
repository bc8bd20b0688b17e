package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
)

func hitLimiter(h echo.HandlerFunc, ip, practitioner string) (*httptest.ResponseRecorder, error) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(echo.HeaderXRealIP, ip)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if practitioner != "" {
		c.Set("practitioner_id", practitioner)
	}
	return rec, h(c)
}

func okHandler(c echo.Context) error { return c.String(http.StatusOK, "ok") }

func TestRateLimit_AllowsBurst(t *testing.T) {
	h := RateLimit(RateLimitConfig{RequestsPerSecond: 1, BurstSize: 3})(okHandler)
	for i := 0; i < 3; i++ {
		if _, err := hitLimiter(h, "10.0.0.1", ""); err != nil {
			t.Fatalf("request %d: unexpected error %v", i, err)
		}
	}
}

func TestRateLimit_RejectsOverBurst(t *testing.T) {
	h := RateLimit(RateLimitConfig{RequestsPerSecond: 0.5, BurstSize: 2})(okHandler)
	hitLimiter(h, "10.0.0.2", "")
	hitLimiter(h, "10.0.0.2", "")

	rec, err := hitLimiter(h, "10.0.0.2", "")
	if err == nil {
		t.Fatal("expected rate limit error")
	}
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %v", err)
	}
	if rec.Header().Get("Retry-After") != "2" {
		t.Errorf("expected Retry-After 2, got %q", rec.Header().Get("Retry-After"))
	}
	if rec.Header().Get("X-RateLimit-Remaining") != "0" {
		t.Error("expected X-RateLimit-Remaining 0")
	}
}

func TestRateLimit_SeparateKeys(t *testing.T) {
	h := RateLimit(RateLimitConfig{RequestsPerSecond: 0.1, BurstSize: 1})(okHandler)
	if _, err := hitLimiter(h, "10.0.0.3", ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := hitLimiter(h, "10.0.0.4", ""); err != nil {
		t.Fatalf("different IP should have its own bucket: %v", err)
	}
	if _, err := hitLimiter(h, "10.0.0.3", "vet-1"); err != nil {
		t.Fatalf("authenticated practitioner should have its own bucket: %v", err)
	}
}

func TestLimiterStore_SweepsIdleVisitors(t *testing.T) {
	store := newLimiterStore(RateLimitConfig{RequestsPerSecond: 1, BurstSize: 1, IdleTTL: time.Minute})
	now := time.Now()
	store.now = func() time.Time { return now }
	store.lastSweep = now

	store.get("a")
	store.get("b")
	if store.size() != 2 {
		t.Fatalf("expected 2 visitors, got %d", store.size())
	}

	now = now.Add(2 * time.Minute)
	store.get("c")
	if store.size() != 1 {
		t.Errorf("expected idle visitors to be swept, got %d", store.size())
	}
}

func TestRetryAfterSeconds(t *testing.T) {
	if got := retryAfterSeconds(0); got != 1 {
		t.Errorf("expected 1 for zero rate, got %d", got)
	}
	if got := retryAfterSeconds(10); got != 1 {
		t.Errorf("expected 1 for 10 rps, got %d", got)
	}
	if got := retryAfterSeconds(0.25); got != 4 {
		t.Errorf("expected 4 for 0.25 rps, got %d", got)
	}
}
