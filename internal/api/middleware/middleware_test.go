package middleware

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

func okHandler(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

func TestRateLimit_RejectsAfterBurst(t *testing.T) {
	e := echo.New()
	store := NewLimiterStore(1, 2)
	h := RateLimit(store)(okHandler)

	call := func(ip string) error {
		req := httptest.NewRequest(http.MethodPost, "/api/positions/", nil)
		req.Header.Set(echo.HeaderXRealIP, ip)
		return h(e.NewContext(req, httptest.NewRecorder()))
	}

	for i := 0; i < 2; i++ {
		if err := call("10.0.0.1"); err != nil {
			t.Fatalf("request %d within burst rejected: %v", i, err)
		}
	}

	err := call("10.0.0.1")
	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %v", err)
	}

	if err := call("10.0.0.2"); err != nil {
		t.Fatalf("other clients must have their own bucket: %v", err)
	}
}

func TestRateLimit_NilStoreDisables(t *testing.T) {
	e := echo.New()
	h := RateLimit(nil)(okHandler)

	for i := 0; i < 100; i++ {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		if err := h(e.NewContext(req, httptest.NewRecorder())); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
}

func TestLimiterStore_CleanupForgetsIdleKeys(t *testing.T) {
	store := NewLimiterStore(10, 10)
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	store.Get("idle")
	now = now.Add(defaultIdleTTL + time.Minute)
	store.Get("active")
	store.Cleanup()

	if store.Len() != 1 {
		t.Fatalf("expected only the active key to remain, got %d", store.Len())
	}
}

func TestRequestLogger_WritesAccessLine(t *testing.T) {
	var buf bytes.Buffer
	log := zerolog.New(&buf)

	e := echo.New()
	e.Use(RequestLogger(log))
	e.GET("/health", okHandler)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	out := buf.String()
	if !strings.Contains(out, `"uri":"/health"`) || !strings.Contains(out, `"status":200`) {
		t.Fatalf("unexpected access log: %s", out)
	}
}
