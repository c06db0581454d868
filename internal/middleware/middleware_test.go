package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Conversly/widget-engine/internal/core"
	"github.com/Conversly/widget-engine/internal/utils"
)

type memCounter struct {
	counts map[string]int64
	ttls   map[string]time.Duration
	err    error
}

func newMemCounter() *memCounter {
	return &memCounter{counts: map[string]int64{}, ttls: map[string]time.Duration{}}
}

func (m *memCounter) Hit(_ context.Context, key string, ttl time.Duration) (int64, error) {
	if m.err != nil {
		return 0, m.err
	}
	m.counts[key]++
	m.ttls[key] = ttl
	return m.counts[key], nil
}

type stubAuth struct {
	cred *core.Credential
}

func (s stubAuth) Authenticate(_ context.Context, token string) (*core.Credential, error) {
	if token != "good" {
		return nil, utils.E(utils.CodeInvalidCredential, "test", "Invalid Key", nil)
	}
	return s.cred, nil
}

func newRouter(l *Limiter, cred *core.Credential) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID())
	r.GET("/x", RequireCredential(stubAuth{cred: cred}), RateLimit(l), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return r
}

func get(r http.Handler, key string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	if key != "" {
		req.Header.Set(HeaderAPIKey, key)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRequireCredential(t *testing.T) {
	r := newRouter(nil, &core.Credential{ID: "c1"})

	w := get(r, "bad")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["error"] != string(utils.CodeInvalidCredential) || body["message"] != "Invalid Key" {
		t.Fatalf("unexpected envelope %v", body)
	}
	if body["request_id"] == "" || w.Header().Get(HeaderRequestID) == "" {
		t.Fatal("request id missing")
	}

	if w := get(r, "good"); w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", w.Code)
	}
}

func TestRateLimitPerMinute(t *testing.T) {
	counter := newMemCounter()
	l := NewLimiter(counter)
	l.now = func() time.Time { return time.Date(2025, 3, 3, 10, 0, 30, 0, time.UTC) }
	r := newRouter(l, &core.Credential{ID: "c1", RequestsPerMinute: 2, RequestsPerDay: 100})

	for i := 0; i < 2; i++ {
		if w := get(r, "good"); w.Code != http.StatusNoContent {
			t.Fatalf("request %d: expected 204, got %d", i, w.Code)
		}
	}
	w := get(r, "good")
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", w.Code)
	}
	var body map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	if body["message"] != RateLimitMessage {
		t.Fatalf("unexpected message %v", body["message"])
	}

	// the next minute starts a fresh window
	l.now = func() time.Time { return time.Date(2025, 3, 3, 10, 1, 0, 0, time.UTC) }
	if w := get(r, "good"); w.Code != http.StatusNoContent {
		t.Fatalf("expected new window to allow, got %d", w.Code)
	}
}

func TestRateLimitPerDayAndDefaults(t *testing.T) {
	counter := newMemCounter()
	l := NewLimiter(counter)
	minute := 0
	l.now = func() time.Time {
		minute++
		return time.Date(2025, 3, 3, 10, minute, 0, 0, time.UTC)
	}
	cred := &core.Credential{ID: "c2", RequestsPerDay: 3}
	for i := 0; i < 3; i++ {
		if !l.Allow(context.Background(), cred) {
			t.Fatalf("request %d should pass", i)
		}
	}
	if l.Allow(context.Background(), cred) {
		t.Fatal("fourth request of the day must be refused")
	}
	for key, ttl := range counter.ttls {
		if ttl <= 0 {
			t.Fatalf("key %s has no expiry", key)
		}
	}
}

func TestRateLimitFailsOpen(t *testing.T) {
	counter := newMemCounter()
	counter.err = errors.New("connection refused")
	l := NewLimiter(counter)
	if !l.Allow(context.Background(), &core.Credential{ID: "c3", RequestsPerMinute: 1}) {
		t.Fatal("counter outage must not block visitors")
	}
}
