package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Conversly/widget-engine/internal/config"
)

func serve(h gin.HandlerFunc) (*httptest.ResponseRecorder, map[string]any) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/x", h)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	var body map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	return w, body
}

func TestHealthCheck(t *testing.T) {
	up := PingFunc(func(context.Context) error { return nil })
	down := PingFunc(func(context.Context) error { return errors.New("refused") })

	w, body := serve(NewHealthController(up, nil).HealthCheck)
	if w.Code != http.StatusOK || body["redis"] != "disabled" || body["status"] != "healthy" {
		t.Fatalf("unexpected %d %v", w.Code, body)
	}

	w, body = serve(NewHealthController(up, down).Readiness)
	if w.Code != http.StatusOK || body["redis"] != "down" {
		t.Fatalf("redis outage must not fail readiness: %d %v", w.Code, body)
	}

	w, body = serve(NewHealthController(down, up).Readiness)
	if w.Code != http.StatusServiceUnavailable || body["database"] != "down" {
		t.Fatalf("expected 503, got %d %v", w.Code, body)
	}
}

func TestStatus(t *testing.T) {
	cfg := &config.Config{ServiceName: "widget-engine", EmbeddingProvider: "openai", ProviderTimeout: 30 * time.Second}
	_, body := serve(NewSystemController(cfg).Status)
	if body["service"] != "widget-engine" || body["request_limiter"] != false || body["provider_timeout"] != "30s" {
		t.Fatalf("unexpected status %v", body)
	}
}
