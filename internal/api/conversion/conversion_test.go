package conversion

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Conversly/widget-engine/internal/core"
	"github.com/Conversly/widget-engine/internal/middleware"
	"github.com/Conversly/widget-engine/internal/session"
)

type allowAll struct{}

func (allowAll) Authenticate(context.Context, string) (*core.Credential, error) {
	return &core.Credential{ID: "c1", TenantID: "t1", Active: true}, nil
}

func setup(t *testing.T) (*gin.Engine, *session.MemoryStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	store := session.NewMemoryStore()
	mgr := session.NewManager(store, session.WithClock(func() time.Time {
		return time.Date(2025, 3, 3, 10, 0, 0, 0, time.UTC)
	}))
	if _, err := mgr.GetOrCreate(context.Background(), "t1", "s1", "1 Amber Bear", core.SessionMetadata{}); err != nil {
		t.Fatal(err)
	}
	if _, err := mgr.AppendUserTurn(context.Background(), "t1", "s1", "mail me at first@shop.test"); err != nil {
		t.Fatal(err)
	}

	r := gin.New()
	RegisterRoutes(r.Group("/api/v1/widget", middleware.RequireCredential(allowAll{})), mgr)
	return r, store
}

func post(r http.Handler, path string, body any) *httptest.ResponseRecorder {
	data, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestTrackConversion(t *testing.T) {
	r, store := setup(t)

	w := post(r, "/api/v1/widget/conversion", map[string]any{"sessionId": "s1", "type": "purchase", "value": 49.5})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	s, _ := store.Get(context.Background(), "t1", "s1")
	last := s.Conversions[len(s.Conversions)-1]
	if last.Type != core.ConversionPurchase || last.Value != 49.5 || last.Currency != "USD" || !s.HasConversion {
		t.Fatalf("unexpected conversion %+v", last)
	}
	if len(s.Turns) != 1 {
		t.Fatal("conversions never touch turns")
	}
}

func TestTrackConversionRejects(t *testing.T) {
	r, _ := setup(t)

	if w := post(r, "/api/v1/widget/conversion", map[string]any{"sessionId": "s1", "type": "refund"}); w.Code != http.StatusBadRequest {
		t.Fatalf("unknown type: expected 400, got %d", w.Code)
	}
	if w := post(r, "/api/v1/widget/conversion", map[string]any{"type": "purchase"}); w.Code != http.StatusBadRequest {
		t.Fatalf("missing session: expected 400, got %d", w.Code)
	}
	if w := post(r, "/api/v1/widget/conversion", map[string]any{"sessionId": "nope", "type": "purchase"}); w.Code != http.StatusNotFound {
		t.Fatalf("unknown session: expected 404, got %d", w.Code)
	}
}

func TestSubmitLeadOverwrites(t *testing.T) {
	r, store := setup(t)

	w := post(r, "/api/v1/widget/lead", map[string]any{"sessionId": "s1", "email": "second@shop.test", "name": "Ana"})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	s, _ := store.Get(context.Background(), "t1", "s1")
	if s.Lead.Email != "second@shop.test" || s.Lead.Name != "Ana" {
		t.Fatalf("form submission should overwrite, got %+v", s.Lead)
	}
	last := s.Conversions[len(s.Conversions)-1]
	if last.Type != core.ConversionLead || last.Metadata["source"] != "chat_widget_lead_gen" {
		t.Fatalf("unexpected lead event %+v", last)
	}

	if w := post(r, "/api/v1/widget/lead", map[string]any{"sessionId": "gone"}); w.Code != http.StatusNotFound {
		t.Fatalf("unknown session: expected 404, got %d", w.Code)
	}
}
