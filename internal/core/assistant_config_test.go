package core

import (
	"testing"
	"time"
)

func TestParseAssistantConfigDefaults(t *testing.T) {
	cfg, err := ParseAssistantConfig(nil)
	if err != nil {
		t.Fatalf("ParseAssistantConfig err: %v", err)
	}
	if cfg.AssistantName != DefaultAssistantName {
		t.Errorf("assistant name: got %q", cfg.AssistantName)
	}
	if cfg.WelcomeMessage != "Hi! I'm AI Assistant. How can I help you today?" {
		t.Errorf("welcome: got %q", cfg.WelcomeMessage)
	}
	if cfg.CustomerMessageLimit != 20 {
		t.Errorf("limit: got %d", cfg.CustomerMessageLimit)
	}
	if !cfg.HandoverSummaryEnabled {
		t.Error("handover summary should default to enabled")
	}
	if cfg.LeadAskAfterMessages != 5 || cfg.LeadCollectionType != "email" {
		t.Errorf("lead defaults: %d %q", cfg.LeadAskAfterMessages, cfg.LeadCollectionType)
	}
	if cfg.AIModel != TierLite {
		t.Errorf("tier: got %q", cfg.AIModel)
	}
	if cfg.Timezone != "UTC" || cfg.BusinessHours.Enabled {
		t.Errorf("business hours defaults: %+v", cfg.BusinessHours)
	}
	if cfg.HandoverFlowAvailable == nil || cfg.HandoverFlowUnavailable == nil {
		t.Error("flow lists should never be nil")
	}
}

func TestParseAssistantConfigOverrides(t *testing.T) {
	doc := []byte(`{
		"assistantName": "Mia",
		"customerMessageLimit": 0,
		"handoverSummaryEnabled": false,
		"handoverIntents": [{"text": "refund"}, {"text": "  "}],
		"handoverFlowAvailable": "live_chat",
		"handoverFlowUnavailable": ["email", "ticket"],
		"leadAskAfterMessages": 0,
		"businessHoursEnabled": true,
		"businessHoursTimezone": "Asia/Kolkata",
		"businessHoursSchedule": [{"day": "Monday", "start": "", "end": "18:00"}]
	}`)
	cfg, err := ParseAssistantConfig(doc)
	if err != nil {
		t.Fatalf("ParseAssistantConfig err: %v", err)
	}
	if cfg.AssistantName != "Mia" || cfg.WelcomeMessage != "Hi! I'm Mia. How can I help you today?" {
		t.Errorf("name/welcome: %q %q", cfg.AssistantName, cfg.WelcomeMessage)
	}
	if cfg.CustomerMessageLimit != 0 {
		t.Errorf("explicit zero limit must be kept, got %d", cfg.CustomerMessageLimit)
	}
	if cfg.HandoverSummaryEnabled {
		t.Error("explicit false must be kept")
	}
	if got := cfg.HandoverKeywords(); len(got) != 1 || got[0] != "refund" {
		t.Errorf("keywords: %v", got)
	}
	if len(cfg.HandoverFlowAvailable) != 1 || cfg.HandoverFlowAvailable[0] != "live_chat" {
		t.Errorf("single flow should become a list: %v", cfg.HandoverFlowAvailable)
	}
	if len(cfg.HandoverFlowUnavailable) != 2 {
		t.Errorf("flow list: %v", cfg.HandoverFlowUnavailable)
	}
	if cfg.LeadAskAfterMessages != DefaultLeadAskAfter {
		t.Errorf("zero threshold falls back to default, got %d", cfg.LeadAskAfterMessages)
	}
	if len(cfg.Schedule) != 1 {
		t.Fatalf("schedule: %+v", cfg.Schedule)
	}
	day := cfg.Schedule[0]
	if day.Start != "09:00" || day.End != "18:00" || !day.Enabled {
		t.Errorf("day defaults: %+v", day)
	}
}

func TestParseAssistantConfigInvalid(t *testing.T) {
	if _, err := ParseAssistantConfig([]byte(`{"assistantName": 3}`)); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestSessionCounters(t *testing.T) {
	now := time.Date(2025, 3, 3, 12, 0, 0, 0, time.UTC)
	s := &Session{Turns: []Turn{
		{Role: RoleUser, Timestamp: now.Add(-2 * time.Hour)},
		{Role: RoleBot, Timestamp: now.Add(-2 * time.Hour)},
		{Role: RoleUser, Timestamp: now.Add(-10 * time.Minute)},
		{Role: RoleUser, Timestamp: now.Add(-time.Minute)},
	}}
	if got := s.UserTurnCount(); got != 3 {
		t.Errorf("user turns: got %d", got)
	}
	if got := s.UserTurnsSince(now.Add(-time.Hour)); got != 2 {
		t.Errorf("recent user turns: got %d", got)
	}
	if got := s.LastTurns(2); len(got) != 2 || got[1].Timestamp != now.Add(-time.Minute) {
		t.Errorf("last turns: %+v", got)
	}

	c := s.Clone()
	c.Turns = append(c.Turns, Turn{Role: RoleUser})
	if len(s.Turns) != 4 {
		t.Error("clone must not alias turns")
	}
}

func TestCredentialExpired(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Minute)
	c := &Credential{ExpiresAt: &past}
	if !c.Expired(now) {
		t.Error("expected expired")
	}
	c.ExpiresAt = nil
	if c.Expired(now) {
		t.Error("no expiry means never expired")
	}
}
