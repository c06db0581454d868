package session

import (
	"regexp"
	"time"

	"github.com/Conversly/widget-engine/internal/core"
)

const (
	leadSourceChat   = "chat_capture"
	leadSourceWidget = "chat_widget_lead_gen"
)

var (
	emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)
	phonePattern = regexp.MustCompile(`(?:\+?\d{1,3}[- ]?)?\d{10}`)
)

// CaptureLead scans message for an email and a phone number and stores each
// one only if that field is still empty. When anything was captured it
// records a zero-value lead conversion. It reports whether s changed.
func CaptureLead(s *core.Session, message string, now time.Time) bool {
	captured := false

	if s.Lead.Email == "" {
		if m := emailPattern.FindString(message); m != "" {
			s.Lead.Email = m
			captured = true
		}
	}
	if s.Lead.Phone == "" {
		if m := phonePattern.FindString(message); m != "" {
			s.Lead.Phone = m
			captured = true
		}
	}
	if !captured {
		return false
	}

	s.Conversions = append(s.Conversions, core.ConversionEvent{
		Type:     core.ConversionLead,
		Value:    0,
		Currency: "USD",
		Metadata: map[string]any{
			"source": leadSourceChat,
			"email":  s.Lead.Email,
			"phone":  s.Lead.Phone,
		},
		Timestamp: now,
	})
	s.HasConversion = true
	return true
}
