package conversion

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/Conversly/widget-engine/internal/core"
	"github.com/Conversly/widget-engine/internal/session"
	"github.com/Conversly/widget-engine/internal/utils"
)

type Service struct {
	sessions *session.Manager
}

func NewService(sessions *session.Manager) *Service {
	return &Service{sessions: sessions}
}

// Track appends a conversion to an existing session. Turns are untouched.
func (s *Service) Track(ctx context.Context, cred *core.Credential, req *ConversionRequest) error {
	ev := core.ConversionEvent{
		Type:     core.ConversionType(strings.ToLower(strings.TrimSpace(req.Type))),
		Value:    req.Value,
		Currency: strings.ToUpper(strings.TrimSpace(req.Currency)),
		Metadata: req.Metadata,
	}
	if ev.Metadata == nil {
		ev.Metadata = map[string]any{}
	}
	if _, err := s.sessions.RecordConversion(ctx, cred.TenantID, req.SessionID, ev); err != nil {
		return err
	}

	utils.Zlog.Info("Conversion tracked",
		zap.String("tenant_id", cred.TenantID),
		zap.String("session_id", req.SessionID),
		zap.String("type", string(ev.Type)),
		zap.Float64("value", ev.Value))
	return nil
}

// SubmitLead stores the visitor's contact details and records a lead.
func (s *Service) SubmitLead(ctx context.Context, cred *core.Credential, req *LeadRequest) error {
	lead := core.Lead{
		Name:  strings.TrimSpace(req.Name),
		Email: strings.TrimSpace(req.Email),
		Phone: strings.TrimSpace(req.Phone),
	}
	if _, err := s.sessions.SubmitLead(ctx, cred.TenantID, req.SessionID, lead); err != nil {
		return err
	}

	utils.Zlog.Info("Lead submitted",
		zap.String("tenant_id", cred.TenantID),
		zap.String("session_id", req.SessionID),
		zap.Bool("email", lead.Email != ""),
		zap.Bool("phone", lead.Phone != ""))
	return nil
}
