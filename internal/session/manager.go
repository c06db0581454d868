package session

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Conversly/widget-engine/internal/core"
	"github.com/Conversly/widget-engine/internal/utils"
)

const (
	memorySessions  = 5
	memoryTurnsEach = 6
	memoryHeader    = "\n\n**PREVIOUS CONVERSATION MEMORY**\n(Use this to recall user details if needed, but prioritize current context)\n"
)

// Manager applies the session lifecycle rules on top of a Store.
type Manager struct {
	store Store
	now   func() time.Time
	pick  func(n int) int
}

type Option func(*Manager)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithNamePicker overrides the random index used for chat names.
func WithNamePicker(pick func(n int) int) Option {
	return func(m *Manager) { m.pick = pick }
}

func NewManager(store Store, opts ...Option) *Manager {
	m := &Manager{store: store, now: time.Now}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Now is the manager's clock, truncated to what Postgres stores.
func (m *Manager) Now() time.Time {
	return m.now().UTC().Truncate(time.Microsecond)
}

// Lookup returns the session, or ok=false when it does not exist.
func (m *Manager) Lookup(ctx context.Context, tenantID, sessionID string) (*core.Session, bool, error) {
	s, err := m.store.Get(ctx, tenantID, sessionID)
	if errors.Is(err, ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, storeError("session.Lookup", err)
	}
	return s, true, nil
}

// ProposeName builds a display name for the tenant's next session.
func (m *Manager) ProposeName(ctx context.Context, tenantID string) (string, error) {
	n, err := m.store.CountSessions(ctx, tenantID)
	if err != nil {
		return "", storeError("session.ProposeName", err)
	}
	return ChatName(n, m.pick), nil
}

// GetOrCreate returns the existing session or persists a new one. A blank
// chatName gets a generated one.
func (m *Manager) GetOrCreate(ctx context.Context, tenantID, sessionID, chatName string, meta core.SessionMetadata) (*core.Session, error) {
	const op = "session.GetOrCreate"

	if s, ok, err := m.Lookup(ctx, tenantID, sessionID); err != nil || ok {
		return s, err
	}

	if strings.TrimSpace(chatName) == "" {
		name, err := m.ProposeName(ctx, tenantID)
		if err != nil {
			return nil, err
		}
		chatName = name
	}

	now := m.Now()
	s, err := m.store.Create(ctx, &core.Session{
		ID:        uuid.NewString(),
		TenantID:  tenantID,
		SessionID: sessionID,
		ChatName:  chatName,
		Metadata:  meta,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return nil, storeError(op, err)
	}

	utils.Zlog.Info("Session created",
		zap.String("tenant_id", tenantID),
		zap.String("session_id", sessionID),
		zap.String("chat_name", s.ChatName))
	return s, nil
}

// Ephemeral builds an unsaved session for preview runs.
func (m *Manager) Ephemeral(tenantID, sessionID, chatName string) *core.Session {
	now := m.Now()
	return &core.Session{
		TenantID:  tenantID,
		SessionID: sessionID,
		ChatName:  chatName,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// AppendUserTurn durably records the visitor message and, in the same
// write, captures any email or phone it contains.
func (m *Manager) AppendUserTurn(ctx context.Context, tenantID, sessionID, message string) (*core.Session, error) {
	s, err := m.store.Mutate(ctx, tenantID, sessionID, func(s *core.Session) error {
		now := m.Now()
		AppendTurn(s, core.RoleUser, message, 0, now)
		if CaptureLead(s, message, now) {
			utils.Zlog.Info("Lead details captured from chat",
				zap.String("tenant_id", tenantID),
				zap.String("session_id", sessionID))
		}
		return nil
	})
	if err != nil {
		return nil, storeError("session.AppendUserTurn", err)
	}
	return s, nil
}

// AppendBotTurn durably records the assistant reply and its token cost.
func (m *Manager) AppendBotTurn(ctx context.Context, tenantID, sessionID, message string, tokens int) (*core.Session, error) {
	s, err := m.store.Mutate(ctx, tenantID, sessionID, func(s *core.Session) error {
		AppendTurn(s, core.RoleBot, message, tokens, m.Now())
		return nil
	})
	if err != nil {
		return nil, storeError("session.AppendBotTurn", err)
	}
	return s, nil
}

// RecentUserTurnCount counts the session's user turns inside the trailing window.
func (m *Manager) RecentUserTurnCount(s *core.Session, window time.Duration) int {
	return s.UserTurnsSince(m.Now().Add(-window))
}

// CrossSessionMemory condenses the tenant's most recently updated other
// sessions into a prompt section. It returns "" when there is nothing to recall.
func (m *Manager) CrossSessionMemory(ctx context.Context, tenantID, excludeSessionID string) (string, error) {
	sessions, err := m.store.RecentSessions(ctx, tenantID, excludeSessionID, memorySessions, memoryTurnsEach)
	if err != nil {
		return "", storeError("session.CrossSessionMemory", err)
	}
	return FormatMemory(sessions), nil
}

// FormatMemory renders sessions as "User:"/"Assistant:" transcripts joined
// by separators, under the memory header.
func FormatMemory(sessions []*core.Session) string {
	var texts []string
	for _, s := range sessions {
		lines := make([]string, 0, len(s.Turns))
		for _, t := range s.Turns {
			speaker := "Assistant"
			if t.Role == core.RoleUser {
				speaker = "User"
			}
			lines = append(lines, speaker+": "+t.Message)
		}
		text := strings.Join(lines, "\n")
		if strings.TrimSpace(text) != "" {
			texts = append(texts, text)
		}
	}
	if len(texts) == 0 {
		return ""
	}
	return memoryHeader + strings.Join(texts, "\n---\n")
}

// RecordConversion appends a widget-reported conversion.
func (m *Manager) RecordConversion(ctx context.Context, tenantID, sessionID string, ev core.ConversionEvent) (*core.Session, error) {
	const op = "session.RecordConversion"
	if !ev.Type.Valid() {
		return nil, utils.E(utils.CodeInvalidArgument, op, "Invalid conversion type", nil)
	}
	if ev.Currency == "" {
		ev.Currency = "USD"
	}

	s, err := m.store.Mutate(ctx, tenantID, sessionID, func(s *core.Session) error {
		now := m.Now()
		if ev.Timestamp.IsZero() {
			ev.Timestamp = now
		}
		s.Conversions = append(s.Conversions, ev)
		s.HasConversion = true
		s.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, storeError(op, err)
	}
	return s, nil
}

// SubmitLead stores contact details the visitor entered in the lead form.
// Unlike passive capture, provided fields overwrite earlier values.
func (m *Manager) SubmitLead(ctx context.Context, tenantID, sessionID string, lead core.Lead) (*core.Session, error) {
	const op = "session.SubmitLead"

	s, err := m.store.Mutate(ctx, tenantID, sessionID, func(s *core.Session) error {
		now := m.Now()
		if lead.Email != "" {
			s.Lead.Email = lead.Email
		}
		if lead.Phone != "" {
			s.Lead.Phone = lead.Phone
		}
		if lead.Name != "" {
			s.Lead.Name = lead.Name
		}
		s.Conversions = append(s.Conversions, core.ConversionEvent{
			Type:     core.ConversionLead,
			Currency: "USD",
			Metadata: map[string]any{
				"email":  lead.Email,
				"phone":  lead.Phone,
				"name":   lead.Name,
				"source": leadSourceWidget,
			},
			Timestamp: now,
		})
		s.HasConversion = true
		s.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, storeError(op, err)
	}
	return s, nil
}

// AppendTurn adds a turn stamped strictly after the previous one and adds
// its tokens to the session total.
func AppendTurn(s *core.Session, role core.Role, message string, tokens int, now time.Time) {
	ts := now
	if n := len(s.Turns); n > 0 && !ts.After(s.Turns[n-1].Timestamp) {
		ts = s.Turns[n-1].Timestamp.Add(time.Microsecond)
	}
	s.Turns = append(s.Turns, core.Turn{Role: role, Message: message, Timestamp: ts, Tokens: tokens})
	s.TotalTokens += tokens
	s.UpdatedAt = ts
}

func storeError(op string, err error) error {
	var appErr *utils.AppError
	switch {
	case errors.As(err, &appErr):
		return err
	case errors.Is(err, ErrNotFound):
		return utils.E(utils.CodeNotFound, op, "Session not found", err)
	case errors.Is(err, errShrunk):
		return utils.E(utils.CodeInternal, op, "", err)
	default:
		return utils.E(utils.CodePersistence, op, "Failed to save conversation", err)
	}
}
