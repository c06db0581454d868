package widget

import (
	"time"

	"github.com/Conversly/widget-engine/internal/core"
	"github.com/Conversly/widget-engine/internal/triggers"
)

// InitRequest opens or resumes a widget session. SessionID and PageURL
// fall back to the X-Session-ID and Referer headers.
type InitRequest struct {
	SessionID string `json:"sessionId"`
	PageURL   string `json:"pageUrl"`
	Referrer  string `json:"referrer"`
}

// ConfigSnapshot is the effective assistant configuration sent to the
// widget, with the session it is bound to.
type ConfigSnapshot struct {
	core.AssistantConfig
	SessionID          string   `json:"sessionId"`
	ChatName           string   `json:"chatName"`
	SuggestedQuestions []string `json:"suggestedQuestions"`
}

// TurnView is a transcript entry with any stored product block decoded.
type TurnView struct {
	Role      core.Role          `json:"role"`
	Message   string             `json:"message"`
	Timestamp time.Time          `json:"timestamp"`
	Products  []core.ProductCard `json:"products,omitempty"`
}

type InitData struct {
	Exists         bool           `json:"exists"`
	SessionID      string         `json:"sessionId"`
	ChatName       string         `json:"chatName"`
	Config         ConfigSnapshot `json:"config"`
	Conversation   []TurnView     `json:"conversation"`
	Nudge          *core.Nudge    `json:"nudge"`
	IsOffline      bool           `json:"isOffline"`
	OfflineMessage string         `json:"offlineMessage"`
}

// ChatRequest is one visitor message. Preview runs the whole pipeline
// without saving anything; isPlayground is the older name for it.
type ChatRequest struct {
	SessionID  string `json:"sessionId"`
	ChatName   string `json:"chatName"`
	Message    string `json:"message" binding:"required"`
	PageURL    string `json:"pageUrl"`
	Referrer   string `json:"referrer"`
	Preview    bool   `json:"isPreview"`
	Playground bool   `json:"isPlayground"`

	UserAgent string `json:"-"`
}

func (r *ChatRequest) IsPreview() bool {
	return r.Preview || r.Playground
}

type LeadData struct {
	Type      string `json:"type"`
	Mandatory bool   `json:"mandatory"`
}

// ChatReply is the outbound payload of /chat.
type ChatReply struct {
	Message      string             `json:"message"`
	SessionID    string             `json:"sessionId"`
	ChatName     string             `json:"chatName"`
	Products     []core.ProductCard `json:"products"`
	Action       triggers.Action    `json:"action,omitempty"`
	HandoverData []string           `json:"handoverData,omitempty"`
	LeadData     *LeadData          `json:"leadData,omitempty"`
}

type HistoryData struct {
	Messages  []TurnView `json:"messages"`
	CreatedAt time.Time  `json:"createdAt"`
}
