package core

import (
	"time"
)

// Role of a transcript turn.
type Role string

const (
	RoleUser   Role = "user"
	RoleBot    Role = "bot"
	RoleSystem Role = "system"
)

// Turn is one immutable transcript entry.
type Turn struct {
	Role      Role      `json:"role"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Tokens    int       `json:"tokens,omitempty"`
}

type ConversionType string

const (
	ConversionLead     ConversionType = "lead"
	ConversionPurchase ConversionType = "purchase"
	ConversionBooking  ConversionType = "booking"
	ConversionEnquiry  ConversionType = "enquiry"
	ConversionCustom   ConversionType = "custom"
)

func (t ConversionType) Valid() bool {
	switch t {
	case ConversionLead, ConversionPurchase, ConversionBooking, ConversionEnquiry, ConversionCustom:
		return true
	}
	return false
}

type ConversionEvent struct {
	Type      ConversionType `json:"type"`
	Value     float64        `json:"value"`
	Currency  string         `json:"currency"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Lead holds the contact fields captured for a visitor.
type Lead struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

type SessionMetadata struct {
	UserAgent string `json:"userAgent,omitempty"`
	PageURL   string `json:"pageUrl,omitempty"`
	Referrer  string `json:"referrer,omitempty"`
}

// Session is one visitor conversation with a tenant's assistant.
// Turns and Conversions only ever grow; HasConversion never reverts.
type Session struct {
	ID            string            `json:"-"`
	TenantID      string            `json:"-"`
	SessionID     string            `json:"sessionId"`
	ChatName      string            `json:"chatName"`
	Turns         []Turn            `json:"conversation"`
	Lead          Lead              `json:"lead"`
	HasConversion bool              `json:"hasConversion"`
	Conversions   []ConversionEvent `json:"conversions"`
	TotalTokens   int               `json:"totalTokens"`
	Metadata      SessionMetadata   `json:"metadata"`
	CreatedAt     time.Time         `json:"createdAt"`
	UpdatedAt     time.Time         `json:"updatedAt"`
}

// UserTurnCount counts every user turn in the transcript.
func (s *Session) UserTurnCount() int {
	n := 0
	for _, t := range s.Turns {
		if t.Role == RoleUser {
			n++
		}
	}
	return n
}

// UserTurnsSince counts user turns stamped strictly after since.
func (s *Session) UserTurnsSince(since time.Time) int {
	n := 0
	for _, t := range s.Turns {
		if t.Role == RoleUser && t.Timestamp.After(since) {
			n++
		}
	}
	return n
}

// LastTurns returns at most n trailing turns.
func (s *Session) LastTurns(n int) []Turn {
	if n <= 0 || len(s.Turns) == 0 {
		return nil
	}
	if len(s.Turns) <= n {
		return s.Turns
	}
	return s.Turns[len(s.Turns)-n:]
}

// Clone deep-copies the slices so callers can mutate without aliasing.
func (s *Session) Clone() *Session {
	c := *s
	c.Turns = append([]Turn(nil), s.Turns...)
	c.Conversions = make([]ConversionEvent, len(s.Conversions))
	for i, ev := range s.Conversions {
		c.Conversions[i] = ev
		if ev.Metadata != nil {
			m := make(map[string]any, len(ev.Metadata))
			for k, v := range ev.Metadata {
				m[k] = v
			}
			c.Conversions[i].Metadata = m
		}
	}
	return &c
}

type ProviderFamily string

const (
	ProviderOpenAI     ProviderFamily = "openai"
	ProviderOpenRouter ProviderFamily = "openrouter"
	ProviderGemini     ProviderFamily = "gemini"
)

// Credential is a tenant's widget integration token and its usage counters.
type Credential struct {
	ID                string
	TenantID          string
	Token             string
	Active            bool
	Provider          string
	ProviderSecret    string
	RequestsPerMinute int
	RequestsPerDay    int
	TotalRequests     int64
	TotalTokens       int64
	LastUsedAt        *time.Time
	ExpiresAt         *time.Time
}

// Expired reports whether the credential has an expiry at or before now.
func (c *Credential) Expired(now time.Time) bool {
	return c.ExpiresAt != nil && !c.ExpiresAt.After(now)
}

// Tenant is the store owning an assistant.
type Tenant struct {
	ID       string
	Name     string
	StoreURL string
	Config   AssistantConfig
}

type Product struct {
	ID          string
	Name        string
	Description string
	Price       float64
	ImageURL    string
	URL         string
	Tags        []string
}

// ProductCard is the product shape attached to a reply.
type ProductCard struct {
	Name        string  `json:"name"`
	Price       float64 `json:"price"`
	ImageURL    string  `json:"imageUrl"`
	URL         string  `json:"url"`
	Description string  `json:"description"`
}

type FAQ struct {
	Question string
	Answer   string
}

const SnapshotStatusSuccess = "success"

// PageSnapshot is a crawled page as stored by the crawler.
type PageSnapshot struct {
	ID        string
	URL       string
	Title     string
	Summary   string
	Content   string
	Status    string
	CrawledAt time.Time
}

// Preview is the leading slice of the page content.
func (p PageSnapshot) Preview() string {
	const max = 300
	r := []rune(p.Content)
	if len(r) <= max {
		return p.Content
	}
	return string(r[:max])
}

const SourceTypeWeb = "web"

// KnowledgeChunk is an embedded fragment of a tenant's website.
type KnowledgeChunk struct {
	ID         int64
	TenantID   string
	SourceURL  string
	ChunkIndex int
	Text       string
	Embedding  []float32
	SourceType string
}

type Nudge struct {
	ID      string         `json:"id"`
	Type    string         `json:"type"`
	Active  bool           `json:"isActive"`
	Payload map[string]any `json:"payload,omitempty"`
}
