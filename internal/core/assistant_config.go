package core

import (
	"encoding/json"
	"fmt"
	"strings"
)

type ModelTier string

const (
	TierLite  ModelTier = "lite"
	TierPro   ModelTier = "pro"
	TierUltra ModelTier = "ultra"
)

const (
	DefaultAssistantName        = "AI Assistant"
	DefaultCustomerMessageLimit = 20
	DefaultLimitMessage         = "I've received too many messages from you. Please wait for sometime or connect with us directly on call or WhatsApp at +91-9999999999"
	DefaultOfflineMessage       = "We are currently offline. Please leave a message."
	DefaultConnectMessage       = "Connecting you to an agent..."
	DefaultLeadAskAfter         = 5
)

// Starter is one conversation-starter button.
type Starter struct {
	ID      string `json:"id,omitempty"`
	Label   string `json:"label"`
	Enabled bool   `json:"enabled"`
	Tag     string `json:"tag,omitempty"`
}

type ConversationStarters struct {
	Home       []Starter `json:"home,omitempty"`
	Search     []Starter `json:"search,omitempty"`
	Product    []Starter `json:"product,omitempty"`
	Collection []Starter `json:"collection,omitempty"`
	Other      []Starter `json:"other,omitempty"`
}

type HandoverIntent struct {
	Text string `json:"text"`
}

// DaySchedule is one weekday's opening window, "HH:mm" local time.
type DaySchedule struct {
	Day     string `json:"day"`
	Start   string `json:"start"`
	End     string `json:"end"`
	Enabled bool   `json:"enabled"`
}

type BusinessHours struct {
	Enabled  bool          `json:"businessHoursEnabled"`
	Timezone string        `json:"businessHoursTimezone"`
	Schedule []DaySchedule `json:"businessHoursSchedule"`
}

// AssistantConfig is a tenant's assistant policy with every default
// already resolved. Build it with ParseAssistantConfig.
type AssistantConfig struct {
	AssistantName  string `json:"assistantName"`
	WelcomeMessage string `json:"welcomeMessage"`
	PrimaryColor   string `json:"interfaceColor"`
	Avatar         string `json:"avatar"`
	Language       string `json:"language"`
	ActiveChannel  string `json:"activeChannel"`

	ConversationStarters ConversationStarters `json:"conversationStarters"`

	AIModel                ModelTier `json:"aiModel"`
	Personality            string    `json:"personality"`
	PersonalityDescription string    `json:"-"`
	BrandDescription       string    `json:"-"`
	ResponseLength         string    `json:"-"`
	CustomInstructions     string    `json:"customInstructions"`
	Guardrails             string    `json:"-"`

	LeadAskEnabled          bool   `json:"leadAskOnConversationStart"`
	LeadAskAfterMessages    int    `json:"leadAskAfterMessages"`
	LeadCollectionMandatory bool   `json:"leadCollectionMandatory"`
	LeadCollectionType      string `json:"leadCollectionType"`

	ShowAddToCart               bool   `json:"showAddToCart"`
	CustomerMessageLimit        int    `json:"customerMessageLimit"`
	CustomerMessageLimitMessage string `json:"customerMessageLimitMessage"`

	HandoverIntents         []HandoverIntent `json:"-"`
	HandoverSummaryEnabled  bool             `json:"handoverSummaryEnabled"`
	HandoverFlowAvailable   []string         `json:"handoverFlowAvailable"`
	HandoverFlowUnavailable []string         `json:"handoverFlowUnavailable"`
	HandoverOfflineMessage  string           `json:"handoverOfflineMessage"`

	BusinessHours

	// Handover channel details are rendered by the widget only.
	SupportContact json.RawMessage `json:"supportContact,omitempty"`
	SupportRequest json.RawMessage `json:"supportRequest,omitempty"`
	LiveChat       json.RawMessage `json:"liveChat,omitempty"`
	CreateTicket   json.RawMessage `json:"createTicket,omitempty"`
	CustomHandover json.RawMessage `json:"customHandover,omitempty"`
}

// rawAssistantConfig mirrors the stored document; nil means "not set".
type rawAssistantConfig struct {
	AssistantName          *string               `json:"assistantName"`
	WelcomeNote            *string               `json:"welcomeNote"`
	PrimaryColor           *string               `json:"primaryColor"`
	Avatar                 *string               `json:"avatar"`
	Language               *string               `json:"language"`
	ActiveChannel          *string               `json:"activeChannel"`
	ConversationStarters   *ConversationStarters `json:"conversationStarters"`
	AIModel                *string               `json:"aiModel"`
	Personality            *string               `json:"personality"`
	PersonalityDescription *string               `json:"personalityDescription"`
	BrandDescription       *string               `json:"brandDescription"`
	ResponseLength         *string               `json:"responseLength"`
	CustomInstructions     *string               `json:"customInstructions"`
	Guardrails             *string               `json:"guardrails"`

	LeadAskOnConversationStart *bool   `json:"leadAskOnConversationStart"`
	LeadAskAfterMessages       *int    `json:"leadAskAfterMessages"`
	LeadCollectionMandatory    *bool   `json:"leadCollectionMandatory"`
	LeadCollectionType         *string `json:"leadCollectionType"`

	ShowAddToCart               *bool   `json:"showAddToCart"`
	CustomerMessageLimit        *int    `json:"customerMessageLimit"`
	CustomerMessageLimitMessage *string `json:"customerMessageLimitMessage"`

	HandoverIntents         []HandoverIntent `json:"handoverIntents"`
	HandoverSummaryEnabled  *bool            `json:"handoverSummaryEnabled"`
	HandoverFlowAvailable   flowList         `json:"handoverFlowAvailable"`
	HandoverFlowUnavailable flowList         `json:"handoverFlowUnavailable"`
	HandoverOfflineMessage  *string          `json:"handoverOfflineMessage"`

	BusinessHoursEnabled  *bool   `json:"businessHoursEnabled"`
	BusinessHoursTimezone *string `json:"businessHoursTimezone"`
	BusinessHoursSchedule []struct {
		Day     string `json:"day"`
		Start   string `json:"start"`
		End     string `json:"end"`
		Enabled *bool  `json:"enabled"`
	} `json:"businessHoursSchedule"`

	SupportContact json.RawMessage `json:"supportContact"`
	SupportRequest json.RawMessage `json:"supportRequest"`
	LiveChat       json.RawMessage `json:"liveChat"`
	CreateTicket   json.RawMessage `json:"createTicket"`
	CustomHandover json.RawMessage `json:"customHandover"`
}

// flowList accepts either a single flow id or a list of them.
type flowList []string

func (f *flowList) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" || trimmed == "" {
		*f = nil
		return nil
	}
	if strings.HasPrefix(trimmed, "[") {
		var list []string
		if err := json.Unmarshal(data, &list); err != nil {
			return err
		}
		*f = list
		return nil
	}
	var single string
	if err := json.Unmarshal(data, &single); err != nil {
		return fmt.Errorf("handover flow: %w", err)
	}
	if single == "" {
		*f = nil
		return nil
	}
	*f = []string{single}
	return nil
}

// ParseAssistantConfig decodes a stored configuration document and
// resolves defaults. Empty input yields the all-defaults configuration.
func ParseAssistantConfig(data []byte) (AssistantConfig, error) {
	var raw rawAssistantConfig
	if len(data) > 0 && string(data) != "null" {
		if err := json.Unmarshal(data, &raw); err != nil {
			return AssistantConfig{}, fmt.Errorf("decode assistant config: %w", err)
		}
	}
	return raw.resolve(), nil
}

// DefaultAssistantConfig is the configuration of a tenant that never saved one.
func DefaultAssistantConfig() AssistantConfig {
	return rawAssistantConfig{}.resolve()
}

func (r rawAssistantConfig) resolve() AssistantConfig {
	name := str(r.AssistantName, DefaultAssistantName)
	cfg := AssistantConfig{
		AssistantName:  name,
		WelcomeMessage: str(r.WelcomeNote, fmt.Sprintf("Hi! I'm %s. How can I help you today?", name)),
		PrimaryColor:   str(r.PrimaryColor, "#17876E"),
		Avatar:         str(r.Avatar, "a1.svg"),
		Language:       str(r.Language, "en"),
		ActiveChannel:  str(r.ActiveChannel, "Wp"),

		AIModel:                ModelTier(strings.ToLower(str(r.AIModel, string(TierLite)))),
		Personality:            strings.ToLower(str(r.Personality, "professional")),
		PersonalityDescription: str(r.PersonalityDescription, ""),
		BrandDescription:       str(r.BrandDescription, ""),
		ResponseLength:         strings.ToLower(str(r.ResponseLength, "balanced")),
		CustomInstructions:     str(r.CustomInstructions, ""),
		Guardrails:             str(r.Guardrails, ""),

		LeadAskEnabled:          boolean(r.LeadAskOnConversationStart, false),
		LeadAskAfterMessages:    positive(r.LeadAskAfterMessages, DefaultLeadAskAfter),
		LeadCollectionMandatory: boolean(r.LeadCollectionMandatory, false),
		LeadCollectionType:      strings.ToLower(str(r.LeadCollectionType, "email")),

		ShowAddToCart:               boolean(r.ShowAddToCart, true),
		CustomerMessageLimit:        DefaultCustomerMessageLimit,
		CustomerMessageLimitMessage: str(r.CustomerMessageLimitMessage, DefaultLimitMessage),

		HandoverSummaryEnabled:  boolean(r.HandoverSummaryEnabled, true),
		HandoverFlowAvailable:   nonNil(r.HandoverFlowAvailable),
		HandoverFlowUnavailable: nonNil(r.HandoverFlowUnavailable),
		HandoverOfflineMessage:  str(r.HandoverOfflineMessage, ""),

		BusinessHours: BusinessHours{
			Enabled:  boolean(r.BusinessHoursEnabled, false),
			Timezone: str(r.BusinessHoursTimezone, "UTC"),
		},

		SupportContact: r.SupportContact,
		SupportRequest: r.SupportRequest,
		LiveChat:       r.LiveChat,
		CreateTicket:   r.CreateTicket,
		CustomHandover: r.CustomHandover,
	}

	// An explicit zero ceiling is a valid setting, unlike a zero lead threshold.
	if r.CustomerMessageLimit != nil && *r.CustomerMessageLimit >= 0 {
		cfg.CustomerMessageLimit = *r.CustomerMessageLimit
	}

	if r.ConversationStarters != nil {
		cfg.ConversationStarters = *r.ConversationStarters
	}

	for _, intent := range r.HandoverIntents {
		if strings.TrimSpace(intent.Text) != "" {
			cfg.HandoverIntents = append(cfg.HandoverIntents, intent)
		}
	}

	for _, d := range r.BusinessHoursSchedule {
		cfg.Schedule = append(cfg.Schedule, DaySchedule{
			Day:     d.Day,
			Start:   orDefault(d.Start, "09:00"),
			End:     orDefault(d.End, "17:00"),
			Enabled: boolean(d.Enabled, true),
		})
	}

	return cfg
}

// HandoverKeywords lists the configured intent phrases.
func (c AssistantConfig) HandoverKeywords() []string {
	out := make([]string, 0, len(c.HandoverIntents))
	for _, i := range c.HandoverIntents {
		out = append(out, i.Text)
	}
	return out
}

func str(p *string, fallback string) string {
	if p == nil || strings.TrimSpace(*p) == "" {
		return fallback
	}
	return *p
}

func boolean(p *bool, fallback bool) bool {
	if p == nil {
		return fallback
	}
	return *p
}

func positive(p *int, fallback int) int {
	if p == nil || *p <= 0 {
		return fallback
	}
	return *p
}

func orDefault(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}

func nonNil(list []string) []string {
	if list == nil {
		return []string{}
	}
	return list
}
