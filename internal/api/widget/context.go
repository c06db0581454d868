package widget

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/Conversly/widget-engine/internal/core"
	"github.com/Conversly/widget-engine/internal/products"
)

const maxSuggestedQuestions = 4

type pageKind int

const (
	pageHome pageKind = iota
	pageProduct
	pageCollection
)

func classifyPage(pageURL string) pageKind {
	switch {
	case strings.Contains(pageURL, "/products/"):
		return pageProduct
	case strings.Contains(pageURL, "/collections/"):
		return pageCollection
	}
	return pageHome
}

// extractHost returns the host name of a URL, tolerating a missing scheme.
func extractHost(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

// StarterQuestions picks the enabled conversation starters for the page,
// falling back to the home starters.
func StarterQuestions(cfg core.AssistantConfig, pageURL string) []string {
	starters := cfg.ConversationStarters.Home
	switch classifyPage(pageURL) {
	case pageProduct:
		starters = cfg.ConversationStarters.Product
	case pageCollection:
		starters = cfg.ConversationStarters.Collection
	}
	if len(starters) == 0 {
		starters = cfg.ConversationStarters.Home
	}

	var out []string
	for _, s := range starters {
		if s.Enabled && strings.TrimSpace(s.Label) != "" {
			out = append(out, s.Label)
		}
	}
	return out
}

// FAQQuestions returns the first four non-empty FAQ questions.
func FAQQuestions(faqs []core.FAQ) []string {
	var out []string
	for i, f := range faqs {
		if i == maxSuggestedQuestions {
			break
		}
		if f.Question != "" {
			out = append(out, f.Question)
		}
	}
	return out
}

// DefaultQuestions are offered when a tenant has no starters or FAQs.
func DefaultQuestions(storeURL string) []string {
	last := "Where can I see your work?"
	if host := extractHost(storeURL); host != "" {
		last = fmt.Sprintf("What do you do at %s?", host)
	}
	return []string{
		"What services do you offer?",
		"How can I contact you?",
		"Do you have any ongoing offers?",
		last,
	}
}

func capQuestions(q []string) []string {
	if len(q) > maxSuggestedQuestions {
		return q[:maxSuggestedQuestions]
	}
	return q
}

// SelectNudge picks the nudge for the page: the page-type nudge first, then
// a custom one, then the homepage one. No page means no nudge.
func SelectNudge(nudges []core.Nudge, pageURL string) *core.Nudge {
	if pageURL == "" {
		return nil
	}
	u, err := url.Parse(pageURL)
	if err != nil {
		return nil
	}

	find := func(kind string) *core.Nudge {
		for i := range nudges {
			if nudges[i].Type == kind {
				n := nudges[i]
				return &n
			}
		}
		return nil
	}

	switch classifyPage(u.Path) {
	case pageProduct:
		if n := find("product"); n != nil {
			return n
		}
	case pageCollection:
		if n := find("collection"); n != nil {
			return n
		}
	}
	if n := find("custom"); n != nil {
		return n
	}
	return find("homepage")
}

func transcript(turns []core.Turn) []TurnView {
	out := make([]TurnView, 0, len(turns))
	for _, t := range turns {
		v := TurnView{Role: t.Role, Message: t.Message, Timestamp: t.Timestamp}
		if t.Role == core.RoleBot {
			v.Message, v.Products = products.DecodeInline(t.Message)
		}
		out = append(out, v)
	}
	return out
}
