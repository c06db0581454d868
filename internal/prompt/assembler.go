// Package prompt builds the instruction block and message list sent to the
// language model.
package prompt

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cloudwego/eino/schema"

	"github.com/Conversly/widget-engine/internal/core"
)

const (
	maxPromptProducts  = 20
	maxPromptSnapshots = 5
)

// HistoryTurns is how much of the current session the model sees.
const HistoryTurns = 10

var personalities = map[string]string{
	"friendly":     "You are warm, friendly, and conversational. Use a casual tone and emojis occasionally to create a welcoming vibe.",
	"playful":      "You are fun, energetic, and engaging. Use humor and emojis to make conversations enjoyable and lively.",
	"empathetic":   "You are understanding, supportive, and kind. Show genuine care and empathy in your responses.",
	"professional": "You are professional, helpful, and courteous. Provide clear, concise, and business-like answers.",
}

var languages = map[string]string{
	"en": "English", "es": "Spanish", "fr": "French", "de": "German",
	"it": "Italian", "pt": "Portuguese", "nl": "Dutch", "hi": "Hindi",
	"zh": "Chinese", "ja": "Japanese",
}

// Knowledge is the tenant's static knowledge for the prompt.
type Knowledge struct {
	Products  []core.Product
	FAQs      []core.FAQ
	Snapshots []core.PageSnapshot
}

// Input carries everything the instruction block is built from.
type Input struct {
	Tenant    *core.Tenant
	Knowledge Knowledge
	// Retrieved is the formatted retrieval context, Memory the recalled
	// history of other sessions. Either may be empty.
	Retrieved     string
	Memory        string
	LeadDirective string
}

// Build renders the instruction block. Output depends only on in.
func Build(in Input) string {
	cfg := in.Tenant.Config
	var b strings.Builder

	name := cfg.AssistantName
	if name == "" {
		name = core.DefaultAssistantName
	}
	fmt.Fprintf(&b, "You are %s, a helpful AI assistant for %s's website.", name, in.Tenant.Name)
	if in.Tenant.StoreURL != "" {
		fmt.Fprintf(&b, " You primarily assist visitors of the website %s.", in.Tenant.StoreURL)
	}

	b.WriteString("\n\n**YOUR PERSONALITY:**\n")
	tone, ok := personalities[cfg.Personality]
	if !ok {
		tone = personalities["professional"]
	}
	b.WriteString(tone)
	if cfg.PersonalityDescription != "" {
		b.WriteString("\nAdditional style adjustment: " + cfg.PersonalityDescription)
	}

	lang, ok := languages[cfg.Language]
	if !ok {
		lang = "English"
	}
	fmt.Fprintf(&b, "\n\n**LANGUAGE INSTRUCTION:**\nYou must ALWAYS reply in **%s**. activeChannel only supports text.", lang)

	if cfg.BrandDescription != "" {
		fmt.Fprintf(&b, "\n\n**ABOUT THE BRAND (Context):**\n%s\n(Use this information to answer questions about who we are and what we do.)", cfg.BrandDescription)
	}

	b.WriteString("\n\n**RESPONSE GUIDELINES:**")
	switch cfg.ResponseLength {
	case "concise":
		b.WriteString("\n- Keep answers VERY SHORT and direct (1-2 sentences max).")
	case "detailed":
		b.WriteString("\n- Provide comprehensive, detailed explanations.")
	default:
		b.WriteString("\n- Aim for a balanced length (approx 3-4 sentences).")
	}
	b.WriteString("\n- Use **bold** for key terms.\n- Use lists for readability.\n- Be concise but helpful.")

	if cfg.CustomInstructions != "" {
		b.WriteString("\n\n**OPERATIONAL INSTRUCTIONS (Priority):**\n" + cfg.CustomInstructions)
	}
	if cfg.Guardrails != "" {
		fmt.Fprintf(&b, "\n\n**⛔ STRICT GUARDRAILS (DO NOT IGNORE):**\n%s\n(If a user asks about anything violating these, politely decline.)", cfg.Guardrails)
	}
	if cfg.HandoverSummaryEnabled {
		b.WriteString("\n\n**HANDOVER PROTOCOL:**\nIf the user asks for a human agent, BEFORE confirming, strictly provide a brief Markdown summary of the issue so far.")
	}

	writeKnowledge(&b, in.Knowledge)

	if ctx := in.Retrieved + in.Memory; ctx != "" {
		b.WriteString("\n\n**RELEVANT WEBSITE CONTEXT (Source of Truth):**\n" + ctx + "\n")
	}

	b.WriteString("\n\n**FINAL GOAL:** Help the user based *only* on the provided context. If unsure, admit it.")

	// Appended last so nothing earlier can override it.
	b.WriteString(in.LeadDirective)
	return b.String()
}

func writeKnowledge(b *strings.Builder, k Knowledge) {
	if len(k.Products) > 0 {
		b.WriteString("\n\n**AVAILABLE PRODUCTS:**\n")
		for i, p := range k.Products {
			if i == maxPromptProducts {
				break
			}
			desc := p.Description
			if desc == "" {
				desc = "No desc"
			}
			fmt.Fprintf(b, "- %s: %s ($%s)\n", p.Name, desc, formatPrice(p.Price))
		}
	}

	if len(k.FAQs) > 0 {
		b.WriteString("\n\n**FAQ Database:**\n")
		for _, f := range k.FAQs {
			fmt.Fprintf(b, "Q: %s\nA: %s\n\n", f.Question, f.Answer)
		}
	}

	var pages []core.PageSnapshot
	for _, s := range k.Snapshots {
		if s.Status == core.SnapshotStatusSuccess {
			pages = append(pages, s)
		}
	}
	if len(pages) > 0 {
		b.WriteString("\n\n**WEBSITE CONTENT:**\n")
		for i, s := range pages {
			if i == maxPromptSnapshots {
				break
			}
			title := s.Title
			if title == "" {
				title = s.URL
			}
			summary := s.Summary
			if summary == "" {
				summary = s.Preview()
			}
			fmt.Fprintf(b, "- %s: %s\n", title, summary)
		}
	}
}

func formatPrice(p float64) string {
	if p == 0 {
		return "N/A"
	}
	return strconv.FormatFloat(p, 'f', -1, 64)
}

// Messages pairs the instruction block with the conversation history.
// Bot turns are sent as assistant turns.
func Messages(system string, history []core.Turn) []*schema.Message {
	if len(history) > HistoryTurns {
		history = history[len(history)-HistoryTurns:]
	}
	msgs := make([]*schema.Message, 0, len(history)+1)
	msgs = append(msgs, schema.SystemMessage(system))
	for _, t := range history {
		switch t.Role {
		case core.RoleBot:
			msgs = append(msgs, schema.AssistantMessage(t.Message, nil))
		case core.RoleSystem:
			msgs = append(msgs, schema.SystemMessage(t.Message))
		default:
			msgs = append(msgs, schema.UserMessage(t.Message))
		}
	}
	return msgs
}
