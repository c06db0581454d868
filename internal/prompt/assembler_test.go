package prompt

import (
	"fmt"
	"strings"
	"testing"

	"github.com/cloudwego/eino/schema"

	"github.com/Conversly/widget-engine/internal/core"
)

func tenant(t *testing.T, doc string) *core.Tenant {
	t.Helper()
	cfg, err := core.ParseAssistantConfig([]byte(doc))
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	return &core.Tenant{ID: "t1", Name: "Acme", StoreURL: "https://acme.test", Config: cfg}
}

func TestBuildSectionOrder(t *testing.T) {
	in := Input{
		Tenant: tenant(t, `{
			"assistantName": "Ava",
			"personality": "friendly",
			"personalityDescription": "Keep it upbeat",
			"language": "fr",
			"brandDescription": "We sell rockets",
			"responseLength": "concise",
			"customInstructions": "Always mention free shipping",
			"guardrails": "Never discuss competitors"
		}`),
		Knowledge: Knowledge{
			Products: []core.Product{{Name: "Rocket", Description: "Goes up", Price: 99.5}, {Name: "Fuel"}},
			FAQs:     []core.FAQ{{Question: "Ship abroad?", Answer: "Yes"}},
			Snapshots: []core.PageSnapshot{
				{URL: "https://acme.test/about", Title: "About", Summary: "Our story", Status: "success"},
				{URL: "https://acme.test/broken", Title: "Broken", Status: "failed"},
			},
		},
		Retrieved:     "[https://acme.test/faq]\nchunk text",
		Memory:        "\n\n**PREVIOUS CONVERSATION MEMORY**\nUser: hi",
		LeadDirective: "\n\nLEAD",
	}

	got := Build(in)

	order := []string{
		"You are Ava, a helpful AI assistant for Acme's website. You primarily assist visitors of the website https://acme.test.",
		"**YOUR PERSONALITY:**\nYou are warm, friendly",
		"\nAdditional style adjustment: Keep it upbeat",
		"You must ALWAYS reply in **French**.",
		"**ABOUT THE BRAND (Context):**\nWe sell rockets",
		"**RESPONSE GUIDELINES:**\n- Keep answers VERY SHORT",
		"**OPERATIONAL INSTRUCTIONS (Priority):**\nAlways mention free shipping",
		"**⛔ STRICT GUARDRAILS (DO NOT IGNORE):**\nNever discuss competitors",
		"**HANDOVER PROTOCOL:**",
		"**AVAILABLE PRODUCTS:**\n- Rocket: Goes up ($99.5)\n- Fuel: No desc ($N/A)\n",
		"**FAQ Database:**\nQ: Ship abroad?\nA: Yes\n\n",
		"**WEBSITE CONTENT:**\n- About: Our story\n",
		"**RELEVANT WEBSITE CONTEXT (Source of Truth):**\n[https://acme.test/faq]\nchunk text\n\n**PREVIOUS CONVERSATION MEMORY**\nUser: hi\n",
		"**FINAL GOAL:**",
		"\n\nLEAD",
	}
	pos := 0
	for _, part := range order {
		idx := strings.Index(got[pos:], part)
		if idx < 0 {
			t.Fatalf("missing or out of order: %q\nprompt:\n%s", part, got)
		}
		pos += idx + len(part)
	}
	if !strings.HasSuffix(got, "\n\nLEAD") {
		t.Fatal("lead directive must be last")
	}
	if strings.Contains(got, "Broken") {
		t.Fatal("failed snapshots must be skipped")
	}
}

func TestBuildDefaultsAndOptionalSections(t *testing.T) {
	got := Build(Input{Tenant: tenant(t, `{"handoverSummaryEnabled": false, "language": "xx"}`)})

	if !strings.HasPrefix(got, "You are AI Assistant, a helpful AI assistant for Acme's website.") {
		t.Fatalf("unexpected identity: %q", got[:80])
	}
	for _, absent := range []string{"ABOUT THE BRAND", "OPERATIONAL INSTRUCTIONS", "GUARDRAILS", "HANDOVER PROTOCOL", "AVAILABLE PRODUCTS", "RELEVANT WEBSITE CONTEXT"} {
		if strings.Contains(got, absent) {
			t.Errorf("unexpected section %q", absent)
		}
	}
	if !strings.Contains(got, "You are professional, helpful") || !strings.Contains(got, "**English**") {
		t.Fatal("defaults not applied")
	}
	if !strings.Contains(got, "approx 3-4 sentences") {
		t.Fatal("balanced length expected")
	}
	if Build(Input{Tenant: tenant(t, `{}`)}) != Build(Input{Tenant: tenant(t, `{}`)}) {
		t.Fatal("build must be deterministic")
	}
}

func TestBuildCapsProductsAndSnapshots(t *testing.T) {
	var in Input
	in.Tenant = tenant(t, `{}`)
	for i := 0; i < 25; i++ {
		in.Knowledge.Products = append(in.Knowledge.Products, core.Product{Name: fmt.Sprintf("P%02d", i), Price: 1})
		in.Knowledge.Snapshots = append(in.Knowledge.Snapshots, core.PageSnapshot{URL: fmt.Sprintf("https://x/%d", i), Content: "body", Status: "success"})
	}
	got := Build(in)
	if !strings.Contains(got, "- P19:") || strings.Contains(got, "- P20:") {
		t.Fatal("products must be capped at 20")
	}
	if !strings.Contains(got, "- https://x/4: body") || strings.Contains(got, "https://x/5:") {
		t.Fatal("snapshots must be capped at 5 and fall back to url and preview")
	}
}

func TestMessagesMapsRolesAndTrims(t *testing.T) {
	var history []core.Turn
	for i := 0; i < 12; i++ {
		role := core.RoleUser
		if i%2 == 1 {
			role = core.RoleBot
		}
		history = append(history, core.Turn{Role: role, Message: fmt.Sprintf("m%d", i)})
	}

	msgs := Messages("sys", history)
	if len(msgs) != 11 {
		t.Fatalf("expected system + 10 turns, got %d", len(msgs))
	}
	if msgs[0].Role != schema.System || msgs[0].Content != "sys" {
		t.Fatalf("first message must be the instruction block")
	}
	if msgs[1].Content != "m2" || msgs[1].Role != schema.User {
		t.Fatalf("unexpected first history turn %+v", msgs[1])
	}
	if msgs[2].Role != schema.Assistant {
		t.Fatalf("bot turns must map to assistant, got %s", msgs[2].Role)
	}
}
