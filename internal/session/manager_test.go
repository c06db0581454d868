package session

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Conversly/widget-engine/internal/core"
	"github.com/Conversly/widget-engine/internal/utils"
)

func newTestManager(t *testing.T, now time.Time) (*Manager, *MemoryStore) {
	t.Helper()
	store := NewMemoryStore()
	clock := now
	m := NewManager(store,
		WithClock(func() time.Time { return clock }),
		WithNamePicker(func(int) int { return 0 }),
	)
	return m, store
}

func TestGetOrCreateNamesAndReuses(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager(t, time.Date(2025, 1, 6, 10, 0, 0, 0, time.UTC))

	first, err := m.GetOrCreate(ctx, "t1", "s1", "", core.SessionMetadata{})
	if err != nil {
		t.Fatalf("GetOrCreate err: %v", err)
	}
	if first.ChatName != "1 Amber Bear" {
		t.Fatalf("chat name: got %q", first.ChatName)
	}

	again, err := m.GetOrCreate(ctx, "t1", "s1", "ignored", core.SessionMetadata{})
	if err != nil {
		t.Fatalf("GetOrCreate err: %v", err)
	}
	if again.ID != first.ID || again.ChatName != first.ChatName {
		t.Fatalf("expected existing session, got %+v", again)
	}

	second, _ := m.GetOrCreate(ctx, "t1", "s2", "", core.SessionMetadata{})
	if second.ChatName != "2 Amber Bear" {
		t.Fatalf("second chat name: got %q", second.ChatName)
	}

	named, _ := m.GetOrCreate(ctx, "t1", "s3", "My Chat", core.SessionMetadata{})
	if named.ChatName != "My Chat" {
		t.Fatalf("supplied chat name: got %q", named.ChatName)
	}
}

func TestChatNameUsesWordLists(t *testing.T) {
	calls := 0
	name := ChatName(41, func(n int) int {
		calls++
		if n != 40 {
			t.Fatalf("expected 40 choices, got %d", n)
		}
		return n - 1
	})
	if name != "42 Violet Birdie" || calls != 2 {
		t.Fatalf("got %q after %d picks", name, calls)
	}
}

func TestLeadCapturedOnceAndNeverOverwritten(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager(t, time.Now())
	if _, err := m.GetOrCreate(ctx, "t1", "s1", "", core.SessionMetadata{}); err != nil {
		t.Fatal(err)
	}

	s, err := m.AppendUserTurn(ctx, "t1", "s1", "reach me at a@b.com or 9876543210")
	if err != nil {
		t.Fatalf("AppendUserTurn err: %v", err)
	}
	if s.Lead.Email != "a@b.com" || s.Lead.Phone != "9876543210" {
		t.Fatalf("lead not captured: %+v", s.Lead)
	}
	if !s.HasConversion || len(s.Conversions) != 1 {
		t.Fatalf("expected one conversion, got %d", len(s.Conversions))
	}
	ev := s.Conversions[0]
	if ev.Type != core.ConversionLead || ev.Value != 0 || ev.Metadata["source"] != "chat_capture" {
		t.Fatalf("unexpected conversion %+v", ev)
	}

	s, err = m.AppendUserTurn(ctx, "t1", "s1", "actually use other@c.org")
	if err != nil {
		t.Fatalf("AppendUserTurn err: %v", err)
	}
	if s.Lead.Email != "a@b.com" {
		t.Fatalf("email overwritten: %q", s.Lead.Email)
	}
	if len(s.Conversions) != 1 {
		t.Fatalf("no new conversion expected, got %d", len(s.Conversions))
	}
}

func TestCaptureLeadPhoneOnly(t *testing.T) {
	s := &core.Session{}
	if !CaptureLead(s, "call +91 9876543210 tomorrow", time.Now()) {
		t.Fatal("expected capture")
	}
	if s.Lead.Phone != "+91 9876543210" || s.Lead.Email != "" {
		t.Fatalf("got %+v", s.Lead)
	}
	if CaptureLead(s, "no contact details here", time.Now()) {
		t.Fatal("nothing to capture")
	}
}

func TestConcurrentAppendsStayOrdered(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	m := NewManager(store)
	if _, err := m.GetOrCreate(ctx, "t1", "s1", "", core.SessionMetadata{}); err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 25; i++ {
				if _, err := m.AppendUserTurn(ctx, "t1", "s1", "hello"); err != nil {
					t.Errorf("append: %v", err)
					return
				}
				if _, err := m.AppendBotTurn(ctx, "t1", "s1", "hi", 3); err != nil {
					t.Errorf("append bot: %v", err)
					return
				}
			}
		}()
	}
	wg.Wait()

	s, _, err := m.Lookup(ctx, "t1", "s1")
	if err != nil {
		t.Fatal(err)
	}
	if len(s.Turns) != 200 {
		t.Fatalf("expected 200 turns, got %d", len(s.Turns))
	}
	if s.TotalTokens != 300 {
		t.Fatalf("expected 300 tokens, got %d", s.TotalTokens)
	}
	for i := 1; i < len(s.Turns); i++ {
		if !s.Turns[i].Timestamp.After(s.Turns[i-1].Timestamp) {
			t.Fatalf("turn %d not strictly after turn %d", i, i-1)
		}
	}
	if n := len(store.locks); n != 0 {
		t.Fatalf("session locks must be released, %d left", n)
	}
}

func TestMutateRejectsShrinkingHistory(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	m := NewManager(store)
	m.GetOrCreate(ctx, "t1", "s1", "", core.SessionMetadata{})
	m.AppendUserTurn(ctx, "t1", "s1", "one")

	_, err := store.Mutate(ctx, "t1", "s1", func(s *core.Session) error {
		s.Turns = nil
		return nil
	})
	if err == nil {
		t.Fatal("expected append-only violation")
	}

	s, _, _ := m.Lookup(ctx, "t1", "s1")
	if len(s.Turns) != 1 {
		t.Fatalf("rejected mutation leaked: %d turns", len(s.Turns))
	}
}

func TestHasConversionNeverReverts(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	m := NewManager(store)
	m.GetOrCreate(ctx, "t1", "s1", "", core.SessionMetadata{})
	if _, err := m.RecordConversion(ctx, "t1", "s1", core.ConversionEvent{Type: core.ConversionPurchase, Value: 49}); err != nil {
		t.Fatal(err)
	}

	s, err := store.Mutate(ctx, "t1", "s1", func(s *core.Session) error {
		s.HasConversion = false
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if !s.HasConversion {
		t.Fatal("hasConversion reverted")
	}
}

func TestRecordConversionValidation(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager(t, time.Now())
	m.GetOrCreate(ctx, "t1", "s1", "", core.SessionMetadata{})

	_, err := m.RecordConversion(ctx, "t1", "s1", core.ConversionEvent{Type: "refund"})
	if !utils.IsCode(err, utils.CodeInvalidArgument) {
		t.Fatalf("expected INVALID_ARGUMENT, got %v", err)
	}

	_, err = m.RecordConversion(ctx, "t1", "missing", core.ConversionEvent{Type: core.ConversionBooking})
	if !utils.IsCode(err, utils.CodeNotFound) {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
}

func TestSubmitLeadOverwrites(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager(t, time.Now())
	m.GetOrCreate(ctx, "t1", "s1", "", core.SessionMetadata{})
	m.AppendUserTurn(ctx, "t1", "s1", "mail me at old@example.com")

	s, err := m.SubmitLead(ctx, "t1", "s1", core.Lead{Email: "new@example.com", Name: "Sam"})
	if err != nil {
		t.Fatal(err)
	}
	if s.Lead.Email != "new@example.com" || s.Lead.Name != "Sam" {
		t.Fatalf("got %+v", s.Lead)
	}
	last := s.Conversions[len(s.Conversions)-1]
	if last.Metadata["source"] != "chat_widget_lead_gen" {
		t.Fatalf("unexpected source %v", last.Metadata["source"])
	}
}

func TestRecentUserTurnCountWindow(t *testing.T) {
	now := time.Date(2025, 1, 6, 12, 0, 0, 0, time.UTC)
	m, _ := newTestManager(t, now)
	s := &core.Session{Turns: []core.Turn{
		{Role: core.RoleUser, Timestamp: now.Add(-2 * time.Hour)},
		{Role: core.RoleUser, Timestamp: now.Add(-time.Hour)},
		{Role: core.RoleUser, Timestamp: now.Add(-30 * time.Minute)},
		{Role: core.RoleBot, Timestamp: now.Add(-29 * time.Minute)},
		{Role: core.RoleUser, Timestamp: now.Add(-time.Minute)},
	}}
	if got := m.RecentUserTurnCount(s, time.Hour); got != 2 {
		t.Fatalf("got %d want 2", got)
	}
}

func TestCrossSessionMemory(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2025, 1, 6, 12, 0, 0, 0, time.UTC)
	store := NewMemoryStore()

	for i, sid := range []string{"old", "new", "current"} {
		clock := base.Add(time.Duration(i) * time.Minute)
		m := NewManager(store, WithClock(func() time.Time { return clock }))
		m.GetOrCreate(ctx, "t1", sid, "", core.SessionMetadata{})
		m.AppendUserTurn(ctx, "t1", sid, "question from "+sid)
		m.AppendBotTurn(ctx, "t1", sid, "answer for "+sid, 1)
	}

	m := NewManager(store)
	got, err := m.CrossSessionMemory(ctx, "t1", "current")
	if err != nil {
		t.Fatal(err)
	}
	want := "\n\n**PREVIOUS CONVERSATION MEMORY**\n(Use this to recall user details if needed, but prioritize current context)\n" +
		"User: question from new\nAssistant: answer for new\n---\nUser: question from old\nAssistant: answer for old"
	if got != want {
		t.Fatalf("got %q\nwant %q", got, want)
	}

	empty, _ := m.CrossSessionMemory(ctx, "other-tenant", "x")
	if empty != "" {
		t.Fatalf("expected empty memory, got %q", empty)
	}
}

func TestRecentSessionsTrimsTurns(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	m := NewManager(store)
	m.GetOrCreate(ctx, "t1", "s1", "", core.SessionMetadata{})
	for i := 0; i < 10; i++ {
		m.AppendUserTurn(ctx, "t1", "s1", strings.Repeat("x", i+1))
	}
	got, _ := store.RecentSessions(ctx, "t1", "", 5, 6)
	if len(got) != 1 || len(got[0].Turns) != 6 {
		t.Fatalf("unexpected recall %+v", got)
	}
	if got[0].Turns[5].Message != strings.Repeat("x", 10) {
		t.Fatalf("expected most recent turn last")
	}
}
