// Package triggers decides which business rules apply to an inbound message:
// the hourly message ceiling, handover to a human and lead capture.
package triggers

import (
	"fmt"
	"strings"
	"time"

	"github.com/Conversly/widget-engine/internal/core"
	"github.com/Conversly/widget-engine/internal/utils"
)

type Action string

const (
	ActionNone         Action = ""
	ActionLimitReached Action = "limit_reached"
	ActionHandover     Action = "handover"
	ActionLeadCapture  Action = "lead_capture"
)

// RateWindow is the trailing window the message ceiling applies to.
const RateWindow = time.Hour

var fallbackHandoverKeywords = []string{"talk to human", "speak to agent", "support", "human agent"}

// LimitOutcome is the short-circuit reply for a visitor over the ceiling.
type LimitOutcome struct {
	Reply string
}

// CheckRateLimit runs before the visitor's turn is recorded. A non-nil
// result means no reply is generated and no usage is counted.
func CheckRateLimit(cfg core.AssistantConfig, recentUserTurns int) *LimitOutcome {
	if recentUserTurns < cfg.CustomerMessageLimit {
		return nil
	}
	msg := cfg.CustomerMessageLimitMessage
	if msg == "" {
		msg = core.DefaultLimitMessage
	}
	return &LimitOutcome{Reply: msg}
}

type Handover struct {
	Open  bool
	Flows []string
	// Reply is set when the conversation is handed over without a model call.
	Reply string
}

type LeadRequest struct {
	Type      string
	Mandatory bool
	Directive string
}

// Input is what the evaluator sees after the visitor's turn is recorded.
type Input struct {
	Config        core.AssistantConfig
	Message       string
	UserTurnCount int
	Preview       bool
	Now           time.Time
}

type Outcome struct {
	Handover *Handover
	Lead     *LeadRequest
}

// ShortCircuit reports whether the reply is fixed and the model is skipped.
func (o Outcome) ShortCircuit() bool {
	return o.Handover != nil && o.Handover.Reply != ""
}

// Action is the flag reported to the widget. Handover outranks lead capture.
func (o Outcome) Action() Action {
	switch {
	case o.Handover != nil:
		return ActionHandover
	case o.Lead != nil:
		return ActionLeadCapture
	}
	return ActionNone
}

// Evaluate applies handover then lead capture. A summary-less handover
// pre-empts lead capture.
func Evaluate(in Input) Outcome {
	var out Outcome

	if h := checkHandover(in); h != nil {
		out.Handover = h
		if h.Reply != "" {
			return out
		}
	}
	out.Lead = checkLead(in)
	return out
}

func checkHandover(in Input) *Handover {
	cfg := in.Config
	if _, ok := utils.MatchPhrase(in.Message, cfg.HandoverKeywords()); !ok {
		if _, ok := utils.MatchPhrase(in.Message, fallbackHandoverKeywords); !ok {
			return nil
		}
	}

	status := CheckBusinessHours(cfg, in.Now)
	flows := cfg.HandoverFlowUnavailable
	if status.Open {
		flows = cfg.HandoverFlowAvailable
	}
	h := &Handover{Open: status.Open, Flows: append([]string{}, flows...)}

	if !cfg.HandoverSummaryEnabled {
		h.Reply = cfg.HandoverOfflineMessage
		if h.Reply == "" {
			h.Reply = core.DefaultConnectMessage
		}
	}
	return h
}

func checkLead(in Input) *LeadRequest {
	cfg := in.Config
	if !cfg.LeadAskEnabled || in.Preview {
		return nil
	}
	askAt := cfg.LeadAskAfterMessages
	if askAt <= 0 {
		askAt = core.DefaultLeadAskAfter
	}
	if in.UserTurnCount != askAt {
		return nil
	}

	field := cfg.LeadCollectionType
	if field == "" {
		field = "email"
	}
	return &LeadRequest{
		Type:      field,
		Mandatory: cfg.LeadCollectionMandatory,
		Directive: LeadDirective(in.UserTurnCount, field, cfg.LeadCollectionMandatory),
	}
}

// LeadDirective is the prompt override asking the model to collect field.
func LeadDirective(count int, field string, mandatory bool) string {
	tone := "politely"
	if mandatory {
		tone = "mandatorily"
	}
	return fmt.Sprintf("\n\n⚠️ SYSTEM OVERRIDE: This is the %dth message. Conversion Goal Reached.\n"+
		"\nYOUR PRIORITY IS NOW TO ASK FOR THE USER'S %s.\n"+
		"\nContext: We need to capture their %s to stay connected.\n"+
		"\nInstruction: \"Before answering the user's latest query, or immediately after, you MUST ask for their %s %s.\"",
		count, strings.ToUpper(field), field, field, tone)
}
