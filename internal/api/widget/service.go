package widget

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Conversly/widget-engine/internal/core"
	"github.com/Conversly/widget-engine/internal/credentials"
	"github.com/Conversly/widget-engine/internal/llm"
	"github.com/Conversly/widget-engine/internal/loaders"
	"github.com/Conversly/widget-engine/internal/products"
	"github.com/Conversly/widget-engine/internal/prompt"
	"github.com/Conversly/widget-engine/internal/rag"
	"github.com/Conversly/widget-engine/internal/session"
	"github.com/Conversly/widget-engine/internal/triggers"
	"github.com/Conversly/widget-engine/internal/utils"
)

const previewChatName = "Preview"

// TenantRepository reads tenant configuration and knowledge. Nothing it
// returns is cached between requests.
type TenantRepository interface {
	GetTenant(ctx context.Context, tenantID string) (*core.Tenant, error)
	ListProducts(ctx context.Context, tenantID string) ([]core.Product, error)
	ListFAQs(ctx context.Context, tenantID string) ([]core.FAQ, error)
	ListPageSnapshots(ctx context.Context, tenantID string) ([]core.PageSnapshot, error)
	ListActiveNudges(ctx context.Context, tenantID string) ([]core.Nudge, error)
}

type UsageRecorder interface {
	IncrementUsage(ctx context.Context, credentialID string, tokens int) error
}

type ProviderResolver interface {
	ResolveProvider(cred *core.Credential) (*credentials.Resolved, error)
}

type KnowledgeRetriever interface {
	Retrieve(ctx context.Context, tenantID, query string) ([]rag.ScoredChunk, error)
}

type ProviderGateway interface {
	For(family core.ProviderFamily, secret string) llm.Provider
}

// Deps are the collaborators of the widget service.
type Deps struct {
	Tenants   TenantRepository
	Usage     UsageRecorder
	Sessions  *session.Manager
	Providers ProviderResolver
	Retriever KnowledgeRetriever
	Gateway   ProviderGateway
}

// Service runs the widget conversation pipeline.
type Service struct {
	tenants   TenantRepository
	usage     UsageRecorder
	sessions  *session.Manager
	providers ProviderResolver
	retriever KnowledgeRetriever
	gateway   ProviderGateway
}

func NewService(d Deps) *Service {
	return &Service{
		tenants:   d.Tenants,
		usage:     d.Usage,
		sessions:  d.Sessions,
		providers: d.Providers,
		retriever: d.Retriever,
		gateway:   d.Gateway,
	}
}

func (s *Service) loadTenant(ctx context.Context, op string, cred *core.Credential) (*core.Tenant, error) {
	tenant, err := s.tenants.GetTenant(ctx, cred.TenantID)
	if errors.Is(err, loaders.ErrNotFound) {
		return nil, utils.E(utils.CodeInvalidCredential, op, "Invalid Key", err)
	}
	if err != nil {
		return nil, utils.E(utils.CodeUnavailable, op, "Service temporarily unavailable", err)
	}
	return tenant, nil
}

// Init returns the configuration snapshot for the widget and either the
// resumed session or a proposed new one. New sessions are persisted on
// their first message.
func (s *Service) Init(ctx context.Context, cred *core.Credential, req InitRequest) (*InitData, error) {
	const op = "widget.Init"

	tenant, err := s.loadTenant(ctx, op, cred)
	if err != nil {
		return nil, err
	}
	cfg := tenant.Config

	questions := StarterQuestions(cfg, req.PageURL)
	if len(questions) == 0 {
		faqs, err := s.tenants.ListFAQs(ctx, tenant.ID)
		if err != nil {
			utils.Zlog.Warn("Failed to load FAQs for suggestions", zap.String("tenant_id", tenant.ID), zap.Error(err))
		}
		questions = FAQQuestions(faqs)
	}
	if len(questions) == 0 {
		questions = DefaultQuestions(tenant.StoreURL)
	}

	status := triggers.CheckBusinessHours(cfg, s.sessions.Now())

	data := &InitData{
		Conversation:   []TurnView{},
		IsOffline:      !status.Open,
		OfflineMessage: status.Message,
	}

	var existing *core.Session
	if req.SessionID != "" {
		sess, ok, err := s.sessions.Lookup(ctx, tenant.ID, req.SessionID)
		if err != nil {
			return nil, err
		}
		if ok {
			existing = sess
		}
	}

	if existing != nil {
		data.Exists = true
		data.SessionID = existing.SessionID
		data.ChatName = existing.ChatName
		data.Conversation = transcript(existing.Turns)
	} else {
		name, err := s.sessions.ProposeName(ctx, tenant.ID)
		if err != nil {
			return nil, err
		}
		data.SessionID = uuid.NewString()
		data.ChatName = name
	}

	data.Config = ConfigSnapshot{
		AssistantConfig:    cfg,
		SessionID:          data.SessionID,
		ChatName:           data.ChatName,
		SuggestedQuestions: capQuestions(questions),
	}

	nudges, err := s.tenants.ListActiveNudges(ctx, tenant.ID)
	if err != nil {
		utils.Zlog.Warn("Failed to load nudges", zap.String("tenant_id", tenant.ID), zap.Error(err))
	}
	data.Nudge = SelectNudge(nudges, req.PageURL)

	utils.Zlog.Info("Widget initialised",
		zap.String("tenant_id", tenant.ID),
		zap.String("session_id", data.SessionID),
		zap.Bool("resumed", data.Exists),
		zap.Bool("offline", data.IsOffline))

	return data, nil
}

// Chat answers one visitor message. Outside preview the user turn is
// durable before any model call, so a provider failure leaves it recorded
// without a bot turn or usage increment.
func (s *Service) Chat(ctx context.Context, cred *core.Credential, req ChatRequest) (*ChatReply, error) {
	const op = "widget.Chat"
	start := time.Now()

	message := strings.TrimSpace(req.Message)
	if message == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "Missing Data", nil)
	}
	preview := req.IsPreview()

	resolved, err := s.providers.ResolveProvider(cred)
	if err != nil {
		return nil, err
	}
	tenant, err := s.loadTenant(ctx, op, cred)
	if err != nil {
		return nil, err
	}
	cfg := tenant.Config

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	var sess *core.Session
	if preview {
		name := req.ChatName
		if name == "" {
			name = previewChatName
		}
		sess = s.sessions.Ephemeral(tenant.ID, sessionID, name)
		session.AppendTurn(sess, core.RoleUser, message, 0, s.sessions.Now())
	} else {
		sess, err = s.sessions.GetOrCreate(ctx, tenant.ID, sessionID, req.ChatName, core.SessionMetadata{
			UserAgent: req.UserAgent,
			PageURL:   req.PageURL,
			Referrer:  req.Referrer,
		})
		if err != nil {
			return nil, err
		}

		recent := s.sessions.RecentUserTurnCount(sess, triggers.RateWindow)
		if limit := triggers.CheckRateLimit(cfg, recent); limit != nil {
			utils.Zlog.Warn("Message limit reached",
				zap.String("tenant_id", tenant.ID),
				zap.String("session_id", sessionID),
				zap.Int("recent", recent),
				zap.Int("limit", cfg.CustomerMessageLimit))
			return &ChatReply{
				Message:   limit.Reply,
				SessionID: sess.SessionID,
				ChatName:  sess.ChatName,
				Products:  []core.ProductCard{},
				Action:    triggers.ActionLimitReached,
			}, nil
		}

		sess, err = s.sessions.AppendUserTurn(ctx, tenant.ID, sessionID, message)
		if err != nil {
			return nil, err
		}
	}

	outcome := triggers.Evaluate(triggers.Input{
		Config:        cfg,
		Message:       message,
		UserTurnCount: sess.UserTurnCount(),
		Preview:       preview,
		Now:           s.sessions.Now(),
	})

	reply := &ChatReply{
		SessionID: sess.SessionID,
		ChatName:  sess.ChatName,
		Products:  []core.ProductCard{},
		Action:    outcome.Action(),
	}
	if outcome.Handover != nil {
		reply.HandoverData = outcome.Handover.Flows
	}
	if outcome.Lead != nil {
		reply.LeadData = &LeadData{Type: outcome.Lead.Type, Mandatory: outcome.Lead.Mandatory}
	}

	if outcome.ShortCircuit() {
		reply.Message = outcome.Handover.Reply
		if !preview {
			if _, err := s.sessions.AppendBotTurn(ctx, tenant.ID, sessionID, reply.Message, 0); err != nil {
				return nil, err
			}
		}
		utils.Zlog.Info("Handover without model call",
			zap.String("tenant_id", tenant.ID),
			zap.String("session_id", sessionID),
			zap.Bool("open", outcome.Handover.Open))
		return reply, nil
	}

	knowledge := s.loadKnowledge(ctx, tenant.ID)

	var retrieved []rag.ScoredChunk
	if s.retriever != nil {
		retrieved, err = s.retriever.Retrieve(ctx, tenant.ID, message)
		if err != nil {
			utils.Zlog.Warn("Retrieval degraded, answering without it",
				zap.String("tenant_id", tenant.ID),
				zap.Error(err))
			retrieved = nil
		}
	}

	var memory string
	if !preview {
		memory, err = s.sessions.CrossSessionMemory(ctx, tenant.ID, sessionID)
		if err != nil {
			utils.Zlog.Warn("Failed to load cross-session memory",
				zap.String("tenant_id", tenant.ID),
				zap.Error(err))
			memory = ""
		}
	}

	in := prompt.Input{
		Tenant:    tenant,
		Knowledge: knowledge,
		Retrieved: rag.FormatContext(retrieved),
		Memory:    memory,
	}
	if outcome.Lead != nil {
		in.LeadDirective = outcome.Lead.Directive
	}
	messages := s.buildMessages(prompt.Build(in), sess, preview)

	answer, err := s.gateway.For(resolved.Family, resolved.Secret).
		Chat(ctx, messages, llm.OptionsFor(resolved.Family, cfg.AIModel))
	if err != nil {
		return nil, err
	}

	reply.Message = answer.Text
	reply.Products = products.Recommend(message, knowledge.Products)

	if !preview {
		stored, err := products.EncodeInline(answer.Text, reply.Products)
		if err != nil {
			utils.Zlog.Warn("Failed to encode product block", zap.Error(err))
			stored = answer.Text
		}
		if _, err := s.sessions.AppendBotTurn(ctx, tenant.ID, sessionID, stored, answer.Tokens); err != nil {
			return nil, err
		}
		if err := s.usage.IncrementUsage(ctx, cred.ID, answer.Tokens); err != nil {
			// the exchange is already durable; a retry would duplicate it
			utils.Zlog.Error("Failed to increment usage",
				zap.String("credential_id", cred.ID),
				zap.Int("tokens", answer.Tokens),
				zap.Error(err))
		}
	}

	utils.Zlog.Info("Widget reply generated",
		zap.String("tenant_id", tenant.ID),
		zap.String("session_id", sessionID),
		zap.String("family", string(resolved.Family)),
		zap.Int("retrieved", len(retrieved)),
		zap.Int("products", len(reply.Products)),
		zap.String("action", string(reply.Action)),
		zap.Int("tokens", answer.Tokens),
		zap.Bool("preview", preview),
		zap.Duration("latency", time.Since(start)))

	return reply, nil
}

// buildMessages pairs the instruction block with the recent transcript.
// Preview only sends the current message.
func (s *Service) buildMessages(system string, sess *core.Session, preview bool) []*schema.Message {
	history := sess.LastTurns(prompt.HistoryTurns)
	if preview {
		history = sess.LastTurns(1)
	}
	return prompt.Messages(system, history)
}

// loadKnowledge reads the static knowledge. A failed source is left empty.
func (s *Service) loadKnowledge(ctx context.Context, tenantID string) prompt.Knowledge {
	var k prompt.Knowledge
	var err error

	if k.Products, err = s.tenants.ListProducts(ctx, tenantID); err != nil {
		utils.Zlog.Warn("Failed to load products", zap.String("tenant_id", tenantID), zap.Error(err))
	}
	if k.FAQs, err = s.tenants.ListFAQs(ctx, tenantID); err != nil {
		utils.Zlog.Warn("Failed to load FAQs", zap.String("tenant_id", tenantID), zap.Error(err))
	}
	if k.Snapshots, err = s.tenants.ListPageSnapshots(ctx, tenantID); err != nil {
		utils.Zlog.Warn("Failed to load page snapshots", zap.String("tenant_id", tenantID), zap.Error(err))
	}
	return k
}

// History returns the transcript of one of the tenant's sessions.
func (s *Service) History(ctx context.Context, cred *core.Credential, sessionID string) (*HistoryData, error) {
	const op = "widget.History"

	if strings.TrimSpace(sessionID) == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "Session ID required", nil)
	}
	sess, ok, err := s.sessions.Lookup(ctx, cred.TenantID, sessionID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, utils.E(utils.CodeNotFound, op, "Conversation not found", nil)
	}
	return &HistoryData{Messages: transcript(sess.Turns), CreatedAt: sess.CreatedAt}, nil
}
