package worker

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/lithammer/shortuuid/v4"
	"github.com/pkg/errors"
	openai "github.com/sashabaranov/go-openai"

	"github.com/atendai/atendai/internal/observability"
	"github.com/atendai/atendai/plugin/ai"
	"github.com/atendai/atendai/plugin/ai/agent"
	"github.com/atendai/atendai/plugin/ai/convctx"
	"github.com/atendai/atendai/server/channel"
	"github.com/atendai/atendai/server/notify"
	"github.com/atendai/atendai/server/quota"
	"github.com/atendai/atendai/server/service/conversation"
	"github.com/atendai/atendai/store"
)

const storeTimeout = 10 * time.Second

// Store is the store surface the pipeline reads and writes directly. The
// collaborating services carry their own narrower surfaces.
type Store interface {
	GetCompany(ctx context.Context, find *store.FindCompany) (*store.Company, error)
	CreateMessage(ctx context.Context, create *store.Message) (*store.Message, error)
	ListAgentPersonas(ctx context.Context, find *store.FindAgentPersona) ([]*store.AgentPersona, error)
	ListOrders(ctx context.Context, find *store.FindOrder) ([]*store.Order, error)
	UpdateOrder(ctx context.Context, update *store.UpdateOrder) (*store.Order, error)
	CreateAuditLog(ctx context.Context, create *store.AuditLog) (*store.AuditLog, error)
}

// Responder generates the AI reply for one turn.
type Responder interface {
	GenerateResponse(ctx context.Context, req *ai.InvocationRequest) (*ai.InvocationResult, error)
}

// Emitter pushes best-effort dashboard notifications.
type Emitter interface {
	EmitToCompany(companyID int32, event string, payload any)
}

// Speech synthesizes voice audio for voice-mode personas.
type Speech interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// paymentReviewReply is sent when an incoming image is treated as a payment
// proof for a pending order.
const paymentReviewReply = "Recebemos seu comprovante! Vamos conferir o pagamento e já te confirmamos por aqui. Obrigado!"

// Pipeline processes inbound jobs end to end.
type Pipeline struct {
	store         Store
	conversations *conversation.Service
	selector      *agent.Selector
	quota         *quota.Tracker
	assembler     *convctx.Assembler
	responder     Responder
	channel       channel.Adapter
	hub           Emitter
	speech        Speech
	metrics       *Metrics
	logger        *slog.Logger

	mediaDir     string
	mediaBaseURL string
}

// Config wires the pipeline's collaborators.
type Config struct {
	Store         Store
	Conversations *conversation.Service
	Selector      *agent.Selector
	Quota         *quota.Tracker
	Assembler     *convctx.Assembler
	Responder     Responder
	Channel       channel.Adapter
	Hub           Emitter
	Speech        Speech // optional; voice mode falls back to text when nil
	Logger        *slog.Logger
	MediaDir      string
	MediaBaseURL  string
}

// NewPipeline creates a new pipeline.
func NewPipeline(cfg Config) *Pipeline {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		store:         cfg.Store,
		conversations: cfg.Conversations,
		selector:      cfg.Selector,
		quota:         cfg.Quota,
		assembler:     cfg.Assembler,
		responder:     cfg.Responder,
		channel:       cfg.Channel,
		hub:           cfg.Hub,
		speech:        cfg.Speech,
		metrics:       &Metrics{},
		logger:        logger,
		mediaDir:      cfg.MediaDir,
		mediaBaseURL:  cfg.MediaBaseURL,
	}
}

// Metrics exposes the pipeline counters.
func (p *Pipeline) Metrics() *Metrics {
	return p.metrics
}

// Process handles one inbound job. Called by the queue with per-conversation
// ordering already guaranteed.
func (p *Pipeline) Process(ctx context.Context, job *Job) error {
	err := p.process(ctx, job)
	if err != nil {
		p.metrics.JobsFailed.Add(1)
		p.logger.Error("job failed",
			"session_id", job.SessionID,
			"from", job.From,
			"error", err)
		return err
	}
	p.metrics.JobsProcessed.Add(1)
	return nil
}

func (p *Pipeline) process(ctx context.Context, job *Job) error {
	phone := channel.NormalizePhone(job.From)
	if phone == "" {
		return errors.Errorf("unroutable sender address %q", job.From)
	}

	company, err := p.findCompany(ctx, job.SessionID)
	if err != nil {
		return err
	}

	reqCtx := observability.NewRequestContext(p.logger, company.ID)
	reqCtx.Info("inbound message received",
		slog.String("phone", phone),
		slog.String("type", string(job.Type)),
		slog.Int(observability.LogFieldMessageLen, len(job.Body)))

	conv, created, err := p.conversations.FindOrCreate(ctx, company.ID, phone, company.AIEnabled)
	if err != nil {
		return err
	}
	reqCtx = reqCtx.WithConversation(conv.ID)
	if created {
		reqCtx.Info("conversation created")
	}

	if _, err := p.persistMessage(ctx, conv.ID, store.MessageSenderCustomer, job.Type, job.Body, job.Timestamp); err != nil {
		return err
	}
	conv, err = p.conversations.RecordInbound(ctx, conv, job.Timestamp)
	if err != nil {
		return err
	}

	p.hub.EmitToCompany(company.ID, notify.EventNewMessage, map[string]any{
		"conversation_id": conv.ID,
		"phone":           phone,
		"type":            string(job.Type),
	})

	persona, err := p.resolvePersona(ctx, reqCtx, conv, company.ID, job.Body)
	if err != nil {
		return err
	}

	// Only the assistant answers, and only when it owns the conversation.
	if conv.Status != store.ConversationStatusAIHandling || !company.AIEnabled {
		reqCtx.Debug("conversation not ai-handled, leaving for human",
			slog.String("status", string(conv.Status)))
		return nil
	}
	if persona == nil {
		reqCtx.Warn("no persona available, skipping ai reply")
		return nil
	}

	// Specialized order-verification flow beats generic AI handling.
	if job.Type == store.MessageTypeImage {
		handled, err := p.handlePaymentProof(ctx, reqCtx, company, conv, job)
		if err != nil {
			return err
		}
		if handled {
			return nil
		}
	}

	status, err := p.quota.CheckTokenLimit(ctx, company.ID)
	if err != nil {
		return errors.Wrap(err, "quota check failed")
	}
	if status.IsLimitReached {
		return p.handleQuotaExhausted(ctx, reqCtx, company, conv, job, status)
	}

	return p.handleAIReply(ctx, reqCtx, company, conv, persona, job)
}

func (p *Pipeline) findCompany(ctx context.Context, sessionID string) (*store.Company, error) {
	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	company, err := p.store.GetCompany(ctx, &store.FindCompany{UID: &sessionID})
	if err != nil {
		return nil, errors.Wrap(err, "failed to resolve session company")
	}
	if company == nil {
		return nil, errors.Errorf("no company for session %q", sessionID)
	}
	return company, nil
}

// resolvePersona returns the bound persona, running selection and binding
// first when the conversation has none. Selection failure degrades to nil.
func (p *Pipeline) resolvePersona(ctx context.Context, reqCtx *observability.RequestContext, conv *store.Conversation, companyID int32, messageText string) (*store.AgentPersona, error) {
	if conv.BoundAgentID != nil {
		personas, err := p.store.ListAgentPersonas(ctx, &store.FindAgentPersona{ID: conv.BoundAgentID})
		if err != nil {
			return nil, errors.Wrap(err, "failed to load bound persona")
		}
		if len(personas) > 0 {
			return personas[0], nil
		}
		// Bound persona was deleted; fall through and select again.
	}

	selection, err := p.selector.SelectBestAgent(ctx, companyID, messageText)
	if err != nil {
		reqCtx.Warn("agent selection failed", slog.String("reason", selection.Reason))
		return nil, nil
	}
	reqCtx.Info("agent selected", slog.String("reason", selection.Reason))
	if selection.Persona == nil {
		return nil, nil
	}

	if _, err := p.conversations.BindAgent(ctx, conv, selection.Persona.ID); err != nil {
		return nil, err
	}
	reqCtx.Info("agent bound",
		slog.Int64(observability.LogFieldAgentID, int64(selection.Persona.ID)))
	return selection.Persona, nil
}

// handlePaymentProof short-circuits the pipeline when an incoming image looks
// like a payment proof for a pending order. Returns true when handled.
func (p *Pipeline) handlePaymentProof(ctx context.Context, reqCtx *observability.RequestContext, company *store.Company, conv *store.Conversation, job *Job) (bool, error) {
	pending := store.OrderStatusPending
	orders, err := p.store.ListOrders(ctx, &store.FindOrder{
		ConversationID: &conv.ID,
		Status:         &pending,
	})
	if err != nil {
		return false, errors.Wrap(err, "failed to check pending orders")
	}
	if len(orders) == 0 {
		return false, nil
	}

	order := orders[0]
	underReview := store.OrderStatusUnderReview
	if _, err := p.store.UpdateOrder(ctx, &store.UpdateOrder{ID: order.ID, Status: &underReview}); err != nil {
		return false, errors.Wrap(err, "failed to mark order under review")
	}
	p.audit(ctx, company.ID, store.AuditOrderUnderReview, "Order", order.ID, conv.ID)
	p.metrics.PaymentReviews.Add(1)

	if err := p.sendAndPersist(ctx, company, conv, job.SessionID, paymentReviewReply); err != nil {
		return true, err
	}
	reqCtx.Info("payment proof routed to review",
		slog.Int64("order_id", int64(order.ID)),
		slog.Int64(observability.LogFieldDuration, reqCtx.DurationMs()))
	return true, nil
}

func (p *Pipeline) handleQuotaExhausted(ctx context.Context, reqCtx *observability.RequestContext, company *store.Company, conv *store.Conversation, job *Job, status *quota.LimitStatus) error {
	p.metrics.QuotaBlocked.Add(1)
	reqCtx.Warn("token quota exhausted, sending canned reply",
		slog.Bool("upgrade_required", status.UpgradeRequired))

	p.audit(ctx, company.ID, store.AuditTokenLimitReached, "Company", company.ID, conv.ID)
	p.hub.EmitToCompany(company.ID, notify.EventTokenLimitReached, map[string]any{
		"conversation_id":  conv.ID,
		"upgrade_required": status.UpgradeRequired,
	})

	return p.sendAndPersist(ctx, company, conv, job.SessionID, p.quota.LimitReachedMessage())
}

func (p *Pipeline) handleAIReply(ctx context.Context, reqCtx *observability.RequestContext, company *store.Company, conv *store.Conversation, persona *store.AgentPersona, job *Job) error {
	cc := p.assembler.Prepare(ctx, conv.ID)
	_, farewell := convctx.DetectFarewellType(job.Body)

	systemPrompt := ai.BuildSystemPrompt(&ai.PromptInput{
		Company:      company,
		Persona:      persona,
		ContextBlock: convctx.FormatForPrompt(cc),
		Farewell:     farewell,
	})

	result, err := p.responder.GenerateResponse(ctx, &ai.InvocationRequest{
		CompanyID:      company.ID,
		ConversationID: conv.ID,
		SystemPrompt:   systemPrompt,
		History:        historyMessages(cc, job.Body),
		UserMessage:    job.Body,
		Tools:          ai.ToolsForPersona(persona),
	})
	if err != nil {
		return errors.Wrap(err, "ai invocation failed")
	}
	p.metrics.AIInvocations.Add(1)

	// Exactly once per successful invocation, never on the retry path.
	register, err := p.quota.RegisterTokenUsage(ctx, company.ID, result.InputTokens, result.OutputTokens)
	if err != nil {
		reqCtx.Error("failed to register token usage", err)
	} else if register.LimitReached {
		p.hub.EmitToCompany(company.ID, notify.EventTokenLimitReached, map[string]any{
			"conversation_id": conv.ID,
		})
	}

	if result.WasTransferred {
		transferred, err := p.conversations.TakeOver(ctx, conv, conversation.ActorSystem)
		if err != nil {
			reqCtx.Error("automatic take-over failed", err)
		} else {
			conv = transferred
			p.metrics.Transfers.Add(1)
			p.hub.EmitToCompany(company.ID, notify.EventConversationTransferred, map[string]any{
				"conversation_id": conv.ID,
			})
		}
	}

	if err := p.dispatch(ctx, conv, persona, job.SessionID, result); err != nil {
		return err
	}

	// Refresh the memoized history summary off the reply path, so the next
	// turn does not pay for summarization.
	go func() {
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Minute)
		defer cancel()
		p.assembler.MaybeSummarize(sctx, conv.ID)
	}()

	reqCtx.Info("reply sent",
		slog.Int64("input_tokens", result.InputTokens),
		slog.Int64("output_tokens", result.OutputTokens),
		slog.Bool("transferred", result.WasTransferred),
		slog.Int64(observability.LogFieldDuration, reqCtx.DurationMs()))
	return nil
}

// dispatch persists the outbound message and sends it through the channel:
// file when the turn produced one, voice for voice-mode personas, text
// otherwise. Voice synthesis failure falls back to text.
func (p *Pipeline) dispatch(ctx context.Context, conv *store.Conversation, persona *store.AgentPersona, sessionID string, result *ai.InvocationResult) error {
	if f := result.FileToSend; f != nil {
		if _, err := p.persistMessage(ctx, conv.ID, store.MessageSenderAI, store.MessageTypeDocument, f.URL, time.Now().Unix()); err != nil {
			return err
		}
		name := f.FileName
		if name == "" {
			name = filepath.Base(f.URL)
		}
		if err := p.channel.SendFile(ctx, sessionID, conv.Phone, &channel.FilePayload{
			URL:           f.URL,
			FileName:      name,
			DocumentTitle: f.DocumentTitle,
		}); err != nil {
			return errors.Wrap(err, "failed to send file")
		}
	}

	if result.Response == "" {
		return nil
	}

	if persona.VoiceMode && p.speech != nil {
		if audioURL, err := p.synthesizeAudio(ctx, result.Response); err == nil {
			if _, err := p.persistMessage(ctx, conv.ID, store.MessageSenderAI, store.MessageTypeAudio, result.Response, time.Now().Unix()); err != nil {
				return err
			}
			if err := p.channel.SendAudio(ctx, sessionID, conv.Phone, audioURL); err != nil {
				return errors.Wrap(err, "failed to send audio")
			}
			return nil
		} else {
			p.logger.Warn("voice synthesis failed, falling back to text", "error", err)
		}
	}

	if _, err := p.persistMessage(ctx, conv.ID, store.MessageSenderAI, store.MessageTypeText, result.Response, time.Now().Unix()); err != nil {
		return err
	}
	if err := p.channel.SendText(ctx, sessionID, conv.Phone, result.Response); err != nil {
		return errors.Wrap(err, "failed to send text")
	}
	return nil
}

// sendAndPersist is the canned-reply path: persist as an AI message, send as
// plain text.
func (p *Pipeline) sendAndPersist(ctx context.Context, company *store.Company, conv *store.Conversation, sessionID, text string) error {
	if _, err := p.persistMessage(ctx, conv.ID, store.MessageSenderAI, store.MessageTypeText, text, time.Now().Unix()); err != nil {
		return err
	}
	if err := p.channel.SendText(ctx, sessionID, conv.Phone, text); err != nil {
		return errors.Wrap(err, "failed to send text")
	}
	return nil
}

func (p *Pipeline) persistMessage(ctx context.Context, conversationID int32, sender store.MessageSender, msgType store.MessageType, content string, ts int64) (*store.Message, error) {
	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	msg, err := p.store.CreateMessage(ctx, &store.Message{
		UID:            shortuuid.New(),
		ConversationID: conversationID,
		Sender:         sender,
		Type:           msgType,
		Content:        content,
		CreatedTs:      ts,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to persist message")
	}
	return msg, nil
}

func (p *Pipeline) synthesizeAudio(ctx context.Context, text string) (string, error) {
	audio, err := p.speech.Synthesize(ctx, text)
	if err != nil {
		return "", err
	}
	name := uuid.New().String() + ".mp3"
	path := filepath.Join(p.mediaDir, name)
	if err := os.WriteFile(path, audio, 0o600); err != nil {
		return "", errors.Wrap(err, "failed to write audio file")
	}
	return p.mediaBaseURL + "/" + name, nil
}

// audit writes a fire-and-forget audit record.
func (p *Pipeline) audit(ctx context.Context, companyID int32, action, entity string, entityID, conversationID int32) {
	_, err := p.store.CreateAuditLog(ctx, &store.AuditLog{
		CompanyID: companyID,
		Action:    action,
		Entity:    entity,
		EntityID:  entityID,
		Actor:     conversation.ActorSystem,
		Details:   "",
		CreatedTs: time.Now().Unix(),
	})
	if err != nil {
		p.logger.Warn("failed to write audit log",
			"action", action,
			"conversation_id", conversationID,
			"error", err)
	}
}

// historyMessages converts the recent window into chat turns. The summary,
// when present, rides in the system prompt instead. The current inbound
// message is already persisted by the time context is assembled, so a
// trailing duplicate of it is dropped here.
func historyMessages(cc *convctx.ConversationContext, currentBody string) []openai.ChatCompletionMessage {
	if cc == nil || len(cc.RecentMessages) == 0 {
		return nil
	}
	recent := cc.RecentMessages
	if last := recent[len(recent)-1]; last.Sender == store.MessageSenderCustomer && last.Content == currentBody {
		recent = recent[:len(recent)-1]
	}

	out := make([]openai.ChatCompletionMessage, 0, len(recent))
	for _, m := range recent {
		if m.Type != store.MessageTypeText {
			continue
		}
		role := openai.ChatMessageRoleAssistant
		if m.Sender == store.MessageSenderCustomer {
			role = openai.ChatMessageRoleUser
		}
		out = append(out, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}
	return out
}
