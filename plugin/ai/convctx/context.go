// Package convctx builds the bounded conversation context injected into the
// model prompt. Short conversations go in verbatim; long ones are condensed
// into a summary plus a recent window. It also hosts the farewell and intent
// heuristics that shape the reply tone.
package convctx

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/atendai/atendai/store"
)

const (
	// shortHistoryThreshold is the message count up to which the whole
	// history is injected verbatim, no summary.
	shortHistoryThreshold = 10
	// recentWindow is how many recent messages are kept verbatim once the
	// history exceeds the threshold.
	recentWindow = 5
)

// ConversationContext is the assembled context for one invocation. It is
// ephemeral and never persisted.
type ConversationContext struct {
	Summary        string
	RecentMessages []*store.Message
	DetectedIntent string
	TotalMessages  int
}

// MessageStore is the store surface the assembler needs.
type MessageStore interface {
	CountMessages(ctx context.Context, conversationID int32) (int, error)
	ListMessages(ctx context.Context, find *store.FindMessage) ([]*store.Message, error)
}

// Summarizer condenses older history into a short natural-language summary.
type Summarizer interface {
	Summarize(ctx context.Context, history string) (string, error)
}

// Assembler prepares conversation context for AI invocations. Summaries are
// memoized per conversation so the summarizer runs once per history length,
// not once per turn.
type Assembler struct {
	store      MessageStore
	summarizer Summarizer

	mu        sync.Mutex
	summaries map[int32]summaryEntry
}

type summaryEntry struct {
	summary    string
	olderCount int
}

// NewAssembler creates a new assembler. summarizer may be nil, in which case
// long histories are truncated to the recent window without a summary.
func NewAssembler(s MessageStore, summarizer Summarizer) *Assembler {
	return &Assembler{
		store:      s,
		summarizer: summarizer,
		summaries:  make(map[int32]summaryEntry),
	}
}

// Prepare assembles the context for conversationID. Storage failures degrade
// to an empty context instead of failing the invocation.
func (a *Assembler) Prepare(ctx context.Context, conversationID int32) *ConversationContext {
	total, err := a.store.CountMessages(ctx, conversationID)
	if err != nil {
		slog.Warn("context assembly failed, using empty context",
			"conversation_id", conversationID,
			"error", err)
		return &ConversationContext{}
	}

	cc := &ConversationContext{TotalMessages: total}

	if total <= shortHistoryThreshold {
		all, err := a.store.ListMessages(ctx, &store.FindMessage{ConversationID: &conversationID})
		if err != nil {
			slog.Warn("context assembly failed, using empty context",
				"conversation_id", conversationID,
				"error", err)
			return &ConversationContext{}
		}
		cc.RecentMessages = all
		cc.DetectedIntent = DetectIntent(customerText(all))
		return cc
	}

	limit := total
	recent, err := a.store.ListMessages(ctx, &store.FindMessage{
		ConversationID: &conversationID,
		Limit:          &limit,
	})
	if err != nil {
		slog.Warn("context assembly failed, using empty context",
			"conversation_id", conversationID,
			"error", err)
		return &ConversationContext{}
	}

	// recent is newest first; flip to chronological order.
	reverse(recent)

	cut := len(recent) - recentWindow
	if cut < 0 {
		cut = 0
	}
	older, window := recent[:cut], recent[cut:]

	cc.RecentMessages = window
	cc.DetectedIntent = DetectIntent(customerText(window))

	if a.summarizer != nil && len(older) > 0 {
		cc.Summary = a.summaryFor(ctx, conversationID, older)
	}
	return cc
}

// MaybeSummarize refreshes the memoized summary for a conversation. Meant to
// run off the reply path after a turn completes; it does nothing while the
// history is still short and never surfaces failures.
func (a *Assembler) MaybeSummarize(ctx context.Context, conversationID int32) {
	if a.summarizer == nil {
		return
	}
	total, err := a.store.CountMessages(ctx, conversationID)
	if err != nil || total <= shortHistoryThreshold {
		return
	}

	limit := total
	recent, err := a.store.ListMessages(ctx, &store.FindMessage{
		ConversationID: &conversationID,
		Limit:          &limit,
	})
	if err != nil {
		return
	}
	reverse(recent)

	cut := len(recent) - recentWindow
	if cut <= 0 {
		return
	}
	a.summaryFor(ctx, conversationID, recent[:cut])
}

// summaryFor returns the summary for the older portion of the history,
// reusing the memoized one when the portion has not grown. A summarizer
// failure falls back to the stale summary when one exists.
func (a *Assembler) summaryFor(ctx context.Context, conversationID int32, older []*store.Message) string {
	a.mu.Lock()
	cached, ok := a.summaries[conversationID]
	a.mu.Unlock()
	if ok && cached.olderCount == len(older) {
		return cached.summary
	}

	summary, err := a.summarizer.Summarize(ctx, renderHistory(older))
	if err != nil {
		slog.Warn("history summarization failed, proceeding without fresh summary",
			"conversation_id", conversationID,
			"error", err)
		return cached.summary
	}
	summary = strings.TrimSpace(summary)

	a.mu.Lock()
	a.summaries[conversationID] = summaryEntry{summary: summary, olderCount: len(older)}
	a.mu.Unlock()
	return summary
}

// FormatForPrompt renders the context block injected into the system prompt.
// Returns an empty string when there is no summary worth injecting.
func FormatForPrompt(cc *ConversationContext) string {
	if cc == nil || cc.Summary == "" {
		return ""
	}

	var b strings.Builder
	b.WriteString("Resumo da conversa anterior:\n")
	b.WriteString(cc.Summary)
	if cc.DetectedIntent != "" && cc.DetectedIntent != IntentOther {
		b.WriteString("\n\nIntenção detectada do cliente: ")
		b.WriteString(cc.DetectedIntent)
	}
	return b.String()
}

// renderHistory flattens messages into labeled lines for the summarizer.
func renderHistory(messages []*store.Message) string {
	var b strings.Builder
	for _, m := range messages {
		switch m.Sender {
		case store.MessageSenderCustomer:
			b.WriteString("Cliente: ")
		case store.MessageSenderAI:
			b.WriteString("Atendente: ")
		default:
			b.WriteString("Atendente humano: ")
		}
		if m.Type != store.MessageTypeText {
			b.WriteString("[" + string(m.Type) + "] ")
		}
		b.WriteString(m.Content)
		b.WriteString("\n")
	}
	return b.String()
}

// customerText joins the customer-sent lines of the window, used as the
// intent detection input.
func customerText(messages []*store.Message) string {
	var parts []string
	for _, m := range messages {
		if m.Sender == store.MessageSenderCustomer && m.Type == store.MessageTypeText {
			parts = append(parts, m.Content)
		}
	}
	return strings.Join(parts, "\n")
}

func reverse(messages []*store.Message) {
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
}
