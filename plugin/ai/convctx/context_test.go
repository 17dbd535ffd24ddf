package convctx

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atendai/atendai/store"
)

type fakeMessageStore struct {
	messages []*store.Message
	countErr error
	listErr  error
}

func (f *fakeMessageStore) CountMessages(_ context.Context, _ int32) (int, error) {
	if f.countErr != nil {
		return 0, f.countErr
	}
	return len(f.messages), nil
}

func (f *fakeMessageStore) ListMessages(_ context.Context, find *store.FindMessage) ([]*store.Message, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	if find.Limit == nil {
		return f.messages, nil
	}
	// Newest first when a limit is set, mirroring the store contract.
	n := *find.Limit
	if n > len(f.messages) {
		n = len(f.messages)
	}
	out := make([]*store.Message, 0, n)
	for i := len(f.messages) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, f.messages[i])
	}
	return out, nil
}

type fakeSummarizer struct {
	summary  string
	err      error
	received string
	calls    int
}

func (f *fakeSummarizer) Summarize(_ context.Context, history string) (string, error) {
	f.calls++
	f.received = history
	return f.summary, f.err
}

func customerMessages(n int) []*store.Message {
	msgs := make([]*store.Message, 0, n)
	for i := 0; i < n; i++ {
		msgs = append(msgs, &store.Message{
			ID:        int32(i + 1),
			Sender:    store.MessageSenderCustomer,
			Type:      store.MessageTypeText,
			Content:   fmt.Sprintf("mensagem %d", i+1),
			CreatedTs: int64(1000 + i),
		})
	}
	return msgs
}

func TestPrepareShortHistory(t *testing.T) {
	ms := &fakeMessageStore{messages: customerMessages(4)}
	summarizer := &fakeSummarizer{summary: "should not be called"}
	a := NewAssembler(ms, summarizer)

	cc := a.Prepare(context.Background(), 1)
	assert.Equal(t, 4, cc.TotalMessages)
	assert.Len(t, cc.RecentMessages, 4)
	assert.Empty(t, cc.Summary, "short history must not be summarized")
	assert.Empty(t, summarizer.received)
}

func TestPrepareLongHistorySummarizes(t *testing.T) {
	ms := &fakeMessageStore{messages: customerMessages(12)}
	summarizer := &fakeSummarizer{summary: "cliente perguntou sobre tênis"}
	a := NewAssembler(ms, summarizer)

	cc := a.Prepare(context.Background(), 1)
	assert.Equal(t, 12, cc.TotalMessages)
	require.Len(t, cc.RecentMessages, 5)
	// Window is chronological and holds the newest messages.
	assert.Equal(t, "mensagem 8", cc.RecentMessages[0].Content)
	assert.Equal(t, "mensagem 12", cc.RecentMessages[4].Content)

	assert.Equal(t, "cliente perguntou sobre tênis", cc.Summary)
	// Older messages, not the window, were handed to the summarizer.
	assert.Contains(t, summarizer.received, "mensagem 1")
	assert.Contains(t, summarizer.received, "mensagem 7")
	assert.NotContains(t, summarizer.received, "mensagem 8")
}

func TestMaybeSummarizeWarmsPrepare(t *testing.T) {
	ms := &fakeMessageStore{messages: customerMessages(12)}
	summarizer := &fakeSummarizer{summary: "cliente quer um tênis"}
	a := NewAssembler(ms, summarizer)

	a.MaybeSummarize(context.Background(), 1)
	assert.Equal(t, 1, summarizer.calls)

	// Prepare reuses the memoized summary while the history has not grown.
	cc := a.Prepare(context.Background(), 1)
	assert.Equal(t, "cliente quer um tênis", cc.Summary)
	assert.Equal(t, 1, summarizer.calls)

	// A longer history forces a fresh summary.
	ms.messages = customerMessages(14)
	a.Prepare(context.Background(), 1)
	assert.Equal(t, 2, summarizer.calls)
}

func TestMaybeSummarizeShortHistoryIsNoop(t *testing.T) {
	summarizer := &fakeSummarizer{summary: "nunca"}
	a := NewAssembler(&fakeMessageStore{messages: customerMessages(4)}, summarizer)

	a.MaybeSummarize(context.Background(), 1)
	assert.Zero(t, summarizer.calls)
}

func TestPrepareSummarizerFailureDegrades(t *testing.T) {
	ms := &fakeMessageStore{messages: customerMessages(12)}
	a := NewAssembler(ms, &fakeSummarizer{err: assert.AnError})

	cc := a.Prepare(context.Background(), 1)
	assert.Empty(t, cc.Summary)
	assert.Len(t, cc.RecentMessages, 5)
}

func TestPrepareStorageFailureYieldsEmptyContext(t *testing.T) {
	a := NewAssembler(&fakeMessageStore{countErr: assert.AnError}, nil)

	cc := a.Prepare(context.Background(), 1)
	require.NotNil(t, cc)
	assert.Zero(t, cc.TotalMessages)
	assert.Empty(t, cc.RecentMessages)
	assert.Empty(t, cc.Summary)
}

func TestFormatForPrompt(t *testing.T) {
	assert.Empty(t, FormatForPrompt(nil))
	assert.Empty(t, FormatForPrompt(&ConversationContext{RecentMessages: customerMessages(3)}))

	withSummary := &ConversationContext{
		Summary:        "cliente negociou um tênis",
		DetectedIntent: IntentPurchase,
	}
	out := FormatForPrompt(withSummary)
	assert.Contains(t, out, "Resumo da conversa anterior:")
	assert.Contains(t, out, "cliente negociou um tênis")
	assert.Contains(t, out, IntentPurchase)

	// OUTRO is suppressed.
	noIntent := &ConversationContext{Summary: "resumo", DetectedIntent: IntentOther}
	assert.NotContains(t, FormatForPrompt(noIntent), IntentOther)
}
