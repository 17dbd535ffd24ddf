package convctx

import (
	"context"

	"github.com/pkg/errors"

	"github.com/atendai/atendai/plugin/ai"
)

// LLMSummarizer condenses history through the chat model. Token usage of
// summarization calls is deliberately not charged against the company quota;
// only customer-facing invocations count.
type LLMSummarizer struct {
	llm *ai.LLMService
}

// NewLLMSummarizer creates a new LLM-backed summarizer.
func NewLLMSummarizer(llm *ai.LLMService) *LLMSummarizer {
	return &LLMSummarizer{llm: llm}
}

// Summarize produces a short summary of the rendered history.
func (s *LLMSummarizer) Summarize(ctx context.Context, history string) (string, error) {
	resp, err := s.llm.Summarize(ctx, ai.BuildSummaryPrompt(history))
	if err != nil {
		return "", errors.Wrap(err, "failed to summarize history")
	}
	return resp.Message.Content, nil
}

var _ Summarizer = (*LLMSummarizer)(nil)
