package ai

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/pkg/errors"
	openai "github.com/sashabaranov/go-openai"
)

// maxToolRounds bounds the call/execute loop so a confused model cannot
// spin forever between tool calls.
const maxToolRounds = 5

// ChatClient is the completion surface the invoker needs. *LLMService
// satisfies it; tests substitute a scripted fake.
type ChatClient interface {
	ChatWithTools(ctx context.Context, messages []openai.ChatCompletionMessage, tools []openai.Tool) (*ChatResponse, error)
}

// InvocationRequest describes one answer generation.
type InvocationRequest struct {
	CompanyID      int32
	ConversationID int32
	SystemPrompt   string
	// History is the formatted conversation context injected before the
	// current message, oldest first.
	History []openai.ChatCompletionMessage
	// UserMessage is the customer message being answered.
	UserMessage string
	// Tools is the function set offered to the model for this invocation.
	Tools []openai.Tool
}

// FileAttachment describes a file the reply should carry to the customer.
type FileAttachment struct {
	URL           string
	FileName      string
	DocumentTitle string
}

// InvocationResult is the outcome of one answer generation. Token counts
// accumulate across every completion round of the tool loop.
type InvocationResult struct {
	Response        string
	InputTokens     int64
	OutputTokens    int64
	FunctionsCalled []string
	WasTransferred  bool
	FileToSend      *FileAttachment
}

// Invoker drives the tool-calling loop for a single inbound message.
type Invoker struct {
	client   ChatClient
	executor ToolExecutor
}

// NewInvoker creates a new invoker.
func NewInvoker(client ChatClient, executor ToolExecutor) *Invoker {
	return &Invoker{
		client:   client,
		executor: executor,
	}
}

// GenerateResponse runs completion rounds until the model produces a final
// text answer. Tool calls are executed through the executor and their results
// fed back as tool messages. A failed tool execution is reported to the model
// as an error payload rather than aborting the invocation.
func (inv *Invoker) GenerateResponse(ctx context.Context, req *InvocationRequest) (*InvocationResult, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(req.History)+2)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: req.SystemPrompt,
	})
	messages = append(messages, req.History...)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.UserMessage,
	})

	result := &InvocationResult{}

	for round := 0; round < maxToolRounds; round++ {
		resp, err := inv.client.ChatWithTools(ctx, messages, req.Tools)
		if err != nil {
			return nil, errors.Wrap(err, "failed to generate response")
		}
		result.InputTokens += resp.InputTokens
		result.OutputTokens += resp.OutputTokens

		if len(resp.Message.ToolCalls) == 0 {
			result.Response = resp.Message.Content
			return result, nil
		}

		messages = append(messages, resp.Message)
		for _, call := range resp.Message.ToolCalls {
			// Names outside the closed set are answered with an error
			// payload but never executed or recorded.
			if !KnownFunction(call.Function.Name) {
				slog.Warn("model called unknown function, ignoring",
					"function", call.Function.Name,
					"conversation_id", req.ConversationID)
				messages = append(messages, openai.ChatCompletionMessage{
					Role:       openai.ChatMessageRoleTool,
					ToolCallID: call.ID,
					Content:    errorPayload("função desconhecida: " + call.Function.Name),
				})
				continue
			}

			result.FunctionsCalled = append(result.FunctionsCalled, call.Function.Name)
			if call.Function.Name == FuncTransferToHuman {
				result.WasTransferred = true
			}

			toolResult, err := inv.executor.Execute(ctx, req.CompanyID, req.ConversationID, call.Function.Name, json.RawMessage(call.Function.Arguments))
			if err != nil {
				slog.Warn("tool execution failed",
					"function", call.Function.Name,
					"conversation_id", req.ConversationID,
					"error", err)
				toolResult = &ToolResult{Content: errorPayload(err.Error())}
			}
			if toolResult.FileURL != "" {
				result.FileToSend = &FileAttachment{
					URL:           toolResult.FileURL,
					FileName:      toolResult.FileName,
					DocumentTitle: toolResult.DocumentTitle,
				}
			}

			messages = append(messages, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				ToolCallID: call.ID,
				Content:    toolResult.Content,
			})
		}
	}

	return nil, errors.Errorf("tool loop exceeded %d rounds without a final answer", maxToolRounds)
}

// errorPayload renders a tool error as valid JSON for the model.
func errorPayload(msg string) string {
	raw, err := json.Marshal(map[string]string{"error": msg})
	if err != nil {
		return `{"error": "internal error"}`
	}
	return string(raw)
}
