package ai

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/pkg/errors"
	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atendai/atendai/store"
)

type scriptedClient struct {
	responses []*ChatResponse
	calls     int
	// lastMessages holds the transcript of the most recent round.
	lastMessages []openai.ChatCompletionMessage
}

func (c *scriptedClient) ChatWithTools(_ context.Context, messages []openai.ChatCompletionMessage, _ []openai.Tool) (*ChatResponse, error) {
	c.lastMessages = messages
	if c.calls >= len(c.responses) {
		return nil, assert.AnError
	}
	resp := c.responses[c.calls]
	c.calls++
	return resp, nil
}

type recordingExecutor struct {
	results map[string]*ToolResult
	errs    map[string]error
	called  []string
}

func (e *recordingExecutor) Execute(_ context.Context, _, _ int32, name string, _ json.RawMessage) (*ToolResult, error) {
	e.called = append(e.called, name)
	if err, ok := e.errs[name]; ok {
		return nil, err
	}
	if r, ok := e.results[name]; ok {
		return r, nil
	}
	return &ToolResult{Content: "{}"}, nil
}

func textResponse(content string, in, out int64) *ChatResponse {
	return &ChatResponse{
		Message:      openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: content},
		InputTokens:  in,
		OutputTokens: out,
	}
}

func toolResponse(in, out int64, calls ...openai.ToolCall) *ChatResponse {
	return &ChatResponse{
		Message:      openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, ToolCalls: calls},
		InputTokens:  in,
		OutputTokens: out,
	}
}

func TestGenerateResponsePlainText(t *testing.T) {
	client := &scriptedClient{responses: []*ChatResponse{
		textResponse("Olá! Como posso ajudar?", 100, 20),
	}}
	inv := NewInvoker(client, &recordingExecutor{})

	result, err := inv.GenerateResponse(context.Background(), &InvocationRequest{
		CompanyID:    1,
		SystemPrompt: "prompt",
		UserMessage:  "oi",
	})
	require.NoError(t, err)
	assert.Equal(t, "Olá! Como posso ajudar?", result.Response)
	assert.Equal(t, int64(100), result.InputTokens)
	assert.Equal(t, int64(20), result.OutputTokens)
	assert.Empty(t, result.FunctionsCalled)
	assert.False(t, result.WasTransferred)
}

func TestGenerateResponseToolLoop(t *testing.T) {
	client := &scriptedClient{responses: []*ChatResponse{
		toolResponse(100, 10, openai.ToolCall{
			ID:       "call-1",
			Function: openai.FunctionCall{Name: FuncSearchProduct, Arguments: `{"query":"tênis"}`},
		}),
		textResponse("O tênis custa R$ 199,90.", 150, 30),
	}}
	executor := &recordingExecutor{results: map[string]*ToolResult{
		FuncSearchProduct: {
			Content:       `{"id":7,"price":"199.90"}`,
			FileURL:       "https://cdn.example.com/tenis.jpg",
			FileName:      "tenis.jpg",
			DocumentTitle: "Tênis Runner",
		},
	}}
	inv := NewInvoker(client, executor)

	result, err := inv.GenerateResponse(context.Background(), &InvocationRequest{
		CompanyID:   1,
		UserMessage: "quanto custa o tênis?",
	})
	require.NoError(t, err)
	assert.Equal(t, "O tênis custa R$ 199,90.", result.Response)
	assert.Equal(t, []string{FuncSearchProduct}, result.FunctionsCalled)
	assert.Equal(t, []string{FuncSearchProduct}, executor.called)
	require.NotNil(t, result.FileToSend)
	assert.Equal(t, "https://cdn.example.com/tenis.jpg", result.FileToSend.URL)
	assert.Equal(t, "tenis.jpg", result.FileToSend.FileName)
	assert.Equal(t, "Tênis Runner", result.FileToSend.DocumentTitle)
	// Usage accumulates across rounds.
	assert.Equal(t, int64(250), result.InputTokens)
	assert.Equal(t, int64(40), result.OutputTokens)
	assert.False(t, result.WasTransferred)
}

func TestGenerateResponseTransferSetsFlag(t *testing.T) {
	client := &scriptedClient{responses: []*ChatResponse{
		toolResponse(80, 10, openai.ToolCall{
			ID:       "call-1",
			Function: openai.FunctionCall{Name: FuncTransferToHuman, Arguments: `{"reason":"cliente pediu"}`},
		}),
		textResponse("Vou te passar para um atendente, um momento.", 90, 15),
	}}
	inv := NewInvoker(client, &recordingExecutor{})

	result, err := inv.GenerateResponse(context.Background(), &InvocationRequest{
		CompanyID:   1,
		UserMessage: "quero falar com uma pessoa",
	})
	require.NoError(t, err)
	assert.True(t, result.WasTransferred)
	assert.Equal(t, []string{FuncTransferToHuman}, result.FunctionsCalled)
}

func TestGenerateResponseIgnoresUnknownFunction(t *testing.T) {
	client := &scriptedClient{responses: []*ChatResponse{
		toolResponse(50, 5, openai.ToolCall{
			ID:       "call-1",
			Function: openai.FunctionCall{Name: "apagarBanco", Arguments: `{}`},
		}),
		textResponse("Desculpe, não entendi.", 60, 10),
	}}
	executor := &recordingExecutor{}
	inv := NewInvoker(client, executor)

	result, err := inv.GenerateResponse(context.Background(), &InvocationRequest{UserMessage: "oi"})
	require.NoError(t, err)
	assert.Empty(t, result.FunctionsCalled, "unknown names must not be recorded")
	assert.Empty(t, executor.called, "unknown names must not reach the executor")
	assert.False(t, result.WasTransferred)

	// The call ID still gets a tool reply, as valid JSON.
	last := client.lastMessages[len(client.lastMessages)-1]
	assert.Equal(t, openai.ChatMessageRoleTool, last.Role)
	assert.Equal(t, "call-1", last.ToolCallID)
	assert.True(t, json.Valid([]byte(last.Content)), "payload must be valid JSON: %s", last.Content)
}

func TestGenerateResponseToolErrorPayloadIsValidJSON(t *testing.T) {
	client := &scriptedClient{responses: []*ChatResponse{
		toolResponse(50, 5, openai.ToolCall{
			ID:       "call-1",
			Function: openai.FunctionCall{Name: FuncSearchProduct, Arguments: `{"query":"x"}`},
		}),
		textResponse("Tivemos um problema, pode repetir?", 60, 10),
	}}
	executor := &recordingExecutor{errs: map[string]error{
		FuncSearchProduct: errors.New(`lookup failed: field "name" missing`),
	}}
	inv := NewInvoker(client, executor)

	_, err := inv.GenerateResponse(context.Background(), &InvocationRequest{UserMessage: "oi"})
	require.NoError(t, err)

	last := client.lastMessages[len(client.lastMessages)-1]
	assert.Equal(t, openai.ChatMessageRoleTool, last.Role)
	require.True(t, json.Valid([]byte(last.Content)), "quotes in the error must not break the payload: %s", last.Content)

	var payload map[string]string
	require.NoError(t, json.Unmarshal([]byte(last.Content), &payload))
	assert.Contains(t, payload["error"], `field "name" missing`)
}

func TestGenerateResponseLoopBound(t *testing.T) {
	// Model keeps calling tools and never answers.
	responses := make([]*ChatResponse, maxToolRounds+1)
	for i := range responses {
		responses[i] = toolResponse(10, 1, openai.ToolCall{
			ID:       "call",
			Function: openai.FunctionCall{Name: FuncSearchProduct, Arguments: `{"query":"x"}`},
		})
	}
	inv := NewInvoker(&scriptedClient{responses: responses}, &recordingExecutor{})

	_, err := inv.GenerateResponse(context.Background(), &InvocationRequest{UserMessage: "oi"})
	require.Error(t, err)
}

func TestToolsForPersona(t *testing.T) {
	tests := []struct {
		name    string
		persona *store.AgentPersona
		want    []string
	}{
		{
			name:    "nil persona offers everything",
			persona: nil,
			want:    []string{FuncSearchProduct, FuncRegisterInterest, FuncProcessSale, FuncTransferToHuman},
		},
		{
			name:    "seller without transfer",
			persona: &store.AgentPersona{CanSell: true, TransferToHuman: false},
			want:    []string{FuncSearchProduct, FuncRegisterInterest, FuncProcessSale},
		},
		{
			name:    "support only",
			persona: &store.AgentPersona{CanSell: false, TransferToHuman: true},
			want:    []string{FuncSearchProduct, FuncRegisterInterest, FuncTransferToHuman},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tools := ToolsForPersona(tt.persona)
			var names []string
			for _, tool := range tools {
				names = append(names, tool.Function.Name)
			}
			assert.Equal(t, tt.want, names)
		})
	}
}
