package ai

import (
	"context"
	"encoding/json"

	openai "github.com/sashabaranov/go-openai"

	"github.com/atendai/atendai/store"
)

// The closed set of functions the model may call. Names are part of the
// contract with the prompt and must not change without updating both sides.
const (
	FuncSearchProduct    = "buscarProduto"
	FuncProcessSale      = "processarVenda"
	FuncTransferToHuman  = "transferirParaHumano"
	FuncRegisterInterest = "registrarInteresse"
)

// SearchProductArgs are the arguments for buscarProduto.
type SearchProductArgs struct {
	Query string `json:"query"`
}

// ProcessSaleArgs are the arguments for processarVenda.
type ProcessSaleArgs struct {
	ProductID int32 `json:"product_id"`
	Quantity  int32 `json:"quantity"`
}

// TransferToHumanArgs are the arguments for transferirParaHumano.
type TransferToHumanArgs struct {
	Reason string `json:"reason"`
}

// RegisterInterestArgs are the arguments for registrarInteresse.
type RegisterInterestArgs struct {
	ProductName string `json:"product_name"`
	Note        string `json:"note,omitempty"`
}

// ToolResult is what a function execution hands back to the model.
// FileURL, when set, is sent to the customer alongside the text response;
// FileName and DocumentTitle describe the attachment to the channel.
type ToolResult struct {
	Content       string
	FileURL       string
	FileName      string
	DocumentTitle string
}

// ToolExecutor executes a function call against the business layer.
// An unknown name must return an error, never a silent success.
type ToolExecutor interface {
	Execute(ctx context.Context, companyID, conversationID int32, name string, args json.RawMessage) (*ToolResult, error)
}

// KnownFunction reports whether name belongs to the closed function set.
func KnownFunction(name string) bool {
	_, ok := toolDefinitions[name]
	return ok
}

var toolDefinitions = map[string]openai.Tool{
	FuncSearchProduct: {
		Type: openai.ToolTypeFunction,
		Function: &openai.FunctionDefinition{
			Name:        FuncSearchProduct,
			Description: "Busca um produto no catálogo da empresa pelo nome ou descrição. Use antes de informar preço ou disponibilidade.",
			Parameters: json.RawMessage(`{
				"type": "object",
				"properties": {
					"query": {"type": "string", "description": "Nome ou descrição do produto buscado"}
				},
				"required": ["query"]
			}`),
		},
	},
	FuncProcessSale: {
		Type: openai.ToolTypeFunction,
		Function: &openai.FunctionDefinition{
			Name:        FuncProcessSale,
			Description: "Registra um pedido para o cliente quando ele confirma a compra de um produto.",
			Parameters: json.RawMessage(`{
				"type": "object",
				"properties": {
					"product_id": {"type": "integer", "description": "ID do produto retornado por buscarProduto"},
					"quantity": {"type": "integer", "description": "Quantidade desejada, mínimo 1"}
				},
				"required": ["product_id", "quantity"]
			}`),
		},
	},
	FuncTransferToHuman: {
		Type: openai.ToolTypeFunction,
		Function: &openai.FunctionDefinition{
			Name:        FuncTransferToHuman,
			Description: "Transfere a conversa para um atendente humano. Use quando o cliente pedir ou quando não for possível ajudar.",
			Parameters: json.RawMessage(`{
				"type": "object",
				"properties": {
					"reason": {"type": "string", "description": "Motivo da transferência"}
				},
				"required": ["reason"]
			}`),
		},
	},
	FuncRegisterInterest: {
		Type: openai.ToolTypeFunction,
		Function: &openai.FunctionDefinition{
			Name:        FuncRegisterInterest,
			Description: "Registra o interesse do cliente em um produto indisponível ou futuro lançamento.",
			Parameters: json.RawMessage(`{
				"type": "object",
				"properties": {
					"product_name": {"type": "string", "description": "Produto de interesse"},
					"note": {"type": "string", "description": "Observação opcional"}
				},
				"required": ["product_name"]
			}`),
		},
	},
}

// ToolsForPersona returns the tool definitions the given persona is allowed
// to use. Search and interest registration are always available; selling and
// human transfer depend on the persona's capability flags.
func ToolsForPersona(persona *store.AgentPersona) []openai.Tool {
	names := []string{FuncSearchProduct, FuncRegisterInterest}
	if persona == nil || persona.CanSell {
		names = append(names, FuncProcessSale)
	}
	if persona == nil || persona.TransferToHuman {
		names = append(names, FuncTransferToHuman)
	}

	tools := make([]openai.Tool, 0, len(names))
	for _, name := range names {
		tools = append(tools, toolDefinitions[name])
	}
	return tools
}
