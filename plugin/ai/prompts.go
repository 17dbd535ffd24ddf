package ai

import (
	"fmt"
	"strings"

	"github.com/atendai/atendai/store"
)

// PromptInput carries everything the system prompt is built from.
type PromptInput struct {
	Company *store.Company
	Persona *store.AgentPersona
	// ContextBlock is the formatted conversation context (summary plus
	// recent messages) produced by the context assembler. May be empty for
	// a brand new conversation.
	ContextBlock string
	// Farewell, when true, instructs the model to close the conversation
	// with a short goodbye instead of prolonging it.
	Farewell bool
}

// BuildSystemPrompt assembles the system prompt for one invocation. The
// prompt is written in Brazilian Portuguese, matching the customer base.
func BuildSystemPrompt(in *PromptInput) string {
	var b strings.Builder

	name := "Atendente"
	if in.Persona != nil && in.Persona.Name != "" {
		name = in.Persona.Name
	}
	company := "a empresa"
	if in.Company != nil && in.Company.Name != "" {
		company = in.Company.Name
	}

	fmt.Fprintf(&b, "Você é %s, atendente virtual de %s.\n", name, company)
	if in.Company != nil && in.Company.Niche != "" {
		fmt.Fprintf(&b, "Ramo de atuação: %s.\n", in.Company.Niche)
	}
	if in.Persona != nil && in.Persona.Personality != "" {
		fmt.Fprintf(&b, "Personalidade: %s\n", in.Persona.Personality)
	}

	b.WriteString("\nRegras de atendimento:\n")
	b.WriteString("- Responda sempre em português do Brasil, de forma curta e natural, como em uma conversa de mensagens.\n")
	b.WriteString("- Nunca invente preço, estoque ou prazo. Consulte o catálogo com buscarProduto antes de afirmar qualquer coisa sobre um produto.\n")

	if in.Persona == nil || in.Persona.CanSell {
		b.WriteString("- Quando o cliente confirmar a compra, registre o pedido com processarVenda.\n")
	} else {
		b.WriteString("- Você não fecha vendas. Se o cliente quiser comprar, oriente e registre o interesse com registrarInteresse.\n")
	}
	if in.Persona != nil && in.Persona.CanNegotiate {
		b.WriteString("- Você pode negociar condições dentro do razoável, sem prometer descontos não confirmados.\n")
	}
	if in.Persona == nil || in.Persona.TransferToHuman {
		b.WriteString("- Se o cliente pedir para falar com uma pessoa, ou se você não conseguir ajudar, use transferirParaHumano.\n")
	}

	if in.Farewell {
		b.WriteString("\nO cliente está encerrando a conversa. Responda com uma despedida breve e cordial, sem abrir novos assuntos nem fazer perguntas.\n")
	}

	if in.ContextBlock != "" {
		b.WriteString("\nContexto da conversa até aqui:\n")
		b.WriteString(in.ContextBlock)
		b.WriteString("\n")
	}

	return b.String()
}

// BuildSummaryPrompt asks the model to condense older conversation history
// so the context window stays small on long threads.
func BuildSummaryPrompt(history string) string {
	var b strings.Builder
	b.WriteString("Resuma a conversa abaixo entre um cliente e um atendente em no máximo cinco frases.\n")
	b.WriteString("Preserve: produtos mencionados, valores combinados, decisões do cliente e pendências em aberto.\n\n")
	b.WriteString(history)
	return b.String()
}
