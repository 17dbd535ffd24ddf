package convctx

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectEndOfConversationPunctuation(t *testing.T) {
	assert.True(t, DetectEndOfConversation("tchau"))
	assert.True(t, DetectEndOfConversation("tchau!"))
	assert.True(t, DetectEndOfConversation("TCHAU"))
	assert.True(t, DetectEndOfConversation("  tchau.  "))

	// A question is never a goodbye, even with a farewell token.
	assert.False(t, DetectEndOfConversation("valeu?"))
	assert.False(t, DetectEndOfConversation("tchau, mas antes: qual o horário?"))
}

func TestDetectFarewellType(t *testing.T) {
	tests := []struct {
		in       string
		wantType string
		wantOK   bool
	}{
		{"obrigado!", FarewellThanking, true},
		{"muito obrigada", FarewellThanking, true},
		{"valeu", FarewellThanking, true},
		{"vlw", FarewellThanking, true},

		{"tchau", FarewellGoodbye, true},
		{"até mais", FarewellGoodbye, true},
		{"até logo!", FarewellGoodbye, true},
		{"falou", FarewellGoodbye, true},

		{"ok", FarewellConfirmation, true},
		{"blz", FarewellConfirmation, true},
		{"combinado", FarewellConfirmation, true},
		{"ta bom", FarewellConfirmation, true},
		{"perfeito!!", FarewellConfirmation, true},

		{"👍", FarewellBrief, true},
		{"🙏🙏", FarewellBrief, true},
		{"uhum", FarewellBrief, true},

		{"", "", false},
		{"quero comprar uma camisa", "", false},
		{"obrigado, mas ainda tenho uma dúvida sobre o pedido que fiz ontem", "", false},
		{"valeu?", "", false},
		{"ok?", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := DetectFarewellType(tt.in)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantType, got)
		})
	}
}

func TestDetectIntent(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"quero comprar uma camisa polo", IntentPurchase},
		{"quanto custa o tênis branco?", IntentPriceInquiry},
		{"qual o preço do combo?", IntentPriceInquiry},
		{"quero falar com atendente", IntentHumanTransfer},
		{"me passa pra uma pessoa de verdade", IntentHumanTransfer},
		{"bom dia", IntentOther},
		{"", IntentOther},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DetectIntent(tt.in), "input: %q", tt.in)
	}
}

func TestDetectIntentTransferWinsOverPurchase(t *testing.T) {
	got := DetectIntent("quero comprar mas prefiro falar com atendente")
	assert.Equal(t, IntentHumanTransfer, got)
}
