package convctx

import "strings"

// Detected intents. IntentOther means "nothing actionable" and is suppressed
// when formatting the prompt.
const (
	IntentPurchase      = "COMPRA"
	IntentPriceInquiry  = "PRECO"
	IntentHumanTransfer = "ATENDIMENTO_HUMANO"
	IntentOther         = "OUTRO"
)

var transferMarkers = []string{
	"falar com atendente",
	"falar com humano",
	"falar com uma pessoa",
	"falar com alguem",
	"atendente humano",
	"pessoa de verdade",
	"nao quero falar com robo",
}

var purchaseMarkers = []string{
	"quero comprar",
	"vou levar",
	"vou querer",
	"fechar pedido",
	"fazer o pedido",
	"como faco para comprar",
	"quero encomendar",
	"pode separar",
}

var priceMarkers = []string{
	"quanto custa",
	"quanto fica",
	"quanto sai",
	"qual o preco",
	"qual o valor",
	"qual e o preco",
	"qual e o valor",
	"tem desconto",
	"ta quanto",
}

// DetectIntent runs a keyword heuristic over the recent customer text.
// Transfer requests win over purchase, purchase over price, so the strongest
// signal drives the prompt.
func DetectIntent(text string) string {
	normalized := normalizeFarewell(text)
	if normalized == "" {
		return IntentOther
	}

	for _, m := range transferMarkers {
		if strings.Contains(normalized, m) {
			return IntentHumanTransfer
		}
	}
	for _, m := range purchaseMarkers {
		if strings.Contains(normalized, m) {
			return IntentPurchase
		}
	}
	for _, m := range priceMarkers {
		if strings.Contains(normalized, m) {
			return IntentPriceInquiry
		}
	}
	return IntentOther
}
