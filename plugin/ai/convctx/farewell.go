package convctx

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Farewell types, used to tailor the closing reply tone.
const (
	FarewellThanking     = "THANKING"
	FarewellGoodbye      = "GOODBYE"
	FarewellConfirmation = "CONFIRMATION"
	FarewellBrief        = "BRIEF"
)

// maxFarewellWords bounds what still counts as a closing utterance. Anything
// longer is a substantive message even if it contains a farewell token.
const maxFarewellWords = 4

var thankingTokens = map[string]bool{
	"obrigado":   true,
	"obrigada":   true,
	"brigado":    true,
	"brigada":    true,
	"obg":        true,
	"valeu":      true,
	"vlw":        true,
	"agradecido": true,
	"agradecida": true,
	"gratidao":   true,
}

var goodbyeTokens = map[string]bool{
	"tchau":      true,
	"xau":        true,
	"adeus":      true,
	"falou":      true,
	"flw":        true,
	"abraco":  true,
	"abracos": true,
}

var goodbyePhrases = []string{
	"ate mais",
	"ate logo",
	"ate breve",
	"ate amanha",
	"boa noite",
	"bom descanso",
}

var confirmationTokens = map[string]bool{
	"ok":        true,
	"okay":      true,
	"certo":     true,
	"entendi":   true,
	"combinado": true,
	"perfeito":  true,
	"beleza":    true,
	"blz":       true,
	"fechado":   true,
	"fechou":    true,
	"show":      true,
	"top":       true,
	"ta bom":    true,
	"tudo bem":  true,
}

var closingEmoji = map[rune]bool{
	'👍': true,
	'🙏': true,
	'😊': true,
	'❤': true,
	'✌': true,
	'🤝': true,
}

var stripDiacritics = transform.Chain(
	norm.NFD,
	runes.Remove(runes.In(unicode.Mn)),
	norm.NFC,
)

// DetectEndOfConversation reports whether the message is a closing utterance.
func DetectEndOfConversation(text string) bool {
	_, ok := DetectFarewellType(text)
	return ok
}

// DetectFarewellType classifies a closing utterance. A message ending in a
// question mark is never a farewell, regardless of its tokens.
func DetectFarewellType(text string) (string, bool) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return "", false
	}
	if strings.HasSuffix(trimmed, "?") {
		return "", false
	}

	if isClosingEmojiOnly(trimmed) {
		return FarewellBrief, true
	}

	normalized := normalizeFarewell(trimmed)
	words := strings.Fields(normalized)
	if len(words) == 0 || len(words) > maxFarewellWords {
		return "", false
	}

	joined := strings.Join(words, " ")

	for _, w := range words {
		if thankingTokens[w] {
			return FarewellThanking, true
		}
	}
	for _, w := range words {
		if goodbyeTokens[w] {
			return FarewellGoodbye, true
		}
	}
	for _, phrase := range goodbyePhrases {
		if strings.Contains(joined, phrase) {
			return FarewellGoodbye, true
		}
	}
	for _, w := range words {
		if confirmationTokens[w] {
			return FarewellConfirmation, true
		}
	}
	if confirmationTokens[joined] {
		return FarewellConfirmation, true
	}

	// A lone very short token ("ss", "uhum") closes the conversation too.
	if len(words) == 1 && len([]rune(words[0])) <= 4 {
		switch words[0] {
		case "ss", "sim", "uhum", "aham", "dale":
			return FarewellBrief, true
		}
	}

	return "", false
}

// normalizeFarewell lowercases, strips diacritics and trailing punctuation.
func normalizeFarewell(text string) string {
	stripped, _, err := transform.String(stripDiacritics, text)
	if err != nil {
		stripped = text
	}
	lower := strings.ToLower(stripped)
	return strings.TrimFunc(lower, func(r rune) bool {
		return unicode.IsPunct(r) || unicode.IsSymbol(r) || unicode.IsSpace(r)
	})
}

func isClosingEmojiOnly(text string) bool {
	seen := false
	for _, r := range text {
		if unicode.IsSpace(r) || r == '️' {
			continue
		}
		if !closingEmoji[r] {
			return false
		}
		seen = true
	}
	return seen
}
