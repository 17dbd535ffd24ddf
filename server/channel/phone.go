package channel

import "strings"

// channel-specific address suffixes seen on inbound jobs.
var addressSuffixes = []string{
	"@c.us",
	"@s.whatsapp.net",
	"@g.us",
	"@lid",
}

// NormalizePhone reduces a channel address to a bare phone number:
// "5511999990000@c.us" becomes "5511999990000". Non-digit characters other
// than a leading plus are dropped.
func NormalizePhone(address string) string {
	phone := strings.TrimSpace(address)
	for _, suffix := range addressSuffixes {
		phone = strings.TrimSuffix(phone, suffix)
	}
	if at := strings.IndexByte(phone, '@'); at >= 0 {
		phone = phone[:at]
	}

	var b strings.Builder
	for i, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		} else if r == '+' && i == 0 {
			continue
		}
	}
	return b.String()
}
