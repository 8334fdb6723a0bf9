package phone

import "strings"

// defaultCountryCode is prepended to bare 10-digit national numbers.
const defaultCountryCode = "1"

// Normalize canonicalizes a raw phone string into an E.164-like identity key.
// Carriers and agents supply numbers in heterogeneous formats ("(555) 123-4567",
// "5551234567", "+15551234567"); a single canonical key is required so the same
// customer's inbound and outbound messages collapse into one conversation.
//
// Normalize is total and idempotent. It runs on untrusted webhook input and
// never fails: malformed input falls through to a permissive "+" prefix rather
// than an error. An empty string is returned unchanged, signalling that no
// identity is known.
func Normalize(raw string) string {
	if raw == "" {
		return raw
	}
	digits := stripNonDigits(raw)
	switch {
	case len(digits) == 10:
		return "+" + defaultCountryCode + digits
	case len(digits) == 11 && strings.HasPrefix(digits, defaultCountryCode):
		return "+" + digits
	default:
		return "+" + digits
	}
}

func stripNonDigits(value string) string {
	var b strings.Builder
	b.Grow(len(value))
	for _, r := range value {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
