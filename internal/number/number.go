// Package number canonicalizes raw caller identifiers.
package number

import "strings"

// emergencyNumbers is the fixed set of numbers that always bypass screening.
// Matching is exact: "+39112" is not an emergency number even though it ends
// in one.
var emergencyNumbers = map[string]struct{}{
	"112": {},
	"911": {},
}

// Normalize strips a raw caller identifier down to digits plus a leading "+"
// and canonicalizes international prefixes: a leading "00" becomes "+".
// Numbers without an international prefix are returned as-is; no country code
// is inferred. Returns ok=false for nil-equivalent input (empty or blank).
func Normalize(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}

	var b strings.Builder
	if raw[0] == '+' {
		b.WriteByte('+')
	}
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	n := b.String()

	switch {
	case n == "" || n == "+":
		return "", false
	case strings.HasPrefix(n, "+"):
		return n, true
	case strings.HasPrefix(n, "00"):
		return "+" + n[2:], true
	default:
		// National number, no country inference.
		return n, true
	}
}

// IsEmergency reports whether number is an emergency number. Exact match only.
func IsEmergency(number string) bool {
	_, ok := emergencyNumbers[number]
	return ok
}
