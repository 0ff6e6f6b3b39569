package workflow

import "strings"

// MinPhoneDigits is the shortest phone number accepted after normalization.
const MinPhoneDigits = 10

// NormalizePhone strips everything but ASCII digits.
func NormalizePhone(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
