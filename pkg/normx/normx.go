// Package normx normalizes credential input before it is validated, hashed
// or used for lookups. Normalization happens exactly once, at the service
// boundary; everything below it compares bytes exactly.
package normx

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Email canonicalizes an email address for storage and lookup: surrounding
// whitespace is stripped and the address is lower-cased. Uniqueness in the
// store is enforced on this form.
func Email(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Password applies Unicode NFKC normalization (so full-width compatibility
// characters collapse to their ASCII equivalents) and then folds every run of
// whitespace into a single ASCII space. The result is idempotent:
// Password(Password(s)) == Password(s).
func Password(s string) string {
	return collapseWhitespace(norm.NFKC.String(s))
}

func collapseWhitespace(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	inRun := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			if !inRun {
				b.WriteByte(' ')
				inRun = true
			}
			continue
		}
		inRun = false
		b.WriteRune(r)
	}
	return b.String()
}
