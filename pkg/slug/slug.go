// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package slug derives URL slugs from tour names, e.g. "The Forest Hiker"
// becomes "the-forest-hiker" and "Café Crème" becomes "cafe-creme".
package slug

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// From lowercases s, strips accents and joins the remaining ASCII letter and
// digit runs with single hyphens. Characters with no ASCII form are dropped.
func From(s string) string {
	stripAccents := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(stripAccents, s)
	if err != nil {
		folded = s
	}

	var builder strings.Builder
	builder.Grow(len(folded))
	pendingHyphen := false

	for _, r := range strings.ToLower(folded) {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			if pendingHyphen && builder.Len() > 0 {
				builder.WriteByte('-')
			}
			builder.WriteRune(r)
			pendingHyphen = false
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			// Non-ASCII letters without a decomposition, such as "ß" or "ø".
		default:
			pendingHyphen = true
		}
	}
	return builder.String()
}
