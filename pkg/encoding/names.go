// Package encoding provides text utilities for names that end up on disk.
package encoding

import (
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// DefaultName replaces empty names.
const DefaultName = "default"

// FileName converts a light group or material name to a portable file name
// stem: accents are stripped, letters are lowercased, and every run of
// characters outside [a-z0-9._-] becomes a single underscore.
func FileName(name string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, name)
	if err != nil {
		folded = name
	}

	var b strings.Builder
	underscore := false
	for _, r := range strings.ToLower(folded) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '.':
			b.WriteRune(r)
			underscore = false
		default:
			if !underscore {
				b.WriteByte('_')
				underscore = true
			}
		}
	}
	out := strings.Trim(b.String(), "_.")
	if out == "" {
		return DefaultName
	}
	return out
}

// UniqueFileNames maps names to distinct file name stems, suffixing
// collisions with their position.
func UniqueFileNames(names []string) []string {
	out := make([]string, len(names))
	seen := make(map[string]bool, len(names))
	for i, n := range names {
		stem := FileName(n)
		for k := 2; seen[stem]; k++ {
			stem = FileName(n) + "_" + strconv.Itoa(k)
		}
		seen[stem] = true
		out[i] = stem
	}
	return out
}
