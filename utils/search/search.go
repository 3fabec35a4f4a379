// Package search provides the normalization used by the score table's local
// title quick filter. Matching is case-, accent- and width-insensitive so
// that e.g. "TSUBASA" finds "翼 (tsubasa)" transliterations and "degage"
// finds "Dégagé".
package search

import (
	"strings"

	"github.com/mozillazg/go-unidecode"
	"golang.org/x/text/unicode/norm"
)

// Normalize folds a title down to lower-case ASCII.
func Normalize(s string) string {
	s = norm.NFKC.String(s)
	s = unidecode.Unidecode(s)
	return strings.ToLower(strings.TrimSpace(s))
}

// MatchesTitle reports whether the normalized query occurs in the
// normalized candidate. An empty query matches everything.
func MatchesTitle(candidate, query string) bool {
	q := Normalize(query)
	if q == "" {
		return true
	}
	return strings.Contains(Normalize(candidate), q)
}
