// Package textx normalises product text for accent- and case-insensitive
// search ("Maçã" matches "maca").
package textx

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Fold strips diacritics and case-folds s.
func Fold(s string) string {
	// transformers and casers carry state, so they are built per call
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return cases.Fold().String(strings.TrimSpace(out))
}

// SearchKey folds and joins the searchable columns of a product.
func SearchKey(parts ...string) string {
	folded := make([]string, 0, len(parts))
	for _, p := range parts {
		if f := Fold(p); f != "" {
			folded = append(folded, f)
		}
	}
	return strings.Join(folded, " ")
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// EscapeLike escapes LIKE wildcards in s for use with ESCAPE '\'.
func EscapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// LikePattern builds a substring LIKE pattern for a folded term. The pattern
// must be used with ESCAPE '\'.
func LikePattern(term string) string {
	return "%" + likeEscaper.Replace(Fold(term)) + "%"
}
