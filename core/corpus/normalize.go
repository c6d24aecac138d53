package corpus

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// foldRunes maps typographic dash and quote code points to their ASCII
// equivalents so that LIKE-style comparisons are stable across input
// variants.
var foldRunes = map[rune]string{
	'‘': "'",   // left single quote
	'’': "'",   // right single quote
	'‚': "'",   // single low quote
	'‛': "'",   // single reversed quote
	'“': `"`,   // left double quote
	'”': `"`,   // right double quote
	'„': `"`,   // double low quote
	'‐': "-",   // hyphen
	'‑': "-",   // non-breaking hyphen
	'‒': "-",   // figure dash
	'–': "-",   // en dash
	'—': "-",   // em dash
	'―': "-",   // horizontal bar
	'−': "-",   // minus sign
	'…': "...", // ellipsis
	' ': " ",   // no-break space
}

// NormalizeHeading canonicalizes a heading or title for substring and
// equality filters: trim, collapse internal whitespace runs, lowercase.
// Idempotent.
func NormalizeHeading(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// NormalizeSearchText canonicalizes free text for the full-text index
// projection: NFC composition, dash/quote folding, whitespace collapse,
// trim, lowercase. Idempotent.
func NormalizeSearchText(s string) string {
	s = norm.NFC.String(s)
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if repl, ok := foldRunes[r]; ok {
			b.WriteString(repl)
			continue
		}
		b.WriteRune(r)
	}
	return strings.ToLower(strings.Join(strings.Fields(b.String()), " "))
}
