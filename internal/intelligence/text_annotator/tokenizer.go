package text_annotator

import (
	"unicode"
	"unicode/utf8"

	"github.com/lexforge/TermForge-Intelligence/internal/intelligence/common"
)

// ---------------------------------------------------------------------------
// Tokenization
// ---------------------------------------------------------------------------

// tokenize splits text into word and punctuation tokens. Offsets are byte
// positions relative to the start of text, shifted by base so they index the
// enclosing annotation text. Hyphens and apostrophes between alphanumerics
// stay inside the word ("gas-liquid", "reactor's"); every other
// non-alphanumeric rune becomes its own token.
func tokenize(text string, base int) []common.Token {
	tokens := make([]common.Token, 0, len(text)/5+1)

	i := 0
	for i < len(text) {
		r, size := utf8.DecodeRuneInString(text[i:])

		switch {
		case unicode.IsSpace(r):
			i += size

		case unicode.IsLetter(r) || unicode.IsDigit(r):
			start := i
			i += size
			for i < len(text) {
				r2, size2 := utf8.DecodeRuneInString(text[i:])
				if unicode.IsLetter(r2) || unicode.IsDigit(r2) {
					i += size2
					continue
				}
				if (r2 == '-' || r2 == '\'' || r2 == '’') && joinsWord(text[i+size2:]) {
					i += size2
					continue
				}
				break
			}
			tokens = append(tokens, common.Token{
				Text:  text[start:i],
				Start: base + start,
				End:   base + i,
			})

		default:
			tokens = append(tokens, common.Token{
				Text:  text[i : i+size],
				Start: base + i,
				End:   base + i + size,
			})
			i += size
		}
	}

	return tokens
}

// joinsWord reports whether rest begins with a rune that continues a word,
// which is what lets "state-of" keep its hyphen but leaves a trailing
// hyphen out.
func joinsWord(rest string) bool {
	if rest == "" {
		return false
	}
	r, _ := utf8.DecodeRuneInString(rest)
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

// isSymbolRune separates math and currency symbols from ordinary
// punctuation for tagging.
func isSymbolRune(r rune) bool {
	switch r {
	case '=', '+', '<', '>', '%', '$', '#', '&', '*', '/', '\\', '^', '|', '~', '×', '÷', '±', '≤', '≥', '≈', '°':
		return true
	}
	return unicode.IsSymbol(r)
}
