package text_annotator

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// ---------------------------------------------------------------------------
// Sentence segmentation
// ---------------------------------------------------------------------------

// Abbreviations whose trailing period does not end a sentence. Lowercased,
// period stripped.
var abbreviations = map[string]bool{
	"e.g": true, "eg": true,
	"i.e": true, "ie": true,
	"etc":    true,
	"cf":     true,
	"ca":     true,
	"approx": true,
	"fig":    true,
	"figs":   true,
	"eq":     true,
	"eqs":    true,
	"ref":    true,
	"refs":   true,
	"sec":    true,
	"al":     true,
	"et":     true,
	"vs":     true,
	"no":     true,
	"nos":    true,
	"vol":    true,
	"pp":     true,
	"dr":     true,
	"mr":     true,
	"mrs":    true,
	"ms":     true,
	"prof":   true,
	"resp":   true,
	"min":    true,
	"max":    true,
}

// sentenceSpan is a half-open byte range of one sentence within the
// annotation text.
type sentenceSpan struct {
	Start int
	End   int
}

// splitSentences finds sentence boundaries at '.', '!' and '?'. A period is
// only a boundary when the word before it is not a known abbreviation or a
// single initial, and the character after the trailing whitespace starts a
// new sentence (uppercase, digit, or opening bracket/quote). Runs of
// terminators ("?!") and closing quotes or brackets stay with the sentence
// they end.
func splitSentences(text string) []sentenceSpan {
	spans := make([]sentenceSpan, 0, 8)

	start := 0
	i := 0
	for i < len(text) {
		r, size := utf8.DecodeRuneInString(text[i:])
		if r != '.' && r != '!' && r != '?' {
			i += size
			continue
		}

		end := i + size
		// Absorb terminator runs and trailing closers.
		for end < len(text) {
			r2, size2 := utf8.DecodeRuneInString(text[end:])
			if r2 == '.' || r2 == '!' || r2 == '?' || r2 == ')' || r2 == ']' || r2 == '"' || r2 == '\'' || r2 == '”' || r2 == '’' {
				end += size2
				continue
			}
			break
		}

		if r == '.' && !periodEndsSentence(text, start, i, end) {
			i = end
			continue
		}

		if span, ok := trimSpan(text, start, end); ok {
			spans = append(spans, span)
		}
		start = end
		i = end
	}

	if span, ok := trimSpan(text, start, len(text)); ok {
		spans = append(spans, span)
	}

	return spans
}

// periodEndsSentence applies the abbreviation and lookahead checks for a
// period at position dot; end is the position just past the terminator run.
func periodEndsSentence(text string, sentenceStart, dot, end int) bool {
	word := lastWordBefore(text[sentenceStart:dot])

	if abbreviations[strings.ToLower(word)] {
		return false
	}
	// A single capital letter is an initial ("J. Smith"), not a sentence end.
	if utf8.RuneCountInString(word) == 1 {
		r, _ := utf8.DecodeRuneInString(word)
		if unicode.IsUpper(r) {
			return false
		}
	}
	// Dotted acronyms ("U.S.A.") keep their interior periods.
	if strings.Contains(word, ".") && isDottedAcronym(word) {
		return false
	}
	// "3.5" and section numbers like "5.4" keep their periods.
	if word != "" && isAllDigits(word) && nextRuneIsDigit(text[end:]) {
		return false
	}

	return nextStartsSentence(text[end:])
}

func lastWordBefore(s string) string {
	s = strings.TrimRight(s, " \t\n\r")
	idx := strings.LastIndexFunc(s, func(r rune) bool {
		return unicode.IsSpace(r) || r == '(' || r == '[' || r == '"'
	})
	word := s[idx+1:]
	// Keep interior periods ("e.g") but drop other wrapping punctuation.
	return strings.Trim(word, ",;:'")
}

func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

func isDottedAcronym(s string) bool {
	sawLetter := false
	for _, r := range s {
		switch {
		case r == '.':
		case unicode.IsUpper(r):
			sawLetter = true
		default:
			return false
		}
	}
	return sawLetter
}

func nextRuneIsDigit(rest string) bool {
	r, _ := utf8.DecodeRuneInString(rest)
	return unicode.IsDigit(r)
}

// nextStartsSentence reports whether rest, after leading whitespace, begins
// like a new sentence. End of text counts.
func nextStartsSentence(rest string) bool {
	for len(rest) > 0 {
		r, size := utf8.DecodeRuneInString(rest)
		if unicode.IsSpace(r) {
			rest = rest[size:]
			continue
		}
		return unicode.IsUpper(r) || unicode.IsDigit(r) || r == '(' || r == '[' || r == '"' || r == '“'
	}
	return true
}

// trimSpan narrows [start,end) to its non-whitespace extent.
func trimSpan(text string, start, end int) (sentenceSpan, bool) {
	for start < end {
		r, size := utf8.DecodeRuneInString(text[start:end])
		if !unicode.IsSpace(r) {
			break
		}
		start += size
	}
	for end > start {
		r, size := utf8.DecodeLastRuneInString(text[start:end])
		if !unicode.IsSpace(r) {
			break
		}
		end -= size
	}
	if start >= end {
		return sentenceSpan{}, false
	}
	return sentenceSpan{Start: start, End: end}, true
}
