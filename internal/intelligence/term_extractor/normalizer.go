package term_extractor

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// ---------------------------------------------------------------------------
// Text normalization
// ---------------------------------------------------------------------------

var (
	// A letter, a hyphen, then a line break and another letter: a token
	// split by hyphenation.
	reHyphenBreak = regexp.MustCompile(`(\p{L})-[ \t]*\r?\n[ \t]*(\p{L})`)

	// A lowercase letter, a line break, then a lowercase fragment: possibly
	// a token split without a hyphen.
	reBareBreak = regexp.MustCompile(`(\p{Ll})\r?\n[ \t]*(\p{Ll}+)`)

	reWhitespaceRun = regexp.MustCompile(`\s+`)

	reToken = regexp.MustCompile(`\S+`)
)

// suffixFragments are word tails that appear alone after a bare mid-word
// line break. A bare break is joined without a space only when the whole
// following fragment is one of these; anything else is an ordinary
// line-wrapped word boundary.
var suffixFragments = map[string]bool{
	"ing": true, "ings": true, "ed": true, "es": true,
	"tion": true, "tions": true, "sion": true, "sions": true,
	"ment": true, "ments": true, "ness": true,
	"ity": true, "ities": true, "ers": true,
	"ly": true, "ally": true, "ical": true,
	"ous": true, "ive": true, "able": true, "ible": true,
	"ance": true, "ence": true, "ation": true, "ations": true,
	"ization": true, "izations": true, "ure": true, "ures": true,
}

// TextNormalizer cleans raw page text before any linguistic analysis. It is
// pure and never fails; Normalize is idempotent. The three stages run in a
// fixed order: line-break joining, OCR doubling repair, whitespace collapse.
// Doubling repair runs before anything downstream matches literal character
// sequences, because doubled text defeats every pattern.
type TextNormalizer struct{}

// NewTextNormalizer returns a normalizer.
func NewTextNormalizer() *TextNormalizer {
	return &TextNormalizer{}
}

// Normalize returns the cleaned text and the number of repairs applied
// (joins, de-doublings, run collapses). Whitespace collapse is not counted
// as a repair.
func (n *TextNormalizer) Normalize(text string) (string, int) {
	if text == "" {
		return "", 0
	}

	repairs := 0
	text = joinLineBreaks(text, &repairs)
	text = repairDoubling(text, &repairs)
	text = strings.TrimSpace(reWhitespaceRun.ReplaceAllString(text, " "))
	return text, repairs
}

// joinLineBreaks rejoins tokens split across line breaks. A trailing hyphen
// joins unconditionally: the hyphen is dropped when the continuation is
// lowercase ("increas-\ning" to "increasing") and kept when it is uppercase
// ("Navier-\nStokes"). A bare break joins without a space only when the
// following fragment is a recognizable word tail; otherwise it becomes an
// ordinary word boundary.
func joinLineBreaks(text string, repairs *int) string {
	text = reHyphenBreak.ReplaceAllStringFunc(text, func(match string) string {
		parts := reHyphenBreak.FindStringSubmatch(match)
		first, _ := utf8.DecodeRuneInString(parts[2])
		*repairs++
		if unicode.IsUpper(first) {
			return parts[1] + "-" + parts[2]
		}
		return parts[1] + parts[2]
	})

	text = reBareBreak.ReplaceAllStringFunc(text, func(match string) string {
		parts := reBareBreak.FindStringSubmatch(match)
		if suffixFragments[parts[2]] {
			*repairs++
			return parts[1] + parts[2]
		}
		return parts[1] + " " + parts[2]
	})

	return text
}

// repairDoubling fixes two OCR artifacts token by token: whole-token
// character doubling, possibly case-alternating ("TThhee", "Ssttiirrrreerr"),
// and letter runs of three or more ("Heeeelp"). Pair de-doubling repeats to a
// fixed point so the result is stable under re-normalization.
func repairDoubling(text string, repairs *int) string {
	return reToken.ReplaceAllStringFunc(text, func(token string) string {
		prefix, core, suffix := splitAffixes(token)
		if core == "" {
			return token
		}

		for {
			dedoubled, changed := dedoublePairs(core)
			if !changed {
				break
			}
			core = dedoubled
			*repairs++
		}

		collapsed, changed := collapseLetterRuns(core)
		if changed {
			core = collapsed
			*repairs++
		}

		return prefix + core + suffix
	})
}

// splitAffixes peels non-alphanumeric runes off both ends of a token so
// punctuation does not defeat the doubling checks.
func splitAffixes(token string) (prefix, core, suffix string) {
	start := 0
	for start < len(token) {
		r, size := utf8.DecodeRuneInString(token[start:])
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			break
		}
		start += size
	}
	end := len(token)
	for end > start {
		r, size := utf8.DecodeLastRuneInString(token[start:end])
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			break
		}
		end -= size
	}
	return token[:start], token[start:end], token[end:]
}

// dedoublePairs collapses a fully pair-doubled word, keeping the first rune
// of each pair so initial capitalization survives ("Tthhee" to "The"). It
// only fires when every adjacent pair is the same letter case-insensitively
// and the token is all letters of even length four or more, which keeps real
// words like "noon" intact.
func dedoublePairs(word string) (string, bool) {
	runes := []rune(word)
	if len(runes) < 4 || len(runes)%2 != 0 {
		return word, false
	}
	for i := 0; i < len(runes); i += 2 {
		a, b := runes[i], runes[i+1]
		if !unicode.IsLetter(a) || !unicode.IsLetter(b) {
			return word, false
		}
		if unicode.ToLower(a) != unicode.ToLower(b) {
			return word, false
		}
	}
	out := make([]rune, 0, len(runes)/2)
	for i := 0; i < len(runes); i += 2 {
		out = append(out, runes[i])
	}
	return string(out), true
}

// collapseLetterRuns shortens any run of three or more identical letters to
// a single letter. Digit runs stay: "1000" is a number, not an artifact.
func collapseLetterRuns(word string) (string, bool) {
	runes := []rune(word)
	out := make([]rune, 0, len(runes))
	changed := false

	i := 0
	for i < len(runes) {
		j := i + 1
		for j < len(runes) && runes[j] == runes[i] {
			j++
		}
		if j-i >= 3 && unicode.IsLetter(runes[i]) {
			out = append(out, runes[i])
			changed = true
		} else {
			out = append(out, runes[i:j]...)
		}
		i = j
	}
	if !changed {
		return word, false
	}
	return string(out), true
}
