package term_extractor

import (
	"regexp"
)

// Pattern-based candidate extraction. This is the fallback strategy when no
// annotator is available: plain regular expressions over normalized page
// text. It trades precision for independence from linguistic models, so its
// candidates carry a lower confidence base than noun-chunk candidates.

// ---------------------------------------------------------------------------
// Extraction patterns
// ---------------------------------------------------------------------------

var (
	// Two or more capitalized words in sequence: "Rushton Turbine",
	// "Dissolved Oxygen Probe". Single-letter words are allowed so trailing
	// designators ("Example D") survive for the validator to judge.
	reCapitalizedSeq = regexp.MustCompile(
		`[A-Z][A-Za-z]*(?: [A-Z][A-Za-z]*)+`)

	// All-caps acronyms of at least two letters, optionally with a numeric
	// tail: "PID", "OCR", "ISO9001".
	reAcronymToken = regexp.MustCompile(
		`\b[A-Z]{2,}[0-9]*\b`)

	// Hyphenated compounds led by a capitalized word: "Navier-Stokes",
	// "Gas-Liquid", "X-ray".
	reHyphenCompound = regexp.MustCompile(
		`\b[A-Z][A-Za-z]*(?:-[A-Za-z0-9]+)+\b`)
)

// extractionPatterns is ordered: sequences first so that multi-word matches
// are emitted before the acronyms they may contain.
var extractionPatterns = []*regexp.Regexp{
	reCapitalizedSeq,
	reHyphenCompound,
	reAcronymToken,
}

// ---------------------------------------------------------------------------
// Scanner
// ---------------------------------------------------------------------------

// scanPatternCandidates runs every extraction pattern over one page of
// normalized text and returns the raw matches in document order per pattern.
// Deduplication across patterns happens later, keyed by case-folded text.
func scanPatternCandidates(text string, pageNumber int) []RawCandidate {
	var out []RawCandidate
	for _, re := range extractionPatterns {
		for _, loc := range re.FindAllStringIndex(text, -1) {
			out = append(out, RawCandidate{
				Text:       text[loc[0]:loc[1]],
				PageNumber: pageNumber,
				Offset:     loc[0],
				Source:     SourcePattern,
			})
		}
	}
	return out
}
