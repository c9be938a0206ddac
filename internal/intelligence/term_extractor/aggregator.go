package term_extractor

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/lexforge/TermForge-Intelligence/pkg/types/document"
	"github.com/lexforge/TermForge-Intelligence/pkg/types/glossary"
)

// FrequencyAggregator turns accepted candidates into terms. Candidates are
// grouped by canonical text (the case-folded cleaned form), then every page
// is re-scanned for case-insensitive, word-bounded occurrences, because the
// extractor only reports the first occurrence per surface form. Counting
// scope is a single call; nothing is shared across documents.
type FrequencyAggregator struct {
	config Config
	method glossary.ExtractionMethod
}

func NewFrequencyAggregator(config Config, method glossary.ExtractionMethod) *FrequencyAggregator {
	return &FrequencyAggregator{config: config, method: method}
}

// Aggregate computes frequency, page list, context windows and confidence
// for every candidate group, drops groups below the frequency gate, and
// returns terms ordered by canonical text.
func (a *FrequencyAggregator) Aggregate(pages []document.PageText, accepted []AcceptedCandidate) []Term {
	type group struct {
		display string
		headPOS string
		repairs int
		first   RawCandidate
	}

	groups := make(map[string]*group, len(accepted))
	for _, ac := range accepted {
		canon := strings.ToLower(ac.Verdict.CleanedText)
		if canon == "" {
			continue
		}
		g, ok := groups[canon]
		if !ok {
			groups[canon] = &group{
				display: ac.Verdict.CleanedText,
				headPOS: ac.Candidate.HeadPOS,
				repairs: len(ac.Verdict.RepairsApplied),
				first:   ac.Candidate,
			}
			continue
		}
		// The same canonical term reached here through several surface
		// forms. Keep the least-repaired evidence and fill a missing head.
		if n := len(ac.Verdict.RepairsApplied); n < g.repairs {
			g.repairs = n
		}
		if g.headPOS == "" {
			g.headPOS = ac.Candidate.HeadPOS
		}
	}

	canons := make([]string, 0, len(groups))
	for canon := range groups {
		canons = append(canons, canon)
	}
	sort.Strings(canons)

	terms := make([]Term, 0, len(canons))
	for _, canon := range canons {
		g := groups[canon]

		var occurrences []Occurrence
		pageSet := make(map[int]bool)
		for _, page := range pages {
			for _, span := range findOccurrences(page.Text, canon) {
				occurrences = append(occurrences, Occurrence{
					PageNumber: page.PageNumber,
					Offset:     span[0],
					Context:    contextWindow(page.Text, span[0], span[1], a.config.ContextWindowChars),
				})
				pageSet[page.PageNumber] = true
			}
		}
		if len(occurrences) == 0 {
			// The surface form the extractor saw no longer matches the page
			// text verbatim. The candidate still occurred once.
			occurrences = []Occurrence{{
				PageNumber: g.first.PageNumber,
				Offset:     g.first.Offset,
			}}
			pageSet[g.first.PageNumber] = true
		}

		frequency := len(occurrences)
		if frequency < a.config.MinFrequency {
			continue
		}

		pageNumbers := make([]int, 0, len(pageSet))
		for p := range pageSet {
			pageNumbers = append(pageNumbers, p)
		}
		sort.Ints(pageNumbers)

		terms = append(terms, Term{
			Text:        g.display,
			Frequency:   frequency,
			Pages:       pageNumbers,
			Occurrences: occurrences,
			Confidence:  a.confidence(frequency, g.repairs),
			Method:      a.method,
			HeadPOS:     g.headPOS,
		})
	}
	return terms
}

// confidence blends the extraction method's base trust, a frequency factor
// and a repair penalty, clamped to [0,1]. Linguistic candidates start higher
// than pattern candidates; more occurrences raise trust up to a ceiling;
// every repair the validator applied lowers it.
func (a *FrequencyAggregator) confidence(frequency, repairs int) float64 {
	base := 0.9
	if a.method == glossary.MethodPattern {
		base = 0.7
	}
	frequencyFactor := 0.6 + 0.2*float64(frequency)
	if frequencyFactor > 1.0 {
		frequencyFactor = 1.0
	}
	c := base * frequencyFactor * (1.0 - 0.1*float64(repairs))
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}

// ---------------------------------------------------------------------------
// Occurrence scanning
// ---------------------------------------------------------------------------

// findOccurrences returns the byte spans of case-insensitive, word-bounded
// matches of needle in text. The needle must already be lowercase. Matching
// folds rune by rune over the original text so byte offsets stay exact.
func findOccurrences(text, needle string) [][2]int {
	needleRunes := []rune(needle)
	if len(needleRunes) == 0 {
		return nil
	}

	var spans [][2]int
	for i := 0; i < len(text); {
		r, size := utf8.DecodeRuneInString(text[i:])
		if unicode.ToLower(r) != needleRunes[0] || !boundaryBefore(text, i) {
			i += size
			continue
		}
		end, ok := matchFold(text, i, needleRunes)
		if ok && boundaryAfter(text, end) {
			spans = append(spans, [2]int{i, end})
			i = end
			continue
		}
		i += size
	}
	return spans
}

// matchFold reports whether text starting at i case-folds to needleRunes,
// returning the byte offset just past the match.
func matchFold(text string, i int, needleRunes []rune) (int, bool) {
	for _, want := range needleRunes {
		if i >= len(text) {
			return 0, false
		}
		r, size := utf8.DecodeRuneInString(text[i:])
		if unicode.ToLower(r) != want {
			return 0, false
		}
		i += size
	}
	return i, true
}

func boundaryBefore(text string, i int) bool {
	if i == 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(text[:i])
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}

func boundaryAfter(text string, end int) bool {
	if end >= len(text) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(text[end:])
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}

// contextWindow slices a rune-safe window of roughly width runes around the
// span, half before and half after, without splitting multi-byte runes.
func contextWindow(text string, start, end, width int) string {
	half := width / 2

	left := start
	for n := 0; n < half && left > 0; n++ {
		_, size := utf8.DecodeLastRuneInString(text[:left])
		left -= size
	}
	right := end
	for n := 0; n < half && right < len(text); n++ {
		_, size := utf8.DecodeRuneInString(text[right:])
		right += size
	}
	return strings.TrimSpace(text[left:right])
}
