package def_synth

import (
	"regexp"
	"strings"
)

// Definitional pattern names, in DefinitionDTO.SourcePattern vocabulary.
const (
	PatternIs            = "is"
	PatternMeans         = "means"
	PatternRefersTo      = "refers_to"
	PatternColon         = "colon"
	PatternParenthetical = "parenthetical"
	PatternFused         = "fused"
)

// ---------------------------------------------------------------------------
// Pattern table
// ---------------------------------------------------------------------------

// definitionPattern is one definitional shape with its fixed prior. The
// table is ordered by prior, so the first pattern matching a sentence is
// that sentence's best.
type definitionPattern struct {
	name  string
	prior float64
	build func(quoted string) *regexp.Regexp
	pick  func(sentence string, match []int) string
}

var definitionPatterns = []definitionPattern{
	{PatternIs, 0.95, func(q string) *regexp.Regexp {
		return regexp.MustCompile(`(?i)\b(?:(?:the|a|an)\s+)?` + q + `\s+is\s+\S`)
	}, pickSentence},
	{PatternMeans, 0.90, func(q string) *regexp.Regexp {
		return regexp.MustCompile(`(?i)\b(?:(?:the|a|an)\s+)?` + q + `\s+means\s+\S`)
	}, pickSentence},
	{PatternRefersTo, 0.90, func(q string) *regexp.Regexp {
		return regexp.MustCompile(`(?i)\b(?:(?:the|a|an)\s+)?` + q + `\s+refers\s+to\s+\S`)
	}, pickSentence},
	{PatternColon, 0.85, func(q string) *regexp.Regexp {
		return regexp.MustCompile(`(?i)\b` + q + `\s*:\s*(\S[^\n]*)`)
	}, pickCapture},
	{PatternParenthetical, 0.75, func(q string) *regexp.Regexp {
		return regexp.MustCompile(`(?i)\b` + q + `\s*\(([^)]+)\)`)
	}, pickCapture},
}

// compiledPattern is a definitionPattern bound to one term.
type compiledPattern struct {
	name  string
	prior float64
	re    *regexp.Regexp
	pick  func(sentence string, match []int) string
}

func buildTermPatterns(term string) []compiledPattern {
	quoted := regexp.QuoteMeta(term)
	out := make([]compiledPattern, len(definitionPatterns))
	for i, p := range definitionPatterns {
		out[i] = compiledPattern{
			name:  p.name,
			prior: p.prior,
			re:    p.build(quoted),
			pick:  p.pick,
		}
	}
	return out
}

func pickSentence(sentence string, _ []int) string {
	return strings.TrimSpace(sentence)
}

func pickCapture(sentence string, match []int) string {
	if len(match) < 4 || match[2] < 0 {
		return strings.TrimSpace(sentence)
	}
	return strings.TrimSpace(sentence[match[2]:match[3]])
}

// ---------------------------------------------------------------------------
// Snippet density lexicons
// ---------------------------------------------------------------------------

// copulaWords signal defining language inside a context window. Each hit
// counts double in the density score.
var copulaWords = map[string]bool{
	"is": true, "are": true, "was": true, "were": true, "be": true,
	"means": true, "denotes": true, "describes": true, "defines": true,
	"refers": true, "represents": true, "consists": true, "comprises": true,
	"constitutes": true, "measures": true, "indicates": true,
}

// domainVocabulary marks content-bearing technical words for the density
// score. Deliberately generic so it works across subject areas.
var domainVocabulary = map[string]bool{
	"system": true, "process": true, "method": true, "device": true,
	"rate": true, "ratio": true, "coefficient": true, "parameter": true,
	"value": true, "measurement": true, "concentration": true,
	"temperature": true, "pressure": true, "volume": true, "mass": true,
	"energy": true, "power": true, "speed": true, "velocity": true,
	"time": true, "model": true, "unit": true, "phase": true,
	"liquid": true, "gas": true, "fluid": true, "flow": true,
	"transfer": true, "mixing": true, "reactor": true, "vessel": true,
	"tank": true, "sensor": true, "probe": true, "control": true,
	"controller": true, "signal": true, "sample": true, "solution": true,
	"surface": true, "volume-averaged": true, "gradient": true,
	"capacity": true, "efficiency": true, "yield": true, "density": true,
	"viscosity": true, "diameter": true, "impeller": true, "turbine": true,
}

// densityScore rates how information-dense a context window is: two points
// per defining verb, one per technical content word.
func densityScore(window string) int {
	score := 0
	for _, field := range strings.Fields(strings.ToLower(window)) {
		word := strings.Trim(field, ".,;:()[]{}\"'")
		if copulaWords[word] {
			score += 2
			continue
		}
		if domainVocabulary[word] {
			score++
		}
	}
	return score
}
