package term_extractor

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/lexforge/TermForge-Intelligence/internal/intelligence/common"
	"github.com/lexforge/TermForge-Intelligence/pkg/errors"
)

// TermValidator runs every raw candidate through an ordered rule chain.
// Rules run in a fixed order because later rules assume earlier repairs:
// article stripping happens before the stopword and length checks. Every
// rule is evaluated so a verdict carries all triggered reasons, but the
// first rejecting rule is the one that decides the outcome.

// ---------------------------------------------------------------------------
// Compiled regexes
// ---------------------------------------------------------------------------

var (
	reNumericOnly     = regexp.MustCompile(`^\d+%?$`)
	reSectionHeading  = regexp.MustCompile(`^\d+(\.\d+)*\s`)
	reCitationRange   = regexp.MustCompile(`\[\d+(?:\s*[-–,]\s*\d+)*\]`)
	reAuthorLastFirst = regexp.MustCompile(`^[A-Z][a-z]+,? [A-Z]\.$`)
	reAuthorFirstLast = regexp.MustCompile(`^[A-Z]\. [A-Z][a-z]+$`)
	reAllowListedWord = regexp.MustCompile(`^[A-Z0-9][A-Z0-9.\-]*$`)
)

// scriptByLanguage maps a declared document language to the script its
// candidates are expected to be written in.
var scriptByLanguage = map[string]*unicode.RangeTable{
	"en": unicode.Latin,
}

// ---------------------------------------------------------------------------
// Rule chain
// ---------------------------------------------------------------------------

// candidateState is the mutable view of one candidate as it moves through
// the chain. Repairing rules rewrite text; rejecting rules only read it.
type candidateState struct {
	original string
	text     string
	source   CandidateSource
	repairs  []RepairCode
}

func (s *candidateState) wordsLower() []string {
	fields := strings.Fields(s.text)
	words := make([]string, len(fields))
	for i, f := range fields {
		words[i] = strings.ToLower(f)
	}
	return words
}

// validationRule pairs a predicate with the reason code it emits. The chain
// is a flat ordered list rather than nested conditionals so the ordering is
// explicit and each rule is testable on its own.
type validationRule struct {
	code  ReasonCode
	check func(v *TermValidator, s *candidateState) bool
}

var ruleChain = []validationRule{
	{ReasonNumericOnly, (*TermValidator).checkNumericOnly},
	{ReasonEmptyAfterStrip, (*TermValidator).stripLeadingArticles},
	{ReasonQuestionLeader, (*TermValidator).checkQuestionLeader},
	{ReasonComparativeLeader, (*TermValidator).checkComparativeLeader},
	{ReasonQuantifierPhrase, (*TermValidator).checkQuantifierPhrase},
	{ReasonBoundMorpheme, (*TermValidator).checkBoundMorpheme},
	{ReasonLowercaseFragment, (*TermValidator).checkLowercaseFragment},
	{ReasonSectionHeading, (*TermValidator).checkSectionHeading},
	{ReasonEquationFragment, (*TermValidator).checkEquationFragment},
	{ReasonCitationArtifact, (*TermValidator).checkCitationArtifact},
	{ReasonAuthorName, (*TermValidator).checkAuthorName},
	{ReasonEmbeddedLineBreak, (*TermValidator).checkEmbeddedLineBreak},
	{ReasonExcessSymbols, (*TermValidator).checkSymbolRatio},
	{ReasonRepeatedCharacters, (*TermValidator).checkRepeatedCharacters},
	{ReasonTooManyWords, (*TermValidator).checkWordCount},
	{ReasonAllStopwords, (*TermValidator).checkAllStopwords},
	{ReasonScriptMismatch, (*TermValidator).checkScriptMismatch},
}

// ---------------------------------------------------------------------------
// Validator
// ---------------------------------------------------------------------------

type TermValidator struct {
	config  Config
	logger  common.Logger
	metrics common.IntelligenceMetrics

	articles       map[string]bool
	interrogatives map[string]bool
	comparatives   map[string]bool
	quantifiers    map[string]bool
	generics       map[string]bool
	stopwords      map[string]bool
	expectedScript *unicode.RangeTable
}

// NewTermValidator builds a validator for the configured language. The
// language must have a full set of lexicons compiled in.
func NewTermValidator(config Config, logger common.Logger, metrics common.IntelligenceMetrics) (*TermValidator, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if !hasLexicons(config.Language) {
		return nil, errors.Newf(errors.ErrCodePipelineConfigInvalid,
			"no validation lexicons for language %q", config.Language)
	}
	script, ok := scriptByLanguage[config.Language]
	if !ok {
		return nil, errors.Newf(errors.ErrCodePipelineConfigInvalid,
			"no script table for language %q", config.Language)
	}
	if logger == nil {
		logger = common.NewNoopLogger()
	}
	if metrics == nil {
		metrics = common.NewNoopIntelligenceMetrics()
	}

	articles, _ := lexiconFor(stripArticles, config.Language)
	interrogatives, _ := lexiconFor(interrogativeLeaders, config.Language)
	comparatives, _ := lexiconFor(comparativeLeaders, config.Language)
	quantifiers, _ := lexiconFor(quantifierLeaders, config.Language)
	generics, _ := lexiconFor(genericNouns, config.Language)
	stopwords, _ := lexiconFor(stopwordSets, config.Language)

	return &TermValidator{
		config:         config,
		logger:         logger,
		metrics:        metrics,
		articles:       articles,
		interrogatives: interrogatives,
		comparatives:   comparatives,
		quantifiers:    quantifiers,
		generics:       generics,
		stopwords:      stopwords,
		expectedScript: script,
	}, nil
}

// Validate runs the full rule chain over one candidate. It never panics: a
// rule blowing up rejects that candidate with VALIDATION_INTERNAL and the
// document continues.
func (v *TermValidator) Validate(ctx context.Context, candidate RawCandidate) Verdict {
	verdict := v.runChain(candidate)
	for _, reason := range verdict.Reasons {
		v.metrics.RecordRejection(ctx, string(reason))
	}
	if !verdict.Accepted {
		v.logger.Debug("candidate rejected",
			"candidate", candidate.Text,
			"source", string(candidate.Source),
			"reasons", reasonStrings(verdict.Reasons))
	}
	return verdict
}

func (v *TermValidator) runChain(candidate RawCandidate) (verdict Verdict) {
	s := &candidateState{
		original: candidate.Text,
		text:     candidate.Text,
		source:   candidate.Source,
	}

	defer func() {
		if r := recover(); r != nil {
			verdict = Verdict{
				Accepted:       false,
				CleanedText:    s.text,
				Reasons:        append(verdict.Reasons, ReasonValidationInternal),
				RepairsApplied: s.repairs,
			}
			v.logger.Error("validation rule panicked",
				"candidate", candidate.Text,
				"panic", fmt.Sprint(r))
		}
	}()

	// Collapse whitespace runs up front so every rule sees one-space word
	// separation. Line breaks are judged against the original text.
	collapsed := strings.Join(strings.Fields(s.text), " ")
	if collapsed != s.text {
		s.text = collapsed
		s.repairs = append(s.repairs, RepairWhitespaceTrimmed)
	}

	var reasons []ReasonCode
	for _, rule := range ruleChain {
		if rule.check(v, s) {
			reasons = append(reasons, rule.code)
		}
	}

	verdict = Verdict{
		Accepted:       len(reasons) == 0,
		CleanedText:    s.text,
		Reasons:        reasons,
		RepairsApplied: s.repairs,
	}
	return verdict
}

// ---------------------------------------------------------------------------
// Rules, in chain order
// ---------------------------------------------------------------------------

// checkNumericOnly rejects pure numbers, percentages, and digit-heavy text.
func (v *TermValidator) checkNumericOnly(s *candidateState) bool {
	if reNumericOnly.MatchString(s.text) {
		return true
	}
	var digits, total int
	for _, r := range s.text {
		if unicode.IsSpace(r) {
			continue
		}
		total++
		if unicode.IsDigit(r) {
			digits++
		}
	}
	return total > 0 && float64(digits)/float64(total) > v.config.MaxDigitRatio
}

// stripLeadingArticles removes leading articles and demonstratives, recording
// one repair per stripped token, then rejects if almost nothing remains.
func (v *TermValidator) stripLeadingArticles(s *candidateState) bool {
	for {
		fields := strings.Fields(s.text)
		if len(fields) == 0 {
			break
		}
		if !v.articles[strings.ToLower(fields[0])] {
			break
		}
		s.text = strings.Join(fields[1:], " ")
		s.repairs = append(s.repairs, RepairArticleStripped)
	}
	return utf8.RuneCountInString(s.text) <= 1
}

func (v *TermValidator) checkQuestionLeader(s *candidateState) bool {
	words := s.wordsLower()
	return len(words) > 0 && v.interrogatives[words[0]]
}

func (v *TermValidator) checkComparativeLeader(s *candidateState) bool {
	words := s.wordsLower()
	return len(words) > 0 && v.comparatives[words[0]]
}

// checkQuantifierPhrase rejects a quantifier leading a generic noun: "several
// ways", "many things". A quantifier before a content noun passes and is
// judged by the remaining rules.
func (v *TermValidator) checkQuantifierPhrase(s *candidateState) bool {
	words := s.wordsLower()
	return len(words) >= 2 && v.quantifiers[words[0]] && v.generics[words[1]]
}

// checkBoundMorpheme rejects candidates that are nothing but a suffix split
// off a longer word.
func (v *TermValidator) checkBoundMorpheme(s *candidateState) bool {
	return boundMorphemes[strings.ToLower(s.text)]
}

// checkLowercaseFragment rejects lowercase-start candidates from sources
// that promise capitalization. Noun chunks legitimately yield lowercase
// terms ("mixing time"), so they are exempt.
func (v *TermValidator) checkLowercaseFragment(s *candidateState) bool {
	if s.source == SourceNounChunk {
		return false
	}
	r, _ := utf8.DecodeRuneInString(s.text)
	return unicode.IsLower(r)
}

func (v *TermValidator) checkSectionHeading(s *candidateState) bool {
	return reSectionHeading.MatchString(s.text)
}

func (v *TermValidator) checkEquationFragment(s *candidateState) bool {
	return strings.ContainsAny(s.text, "=≈≠≤≥")
}

func (v *TermValidator) checkCitationArtifact(s *candidateState) bool {
	return reCitationRange.MatchString(s.text)
}

func (v *TermValidator) checkAuthorName(s *candidateState) bool {
	if reAuthorLastFirst.MatchString(s.text) || reAuthorFirstLast.MatchString(s.text) {
		return true
	}
	lower := strings.ToLower(s.text)
	return strings.Contains(lower, " et al") || strings.HasPrefix(lower, "et al")
}

// checkEmbeddedLineBreak rejects candidates where a line break or control
// character survived normalization. Judged on the original text because the
// whitespace pre-pass has already collapsed it away in the working copy.
func (v *TermValidator) checkEmbeddedLineBreak(s *candidateState) bool {
	for _, r := range s.original {
		if r == '\n' || r == '\r' || (unicode.IsControl(r) && r != '\t') {
			return true
		}
	}
	return false
}

func (v *TermValidator) checkSymbolRatio(s *candidateState) bool {
	var symbols, total int
	for _, r := range s.text {
		if unicode.IsSpace(r) {
			continue
		}
		total++
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			continue
		}
		if r == '-' || r == '\'' || r == '’' {
			continue
		}
		symbols++
	}
	return total > 0 && float64(symbols)/float64(total) > v.config.MaxSymbolRatio
}

// checkRepeatedCharacters rejects glyph-level OCR noise: runs of the same
// lowercase letter or symbol, and words that are pairwise-doubled copies of
// a real word. Uppercase runs (acronyms like WWW) and digit runs (1000) are
// legitimate.
func (v *TermValidator) checkRepeatedCharacters(s *candidateState) bool {
	var prev rune
	run := 0
	for _, r := range s.text {
		if r == prev {
			run++
		} else {
			prev, run = r, 1
		}
		if run >= 3 && !unicode.IsUpper(r) && !unicode.IsDigit(r) && !unicode.IsSpace(r) {
			return true
		}
	}
	for _, word := range strings.Fields(s.text) {
		if _, changed := dedoublePairs(word); changed {
			return true
		}
	}
	return false
}

func (v *TermValidator) checkWordCount(s *candidateState) bool {
	return len(strings.Fields(s.text)) > v.config.MaxWordCount
}

// checkAllStopwords rejects candidates whose every word, after repairs, is a
// stopword: "Additional Way", "With Respect To".
func (v *TermValidator) checkAllStopwords(s *candidateState) bool {
	words := s.wordsLower()
	if len(words) == 0 {
		return false
	}
	for _, w := range words {
		if !v.stopwords[w] {
			return false
		}
	}
	return true
}

// checkScriptMismatch rejects candidates dominated by letters outside the
// declared language's script. All-caps acronyms and standards codes pass
// regardless.
func (v *TermValidator) checkScriptMismatch(s *candidateState) bool {
	if v.scriptAllowListed(s.text) {
		return false
	}
	var foreign, total int
	for _, r := range s.text {
		if !unicode.IsLetter(r) {
			continue
		}
		total++
		if !unicode.Is(v.expectedScript, r) {
			foreign++
		}
	}
	return total > 0 && foreign*2 > total
}

func (v *TermValidator) scriptAllowListed(text string) bool {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return false
	}
	for _, f := range fields {
		if !reAllowListedWord.MatchString(f) {
			return false
		}
	}
	return true
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func reasonStrings(reasons []ReasonCode) []string {
	out := make([]string, len(reasons))
	for i, r := range reasons {
		out[i] = string(r)
	}
	return out
}
