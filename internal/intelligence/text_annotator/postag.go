package text_annotator

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/lexforge/TermForge-Intelligence/internal/intelligence/common"
)

// ---------------------------------------------------------------------------
// Closed-class lexicons
// ---------------------------------------------------------------------------

var determinerWords = map[string]bool{
	"the": true, "a": true, "an": true,
	"this": true, "that": true, "these": true, "those": true,
	"each": true, "every": true, "either": true, "neither": true,
	"all": true, "any": true, "some": true, "both": true,
	"many": true, "various": true, "several": true, "few": true,
	"much": true, "no": true, "another": true, "such": true,
}

var pronounWords = map[string]bool{
	"it": true, "its": true, "he": true, "she": true, "they": true,
	"we": true, "you": true, "i": true, "them": true, "him": true,
	"her": true, "us": true, "me": true, "who": true, "whom": true,
	"what": true, "which": true, "whose": true, "itself": true,
	"themselves": true, "one": true, "something": true, "anything": true,
}

var adpositionWords = map[string]bool{
	"in": true, "on": true, "at": true, "by": true, "for": true,
	"with": true, "from": true, "of": true, "into": true, "within": true,
	"through": true, "during": true, "under": true, "over": true,
	"between": true, "across": true, "against": true, "about": true,
	"above": true, "below": true, "along": true, "among": true,
	"around": true, "behind": true, "beyond": true, "near": true,
	"onto": true, "per": true, "toward": true, "towards": true,
	"upon": true, "via": true, "without": true, "throughout": true,
	"inside": true, "outside": true, "after": true, "before": true,
	"since": true, "until": true,
}

var conjunctionWords = map[string]bool{
	"and": true, "or": true, "but": true, "nor": true, "so": true, "yet": true,
}

var subordinatorWords = map[string]bool{
	"because": true, "although": true, "though": true, "while": true,
	"whereas": true, "if": true, "unless": true, "when": true,
	"where": true, "whenever": true, "wherever": true, "as": true,
	"than": true, "whether": true, "why": true, "how": true,
}

var auxiliaryWords = map[string]bool{
	"is": true, "are": true, "was": true, "were": true,
	"be": true, "been": true, "being": true, "am": true,
	"has": true, "have": true, "had": true, "having": true,
	"do": true, "does": true, "did": true,
	"can": true, "could": true, "will": true, "would": true,
	"shall": true, "should": true, "may": true, "might": true, "must": true,
}

var particleWords = map[string]bool{
	"to": true, "not": true, "n't": true,
}

// verbWords are frequent technical-prose verbs in their common inflections.
// The suffix rules below catch the regular forms this list misses.
var verbWords = map[string]bool{
	"use": true, "uses": true, "used": true, "using": true,
	"utilize": true, "utilizes": true, "utilized": true,
	"measure": true, "measures": true, "measured": true,
	"monitor": true, "monitors": true, "monitored": true,
	"produce": true, "produces": true, "produced": true,
	"generate": true, "generates": true, "generated": true,
	"affect": true, "affects": true, "affected": true,
	"influence": true, "influences": true, "influenced": true,
	"require": true, "requires": true, "required": true,
	"need": true, "needs": true, "needed": true,
	"control": true, "controls": true, "controlled": true,
	"regulate": true, "regulates": true, "regulated": true,
	"define": true, "defines": true, "defined": true,
	"specify": true, "specifies": true, "specified": true,
	"determine": true, "determines": true, "determined": true,
	"rotate": true, "rotates": true, "rotated": true,
	"add": true, "adds": true, "added": true,
	"contain": true, "contains": true, "contained": true,
	"include": true, "includes": true, "included": true,
	"provide": true, "provides": true, "provided": true,
	"show": true, "shows": true, "shown": true, "showed": true,
	"consist": true, "consists": true, "consisted": true,
	"depend": true, "depends": true, "depended": true,
	"operate": true, "operates": true, "operated": true,
	"perform": true, "performs": true, "performed": true,
	"calculate": true, "calculates": true, "calculated": true,
	"describe": true, "describes": true, "described": true,
	"denote": true, "denotes": true, "denoted": true,
	"represent": true, "represents": true, "represented": true,
	"indicate": true, "indicates": true, "indicated": true,
	"maintain": true, "maintains": true, "maintained": true,
	"check": true, "checks": true, "checked": true,
	"apply": true, "applies": true, "applied": true,
	"occur": true, "occurs": true, "occurred": true,
	"increase": true, "increases": true, "increased": true,
	"decrease": true, "decreases": true, "decreased": true,
	"remain": true, "remains": true, "remained": true,
	"result": true, "results": true, "resulted": true,
	"yield": true, "yields": true, "yielded": true,
	"enable": true, "enables": true, "enabled": true,
	"allow": true, "allows": true, "allowed": true,
	"obtain": true, "obtains": true, "obtained": true,
	"transfer": true, "transfers": true, "transferred": true,
	"feed": true, "feeds": true, "fed": true,
	"supply": true, "supplies": true, "supplied": true,
	"hold": true, "holds": true, "held": true,
	"read": true, "reads": true,
	"sit": true, "sits": true,
	"stir": true, "stirs": true, "stirred": true,
	"drain": true, "drains": true, "drained": true,
}

var adverbWords = map[string]bool{
	"very": true, "quite": true, "rather": true, "too": true,
	"also": true, "then": true, "thus": true, "hence": true,
	"however": true, "therefore": true, "often": true, "usually": true,
	"typically": true, "here": true, "there": true, "now": true,
	"always": true, "never": true, "still": true, "again": true,
	"further": true, "more": true, "less": true, "most": true,
	"least": true, "well": true, "together": true, "only": true,
	"quickly": true, "slowly": true,
}

var adjectiveWords = map[string]bool{
	"high": true, "low": true, "large": true, "small": true,
	"higher": true, "lower": true, "larger": true, "smaller": true,
	"new": true, "old": true, "good": true, "best": true, "better": true,
	"first": true, "second": true, "third": true, "last": true,
	"other": true, "same": true, "different": true, "additional": true,
	"main": true, "common": true, "important": true, "optimal": true,
	"maximum": true, "minimum": true, "total": true, "overall": true,
	"constant": true, "variable": true, "typical": true,
	"long": true, "short": true, "wide": true, "narrow": true,
	"fast": true, "slow": true, "stable": true,
}

var numberWords = map[string]bool{
	"zero": true, "two": true, "three": true, "four": true,
	"five": true, "six": true, "seven": true, "eight": true, "nine": true,
	"ten": true, "hundred": true, "thousand": true, "million": true,
}

// ---------------------------------------------------------------------------
// Tagging
// ---------------------------------------------------------------------------

var nounSuffixes = []string{
	"tion", "tions", "sion", "sions", "ment", "ments", "ness",
	"ity", "ities", "ance", "ances", "ence", "ences", "ism",
	"ysis", "yses", "ure", "ures", "ology", "meter", "metry",
}

var adjectiveSuffixes = []string{
	"ous", "ive", "ical", "able", "ible", "ant", "ent", "ful", "less", "ary",
}

// tagTokens assigns a part of speech to every token in place. The tagger is
// a lexicon-plus-suffix heuristic: closed classes come from word lists,
// capitalization away from the sentence start marks proper nouns, regular
// morphology covers verbs, adverbs and adjectives, and nouns are the
// default. sentenceStart is the byte offset of the sentence's first token.
func tagTokens(tokens []common.Token, sentenceStart int) {
	for i := range tokens {
		tokens[i].POS = tagOne(tokens[i], tokens[i].Start == sentenceStart)
	}
}

func tagOne(tok common.Token, sentenceInitial bool) string {
	text := tok.Text
	if text == "" {
		return common.POSOther
	}

	first, _ := utf8.DecodeRuneInString(text)
	if !unicode.IsLetter(first) && !unicode.IsDigit(first) {
		if isSymbolRune(first) {
			return common.POSSymbol
		}
		return common.POSPunct
	}

	if isNumericToken(text) {
		return common.POSNumeral
	}

	lower := strings.ToLower(text)
	switch {
	case determinerWords[lower]:
		return common.POSDeterminer
	case pronounWords[lower]:
		return common.POSPronoun
	case adpositionWords[lower]:
		return common.POSAdposition
	case conjunctionWords[lower] || subordinatorWords[lower]:
		return common.POSConjunction
	case auxiliaryWords[lower]:
		return common.POSAux
	case particleWords[lower]:
		return common.POSParticle
	case verbWords[lower]:
		return common.POSVerb
	case adverbWords[lower]:
		return common.POSAdverb
	case adjectiveWords[lower]:
		return common.POSAdjective
	case numberWords[lower]:
		return common.POSNumeral
	}

	if isAcronymToken(text) {
		return common.POSProperNoun
	}
	if unicode.IsUpper(first) && !sentenceInitial {
		return common.POSProperNoun
	}

	n := utf8.RuneCountInString(lower)
	switch {
	case n > 4 && strings.HasSuffix(lower, "ly"):
		return common.POSAdverb
	case n > 4 && (strings.HasSuffix(lower, "ing") || strings.HasSuffix(lower, "ed")):
		return common.POSVerb
	}
	for _, suffix := range nounSuffixes {
		if n > len(suffix)+1 && strings.HasSuffix(lower, suffix) {
			return common.POSNoun
		}
	}
	for _, suffix := range adjectiveSuffixes {
		if n > len(suffix)+1 && strings.HasSuffix(lower, suffix) {
			return common.POSAdjective
		}
	}

	return common.POSNoun
}

// isNumericToken matches integers, decimals and digit-grouped forms.
func isNumericToken(s string) bool {
	digits := 0
	for _, r := range s {
		switch {
		case unicode.IsDigit(r):
			digits++
		case r == '.' || r == ',' || r == '-':
		default:
			return false
		}
	}
	return digits > 0
}

// isAcronymToken matches all-caps tokens of at least two letters, optionally
// followed by digits ("PID", "ISO9001").
func isAcronymToken(s string) bool {
	letters := 0
	for _, r := range s {
		switch {
		case unicode.IsUpper(r):
			letters++
		case unicode.IsDigit(r):
			if letters < 2 {
				return false
			}
		default:
			return false
		}
	}
	return letters >= 2
}

// isIngForm reports whether a verb-tagged token is a present participle,
// which the chunker accepts as a nominal premodifier ("mixing time").
func isIngForm(tok common.Token) bool {
	return tok.POS == common.POSVerb && strings.HasSuffix(strings.ToLower(tok.Text), "ing")
}
