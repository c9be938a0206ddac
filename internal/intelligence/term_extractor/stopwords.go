package term_extractor

// Language-keyed lexicons used by the validation rule chain. Only English
// ships today; adding a language means adding its entry to every map here
// and the corresponding annotator lexicons.

// ---------------------------------------------------------------------------
// Leading tokens
// ---------------------------------------------------------------------------

// stripArticles lists the articles and demonstratives removed from the front
// of a candidate before any length or stopword check runs.
var stripArticles = map[string]map[string]bool{
	"en": {
		"the":   true,
		"a":     true,
		"an":    true,
		"this":  true,
		"that":  true,
		"these": true,
		"those": true,
	},
}

// interrogativeLeaders mark sentence fragments pulled in by a question
// opener rather than a nominal phrase.
var interrogativeLeaders = map[string]map[string]bool{
	"en": {
		"which": true,
		"what":  true,
		"where": true,
		"when":  true,
		"why":   true,
		"how":   true,
	},
}

var comparativeLeaders = map[string]map[string]bool{
	"en": {
		"more":     true,
		"less":     true,
		"higher":   true,
		"lower":    true,
		"larger":   true,
		"smaller":  true,
		"greater":  true,
		"fewer":    true,
		"best":     true,
		"better":   true,
		"worst":    true,
		"worse":    true,
		"most":     true,
		"least":    true,
		"further":  true,
		"earlier":  true,
		"later":    true,
		"faster":   true,
		"slower":   true,
		"stronger": true,
		"weaker":   true,
	},
}

var quantifierLeaders = map[string]map[string]bool{
	"en": {
		"all":      true,
		"any":      true,
		"some":     true,
		"many":     true,
		"various":  true,
		"several":  true,
		"numerous": true,
		"multiple": true,
		"certain":  true,
		"other":    true,
	},
}

// genericNouns are heads too vague to carry terminology on their own. A
// quantifier leader followed solely by these rejects the candidate.
var genericNouns = map[string]map[string]bool{
	"en": {
		"way":      true,
		"ways":     true,
		"thing":    true,
		"things":   true,
		"type":     true,
		"types":    true,
		"kind":     true,
		"kinds":    true,
		"case":     true,
		"cases":    true,
		"example":  true,
		"examples": true,
		"item":     true,
		"items":    true,
		"aspect":   true,
		"aspects":  true,
		"point":    true,
		"points":   true,
		"matter":   true,
		"matters":  true,
		"form":     true,
		"forms":    true,
		"manner":   true,
		"respect":  true,
		"respects": true,
	},
}

// ---------------------------------------------------------------------------
// Fragments
// ---------------------------------------------------------------------------

// boundMorphemes are suffixes that sometimes survive as standalone tokens
// after a line-break or OCR split. A candidate that IS one of these is a
// fragment, never a term.
var boundMorphemes = map[string]bool{
	"tion":     true,
	"tions":    true,
	"sion":     true,
	"sions":    true,
	"ment":     true,
	"ments":    true,
	"ization":  true,
	"izations": true,
	"isation":  true,
	"isations": true,
	"ance":     true,
	"ances":    true,
	"ence":     true,
	"ences":    true,
	"ness":     true,
	"ity":      true,
	"ities":    true,
	"ism":      true,
	"isms":     true,
	"ing":      true,
	"ings":     true,
	"ed":       true,
	"es":       true,
	"ers":      true,
	"ors":      true,
	"al":       true,
	"ally":     true,
	"ly":       true,
	"able":     true,
	"ible":     true,
	"ous":      true,
	"ive":      true,
	"ure":      true,
	"ures":     true,
	"ology":    true,
	"ologies":  true,
}

// ---------------------------------------------------------------------------
// Stopwords
// ---------------------------------------------------------------------------

// stopwordSets backs the full-match rejection rule: a candidate whose every
// word lands in this set is function-word filler, not terminology. The set
// deliberately stays clear of content nouns ("value", "rate", "pressure")
// that head real technical terms.
var stopwordSets = map[string]map[string]bool{
	"en": englishStopwords,
}

var englishStopwords = map[string]bool{
	"a": true, "about": true, "above": true, "additional": true, "after": true,
	"again": true, "against": true, "all": true, "almost": true, "also": true,
	"although": true, "always": true, "among": true, "an": true, "and": true,
	"another": true, "any": true, "are": true, "around": true, "as": true,
	"at": true, "be": true, "because": true, "been": true, "before": true,
	"being": true, "below": true, "between": true, "both": true, "but": true,
	"by": true, "can": true, "cannot": true, "certain": true, "could": true,
	"did": true, "do": true, "does": true, "doing": true, "down": true,
	"during": true, "each": true, "either": true, "enough": true, "etc": true,
	"even": true, "ever": true, "every": true, "few": true, "following": true,
	"for": true, "from": true, "further": true, "general": true, "given": true,
	"had": true, "has": true, "have": true, "having": true, "he": true,
	"hence": true, "her": true, "here": true, "hers": true, "him": true,
	"his": true, "how": true, "however": true, "i": true, "if": true,
	"in": true, "into": true, "is": true, "it": true, "its": true,
	"itself": true, "just": true, "less": true, "like": true, "main": true,
	"many": true, "may": true, "maybe": true, "me": true, "might": true,
	"more": true, "most": true, "much": true, "must": true, "my": true,
	"neither": true, "never": true, "new": true, "no": true, "nor": true,
	"not": true, "now": true, "of": true, "off": true, "often": true,
	"on": true, "once": true, "one": true, "only": true, "onto": true,
	"or": true, "other": true, "otherwise": true, "our": true, "ours": true,
	"out": true, "over": true, "own": true, "per": true, "possible": true,
	"quite": true, "rather": true, "respective": true, "same": true,
	"several": true, "shall": true, "she": true, "should": true,
	"since": true, "so": true, "some": true, "somehow": true,
	"something": true, "sometimes": true, "somewhat": true, "still": true,
	"such": true, "than": true, "that": true, "the": true, "their": true,
	"theirs": true, "them": true, "then": true, "there": true,
	"therefore": true, "these": true, "they": true, "this": true,
	"those": true, "through": true, "thus": true, "to": true,
	"together": true, "too": true, "toward": true, "towards": true,
	"under": true, "until": true, "up": true, "upon": true, "us": true,
	"used": true, "using": true, "various": true, "very": true, "via": true,
	"was": true, "way": true, "ways": true, "we": true, "well": true,
	"were": true, "what": true, "when": true, "where": true,
	"whether": true, "which": true, "while": true, "who": true,
	"whom": true, "whose": true, "why": true, "will": true, "with": true,
	"within": true, "without": true, "would": true, "yet": true,
	"you": true, "your": true,
}

// ---------------------------------------------------------------------------
// Lookups
// ---------------------------------------------------------------------------

func lexiconFor(sets map[string]map[string]bool, language string) (map[string]bool, bool) {
	set, ok := sets[language]
	return set, ok
}

// hasLexicons reports whether every validator lexicon exists for language.
func hasLexicons(language string) bool {
	for _, sets := range []map[string]map[string]bool{
		stripArticles,
		interrogativeLeaders,
		comparativeLeaders,
		quantifierLeaders,
		genericNouns,
		stopwordSets,
	} {
		if _, ok := sets[language]; !ok {
			return false
		}
	}
	return true
}
