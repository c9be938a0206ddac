package text_annotator

import (
	"github.com/lexforge/TermForge-Intelligence/internal/intelligence/common"
)

// ---------------------------------------------------------------------------
// Shallow dependency analysis
// ---------------------------------------------------------------------------

// parseSentence builds a flat clause-level parse: the first verb outside any
// chunk becomes the root, the last chunk head before it the subject, the
// first chunk head after it (with no preposition in between) the object.
// Prepositions attach to the nearest preceding verb or nominal and receive
// the following chunk head as their object. Tokens inside a chunk attach to
// the chunk head. Indexes are positions in sentence.Tokens; a sentence
// without a verb gets no parse.
func parseSentence(sentence *common.Sentence, chunks []common.NounChunk) []common.Dependency {
	tokens := sentence.Tokens
	if len(tokens) == 0 {
		return nil
	}

	chunkOf := make([]int, len(tokens))
	for i := range chunkOf {
		chunkOf[i] = -1
	}
	heads := make([]int, len(chunks))
	starts := make([]int, len(chunks))
	for c, chunk := range chunks {
		start := sentence.TokenIndexAt(chunk.Start)
		head := sentence.TokenIndexAt(chunk.Tokens[len(chunk.Tokens)-1].Start)
		if start < 0 || head < 0 {
			return nil
		}
		starts[c] = start
		heads[c] = head
		for t := start; t <= head; t++ {
			chunkOf[t] = c
		}
	}

	verbIdx := -1
	for i, tok := range tokens {
		if chunkOf[i] == -1 && tok.POS == common.POSVerb {
			verbIdx = i
			break
		}
	}
	if verbIdx == -1 {
		for i, tok := range tokens {
			if chunkOf[i] == -1 && tok.POS == common.POSAux {
				verbIdx = i
				break
			}
		}
	}
	if verbIdx == -1 {
		return nil
	}

	deps := make([]common.Dependency, 0, len(tokens))
	deps = append(deps, common.Dependency{Dependent: verbIdx, Head: -1, Relation: common.DepRoot})

	// Subject: head of the last chunk before the verb.
	subjChunk := -1
	for c := range chunks {
		if heads[c] < verbIdx {
			subjChunk = c
		}
	}
	if subjChunk >= 0 {
		deps = append(deps, common.Dependency{Dependent: heads[subjChunk], Head: verbIdx, Relation: common.DepSubject})
	}

	// Object: head of the first chunk after the verb, unless a preposition
	// intervenes.
	for c := range chunks {
		if starts[c] <= verbIdx {
			continue
		}
		if !hasAdpositionBetween(tokens, verbIdx+1, starts[c]) {
			deps = append(deps, common.Dependency{Dependent: heads[c], Head: verbIdx, Relation: common.DepObject})
		}
		break
	}

	// Prepositions and their objects.
	for p, tok := range tokens {
		if tok.POS != common.POSAdposition || chunkOf[p] != -1 {
			continue
		}
		attach := attachmentFor(tokens, p)
		if attach < 0 {
			continue
		}
		deps = append(deps, common.Dependency{Dependent: p, Head: attach, Relation: common.DepPrep})

		for c := range chunks {
			if starts[c] <= p {
				continue
			}
			if !hasAdpositionBetween(tokens, p+1, starts[c]) {
				deps = append(deps, common.Dependency{Dependent: heads[c], Head: p, Relation: common.DepPrepObj})
			}
			break
		}
	}

	// Intra-chunk attachments.
	for c, chunk := range chunks {
		for offset := range chunk.Tokens {
			t := starts[c] + offset
			if t == heads[c] {
				continue
			}
			relation := common.DepCompound
			switch {
			case tokens[t].POS == common.POSDeterminer:
				relation = common.DepDet
			case tokens[t].POS == common.POSAdjective || isIngForm(tokens[t]):
				relation = common.DepModifier
			}
			deps = append(deps, common.Dependency{Dependent: t, Head: heads[c], Relation: relation})
		}
	}

	return deps
}

func hasAdpositionBetween(tokens []common.Token, from, to int) bool {
	for i := from; i < to && i < len(tokens); i++ {
		if tokens[i].POS == common.POSAdposition {
			return true
		}
	}
	return false
}

// attachmentFor walks backward from a preposition to the nearest verb,
// auxiliary or nominal token.
func attachmentFor(tokens []common.Token, p int) int {
	for i := p - 1; i >= 0; i-- {
		switch tokens[i].POS {
		case common.POSVerb, common.POSAux, common.POSNoun, common.POSProperNoun:
			return i
		}
	}
	return -1
}
