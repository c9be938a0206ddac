package text_annotator

import (
	"github.com/lexforge/TermForge-Intelligence/internal/intelligence/common"
)

// ---------------------------------------------------------------------------
// Noun phrase chunking
// ---------------------------------------------------------------------------

// chunkSentence finds base noun phrases in a tagged sentence. A chunk is an
// optional determiner run, then premodifiers (adjectives, nouns, proper
// nouns, numerals, present participles), ending at the last nominal token,
// which becomes the head. Tokens after the head are left for the next chunk.
func chunkSentence(sentence *common.Sentence, annotationText string) []common.NounChunk {
	tokens := sentence.Tokens
	chunks := make([]common.NounChunk, 0, 4)

	i := 0
	for i < len(tokens) {
		if !chunkStarter(tokens[i]) {
			i++
			continue
		}

		start := i
		j := i
		seenContent := false
		for j < len(tokens) {
			tok := tokens[j]
			switch {
			case tok.POS == common.POSDeterminer && !seenContent:
			case chunkModifier(tok):
				seenContent = true
			default:
				goto runEnded
			}
			j++
		}
	runEnded:

		head := -1
		for k := j - 1; k >= start; k-- {
			if common.IsNominal(tokens[k].POS) {
				head = k
				break
			}
		}

		if head >= 0 {
			chunks = append(chunks, common.NounChunk{
				Text:    annotationText[tokens[start].Start:tokens[head].End],
				Start:   tokens[start].Start,
				End:     tokens[head].End,
				Tokens:  tokens[start : head+1],
				HeadPOS: tokens[head].POS,
			})
			i = head + 1
			continue
		}
		if j > start {
			i = j
		} else {
			i = start + 1
		}
	}

	return chunks
}

func chunkStarter(tok common.Token) bool {
	switch tok.POS {
	case common.POSDeterminer, common.POSAdjective, common.POSNoun, common.POSProperNoun, common.POSNumeral:
		return true
	}
	return isIngForm(tok)
}

func chunkModifier(tok common.Token) bool {
	switch tok.POS {
	case common.POSAdjective, common.POSNoun, common.POSProperNoun, common.POSNumeral:
		return true
	}
	return isIngForm(tok)
}
