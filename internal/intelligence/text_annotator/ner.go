package text_annotator

import (
	"github.com/lexforge/TermForge-Intelligence/internal/intelligence/common"
)

// ---------------------------------------------------------------------------
// Pattern entity recognition
// ---------------------------------------------------------------------------

// findEntities marks two span kinds over a tagged sentence: runs of proper
// noun tokens become PROPER spans, and every all-caps token of two or more
// letters becomes an ACRONYM span, including acronyms inside a proper run
// ("PID Controller" yields both the run and "PID").
func findEntities(sentence *common.Sentence, annotationText string) []common.EntitySpan {
	tokens := sentence.Tokens
	entities := make([]common.EntitySpan, 0, 2)

	i := 0
	for i < len(tokens) {
		if tokens[i].POS != common.POSProperNoun {
			i++
			continue
		}

		j := i
		for j < len(tokens) && tokens[j].POS == common.POSProperNoun {
			j++
		}

		onlyAcronym := j == i+1 && isAcronymToken(tokens[i].Text)
		if !onlyAcronym {
			entities = append(entities, common.EntitySpan{
				Text:  annotationText[tokens[i].Start:tokens[j-1].End],
				Label: common.EntityLabelProper,
				Start: tokens[i].Start,
				End:   tokens[j-1].End,
			})
		}
		i = j
	}

	for _, tok := range tokens {
		if isAcronymToken(tok.Text) {
			entities = append(entities, common.EntitySpan{
				Text:  tok.Text,
				Label: common.EntityLabelAcronym,
				Start: tok.Start,
				End:   tok.End,
			})
		}
	}

	return entities
}
