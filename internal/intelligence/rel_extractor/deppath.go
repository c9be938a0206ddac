package rel_extractor

import (
	"github.com/lexforge/TermForge-Intelligence/internal/intelligence/common"
	"github.com/lexforge/TermForge-Intelligence/pkg/types/glossary"
)

// ---------------------------------------------------------------------------
// Dependency path walking
// ---------------------------------------------------------------------------

// parsedSentence indexes a sentence parse for path queries. Arc direction is
// kept (dependent to head) for classification; adjacency is undirected for
// the shortest-path walk.
type parsedSentence struct {
	sent   *common.Sentence
	headOf map[int]int
	relOf  map[int]string
	adj    map[int][]int
}

func newParsedSentence(sent *common.Sentence) *parsedSentence {
	ps := &parsedSentence{
		sent:   sent,
		headOf: make(map[int]int, len(sent.Dependencies)),
		relOf:  make(map[int]string, len(sent.Dependencies)),
		adj:    make(map[int][]int, len(sent.Dependencies)*2),
	}
	for _, d := range sent.Dependencies {
		ps.headOf[d.Dependent] = d.Head
		ps.relOf[d.Dependent] = d.Relation
		if d.Head < 0 {
			continue
		}
		ps.adj[d.Dependent] = append(ps.adj[d.Dependent], d.Head)
		ps.adj[d.Head] = append(ps.adj[d.Head], d.Dependent)
	}
	return ps
}

// hasArc reports whether dependent attaches to head with the given relation.
func (ps *parsedSentence) hasArc(dependent, head int, relation string) bool {
	return ps.headOf[dependent] == head && ps.relOf[dependent] == relation
}

// shortestPath returns the token indexes from one node to another over the
// undirected parse, inclusive of both ends, or nil when disconnected.
func (ps *parsedSentence) shortestPath(from, to int) []int {
	if from == to {
		return []int{from}
	}
	prev := map[int]int{from: from}
	queue := []int{from}
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		for _, next := range ps.adj[node] {
			if _, seen := prev[next]; seen {
				continue
			}
			prev[next] = node
			if next == to {
				path := []int{to}
				for at := to; at != from; {
					at = prev[at]
					path = append([]int{at}, path...)
				}
				return path
			}
			queue = append(queue, next)
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Path classification
// ---------------------------------------------------------------------------

func isVerbal(tok common.Token) bool {
	return tok.POS == common.POSVerb || tok.POS == common.POSAux
}

// classifyPath types the shortest dependency path between two term heads.
// The second return is the direction: true when the relation runs from the
// path's first node to its last, false when reversed. Paths longer than one
// mediating verb plus one preposition stay unclassified.
func classifyPath(ps *parsedSentence, path []int) (glossary.RelationType, bool, bool) {
	switch len(path) {
	case 3:
		return classifyTriple(ps, path[0], path[1], path[2])
	case 4:
		if rel, ok := classifyVerbPrep(ps, path[0], path[1], path[2], path[3]); ok {
			return rel, true, true
		}
		if rel, ok := classifyVerbPrep(ps, path[3], path[2], path[1], path[0]); ok {
			return rel, false, true
		}
	}
	return "", false, false
}

// classifyTriple handles subject-verb-object triples and a preposition
// directly bridging two nominals.
func classifyTriple(ps *parsedSentence, a, mid, b int) (glossary.RelationType, bool, bool) {
	tok := ps.sent.Tokens[mid]

	if isVerbal(tok) {
		if ps.hasArc(a, mid, common.DepSubject) && ps.hasArc(b, mid, common.DepObject) {
			rel, ok := verbRelationFor(tok.Text)
			return rel, true, ok
		}
		if ps.hasArc(b, mid, common.DepSubject) && ps.hasArc(a, mid, common.DepObject) {
			rel, ok := verbRelationFor(tok.Text)
			return rel, false, ok
		}
		return "", false, false
	}

	if tok.POS == common.POSAdposition {
		if ps.hasArc(b, mid, common.DepPrepObj) {
			rel, ok := prepRelationFor(tok.Text)
			return rel, true, ok
		}
		if ps.hasArc(a, mid, common.DepPrepObj) {
			rel, ok := prepRelationFor(tok.Text)
			return rel, false, ok
		}
	}
	return "", false, false
}

// classifyVerbPrep handles subject + verb + preposition + object paths
// ("operates in the vessel"), typed by the preposition.
func classifyVerbPrep(ps *parsedSentence, subj, verb, prep, obj int) (glossary.RelationType, bool) {
	if !isVerbal(ps.sent.Tokens[verb]) {
		return "", false
	}
	if !ps.hasArc(subj, verb, common.DepSubject) {
		return "", false
	}
	if !ps.hasArc(prep, verb, common.DepPrep) || !ps.hasArc(obj, prep, common.DepPrepObj) {
		return "", false
	}
	return prepRelationFor(ps.sent.Tokens[prep].Text)
}

// ---------------------------------------------------------------------------
// Term-to-token resolution
// ---------------------------------------------------------------------------

// termTokenRange locates the first and last token of a term span given in
// full-text byte offsets. Either index is -1 when no token falls inside.
func termTokenRange(sent *common.Sentence, start, end int) (int, int) {
	first, last := -1, -1
	for i, t := range sent.Tokens {
		if t.Start >= start && t.End <= end {
			if first == -1 {
				first = i
			}
			last = i
		}
	}
	return first, last
}
