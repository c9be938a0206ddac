// Package rel_extractor detects typed semantic relations between glossary
// terms that co-occur in a sentence. Two detection paths contribute to one
// confidence score: lexical cue patterns over the span between the two
// mentions, and, when a parse is available, the shortest dependency path
// between the term heads. Pair evaluation is order-insensitive and fans out
// over a bounded worker pool; results merge through confidence-keeping
// deduplication.
package rel_extractor

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/lexforge/TermForge-Intelligence/internal/intelligence/common"
	"github.com/lexforge/TermForge-Intelligence/internal/intelligence/term_extractor"
	"github.com/lexforge/TermForge-Intelligence/pkg/errors"
	"github.com/lexforge/TermForge-Intelligence/pkg/types/glossary"
)

// ---------------------------------------------------------------------------
// Extractor
// ---------------------------------------------------------------------------

// RelationshipExtractor finds relations between terms of one document.
type RelationshipExtractor struct {
	config  Config
	logger  common.Logger
	metrics common.IntelligenceMetrics
}

// NewRelationshipExtractor builds an extractor from config.
func NewRelationshipExtractor(config Config, logger common.Logger, metrics common.IntelligenceMetrics) (*RelationshipExtractor, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = common.NewNoopLogger()
	}
	if metrics == nil {
		metrics = common.NewNoopIntelligenceMetrics()
	}
	return &RelationshipExtractor{
		config:  config,
		logger:  logger,
		metrics: metrics,
	}, nil
}

type span struct {
	start, end int
}

// pairTask is one (source, target, evidence) triple to score. Spans are
// byte offsets into evidence; sent is nil when the evidence is a context
// window rather than an annotated sentence.
type pairTask struct {
	source     string
	target     string
	sourceSpan span
	targetSpan span
	evidence   string
	sent       *common.Sentence
	page       int
}

// ExtractRelationships evaluates every co-occurring term pair and returns
// the deduplicated relations at or above the configured confidence floor,
// ordered by source, target and type.
func (e *RelationshipExtractor) ExtractRelationships(ctx context.Context, terms []term_extractor.Term, annotations []term_extractor.PageAnnotation) (*Result, error) {
	started := time.Now()
	result := &Result{Relationships: []Relationship{}}

	tasks := e.gatherPairs(terms, annotations)
	result.Stats.PairsEvaluated = len(tasks)

	if len(tasks) > 0 {
		processor := common.NewBatchProcessor[pairTask, []Relationship](
			common.WithMaxConcurrency(e.config.MaxConcurrency),
			common.WithBatchName("relationship_pairs"),
			common.WithBatchMetrics(e.metrics),
		)
		batch, err := processor.Process(ctx, tasks, func(_ context.Context, task pairTask) ([]Relationship, error) {
			return e.evaluatePair(task), nil
		})
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodePipelineExtractionFailed, "relationship fan-out failed")
		}
		if batch.CancelledItems > 0 {
			cause := ctx.Err()
			if cause == nil {
				cause = context.Canceled
			}
			return nil, errors.Wrap(cause, errors.ErrCodePipelineExtractionFailed, "relationship extraction cancelled")
		}
		result.Relationships, result.Stats.DroppedLowScore = e.mergeResults(batch)
	}

	result.Stats.RelationsFound = len(result.Relationships)
	result.Stats.DurationMs = msSince(started)
	e.metrics.RecordStageDuration(ctx, "relate", result.Stats.DurationMs)
	e.logger.Info("relationship extraction complete",
		"pairs", result.Stats.PairsEvaluated,
		"relations", result.Stats.RelationsFound,
		"dropped_low_score", result.Stats.DroppedLowScore,
	)
	return result, nil
}

// gatherPairs finds every ordered term pair sharing a sentence (or, without
// annotations, a context window) and builds one task per distinct evidence.
func (e *RelationshipExtractor) gatherPairs(terms []term_extractor.Term, annotations []term_extractor.PageAnnotation) []pairTask {
	if len(terms) < 2 {
		return nil
	}

	pages := make(map[int]*common.Annotation, len(annotations))
	for _, pa := range annotations {
		pages[pa.PageNumber] = pa.Annotation
	}

	finders := make([]*regexp.Regexp, len(terms))
	for i, term := range terms {
		finders[i] = regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(term.Text) + `\b`)
	}

	seen := make(map[string]bool)
	var tasks []pairTask
	for i, term := range terms {
		for _, occ := range term.Occurrences {
			evidence := ""
			var sent *common.Sentence
			if ann := pages[occ.PageNumber]; ann != nil {
				if s := ann.SentenceAt(occ.Offset); s != nil {
					evidence, sent = s.Text, s
				}
			}
			if evidence == "" {
				evidence = occ.Context
			}
			if strings.TrimSpace(evidence) == "" {
				continue
			}

			iSpan := finders[i].FindStringIndex(evidence)
			if iSpan == nil {
				continue
			}

			for j := range terms {
				if j == i {
					continue
				}
				jSpan := finders[j].FindStringIndex(evidence)
				if jSpan == nil {
					continue
				}

				src, tgt := i, j
				srcSpan, tgtSpan := iSpan, jSpan
				if jSpan[0] < iSpan[0] {
					src, tgt = j, i
					srcSpan, tgtSpan = jSpan, iSpan
				}
				if srcSpan[1] > tgtSpan[0] {
					// Overlapping mentions have no inter-term span.
					continue
				}

				key := fmt.Sprintf("%d|%s|%s|%s", occ.PageNumber, terms[src].Text, terms[tgt].Text, evidence)
				if seen[key] {
					continue
				}
				seen[key] = true

				tasks = append(tasks, pairTask{
					source:     terms[src].Text,
					target:     terms[tgt].Text,
					sourceSpan: span{srcSpan[0], srcSpan[1]},
					targetSpan: span{tgtSpan[0], tgtSpan[1]},
					evidence:   evidence,
					sent:       sent,
					page:       occ.PageNumber,
				})
			}
		}
	}
	return tasks
}

// evaluatePair scores one pair. It returns the pattern relation, the
// dependency relation when it disagrees, or a single corroborated relation
// when both paths align.
func (e *RelationshipExtractor) evaluatePair(task pairTask) []Relationship {
	if strings.EqualFold(task.source, task.target) {
		return nil
	}

	inter := task.evidence[task.sourceSpan.end:task.targetSpan.start]
	patternType, havePattern := matchInterSpan(inter)
	depType, depForward, haveDep := e.dependencyRelation(task)
	bonus := e.proximityBonus(task, inter)

	const base = 0.5
	mk := func(src, tgt string, rel glossary.RelationType, confidence float64) Relationship {
		return Relationship{
			SourceTerm: src,
			TargetTerm: tgt,
			Type:       rel,
			Confidence: math.Min(1.0, confidence),
			Sentence:   task.evidence,
			PageNumber: task.page,
		}
	}
	depSrc, depTgt := task.source, task.target
	if !depForward {
		depSrc, depTgt = task.target, task.source
	}

	switch {
	case havePattern && haveDep && depForward && depType == patternType:
		return []Relationship{mk(task.source, task.target, patternType, base+0.3+bonus)}
	case havePattern && haveDep:
		return []Relationship{
			mk(task.source, task.target, patternType, base+bonus),
			mk(depSrc, depTgt, depType, base+bonus),
		}
	case havePattern:
		return []Relationship{mk(task.source, task.target, patternType, base+bonus)}
	case haveDep:
		return []Relationship{mk(depSrc, depTgt, depType, base+bonus)}
	}
	return nil
}

// dependencyRelation classifies the shortest parse path between the two
// term heads, if the evidence sentence carries a parse.
func (e *RelationshipExtractor) dependencyRelation(task pairTask) (glossary.RelationType, bool, bool) {
	if task.sent == nil || !task.sent.HasParse() {
		return "", false, false
	}
	sent := task.sent
	_, srcHead := termTokenRange(sent, sent.Start+task.sourceSpan.start, sent.Start+task.sourceSpan.end)
	_, tgtHead := termTokenRange(sent, sent.Start+task.targetSpan.start, sent.Start+task.targetSpan.end)
	if srcHead < 0 || tgtHead < 0 || srcHead == tgtHead {
		return "", false, false
	}

	ps := newParsedSentence(sent)
	path := ps.shortestPath(srcHead, tgtHead)
	if path == nil {
		return "", false, false
	}
	return classifyPath(ps, path)
}

// proximityBonus grants +0.2 when the two mentions sit closer than the
// proximity threshold: token distance on parsed sentences, inter-span word
// count on bare context windows.
func (e *RelationshipExtractor) proximityBonus(task pairTask, inter string) float64 {
	distance := len(strings.Fields(inter))
	if task.sent != nil {
		_, srcLast := termTokenRange(task.sent, task.sent.Start+task.sourceSpan.start, task.sent.Start+task.sourceSpan.end)
		tgtFirst, _ := termTokenRange(task.sent, task.sent.Start+task.targetSpan.start, task.sent.Start+task.targetSpan.end)
		if srcLast >= 0 && tgtFirst > srcLast {
			distance = tgtFirst - srcLast - 1
		}
	}
	if distance < e.config.ProximityTokens {
		return 0.2
	}
	return 0
}

// mergeResults filters by the confidence floor and deduplicates by
// (source, target, type), keeping the strongest evidence.
func (e *RelationshipExtractor) mergeResults(batch *common.BatchResult[[]Relationship]) ([]Relationship, int) {
	dropped := 0
	best := make(map[string]Relationship)
	for _, item := range batch.Results {
		if item.Status != common.ItemStatusSuccess {
			continue
		}
		for _, rel := range item.Result {
			if rel.Confidence < e.config.MinConfidence {
				dropped++
				continue
			}
			key := rel.SourceTerm + "\x00" + rel.TargetTerm + "\x00" + string(rel.Type)
			if current, ok := best[key]; ok && !strongerEvidence(rel, current) {
				continue
			}
			best[key] = rel
		}
	}

	merged := make([]Relationship, 0, len(best))
	for _, rel := range best {
		merged = append(merged, rel)
	}
	sort.Slice(merged, func(i, j int) bool {
		if merged[i].SourceTerm != merged[j].SourceTerm {
			return merged[i].SourceTerm < merged[j].SourceTerm
		}
		if merged[i].TargetTerm != merged[j].TargetTerm {
			return merged[i].TargetTerm < merged[j].TargetTerm
		}
		return merged[i].Type < merged[j].Type
	})
	return merged, dropped
}

// strongerEvidence orders duplicate relations deterministically: higher
// confidence first, then lower page, then lexicographic sentence.
func strongerEvidence(candidate, current Relationship) bool {
	if candidate.Confidence != current.Confidence {
		return candidate.Confidence > current.Confidence
	}
	if candidate.PageNumber != current.PageNumber {
		return candidate.PageNumber < current.PageNumber
	}
	return candidate.Sentence < current.Sentence
}

func msSince(t time.Time) float64 {
	return float64(time.Since(t).Microseconds()) / 1000.0
}
