package glossary

import (
	"context"
	"sort"
	"time"

	domaindoc "github.com/lexforge/TermForge-Intelligence/internal/domain/document"
	domainglossary "github.com/lexforge/TermForge-Intelligence/internal/domain/glossary"
	"github.com/lexforge/TermForge-Intelligence/internal/infrastructure/database/redis"
	"github.com/lexforge/TermForge-Intelligence/internal/infrastructure/messaging/kafka"
	"github.com/lexforge/TermForge-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/lexforge/TermForge-Intelligence/internal/infrastructure/monitoring/prometheus"
	"github.com/lexforge/TermForge-Intelligence/internal/infrastructure/parsing"
	"github.com/lexforge/TermForge-Intelligence/internal/infrastructure/search/opensearch"
	"github.com/lexforge/TermForge-Intelligence/internal/infrastructure/storage/minio"
	"github.com/lexforge/TermForge-Intelligence/internal/intelligence/def_synth"
	"github.com/lexforge/TermForge-Intelligence/internal/intelligence/term_extractor"
	"github.com/lexforge/TermForge-Intelligence/pkg/errors"
	"github.com/lexforge/TermForge-Intelligence/pkg/types/common"
	dtypes "github.com/lexforge/TermForge-Intelligence/pkg/types/document"
	gtypes "github.com/lexforge/TermForge-Intelligence/pkg/types/glossary"
)

// TermIndexer pushes glossary entries into the search index.
type TermIndexer interface {
	BulkIndexTerms(ctx context.Context, docs []opensearch.TermDocument) (*common.BulkResult, error)
}

// EventPublisher publishes lifecycle events to the message bus.
type EventPublisher interface {
	PublishEvent(ctx context.Context, topic, eventType, key string, payload interface{}) error
}

// CacheInvalidator drops cached reads made stale by a merge.
type CacheInvalidator interface {
	Delete(ctx context.Context, keys ...string) error
	DeleteByPrefix(ctx context.Context, prefix string) (int64, error)
}

// TermCacheKey is the cache key for a single glossary entry lookup.
func TermCacheKey(normalized, language string) string {
	return "term:" + language + ":" + normalized
}

// GraphCachePrefix is the cache key prefix for graph neighborhood reads.
const GraphCachePrefix = "graph:"

// ExtractionService runs the pipeline against stored documents and persists
// everything one run produces: glossary entries, term relations, the search
// index, and the document's lifecycle record.
type ExtractionService struct {
	docs      domaindoc.Repository
	objects   minio.ObjectRepository
	entries   domainglossary.EntryRepository
	relations domainglossary.RelationRepository
	pipeline  *Pipeline
	indexer   TermIndexer
	cache     CacheInvalidator
	locks     redis.LockFactory
	publisher EventPublisher
	logger    logging.Logger
	metrics   *prometheus.AppMetrics
	lockTTL   time.Duration
}

// ExtractionServiceParams collects the collaborators of an ExtractionService.
// Indexer, Cache, Locks, Publisher and Metrics are optional; a nil value
// disables the corresponding side effect.
type ExtractionServiceParams struct {
	Documents domaindoc.Repository
	Objects   minio.ObjectRepository
	Entries   domainglossary.EntryRepository
	Relations domainglossary.RelationRepository
	Pipeline  *Pipeline
	Indexer   TermIndexer
	Cache     CacheInvalidator
	Locks     redis.LockFactory
	Publisher EventPublisher
	Logger    logging.Logger
	Metrics   *prometheus.AppMetrics
	LockTTL   time.Duration
}

// NewExtractionService creates the extraction service.
func NewExtractionService(p ExtractionServiceParams) (*ExtractionService, error) {
	if p.Documents == nil || p.Objects == nil || p.Entries == nil || p.Relations == nil {
		return nil, errors.InvalidParam("extraction service requires document, object, entry and relation stores")
	}
	if p.Pipeline == nil {
		return nil, errors.InvalidParam("extraction service requires a pipeline")
	}
	if p.Logger == nil {
		p.Logger = logging.NewNopLogger()
	}
	if p.LockTTL <= 0 {
		p.LockTTL = 5 * time.Minute
	}
	return &ExtractionService{
		docs:      p.Documents,
		objects:   p.Objects,
		entries:   p.Entries,
		relations: p.Relations,
		pipeline:  p.Pipeline,
		indexer:   p.Indexer,
		cache:     p.Cache,
		locks:     p.Locks,
		publisher: p.Publisher,
		logger:    p.Logger,
		metrics:   p.Metrics,
		lockTTL:   p.LockTTL,
	}, nil
}

// ProcessDocument runs the full pipeline for one stored document: fetch the
// object, extract page text, extract and validate terms, synthesize
// definitions, extract relationships, merge everything into the glossary and
// the graph, refresh the search index, and record the outcome on the
// document.  A concurrent run for the same document is rejected with a
// conflict error.
func (s *ExtractionService) ProcessDocument(ctx context.Context, id common.ID) (*dtypes.ExtractionResultDTO, error) {
	if s.locks != nil {
		mutex := s.locks.NewMutex("extract:"+string(id), redis.WithLockTTL(s.lockTTL))
		acquired, err := mutex.TryLock(ctx)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeExternalService, "failed to acquire extraction lock")
		}
		if !acquired {
			return nil, errors.New(errors.ErrCodeConflict, "document is already being processed").
				WithDetail("document_id=" + string(id))
		}
		defer func() {
			if err := mutex.Unlock(context.WithoutCancel(ctx)); err != nil {
				s.logger.Warn("failed to release extraction lock",
					logging.String("document_id", string(id)), logging.Err(err))
			}
		}()
	}

	doc, err := s.docs.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := doc.MarkProcessing(); err != nil {
		return nil, err
	}
	if err := s.docs.Update(ctx, doc); err != nil {
		return nil, err
	}

	started := time.Now()
	result, err := s.extract(ctx, doc)
	if err != nil {
		s.fail(ctx, doc, err)
		if s.metrics != nil {
			prometheus.RecordExtractionRun(s.metrics, s.pipeline.Method(), false, time.Since(started), 0, 0, 0)
		}
		return nil, err
	}

	if s.metrics != nil {
		prometheus.RecordExtractionRun(s.metrics, s.pipeline.Method(), true, time.Since(started),
			result.Stats.CandidatesExtracted, result.Stats.CandidatesRejected, result.Stats.TermsAccepted)
	}
	return result, nil
}

// extract is the happy path of ProcessDocument; any error it returns moves
// the document to failed.
func (s *ExtractionService) extract(ctx context.Context, doc *domaindoc.Document) (*dtypes.ExtractionResultDTO, error) {
	download, err := s.objects.Download(ctx, doc.ObjectKey)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeExternalService, "failed to fetch document object")
	}

	extractor, err := parsing.ForContentType(doc.ContentType)
	if err != nil {
		return nil, err
	}
	pages, err := extractor.ExtractPages(download.Data)
	if err != nil {
		return nil, err
	}

	run, err := s.pipeline.Run(ctx, pages)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodePipelineExtractionFailed, "pipeline run failed")
	}

	termDTOs, err := s.mergeTerms(ctx, doc, run)
	if err != nil {
		return nil, err
	}

	relationDTOs, err := s.mergeRelations(ctx, doc, run)
	if err != nil {
		return nil, err
	}

	// Search index and cache follow the database; their failures are
	// recoverable by reindexing and expiry, not worth failing the run.
	s.refreshIndex(ctx, doc, termDTOs)
	s.invalidateCache(ctx, doc.Language, termDTOs)

	stats := dtypes.ExtractionStats{
		Method:              run.Stats.Method,
		RepairsApplied:      run.Stats.NormalizerRepairs,
		CandidatesExtracted: run.Stats.CandidatesExtracted,
		CandidatesRejected:  run.Stats.CandidatesRejected,
		TermsAccepted:       run.Stats.TermsAccepted,
		RelationshipsFound:  len(run.Relationships),
		Duration:            time.Duration(run.Stats.DurationMs * float64(time.Millisecond)),
	}
	if err := doc.MarkProcessed(len(pages), stats); err != nil {
		return nil, err
	}
	if err := s.docs.Update(ctx, doc); err != nil {
		return nil, err
	}
	s.publishDocumentEvents(ctx, doc)

	s.logger.Info("document processed",
		logging.String("document_id", string(doc.ID)),
		logging.String("method", string(stats.Method)),
		logging.Int("pages", len(pages)),
		logging.Int("terms", len(termDTOs)),
		logging.Int("relationships", len(relationDTOs)))

	return &dtypes.ExtractionResultDTO{
		DocumentID:    doc.ID,
		Terms:         termDTOs,
		Relationships: relationDTOs,
		Stats:         stats,
	}, nil
}

// mergeTerms folds the run's terms into the glossary: existing entries
// accumulate the new extraction, new terms become new entries.  Definitions
// are replaced only when the new set is at least as good as what the entry
// already holds.
func (s *ExtractionService) mergeTerms(ctx context.Context, doc *domaindoc.Document, run *PipelineResult) ([]gtypes.TermDTO, error) {
	dtos := make([]gtypes.TermDTO, 0, len(run.Terms))
	for i, term := range run.Terms {
		normalized := domainglossary.Normalize(term.Text)

		entry, err := s.entries.FindByTerm(ctx, normalized, doc.Language)
		isNew := false
		switch {
		case err == nil:
		case errors.IsCode(err, errors.ErrCodeTermNotFound):
			entry, err = domainglossary.NewEntry(term.Text, doc.Language, term.Method, term.Confidence)
			if err != nil {
				return nil, err
			}
			isNew = true
		default:
			return nil, err
		}

		if err := entry.MergeExtraction(domainglossary.Extraction{
			DocumentID: doc.ID,
			Frequency:  term.Frequency,
			Pages:      term.Pages,
			Contexts:   occurrenceContexts(term.Occurrences),
			Confidence: term.Confidence,
			Method:     term.Method,
		}); err != nil {
			return nil, err
		}

		if defs := definitionDTOs(run.Definitions[i]); len(defs) > 0 {
			if !entry.HasRealDefinition() || !defs[0].IsContextSnippet {
				entry.SetDefinitions(defs)
			}
		}

		if isNew {
			err = s.entries.Save(ctx, entry)
			if errors.IsCode(err, errors.ErrCodeTermAlreadyExists) {
				// Lost a race with a concurrent run for another document.
				err = s.entries.Update(ctx, entry)
			}
		} else {
			err = s.entries.Update(ctx, entry)
		}
		if err != nil {
			return nil, err
		}
		s.publishEntryEvents(ctx, entry)

		dtos = append(dtos, entry.ToDTO())
	}

	sort.Slice(dtos, func(i, j int) bool { return dtos[i].Normalized < dtos[j].Normalized })
	return dtos, nil
}

// mergeRelations converts the run's relationships into domain relations and
// upserts them into the graph.
func (s *ExtractionService) mergeRelations(ctx context.Context, doc *domaindoc.Document, run *PipelineResult) ([]gtypes.RelationshipDTO, error) {
	relations := make([]*domainglossary.Relation, 0, len(run.Relationships))
	for _, rel := range run.Relationships {
		relation, err := domainglossary.NewRelation(rel.SourceTerm, rel.TargetTerm, rel.Type, rel.Confidence, rel.Sentence)
		if err != nil {
			// The extractor already filtered; anything invalid here is a term
			// pair it should not have produced. Skip, do not fail the run.
			s.logger.Warn("dropping invalid extracted relation",
				logging.String("source", rel.SourceTerm),
				logging.String("target", rel.TargetTerm),
				logging.Err(err))
			continue
		}
		relation.DocumentID = doc.ID
		relations = append(relations, relation)
	}
	relations = domainglossary.DedupeRelations(relations)

	if len(relations) > 0 {
		if err := s.relations.Upsert(ctx, doc.Language, relations); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeExternalService, "failed to persist term relations")
		}
	}

	dtos := make([]gtypes.RelationshipDTO, 0, len(relations))
	for _, relation := range relations {
		dtos = append(dtos, relation.ToDTO())
	}
	return dtos, nil
}

func (s *ExtractionService) refreshIndex(ctx context.Context, doc *domaindoc.Document, terms []gtypes.TermDTO) {
	if s.indexer == nil || len(terms) == 0 {
		return
	}
	docs := make([]opensearch.TermDocument, 0, len(terms))
	for _, term := range terms {
		docs = append(docs, opensearch.TermDocumentFromDTO(term))
	}
	result, err := s.indexer.BulkIndexTerms(ctx, docs)
	if err != nil {
		s.logger.Error("failed to refresh search index",
			logging.String("document_id", string(doc.ID)), logging.Err(err))
		return
	}
	if result.Failed > 0 {
		s.logger.Warn("search index refresh partially failed",
			logging.String("document_id", string(doc.ID)),
			logging.Int("failed", result.Failed))
	}
}

func (s *ExtractionService) invalidateCache(ctx context.Context, language string, terms []gtypes.TermDTO) {
	if s.cache == nil || len(terms) == 0 {
		return
	}
	keys := make([]string, 0, len(terms))
	for _, term := range terms {
		keys = append(keys, TermCacheKey(term.Normalized, language))
	}
	if err := s.cache.Delete(ctx, keys...); err != nil {
		s.logger.Warn("failed to invalidate term cache", logging.Err(err))
	}
	if _, err := s.cache.DeleteByPrefix(ctx, GraphCachePrefix); err != nil {
		s.logger.Warn("failed to invalidate graph cache", logging.Err(err))
	}
}

// fail records a failed run on the document.  The original error wins; a
// bookkeeping failure on top of it is only logged.
func (s *ExtractionService) fail(ctx context.Context, doc *domaindoc.Document, cause error) {
	ctx = context.WithoutCancel(ctx)
	if err := doc.MarkFailed(cause.Error()); err != nil {
		s.logger.Error("failed to mark document failed",
			logging.String("document_id", string(doc.ID)), logging.Err(err))
		return
	}
	if err := s.docs.Update(ctx, doc); err != nil {
		s.logger.Error("failed to persist document failure",
			logging.String("document_id", string(doc.ID)), logging.Err(err))
		return
	}
	s.publishDocumentEvents(ctx, doc)
	s.logger.Warn("document extraction failed",
		logging.String("document_id", string(doc.ID)), logging.Err(cause))
}

func (s *ExtractionService) publishDocumentEvents(ctx context.Context, doc *domaindoc.Document) {
	if s.publisher == nil {
		doc.Events()
		return
	}
	for _, event := range doc.Events() {
		var topic string
		switch event.(type) {
		case domaindoc.ProcessedEvent:
			topic = kafka.TopicDocumentProcessed
		case domaindoc.FailedEvent:
			topic = kafka.TopicDocumentFailed
		case domaindoc.UploadedEvent:
			topic = kafka.TopicDocumentUploaded
		default:
			continue
		}
		if err := s.publisher.PublishEvent(ctx, topic, event.EventType(), string(doc.ID), event); err != nil {
			s.logger.Error("failed to publish document event",
				logging.String("event_type", event.EventType()), logging.Err(err))
		}
	}
}

func (s *ExtractionService) publishEntryEvents(ctx context.Context, entry *domainglossary.Entry) {
	if s.publisher == nil {
		entry.Events()
		return
	}
	for _, event := range entry.Events() {
		var topic string
		switch event.(type) {
		case domainglossary.EntryCreatedEvent:
			topic = kafka.TopicGlossaryCreated
		case domainglossary.EntryMergedEvent:
			topic = kafka.TopicGlossaryMerged
		default:
			continue
		}
		if err := s.publisher.PublishEvent(ctx, topic, event.EventType(), string(entry.ID), event); err != nil {
			s.logger.Error("failed to publish glossary event",
				logging.String("event_type", event.EventType()), logging.Err(err))
		}
	}
}

func occurrenceContexts(occurrences []term_extractor.Occurrence) []string {
	contexts := make([]string, 0, len(occurrences))
	for _, occ := range occurrences {
		if occ.Context != "" {
			contexts = append(contexts, occ.Context)
		}
	}
	return contexts
}

func definitionDTOs(defs []def_synth.Definition) []gtypes.DefinitionDTO {
	dtos := make([]gtypes.DefinitionDTO, 0, len(defs))
	for _, def := range defs {
		dtos = append(dtos, gtypes.DefinitionDTO{
			Text:             def.Text,
			SourcePattern:    def.SourcePattern,
			Confidence:       def.Confidence,
			IsContextSnippet: def.IsContextSnippet,
			PageNumber:       def.PageNumber,
		})
	}
	return dtos
}
