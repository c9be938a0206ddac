// Background worker entry point for TermForge-Intelligence.  The worker
// consumes document.uploaded events and runs the extraction pipeline against
// each stored document, with bounded concurrency.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"golang.org/x/sync/semaphore"

	appglossary "github.com/lexforge/TermForge-Intelligence/internal/application/glossary"
	"github.com/lexforge/TermForge-Intelligence/internal/config"
	"github.com/lexforge/TermForge-Intelligence/internal/infrastructure/database/neo4j"
	neo4jrepo "github.com/lexforge/TermForge-Intelligence/internal/infrastructure/database/neo4j/repositories"
	"github.com/lexforge/TermForge-Intelligence/internal/infrastructure/database/postgres"
	pgrepo "github.com/lexforge/TermForge-Intelligence/internal/infrastructure/database/postgres/repositories"
	"github.com/lexforge/TermForge-Intelligence/internal/infrastructure/database/redis"
	"github.com/lexforge/TermForge-Intelligence/internal/infrastructure/messaging/kafka"
	"github.com/lexforge/TermForge-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/lexforge/TermForge-Intelligence/internal/infrastructure/monitoring/prometheus"
	"github.com/lexforge/TermForge-Intelligence/internal/infrastructure/search/opensearch"
	"github.com/lexforge/TermForge-Intelligence/internal/infrastructure/storage/minio"
	icommon "github.com/lexforge/TermForge-Intelligence/internal/intelligence/common"
	"github.com/lexforge/TermForge-Intelligence/internal/intelligence/text_annotator"
	apperrors "github.com/lexforge/TermForge-Intelligence/pkg/errors"
	"github.com/lexforge/TermForge-Intelligence/pkg/types/common"
)

var version = "dev"

const bootstrapTimeout = 30 * time.Second

func main() {
	configPath := flag.String("config", "", "path to configuration file (default: environment)")
	workers := flag.Int("workers", 0, "concurrent extractions (overrides config)")
	metricsAddr := flag.String("metrics-addr", ":9090", "address for /healthz and /metrics")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if *workers > 0 {
		cfg.Worker.Concurrency = *workers
	}
	if cfg.Worker.Concurrency <= 0 {
		cfg.Worker.Concurrency = runtime.NumCPU()
	}

	logger, err := logging.NewLogger(logging.LogConfig(cfg.Log))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logger = logger.Named("worker")
	logging.SetDefault(logger)

	if err := run(cfg, *metricsAddr, logger); err != nil {
		logger.Error("worker exited with error", logging.Err(err))
		os.Exit(1)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}
	return config.LoadFromEnv()
}

func run(cfg *config.Config, metricsAddr string, logger logging.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	bootCtx, cancel := context.WithTimeout(ctx, bootstrapTimeout)
	defer cancel()

	collector, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{
		Namespace:            "termforge",
		Subsystem:            "worker",
		EnableProcessMetrics: true,
		EnableGoMetrics:      true,
	}, logger)
	if err != nil {
		return fmt.Errorf("metrics collector: %w", err)
	}
	appMetrics := prometheus.NewAppMetrics(collector)

	pg, err := postgres.NewConnection(cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	defer pg.Close()

	if err := pg.Migrate(); err != nil {
		return fmt.Errorf("postgres migrations: %w", err)
	}

	redisClient, err := redis.NewClient(cfg.Redis, logger)
	if err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	defer redisClient.Close()

	cache := redis.NewRedisCache(redisClient, logger)
	locks := redis.NewLockFactory(redisClient, logger)

	graphDriver, err := neo4j.NewDriver(cfg.Neo4j, logger)
	if err != nil {
		return fmt.Errorf("neo4j: %w", err)
	}
	defer graphDriver.Close()

	producer, err := kafka.NewProducer(kafka.ProducerConfigFromApp(cfg.Kafka), logger)
	if err != nil {
		return fmt.Errorf("kafka producer: %w", err)
	}
	defer producer.Close()

	if cfg.Kafka.AutoCreateTopics {
		topicManager, err := kafka.NewTopicManager(cfg.Kafka.Brokers, logger)
		if err != nil {
			return fmt.Errorf("kafka topic manager: %w", err)
		}
		if err := topicManager.EnsureDefaultTopics(bootCtx, cfg.Kafka); err != nil {
			return fmt.Errorf("kafka topics: %w", err)
		}
	}

	searchClient, err := opensearch.NewClient(opensearch.ClientConfigFromApp(cfg.OpenSearch), logger)
	if err != nil {
		return fmt.Errorf("opensearch: %w", err)
	}
	defer searchClient.Close()

	indexer := opensearch.NewIndexer(searchClient, opensearch.IndexerConfig{
		BulkBatchSize: cfg.OpenSearch.BulkBatchSize,
	}, logger)
	if err := indexer.EnsureGlossaryIndex(bootCtx); err != nil {
		return fmt.Errorf("glossary index: %w", err)
	}

	objectClient, err := minio.NewClient(minio.ClientConfigFromApp(cfg.MinIO), logger)
	if err != nil {
		return fmt.Errorf("object storage: %w", err)
	}
	objects := minio.NewObjectRepository(objectClient, logger)

	docRepo := pgrepo.NewDocumentRepository(pg.DB(), logger)
	entryRepo := pgrepo.NewGlossaryRepository(pg.DB(), logger)
	relationRepo := neo4jrepo.NewTermGraphRepository(graphDriver, logger)

	if err := relationRepo.EnsureSchema(bootCtx); err != nil {
		return fmt.Errorf("graph schema: %w", err)
	}

	pipeline, err := buildPipeline(bootCtx, cfg.Extraction, collector, logger)
	if err != nil {
		return fmt.Errorf("extraction pipeline: %w", err)
	}

	extractionSvc, err := appglossary.NewExtractionService(appglossary.ExtractionServiceParams{
		Documents: docRepo,
		Objects:   objects,
		Entries:   entryRepo,
		Relations: relationRepo,
		Pipeline:  pipeline,
		Indexer:   indexer,
		Cache:     cache,
		Locks:     locks,
		Publisher: producer,
		Logger:    logger,
		Metrics:   appMetrics,
		LockTTL:   cfg.Worker.LockTTL,
	})
	if err != nil {
		return fmt.Errorf("extraction service: %w", err)
	}

	consumer, err := kafka.NewConsumer(
		kafka.ConsumerConfigFromApp(cfg.Kafka, []string{kafka.TopicDocumentUploaded}),
		logger,
	)
	if err != nil {
		return fmt.Errorf("kafka consumer: %w", err)
	}
	defer consumer.Close()

	pool := newExtractionPool(extractionSvc, int64(cfg.Worker.Concurrency), logger)
	if err := consumer.Subscribe(kafka.TopicDocumentUploaded, pool.Handle); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	if err := consumer.Start(ctx); err != nil {
		return fmt.Errorf("consumer start: %w", err)
	}

	metricsServer := startMetricsServer(metricsAddr, collector, logger)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	logger.Info("worker started",
		logging.Int("concurrency", cfg.Worker.Concurrency),
		logging.String("metrics_addr", metricsAddr),
		logging.String("version", version))

	heartbeat := cfg.Worker.HeartbeatInterval
	if heartbeat <= 0 {
		heartbeat = time.Minute
	}
	ticker := time.NewTicker(heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("shutting down, draining in-flight extractions")
			pool.Drain()
			return nil
		case <-ticker.C:
			metrics := consumer.GetMetrics()
			logger.Info("worker heartbeat",
				logging.Int64("consumed", metrics.MessagesConsumed.Load()),
				logging.Int64("processed", metrics.MessagesProcessed.Load()),
				logging.Int64("failed", metrics.MessagesFailed.Load()),
				logging.Int64("lag", metrics.Lag.Load()))
		}
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Extraction pool
// ─────────────────────────────────────────────────────────────────────────────

// extractionPool runs document extractions with bounded concurrency.  The
// consumer loop stays responsive: a message is decoded synchronously, so
// malformed envelopes hit the retry and dead-letter path, while the
// extraction itself runs on a pooled goroutine.  Extraction failures are
// recorded on the document row and announced on document.failed, so the
// offset can be committed either way.
type extractionPool struct {
	svc    *appglossary.ExtractionService
	sem    *semaphore.Weighted
	weight int64
	logger logging.Logger
}

func newExtractionPool(svc *appglossary.ExtractionService, concurrency int64, logger logging.Logger) *extractionPool {
	return &extractionPool{
		svc:    svc,
		sem:    semaphore.NewWeighted(concurrency),
		weight: concurrency,
		logger: logger,
	}
}

// Handle is the message handler for document.uploaded events.
func (p *extractionPool) Handle(ctx context.Context, msg *common.Message) error {
	var envelope kafka.EventEnvelope
	if err := json.Unmarshal(msg.Value, &envelope); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeSerialization, "malformed event envelope")
	}

	var payload kafka.DocumentUploadedPayload
	if err := envelope.DecodePayload(&payload); err != nil {
		return err
	}
	if payload.DocumentID == "" {
		return apperrors.InvalidParam("document.uploaded event without document_id")
	}

	if err := p.sem.Acquire(ctx, 1); err != nil {
		return err
	}

	go func() {
		defer p.sem.Release(1)

		// Detached from the consumer context so shutdown drains instead of
		// cancelling mid-extraction.
		runCtx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()

		start := time.Now()
		result, err := p.svc.ProcessDocument(runCtx, common.ID(payload.DocumentID))
		if err != nil {
			p.logger.Error("document extraction failed",
				logging.String("document_id", payload.DocumentID),
				logging.Duration("elapsed", time.Since(start)),
				logging.Err(err))
			return
		}
		p.logger.Info("document extracted",
			logging.String("document_id", payload.DocumentID),
			logging.Int("terms", len(result.Terms)),
			logging.Int("relationships", len(result.Relationships)),
			logging.Duration("elapsed", time.Since(start)))
	}()

	return nil
}

// Drain blocks until every in-flight extraction has finished.
func (p *extractionPool) Drain() {
	_ = p.sem.Acquire(context.Background(), p.weight)
	p.sem.Release(p.weight)
}

// ─────────────────────────────────────────────────────────────────────────────
// Probes
// ─────────────────────────────────────────────────────────────────────────────

func startMetricsServer(addr string, collector prometheus.MetricsCollector, logger logging.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"alive"}`))
	})
	mux.Handle("/metrics", collector.Handler())

	server := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server failed", logging.Err(err))
		}
	}()
	return server
}

// buildPipeline registers the shallow annotator and assembles the extraction
// pipeline, mirroring the apiserver so synchronous and queued extractions
// behave identically.
func buildPipeline(ctx context.Context, cfg config.ExtractionConfig, collector prometheus.MetricsCollector, logger logging.Logger) (*appglossary.Pipeline, error) {
	pipeLogger := appglossary.NewPipelineLogger(logger)

	intelMetrics, err := icommon.NewPrometheusIntelligenceMetrics(collector.Registry())
	if err != nil {
		return nil, err
	}

	registry := icommon.NewAnnotatorRegistry(intelMetrics, pipeLogger)
	info := icommon.AnnotatorInfo{
		Name:     text_annotator.AnnotatorName,
		Version:  text_annotator.AnnotatorVersion,
		Language: cfg.Language,
	}
	if err := registry.LoadAndRegister(ctx, info, func(context.Context) (icommon.Annotator, error) {
		return text_annotator.NewShallowAnnotator(text_annotator.Config{
			Language:           cfg.Language,
			EnableDependencies: true,
		}, pipeLogger, intelMetrics)
	}); err != nil {
		logger.Warn("annotator registration failed, extraction will use pattern mode",
			logging.Err(err))
	}

	return appglossary.NewPipelineFromConfig(ctx, cfg, registry, pipeLogger, intelMetrics)
}
