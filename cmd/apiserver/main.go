// API server entry point for TermForge-Intelligence.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	appglossary "github.com/lexforge/TermForge-Intelligence/internal/application/glossary"
	"github.com/lexforge/TermForge-Intelligence/internal/application/ingest"
	"github.com/lexforge/TermForge-Intelligence/internal/application/query"
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
	httpserver "github.com/lexforge/TermForge-Intelligence/internal/interfaces/http"
	"github.com/lexforge/TermForge-Intelligence/internal/interfaces/http/handlers"
	"github.com/lexforge/TermForge-Intelligence/internal/interfaces/http/middleware"
)

// version is injected at build time via ldflags.
var version = "dev"

const bootstrapTimeout = 30 * time.Second

func main() {
	configPath := flag.String("config", "", "path to configuration file (default: environment)")
	port := flag.Int("port", 0, "HTTP server port (overrides config)")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if *port > 0 {
		cfg.Server.Port = *port
	}

	logger, err := logging.NewLogger(logging.LogConfig(cfg.Log))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logger = logger.Named("apiserver")
	logging.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("apiserver exited with error", logging.Err(err))
		os.Exit(1)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}
	return config.LoadFromEnv()
}

func run(cfg *config.Config, logger logging.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	bootCtx, cancel := context.WithTimeout(ctx, bootstrapTimeout)
	defer cancel()

	// Metrics
	collector, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{
		Namespace:            "termforge",
		EnableProcessMetrics: true,
		EnableGoMetrics:      true,
	}, logger)
	if err != nil {
		return fmt.Errorf("metrics collector: %w", err)
	}
	appMetrics := prometheus.NewAppMetrics(collector)

	// PostgreSQL
	pg, err := postgres.NewConnection(cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	defer pg.Close()

	if err := pg.Migrate(); err != nil {
		return fmt.Errorf("postgres migrations: %w", err)
	}

	// Redis
	redisClient, err := redis.NewClient(cfg.Redis, logger)
	if err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	defer redisClient.Close()

	cache := redis.NewRedisCache(redisClient, logger)
	locks := redis.NewLockFactory(redisClient, logger)

	// Neo4j
	graphDriver, err := neo4j.NewDriver(cfg.Neo4j, logger)
	if err != nil {
		return fmt.Errorf("neo4j: %w", err)
	}
	defer graphDriver.Close()

	// Kafka
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

	// OpenSearch
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
	searcher := opensearch.NewSearcher(searchClient, opensearch.SearcherConfig{}, logger)

	// MinIO
	objectClient, err := minio.NewClient(minio.ClientConfigFromApp(cfg.MinIO), logger)
	if err != nil {
		return fmt.Errorf("object storage: %w", err)
	}
	objects := minio.NewObjectRepository(objectClient, logger)

	// Repositories
	docRepo := pgrepo.NewDocumentRepository(pg.DB(), logger)
	entryRepo := pgrepo.NewGlossaryRepository(pg.DB(), logger)
	relationRepo := neo4jrepo.NewTermGraphRepository(graphDriver, logger)

	if err := relationRepo.EnsureSchema(bootCtx); err != nil {
		return fmt.Errorf("graph schema: %w", err)
	}

	// Extraction pipeline.  The synchronous extract endpoint shares the
	// worker's pipeline; the annotation model registry degrades to pattern
	// extraction when the model cannot be loaded.
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

	// Application services
	ingestSvc := ingest.NewService(docRepo, objects, producer, logger, appMetrics)
	querySvc := query.NewService(
		entryRepo,
		relationRepo,
		searcher,
		searchClient.IndexName(opensearch.GlossaryIndex),
		cache,
		logger,
		appMetrics,
	)

	// HTTP interface
	healthHandler := handlers.NewHealthHandler(version,
		handlers.CheckerFunc{ComponentName: "postgres", Probe: pg.HealthCheck},
		handlers.CheckerFunc{ComponentName: "redis", Probe: redisClient.Ping},
		handlers.CheckerFunc{ComponentName: "neo4j", Probe: graphDriver.HealthCheck},
		handlers.CheckerFunc{ComponentName: "opensearch", Probe: searchClient.Ping},
		handlers.CheckerFunc{ComponentName: "object_storage", Probe: objectStorageProbe(objectClient)},
	)

	router := httpserver.NewRouter(httpserver.RouterConfig{
		DocumentHandler:  handlers.NewDocumentHandler(ingestSvc, extractionSvc, cfg.Server.MaxBodySize, logger),
		GlossaryHandler:  handlers.NewGlossaryHandler(querySvc),
		HealthHandler:    healthHandler,
		Logger:           logger,
		Metrics:          appMetrics,
		MetricsCollector: collector,
		RateLimit:        middleware.DefaultRateLimitConfig(),
		Mode:             cfg.Server.Mode,
	})

	server := httpserver.NewServer(cfg.Server, router, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	logger.Info("apiserver started",
		logging.String("addr", server.Addr()),
		logging.String("mode", cfg.Server.Mode),
		logging.String("version", version))

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()
	return server.Stop(shutdownCtx)
}

// buildPipeline registers the shallow annotator and assembles the extraction
// pipeline with prometheus-backed intelligence metrics.
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

func objectStorageProbe(client *minio.Client) func(context.Context) error {
	return func(ctx context.Context) error {
		status := client.HealthCheck(ctx)
		if !status.Healthy {
			return fmt.Errorf("object storage unhealthy: %s", status.Error)
		}
		return nil
	}
}
