// The apiserver binary serves the opgrader HTTP API: grading, rubric
// management, dictation scoring, and transcript search.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/turtacn/opgrader/internal/application/dictation"
	"github.com/turtacn/opgrader/internal/application/grading"
	apprubric "github.com/turtacn/opgrader/internal/application/rubric"
	"github.com/turtacn/opgrader/internal/config"
	"github.com/turtacn/opgrader/internal/domain/evaluation"
	"github.com/turtacn/opgrader/internal/infrastructure/database/postgres"
	"github.com/turtacn/opgrader/internal/infrastructure/database/postgres/repositories"
	"github.com/turtacn/opgrader/internal/infrastructure/database/redis"
	"github.com/turtacn/opgrader/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/opgrader/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/opgrader/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/opgrader/internal/infrastructure/search/milvus"
	"github.com/turtacn/opgrader/internal/infrastructure/search/opensearch"
	"github.com/turtacn/opgrader/internal/infrastructure/storage/minio"
	"github.com/turtacn/opgrader/internal/intelligence/embed"
	"github.com/turtacn/opgrader/internal/intelligence/oracle"
	httpserver "github.com/turtacn/opgrader/internal/interfaces/http"
	"github.com/turtacn/opgrader/internal/interfaces/http/handlers"
)

const defaultConfigPath = "configs/config.yaml"

// version is injected via ldflags.
var version = "dev"

func main() {
	configPath := flag.String("config", defaultConfigPath, "path to configuration file")
	port := flag.Int("port", 0, "HTTP port (overrides config)")
	migrate := flag.Bool("migrate", false, "run database migrations and exit")
	migrationsPath := flag.String("migrations", "file://migrations", "migration source URL")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if *port > 0 {
		cfg.Server.Port = *port
	}

	logger, err := logging.NewLogger(cfg.Log.ToLogging())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	if *migrate {
		if err := postgres.RunMigrations(postgres.BuildDSN(cfg.Postgres), *migrationsPath); err != nil {
			logger.Fatal("migration failed", logging.Err(err))
		}
		logger.Info("migrations applied")
		return
	}

	if err := run(cfg, logger); err != nil {
		logger.Fatal("apiserver failed", logging.Err(err))
	}
}

// loadConfig reads the config file, falling back to environment variables
// plus defaults when the file does not exist.
func loadConfig(path string) (*config.Config, error) {
	if _, err := os.Stat(path); err == nil {
		return config.Load(path)
	}
	return config.LoadFromEnv()
}

func run(cfg *config.Config, logger logging.Logger) error {
	ctx := context.Background()

	logger.Info("starting opgrader API server",
		logging.String("version", version),
		logging.Int("port", cfg.Server.Port),
	)

	// Postgres is the system of record for rubrics and is required.
	conn, err := postgres.NewConnection(cfg.Postgres, logger)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	defer conn.Close()
	rubricRepo := repositories.NewRubricRepository(conn.DB(), logger)
	submissionRepo := repositories.NewSubmissionRepository(conn.DB(), logger)

	checkers := []handlers.HealthChecker{&postgresHealthAdapter{conn: conn}}

	// Everything below degrades gracefully: a missing dependency disables
	// its feature instead of keeping the server down.
	gradingOpts := []grading.Option{grading.WithSubmissionStore(submissionRepo)}
	var rubricOpts []apprubric.Option
	var matcherOpts []evaluation.MatcherOption
	var cache grading.ArtifactCache

	redisClient, err := redis.NewClient(&cfg.Redis, logger)
	if err != nil {
		logger.Warn("redis unavailable, result caching and locking disabled", logging.Err(err))
	} else {
		defer redisClient.Close()
		artifacts := redis.NewArtifactCache(redis.NewCache(redisClient, logger))
		cache = artifacts
		gradingOpts = append(gradingOpts, grading.WithArtifactCache(artifacts))
		rubricOpts = append(rubricOpts, apprubric.WithLocker(redis.NewLocker(redisClient)))
		checkers = append(checkers, &redisHealthAdapter{client: redisClient})
	}

	producer, err := kafka.NewProducer(cfg.Kafka.ProducerConfig(), logger)
	if err != nil {
		logger.Warn("kafka unavailable, event publishing disabled", logging.Err(err))
	} else {
		defer producer.Close()
		gradingOpts = append(gradingOpts, grading.WithEventPublisher(kafka.NewEventPublisher(producer)))
		if cfg.Kafka.AutoCreateTopics {
			ensureTopics(ctx, cfg, logger)
		}
	}

	minioClient, err := minio.NewClient(&cfg.MinIO, logger)
	if err != nil {
		logger.Warn("minio unavailable, transcript archival disabled", logging.Err(err))
	} else {
		gradingOpts = append(gradingOpts, grading.WithTranscriptStore(minio.NewTranscriptStore(minioClient, logger)))
		checkers = append(checkers, &minioHealthAdapter{client: minioClient})
	}

	var searchHandler *handlers.SearchHandler
	osClient, err := opensearch.NewClient(cfg.OpenSearch, logger)
	if err != nil {
		logger.Warn("opensearch unavailable, lexical scoring falls back in-process", logging.Err(err))
	} else {
		defer osClient.Close()
		if err := opensearch.NewIndexer(osClient, logger).EnsureIndex(ctx); err != nil {
			logger.Warn("utterance index bootstrap failed", logging.Err(err))
		}
		matcherOpts = append(matcherOpts, evaluation.WithLexicalScorer(opensearch.NewLexicalScorer(osClient, logger)))
		searchHandler = handlers.NewSearchHandler(opensearch.NewSearcher(osClient, logger), logger)
		checkers = append(checkers, &opensearchHealthAdapter{client: osClient})
	}

	milvusClient, err := milvus.NewClient(cfg.Milvus.ClientConfig, logger)
	if err != nil {
		logger.Warn("milvus unavailable, semantic scoring disabled", logging.Err(err))
	} else {
		defer milvusClient.Close()
		collection := milvus.NewUtteranceCollectionManager(milvusClient, cfg.Milvus.Collection, logger)
		if err := collection.Ensure(ctx); err != nil {
			logger.Warn("utterance collection bootstrap failed", logging.Err(err))
		}
		embedder := embed.NewClient(cfg.Embed.ToEmbed())
		matcherOpts = append(matcherOpts, evaluation.WithSemanticScorer(
			milvus.NewSemanticScorer(milvusClient, collection, embedder, logger)))
		checkers = append(checkers, &milvusHealthAdapter{client: milvusClient})
	}

	collector, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{Namespace: "opgrader"}, logger)
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}
	appMetrics := prometheus.NewAppMetrics(collector)
	gradingOpts = append(gradingOpts,
		grading.WithMetrics(prometheus.NewGradingMetrics(appMetrics)),
		grading.WithMatcherOptions(matcherOpts...),
	)

	gradingSvc := grading.NewService(rubricRepo, logger, gradingOpts...)
	rubricSvc := apprubric.NewService(rubricRepo, logger, rubricOpts...)
	dictationSvc := dictation.NewService(oracle.NewClient(cfg.Oracle.ToOracle(), logger), logger)

	router := httpserver.NewRouter(httpserver.RouterConfig{
		GradingHandler:   handlers.NewGradingHandler(gradingSvc, cache, logger),
		RubricHandler:    handlers.NewRubricHandler(rubricSvc, logger),
		DictationHandler: handlers.NewDictationHandler(dictationSvc, logger),
		SearchHandler:    searchHandler,
		HealthHandler:    handlers.NewHealthHandler(version, checkers...),
		Logger:           logger,
		Metrics:          appMetrics,
		Collector:        collector,
		Mode:             cfg.Server.Mode,
	})

	server := httpserver.NewServer(httpserver.ServerConfig{
		Port:            cfg.Server.Port,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}, router, logger)

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		logger.Info("received shutdown signal", logging.String("signal", sig.String()))
	}

	return server.Shutdown(ctx)
}

// ensureTopics provisions the standard topics, tolerating broker hiccups so
// a slow Kafka never blocks API startup.
func ensureTopics(ctx context.Context, cfg *config.Config, logger logging.Logger) {
	manager, err := kafka.NewTopicManager(cfg.Kafka.Brokers, logger)
	if err != nil {
		logger.Warn("topic manager unavailable", logging.Err(err))
		return
	}
	defer manager.Close()

	topics := kafka.DefaultTopics()
	for i := range topics {
		topics[i].NumPartitions = cfg.Kafka.NumPartitions
		topics[i].ReplicationFactor = cfg.Kafka.ReplicationFactor
	}
	tctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := manager.EnsureTopics(tctx, topics); err != nil {
		logger.Warn("topic provisioning failed", logging.Err(err))
	}
}
