// The worker binary consumes grading.requested events, runs the grading
// pipeline, and indexes the graded transcripts for search.  It exposes the
// same health and metrics surface as the API server so both deploy behind
// identical probes.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/turtacn/opgrader/internal/application/grading"
	"github.com/turtacn/opgrader/internal/config"
	"github.com/turtacn/opgrader/internal/domain/evaluation"
	"github.com/turtacn/opgrader/internal/domain/transcript"
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
	httpserver "github.com/turtacn/opgrader/internal/interfaces/http"
	"github.com/turtacn/opgrader/internal/interfaces/http/handlers"
)

const (
	defaultConfigPath = "configs/config.yaml"
	defaultHealthPort = 8081
)

// version is injected via ldflags.
var version = "dev"

func main() {
	configPath := flag.String("config", defaultConfigPath, "path to configuration file")
	healthPort := flag.Int("health-port", defaultHealthPort, "health and metrics port")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.NewLogger(cfg.Log.ToLogging())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	if err := run(cfg, *healthPort, logger); err != nil {
		logger.Fatal("worker failed", logging.Err(err))
	}
}

func loadConfig(path string) (*config.Config, error) {
	if _, err := os.Stat(path); err == nil {
		return config.Load(path)
	}
	return config.LoadFromEnv()
}

func run(cfg *config.Config, healthPort int, logger logging.Logger) error {
	ctx := context.Background()

	logger.Info("starting opgrader worker",
		logging.String("version", version),
		logging.String("group", cfg.Kafka.GroupID),
	)

	conn, err := postgres.NewConnection(cfg.Postgres, logger)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	defer conn.Close()
	rubricRepo := repositories.NewRubricRepository(conn.DB(), logger)
	submissionRepo := repositories.NewSubmissionRepository(conn.DB(), logger)

	checkers := []handlers.HealthChecker{&postgresHealthAdapter{conn: conn}}

	gradingOpts := []grading.Option{grading.WithSubmissionStore(submissionRepo)}
	var matcherOpts []evaluation.MatcherOption

	redisClient, err := redis.NewClient(&cfg.Redis, logger)
	if err != nil {
		logger.Warn("redis unavailable, result caching disabled", logging.Err(err))
	} else {
		defer redisClient.Close()
		gradingOpts = append(gradingOpts,
			grading.WithArtifactCache(redis.NewArtifactCache(redis.NewCache(redisClient, logger))))
		checkers = append(checkers, &redisHealthAdapter{client: redisClient})
	}

	producer, err := kafka.NewProducer(cfg.Kafka.ProducerConfig(), logger)
	if err != nil {
		logger.Warn("kafka producer unavailable, completed events disabled", logging.Err(err))
	} else {
		defer producer.Close()
		gradingOpts = append(gradingOpts, grading.WithEventPublisher(kafka.NewEventPublisher(producer)))
	}

	minioClient, err := minio.NewClient(&cfg.MinIO, logger)
	if err != nil {
		logger.Warn("minio unavailable, transcript archival disabled", logging.Err(err))
	} else {
		gradingOpts = append(gradingOpts, grading.WithTranscriptStore(minio.NewTranscriptStore(minioClient, logger)))
		checkers = append(checkers, &minioHealthAdapter{client: minioClient})
	}

	var indexer *opensearch.Indexer
	osClient, err := opensearch.NewClient(cfg.OpenSearch, logger)
	if err != nil {
		logger.Warn("opensearch unavailable, utterance indexing disabled", logging.Err(err))
	} else {
		defer osClient.Close()
		indexer = opensearch.NewIndexer(osClient, logger)
		if err := indexer.EnsureIndex(ctx); err != nil {
			logger.Warn("utterance index bootstrap failed", logging.Err(err))
		}
		matcherOpts = append(matcherOpts, evaluation.WithLexicalScorer(opensearch.NewLexicalScorer(osClient, logger)))
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

	consumer, err := kafka.NewConsumer(cfg.Kafka.ConsumerConfig([]string{kafka.TopicGradingRequested}), logger)
	if err != nil {
		return fmt.Errorf("kafka consumer: %w", err)
	}
	defer consumer.Close()
	consumer.Subscribe(kafka.TopicGradingRequested, gradingRequestedHandler(gradingSvc, indexer, logger))

	if err := consumer.Start(ctx); err != nil {
		return err
	}

	// Health and metrics only; nil API handlers leave those routes off.
	healthSrv := httpserver.NewServer(httpserver.ServerConfig{Port: healthPort},
		httpserver.NewRouter(httpserver.RouterConfig{
			HealthHandler: handlers.NewHealthHandler(version, checkers...),
			Logger:        logger,
			Metrics:       appMetrics,
			Collector:     collector,
			Mode:          cfg.Server.Mode,
		}), logger)

	errCh := make(chan error, 1)
	go func() { errCh <- healthSrv.Start() }()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		logger.Info("received shutdown signal", logging.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	return healthSrv.Shutdown(shutdownCtx)
}

// gradingRequestedHandler grades one requested transcript and indexes its
// utterances for search.  Indexing failures are logged, not retried: the
// grading result is the deliverable, search is an accelerator.
func gradingRequestedHandler(svc grading.Service, indexer *opensearch.Indexer, logger logging.Logger) kafka.MessageHandler {
	parser := transcript.NewParser()

	return func(ctx context.Context, msg *kafka.Message) error {
		env, err := kafka.MessageToEventEnvelope(msg)
		if err != nil {
			return err
		}
		var payload kafka.GradingRequestedPayload
		if err := env.DecodePayload(&payload); err != nil {
			return err
		}

		res, err := svc.Grade(ctx, &grading.Request{
			RubricID:      payload.RubricID,
			RubricVersion: payload.RubricVersion,
			TranscriptID:  payload.TranscriptID,
			RawText:       payload.RawText,
		})
		if err != nil {
			return err
		}

		if indexer != nil {
			utterances := parser.Parse(payload.RawText)
			docs := make([]opensearch.UtteranceDoc, 0, len(utterances))
			for i, u := range utterances {
				docs = append(docs, opensearch.UtteranceDoc{
					TranscriptID: payload.TranscriptID,
					Line:         i + 1,
					Speaker:      string(u.Speaker),
					Text:         u.Text,
				})
			}
			if err := indexer.IndexUtterances(ctx, docs); err != nil {
				logger.Warn("utterance indexing failed",
					logging.String("transcript_id", payload.TranscriptID),
					logging.Err(err))
			}
		}

		logger.Info("grading request processed",
			logging.String("grading_id", res.GradingID),
			logging.String("transcript_id", res.TranscriptID),
			logging.Float64("overall_score", res.OverallScore),
		)
		return nil
	}
}
