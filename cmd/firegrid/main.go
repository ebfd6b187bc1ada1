package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/couchcryptid/firegrid/internal/adapter/classifier"
	httpadapter "github.com/couchcryptid/firegrid/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/firegrid/internal/adapter/kafka"
	"github.com/couchcryptid/firegrid/internal/config"
	"github.com/couchcryptid/firegrid/internal/domain"
	"github.com/couchcryptid/firegrid/internal/observability"
	"github.com/couchcryptid/firegrid/internal/pipeline"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

func main() {
	_ = godotenv.Load(".env")

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.InitTracing(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to init tracing", "error", err)
		os.Exit(1)
	}

	// Initialize classifier (feature-flagged via CLASSIFIER_ENABLED / CLASSIFIER_URL).
	model, redisClient := newClassifier(cfg, metrics, logger)

	genCfg := pipeline.GeneratorConfig{
		SynthChunkSize:      cfg.SynthChunkSize,
		ScoreChunkSize:      cfg.ScoreChunkSize,
		GenerationBatchSize: cfg.GenerationBatchSize,
		Concurrency:         runtime.GOMAXPROCS(0),
		MaxGridCells:        cfg.MaxGridCells,
		StartupDelay:        cfg.StartupDelay,
		SettleDelay:         cfg.SettleDelay,
	}
	newGenerator := func() *pipeline.Generator {
		scorer := pipeline.NewScorer(model, cfg.ScoreChunkSize, genCfg.Concurrency, logger, metrics)
		return pipeline.NewGenerator(genCfg, scorer, logger, metrics)
	}

	// HTTP callers and the Kafka loop each own a generator so a synchronous
	// request never rejects a queued one.
	httpGenerator := newGenerator()
	var ready sharedobs.ReadinessChecker = httpGenerator

	var (
		reader *kafkaadapter.Reader
		writer *kafkaadapter.Writer
		p      *pipeline.Pipeline
	)
	if cfg.KafkaEnabled {
		reader = kafkaadapter.NewReader(cfg, logger)
		writer = kafkaadapter.NewWriter(cfg, logger)
		transformer := pipeline.NewTransformer(newGenerator(), cfg.GenerationBatchSize, logger)
		p = pipeline.New(reader, transformer, writer, logger, metrics, cfg.BatchSize)
		ready = p
	} else {
		logger.Info("kafka pipeline disabled")
	}

	srv := httpadapter.NewServer(cfg.HTTPAddr, ready, httpGenerator, cfg.GenerationTimeout, logger)

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start generation pipeline.
	if p != nil {
		go func() {
			if err := p.Run(ctx); err != nil {
				logger.Error("pipeline error", "error", err)
			}
		}()
	}

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	httpGenerator.Cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if reader != nil {
		if err := reader.Close(); err != nil {
			logger.Error("kafka reader close error", "error", err)
		}
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			logger.Error("redis close error", "error", err)
		}
	}
	observability.ShutdownTracing(shutdownCtx, shutdownTracing, logger)

	logger.Info("shutdown complete")
}

// newClassifier builds the model chain: HTTP client, then the optional Redis
// tier, then the in-memory LRU. It returns the formula classifier when no model
// is configured.
func newClassifier(cfg *config.Config, metrics *observability.Metrics, logger *slog.Logger) (domain.Classifier, *redis.Client) {
	if !cfg.ClassifierEnabled {
		metrics.ClassifierEnabled.Set(0)
		logger.Info("classifier disabled, scoring with fallback formula")
		return domain.FormulaClassifier{}, nil
	}
	metrics.ClassifierEnabled.Set(1)

	var model domain.Classifier = classifier.NewClient(cfg.ClassifierURL, cfg.ClassifierTimeout, metrics, logger)

	redisClient := classifier.OpenRedis(cfg.ClassifierRedisAddr)
	if redisClient != nil {
		model = classifier.NewRedisCache(model, redisClient, cfg.ClassifierRedisTTL, metrics, logger)
		logger.Info("classifier redis cache enabled", "addr", cfg.ClassifierRedisAddr, "ttl", cfg.ClassifierRedisTTL)
	}

	model = classifier.NewCachedClassifier(model, cfg.ClassifierCacheSize, metrics)
	logger.Info("classifier enabled",
		"url", cfg.ClassifierURL,
		"cache_size", cfg.ClassifierCacheSize,
		"timeout", cfg.ClassifierTimeout,
	)
	return model, redisClient
}
