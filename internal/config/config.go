package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	KafkaEnabled     bool
	KafkaBrokers     []string
	KafkaSourceTopic string
	KafkaSinkTopic   string
	KafkaGroupID     string
	HTTPAddr         string
	LogLevel         string
	LogFormat        string
	ShutdownTimeout  time.Duration

	BatchSize          int
	BatchFlushInterval time.Duration

	// Generation tuning.
	SynthChunkSize      int
	ScoreChunkSize      int
	GenerationBatchSize int
	MaxGridCells        int
	StartupDelay        time.Duration
	SettleDelay         time.Duration
	GenerationTimeout   time.Duration

	// Remote classifier configuration.
	ClassifierURL       string
	ClassifierEnabled   bool
	ClassifierTimeout   time.Duration
	ClassifierCacheSize int
	ClassifierRedisAddr string
	ClassifierRedisTTL  time.Duration

	// Tracing configuration.
	ServiceName        string
	TracingEnabled     bool
	TracingExporter    string
	TracingSampleRatio float64
	OTLPEndpoint       string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	batchSize, err := sharedcfg.ParseBatchSize()
	if err != nil {
		return nil, err
	}

	flushInterval, err := sharedcfg.ParseBatchFlushInterval()
	if err != nil {
		return nil, err
	}

	synthChunk, err := parsePositiveInt("SYNTH_CHUNK_SIZE", 200)
	if err != nil {
		return nil, err
	}
	scoreChunk, err := parsePositiveInt("SCORE_CHUNK_SIZE", 500)
	if err != nil {
		return nil, err
	}
	generationBatch, err := parsePositiveInt("GENERATION_BATCH_SIZE", 800)
	if err != nil {
		return nil, err
	}
	maxCells, err := parsePositiveInt("MAX_GRID_CELLS", 250000)
	if err != nil {
		return nil, err
	}

	startupDelay, err := parseDuration("GENERATION_STARTUP_DELAY", "0s", true)
	if err != nil {
		return nil, err
	}
	settleDelay, err := parseDuration("GENERATION_SETTLE_DELAY", "0s", true)
	if err != nil {
		return nil, err
	}

	generationTimeout, err := parseDuration("GENERATION_TIMEOUT", "5m", false)
	if err != nil {
		return nil, err
	}

	classifierTimeout, err := parseDuration("CLASSIFIER_TIMEOUT", "2s", false)
	if err != nil {
		return nil, err
	}
	redisTTL, err := parseDuration("CLASSIFIER_REDIS_TTL", "24h", false)
	if err != nil {
		return nil, err
	}
	classifierCacheSize, err := parsePositiveInt("CLASSIFIER_CACHE_SIZE", 10000)
	if err != nil {
		return nil, err
	}

	sampleRatio := 1.0
	if s := os.Getenv("TRACING_SAMPLE_RATIO"); s != "" {
		sampleRatio, err = strconv.ParseFloat(s, 64)
		if err != nil || sampleRatio < 0 || sampleRatio > 1 {
			return nil, errors.New("invalid TRACING_SAMPLE_RATIO")
		}
	}

	classifierURL := os.Getenv("CLASSIFIER_URL")
	classifierEnabled := classifierURL != ""
	if v := os.Getenv("CLASSIFIER_ENABLED"); v != "" {
		classifierEnabled = v == "true"
	}

	cfg := &Config{
		KafkaEnabled:       sharedcfg.EnvOrDefault("KAFKA_ENABLED", "true") == "true",
		KafkaBrokers:       sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSourceTopic:   sharedcfg.EnvOrDefault("KAFKA_SOURCE_TOPIC", "grid-generation-requests"),
		KafkaSinkTopic:     sharedcfg.EnvOrDefault("KAFKA_SINK_TOPIC", "wildfire-risk-reports"),
		KafkaGroupID:       sharedcfg.EnvOrDefault("KAFKA_GROUP_ID", "firegrid"),
		HTTPAddr:           sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:           sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:          sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout:    shutdownTimeout,
		BatchSize:          batchSize,
		BatchFlushInterval: flushInterval,

		SynthChunkSize:      synthChunk,
		ScoreChunkSize:      scoreChunk,
		GenerationBatchSize: generationBatch,
		MaxGridCells:        maxCells,
		StartupDelay:        startupDelay,
		SettleDelay:         settleDelay,
		GenerationTimeout:   generationTimeout,

		ClassifierURL:       classifierURL,
		ClassifierEnabled:   classifierEnabled,
		ClassifierTimeout:   classifierTimeout,
		ClassifierCacheSize: classifierCacheSize,
		ClassifierRedisAddr: os.Getenv("CLASSIFIER_REDIS_ADDR"),
		ClassifierRedisTTL:  redisTTL,

		ServiceName:        sharedcfg.EnvOrDefault("SERVICE_NAME", "firegrid"),
		TracingEnabled:     os.Getenv("TRACING_ENABLED") == "true",
		TracingExporter:    sharedcfg.EnvOrDefault("TRACING_EXPORTER", "stdout"),
		TracingSampleRatio: sampleRatio,
		OTLPEndpoint:       os.Getenv("OTLP_ENDPOINT"),
	}

	if cfg.KafkaEnabled {
		if len(cfg.KafkaBrokers) == 0 {
			return nil, errors.New("KAFKA_BROKERS is required")
		}
		if cfg.KafkaSourceTopic == "" {
			return nil, errors.New("KAFKA_SOURCE_TOPIC is required")
		}
		if cfg.KafkaSinkTopic == "" {
			return nil, errors.New("KAFKA_SINK_TOPIC is required")
		}
	}
	if cfg.ClassifierEnabled && cfg.ClassifierURL == "" {
		return nil, errors.New("CLASSIFIER_ENABLED is true but CLASSIFIER_URL is not set")
	}
	switch cfg.TracingExporter {
	case "stdout", "otlp":
	default:
		return nil, fmt.Errorf("invalid TRACING_EXPORTER %q", cfg.TracingExporter)
	}

	return cfg, nil
}

func parsePositiveInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return n, nil
}

// parseDuration reads a duration, allowing zero only when allowZero is set.
func parseDuration(key, def string, allowZero bool) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d < 0 || (d == 0 && !allowZero) {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}
