package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	defaultBroker = "localhost:9092"
	testModelURL  = "http://classifier.local/v1/score"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.KafkaEnabled)
	assert.Equal(t, []string{defaultBroker}, cfg.KafkaBrokers)
	assert.Equal(t, "grid-generation-requests", cfg.KafkaSourceTopic)
	assert.Equal(t, "wildfire-risk-reports", cfg.KafkaSinkTopic)
	assert.Equal(t, "firegrid", cfg.KafkaGroupID)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, 50, cfg.BatchSize)
	assert.Equal(t, 500*time.Millisecond, cfg.BatchFlushInterval)

	assert.Equal(t, 200, cfg.SynthChunkSize)
	assert.Equal(t, 500, cfg.ScoreChunkSize)
	assert.Equal(t, 800, cfg.GenerationBatchSize)
	assert.Equal(t, 250000, cfg.MaxGridCells)
	assert.Zero(t, cfg.StartupDelay)
	assert.Zero(t, cfg.SettleDelay)
	assert.Equal(t, 5*time.Minute, cfg.GenerationTimeout)

	assert.False(t, cfg.ClassifierEnabled)
	assert.Empty(t, cfg.ClassifierURL)
	assert.Equal(t, 2*time.Second, cfg.ClassifierTimeout)
	assert.Equal(t, 10000, cfg.ClassifierCacheSize)
	assert.Empty(t, cfg.ClassifierRedisAddr)
	assert.Equal(t, 24*time.Hour, cfg.ClassifierRedisTTL)

	assert.False(t, cfg.TracingEnabled)
	assert.Equal(t, "stdout", cfg.TracingExporter)
	assert.InDelta(t, 1.0, cfg.TracingSampleRatio, 1e-9)
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "broker1:9092,broker2:9092")
	t.Setenv("KAFKA_SOURCE_TOPIC", "custom-source")
	t.Setenv("KAFKA_SINK_TOPIC", "custom-sink")
	t.Setenv("KAFKA_GROUP_ID", "custom-group")
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")
	t.Setenv("BATCH_SIZE", "100")
	t.Setenv("BATCH_FLUSH_INTERVAL", "1s")
	t.Setenv("SYNTH_CHUNK_SIZE", "64")
	t.Setenv("SCORE_CHUNK_SIZE", "128")
	t.Setenv("GENERATION_BATCH_SIZE", "1024")
	t.Setenv("MAX_GRID_CELLS", "5000")
	t.Setenv("GENERATION_STARTUP_DELAY", "300ms")
	t.Setenv("GENERATION_SETTLE_DELAY", "150ms")
	t.Setenv("CLASSIFIER_URL", testModelURL)
	t.Setenv("CLASSIFIER_TIMEOUT", "750ms")
	t.Setenv("CLASSIFIER_CACHE_SIZE", "42")
	t.Setenv("CLASSIFIER_REDIS_ADDR", "localhost:6379")
	t.Setenv("CLASSIFIER_REDIS_TTL", "1h")
	t.Setenv("TRACING_ENABLED", "true")
	t.Setenv("TRACING_EXPORTER", "otlp")
	t.Setenv("TRACING_SAMPLE_RATIO", "0.25")
	t.Setenv("OTLP_ENDPOINT", "collector:4317")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "custom-source", cfg.KafkaSourceTopic)
	assert.Equal(t, "custom-sink", cfg.KafkaSinkTopic)
	assert.Equal(t, "custom-group", cfg.KafkaGroupID)
	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, 100, cfg.BatchSize)
	assert.Equal(t, 1*time.Second, cfg.BatchFlushInterval)
	assert.Equal(t, 64, cfg.SynthChunkSize)
	assert.Equal(t, 128, cfg.ScoreChunkSize)
	assert.Equal(t, 1024, cfg.GenerationBatchSize)
	assert.Equal(t, 5000, cfg.MaxGridCells)
	assert.Equal(t, 300*time.Millisecond, cfg.StartupDelay)
	assert.Equal(t, 150*time.Millisecond, cfg.SettleDelay)
	assert.True(t, cfg.ClassifierEnabled)
	assert.Equal(t, testModelURL, cfg.ClassifierURL)
	assert.Equal(t, 750*time.Millisecond, cfg.ClassifierTimeout)
	assert.Equal(t, 42, cfg.ClassifierCacheSize)
	assert.Equal(t, "localhost:6379", cfg.ClassifierRedisAddr)
	assert.Equal(t, time.Hour, cfg.ClassifierRedisTTL)
	assert.True(t, cfg.TracingEnabled)
	assert.Equal(t, "otlp", cfg.TracingExporter)
	assert.InDelta(t, 0.25, cfg.TracingSampleRatio, 1e-9)
	assert.Equal(t, "collector:4317", cfg.OTLPEndpoint)
}

func TestLoad_InvalidShutdownTimeout(t *testing.T) {
	t.Setenv("SHUTDOWN_TIMEOUT", "not-a-duration")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SHUTDOWN_TIMEOUT")
}

func TestLoad_InvalidBatchSize(t *testing.T) {
	t.Setenv("BATCH_SIZE", "0")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BATCH_SIZE")
}

func TestLoad_InvalidBatchFlushInterval(t *testing.T) {
	t.Setenv("BATCH_FLUSH_INTERVAL", "not-a-duration")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BATCH_FLUSH_INTERVAL")
}

func TestLoad_InvalidChunkSizes(t *testing.T) {
	for _, key := range []string{"SYNTH_CHUNK_SIZE", "SCORE_CHUNK_SIZE", "GENERATION_BATCH_SIZE", "MAX_GRID_CELLS"} {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, "-5")
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), key)
		})
	}
}

func TestLoad_NegativeDelay(t *testing.T) {
	t.Setenv("GENERATION_STARTUP_DELAY", "-1s")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GENERATION_STARTUP_DELAY")
}

func TestLoad_ZeroGenerationTimeout(t *testing.T) {
	t.Setenv("GENERATION_TIMEOUT", "0s")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GENERATION_TIMEOUT")
}

func TestLoad_ZeroClassifierTimeout(t *testing.T) {
	t.Setenv("CLASSIFIER_TIMEOUT", "0s")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CLASSIFIER_TIMEOUT")
}

func TestLoad_ClassifierEnabledWithoutURL(t *testing.T) {
	t.Setenv("CLASSIFIER_ENABLED", "true")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CLASSIFIER_URL")
}

func TestLoad_ClassifierURLImpliesEnabled(t *testing.T) {
	t.Setenv("CLASSIFIER_URL", testModelURL)
	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.ClassifierEnabled)
}

func TestLoad_ClassifierExplicitlyDisabled(t *testing.T) {
	t.Setenv("CLASSIFIER_URL", testModelURL)
	t.Setenv("CLASSIFIER_ENABLED", "false")
	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.ClassifierEnabled)
}

func TestLoad_KafkaDisabledSkipsTopicValidation(t *testing.T) {
	t.Setenv("KAFKA_ENABLED", "false")
	t.Setenv("KAFKA_SOURCE_TOPIC", "")
	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.KafkaEnabled)
}

func TestLoad_InvalidTracing(t *testing.T) {
	t.Setenv("TRACING_EXPORTER", "zipkin")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TRACING_EXPORTER")

	t.Setenv("TRACING_EXPORTER", "stdout")
	t.Setenv("TRACING_SAMPLE_RATIO", "1.5")
	_, err = Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TRACING_SAMPLE_RATIO")
}
