package pipeline

import (
	"context"
	"log/slog"

	"github.com/couchcryptid/firegrid/internal/domain"
	"github.com/couchcryptid/firegrid/internal/observability"
)

// Scorer assigns fire probabilities to records in concurrent chunks. A nil
// classifier means every record is scored by the fallback formula.
type Scorer struct {
	classifier  domain.Classifier
	chunkSize   int
	concurrency int
	logger      *slog.Logger
	metrics     *observability.Metrics
}

// NewScorer creates a Scorer. chunkSize <= 0 scores everything in one chunk;
// concurrency <= 0 leaves the fan-out unbounded.
func NewScorer(classifier domain.Classifier, chunkSize, concurrency int, logger *slog.Logger, metrics *observability.Metrics) *Scorer {
	return &Scorer{
		classifier:  classifier,
		chunkSize:   chunkSize,
		concurrency: concurrency,
		logger:      logger,
		metrics:     metrics,
	}
}

// Score returns one scored record per input, in input order. Classifier
// failures degrade to the fallback formula and never surface as errors; the
// only error is ctx cancellation.
func (s *Scorer) Score(ctx context.Context, records []domain.EnvironmentalRecord) ([]domain.ScoredRecord, error) {
	scored, err := MapOrdered(ctx, records, s.chunkSize, s.concurrency,
		func(ctx context.Context, chunk []domain.EnvironmentalRecord) []domain.ScoredRecord {
			out := make([]domain.ScoredRecord, len(chunk))
			for i, r := range chunk {
				p, src := domain.ScoreRecord(ctx, r, s.classifier, s.logger)
				out[i] = domain.ScoredRecord{EnvironmentalRecord: r, FireProbability: p, ScoreSource: src}
			}
			return out
		})
	if err != nil {
		return nil, err
	}

	var fallbacks int
	for _, r := range scored {
		if r.ScoreSource == domain.SourceFallback {
			fallbacks++
		}
	}
	s.metrics.Scores.WithLabelValues(string(domain.SourceFallback)).Add(float64(fallbacks))
	s.metrics.Scores.WithLabelValues(string(domain.SourceClassifier)).Add(float64(len(scored) - fallbacks))
	if fallbacks > 0 && !domain.FallbackOnly(s.classifier) {
		s.logger.Warn("classifier unavailable for some records, used fallback formula",
			"fallback", fallbacks,
			"total", len(scored),
		)
	}
	return scored, nil
}

// ScoreStats scores records and aggregates their probabilities.
func (s *Scorer) ScoreStats(ctx context.Context, records []domain.EnvironmentalRecord) ([]domain.ScoredRecord, domain.RiskStats, error) {
	scored, err := s.Score(ctx, records)
	if err != nil {
		return nil, domain.RiskStats{}, err
	}
	return scored, domain.AggregateRisk(Probabilities(scored)), nil
}

// Probabilities extracts the fire probabilities in record order.
func Probabilities(records []domain.ScoredRecord) []float64 {
	out := make([]float64, len(records))
	for i, r := range records {
		out[i] = r.FireProbability
	}
	return out
}
