package domain

import (
	"context"
	"log/slog"
	"math"
)

// ScoreSource records which model produced a fire probability.
type ScoreSource string

const (
	SourceClassifier ScoreSource = "classifier"
	SourceFallback   ScoreSource = "fallback"
)

// ScoreRecord asks the classifier for a fire probability. If classifier is nil,
// fails, or returns a value outside [0, 1], the fallback formula is used and
// the caller never sees an error (graceful degradation).
func ScoreRecord(ctx context.Context, r EnvironmentalRecord, classifier Classifier, logger *slog.Logger) (float64, ScoreSource) {
	f := FeaturesOf(r)
	if FallbackOnly(classifier) {
		return FallbackScore(f), SourceFallback
	}

	p, err := classifier.Classify(ctx, f)
	if err != nil {
		logger.Debug("classifier failed, using fallback",
			"lat", r.Coordinate.Lat,
			"lon", r.Coordinate.Lon,
			"error", err,
		)
		return FallbackScore(f), SourceFallback
	}
	if math.IsNaN(p) || p < 0 || p > 1 {
		logger.Debug("classifier returned out-of-range probability, using fallback",
			"lat", r.Coordinate.Lat,
			"lon", r.Coordinate.Lon,
			"probability", p,
		)
		return FallbackScore(f), SourceFallback
	}
	return p, SourceClassifier
}
