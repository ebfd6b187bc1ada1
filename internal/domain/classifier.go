package domain

import (
	"context"
	"errors"
)

// ErrClassifierUnavailable signals that no model could produce a probability.
var ErrClassifierUnavailable = errors.New("classifier unavailable")

// Features are the inputs a fire-risk classifier sees for one record.
type Features struct {
	VegetationIndex float64 `json:"vegetation_index"`
	SurfaceTempC    float64 `json:"surface_temp_c"`
	BurnProbability float64 `json:"burn_probability"`
}

// FeaturesOf extracts classifier inputs from a record.
func FeaturesOf(r EnvironmentalRecord) Features {
	return Features{
		VegetationIndex: r.VegetationIndex,
		SurfaceTempC:    r.SurfaceTempC,
		BurnProbability: r.BurnProbability,
	}
}

// Classifier maps record features to a fire probability in [0, 1].
type Classifier interface {
	Classify(ctx context.Context, f Features) (float64, error)
}

// FormulaClassifier is the closed-form fallback model. It never fails.
type FormulaClassifier struct{}

// Classify returns FallbackScore(f).
func (FormulaClassifier) Classify(_ context.Context, f Features) (float64, error) {
	return FallbackScore(f), nil
}

// FallbackOnly reports whether c never consults a model: it is nil or the
// formula classifier itself.
func FallbackOnly(c Classifier) bool {
	_, formula := c.(FormulaClassifier)
	return c == nil || formula
}

// FallbackScore weighs burn probability, sparse vegetation and heat into a
// fire probability.
func FallbackScore(f Features) float64 {
	ndviFactor := clamp((0.5-f.VegetationIndex)/0.5, 0, 1)
	tempFactor := clamp((f.SurfaceTempC-25)/30, 0, 1)
	return clamp(0.5*f.BurnProbability+0.35*ndviFactor+0.15*tempFactor, 0, 1)
}
