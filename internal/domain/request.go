package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"
)

var (
	// ErrInvalidRequest wraps every request validation failure.
	ErrInvalidRequest = errors.New("invalid generation request")

	// ErrGridTooLarge is returned when a request would exceed the cell cap.
	ErrGridTooLarge = errors.New("grid exceeds maximum cell count")
)

// OptionOverrides lets a request replace individual synthesis parameters.
// Nil fields keep their defaults.
type OptionOverrides struct {
	SeasonAmplitude             *float64 `json:"season_amplitude,omitempty"`
	BaselineVegetationIndex     *float64 `json:"baseline_vegetation_index,omitempty"`
	VegetationNoiseSigma        *float64 `json:"vegetation_noise_sigma,omitempty"`
	TempBaseC                   *float64 `json:"temp_base_c,omitempty"`
	TempSeasonAmplitude         *float64 `json:"temp_season_amplitude,omitempty"`
	TempNoiseSigma              *float64 `json:"temp_noise_sigma,omitempty"`
	BurnBaseProbability         *float64 `json:"burn_base_probability,omitempty"`
	BurnSensitivityToVegetation *float64 `json:"burn_sensitivity_to_vegetation,omitempty"`
	BurnSensitivityToTemp       *float64 `json:"burn_sensitivity_to_temp,omitempty"`
}

// GenerationRequest asks for a grid over a bounding box to be synthesized and,
// optionally, scored.
type GenerationRequest struct {
	ID            string           `json:"id,omitempty"`
	BoundingBox   BoundingBox      `json:"bbox"`
	SpacingMeters float64          `json:"spacing_m"`
	Seed          *uint64          `json:"seed,omitempty"`
	ReferenceDate string           `json:"reference_date,omitempty"` // YYYY-MM-DD, default today (UTC)
	Score         bool             `json:"score"`
	Options       *OptionOverrides `json:"options,omitempty"`
}

// ParseGenerationRequest decodes a JSON request and assigns a deterministic ID
// when none is given.
func ParseGenerationRequest(data []byte) (GenerationRequest, error) {
	var req GenerationRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return GenerationRequest{}, fmt.Errorf("%w: parse: %w", ErrInvalidRequest, err)
	}
	if req.ID == "" {
		req.ID = generateID(req)
	}
	return req, nil
}

// Validate checks geometry and the projected cell count against maxCells
// (zero disables the cap).
func (r GenerationRequest) Validate(maxCells int) error {
	if !r.BoundingBox.Valid() {
		return fmt.Errorf("%w: bounding box out of range", ErrInvalidRequest)
	}
	if math.IsNaN(r.SpacingMeters) || math.IsInf(r.SpacingMeters, 0) || r.SpacingMeters <= 0 {
		return fmt.Errorf("%w: spacing_m must be a positive number", ErrInvalidRequest)
	}
	if _, err := r.referenceDate(); err != nil {
		return err
	}
	if maxCells > 0 {
		latCount, lonCount := GridDims(r.BoundingBox, r.SpacingMeters)
		if latCount > maxCells || lonCount > maxCells || latCount*lonCount > maxCells {
			return fmt.Errorf("%w: %d x %d cells, limit %d", ErrGridTooLarge, latCount, lonCount, maxCells)
		}
	}
	return nil
}

// SynthesisOptions resolves the request into normalized synthesis options.
func (r GenerationRequest) SynthesisOptions() (SynthesisOptions, error) {
	opts := DefaultOptions()
	if r.Seed != nil {
		opts.Seed = *r.Seed
	}
	date, err := r.referenceDate()
	if err != nil {
		return SynthesisOptions{}, err
	}
	if !date.IsZero() {
		opts.ReferenceDate = date
	}
	if o := r.Options; o != nil {
		override(&opts.SeasonAmplitude, o.SeasonAmplitude)
		override(&opts.BaselineVegetationIndex, o.BaselineVegetationIndex)
		override(&opts.VegetationNoiseSigma, o.VegetationNoiseSigma)
		override(&opts.TempBaseC, o.TempBaseC)
		override(&opts.TempSeasonAmplitude, o.TempSeasonAmplitude)
		override(&opts.TempNoiseSigma, o.TempNoiseSigma)
		override(&opts.BurnBaseProbability, o.BurnBaseProbability)
		override(&opts.BurnSensitivityToVegetation, o.BurnSensitivityToVegetation)
		override(&opts.BurnSensitivityToTemp, o.BurnSensitivityToTemp)
	}
	return opts.Normalized(), nil
}

func (r GenerationRequest) referenceDate() (time.Time, error) {
	if r.ReferenceDate == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(isoDate, r.ReferenceDate)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: reference_date: %w", ErrInvalidRequest, err)
	}
	return t, nil
}

func override(dst, src *float64) {
	if src != nil {
		*dst = *src
	}
}

// generateID derives a stable ID from the request's geometry, seed and date so
// replays of the same request land on the same report key.
func generateID(r GenerationRequest) string {
	seed := DefaultSeed
	if r.Seed != nil {
		seed = *r.Seed
	}
	b := r.BoundingBox
	input := fmt.Sprintf("%.6f|%.6f|%.6f|%.6f|%g|%d|%s|%t",
		b.MinLat, b.MaxLat, b.MinLon, b.MaxLon, r.SpacingMeters, seed, r.ReferenceDate, r.Score)
	hash := sha256.Sum256([]byte(input))
	return "grid-" + hex.EncodeToString(hash[:8])
}
