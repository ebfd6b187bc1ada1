package domain

import (
	"math"
	"time"
)

// DefaultSeed is the run seed used when a request does not supply one.
const DefaultSeed uint64 = 12345

// SynthesisOptions parameterizes the synthetic environment. Values are copied
// into every Synthesize call and never mutated.
type SynthesisOptions struct {
	Seed          uint64    `json:"seed"`
	ReferenceDate time.Time `json:"reference_date"`

	SeasonAmplitude         float64 `json:"season_amplitude"`
	BaselineVegetationIndex float64 `json:"baseline_vegetation_index"`
	VegetationNoiseSigma    float64 `json:"vegetation_noise_sigma"`

	TempBaseC           float64 `json:"temp_base_c"`
	TempSeasonAmplitude float64 `json:"temp_season_amplitude"`
	TempNoiseSigma      float64 `json:"temp_noise_sigma"`

	BurnBaseProbability         float64 `json:"burn_base_probability"`
	BurnSensitivityToVegetation float64 `json:"burn_sensitivity_to_vegetation"`
	BurnSensitivityToTemp       float64 `json:"burn_sensitivity_to_temp"`
}

// DefaultOptions returns the standard parameter set with the reference date
// taken from the package clock.
func DefaultOptions() SynthesisOptions {
	return SynthesisOptions{
		Seed:                        DefaultSeed,
		ReferenceDate:               today(),
		SeasonAmplitude:             0.35,
		BaselineVegetationIndex:     0.2,
		VegetationNoiseSigma:        0.04,
		TempBaseC:                   15.0,
		TempSeasonAmplitude:         8.0,
		TempNoiseSigma:              1.8,
		BurnBaseProbability:         0.01,
		BurnSensitivityToVegetation: 1.8,
		BurnSensitivityToTemp:       0.03,
	}
}

// Normalized replaces a zero seed with the fixed non-zero constant, a zero
// reference date with today, and any non-finite parameter with its default.
func (o SynthesisOptions) Normalized() SynthesisOptions {
	def := DefaultOptions()
	if o.Seed == 0 {
		o.Seed = zeroSeedReplacement
	}
	if o.ReferenceDate.IsZero() {
		o.ReferenceDate = def.ReferenceDate
	}
	finiteOr(&o.SeasonAmplitude, def.SeasonAmplitude)
	finiteOr(&o.BaselineVegetationIndex, def.BaselineVegetationIndex)
	finiteOr(&o.VegetationNoiseSigma, def.VegetationNoiseSigma)
	finiteOr(&o.TempBaseC, def.TempBaseC)
	finiteOr(&o.TempSeasonAmplitude, def.TempSeasonAmplitude)
	finiteOr(&o.TempNoiseSigma, def.TempNoiseSigma)
	finiteOr(&o.BurnBaseProbability, def.BurnBaseProbability)
	finiteOr(&o.BurnSensitivityToVegetation, def.BurnSensitivityToVegetation)
	finiteOr(&o.BurnSensitivityToTemp, def.BurnSensitivityToTemp)
	return o
}

// WithSeedOffset returns a copy whose seed is advanced by offset (wrapping).
func (o SynthesisOptions) WithSeedOffset(offset uint64) SynthesisOptions {
	o.Seed += offset
	return o
}

func finiteOr(v *float64, def float64) {
	if math.IsNaN(*v) || math.IsInf(*v, 0) {
		*v = def
	}
}
