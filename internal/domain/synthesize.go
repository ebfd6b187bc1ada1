package domain

import "math"

const (
	minVegetationIndex = -1.0
	maxVegetationIndex = 1.0
	minSurfaceTempC    = -50.0
	maxSurfaceTempC    = 70.0

	// vegetationTempGain is the warming, in °C, per unit of missing vegetation.
	vegetationTempGain = 6.0

	// tempPhaseLag delays the temperature season a quarter cycle behind vegetation.
	tempPhaseLag = 0.25

	isoDate = "2006-01-02"
)

// Synthesize derives the environmental record for a single coordinate. The
// result depends only on c and opts, so concurrent callers need no coordination.
// A zero seed is treated as the normalized replacement seed.
func Synthesize(c Coordinate, opts SynthesisOptions) EnvironmentalRecord {
	if opts.Seed == 0 {
		opts.Seed = zeroSeedReplacement
	}
	rng := NewRNG(opts.WithSeedOffset(SeedOffset(c)).Seed)

	phase := yearPhase(opts)
	season := opts.SeasonAmplitude * math.Cos(2*math.Pi*phase)
	baseline := opts.BaselineVegetationIndex + SpatialOffset(c)
	vegetation := clamp(baseline+season+rng.Gaussian(0, opts.VegetationNoiseSigma), minVegetationIndex, maxVegetationIndex)

	tempSeason := opts.TempSeasonAmplitude * math.Cos(2*math.Pi*(phase+tempPhaseLag))
	vegetationInfluence := (1 - clamp(vegetation, minVegetationIndex, maxVegetationIndex)) * vegetationTempGain
	temp := clamp(opts.TempBaseC+tempSeason+vegetationInfluence+rng.Gaussian(0, opts.TempNoiseSigma), minSurfaceTempC, maxSurfaceTempC)

	vegetationRisk := math.Max(0, 0.5-vegetation) * opts.BurnSensitivityToVegetation
	tempRisk := math.Max(0, temp-opts.TempBaseC) * opts.BurnSensitivityToTemp
	burnProbability := clamp(opts.BurnBaseProbability+vegetationRisk+tempRisk, 0, 1)

	return EnvironmentalRecord{
		Coordinate:      c,
		VegetationIndex: vegetation,
		SurfaceTempC:    temp,
		BurnProbability: burnProbability,
		Burned:          rng.Uniform01() < burnProbability,
		DateISO:         opts.ReferenceDate.Format(isoDate),
	}
}

// SynthesizeBatch synthesizes coords sequentially, preserving order.
func SynthesizeBatch(coords []Coordinate, opts SynthesisOptions) []EnvironmentalRecord {
	out := make([]EnvironmentalRecord, len(coords))
	for i, c := range coords {
		out[i] = Synthesize(c, opts)
	}
	return out
}

// yearPhase is the reference date's day-of-year as a fraction of its year.
func yearPhase(opts SynthesisOptions) float64 {
	d := opts.ReferenceDate
	daysInYear := 365.0
	if y := d.Year(); y%4 == 0 && (y%100 != 0 || y%400 == 0) {
		daysInYear = 366
	}
	return float64(d.YearDay()) / daysInYear
}

// clamp bounds v to [lo, hi]; NaN maps to lo.
func clamp(v, lo, hi float64) float64 {
	switch {
	case math.IsNaN(v), v < lo:
		return lo
	case v > hi:
		return hi
	default:
		return v
	}
}
