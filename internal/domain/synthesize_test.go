package domain

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testCoord = Coordinate{Lat: 37.5, Lon: -120.25}
	testDate  = time.Date(2025, 10, 4, 0, 0, 0, 0, time.UTC)
)

func testOptions(seed uint64) SynthesisOptions {
	opts := DefaultOptions()
	opts.Seed = seed
	opts.ReferenceDate = testDate
	return opts
}

func assertInRange(t *testing.T, r EnvironmentalRecord) {
	t.Helper()
	assert.GreaterOrEqual(t, r.VegetationIndex, -1.0)
	assert.LessOrEqual(t, r.VegetationIndex, 1.0)
	assert.GreaterOrEqual(t, r.SurfaceTempC, -50.0)
	assert.LessOrEqual(t, r.SurfaceTempC, 70.0)
	assert.GreaterOrEqual(t, r.BurnProbability, 0.0)
	assert.LessOrEqual(t, r.BurnProbability, 1.0)
}

func TestSynthesize_KnownValues(t *testing.T) {
	tests := []struct {
		name       string
		seed       uint64
		date       time.Time
		vegetation float64
		temp       float64
		burnProb   float64
		burned     bool
	}{
		{"default seed", DefaultSeed, testDate, 0.18800165625768628, 29.482302095197348, 1, true},
		{"seed 1", 1, testDate, 0.255368407727087, 25.21283231672466, 0.7567218355929832, true},
		{"seed 2", 2, testDate, 0.16420652992759843, 25.830843324463874, 0.939353545864239, true},
		{"leap day", DefaultSeed, time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), 0.348608190250916, 13.672662497382799, 0.2825052575483512, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := testOptions(tt.seed)
			opts.ReferenceDate = tt.date
			r := Synthesize(testCoord, opts)

			assert.Equal(t, testCoord, r.Coordinate)
			assert.InDelta(t, tt.vegetation, r.VegetationIndex, 1e-9)
			assert.InDelta(t, tt.temp, r.SurfaceTempC, 1e-9)
			assert.InDelta(t, tt.burnProb, r.BurnProbability, 1e-9)
			assert.Equal(t, tt.burned, r.Burned)
			assert.Equal(t, tt.date.Format("2006-01-02"), r.DateISO)
		})
	}
}

func TestSynthesize_Deterministic(t *testing.T) {
	opts := testOptions(DefaultSeed)
	assert.Equal(t, Synthesize(testCoord, opts), Synthesize(testCoord, opts))

	other := testOptions(DefaultSeed + 1)
	assert.NotEqual(t, Synthesize(testCoord, opts), Synthesize(testCoord, other))
}

func TestSynthesize_ZeroSeedMatchesNormalized(t *testing.T) {
	c := Coordinate{Lat: 1, Lon: 2}
	raw := testOptions(0)

	assert.Equal(t, Synthesize(c, raw.Normalized()), Synthesize(c, raw))
	assert.Equal(t, Synthesize(c, testOptions(zeroSeedReplacement)), Synthesize(c, raw))
	assert.Equal(t, SynthesizeBatch([]Coordinate{c, testCoord}, raw.Normalized()),
		SynthesizeBatch([]Coordinate{c, testCoord}, raw))
}

func TestSynthesize_RangesHoldForExtremeOptions(t *testing.T) {
	box := BoundingBox{MinLat: -80, MaxLat: 80, MinLon: -170, MaxLon: 170}
	coords := BuildGrid(box, 900000)

	extreme := testOptions(99)
	extreme.SeasonAmplitude = 50
	extreme.VegetationNoiseSigma = 1e6
	extreme.TempBaseC = 500
	extreme.TempNoiseSigma = 1e6
	extreme.BurnSensitivityToVegetation = -1e9
	extreme.BurnSensitivityToTemp = 1e9

	nan := testOptions(7)
	nan.SeasonAmplitude = math.NaN()
	nan.BaselineVegetationIndex = math.NaN()
	nan.TempBaseC = math.NaN()
	nan.TempSeasonAmplitude = math.Inf(-1)
	nan.BurnBaseProbability = math.NaN()

	for _, opts := range []SynthesisOptions{extreme, nan} {
		for _, r := range SynthesizeBatch(coords, opts) {
			assertInRange(t, r)
		}
	}
}

func TestSynthesize_NaNClampsToLowerBound(t *testing.T) {
	opts := testOptions(DefaultSeed)
	opts.BaselineVegetationIndex = math.NaN()
	opts.TempBaseC = math.NaN()

	r := Synthesize(testCoord, opts)
	assert.Equal(t, -1.0, r.VegetationIndex)
	assert.Equal(t, -50.0, r.SurfaceTempC)
}

func TestSynthesizeBatch_PreservesOrder(t *testing.T) {
	coords := BuildGrid(BoundingBox{MinLat: 0, MaxLat: 0.05, MinLon: 0, MaxLon: 0.05}, 1000)
	opts := testOptions(DefaultSeed)

	records := SynthesizeBatch(coords, opts)
	require.Len(t, records, len(coords))
	for i, c := range coords {
		assert.Equal(t, Synthesize(c, opts), records[i])
	}
}

func TestYearPhase(t *testing.T) {
	opts := testOptions(1)
	opts.ReferenceDate = time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC)
	assert.InDelta(t, 1.0, yearPhase(opts), 1e-12)

	opts.ReferenceDate = time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)
	assert.InDelta(t, 1.0, yearPhase(opts), 1e-12)

	opts.ReferenceDate = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.InDelta(t, 1.0/366, yearPhase(opts), 1e-12)
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 0.0, clamp(math.NaN(), 0, 1))
	assert.Equal(t, 0.0, clamp(-3, 0, 1))
	assert.Equal(t, 1.0, clamp(3, 0, 1))
	assert.Equal(t, 0.25, clamp(0.25, 0, 1))
	assert.Equal(t, 1.0, clamp(math.Inf(1), 0, 1))
}
