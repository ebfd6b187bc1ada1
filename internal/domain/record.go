package domain

// EnvironmentalRecord is one synthesized grid sample.
type EnvironmentalRecord struct {
	Coordinate      Coordinate `json:"coordinate"`
	VegetationIndex float64    `json:"vegetation_index"` // [-1, 1]
	SurfaceTempC    float64    `json:"surface_temp_c"`   // [-50, 70]
	BurnProbability float64    `json:"burn_probability"` // [0, 1]
	Burned          bool       `json:"burned"`
	DateISO         string     `json:"date"` // YYYY-MM-DD
}

// ScoredRecord pairs a record with its fire probability and where that came from.
type ScoredRecord struct {
	EnvironmentalRecord
	FireProbability float64     `json:"fire_probability"`
	ScoreSource     ScoreSource `json:"score_source"`
}

// RiskStats aggregates fire probabilities over a batch of records.
type RiskStats struct {
	Average     float64 `json:"average"`
	Maximum     float64 `json:"maximum"`
	SampleCount int     `json:"sample_count"`
}

// AggregateRisk computes the mean and maximum of scores. An empty input
// yields zeros.
func AggregateRisk(scores []float64) RiskStats {
	var sum, maxScore float64
	for i, s := range scores {
		sum += s
		if i == 0 || s > maxScore {
			maxScore = s
		}
	}
	return RiskStats{
		Average:     sum / float64(max(1, len(scores))),
		Maximum:     maxScore,
		SampleCount: len(scores),
	}
}

// Merge combines two aggregates as if their samples had been aggregated together.
func (s RiskStats) Merge(other RiskStats) RiskStats {
	n := s.SampleCount + other.SampleCount
	if n == 0 {
		return RiskStats{}
	}
	maxScore := s.Maximum
	if s.SampleCount == 0 || (other.SampleCount > 0 && other.Maximum > maxScore) {
		maxScore = other.Maximum
	}
	return RiskStats{
		Average:     (s.Average*float64(s.SampleCount) + other.Average*float64(other.SampleCount)) / float64(n),
		Maximum:     maxScore,
		SampleCount: n,
	}
}
