package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleReport(n int) Report {
	records := make([]ScoredRecord, n)
	for i := range records {
		records[i] = ScoredRecord{
			EnvironmentalRecord: EnvironmentalRecord{Coordinate: Coordinate{Lat: float64(i), Lon: 0}},
			FireProbability:     0.1 * float64(i),
			ScoreSource:         SourceFallback,
		}
	}
	return Report{
		RequestID: "grid-abc",
		Seed:      7,
		Scored:    true,
		Stats:     RiskStats{Average: 0.2, Maximum: 0.4, SampleCount: n},
		Records:   records,
	}
}

func TestReport_Fragment(t *testing.T) {
	pinClock(t, time.Date(2025, 10, 4, 12, 0, 0, 0, time.UTC))

	t.Run("records then summary", func(t *testing.T) {
		frags := sampleReport(5).Fragment(2)
		require.Len(t, frags, 4)

		wantOffsets := []int{0, 2, 4, 5}
		wantSizes := []int{2, 2, 1, 0}
		for i, f := range frags {
			assert.Equal(t, "grid-abc", f.RequestID)
			assert.Equal(t, i, f.Index)
			assert.Equal(t, 4, f.Count)
			assert.Equal(t, wantOffsets[i], f.Offset)
			assert.Len(t, f.Records, wantSizes[i])
			assert.True(t, f.Scored)
			assert.Equal(t, time.Date(2025, 10, 4, 12, 0, 0, 0, time.UTC), f.ProcessedAt)
		}

		last := frags[3]
		assert.True(t, last.Final)
		require.NotNil(t, last.Stats)
		assert.Equal(t, 5, last.Stats.SampleCount)
		assert.Nil(t, frags[0].Stats)
		assert.Equal(t, 4.0, frags[2].Records[0].Coordinate.Lat)
	})

	t.Run("empty report", func(t *testing.T) {
		frags := sampleReport(0).Fragment(100)
		require.Len(t, frags, 1)
		assert.True(t, frags[0].Final)
		assert.Equal(t, 1, frags[0].Count)
	})

	t.Run("non-positive size keeps one record fragment", func(t *testing.T) {
		frags := sampleReport(3).Fragment(0)
		require.Len(t, frags, 2)
		assert.Len(t, frags[0].Records, 3)
	})
}

func TestSerializeFragment(t *testing.T) {
	pinClock(t, time.Date(2025, 10, 4, 12, 0, 0, 0, time.UTC))
	frags := sampleReport(3).Fragment(2)

	out, err := SerializeFragment(frags[0])
	require.NoError(t, err)
	assert.Equal(t, []byte("grid-abc"), out.Key)
	assert.Equal(t, map[string]string{
		"request_id":   "grid-abc",
		"fragment":     "0",
		"kind":         "records",
		"processed_at": "2025-10-04T12:00:00Z",
	}, out.Headers)

	var decoded ReportFragment
	require.NoError(t, json.Unmarshal(out.Value, &decoded))
	assert.Len(t, decoded.Records, 2)

	summary, err := SerializeFragment(frags[len(frags)-1])
	require.NoError(t, err)
	assert.Equal(t, "summary", summary.Headers["kind"])
	assert.Equal(t, "2", summary.Headers["fragment"])
}
