package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Report is the result of one generation run.
type Report struct {
	RequestID     string         `json:"request_id"`
	Seed          uint64         `json:"seed"`
	ReferenceDate string         `json:"reference_date"`
	Scored        bool           `json:"scored"`
	Cancelled     bool           `json:"cancelled"`
	Stats         RiskStats      `json:"stats"`
	Records       []ScoredRecord `json:"records"`
}

// ReportFragment is a slice of a report sized to fit a single message.
// The fragment with Final set carries the stats and no records.
type ReportFragment struct {
	RequestID   string         `json:"request_id"`
	Index       int            `json:"index"`
	Count       int            `json:"count"`
	Offset      int            `json:"offset"`
	Final       bool           `json:"final"`
	Scored      bool           `json:"scored"`
	Stats       *RiskStats     `json:"stats,omitempty"`
	Records     []ScoredRecord `json:"records,omitempty"`
	ProcessedAt time.Time      `json:"processed_at"`
}

// Fragment splits a report into record fragments of at most size records
// followed by one summary fragment. Offsets index into the report's records.
func (r Report) Fragment(size int) []ReportFragment {
	if size <= 0 {
		size = len(r.Records)
	}
	n := 1
	if size > 0 {
		n += (len(r.Records) + size - 1) / size
	}
	now := clock.Now().UTC()

	frags := make([]ReportFragment, 0, n)
	for off := 0; off < len(r.Records); off += size {
		end := min(off+size, len(r.Records))
		frags = append(frags, ReportFragment{
			RequestID:   r.RequestID,
			Index:       len(frags),
			Count:       n,
			Offset:      off,
			Scored:      r.Scored,
			Records:     r.Records[off:end],
			ProcessedAt: now,
		})
	}
	stats := r.Stats
	frags = append(frags, ReportFragment{
		RequestID:   r.RequestID,
		Index:       len(frags),
		Count:       n,
		Offset:      len(r.Records),
		Final:       true,
		Scored:      r.Scored,
		Stats:       &stats,
		ProcessedAt: now,
	})
	return frags
}

// SerializeFragment marshals a fragment into an output event keyed by request
// ID so all fragments of a report land on the same partition.
func SerializeFragment(f ReportFragment) (OutputEvent, error) {
	data, err := json.Marshal(f)
	if err != nil {
		return OutputEvent{}, fmt.Errorf("serialize report fragment: %w", err)
	}
	kind := "records"
	if f.Final {
		kind = "summary"
	}
	return OutputEvent{
		Key:   []byte(f.RequestID),
		Value: data,
		Headers: map[string]string{
			"request_id":   f.RequestID,
			"fragment":     strconv.Itoa(f.Index),
			"kind":         kind,
			"processed_at": f.ProcessedAt.Format(time.RFC3339),
		},
	}, nil
}
