package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/firegrid/internal/domain"
)

// ReportTransformer implements Transformer by running each request through a
// Generator and fragmenting the report into output events.
type ReportTransformer struct {
	generator    *Generator
	fragmentSize int
	logger       *slog.Logger
}

// NewTransformer creates a ReportTransformer. fragmentSize bounds the number of
// records per output event.
func NewTransformer(generator *Generator, fragmentSize int, logger *slog.Logger) *ReportTransformer {
	return &ReportTransformer{
		generator:    generator,
		fragmentSize: fragmentSize,
		logger:       logger,
	}
}

func (t *ReportTransformer) Transform(ctx context.Context, raw domain.RawEvent) ([]domain.OutputEvent, error) {
	req, err := domain.ParseGenerationRequest(raw.Value)
	if err != nil {
		return nil, err
	}

	report, err := t.generator.Run(ctx, req, nil)
	if err != nil {
		return nil, fmt.Errorf("request %s: %w", req.ID, err)
	}
	if report.Cancelled {
		t.logger.Info("generation cancelled, no report emitted", "request_id", req.ID)
		return nil, nil
	}

	frags := report.Fragment(t.fragmentSize)
	out := make([]domain.OutputEvent, 0, len(frags))
	for _, f := range frags {
		ev, err := domain.SerializeFragment(f)
		if err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, nil
}
