package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/firegrid/internal/domain"
	"github.com/couchcryptid/firegrid/internal/observability"
	"github.com/jonboulle/clockwork"
)

const (
	initialRetryDelay = 200 * time.Millisecond
	maxRetryDelay     = 5 * time.Second
)

// BatchExtractor reads up to batchSize generation requests from the source.
type BatchExtractor interface {
	ExtractBatch(ctx context.Context, batchSize int) ([]domain.RawEvent, error)
}

// Transformer turns a raw request into the output events of its report. An
// empty result with a nil error means there is nothing to publish.
type Transformer interface {
	Transform(ctx context.Context, raw domain.RawEvent) ([]domain.OutputEvent, error)
}

// BatchLoader writes report fragments to the destination.
type BatchLoader interface {
	LoadBatch(ctx context.Context, events []domain.OutputEvent) error
}

// Pipeline consumes generation requests, runs each one, and publishes the
// report fragments. A request's offset is committed once its fragments are
// written or once it is known to be unprocessable.
type Pipeline struct {
	extractor   BatchExtractor
	transformer Transformer
	loader      BatchLoader
	logger      *slog.Logger
	metrics     *observability.Metrics
	clock       clockwork.Clock
	ready       atomic.Bool
	batchSize   int
}

// Option customizes a Pipeline.
type Option func(*Pipeline)

// WithRetryClock sets the clock used to wait between failed extracts and loads.
func WithRetryClock(c clockwork.Clock) Option {
	return func(p *Pipeline) { p.clock = c }
}

// New creates a Pipeline with the given stages and observability.
func New(e BatchExtractor, t Transformer, l BatchLoader, logger *slog.Logger, metrics *observability.Metrics, batchSize int, opts ...Option) *Pipeline {
	p := &Pipeline{
		extractor:   e,
		transformer: t,
		loader:      l,
		logger:      logger,
		metrics:     metrics,
		clock:       clockwork.NewRealClock(),
		batchSize:   batchSize,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// CheckReadiness returns nil if the pipeline has published at least one report,
// or an error describing why the service is not yet ready.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("pipeline has not published any reports yet")
	}
	return nil
}

// Run consumes request batches until the context is cancelled.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("pipeline started", "batch_size", p.batchSize)
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	retry := newRetryDelay(p.clock)
	for ctx.Err() == nil {
		if !p.runBatch(ctx, retry) {
			break
		}
	}
	p.logger.Info("pipeline stopping", "reason", ctx.Err())
	return nil
}

// runBatch handles one batch of requests. It returns false when the pipeline
// should stop.
func (p *Pipeline) runBatch(ctx context.Context, retry *retryDelay) bool {
	start := p.clock.Now()

	requests, err := p.extractor.ExtractBatch(ctx, p.batchSize)
	switch {
	case ctx.Err() != nil:
		return false
	case err != nil:
		p.logger.Error("extract batch failed", "error", err)
		return retry.wait(ctx)
	case len(requests) == 0:
		return true
	}

	p.metrics.RequestsConsumed.Add(float64(len(requests)))
	p.metrics.BatchSize.Observe(float64(len(requests)))
	retry.reset()

	b := p.generateAll(ctx, requests)
	if ctx.Err() != nil {
		return false
	}
	// Unprocessable requests never succeed on redelivery.
	p.commit(ctx, b.rejected)

	if len(b.fragments) == 0 {
		p.commit(ctx, b.generated)
		return true
	}
	if err := p.loader.LoadBatch(ctx, b.fragments); err != nil {
		p.logger.Error("load batch failed", "error", err, "fragments", len(b.fragments), "requests", len(b.generated))
		return retry.wait(ctx)
	}
	p.metrics.ReportsProduced.Add(float64(len(b.fragments)))
	p.commit(ctx, b.generated)

	p.metrics.BatchProcessingDuration.Observe(p.clock.Since(start).Seconds())
	p.ready.Store(true)
	return true
}

// batchResult splits a request batch by outcome.
type batchResult struct {
	fragments []domain.OutputEvent
	generated []domain.RawEvent // produced a report, or were cancelled with nothing to publish
	rejected  []domain.RawEvent // failed validation or generation
}

func (p *Pipeline) generateAll(ctx context.Context, requests []domain.RawEvent) batchResult {
	b := batchResult{generated: make([]domain.RawEvent, 0, len(requests))}
	for _, raw := range requests {
		out, err := p.transformer.Transform(ctx, raw)
		if ctx.Err() != nil {
			return b
		}
		if err != nil {
			p.logger.Warn("generation failed, skipping request",
				"error", err,
				"key", string(raw.Key),
				"partition", raw.Partition,
				"offset", raw.Offset,
			)
			p.metrics.RequestErrors.Inc()
			b.rejected = append(b.rejected, raw)
			continue
		}
		p.logger.Debug("request generated", "key", string(raw.Key), "fragments", len(out))
		b.fragments = append(b.fragments, out...)
		b.generated = append(b.generated, raw)
	}
	return b
}

// commit commits each request that carries a commit callback. Failures are
// logged; the request may then be redelivered and regenerated.
func (p *Pipeline) commit(ctx context.Context, requests []domain.RawEvent) {
	for _, raw := range requests {
		if raw.Commit == nil {
			continue
		}
		if err := raw.Commit(ctx); err != nil {
			p.logger.Warn("commit offset failed", "error", err,
				"key", string(raw.Key), "partition", raw.Partition, "offset", raw.Offset)
		}
	}
}

// retryDelay is an exponential backoff from initialRetryDelay to maxRetryDelay.
type retryDelay struct {
	clock clockwork.Clock
	next  time.Duration
}

func newRetryDelay(clock clockwork.Clock) *retryDelay {
	return &retryDelay{clock: clock, next: initialRetryDelay}
}

func (r *retryDelay) reset() { r.next = initialRetryDelay }

// wait sleeps for the current delay and doubles it. It returns false if ctx
// ends first.
func (r *retryDelay) wait(ctx context.Context) bool {
	if ctx.Err() != nil {
		return false
	}
	select {
	case <-ctx.Done():
		return false
	case <-r.clock.After(r.next):
	}
	r.next = min(r.next*2, maxRetryDelay)
	return true
}
