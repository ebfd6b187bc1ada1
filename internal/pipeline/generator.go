package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/firegrid/internal/domain"
	"github.com/couchcryptid/firegrid/internal/observability"
	"github.com/jonboulle/clockwork"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// ErrGenerationInProgress is returned when a Generator is asked to start a run
// while another is still active.
var ErrGenerationInProgress = errors.New("generation already in progress")

// progressEvery is how many rounds pass between progress reports.
const progressEvery = 10

// GeneratorConfig sizes the three fan-out stages of a run.
type GeneratorConfig struct {
	SynthChunkSize      int // coordinates per synthesis task
	ScoreChunkSize      int // records per scoring task
	GenerationBatchSize int // coordinates per round; cancellation is checked between rounds
	Concurrency         int // max concurrent tasks per stage, <= 0 for unbounded
	MaxGridCells        int // request cap, <= 0 disables

	StartupDelay time.Duration // before the first round
	SettleDelay  time.Duration // after the last round, before returning
}

// DefaultGeneratorConfig returns the standard chunk sizes with no delays.
func DefaultGeneratorConfig() GeneratorConfig {
	return GeneratorConfig{
		SynthChunkSize:      200,
		ScoreChunkSize:      500,
		GenerationBatchSize: 800,
		MaxGridCells:        250000,
	}
}

// Progress reports how many cells of a run are complete.
type Progress struct {
	Completed int     `json:"completed"`
	Total     int     `json:"total"`
	Fraction  float64 `json:"fraction"`
}

// Result is the outcome of Generate. A cancelled run has no records.
type Result struct {
	Records   []domain.ScoredRecord
	Stats     domain.RiskStats
	Scored    bool
	Cancelled bool
}

// Generator runs grid generations one at a time. Cancel may be called from any
// goroutine; it applies only to the run active at that moment, takes effect at
// the next round boundary and discards the whole run.
type Generator struct {
	cfg     GeneratorConfig
	scorer  *Scorer
	logger  *slog.Logger
	metrics *observability.Metrics
	clock   clockwork.Clock
	tracer  trace.Tracer

	running      atomic.Bool
	active       atomic.Pointer[atomic.Bool] // cancel flag of the current run, nil when idle
	lastProgress atomic.Uint64               // math.Float64bits of the latest fraction
}

// GeneratorOption customizes a Generator.
type GeneratorOption func(*Generator)

// WithClock sets the clock used for the startup and settle delays.
func WithClock(c clockwork.Clock) GeneratorOption {
	return func(g *Generator) { g.clock = c }
}

// WithTracer overrides the tracer taken from the global provider.
func WithTracer(t trace.Tracer) GeneratorOption {
	return func(g *Generator) { g.tracer = t }
}

// NewGenerator creates a Generator that scores records with scorer.
func NewGenerator(cfg GeneratorConfig, scorer *Scorer, logger *slog.Logger, metrics *observability.Metrics, opts ...GeneratorOption) *Generator {
	g := &Generator{
		cfg:     cfg,
		scorer:  scorer,
		logger:  logger,
		metrics: metrics,
		clock:   clockwork.NewRealClock(),
		tracer:  otel.Tracer("github.com/couchcryptid/firegrid/internal/pipeline"),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Cancel asks the active run to stop at its next round boundary. It reports
// whether a run was signalled; with no run in progress it does nothing.
func (g *Generator) Cancel() bool {
	flag := g.active.Load()
	if flag == nil {
		return false
	}
	flag.Store(true)
	return true
}

// Running reports whether a run is in progress.
func (g *Generator) Running() bool {
	return g.running.Load()
}

// LastProgress returns the completed fraction of the current or most recent
// run. A new run starts again from 0.
func (g *Generator) LastProgress() float64 {
	return math.Float64frombits(g.lastProgress.Load())
}

// CheckReadiness always succeeds; a Generator needs no warm-up.
func (g *Generator) CheckReadiness(_ context.Context) error {
	return nil
}

// Run validates req, builds its grid, and generates a report. A cancelled run
// returns a report with Cancelled set and no records.
func (g *Generator) Run(ctx context.Context, req domain.GenerationRequest, progress chan<- Progress) (domain.Report, error) {
	if err := req.Validate(g.cfg.MaxGridCells); err != nil {
		return domain.Report{}, err
	}
	opts, err := req.SynthesisOptions()
	if err != nil {
		return domain.Report{}, err
	}

	coords := domain.BuildGrid(req.BoundingBox, req.SpacingMeters)
	res, err := g.Generate(ctx, coords, opts, req.Score, progress)
	if err != nil {
		return domain.Report{}, err
	}

	return domain.Report{
		RequestID:     req.ID,
		Seed:          opts.Seed,
		ReferenceDate: opts.ReferenceDate.Format(time.DateOnly),
		Scored:        res.Scored,
		Cancelled:     res.Cancelled,
		Stats:         res.Stats,
		Records:       res.Records,
	}, nil
}

// Generate synthesizes coords (and scores them when score is set) in rounds of
// GenerationBatchSize. Records come back in coordinate order regardless of how
// the chunks were scheduled. Progress is sent without blocking; a full or nil
// channel simply misses the update.
func (g *Generator) Generate(ctx context.Context, coords []domain.Coordinate, opts domain.SynthesisOptions, score bool, progress chan<- Progress) (Result, error) {
	if !g.running.CompareAndSwap(false, true) {
		return Result{}, ErrGenerationInProgress
	}
	defer g.running.Store(false)

	cancelled := new(atomic.Bool)
	g.active.Store(cancelled)
	defer g.active.Store(nil)
	g.setProgress(0)

	start := g.clock.Now()
	total := len(coords)
	batch := g.cfg.GenerationBatchSize
	if batch <= 0 {
		batch = max(1, total)
	}
	rounds := (total + batch - 1) / batch

	ctx, span := g.tracer.Start(ctx, "generate", trace.WithAttributes(
		attribute.Int("cells", total),
		attribute.Int("rounds", rounds),
		attribute.Bool("score", score),
	))
	defer span.End()

	g.logger.Info("generation started", "cells", total, "rounds", rounds, "seed", opts.Seed, "score", score)

	if !g.sleep(ctx, g.cfg.StartupDelay) {
		return g.fail(span, ctx.Err())
	}

	acc := make([]domain.ScoredRecord, 0, total)
	for round := range rounds {
		if cancelled.Load() {
			g.logger.Info("generation cancelled", "completed", len(acc), "cells", total)
			g.metrics.Generations.WithLabelValues("cancelled").Inc()
			span.SetAttributes(attribute.Bool("cancelled", true))
			return Result{Records: []domain.ScoredRecord{}, Cancelled: true, Scored: score}, nil
		}
		if err := ctx.Err(); err != nil {
			return g.fail(span, err)
		}

		lo := round * batch
		hi := min(lo+batch, total)
		scored, err := g.runRound(ctx, round, coords[lo:hi], opts, score)
		if err != nil {
			return g.fail(span, err)
		}
		acc = append(acc, scored...)

		if round%progressEvery == 0 || round == rounds-1 {
			g.publish(progress, Progress{Completed: hi, Total: total, Fraction: float64(hi) / float64(total)})
		}
	}

	if !g.sleep(ctx, g.cfg.SettleDelay) {
		return g.fail(span, ctx.Err())
	}

	res := Result{Records: acc, Scored: score}
	if score {
		res.Stats = domain.AggregateRisk(Probabilities(acc))
	}

	g.metrics.Generations.WithLabelValues("completed").Inc()
	g.metrics.CellsGenerated.Add(float64(total))
	g.metrics.GenerationDuration.Observe(g.clock.Since(start).Seconds())
	g.logger.Info("generation completed",
		"cells", total,
		"average_risk", res.Stats.Average,
		"max_risk", res.Stats.Maximum,
	)
	return res, nil
}

// runRound synthesizes one round of coordinates and optionally scores them.
func (g *Generator) runRound(ctx context.Context, round int, coords []domain.Coordinate, opts domain.SynthesisOptions, score bool) ([]domain.ScoredRecord, error) {
	ctx, span := g.tracer.Start(ctx, "generate.round", trace.WithAttributes(
		attribute.Int("round", round),
		attribute.Int("cells", len(coords)),
	))
	defer span.End()

	records, err := MapOrdered(ctx, coords, g.cfg.SynthChunkSize, g.cfg.Concurrency,
		func(_ context.Context, chunk []domain.Coordinate) []domain.EnvironmentalRecord {
			return domain.SynthesizeBatch(chunk, opts)
		})
	if err != nil {
		return nil, fmt.Errorf("synthesize round %d: %w", round, err)
	}

	if score {
		scored, err := g.scorer.Score(ctx, records)
		if err != nil {
			return nil, fmt.Errorf("score round %d: %w", round, err)
		}
		return scored, nil
	}

	out := make([]domain.ScoredRecord, len(records))
	for i, r := range records {
		out[i] = domain.ScoredRecord{EnvironmentalRecord: r}
	}
	return out, nil
}

func (g *Generator) publish(ch chan<- Progress, p Progress) {
	g.setProgress(p.Fraction)
	if ch == nil {
		return
	}
	select {
	case ch <- p:
	default:
	}
}

func (g *Generator) setProgress(fraction float64) {
	g.lastProgress.Store(math.Float64bits(fraction))
	g.metrics.GenerationProgress.Set(fraction)
}

func (g *Generator) fail(span trace.Span, err error) (Result, error) {
	span.RecordError(err)
	g.metrics.Generations.WithLabelValues("failed").Inc()
	g.logger.Warn("generation failed", "error", err)
	return Result{}, err
}

// sleep waits d on the generator's clock. It returns false if ctx ends first.
func (g *Generator) sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	select {
	case <-ctx.Done():
		return false
	case <-g.clock.After(d):
		return true
	}
}
