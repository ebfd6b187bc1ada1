// Command validate checks the generator's determinism and invariants over a
// set of regions: identical output across chunk sizes and concurrency, grid
// ordering, value ranges, per-cell replay, cancellation, and seed sensitivity.
//
// Usage:
//
//	go run ./cmd/validate -seed 12345 -date 2025-10-04 -spacing 1500
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/firegrid/internal/domain"
	"github.com/couchcryptid/firegrid/internal/observability"
	"github.com/couchcryptid/firegrid/internal/pipeline"
	"github.com/jonboulle/clockwork"
)

// region is a named bounding box exercised by every phase.
type region struct {
	name string
	box  domain.BoundingBox
}

var regions = []region{
	{name: "sierra foothills", box: domain.BoundingBox{MinLat: 37.0, MaxLat: 37.2, MinLon: -120.3, MaxLon: -120.0}},
	{name: "new south wales", box: domain.BoundingBox{MinLat: -33.95, MaxLat: -33.8, MinLon: 150.9, MaxLon: 151.1}},
	{name: "antimeridian", box: domain.BoundingBox{MinLat: -17.2, MaxLat: -17.0, MinLon: 179.8, MaxLon: 180}},
	{name: "high arctic", box: domain.BoundingBox{MinLat: 89.8, MaxLat: 90, MinLon: -10, MaxLon: 10}},
	{name: "degenerate point", box: domain.BoundingBox{MinLat: 10, MaxLat: 10, MinLon: 20, MaxLon: 20}},
}

// configs are the chunkings every region must agree across.
var configs = []pipeline.GeneratorConfig{
	pipeline.DefaultGeneratorConfig(),
	{SynthChunkSize: 1, ScoreChunkSize: 1, GenerationBatchSize: 37, Concurrency: 8},
	{SynthChunkSize: 13, ScoreChunkSize: 7, GenerationBatchSize: 1000, Concurrency: 2},
	{SynthChunkSize: 100000, ScoreChunkSize: 100000, GenerationBatchSize: 100000, Concurrency: 1},
}

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

// maxErrorsPerPhase keeps a systematic failure from flooding the output.
const maxErrorsPerPhase = 20

func main() {
	seed := flag.Uint64("seed", domain.DefaultSeed, "run seed")
	date := flag.String("date", "2025-10-04", "reference date YYYY-MM-DD")
	spacing := flag.Float64("spacing", 1500, "cell spacing in meters")
	flag.Parse()

	ref, err := time.Parse(time.DateOnly, *date)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: invalid -date: %v\n", err)
		os.Exit(1)
	}

	if code := run(*seed, ref, *spacing); code != 0 {
		os.Exit(code)
	}
}

func run(seed uint64, ref time.Time, spacing float64) int {
	// Pin "today" so defaulted dates agree with -date.
	domain.SetClock(clockwork.NewFakeClockAt(ref.Add(12 * time.Hour)))
	defer domain.SetClock(nil)

	fmt.Println("=== Wildfire Grid Determinism Validation ===")
	fmt.Println()

	opts := domain.DefaultOptions()
	opts.Seed = seed
	opts.ReferenceDate = ref
	opts = opts.Normalized()

	v := &validator{opts: opts, spacing: spacing}
	cells := 0
	for _, r := range regions {
		coords := domain.BuildGrid(r.box, spacing)
		cells += len(coords)
		fmt.Printf("  %-20s %6d cells\n", r.name, len(coords))
	}

	// ── Run validation phases ──
	phases := []*phase{
		v.validateChunkingDeterminism(),
		v.validateOrdering(),
		v.validateRanges(),
		v.validateReplay(),
		v.validateCancellation(),
		v.validateSeedSensitivity(),
	}

	// ── Report results ──
	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Cells: %d across %d regions, %d chunk configurations, seed %d, date %s\n",
		cells, len(regions), len(configs), opts.Seed, ref.Format(time.DateOnly))

	// Print detailed errors.
	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

type validator struct {
	opts    domain.SynthesisOptions
	spacing float64
}

func (v *validator) generate(cfg pipeline.GeneratorConfig, coords []domain.Coordinate, opts domain.SynthesisOptions) (pipeline.Result, error) {
	return newGenerator(cfg).Generate(context.Background(), coords, opts, true, nil)
}

func newGenerator(cfg pipeline.GeneratorConfig) *pipeline.Generator {
	return newGeneratorWith(cfg, domain.FormulaClassifier{})
}

func newGeneratorWith(cfg pipeline.GeneratorConfig, model domain.Classifier) *pipeline.Generator {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	metrics := observability.NewMetricsForTesting()
	scorer := pipeline.NewScorer(model, cfg.ScoreChunkSize, cfg.Concurrency, logger, metrics)
	return pipeline.NewGenerator(cfg, scorer, logger, metrics)
}

// ── Phases ──

func (v *validator) validateChunkingDeterminism() *phase {
	p := &phase{name: "Chunking determinism"}
	for _, r := range regions {
		coords := domain.BuildGrid(r.box, v.spacing)
		base, err := v.generate(configs[0], coords, v.opts)
		if err != nil {
			p.errorf("%s: base run: %v", r.name, err)
			continue
		}
		for ci, cfg := range configs[1:] {
			res, err := v.generate(cfg, coords, v.opts)
			if err != nil {
				p.errorf("%s: config %d: %v", r.name, ci+1, err)
				continue
			}
			compareRecords(p, fmt.Sprintf("%s config %d", r.name, ci+1), base.Records, res.Records)
			if base.Stats != res.Stats {
				p.errorf("%s config %d: stats %+v, want %+v", r.name, ci+1, res.Stats, base.Stats)
			}
		}
	}
	return p
}

func (v *validator) validateOrdering() *phase {
	p := &phase{name: "Latitude-major ordering"}
	for _, r := range regions {
		coords := domain.BuildGrid(r.box, v.spacing)
		latCount, lonCount := domain.GridDims(r.box, v.spacing)
		if len(coords) != latCount*lonCount {
			p.errorf("%s: %d coords, want %d x %d", r.name, len(coords), latCount, lonCount)
			continue
		}
		for i := 1; i < len(coords); i++ {
			prev, cur := coords[i-1], coords[i]
			sameRow := i%lonCount != 0
			if sameRow && (cur.Lat != prev.Lat || cur.Lon <= prev.Lon) {
				p.errorf("%s: cell %d not east of cell %d in the same row", r.name, i, i-1)
			}
			if !sameRow && cur.Lat <= prev.Lat {
				p.errorf("%s: row starting at cell %d not north of previous row", r.name, i)
			}
			if len(p.errors) >= maxErrorsPerPhase {
				return p
			}
		}

		res, err := v.generate(configs[1], coords, v.opts)
		if err != nil {
			p.errorf("%s: %v", r.name, err)
			continue
		}
		for i, rec := range res.Records {
			if rec.Coordinate != coords[i] {
				p.errorf("%s: record %d at %+v, want %+v", r.name, i, rec.Coordinate, coords[i])
				break
			}
		}
	}
	return p
}

func (v *validator) validateRanges() *phase {
	p := &phase{name: "Value ranges"}
	extreme := v.opts
	extreme.VegetationNoiseSigma = 50
	extreme.TempNoiseSigma = 500
	extreme.BurnSensitivityToTemp = 10

	wantDate := v.opts.ReferenceDate.Format(time.DateOnly)
	for _, opts := range []domain.SynthesisOptions{v.opts, extreme} {
		for _, r := range regions {
			res, err := v.generate(configs[0], domain.BuildGrid(r.box, v.spacing), opts)
			if err != nil {
				p.errorf("%s: %v", r.name, err)
				continue
			}
			for i, rec := range res.Records {
				checkRecord(p, fmt.Sprintf("%s record %d", r.name, i), rec, wantDate)
				if len(p.errors) >= maxErrorsPerPhase {
					return p
				}
			}
		}
	}
	return p
}

func (v *validator) validateReplay() *phase {
	p := &phase{name: "Per-cell replay"}
	for _, r := range regions {
		coords := domain.BuildGrid(r.box, v.spacing)
		res, err := v.generate(configs[2], coords, v.opts)
		if err != nil {
			p.errorf("%s: %v", r.name, err)
			continue
		}
		// Replay back to front so no shared state could line up by accident.
		for i := len(coords) - 1; i >= 0; i-- {
			if got := domain.Synthesize(coords[i], v.opts); got != res.Records[i].EnvironmentalRecord {
				p.errorf("%s: cell %d replays as %+v, generated %+v", r.name, i, got, res.Records[i].EnvironmentalRecord)
				break
			}
		}
	}
	return p
}

func (v *validator) validateCancellation() *phase {
	p := &phase{name: "Cancellation discards the run"}
	coords := domain.BuildGrid(regions[0].box, v.spacing)
	if len(coords) < 2 {
		p.errorf("need at least two cells to cancel between rounds, got %d", len(coords))
		return p
	}

	cfg := configs[1]
	cfg.GenerationBatchSize = 1
	model := &cancellingClassifier{}
	gen := newGeneratorWith(cfg, model)
	model.gen = gen

	if gen.Cancel() {
		p.errorf("idle generator accepted a cancel request")
	}

	res, err := gen.Generate(context.Background(), coords, v.opts, true, nil)
	switch {
	case err != nil:
		p.errorf("cancelled run: %v", err)
	case !res.Cancelled:
		p.errorf("cancelled run not marked cancelled")
	case len(res.Records) != 0:
		p.errorf("cancelled run returned %d records", len(res.Records))
	}

	res, err = gen.Generate(context.Background(), coords, v.opts, true, nil)
	switch {
	case err != nil:
		p.errorf("follow-up run: %v", err)
	case res.Cancelled:
		p.errorf("cancellation leaked into the follow-up run")
	case len(res.Records) != len(coords):
		p.errorf("follow-up run returned %d records, want %d", len(res.Records), len(coords))
	}
	return p
}

// cancellingClassifier cancels gen's active run on its first call and scores
// with the fallback formula.
type cancellingClassifier struct {
	gen   *pipeline.Generator
	fired atomic.Bool
}

func (c *cancellingClassifier) Classify(_ context.Context, f domain.Features) (float64, error) {
	if c.fired.CompareAndSwap(false, true) {
		c.gen.Cancel()
	}
	return domain.FallbackScore(f), nil
}

func (v *validator) validateSeedSensitivity() *phase {
	p := &phase{name: "Seed sensitivity"}
	other := v.opts.WithSeedOffset(1)
	for _, r := range regions {
		coords := domain.BuildGrid(r.box, v.spacing)
		a := domain.SynthesizeBatch(coords, v.opts)
		b := domain.SynthesizeBatch(coords, other)
		differ := false
		for i := range a {
			if a[i] != b[i] {
				differ = true
				break
			}
		}
		if !differ {
			p.errorf("%s: seeds %d and %d produced identical grids", r.name, v.opts.Seed, other.Seed)
		}
	}
	return p
}

// ── Checks ──

func compareRecords(p *phase, label string, want, got []domain.ScoredRecord) {
	if len(want) != len(got) {
		p.errorf("%s: %d records, want %d", label, len(got), len(want))
		return
	}
	for i := range want {
		if want[i] != got[i] {
			p.errorf("%s: record %d differs: got %+v, want %+v", label, i, got[i], want[i])
			return
		}
	}
}

func checkRecord(p *phase, label string, r domain.ScoredRecord, wantDate string) {
	if !inRange(r.VegetationIndex, -1, 1) {
		p.errorf("%s: vegetation index %v out of [-1, 1]", label, r.VegetationIndex)
	}
	if !inRange(r.SurfaceTempC, -50, 70) {
		p.errorf("%s: surface temp %v out of [-50, 70]", label, r.SurfaceTempC)
	}
	if !inRange(r.BurnProbability, 0, 1) {
		p.errorf("%s: burn probability %v out of [0, 1]", label, r.BurnProbability)
	}
	if !inRange(r.FireProbability, 0, 1) {
		p.errorf("%s: fire probability %v out of [0, 1]", label, r.FireProbability)
	}
	if r.DateISO != wantDate {
		p.errorf("%s: date %q, want %q", label, r.DateISO, wantDate)
	}
}

func inRange(v, lo, hi float64) bool {
	return !math.IsNaN(v) && v >= lo && v <= hi
}
