// Command gridgen runs a single grid generation and prints its risk summary as
// JSON. The full report can be written to a file for use as a fixture.
//
// Usage:
//
//	go run ./cmd/gridgen \
//	  -min-lat 37.0 -max-lat 37.5 -min-lon -120.5 -max-lon -120.0 \
//	  -spacing 1000 -seed 12345 -date 2025-10-04 \
//	  -out data/reports/sierra_foothills.json
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"time"

	"github.com/couchcryptid/firegrid/internal/adapter/classifier"
	"github.com/couchcryptid/firegrid/internal/domain"
	"github.com/couchcryptid/firegrid/internal/observability"
	"github.com/couchcryptid/firegrid/internal/pipeline"
	"github.com/joho/godotenv"
)

type summary struct {
	RequestID     string           `json:"request_id"`
	Seed          uint64           `json:"seed"`
	ReferenceDate string           `json:"reference_date"`
	Cells         int              `json:"cells"`
	Burned        int              `json:"burned"`
	Scored        bool             `json:"scored"`
	Cancelled     bool             `json:"cancelled"`
	Stats         domain.RiskStats `json:"stats"`
	Sources       map[string]int   `json:"sources,omitempty"`
	ElapsedMS     int64            `json:"elapsed_ms"`
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	_ = godotenv.Load(".env")

	minLat := flag.Float64("min-lat", 37.0, "southern edge in degrees")
	maxLat := flag.Float64("max-lat", 37.1, "northern edge in degrees")
	minLon := flag.Float64("min-lon", -120.1, "western edge in degrees")
	maxLon := flag.Float64("max-lon", -120.0, "eastern edge in degrees")
	spacing := flag.Float64("spacing", 1000, "cell spacing in meters")
	seed := flag.Uint64("seed", domain.DefaultSeed, "run seed")
	date := flag.String("date", "", "reference date YYYY-MM-DD (default today, UTC)")
	score := flag.Bool("score", true, "score records with the classifier or fallback formula")
	classifierURL := flag.String("classifier-url", os.Getenv("CLASSIFIER_URL"), "remote classifier endpoint (empty uses the fallback formula)")
	maxCells := flag.Int("max-cells", 1_000_000, "refuse grids larger than this")
	out := flag.String("out", "", "optional path for the full JSON report")
	verbose := flag.Bool("v", false, "log progress to stderr")
	flag.Parse()

	level := "warn"
	if *verbose {
		level = "info"
	}
	logger := observability.NewLoggerWriter(os.Stderr, level, "text")
	metrics := observability.NewMetricsForTesting()

	var model domain.Classifier = domain.FormulaClassifier{}
	if *classifierURL != "" {
		client := classifier.NewClient(*classifierURL, 2*time.Second, metrics, logger)
		model = classifier.NewCachedClassifier(client, 10000, metrics)
	}

	cfg := pipeline.DefaultGeneratorConfig()
	cfg.Concurrency = runtime.GOMAXPROCS(0)
	cfg.MaxGridCells = *maxCells
	scorer := pipeline.NewScorer(model, cfg.ScoreChunkSize, cfg.Concurrency, logger, metrics)
	gen := pipeline.NewGenerator(cfg, scorer, logger, metrics)

	req := domain.GenerationRequest{
		BoundingBox:   domain.BoundingBox{MinLat: *minLat, MaxLat: *maxLat, MinLon: *minLon, MaxLon: *maxLon},
		SpacingMeters: *spacing,
		Seed:          seed,
		ReferenceDate: *date,
		Score:         *score,
	}
	raw, err := json.Marshal(req)
	if err != nil {
		return err
	}
	if req, err = domain.ParseGenerationRequest(raw); err != nil {
		return err
	}

	// Ctrl-C cancels at the next round boundary rather than killing the process.
	ctx := context.Background()
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt)
	defer signal.Stop(sigs)
	go func() {
		if _, ok := <-sigs; ok {
			logger.Warn("interrupt received, cancelling")
			gen.Cancel()
		}
	}()

	progress := make(chan pipeline.Progress, 16)
	go logProgress(logger, progress)

	start := time.Now()
	report, err := gen.Run(ctx, req, progress)
	close(progress)
	if err != nil {
		return fmt.Errorf("generate: %w", err)
	}

	if *out != "" {
		if err := writeJSON(*out, report); err != nil {
			return fmt.Errorf("writing report: %w", err)
		}
		logger.Info("wrote report", "path", *out)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(summarize(report, time.Since(start)))
}

func logProgress(logger *slog.Logger, progress <-chan pipeline.Progress) {
	for p := range progress {
		logger.Info("progress", "completed", p.Completed, "total", p.Total, "fraction", p.Fraction)
	}
}

func summarize(r domain.Report, elapsed time.Duration) summary {
	s := summary{
		RequestID:     r.RequestID,
		Seed:          r.Seed,
		ReferenceDate: r.ReferenceDate,
		Cells:         len(r.Records),
		Scored:        r.Scored,
		Cancelled:     r.Cancelled,
		Stats:         r.Stats,
		ElapsedMS:     elapsed.Milliseconds(),
	}
	if r.Scored {
		s.Sources = map[string]int{}
	}
	for _, rec := range r.Records {
		if rec.Burned {
			s.Burned++
		}
		if r.Scored {
			s.Sources[string(rec.ScoreSource)]++
		}
	}
	return s
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644) //nolint:gosec // fixture output is not sensitive
}
