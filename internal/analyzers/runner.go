package analyzers

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"time"

	"boardwatch/internal/logging"
	"boardwatch/internal/services"
	"boardwatch/internal/store"
	"boardwatch/internal/textutil"
	"boardwatch/internal/threads"
)

// ResultsPath is the results file for the named analyzer under dir.
func ResultsPath(dir, name string) string {
	return filepath.Join(dir, textutil.SanitizeToken(name), "results.json")
}

// LoadFile reads a results file. Missing and corrupt files surface as
// services.ErrNotFound and services.ErrCorruptData respectively.
func LoadFile(path string) (File, error) {
	var file File
	if err := store.Read(path, &file); err != nil {
		return File{}, err
	}
	return file, nil
}

// Report summarizes a Runner pass.
type Report struct {
	Completed []string
	Failed    map[string]error
	Matches   map[string]int
}

// Runner executes analyzers and persists their results.
type Runner struct {
	dir        string
	retainRuns int
	logger     *slog.Logger
	now        func() time.Time
}

// NewRunner writes results under dir, keeping at most retainRuns runs per file.
func NewRunner(dir string, retainRuns int, logger *slog.Logger) *Runner {
	if retainRuns <= 0 {
		retainRuns = 1
	}
	return &Runner{
		dir:        dir,
		retainRuns: retainRuns,
		logger:     logging.NewComponentLogger(logger, "analyzers"),
		now:        time.Now,
	}
}

// Run executes each analyzer in order. Individual failures are logged and
// recorded in the report; only context cancellation stops the pass early.
func (r *Runner) Run(ctx context.Context, list []Analyzer, selection []threads.Thread) (Report, error) {
	report := Report{Failed: map[string]error{}, Matches: map[string]int{}}
	for _, analyzer := range list {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		name := analyzer.Name()
		actx := services.WithAnalyzer(ctx, name)
		logger := logging.WithContext(actx, r.logger)

		started := time.Now()
		results, err := analyzer.Analyze(selection)
		if err != nil {
			report.Failed[name] = err
			logging.ErrorWithContext(logger, "analyzer failed", "analyzer_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "remaining analyzers continue; inspect the selection input"),
			)
			continue
		}
		if err := r.persist(logger, name, results); err != nil {
			report.Failed[name] = err
			logging.ErrorWithContext(logger, "analyzer results not written", "analyzer_write_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check free space and permissions on the analysis directory"),
			)
			continue
		}

		matches := 0
		for _, res := range results {
			matches += res.Metadata.Matches
		}
		report.Completed = append(report.Completed, name)
		report.Matches[name] = matches
		logger.Info("analyzer completed",
			logging.Int("results", len(results)),
			logging.Int("matches", matches),
			logging.Duration("elapsed", time.Since(started)),
		)
	}
	return report, nil
}

func (r *Runner) persist(logger *slog.Logger, name string, results []Result) error {
	path := ResultsPath(r.dir, name)
	existing, err := LoadFile(path)
	switch {
	case err == nil:
	case errors.Is(err, services.ErrNotFound):
	case errors.Is(err, services.ErrCorruptData):
		logging.ErrorWithContext(logger, "existing analyzer results unreadable; starting fresh", "analyzer_results_corrupt",
			logging.String("path", path),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "previous runs in this file are discarded"),
		)
	default:
		return err
	}

	merged := make([]Result, 0, len(results)+len(existing.Results))
	merged = append(merged, results...)
	merged = append(merged, existing.Results...)
	if len(merged) > r.retainRuns {
		merged = merged[:r.retainRuns]
	}
	return store.Write(path, File{
		LastUpdated: r.now().UnixMilli(),
		Results:     merged,
	})
}
