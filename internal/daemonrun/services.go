package daemonrun

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"boardwatch/internal/articles"
	"boardwatch/internal/config"
	"boardwatch/internal/ledger"
	"boardwatch/internal/pipeline"
	"boardwatch/internal/scheduler"
	"boardwatch/internal/scrape"
	"boardwatch/internal/services/llm"
)

// Services holds the collaborators shared by the daemon and the one-shot CLI
// commands. Manual runs go through Scheduler so they land in the ledger.
type Services struct {
	Ledger    *ledger.Ledger
	Pipeline  *pipeline.Pipeline
	Scraper   *scrape.Runner
	Scheduler *scheduler.Scheduler
}

// NewServices opens the ledger and wires the pipeline, scraper, and scheduler.
func NewServices(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Services, error) {
	runs, err := ledger.Open(ctx, cfg.LedgerPath())
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}

	p, err := pipeline.New(cfg, pipeline.Deps{
		Ledger:    runs,
		Completer: NewCompleter(cfg),
		Logger:    logger,
	})
	if err != nil {
		_ = runs.Close()
		return nil, fmt.Errorf("build pipeline: %w", err)
	}
	scraper := scrape.NewRunner(cfg, logger)

	sched, err := scheduler.New([]scheduler.Job{
		{
			Name: scheduler.JobScrape,
			Spec: cfg.Scheduler.ScrapeSchedule,
			Run: func(ctx context.Context) (map[string]int, error) {
				result, err := scraper.Run(ctx)
				return result.Counters(), err
			},
		},
		{
			Name: scheduler.JobAnalyze,
			Spec: cfg.Scheduler.AnalyzeSchedule,
			Run: func(ctx context.Context) (map[string]int, error) {
				summary, err := p.Analyze(ctx, pipeline.Options{ForceRegenerate: ForceFromContext(ctx)})
				return summary.Counters(), err
			},
		},
	}, scheduler.Options{
		Recorder:   runs,
		JobTimeout: time.Duration(cfg.Scheduler.JobTimeoutSeconds) * time.Second,
		Logger:     logger,
	})
	if err != nil {
		_ = runs.Close()
		return nil, err
	}

	return &Services{Ledger: runs, Pipeline: p, Scraper: scraper, Scheduler: sched}, nil
}

// Close releases the ledger.
func (s *Services) Close() error {
	if s == nil {
		return nil
	}
	return s.Ledger.Close()
}

// NewCompleter builds the completion client for article generation. It
// returns nil when articles are disabled.
func NewCompleter(cfg *config.Config) articles.Completer {
	if !cfg.Articles.Enabled {
		return nil
	}
	opts := []llm.Option{llm.WithRateLimit(cfg.LLM.RequestsPerMinute)}
	if cfg.LLM.MaxAttempts > 0 {
		opts = append(opts, llm.WithRetryMaxAttempts(cfg.LLM.MaxAttempts))
	}
	return llm.NewClient(llm.Config{
		APIKey:         cfg.LLM.APIKey,
		BaseURL:        cfg.LLM.BaseURL,
		Model:          cfg.LLM.Model,
		Referer:        cfg.LLM.Referer,
		Title:          cfg.LLM.Title,
		TimeoutSeconds: cfg.LLM.TimeoutSeconds,
	}, opts...)
}

type forceKey struct{}

// WithForce marks a manual analyze run as a forced article regeneration.
func WithForce(ctx context.Context, force bool) context.Context {
	return context.WithValue(ctx, forceKey{}, force)
}

// ForceFromContext reports whether WithForce(ctx, true) was applied.
func ForceFromContext(ctx context.Context) bool {
	force, _ := ctx.Value(forceKey{}).(bool)
	return force
}
