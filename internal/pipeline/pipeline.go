package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"boardwatch/internal/analyzers"
	"boardwatch/internal/articles"
	"boardwatch/internal/config"
	"boardwatch/internal/ledger"
	"boardwatch/internal/logging"
	"boardwatch/internal/publish"
	"boardwatch/internal/selection"
	"boardwatch/internal/services"
	"boardwatch/internal/threads"
)

// trendHistoryLimit bounds the points written to the trends file.
const trendHistoryLimit = 100

// Options tunes a single analyze run.
type Options struct {
	// ForceRegenerate rebuilds article records even when cached.
	ForceRegenerate bool
}

// Deps are the collaborators a Pipeline needs beyond configuration.
type Deps struct {
	// Ledger records classification history. Nil disables history and trends.
	Ledger *ledger.Ledger
	// Completer backs article generation. Nil disables articles.
	Completer articles.Completer
	Logger    *slog.Logger
}

// Summary describes one analyze run.
type Summary struct {
	ThreadsLoaded   int
	ThreadsSelected int
	Tiers           map[string]int
	Analyzers       analyzers.Report
	ArticlesWritten int
	ArticlesCached  int
	ArticlesFailed  int
	Analyzed        int
	Flagged         int
	Snapshot        publish.Snapshot
	BootstrapSeeded int
	HistoryRecorded bool
}

// Counters flattens the summary for the run ledger.
func (s Summary) Counters() map[string]int {
	counters := map[string]int{
		"threads_loaded":      s.ThreadsLoaded,
		"threads_selected":    s.ThreadsSelected,
		"analyzers_completed": len(s.Analyzers.Completed),
		"analyzers_failed":    len(s.Analyzers.Failed),
		"articles_written":    s.ArticlesWritten,
		"articles_cached":     s.ArticlesCached,
		"articles_failed":     s.ArticlesFailed,
		"comments_analyzed":   s.Analyzed,
		"comments_flagged":    s.Flagged,
	}
	for name, n := range s.Analyzers.Matches {
		counters["matches_"+name] = n
	}
	return counters
}

// Pipeline runs the analyze job against one data root.
type Pipeline struct {
	cfg       *config.Config
	selector  *selection.Selector
	analyzers []analyzers.Analyzer
	runner    *analyzers.Runner
	generator *articles.Generator
	publisher *publish.Publisher
	ledger    *ledger.Ledger
	logger    *slog.Logger
}

// New wires a pipeline from configuration.
func New(cfg *config.Config, deps Deps) (*Pipeline, error) {
	if cfg == nil {
		return nil, errors.New("pipeline requires config")
	}
	selector, err := selection.New(cfg.Selection.Thresholds, cfg.Selection.Caps)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "selection", "", err)
	}
	list, err := BuildAnalyzers(cfg)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		cfg:       cfg,
		selector:  selector,
		analyzers: list,
		runner:    analyzers.NewRunner(cfg.AnalysisDir(), cfg.Analyzers.RetainRuns, deps.Logger),
		ledger:    deps.Ledger,
		logger:    logging.NewComponentLogger(deps.Logger, "pipeline"),
	}
	if cfg.Articles.Enabled && deps.Completer != nil {
		p.generator = articles.NewGenerator(deps.Completer, cfg.ArticlesDir(), cfg.ExamplesPath(), ArticleSettings(cfg), deps.Logger)
	}

	var history publish.HistorySource
	if deps.Ledger != nil {
		history = deps.Ledger
	}
	p.publisher = publish.New(cfg.AnalysisDir(), cfg.SnapshotPath(), PublishSettings(cfg), history, deps.Logger)
	return p, nil
}

// BuildAnalyzers constructs the configured analyzers in run order.
func BuildAnalyzers(cfg *config.Config) ([]analyzers.Analyzer, error) {
	keyword, err := analyzers.NewKeyword(cfg.Analyzers.KeywordTerm, cfg.Analyzers.KeywordMaxPosts)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "keyword analyzer", "", err)
	}
	significance, err := analyzers.NewSignificance(cfg.Analyzers.SignificanceTop)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "significance analyzer", "", err)
	}
	reply, err := analyzers.NewReply(cfg.Analyzers.ReplyTop)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "reply analyzer", "", err)
	}
	return []analyzers.Analyzer{keyword, significance, reply}, nil
}

// ArticleSettings maps configuration onto generator settings.
func ArticleSettings(cfg *config.Config) articles.Settings {
	s := articles.DefaultSettings()
	a := cfg.Articles
	s.MaxTokens = a.MaxTokens
	s.Temperature = a.Temperature
	s.TopP = a.TopP
	s.FrequencyPenalty = a.FrequencyPenalty
	s.PresencePenalty = a.PresencePenalty
	s.ClassificationTemperature = a.ClassificationTemperature
	s.ArticleMaxWords = a.ArticleMaxWords
	s.MaxPostsPerThread = a.MaxPostsPerThread
	s.Retention = articles.RetentionPolicy{
		MaxExamples: a.RetentionMaxExamples,
		MaxAge:      time.Duration(a.RetentionMaxAgeHours) * time.Hour,
		MaxBytes:    a.RetentionMaxBytes,
	}
	return s
}

// PublishSettings maps configuration onto snapshot settings.
func PublishSettings(cfg *config.Config) publish.Settings {
	return publish.Settings{
		TopSignificant: cfg.Publish.TopSignificant,
		TopReplies:     cfg.Publish.TopReplies,
		TopKeyword:     cfg.Publish.TopKeyword,
		TrendWindow:    cfg.Publish.TrendWindow,
		KeywordTerm:    cfg.Analyzers.KeywordTerm,
	}
}

// AnalyzerNames lists the configured analyzer names.
func (p *Pipeline) AnalyzerNames() []string {
	names := make([]string, 0, len(p.analyzers))
	for _, a := range p.analyzers {
		names = append(names, a.Name())
	}
	return names
}

// Init bootstraps the data root.
func (p *Pipeline) Init(ctx context.Context) (int, error) {
	report, err := Bootstrap(ctx, p.cfg, p.AnalyzerNames(), p.bootstrapTimeout(), p.logger)
	return report.DirsCreated + report.FilesSeeded, err
}

// Publish rebuilds the snapshot from the current result files.
func (p *Pipeline) Publish(ctx context.Context) (publish.Snapshot, error) {
	lock, err := AcquireLock(p.cfg.LockPath())
	if err != nil {
		return publish.Snapshot{}, err
	}
	defer p.release(lock)
	return p.publisher.Publish(ctx)
}

// Analyze runs the full job. Failing to load the corpus aborts before
// anything is written, leaving the previous snapshot in place; analyzer and
// per-thread article failures are logged and the run continues.
func (p *Pipeline) Analyze(ctx context.Context, opts Options) (Summary, error) {
	logger := logging.WithContext(ctx, p.logger)
	var summary Summary

	lock, err := AcquireLock(p.cfg.LockPath())
	if err != nil {
		return summary, err
	}
	defer p.release(lock)

	seeded, err := p.Init(ctx)
	if err != nil {
		return summary, fmt.Errorf("bootstrap: %w", err)
	}
	summary.BootstrapSeeded = seeded

	corpus, err := threads.LoadAll(ctx, p.cfg.ThreadsDir(), p.logger)
	if err != nil {
		return summary, fmt.Errorf("load corpus: %w", err)
	}
	summary.ThreadsLoaded = len(corpus)

	buckets := p.selector.Select(corpus)
	selected := buckets.Flatten()
	summary.ThreadsSelected = len(selected)
	summary.Tiers = map[string]int{
		selection.TierTop:        len(buckets.Top),
		selection.TierMediumHigh: len(buckets.MediumHigh),
		selection.TierMedium:     len(buckets.Medium),
		selection.TierLow:        len(buckets.Low),
	}
	logger.Info("threads selected",
		logging.Int("corpus", len(corpus)),
		logging.Int("selected", len(selected)),
		logging.Int(selection.TierTop, len(buckets.Top)),
		logging.Int(selection.TierMediumHigh, len(buckets.MediumHigh)),
		logging.Int(selection.TierMedium, len(buckets.Medium)),
		logging.Int(selection.TierLow, len(buckets.Low)),
	)

	report, err := p.runner.Run(ctx, p.analyzers, selected)
	summary.Analyzers = report
	if err != nil {
		return summary, err
	}

	if err := p.generateArticles(ctx, logger, selected, opts, &summary); err != nil {
		return summary, err
	}
	p.recordClassification(ctx, logger, &summary)

	snapshot, err := p.publisher.Publish(ctx)
	if err != nil {
		return summary, fmt.Errorf("publish: %w", err)
	}
	summary.Snapshot = snapshot
	return summary, nil
}

func (p *Pipeline) generateArticles(ctx context.Context, logger *slog.Logger, selected []threads.Thread, opts Options, summary *Summary) error {
	if p.generator == nil {
		logger.Debug("article generation disabled")
		return nil
	}
	// The limit bounds backend work; cached records pass through without
	// counting toward it or toward the run's classification totals.
	limit := p.cfg.Articles.MaxThreadsPerRun
	for _, thread := range selected {
		if err := ctx.Err(); err != nil {
			return err
		}
		if limit > 0 && summary.ArticlesWritten+summary.ArticlesFailed >= limit {
			break
		}
		record, fresh, err := p.generator.GenerateThread(ctx, thread, articles.Options{ForceRegenerate: opts.ForceRegenerate})
		if err != nil {
			if errors.Is(err, services.ErrNotFound) {
				continue
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			summary.ArticlesFailed++
			logging.ErrorWithContext(logging.WithContext(services.WithThreadID(ctx, thread.No), p.logger),
				"article generation failed", "article_generation_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "thread has no article this run; other threads continue"),
				logging.String(logging.FieldErrorHint, "check llm.base_url, llm.api_key and backend availability"),
			)
			continue
		}
		if !fresh {
			summary.ArticlesCached++
			continue
		}
		summary.ArticlesWritten++
		summary.Analyzed += record.Stats.AnalyzedComments
		summary.Flagged += record.Stats.FlaggedComments
	}
	return nil
}

// recordClassification appends the run's aggregate to history and rewrites
// the trends file. Failures only cost the trend, so they are logged.
func (p *Pipeline) recordClassification(ctx context.Context, logger *slog.Logger, summary *Summary) {
	if p.ledger == nil || summary.Analyzed == 0 {
		return
	}
	runID, _ := services.RunIDFromContext(ctx)
	point := ledger.Point{
		RunID:      runID,
		Percentage: float64(summary.Flagged) / float64(summary.Analyzed) * 100,
		Analyzed:   summary.Analyzed,
		Flagged:    summary.Flagged,
	}
	if err := p.ledger.AddClassificationPoint(ctx, point); err != nil {
		logging.WarnWithContext(logger, "classification history not recorded", "classification_history_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "trend ignores this run"),
		)
		return
	}
	summary.HistoryRecorded = true

	history, err := p.ledger.RecentClassification(ctx, trendHistoryLimit)
	if err == nil {
		err = publish.WriteTrends(p.cfg.TrendsPath(), history)
	}
	if err != nil {
		logging.WarnWithContext(logger, "classification trends file not written", "classification_trends_failed",
			logging.Error(err),
			logging.String("path", p.cfg.TrendsPath()),
			logging.String(logging.FieldImpact, "trends file is stale until the next run"),
		)
	}
}

func (p *Pipeline) bootstrapTimeout() time.Duration {
	return time.Duration(p.cfg.Bootstrap.TimeoutSeconds) * time.Second
}

func (p *Pipeline) release(lock *Lock) {
	if err := lock.Release(); err != nil {
		logging.WarnWithContext(p.logger, "failed to release data lock", "lock_release_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "next run may report the data root as busy"),
		)
	}
}
