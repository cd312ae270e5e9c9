package config

import (
	"errors"
	"fmt"

	"github.com/robfig/cron/v3"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateLLM(); err != nil {
		return err
	}
	if err := c.validateSelection(); err != nil {
		return err
	}
	if err := c.validateAnalyzers(); err != nil {
		return err
	}
	if err := c.validateArticles(); err != nil {
		return err
	}
	if err := c.validateScheduler(); err != nil {
		return err
	}
	if err := c.validatePublish(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateLLM() error {
	if c.Articles.Enabled && c.LLM.APIKey == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = defaultConfigPath
		}
		return fmt.Errorf("llm.api_key is required when articles are enabled. Set BOARDWATCH_LLM_API_KEY or DEEPSEEK_API_KEY, or edit %s (create with 'boardwatch config init')", defaultPath)
	}
	if c.LLM.TimeoutSeconds <= 0 {
		return errors.New("llm.timeout_seconds must be positive")
	}
	if c.LLM.MaxAttempts <= 0 {
		return errors.New("llm.max_attempts must be positive")
	}
	if c.LLM.RequestsPerMinute < 0 {
		return errors.New("llm.requests_per_minute must not be negative (0 disables pacing)")
	}
	return nil
}

func (c *Config) validateSelection() error {
	if len(c.Selection.Thresholds) != 3 {
		return fmt.Errorf("selection.thresholds must list 3 rank boundaries, got %d", len(c.Selection.Thresholds))
	}
	prev := 0
	for i, threshold := range c.Selection.Thresholds {
		if threshold <= prev {
			return fmt.Errorf("selection.thresholds must be positive and strictly increasing (index %d)", i)
		}
		prev = threshold
	}
	if len(c.Selection.Caps) != 4 {
		return fmt.Errorf("selection.caps must list 4 tier caps, got %d", len(c.Selection.Caps))
	}
	for i, limit := range c.Selection.Caps {
		if limit <= 0 {
			return fmt.Errorf("selection.caps[%d] must be positive", i)
		}
	}
	return nil
}

func (c *Config) validateAnalyzers() error {
	if c.Analyzers.KeywordTerm == "" {
		return errors.New("analyzers.keyword_term must be set")
	}
	return ensurePositiveMap(map[string]int{
		"analyzers.keyword_max_posts": c.Analyzers.KeywordMaxPosts,
		"analyzers.significance_top":  c.Analyzers.SignificanceTop,
		"analyzers.reply_top":         c.Analyzers.ReplyTop,
		"analyzers.retain_runs":       c.Analyzers.RetainRuns,
	})
}

func (c *Config) validateArticles() error {
	if err := ensurePositiveMap(map[string]int{
		"articles.max_threads_per_run":     c.Articles.MaxThreadsPerRun,
		"articles.max_posts_per_thread":    c.Articles.MaxPostsPerThread,
		"articles.max_tokens":              c.Articles.MaxTokens,
		"articles.article_max_words":       c.Articles.ArticleMaxWords,
		"articles.retention_max_examples":  c.Articles.RetentionMaxExamples,
		"articles.retention_max_age_hours": c.Articles.RetentionMaxAgeHours,
		"articles.retention_max_bytes":     c.Articles.RetentionMaxBytes,
	}); err != nil {
		return err
	}
	if c.Articles.TopP <= 0 || c.Articles.TopP > 1 {
		return errors.New("articles.top_p must be in (0, 1]")
	}
	for key, value := range map[string]float64{
		"articles.temperature":                c.Articles.Temperature,
		"articles.classification_temperature": c.Articles.ClassificationTemperature,
	} {
		if value < 0 || value > 2 {
			return fmt.Errorf("%s must be between 0 and 2", key)
		}
	}
	return nil
}

func (c *Config) validateScheduler() error {
	for key, spec := range map[string]string{
		"scheduler.scrape_schedule":  c.Scheduler.ScrapeSchedule,
		"scheduler.analyze_schedule": c.Scheduler.AnalyzeSchedule,
	} {
		if spec == "" {
			return fmt.Errorf("%s must be set", key)
		}
		if _, err := cron.ParseStandard(spec); err != nil {
			return fmt.Errorf("%s: invalid cron expression %q: %w", key, spec, err)
		}
	}
	return ensurePositiveMap(map[string]int{
		"scheduler.job_timeout_seconds": c.Scheduler.JobTimeoutSeconds,
		"scrape.timeout_seconds":        c.Scrape.TimeoutSeconds,
		"bootstrap.timeout_seconds":     c.Bootstrap.TimeoutSeconds,
	})
}

func (c *Config) validatePublish() error {
	return ensurePositiveMap(map[string]int{
		"publish.top_significant": c.Publish.TopSignificant,
		"publish.top_replies":     c.Publish.TopReplies,
		"publish.top_keyword":     c.Publish.TopKeyword,
		"publish.trend_window":    c.Publish.TrendWindow,
	})
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "auto", "console", "json":
	default:
		return fmt.Errorf("logging.format must be auto, console, or json (got %q)", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error (got %q)", c.Logging.Level)
	}
	if c.Logging.RetentionDays < 0 {
		return errors.New("logging.retention_days must not be negative")
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
