package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	DataDir   string `toml:"data_dir"`
	PublicDir string `toml:"public_dir"`
	LogDir    string `toml:"log_dir"`
}

// LLM contains connection settings for the text-completion backend.
type LLM struct {
	APIKey            string `toml:"api_key"`
	BaseURL           string `toml:"base_url"`
	Model             string `toml:"model"`
	Referer           string `toml:"referer"`
	Title             string `toml:"title"`
	TimeoutSeconds    int    `toml:"timeout_seconds"`
	MaxAttempts       int    `toml:"max_attempts"`
	RequestsPerMinute int    `toml:"requests_per_minute"`
}

// Selection contains the rank thresholds and per-tier caps used to sample the corpus.
type Selection struct {
	// Thresholds are the rank boundaries T1<T2<T3 separating the four tiers.
	Thresholds []int `toml:"thresholds"`
	// Caps are the maximum thread counts for top, medium-high, medium, and low.
	Caps []int `toml:"caps"`
}

// Analyzers contains settings for the pattern-based analyzers.
type Analyzers struct {
	KeywordTerm     string `toml:"keyword_term"`
	KeywordMaxPosts int    `toml:"keyword_max_posts"`
	SignificanceTop int    `toml:"significance_top"`
	ReplyTop        int    `toml:"reply_top"`
	RetainRuns      int    `toml:"retain_runs"`
}

// Articles contains settings for AI summarization and classification.
type Articles struct {
	Enabled                   bool    `toml:"enabled"`
	MaxThreadsPerRun          int     `toml:"max_threads_per_run"`
	MaxPostsPerThread         int     `toml:"max_posts_per_thread"`
	MaxTokens                 int     `toml:"max_tokens"`
	Temperature               float64 `toml:"temperature"`
	TopP                      float64 `toml:"top_p"`
	FrequencyPenalty          float64 `toml:"frequency_penalty"`
	PresencePenalty           float64 `toml:"presence_penalty"`
	ClassificationTemperature float64 `toml:"classification_temperature"`
	ArticleMaxWords           int     `toml:"article_max_words"`
	RetentionMaxExamples      int     `toml:"retention_max_examples"`
	RetentionMaxAgeHours      int     `toml:"retention_max_age_hours"`
	RetentionMaxBytes         int     `toml:"retention_max_bytes"`
}

// Scheduler contains cron specifications (UTC) and job limits.
type Scheduler struct {
	ScrapeSchedule    string `toml:"scrape_schedule"`
	AnalyzeSchedule   string `toml:"analyze_schedule"`
	JobTimeoutSeconds int    `toml:"job_timeout_seconds"`
	RunOnStart        bool   `toml:"run_on_start"`
}

// Scrape describes the external scraper command.
type Scrape struct {
	Command        string   `toml:"command"`
	Args           []string `toml:"args"`
	TimeoutSeconds int      `toml:"timeout_seconds"`
}

// Publish contains snapshot section sizes.
type Publish struct {
	TopSignificant int `toml:"top_significant"`
	TopReplies     int `toml:"top_replies"`
	TopKeyword     int `toml:"top_keyword"`
	TrendWindow    int `toml:"trend_window"`
}

// Bootstrap contains startup settings.
type Bootstrap struct {
	TimeoutSeconds int `toml:"timeout_seconds"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for boardwatch.
//
// Configuration sections by subsystem:
//   - Paths: data, public snapshot, and log directories
//   - LLM: text-completion backend connection and pacing
//   - Selection: stratified sampling thresholds and caps
//   - Analyzers: keyword term and result limits
//   - Articles: AI sampling parameters and example retention
//   - Scheduler: cron specs and job timeout
//   - Scrape: external scraper command
//   - Publish: snapshot section sizes
//   - Bootstrap: startup timeout
//   - Logging: log format, level, and retention
type Config struct {
	Paths     Paths     `toml:"paths"`
	LLM       LLM       `toml:"llm"`
	Selection Selection `toml:"selection"`
	Analyzers Analyzers `toml:"analyzers"`
	Articles  Articles  `toml:"articles"`
	Scheduler Scheduler `toml:"scheduler"`
	Scrape    Scrape    `toml:"scrape"`
	Publish   Publish   `toml:"publish"`
	Bootstrap Bootstrap `toml:"bootstrap"`
	Logging   Logging   `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and environment overrides applied.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := applyEnvOverrides(&cfg, filepath.Dir(resolvedPath)); err != nil {
		return nil, "", false, err
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("boardwatch.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories the pipeline writes into. The
// threads directory is created too so an empty corpus reads as empty rather
// than missing.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.ThreadsDir(), c.Paths.PublicDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// ThreadsDir is where the external scraper drops one JSON file per thread.
func (c *Config) ThreadsDir() string { return filepath.Join(c.Paths.DataDir, "threads") }

// AnalysisDir holds per-analyzer result files.
func (c *Config) AnalysisDir() string { return filepath.Join(c.Paths.DataDir, "analysis") }

// ArticlesDir holds one article record per thread.
func (c *Config) ArticlesDir() string { return filepath.Join(c.Paths.DataDir, "articles") }

// ExamplesPath is the retained flagged-example store shared across threads.
func (c *Config) ExamplesPath() string {
	return filepath.Join(c.AnalysisDir(), "flagged-examples.json")
}

// TrendsPath is the classification history exported for the display layer.
func (c *Config) TrendsPath() string {
	return filepath.Join(c.AnalysisDir(), "classification-trends.json")
}

// SnapshotPath is the public snapshot consumed by the presentation layer.
func (c *Config) SnapshotPath() string { return filepath.Join(c.Paths.PublicDir, "data.json") }

// LedgerPath is the sqlite run ledger.
func (c *Config) LedgerPath() string { return filepath.Join(c.Paths.DataDir, "boardwatch.db") }

// LockPath guards the data directory against concurrent pipelines.
func (c *Config) LockPath() string { return filepath.Join(c.Paths.DataDir, "boardwatch.lock") }

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// Redacted returns a copy safe to print: secrets are masked.
func (c *Config) Redacted() Config {
	out := *c
	if out.LLM.APIKey != "" {
		out.LLM.APIKey = "********"
	}
	out.Selection.Thresholds = append([]int(nil), c.Selection.Thresholds...)
	out.Selection.Caps = append([]int(nil), c.Selection.Caps...)
	out.Scrape.Args = append([]string(nil), c.Scrape.Args...)
	return out
}

// Marshal renders the configuration as TOML.
func (c *Config) Marshal() ([]byte, error) {
	return toml.Marshal(c)
}
