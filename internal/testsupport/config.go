package testsupport

import (
	"path/filepath"
	"testing"

	"boardwatch/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.LLM.APIKey = "test"
	cfgVal.LLM.RequestsPerMinute = 0
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.PublicDir = filepath.Join(base, "public")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithArticlesDisabled turns off AI article generation.
func WithArticlesDisabled() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Articles.Enabled = false
	}
}

// WithKeywordTerm overrides the tracked keyword.
func WithKeywordTerm(term string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Analyzers.KeywordTerm = term
	}
}

// WithLLMBaseURL points the completion client at a test server.
func WithLLMBaseURL(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.LLM.BaseURL = url
	}
}

// WithScrapeCommand configures the external scraper.
func WithScrapeCommand(command string, args ...string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Scrape.Command = command
		b.cfg.Scrape.Args = args
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
