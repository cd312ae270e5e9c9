package config

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const envPrefix = "BOARDWATCH"

type envOverride struct {
	key   string
	apply func(v *viper.Viper, cfg *Config)
}

// envOverrides lists the scalar keys that may be supplied through the
// environment. Keys map to BOARDWATCH_<SECTION>_<FIELD>.
var envOverrides = []envOverride{
	{"paths.data_dir", func(v *viper.Viper, c *Config) { c.Paths.DataDir = v.GetString("paths.data_dir") }},
	{"paths.public_dir", func(v *viper.Viper, c *Config) { c.Paths.PublicDir = v.GetString("paths.public_dir") }},
	{"paths.log_dir", func(v *viper.Viper, c *Config) { c.Paths.LogDir = v.GetString("paths.log_dir") }},
	{"llm.api_key", func(v *viper.Viper, c *Config) { c.LLM.APIKey = v.GetString("llm.api_key") }},
	{"llm.base_url", func(v *viper.Viper, c *Config) { c.LLM.BaseURL = v.GetString("llm.base_url") }},
	{"llm.model", func(v *viper.Viper, c *Config) { c.LLM.Model = v.GetString("llm.model") }},
	{"llm.timeout_seconds", func(v *viper.Viper, c *Config) { c.LLM.TimeoutSeconds = v.GetInt("llm.timeout_seconds") }},
	{"llm.requests_per_minute", func(v *viper.Viper, c *Config) { c.LLM.RequestsPerMinute = v.GetInt("llm.requests_per_minute") }},
	{"articles.enabled", func(v *viper.Viper, c *Config) { c.Articles.Enabled = v.GetBool("articles.enabled") }},
	{"articles.max_threads_per_run", func(v *viper.Viper, c *Config) {
		c.Articles.MaxThreadsPerRun = v.GetInt("articles.max_threads_per_run")
	}},
	{"analyzers.keyword_term", func(v *viper.Viper, c *Config) { c.Analyzers.KeywordTerm = v.GetString("analyzers.keyword_term") }},
	{"scheduler.scrape_schedule", func(v *viper.Viper, c *Config) {
		c.Scheduler.ScrapeSchedule = v.GetString("scheduler.scrape_schedule")
	}},
	{"scheduler.analyze_schedule", func(v *viper.Viper, c *Config) {
		c.Scheduler.AnalyzeSchedule = v.GetString("scheduler.analyze_schedule")
	}},
	{"scheduler.run_on_start", func(v *viper.Viper, c *Config) { c.Scheduler.RunOnStart = v.GetBool("scheduler.run_on_start") }},
	{"scrape.command", func(v *viper.Viper, c *Config) { c.Scrape.Command = v.GetString("scrape.command") }},
	{"logging.format", func(v *viper.Viper, c *Config) { c.Logging.Format = v.GetString("logging.format") }},
	{"logging.level", func(v *viper.Viper, c *Config) { c.Logging.Level = v.GetString("logging.level") }},
}

// applyEnvOverrides loads an optional .env file next to the config and then
// lets BOARDWATCH_* variables replace scalar settings.
func applyEnvOverrides(cfg *Config, dir string) error {
	if dir != "" {
		envFile := filepath.Join(dir, ".env")
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for _, override := range envOverrides {
		if v.IsSet(override.key) {
			override.apply(v, cfg)
		}
	}
	return nil
}
