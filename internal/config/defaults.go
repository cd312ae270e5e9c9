package config

const (
	defaultConfigPath          = "~/.config/boardwatch/config.toml"
	defaultDataDir             = "~/.local/share/boardwatch/data"
	defaultPublicDir           = "~/.local/share/boardwatch/public"
	defaultLogDir              = "~/.local/share/boardwatch/logs"
	defaultLLMBaseURL          = "https://api.deepseek.com/chat/completions"
	defaultLLMModel            = "deepseek-chat"
	defaultLLMTitle            = "boardwatch"
	defaultLLMTimeoutSeconds   = 60
	defaultLLMMaxAttempts      = 3
	defaultLLMRequestsPerMin   = 40
	defaultKeywordTerm         = "greeks"
	defaultKeywordMaxPosts     = 3
	defaultSignificanceTop     = 2
	defaultReplyTop            = 5
	defaultRetainRuns          = 10
	defaultMaxThreadsPerRun    = 20
	defaultMaxPostsPerThread   = 200
	defaultMaxTokens           = 1000
	defaultArticleMaxWords     = 150
	defaultRetentionMaxExample = 100
	defaultRetentionMaxAgeHrs  = 7 * 24
	defaultRetentionMaxBytes   = 1 << 20
	defaultScrapeSchedule      = "0 */2 * * *"
	defaultAnalyzeSchedule     = "15 */2 * * *"
	defaultJobTimeoutSeconds   = 1800
	defaultScrapeTimeout       = 600
	defaultPublishTop          = 3
	defaultTrendWindow         = 6
	defaultBootstrapTimeout    = 60
	defaultLogFormat           = "auto"
	defaultLogLevel            = "info"
	defaultLogRetentionDays    = 30
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:   defaultDataDir,
			PublicDir: defaultPublicDir,
			LogDir:    defaultLogDir,
		},
		LLM: LLM{
			BaseURL:           defaultLLMBaseURL,
			Model:             defaultLLMModel,
			Title:             defaultLLMTitle,
			TimeoutSeconds:    defaultLLMTimeoutSeconds,
			MaxAttempts:       defaultLLMMaxAttempts,
			RequestsPerMinute: defaultLLMRequestsPerMin,
		},
		Selection: Selection{
			Thresholds: []int{5, 10, 15},
			Caps:       []int{5, 5, 5, 5},
		},
		Analyzers: Analyzers{
			KeywordTerm:     defaultKeywordTerm,
			KeywordMaxPosts: defaultKeywordMaxPosts,
			SignificanceTop: defaultSignificanceTop,
			ReplyTop:        defaultReplyTop,
			RetainRuns:      defaultRetainRuns,
		},
		Articles: Articles{
			Enabled:                   true,
			MaxThreadsPerRun:          defaultMaxThreadsPerRun,
			MaxPostsPerThread:         defaultMaxPostsPerThread,
			MaxTokens:                 defaultMaxTokens,
			Temperature:               0.7,
			TopP:                      0.9,
			FrequencyPenalty:          0.5,
			PresencePenalty:           0.5,
			ClassificationTemperature: 0.3,
			ArticleMaxWords:           defaultArticleMaxWords,
			RetentionMaxExamples:      defaultRetentionMaxExample,
			RetentionMaxAgeHours:      defaultRetentionMaxAgeHrs,
			RetentionMaxBytes:         defaultRetentionMaxBytes,
		},
		Scheduler: Scheduler{
			ScrapeSchedule:    defaultScrapeSchedule,
			AnalyzeSchedule:   defaultAnalyzeSchedule,
			JobTimeoutSeconds: defaultJobTimeoutSeconds,
		},
		Scrape: Scrape{
			TimeoutSeconds: defaultScrapeTimeout,
		},
		Publish: Publish{
			TopSignificant: defaultPublishTop,
			TopReplies:     defaultPublishTop,
			TopKeyword:     defaultPublishTop,
			TrendWindow:    defaultTrendWindow,
		},
		Bootstrap: Bootstrap{
			TimeoutSeconds: defaultBootstrapTimeout,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
