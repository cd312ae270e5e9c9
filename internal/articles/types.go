package articles

import (
	"context"

	"boardwatch/internal/services/llm"
)

// Completer is the subset of the llm client the generator needs.
type Completer interface {
	Complete(ctx context.Context, req llm.Request) (string, error)
}

// Example is a flagged excerpt kept for display after its thread is purged.
type Example struct {
	ThreadID   int64  `json:"threadId"`
	PostID     int64  `json:"postId"`
	Content    string `json:"content"`
	CapturedAt int64  `json:"capturedAt"`
}

// Stats are the classification figures for one thread.
type Stats struct {
	AnalyzedComments int       `json:"analyzedComments"`
	FlaggedComments  int       `json:"flaggedComments"`
	Percentage       float64   `json:"percentage"`
	Examples         []Example `json:"examples"`
}

// Record is the persisted article for one thread.
type Record struct {
	ThreadID    int64  `json:"threadId"`
	Headline    string `json:"headline"`
	Article     string `json:"article"`
	Stats       Stats  `json:"stats"`
	GeneratedAt int64  `json:"generatedAt"`
}

// Options tune a single Generate call.
type Options struct {
	ForceRegenerate bool
}

// Settings carries sampling parameters and limits.
type Settings struct {
	MaxTokens                 int
	Temperature               float64
	TopP                      float64
	FrequencyPenalty          float64
	PresencePenalty           float64
	ClassificationTemperature float64
	ArticleMaxWords           int
	MaxPostsPerThread         int
	Retention                 RetentionPolicy
}

// DefaultSettings mirrors the stock configuration.
func DefaultSettings() Settings {
	return Settings{
		MaxTokens:                 1000,
		Temperature:               0.7,
		TopP:                      0.9,
		FrequencyPenalty:          0.5,
		PresencePenalty:           0.5,
		ClassificationTemperature: 0.3,
		ArticleMaxWords:           150,
		MaxPostsPerThread:         200,
		Retention:                 DefaultRetention(),
	}
}
