package articles

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"boardwatch/internal/logging"
	"boardwatch/internal/services"
	"boardwatch/internal/store"
	"boardwatch/internal/threads"
)

// LatestFile mirrors the most recently generated record.
const LatestFile = "latest-article.json"

var postNumberPattern = regexp.MustCompile(`No\.\s*(\d+)`)

// Generator produces and caches article records.
type Generator struct {
	client       Completer
	dir          string
	examplesPath string
	settings     Settings
	logger       *slog.Logger
	now          func() time.Time

	group      singleflight.Group
	examplesMu sync.Mutex
}

// NewGenerator stores records under dir and retained examples at examplesPath.
func NewGenerator(client Completer, dir, examplesPath string, settings Settings, logger *slog.Logger) *Generator {
	return &Generator{
		client:       client,
		dir:          dir,
		examplesPath: examplesPath,
		settings:     settings,
		logger:       logging.NewComponentLogger(logger, "articles"),
		now:          time.Now,
	}
}

// RecordPath is where the record for threadID lives.
func (g *Generator) RecordPath(threadID int64) string {
	return filepath.Join(g.dir, strconv.FormatInt(threadID, 10)+".json")
}

// Load returns the stored record for threadID.
func (g *Generator) Load(threadID int64) (Record, error) {
	var record Record
	if err := store.Read(g.RecordPath(threadID), &record); err != nil {
		return Record{}, err
	}
	return record, nil
}

// GenerateThread formats the thread's posts and calls Generate.
func (g *Generator) GenerateThread(ctx context.Context, thread threads.Thread, opts Options) (Record, bool, error) {
	return g.Generate(ctx, thread.No, FormatPosts(thread, g.settings.MaxPostsPerThread), opts)
}

// Generate returns the article record for threadID, creating it when absent
// or when opts.ForceRegenerate is set. posts are formatted post lines. The
// boolean is true only when this call went to the backend; cache hits and
// results shared from a concurrent caller report false.
func (g *Generator) Generate(ctx context.Context, threadID int64, posts []string, opts Options) (Record, bool, error) {
	ctx = services.WithThreadID(ctx, threadID)
	logger := logging.WithContext(ctx, g.logger)

	if !opts.ForceRegenerate {
		record, err := g.Load(threadID)
		switch {
		case err == nil:
			logger.Debug("article cache hit")
			return record, false, nil
		case errors.Is(err, services.ErrNotFound):
		case errors.Is(err, services.ErrCorruptData):
			logging.WarnWithContext(logger, "cached article unreadable; regenerating", "article_cache_corrupt",
				logging.Error(err),
				logging.String(logging.FieldImpact, "one extra backend call for this thread"),
			)
		default:
			return Record{}, false, err
		}
	}

	key := strconv.FormatInt(threadID, 10)
	if opts.ForceRegenerate {
		key += ":force"
	}
	// Only the caller whose closure runs owns a fresh result; waiters sharing
	// it report a cached one.
	owner := false
	value, err, shared := g.group.Do(key, func() (any, error) {
		owner = true
		if !opts.ForceRegenerate {
			// A concurrent caller may have finished between the cache check and here.
			if record, err := g.Load(threadID); err == nil {
				return generated{record: record}, nil
			}
		}
		record, err := g.generate(ctx, logger, threadID, posts)
		return generated{record: record, fresh: true}, err
	})
	if err != nil {
		return Record{}, false, err
	}
	result := value.(generated)
	if shared && !owner {
		logger.Debug("article generation shared with concurrent caller")
	}
	return result.record, owner && result.fresh, nil
}

type generated struct {
	record Record
	fresh  bool
}

func (g *Generator) generate(ctx context.Context, logger *slog.Logger, threadID int64, posts []string) (Record, error) {
	if len(posts) == 0 {
		return Record{}, services.Wrap(services.ErrNotFound, "articles", "generate", fmt.Sprintf("thread %d has no post text", threadID), nil)
	}
	started := time.Now()

	content, err := g.client.Complete(ctx, g.summaryRequest(posts))
	if err != nil {
		return Record{}, fmt.Errorf("summarize thread %d: %w", threadID, err)
	}
	summary, err := ParseSummary(content)
	if err != nil {
		logging.WarnWithContext(logger, "summary response incomplete; using fallbacks", "article_summary_malformed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "inspect the model output format"),
			logging.String(logging.FieldImpact, "article shows fallback headline or body"),
		)
	}

	classification := g.classify(ctx, logger, posts)
	now := g.now()
	examples := attributeExamples(threadID, classification.Examples, posts, now)

	flagged := clampCount(classification.Count, len(posts))
	record := Record{
		ThreadID: threadID,
		Headline: titleCase(summary.Headline),
		Article:  limitWords(summary.Article, g.settings.ArticleMaxWords),
		Stats: Stats{
			AnalyzedComments: len(posts),
			FlaggedComments:  flagged,
			Percentage:       percentage(flagged, len(posts)),
			Examples:         examples,
		},
		GeneratedAt: now.UnixMilli(),
	}

	if len(examples) > 0 {
		if err := g.retainExamples(examples, now); err != nil {
			logging.ErrorWithContext(logger, "retained examples not updated", "article_examples_write_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check permissions on the analysis directory"),
			)
		}
	}

	if err := store.Write(g.RecordPath(threadID), record); err != nil {
		return Record{}, err
	}
	if err := store.Write(filepath.Join(g.dir, LatestFile), record); err != nil {
		return Record{}, err
	}

	logger.Info("article generated",
		logging.String("headline", record.Headline),
		logging.Int("posts", len(posts)),
		logging.Int("flagged", flagged),
		logging.Duration("elapsed", time.Since(started)),
	)
	return record, nil
}

// classify never fails: any backend or parse error yields a zero result.
func (g *Generator) classify(ctx context.Context, logger *slog.Logger, posts []string) Classification {
	content, err := g.client.Complete(ctx, g.classificationRequest(posts))
	if err != nil {
		logging.WarnWithContext(logger, "classification request failed", "article_classification_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "thread counted with zero flagged posts"),
		)
		return Classification{}
	}
	parsed, err := ParseClassification(content)
	if err != nil {
		logging.WarnWithContext(logger, "classification response unparseable", "article_classification_malformed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "thread counted with zero flagged posts"),
		)
		return Classification{}
	}
	return parsed
}

func (g *Generator) retainExamples(incoming []Example, now time.Time) error {
	g.examplesMu.Lock()
	defer g.examplesMu.Unlock()

	var existing []Example
	if err := store.Read(g.examplesPath, &existing); err != nil {
		switch {
		case errors.Is(err, services.ErrNotFound):
		case errors.Is(err, services.ErrCorruptData):
			logging.ErrorWithContext(g.logger, "retained examples unreadable; starting fresh", "article_examples_corrupt",
				logging.String("path", g.examplesPath),
				logging.Error(err),
			)
			existing = nil
		default:
			return err
		}
	}
	return store.Write(g.examplesPath, Retain(existing, incoming, now, g.settings.Retention))
}

// LoadExamples reads the retained example store; a missing file is empty.
func LoadExamples(path string) ([]Example, error) {
	var examples []Example
	if err := store.Read(path, &examples); err != nil {
		if errors.Is(err, services.ErrNotFound) {
			return []Example{}, nil
		}
		return nil, err
	}
	return examples, nil
}

// attributeExamples finds the post each excerpt came from. When no post
// number can be recovered the capture time in milliseconds stands in.
func attributeExamples(threadID int64, excerpts, posts []string, now time.Time) []Example {
	out := make([]Example, 0, len(excerpts))
	for _, excerpt := range excerpts {
		postID := now.UnixMilli()
		for _, line := range posts {
			if !strings.Contains(line, excerpt) {
				continue
			}
			if m := postNumberPattern.FindStringSubmatch(line); m != nil {
				if id, err := strconv.ParseInt(m[1], 10, 64); err == nil {
					postID = id
				}
			}
			break
		}
		out = append(out, Example{
			ThreadID:   threadID,
			PostID:     postID,
			Content:    excerpt,
			CapturedAt: now.UnixMilli(),
		})
	}
	return out
}

// titleCase capitalizes each word and leaves existing capitals alone. A
// Caser holds state, so one is built per call.
func titleCase(s string) string {
	return cases.Title(language.English, cases.NoLower).String(s)
}

func percentage(flagged, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(flagged) / float64(total) * 100
}
