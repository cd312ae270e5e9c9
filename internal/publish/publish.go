package publish

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"boardwatch/internal/analyzers"
	"boardwatch/internal/ledger"
	"boardwatch/internal/logging"
	"boardwatch/internal/services"
	"boardwatch/internal/store"
)

// SignificantGet is a snapshot entry for a notable post number.
type SignificantGet struct {
	PostNumber string `json:"postNumber"`
	Comment    string `json:"comment"`
	CheckCount int    `json:"checkCount"`
	GetType    string `json:"getType"`
	HasImage   bool   `json:"hasImage"`
}

// KeyInsight is a snapshot entry for a heavily replied post.
type KeyInsight struct {
	PostNumber string `json:"postNumber"`
	Comment    string `json:"comment"`
	Replies    int    `json:"replies"`
}

// KeywordSection lists the newest posts mentioning the tracked term.
type KeywordSection struct {
	Term    string                   `json:"term"`
	Total   int                      `json:"total"`
	Matches []analyzers.KeywordMatch `json:"matches"`
}

// Snapshot is the public document.
type Snapshot struct {
	SignificantGets []SignificantGet       `json:"significantGets"`
	KeyInsights     []KeyInsight           `json:"keyInsights"`
	Keyword         KeywordSection         `json:"keyword"`
	Classification  *ClassificationSection `json:"classification,omitempty"`
	UpdatedAt       int64                  `json:"updatedAt"`
}

// Empty returns a snapshot with every section present and empty.
func Empty(now time.Time) Snapshot {
	return Snapshot{
		SignificantGets: []SignificantGet{},
		KeyInsights:     []KeyInsight{},
		Keyword:         KeywordSection{Matches: []analyzers.KeywordMatch{}},
		UpdatedAt:       now.UnixMilli(),
	}
}

// HistorySource supplies classification history, oldest first.
type HistorySource interface {
	RecentClassification(ctx context.Context, n int) ([]ledger.Point, error)
}

// Settings bounds each snapshot section.
type Settings struct {
	TopSignificant int
	TopReplies     int
	TopKeyword     int
	TrendWindow    int
	KeywordTerm    string
}

// DefaultSettings keeps three entries per section and six trend points.
func DefaultSettings() Settings {
	return Settings{TopSignificant: 3, TopReplies: 3, TopKeyword: 3, TrendWindow: 6}
}

// Publisher builds and writes the snapshot.
type Publisher struct {
	analysisDir  string
	snapshotPath string
	settings     Settings
	history      HistorySource
	logger       *slog.Logger
	now          func() time.Time
}

// New reads analyzer results under analysisDir and writes to snapshotPath.
// history may be nil, in which case the classification section is omitted.
func New(analysisDir, snapshotPath string, settings Settings, history HistorySource, logger *slog.Logger) *Publisher {
	return &Publisher{
		analysisDir:  analysisDir,
		snapshotPath: snapshotPath,
		settings:     settings,
		history:      history,
		logger:       logging.NewComponentLogger(logger, "publish"),
		now:          time.Now,
	}
}

// SnapshotPath returns the output location.
func (p *Publisher) SnapshotPath() string {
	return p.snapshotPath
}

// Publish builds the snapshot and writes it atomically.
func (p *Publisher) Publish(ctx context.Context) (Snapshot, error) {
	snapshot := p.Build(ctx)
	if err := store.Write(p.snapshotPath, snapshot); err != nil {
		return Snapshot{}, err
	}
	logging.WithContext(ctx, p.logger).Info("snapshot published",
		logging.String("path", p.snapshotPath),
		logging.Int("significant_gets", len(snapshot.SignificantGets)),
		logging.Int("key_insights", len(snapshot.KeyInsights)),
		logging.Int("keyword_matches", len(snapshot.Keyword.Matches)),
		logging.Bool("classification", snapshot.Classification != nil),
	)
	return snapshot, nil
}

// Build assembles the snapshot without writing it.
func (p *Publisher) Build(ctx context.Context) Snapshot {
	logger := logging.WithContext(ctx, p.logger)
	snapshot := Empty(p.now())
	snapshot.Keyword.Term = p.settings.KeywordTerm

	if file, ok := p.load(logger, analyzers.NameSignificance); ok {
		snapshot.SignificantGets = significantGets(file, p.settings.TopSignificant)
	}
	if file, ok := p.load(logger, analyzers.NameReply); ok {
		snapshot.KeyInsights = keyInsights(file, p.settings.TopReplies)
	}
	if file, ok := p.load(logger, analyzers.NameKeyword); ok {
		snapshot.Keyword.Matches, snapshot.Keyword.Total = keywordMatches(file, p.settings.TopKeyword)
	}

	if p.history != nil {
		points, err := p.history.RecentClassification(ctx, p.settings.TrendWindow+1)
		if err != nil {
			logging.ErrorWithContext(logger, "classification history unavailable", "publish_history_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "classification section omitted from snapshot"),
			)
		} else {
			snapshot.Classification = buildClassification(points, p.settings.TrendWindow)
		}
	}
	return snapshot
}

func (p *Publisher) load(logger *slog.Logger, name string) (analyzers.File, bool) {
	path := analyzers.ResultsPath(p.analysisDir, name)
	file, err := analyzers.LoadFile(path)
	switch {
	case err == nil:
		return file, true
	case errors.Is(err, services.ErrNotFound):
		logger.Debug("analyzer results not found", logging.String(logging.FieldAnalyzer, name))
	case errors.Is(err, services.ErrCorruptData):
		logging.ErrorWithContext(logger, "analyzer results unreadable", "publish_source_corrupt",
			logging.String(logging.FieldAnalyzer, name),
			logging.String("path", path),
			logging.Error(err),
			logging.String(logging.FieldImpact, "section published empty"),
			logging.String(logging.FieldErrorHint, "the next analyze run rewrites this file"),
		)
	default:
		logging.ErrorWithContext(logger, "analyzer results not readable", "publish_source_failed",
			logging.String(logging.FieldAnalyzer, name),
			logging.Error(err),
			logging.String(logging.FieldImpact, "section published empty"),
		)
	}
	return analyzers.File{}, false
}

// significantGets pools every retained run, keeps the newest entry per post,
// and re-ranks rather than trusting file order.
func significantGets(file analyzers.File, top int) []SignificantGet {
	seen := make(map[int64]struct{})
	var pooled []analyzers.Get
	for _, result := range file.Results {
		for _, g := range result.Gets {
			if _, dup := seen[g.PostNo]; dup {
				continue
			}
			seen[g.PostNo] = struct{}{}
			pooled = append(pooled, g)
		}
	}
	ranked := analyzers.RankGets(pooled)
	if top > 0 && len(ranked) > top {
		ranked = ranked[:top]
	}
	out := make([]SignificantGet, 0, len(ranked))
	for _, g := range ranked {
		out = append(out, SignificantGet{
			PostNumber: strconv.FormatInt(g.PostNo, 10),
			Comment:    g.Comment,
			CheckCount: g.CheckCount,
			GetType:    g.GetType,
			HasImage:   g.HasImage,
		})
	}
	return out
}

func keyInsights(file analyzers.File, top int) []KeyInsight {
	seen := make(map[int64]struct{})
	var pooled []analyzers.ReplyPost
	for _, result := range file.Results {
		for _, r := range result.Replies {
			if r.No <= 0 {
				continue
			}
			if _, dup := seen[r.No]; dup {
				continue
			}
			seen[r.No] = struct{}{}
			pooled = append(pooled, r)
		}
	}
	analyzers.SortReplies(pooled)
	if top > 0 && len(pooled) > top {
		pooled = pooled[:top]
	}
	out := make([]KeyInsight, 0, len(pooled))
	for _, r := range pooled {
		out = append(out, KeyInsight{
			PostNumber: strconv.FormatInt(r.No, 10),
			Comment:    r.Com,
			Replies:    r.Replies,
		})
	}
	return out
}

// keywordMatches takes the newest run only; older runs describe an older selection.
func keywordMatches(file analyzers.File, top int) ([]analyzers.KeywordMatch, int) {
	if len(file.Results) == 0 {
		return []analyzers.KeywordMatch{}, 0
	}
	newest := file.Results[0]
	matches := append([]analyzers.KeywordMatch(nil), newest.Keyword...)
	analyzers.SortKeywordMatches(matches)
	if top > 0 && len(matches) > top {
		matches = matches[:top]
	}
	if matches == nil {
		matches = []analyzers.KeywordMatch{}
	}
	return matches, newest.Metadata.Matches
}

// WriteTrends writes history (oldest first) to path as a JSON array.
func WriteTrends(path string, points []ledger.Point) error {
	return store.Write(path, TrendPoints(points))
}
