package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"

	"boardwatch/internal/analyzers"
	"boardwatch/internal/articles"
	"boardwatch/internal/logging"
	"boardwatch/internal/publish"
	"boardwatch/internal/selection"
	"boardwatch/internal/services"
	"boardwatch/internal/services/llm"
	"boardwatch/internal/store"
	"boardwatch/internal/testsupport"
)

type scriptedCompleter struct {
	mu         sync.Mutex
	summaryErr error
	calls      int
}

func (s *scriptedCompleter) Complete(_ context.Context, req llm.Request) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if strings.Contains(req.Messages[0].Content, "HEADLINE") {
		if s.summaryErr != nil {
			return "", s.summaryErr
		}
		return "HEADLINE: busy thread\nARTICLE: Posters talked.", nil
	}
	return `{"count": 1, "examples": ["reply 2"]}`, nil
}

func TestAnalyzeEndToEnd(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithArticlesDisabled())
	busy := testsupport.NewThread(1000, 50, map[int]string{
		10: "the greeks knew this already",
		30: "ask the Greeks",
	})
	testsupport.WriteThread(t, cfg.ThreadsDir(), busy)
	for i := int64(1); i <= 9; i++ {
		testsupport.WriteThread(t, cfg.ThreadsDir(), testsupport.NewThread(i*10, 0, nil))
	}

	p, err := New(cfg, Deps{Logger: logging.NewNop()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	summary, err := p.Analyze(context.Background(), Options{})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	if summary.ThreadsLoaded != 10 || summary.ThreadsSelected != 1 || summary.Tiers[selection.TierTop] != 1 {
		t.Fatalf("unexpected selection summary %+v", summary)
	}
	if summary.Analyzers.Matches[analyzers.NameKeyword] != 2 {
		t.Fatalf("expected 2 keyword matches, got %d", summary.Analyzers.Matches[analyzers.NameKeyword])
	}

	file, err := analyzers.LoadFile(analyzers.ResultsPath(cfg.AnalysisDir(), analyzers.NameKeyword))
	if err != nil {
		t.Fatal(err)
	}
	expected := append([]analyzers.KeywordMatch(nil), file.Results[0].Keyword...)
	analyzers.SortKeywordMatches(expected)

	var snapshot publish.Snapshot
	if err := store.Read(cfg.SnapshotPath(), &snapshot); err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	got := snapshot.Keyword.Matches
	if len(got) != 2 {
		t.Fatalf("expected 2 keyword entries in snapshot, got %+v", got)
	}
	for i := range got {
		if got[i].PostID != expected[i].PostID {
			t.Fatalf("snapshot entry %d: got post %d want %d", i, got[i].PostID, expected[i].PostID)
		}
	}
	if got[0].PostID != 1031 || got[1].PostID != 1011 {
		t.Fatalf("expected newest match first, got %d then %d", got[0].PostID, got[1].PostID)
	}
	if summary.ArticlesWritten != 0 {
		t.Fatal("articles should be disabled")
	}
}

func TestAnalyzeGeneratesArticlesAndHistory(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	l := testsupport.MustOpenLedger(t, cfg)
	testsupport.WriteThread(t, cfg.ThreadsDir(), testsupport.NewThread(500, 5, nil))

	completer := &scriptedCompleter{}
	p, err := New(cfg, Deps{Ledger: l, Completer: completer, Logger: logging.NewNop()})
	if err != nil {
		t.Fatal(err)
	}
	ctx := services.WithRunID(context.Background(), "run-1")
	summary, err := p.Analyze(ctx, Options{})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if summary.ArticlesWritten != 1 || summary.Analyzed != 6 || summary.Flagged != 1 || !summary.HistoryRecorded {
		t.Fatalf("unexpected summary %+v", summary)
	}

	if _, err := os.Stat(fmt.Sprintf("%s/500.json", cfg.ArticlesDir())); err != nil {
		t.Fatalf("article record missing: %v", err)
	}
	var trends []publish.TrendPoint
	if err := store.Read(cfg.TrendsPath(), &trends); err != nil || len(trends) != 1 {
		t.Fatalf("unexpected trends %+v err=%v", trends, err)
	}
	c := summary.Snapshot.Classification
	if c == nil || c.Level != publish.LevelMedium || c.Trend.Direction != publish.TrendStable {
		t.Fatalf("unexpected classification section %+v", c)
	}
	examples, err := articles.LoadExamples(cfg.ExamplesPath())
	if err != nil || len(examples) != 1 || examples[0].PostID != 503 {
		t.Fatalf("unexpected retained examples %+v err=%v", examples, err)
	}

	calls := completer.calls
	again, err := p.Analyze(services.WithRunID(context.Background(), "run-2"), Options{})
	if err != nil {
		t.Fatal(err)
	}
	if completer.calls != calls {
		t.Fatal("cached article should not call the backend again")
	}
	if again.ArticlesWritten != 0 || again.ArticlesCached != 1 || again.Analyzed != 0 || again.HistoryRecorded {
		t.Fatalf("cached article must not count as new work: %+v", again)
	}
	if err := store.Read(cfg.TrendsPath(), &trends); err != nil || len(trends) != 1 {
		t.Fatalf("cached run should not add a trend point: %+v err=%v", trends, err)
	}
}

func TestAnalyzeContinuesAfterArticleFailure(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	testsupport.WriteThread(t, cfg.ThreadsDir(), testsupport.NewThread(500, 5, nil))
	testsupport.WriteThread(t, cfg.ThreadsDir(), testsupport.NewThread(600, 3, nil))

	completer := &scriptedCompleter{summaryErr: services.Wrap(services.ErrUpstream, "llm", "complete", "", errors.New("503"))}
	p, err := New(cfg, Deps{Completer: completer, Logger: logging.NewNop()})
	if err != nil {
		t.Fatal(err)
	}
	summary, err := p.Analyze(context.Background(), Options{})
	if err != nil {
		t.Fatalf("article failures must not abort the run: %v", err)
	}
	if summary.ArticlesFailed != 2 || summary.ArticlesWritten != 0 {
		t.Fatalf("unexpected article counts %+v", summary)
	}
	if ok, _ := store.Exists(cfg.SnapshotPath()); !ok {
		t.Fatal("snapshot should still be published")
	}
}

func TestAnalyzeRespectsArticleLimit(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Articles.MaxThreadsPerRun = 1
	testsupport.WriteThread(t, cfg.ThreadsDir(), testsupport.NewThread(500, 5, nil))
	testsupport.WriteThread(t, cfg.ThreadsDir(), testsupport.NewThread(600, 3, nil))

	p, err := New(cfg, Deps{Completer: &scriptedCompleter{}, Logger: logging.NewNop()})
	if err != nil {
		t.Fatal(err)
	}
	summary, err := p.Analyze(context.Background(), Options{})
	if err != nil {
		t.Fatal(err)
	}
	if summary.ArticlesWritten != 1 {
		t.Fatalf("expected one article, got %d", summary.ArticlesWritten)
	}
	if _, err := os.Stat(fmt.Sprintf("%s/500.json", cfg.ArticlesDir())); err != nil {
		t.Fatal("busiest thread should be summarized first")
	}
}

func TestAnalyzeArticleLimitSkipsCachedThreads(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Articles.MaxThreadsPerRun = 1
	l := testsupport.MustOpenLedger(t, cfg)
	testsupport.WriteThread(t, cfg.ThreadsDir(), testsupport.NewThread(500, 5, nil))
	testsupport.WriteThread(t, cfg.ThreadsDir(), testsupport.NewThread(600, 3, nil))

	p, err := New(cfg, Deps{Ledger: l, Completer: &scriptedCompleter{}, Logger: logging.NewNop()})
	if err != nil {
		t.Fatal(err)
	}
	first, err := p.Analyze(services.WithRunID(context.Background(), "run-1"), Options{})
	if err != nil {
		t.Fatal(err)
	}
	if first.ArticlesWritten != 1 || first.Analyzed != 6 || first.Flagged != 1 {
		t.Fatalf("unexpected first run %+v", first)
	}
	if ok, _ := store.Exists(fmt.Sprintf("%s/600.json", cfg.ArticlesDir())); ok {
		t.Fatal("limit should leave the second thread for the next run")
	}

	second, err := p.Analyze(services.WithRunID(context.Background(), "run-2"), Options{})
	if err != nil {
		t.Fatal(err)
	}
	if second.ArticlesWritten != 1 || second.ArticlesCached != 1 {
		t.Fatalf("expected one cached and one new article, got %+v", second)
	}
	if _, err := os.Stat(fmt.Sprintf("%s/600.json", cfg.ArticlesDir())); err != nil {
		t.Fatalf("second thread should be summarized on the next run: %v", err)
	}
	if second.Analyzed != 4 || second.Flagged != 1 {
		t.Fatalf("second run should only count the new article, got analyzed=%d flagged=%d", second.Analyzed, second.Flagged)
	}
	if got := second.Counters()["articles_cached"]; got != 1 {
		t.Fatalf("articles_cached counter = %d", got)
	}

	history, err := l.RecentClassification(context.Background(), 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 2 || history[0].Analyzed != 6 || history[1].Analyzed != 4 {
		t.Fatalf("unexpected classification history %+v", history)
	}
}

func TestAnalyzeFailsWhenCorpusUnavailable(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithArticlesDisabled())
	if err := os.MkdirAll(cfg.Paths.DataDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(cfg.ThreadsDir(), []byte("not a directory"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := store.Write(cfg.SnapshotPath(), map[string]string{"marker": "previous"}); err != nil {
		t.Fatal(err)
	}

	p, err := New(cfg, Deps{Logger: logging.NewNop()})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := p.Analyze(context.Background(), Options{}); err == nil {
		t.Fatal("expected failure when the corpus directory is unusable")
	}
	var previous map[string]string
	if err := store.Read(cfg.SnapshotPath(), &previous); err != nil || previous["marker"] != "previous" {
		t.Fatalf("previous snapshot should be left in place, got %v err=%v", previous, err)
	}
}

func TestAnalyzeRejectsConcurrentRun(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithArticlesDisabled())
	held, err := AcquireLock(cfg.LockPath())
	if err != nil {
		t.Fatal(err)
	}
	defer held.Release()

	p, err := New(cfg, Deps{Logger: logging.NewNop()})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := p.Analyze(context.Background(), Options{}); !errors.Is(err, services.ErrJobRunning) {
		t.Fatalf("expected ErrJobRunning, got %v", err)
	}
}

func TestInitSeedsSkeleton(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	p, err := New(cfg, Deps{Logger: logging.NewNop()})
	if err != nil {
		t.Fatal(err)
	}
	changed, err := p.Init(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if changed == 0 {
		t.Fatal("expected directories and files to be created")
	}
	for _, name := range p.AnalyzerNames() {
		file, err := analyzers.LoadFile(analyzers.ResultsPath(cfg.AnalysisDir(), name))
		if err != nil || file.Results == nil {
			t.Fatalf("seed for %s: %+v err=%v", name, file, err)
		}
	}
	examples, err := articles.LoadExamples(cfg.ExamplesPath())
	if err != nil || examples == nil {
		t.Fatalf("examples seed: %v", err)
	}

	changed, err = p.Init(context.Background())
	if err != nil || changed != 0 {
		t.Fatalf("second init should be a no-op, changed=%d err=%v", changed, err)
	}
}

func TestBootstrapTimeoutProceeds(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	ctx, cancel := context.WithTimeout(context.Background(), 0)
	defer cancel()
	<-ctx.Done()
	if _, err := Bootstrap(ctx, cfg, []string{analyzers.NameKeyword}, 0, logging.NewNop()); err != nil {
		t.Fatalf("timeout should be logged, not returned: %v", err)
	}
}
