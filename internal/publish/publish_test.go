package publish

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"boardwatch/internal/analyzers"
	"boardwatch/internal/ledger"
	"boardwatch/internal/logging"
	"boardwatch/internal/store"
)

type staticHistory struct {
	points []ledger.Point
	err    error
	asked  int
}

func (h *staticHistory) RecentClassification(_ context.Context, n int) ([]ledger.Point, error) {
	h.asked = n
	if h.err != nil {
		return nil, h.err
	}
	if len(h.points) > n {
		return h.points[len(h.points)-n:], nil
	}
	return h.points, nil
}

func writeResults(t *testing.T, dir, name string, results ...analyzers.Result) {
	t.Helper()
	if err := store.Write(analyzers.ResultsPath(dir, name), analyzers.File{LastUpdated: 1, Results: results}); err != nil {
		t.Fatalf("write %s results: %v", name, err)
	}
}

func newTestPublisher(t *testing.T, history HistorySource) (*Publisher, string) {
	t.Helper()
	root := t.TempDir()
	settings := DefaultSettings()
	settings.KeywordTerm = "greeks"
	p := New(filepath.Join(root, "analysis"), filepath.Join(root, "public", "data.json"), settings, history, logging.NewNop())
	p.now = func() time.Time { return time.UnixMilli(1_700_000_000_000) }
	return p, root
}

func TestPublishReRanksPooledRuns(t *testing.T) {
	p, root := newTestPublisher(t, nil)
	dir := filepath.Join(root, "analysis")

	writeResults(t, dir, analyzers.NameSignificance,
		analyzers.Result{Gets: []analyzers.Get{
			{PostNo: 111, Comment: "first", CheckCount: 5, DigitCount: 2, GetType: "dubs"},
			{PostNo: 333, Comment: "third", CheckCount: 3, DigitCount: 1, GetType: "dubs"},
		}},
		analyzers.Result{Gets: []analyzers.Get{
			{PostNo: 2222, Comment: "second", CheckCount: 5, DigitCount: 4, GetType: "quads", HasImage: true},
			{PostNo: 111, Comment: "stale duplicate", CheckCount: 9, DigitCount: 2, GetType: "dubs"},
			{PostNo: 0, Comment: "invalid", CheckCount: 99, DigitCount: 2, GetType: "dubs"},
			{PostNo: 444, Comment: "fourth", CheckCount: 1, DigitCount: 3, GetType: "trips"},
		}},
	)
	writeResults(t, dir, analyzers.NameReply,
		analyzers.Result{Replies: []analyzers.ReplyPost{{No: 5, Com: "a", Replies: 2}, {No: 6, Com: "b", Replies: 7}}},
		analyzers.Result{Replies: []analyzers.ReplyPost{{No: 5, Com: "old", Replies: 10}, {No: 7, Com: "c", Replies: 4}, {No: 8, Com: "d", Replies: 1}}},
	)

	snapshot, err := p.Publish(context.Background())
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}

	wantGets := []string{"2222", "111", "333"}
	if len(snapshot.SignificantGets) != len(wantGets) {
		t.Fatalf("expected %d gets, got %+v", len(wantGets), snapshot.SignificantGets)
	}
	for i, want := range wantGets {
		if snapshot.SignificantGets[i].PostNumber != want {
			t.Fatalf("get %d: got %s want %s", i, snapshot.SignificantGets[i].PostNumber, want)
		}
	}
	if !snapshot.SignificantGets[0].HasImage || snapshot.SignificantGets[1].Comment != "first" {
		t.Fatalf("unexpected get fields %+v", snapshot.SignificantGets)
	}

	wantReplies := []string{"6", "7", "5"}
	for i, want := range wantReplies {
		if snapshot.KeyInsights[i].PostNumber != want {
			t.Fatalf("insight %d: got %s want %s", i, snapshot.KeyInsights[i].PostNumber, want)
		}
	}
	if snapshot.KeyInsights[2].Replies != 2 {
		t.Fatalf("expected newest run to win duplicates, got %+v", snapshot.KeyInsights[2])
	}

	var onDisk Snapshot
	if err := store.Read(filepath.Join(root, "public", "data.json"), &onDisk); err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	if onDisk.UpdatedAt != 1_700_000_000_000 || len(onDisk.SignificantGets) != 3 {
		t.Fatalf("unexpected snapshot on disk %+v", onDisk)
	}
}

func TestPublishKeywordUsesNewestRun(t *testing.T) {
	p, root := newTestPublisher(t, nil)
	dir := filepath.Join(root, "analysis")
	writeResults(t, dir, analyzers.NameKeyword,
		analyzers.Result{
			Keyword: []analyzers.KeywordMatch{
				{PostID: 1, Timestamp: 100},
				{PostID: 3, Timestamp: 300},
				{PostID: 2, Timestamp: 300},
				{PostID: 4, Timestamp: 50},
			},
			Metadata: analyzers.Metadata{Matches: 6},
		},
		analyzers.Result{Keyword: []analyzers.KeywordMatch{{PostID: 99, Timestamp: 999}}},
	)

	snapshot := p.Build(context.Background())
	got := snapshot.Keyword.Matches
	if len(got) != 3 || got[0].PostID != 3 || got[1].PostID != 2 || got[2].PostID != 1 {
		t.Fatalf("unexpected keyword section %+v", got)
	}
	if snapshot.Keyword.Total != 6 || snapshot.Keyword.Term != "greeks" {
		t.Fatalf("unexpected keyword metadata %+v", snapshot.Keyword)
	}
}

func TestPublishDegradesMissingAndCorruptSources(t *testing.T) {
	p, root := newTestPublisher(t, nil)
	corrupt := analyzers.ResultsPath(filepath.Join(root, "analysis"), analyzers.NameSignificance)
	if err := os.MkdirAll(filepath.Dir(corrupt), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(corrupt, []byte(`{"results": [`), 0o644); err != nil {
		t.Fatal(err)
	}

	snapshot, err := p.Publish(context.Background())
	if err != nil {
		t.Fatalf("publish must not fail on bad sources: %v", err)
	}
	if snapshot.SignificantGets == nil || len(snapshot.SignificantGets) != 0 {
		t.Fatalf("expected empty gets section, got %#v", snapshot.SignificantGets)
	}
	if snapshot.KeyInsights == nil || snapshot.Keyword.Matches == nil {
		t.Fatal("sections must be empty lists, not null")
	}
	if snapshot.Classification != nil {
		t.Fatal("classification should be omitted without history")
	}
}

func TestPublishClassificationSection(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	history := &staticHistory{}
	for i, pct := range []float64{50, 10, 10, 10, 10, 10, 10, 25} {
		history.points = append(history.points, ledger.Point{
			RecordedAt: base.Add(time.Duration(i) * time.Hour),
			Percentage: pct,
			Analyzed:   20,
			Flagged:    int(pct / 5),
		})
	}
	p, _ := newTestPublisher(t, history)

	snapshot := p.Build(context.Background())
	if history.asked != 7 {
		t.Fatalf("expected window+1 points requested, got %d", history.asked)
	}
	c := snapshot.Classification
	if c == nil {
		t.Fatal("expected classification section")
	}
	if c.Percentage != 25 || c.Level != LevelHigh {
		t.Fatalf("unexpected classification %+v", c)
	}
	if c.Trend.Direction != TrendUp || c.Trend.Amount != 15 {
		t.Fatalf("expected up by 15 against the six previous points, got %+v", c.Trend)
	}
	if c.UpdatedAt != base.Add(7*time.Hour).UnixMilli() {
		t.Fatalf("unexpected updatedAt %d", c.UpdatedAt)
	}

	history.err = errors.New("database locked")
	if p.Build(context.Background()).Classification != nil {
		t.Fatal("history failure should omit the section")
	}
}

func TestLevel(t *testing.T) {
	cases := map[float64]string{0: LevelLow, 9.99: LevelLow, 10: LevelMedium, 19.9: LevelMedium, 20: LevelHigh, 30: LevelExtreme, 100: LevelExtreme}
	for pct, want := range cases {
		if got := Level(pct); got != want {
			t.Fatalf("Level(%v) = %s, want %s", pct, got, want)
		}
	}
}

func TestComputeTrend(t *testing.T) {
	tests := []struct {
		current  float64
		previous []float64
		want     string
		amount   float64
	}{
		{current: 12, previous: nil, want: TrendStable, amount: 0},
		{current: 12, previous: []float64{10, 12}, want: TrendStable, amount: 1},
		{current: 15, previous: []float64{10, 12}, want: TrendUp, amount: 4},
		{current: 5, previous: []float64{10}, want: TrendDown, amount: 5},
	}
	for _, tt := range tests {
		got := ComputeTrend(tt.current, tt.previous)
		if got.Direction != tt.want || math.Abs(got.Amount-tt.amount) > 1e-9 {
			t.Fatalf("ComputeTrend(%v, %v) = %+v, want %s/%v", tt.current, tt.previous, got, tt.want, tt.amount)
		}
	}
}

func TestWriteTrends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "analysis", "classification-trends.json")
	points := []ledger.Point{{RecordedAt: time.UnixMilli(1000), Percentage: 12.5, Analyzed: 8, Flagged: 1}}
	if err := WriteTrends(path, points); err != nil {
		t.Fatal(err)
	}
	var got []TrendPoint
	if err := store.Read(path, &got); err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Timestamp != 1000 || got[0].Percentage != 12.5 {
		t.Fatalf("unexpected trends %+v", got)
	}
}
