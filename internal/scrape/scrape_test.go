package scrape

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"boardwatch/internal/services"
	"boardwatch/internal/testsupport"
)

func bufferLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})), &buf
}

func TestRunSkipsWhenUnconfigured(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	logger, buf := bufferLogger()
	result, err := NewRunner(cfg, logger).Run(context.Background())
	if err != nil {
		t.Fatalf("unconfigured scrape should not fail: %v", err)
	}
	if !result.Skipped || result.Counters()["skipped"] != 1 {
		t.Fatalf("expected skipped result, got %+v", result)
	}
	if !strings.Contains(buf.String(), "scrape skipped") {
		t.Fatalf("expected skip to be logged, got %s", buf.String())
	}
}

func TestRunStreamsOutputAndCountsThreads(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithScrapeCommand("sh", "-c",
		`echo "fetching catalog"; printf '{"no": 1, "posts": []}' > "$BOARDWATCH_THREADS_DIR/1.json"; printf 'partial'`))
	logger, buf := bufferLogger()

	result, err := NewRunner(cfg, logger).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Skipped || result.ThreadFiles != 1 {
		t.Fatalf("unexpected result %+v", result)
	}
	out := buf.String()
	if !strings.Contains(out, "fetching catalog") || !strings.Contains(out, `"line":"partial"`) {
		t.Fatalf("scraper output not logged: %s", out)
	}
}

func TestRunFailureKeepsStderr(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithScrapeCommand("sh", "-c", "echo 'rate limited' >&2; exit 3"))
	logger, _ := bufferLogger()

	_, err := NewRunner(cfg, logger).Run(context.Background())
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected ErrExternalTool, got %v", err)
	}
	logs, globErr := filepath.Glob(filepath.Join(cfg.Paths.LogDir, "tool", "scrape-*.log"))
	if globErr != nil || len(logs) != 1 {
		t.Fatalf("expected one tool log, got %v", logs)
	}
	data, readErr := os.ReadFile(logs[0])
	if readErr != nil || !strings.Contains(string(data), "rate limited") {
		t.Fatalf("tool log missing stderr: %q err=%v", data, readErr)
	}
}

func TestRunTimeout(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithScrapeCommand("sh", "-c", "exec sleep 30"))
	cfg.Scrape.TimeoutSeconds = 1
	logger, _ := bufferLogger()

	_, err := NewRunner(cfg, logger).Run(context.Background())
	if !errors.Is(err, services.ErrExternalTool) || !strings.Contains(err.Error(), "timed out") {
		t.Fatalf("expected timeout error, got %v", err)
	}
}

func TestTailBufferKeepsEnd(t *testing.T) {
	tail := &tailBuffer{limit: 4}
	_, _ = tail.Write([]byte("abc"))
	_, _ = tail.Write([]byte("defg"))
	if got := tail.String(); got != "defg" {
		t.Fatalf("got %q", got)
	}
}
