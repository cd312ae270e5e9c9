package scrape

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"boardwatch/internal/config"
	"boardwatch/internal/logging"
	"boardwatch/internal/services"
)

// ThreadsDirEnv carries the corpus directory to the scraper.
const ThreadsDirEnv = "BOARDWATCH_THREADS_DIR"

// waitDelay bounds how long output copying may outlive a killed scraper.
const waitDelay = 5 * time.Second

// stderrTailLimit bounds how much stderr is kept for the tool log and error.
const stderrTailLimit = 8 << 10

// Result describes one scraper execution.
type Result struct {
	Skipped     bool
	Duration    time.Duration
	ThreadFiles int
}

// Counters flattens the result for the run ledger.
func (r Result) Counters() map[string]int {
	skipped := 0
	if r.Skipped {
		skipped = 1
	}
	return map[string]int{
		"thread_files":  r.ThreadFiles,
		"skipped":       skipped,
		"duration_secs": int(r.Duration / time.Second),
	}
}

// Runner executes the configured scraper.
type Runner struct {
	command    string
	args       []string
	timeout    time.Duration
	threadsDir string
	logDir     string
	logger     *slog.Logger
}

// NewRunner builds a runner from configuration.
func NewRunner(cfg *config.Config, logger *slog.Logger) *Runner {
	return &Runner{
		command:    strings.TrimSpace(cfg.Scrape.Command),
		args:       append([]string(nil), cfg.Scrape.Args...),
		timeout:    time.Duration(cfg.Scrape.TimeoutSeconds) * time.Second,
		threadsDir: cfg.ThreadsDir(),
		logDir:     cfg.Paths.LogDir,
		logger:     logging.NewComponentLogger(logger, "scrape"),
	}
}

// Configured reports whether a scraper command is set.
func (r *Runner) Configured() bool {
	return r.command != ""
}

// Run executes the scraper once. An unconfigured runner logs and returns a
// skipped result without error.
func (r *Runner) Run(ctx context.Context) (Result, error) {
	logger := logging.WithContext(ctx, r.logger)
	if !r.Configured() {
		logger.Info("scrape skipped; no scraper command configured",
			logging.String(logging.FieldErrorHint, "set scrape.command to enable scraping"),
		)
		return Result{Skipped: true}, nil
	}
	if err := os.MkdirAll(r.threadsDir, 0o755); err != nil {
		return Result{}, services.Wrap(services.ErrIO, "scrape", "prepare", "create threads directory", err)
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, r.command, r.args...) //nolint:gosec
	cmd.Env = append(os.Environ(), ThreadsDirEnv+"="+r.threadsDir)
	cmd.WaitDelay = waitDelay
	stdout := newLineLogger(logger, slog.LevelInfo, "stdout")
	stderr := newLineLogger(logger, slog.LevelWarn, "stderr")
	tail := &tailBuffer{limit: stderrTailLimit}
	cmd.Stdout = stdout
	cmd.Stderr = io.MultiWriter(stderr, tail)

	logger.Info("scrape started",
		logging.String("command", r.command),
		logging.String("args", strings.Join(r.args, " ")),
	)
	started := time.Now()
	runErr := cmd.Run()
	stdout.Flush()
	stderr.Flush()
	result := Result{Duration: time.Since(started)}

	if runErr != nil {
		detailPath := r.writeToolLog(logger, tail.String())
		message := fmt.Sprintf("%s exited after %s", r.command, result.Duration.Round(time.Millisecond))
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			message = fmt.Sprintf("%s timed out after %s", r.command, r.timeout)
		}
		if detailPath != "" {
			message += "; stderr saved to " + detailPath
		}
		return result, services.Wrap(services.ErrExternalTool, "scrape", "run", message, runErr)
	}

	result.ThreadFiles = countThreadFiles(r.threadsDir)
	logger.Info("scrape completed",
		logging.Duration("elapsed", result.Duration),
		logging.Int("thread_files", result.ThreadFiles),
	)
	return result, nil
}

func (r *Runner) writeToolLog(logger *slog.Logger, stderr string) string {
	if strings.TrimSpace(r.logDir) == "" || strings.TrimSpace(stderr) == "" {
		return ""
	}
	toolDir := filepath.Join(r.logDir, "tool")
	if err := os.MkdirAll(toolDir, 0o755); err != nil {
		logging.WarnWithContext(logger, "failed to create tool log directory; scraper stderr not captured", "tool_log_dir_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "scraper failure details only appear in the main log"),
		)
		return ""
	}
	path := filepath.Join(toolDir, fmt.Sprintf("scrape-%s.log", time.Now().UTC().Format("20060102T150405.000Z")))
	if err := os.WriteFile(path, []byte(stderr), 0o644); err != nil {
		logging.WarnWithContext(logger, "failed to write scraper tool log", "tool_log_write_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "scraper failure details only appear in the main log"),
		)
		return ""
	}
	return path
}

func countThreadFiles(dir string) int {
	matches, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return 0
	}
	return len(matches)
}

// lineLogger forwards complete lines written to it as log records.
type lineLogger struct {
	mu     sync.Mutex
	logger *slog.Logger
	level  slog.Level
	stream string
	buf    bytes.Buffer
}

func newLineLogger(logger *slog.Logger, level slog.Level, stream string) *lineLogger {
	return &lineLogger{logger: logger, level: level, stream: stream}
}

func (l *lineLogger) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.buf.Write(p)
	for {
		line, err := l.buf.ReadString('\n')
		if err != nil {
			// Partial line; keep it for the next write.
			l.buf.WriteString(line)
			break
		}
		l.emit(line)
	}
	return len(p), nil
}

// Flush logs any trailing partial line.
func (l *lineLogger) Flush() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.buf.Len() > 0 {
		l.emit(l.buf.String())
		l.buf.Reset()
	}
}

func (l *lineLogger) emit(line string) {
	line = strings.TrimRight(line, "\r\n")
	if strings.TrimSpace(line) == "" {
		return
	}
	l.logger.Log(context.Background(), l.level, "scraper output",
		logging.String("stream", l.stream),
		logging.String("line", line),
	)
}

// tailBuffer keeps the last limit bytes written.
type tailBuffer struct {
	mu    sync.Mutex
	limit int
	buf   []byte
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf = append(t.buf, p...)
	if over := len(t.buf) - t.limit; over > 0 {
		t.buf = append([]byte(nil), t.buf[over:]...)
	}
	return len(p), nil
}

func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return string(t.buf)
}
