package daemonrun

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"boardwatch/internal/config"
	"boardwatch/internal/daemon"
	"boardwatch/internal/logging"
	"boardwatch/internal/preflight"
)

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel    string
	Development bool
}

// Run starts the boardwatch daemon runtime loop and blocks until SIGINT or
// SIGTERM.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	stamp := time.Now().UTC().Format("20060102T150405.000Z")
	logPath := filepath.Join(cfg.Paths.LogDir, fmt.Sprintf("boardwatch-%s.log", stamp))
	level := opts.LogLevel
	if strings.TrimSpace(level) == "" {
		level = cfg.Logging.Level
	}
	logger, err := logging.New(logging.Options{
		Level:       level,
		Format:      cfg.Logging.Format,
		OutputPaths: []string{"stdout"},
		JSONFile:    logPath,
		Development: opts.Development,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	if err := ensureCurrentLogPointer(cfg.Paths.LogDir, logPath); err != nil {
		fmt.Fprintf(os.Stderr, "warn: unable to update boardwatch.log link: %v\n", err)
	}
	logging.CleanupOldLogs(logger, cfg.Logging.RetentionDays, cfg.Paths.LogDir, "boardwatch-*.log", logPath)
	logging.CleanupOldLogs(logger, cfg.Logging.RetentionDays, filepath.Join(cfg.Paths.LogDir, "tool"), "*.log", "")

	pidPath := filepath.Join(cfg.Paths.LogDir, "boardwatch.pid")
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	logPreflight(signalCtx, logger, cfg)

	svc, err := NewServices(signalCtx, cfg, logger)
	if err != nil {
		logger.Error("initialize services", logging.Error(err))
		return err
	}

	if n, err := svc.Ledger.ReconcileInterrupted(signalCtx); err != nil {
		logging.WarnWithContext(logger, "could not reconcile interrupted runs", "ledger_reconcile_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "status may list stale running jobs"),
		)
	} else if n > 0 {
		logger.Info("marked interrupted runs", logging.Int64("count", n))
	}

	// Bootstrap logs and swallows its own timeout.
	if seeded, err := svc.Pipeline.Init(signalCtx); err != nil {
		logging.WarnWithContext(logger, "bootstrap incomplete", "bootstrap_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "the first analyze run will retry bootstrap"),
			logging.String(logging.FieldErrorHint, "check data_dir and public_dir permissions"),
		)
	} else {
		logger.Info("bootstrap complete", logging.Int("created", seeded))
	}

	d, err := daemon.New(cfg, svc.Ledger, svc.Scheduler, logger)
	if err != nil {
		_ = svc.Close()
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	if err := d.Start(signalCtx); err != nil {
		logging.ErrorWithContext(logger, "daemon start failed", "daemon_start_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "stop the other boardwatch daemon or remove the stale lock"),
			logging.String(logging.FieldImpact, "no scheduled jobs will run"),
		)
		return err
	}
	for _, job := range d.Status().Jobs {
		logger.Info("job scheduled",
			logging.String(logging.FieldJob, job.Job),
			logging.String("spec", job.Spec),
			logging.String("next", job.Next.UTC().Format(time.RFC3339)),
		)
	}

	<-signalCtx.Done()
	logger.Info("boardwatch daemon shutting down")
	return nil
}

func logPreflight(ctx context.Context, logger *slog.Logger, cfg *config.Config) {
	results := preflight.RunAll(ctx, cfg)
	for _, r := range preflight.Failed(results) {
		logging.WarnWithContext(logger, "preflight check failed", "preflight_failed",
			logging.String("check", r.Name),
			logging.String("detail", r.Detail),
			logging.String(logging.FieldImpact, "jobs depending on this check may fail"),
		)
	}
	logger.Info("preflight complete",
		logging.Int("checks", len(results)),
		logging.Int("failed", len(preflight.Failed(results))),
	)
}

func ensureCurrentLogPointer(logDir, target string) error {
	if logDir == "" || target == "" {
		return nil
	}
	current := filepath.Join(logDir, "boardwatch.log")
	if err := os.Remove(current); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove existing log pointer: %w", err)
	}
	if err := os.Symlink(target, current); err == nil {
		return nil
	}
	if err := os.Link(target, current); err != nil {
		return fmt.Errorf("link log pointer: %w", err)
	}
	return nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}
