package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"time"

	"boardwatch/internal/analyzers"
	"boardwatch/internal/articles"
	"boardwatch/internal/config"
	"boardwatch/internal/logging"
	"boardwatch/internal/publish"
	"boardwatch/internal/store"
)

// Skeleton lists the directories and seed files a data root needs before
// any reader can run.
func Skeleton(cfg *config.Config, analyzerNames []string, now time.Time) store.Skeleton {
	sk := store.Skeleton{
		Dirs: []string{
			cfg.ThreadsDir(),
			cfg.AnalysisDir(),
			cfg.ArticlesDir(),
			cfg.Paths.PublicDir,
		},
	}
	for _, name := range analyzerNames {
		path := analyzers.ResultsPath(cfg.AnalysisDir(), name)
		sk.Dirs = append(sk.Dirs, filepath.Dir(path))
		sk.Files = append(sk.Files, store.SeedFile{
			Path:    path,
			Default: analyzers.File{Results: []analyzers.Result{}},
		})
	}
	sk.Files = append(sk.Files,
		store.SeedFile{Path: cfg.ExamplesPath(), Default: []articles.Example{}},
		store.SeedFile{Path: cfg.TrendsPath(), Default: []publish.TrendPoint{}},
		store.SeedFile{Path: cfg.SnapshotPath(), Default: publish.Empty(now)},
	)
	return sk
}

// Bootstrap applies the skeleton within timeout. Running out of time is
// logged and reported as a nil error so startup proceeds; other failures are
// returned.
func Bootstrap(ctx context.Context, cfg *config.Config, analyzerNames []string, timeout time.Duration, logger *slog.Logger) (store.Report, error) {
	logger = logging.WithContext(ctx, logging.NewComponentLogger(logger, "bootstrap"))
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	report, err := store.Bootstrap(ctx, Skeleton(cfg, analyzerNames, time.Now()))
	if errors.Is(err, context.DeadlineExceeded) {
		logging.WarnWithContext(logger, "bootstrap timed out; continuing", "bootstrap_timeout",
			logging.Duration("timeout", timeout),
			logging.Int("dirs_created", report.DirsCreated),
			logging.Int("files_seeded", report.FilesSeeded),
			logging.String(logging.FieldImpact, "some seed files may be missing until the next run"),
			logging.String(logging.FieldErrorHint, "raise bootstrap.timeout_seconds on slow storage"),
		)
		return report, nil
	}
	if err != nil {
		return report, err
	}
	for _, path := range report.Corrupt {
		logging.ErrorWithContext(logger, "seed file unreadable", "bootstrap_seed_corrupt",
			logging.String("path", path),
			logging.String(logging.FieldImpact, "readers degrade to empty results until it is rewritten"),
			logging.String(logging.FieldErrorHint, "inspect or delete the file; the next run rewrites it"),
		)
	}
	if report.DirsCreated > 0 || report.FilesSeeded > 0 {
		logger.Info("data root bootstrapped",
			logging.Int("dirs_created", report.DirsCreated),
			logging.Int("files_seeded", report.FilesSeeded),
		)
	}
	return report, nil
}
