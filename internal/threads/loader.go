package threads

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"boardwatch/internal/logging"
	"boardwatch/internal/services"
	"boardwatch/internal/store"
)

type loaded struct {
	thread  Thread
	modTime time.Time
	path    string
}

// LoadAll reads every *.json thread file in dir. Files that fail to parse
// are logged and skipped. When two files carry the same thread number the
// one modified most recently wins. The result is ordered by thread number.
func LoadAll(ctx context.Context, dir string, logger *slog.Logger) ([]Thread, error) {
	logger = logging.NewComponentLogger(logger, "threads")

	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, services.Wrap(services.ErrNotFound, "threads", "load", fmt.Sprintf("corpus directory %s", dir), err)
		}
		return nil, services.Wrap(services.ErrIO, "threads", "load", fmt.Sprintf("list %s", dir), err)
	}

	byNumber := make(map[int64]loaded, len(entries))
	skipped := 0
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".json") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		info, err := entry.Info()
		if err != nil {
			skipped++
			logging.WarnWithContext(logger, "thread file vanished during load", "thread_file_stat_failed",
				logging.String("path", path),
				logging.Error(err),
				logging.String(logging.FieldImpact, "thread skipped for this run"),
			)
			continue
		}

		var thread Thread
		if err := store.Read(path, &thread); err != nil {
			if !services.Degradable(err) {
				return nil, err
			}
			skipped++
			logging.WarnWithContext(logger, "thread file unreadable", "thread_file_corrupt",
				logging.String("path", path),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check the scraper output for truncated writes"),
				logging.String(logging.FieldImpact, "thread skipped for this run"),
			)
			continue
		}
		if thread.No <= 0 {
			skipped++
			logging.WarnWithContext(logger, "thread file missing thread number", "thread_file_invalid",
				logging.String("path", path),
				logging.String(logging.FieldImpact, "thread skipped for this run"),
			)
			continue
		}

		if prev, ok := byNumber[thread.No]; ok {
			if !info.ModTime().After(prev.modTime) {
				logger.Debug("older duplicate thread file ignored",
					logging.Int64(logging.FieldThreadID, thread.No),
					logging.String("path", path),
					logging.String("kept", prev.path),
				)
				continue
			}
		}
		byNumber[thread.No] = loaded{thread: thread, modTime: info.ModTime(), path: path}
	}

	out := make([]Thread, 0, len(byNumber))
	for _, item := range byNumber {
		out = append(out, item.thread)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].No < out[j].No })

	logger.Info("thread corpus loaded",
		logging.Int("threads", len(out)),
		logging.Int("skipped", skipped),
		logging.String("dir", dir),
	)
	return out, nil
}
