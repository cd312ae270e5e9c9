package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"boardwatch/internal/services"
)

// SeedFile is a document that must exist for readers to see a well-formed
// (possibly empty) result.
type SeedFile struct {
	Path    string
	Default any
}

// Skeleton lists the directories and seed documents of a data root.
type Skeleton struct {
	Dirs  []string
	Files []SeedFile
}

// Report summarizes what Bootstrap changed.
type Report struct {
	DirsCreated int
	FilesSeeded int
	// Corrupt lists existing seed files that no longer parse. They are left in
	// place for inspection.
	Corrupt []string
}

// Bootstrap applies the skeleton idempotently. Directories are created before
// files, existing files are never overwritten, and every seed file is checked
// to still hold valid JSON. It stops early when ctx is done.
func Bootstrap(ctx context.Context, sk Skeleton) (Report, error) {
	var report Report
	for _, dir := range sk.Dirs {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		existed, err := Exists(dir)
		if err != nil {
			return report, err
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return report, services.Wrap(services.ErrIO, stage, "bootstrap", fmt.Sprintf("create %s", dir), err)
		}
		if !existed {
			report.DirsCreated++
		}
	}

	for _, file := range sk.Files {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		wrote, err := EnsureSkeleton(file.Path, file.Default)
		if err != nil {
			return report, err
		}
		if wrote {
			report.FilesSeeded++
			continue
		}
		var probe json.RawMessage
		if err := Read(file.Path, &probe); err != nil {
			if errors.Is(err, services.ErrCorruptData) {
				report.Corrupt = append(report.Corrupt, file.Path)
				continue
			}
			return report, err
		}
	}
	return report, nil
}
