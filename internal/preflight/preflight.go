package preflight

import (
	"context"

	"boardwatch/internal/config"
)

// MinFreeBytes is the free space required on the data and public filesystems.
const MinFreeBytes = 64 << 20

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable preflight checks for the given config.
// The LLM check only runs when article generation is enabled.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Data directory", cfg.Paths.DataDir),
		CheckDirectoryAccess("Public directory", cfg.Paths.PublicDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
		CheckFreeSpace("Data disk", cfg.Paths.DataDir, MinFreeBytes),
		CheckScraper(cfg),
		CheckCorpus(cfg),
	}

	if cfg.Articles.Enabled {
		results = append(results, CheckLLM(ctx, "Article LLM", cfg.LLM))
	}
	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}
