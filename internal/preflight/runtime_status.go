package preflight

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"boardwatch/internal/config"
)

// CheckCorpus reports how many thread files are present and how long ago the
// newest one was written. An empty corpus passes; analysis seeds empty outputs.
func CheckCorpus(cfg *config.Config) Result {
	const name = "Thread corpus"

	dir := cfg.ThreadsDir()
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Passed: true, Detail: "Not initialized"}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", dir, err)}
	}

	var count int
	var newest time.Time
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		count++
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(newest) {
			newest = info.ModTime()
		}
	}
	if count == 0 {
		return Result{Name: name, Passed: true, Detail: "Empty"}
	}
	age := time.Since(newest).Truncate(time.Second)
	return Result{
		Name:   name,
		Passed: true,
		Detail: fmt.Sprintf("%d threads in %s (newest %s ago)", count, filepath.Base(dir), age),
	}
}
