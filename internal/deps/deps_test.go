package deps

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCheckBinaries(t *testing.T) {
	dir := t.TempDir()
	script := filepath.Join(dir, "fetch-threads")
	if err := os.WriteFile(script, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PATH", dir)

	results := CheckBinaries([]Requirement{
		{Name: "Scraper", Command: "fetch-threads"},
		{Name: "Missing", Command: "definitely-not-installed"},
		{Name: "Optional", Command: "also-missing", Optional: true},
		{Name: "Blank", Command: "  "},
		{Name: "Absolute", Command: script},
	})
	if len(results) != 5 {
		t.Fatalf("expected 5 results, got %d", len(results))
	}
	if !results[0].Available || results[0].Path != script {
		t.Fatalf("expected scraper on PATH, got %+v", results[0])
	}
	if results[1].Available || results[1].Satisfied() {
		t.Fatalf("missing binary should fail, got %+v", results[1])
	}
	if results[2].Available || !results[2].Satisfied() {
		t.Fatalf("optional missing binary should be satisfied, got %+v", results[2])
	}
	if results[3].Detail != "command not configured" {
		t.Fatalf("unexpected blank detail %q", results[3].Detail)
	}
	if !results[4].Available {
		t.Fatalf("absolute path should resolve, got %+v", results[4])
	}
}
