package main

import "testing"

func TestConfigPathFromEnv(t *testing.T) {
	t.Setenv(configEnv, "  /etc/boardwatch/config.toml ")
	if got := configPath(); got != "/etc/boardwatch/config.toml" {
		t.Fatalf("configPath() = %q", got)
	}
	t.Setenv(configEnv, "")
	if got := configPath(); got != "" {
		t.Fatalf("expected empty path, got %q", got)
	}
}
