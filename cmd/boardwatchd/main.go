// Command boardwatchd runs the scheduler daemon without the CLI command tree,
// for service managers that expect a dedicated binary. The configuration path
// comes from BOARDWATCH_CONFIG, falling back to the default search order.
package main

import (
	"context"
	"log"
	"os"
	"strings"

	"boardwatch/internal/config"
	"boardwatch/internal/daemonrun"
)

const configEnv = "BOARDWATCH_CONFIG"

func main() {
	cfg, _, _, err := config.Load(configPath())
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := daemonrun.Run(context.Background(), cfg, daemonrun.Options{}); err != nil {
		log.Fatalf("boardwatchd: %v", err)
	}
}

func configPath() string {
	return strings.TrimSpace(os.Getenv(configEnv))
}
