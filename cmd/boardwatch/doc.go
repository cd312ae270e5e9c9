// Package main hosts the boardwatch CLI entrypoint and command graph.
//
// The Cobra command tree starts the long-running daemon, triggers one-shot
// scrape, analyze, and publish runs against the same data root, and renders
// readiness checks and recent run history. Manual runs go through the
// scheduler so they are recorded in the run ledger like scheduled ones.
package main
