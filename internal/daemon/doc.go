// Package daemon coordinates the long-running boardwatch process.
//
// It ties configuration, the run ledger, and the job scheduler into a single
// lifecycle with flock-based locking to prevent multiple instances against the
// same data directory. Job bodies live in their own packages (scrape,
// pipeline); the daemon only handles startup, shutdown, and the optional
// catch-up run when the process starts.
package daemon
