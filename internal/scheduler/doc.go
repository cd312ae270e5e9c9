// Package scheduler runs the scrape and analyze jobs on cron schedules in
// UTC and exposes manual triggers that share the scheduled code path.
//
// A job never overlaps itself: a tick that fires while the previous run is
// still active is skipped and logged, and a manual trigger reports
// services.ErrJobRunning. Every execution gets a fresh run id in its context
// and, when a Recorder is configured, a row in the run ledger.
package scheduler
