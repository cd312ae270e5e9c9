// Package services defines shared utilities consumed by the pipeline jobs and
// external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, job names, and thread identifiers
//     for logging and the run ledger.
//   - Structured error markers plus the Wrap helper so callers can decide
//     between degrading to defaults and propagating a failure.
//
// Use these helpers when wiring new job logic so operational behaviour (error
// classification, observability) stays uniform across the pipeline.
package services
