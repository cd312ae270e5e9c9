// Package preflight provides readiness checks for the filesystem paths,
// the scraper command, and the completion backend boardwatch depends on.
//
// The CLI "boardwatch status" command renders RunAll as a table, and the
// daemon logs any failed checks at startup without refusing to run.
package preflight
