// Package ledger records job executions and classification history in a
// SQLite database under the data directory.
//
// Every scrape or analyze execution gets a row keyed by its run id with start
// and finish times, a terminal status, the error text when it failed, and a
// small map of counters (threads loaded, articles generated, and so on). The
// classification history table backs the trend shown in the public snapshot.
//
// Open applies the embedded migrations in lexical order and records them in
// schema_migrations, so older databases upgrade in place.
package ledger
