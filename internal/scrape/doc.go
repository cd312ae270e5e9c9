// Package scrape runs the external scraper that fills the threads directory.
//
// The scraper is any executable configured under [scrape]. It receives the
// corpus directory in BOARDWATCH_THREADS_DIR and is expected to write one JSON
// file per thread there. Its output is streamed into the log line by line;
// on failure the captured stderr is also kept under <log_dir>/tool.
package scrape
