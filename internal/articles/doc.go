// Package articles turns a thread into a short news-style article plus a
// rhetorical classification, using a chat completion backend.
//
// Generate is idempotent per thread: an existing record is returned without
// calling the backend unless ForceRegenerate is set, and concurrent calls for
// the same thread share one generation. Summarization is required and its
// upstream errors propagate; classification is best effort and degrades to a
// zero result. Flagged excerpts are merged into a bounded, deduplicated,
// time-limited example store by Retain, a pure function.
package articles
