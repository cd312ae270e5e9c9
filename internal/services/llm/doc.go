// Package llm provides an OpenAI-compatible chat completion client used for
// thread summarization and classification.
//
// The default endpoint is DeepSeek; any provider speaking the chat
// completions schema works by setting base_url and model.
//
// # Entry Points
//
// NewClient: construct client from Config.
// Client.Complete: send a message list with sampling parameters, receive text.
// Client.HealthCheck: verify API key and model availability.
// DecodeLLMJSON: decode JSON from model output, tolerating code fences and prose.
//
// # Pacing and Retry
//
// Requests pass through a token-bucket limiter (requests_per_minute) before
// each attempt. The client retries on HTTP 408/429/5xx errors, network
// timeouts and empty content with exponential backoff (base 1s, max 10s).
// Context cancellation aborts waits and retries immediately.
//
// # Errors
//
// Transport, status and empty-content failures are tagged with
// services.ErrUpstream so callers can separate them from parse failures.
package llm
