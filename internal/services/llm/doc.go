// Package llm provides an OpenAI-compatible chat completion client used as the
// text-generation capability of the enhancement pipeline.
//
// # Entry Points
//
// NewClient: construct client from Config.
// Client.Generate: send one prompt with per-call Params, receive Generation
// (text plus finish reason).
// Client.HealthCheck: verify API key and model availability.
//
// # Truncation
//
// Generation.Truncated reports length-limited completions. The client never
// retries or rejects them; the enhancement engine refuses them as stage output.
//
// # Retry Behaviour
//
// The client retries on HTTP 408/429/5xx errors, empty completions and network
// timeouts with exponential backoff (base 1s, max 10s, 3 attempts by default).
// Retry-After headers are honoured up to the max delay. Context cancellation
// aborts retries immediately.
package llm
