package utils

import "errors"

// --- Sentinel Errors for Categorization ---
var (
	ErrRetriesExhausted = errors.New("retries exhausted")             // Wraps the exhausting failure kind
	ErrNonRetryable     = errors.New("non-retryable")                 // 4xx (except 429) and other terminal statuses
	ErrParse            = errors.New("parse error")                   // Content extraction failed on a fetched body
	ErrRequestCreation  = errors.New("failed to create HTTP request") // Bad URL, never retried
	ErrResponseBodyRead = errors.New("failed to read response body")  // Body read after a 200
	ErrNoUnits          = errors.New("no crawl units resolvable")     // Fatal at startup
	ErrCheckpointWrite  = errors.New("checkpoint persist failed")     // Reported, run continues
)
