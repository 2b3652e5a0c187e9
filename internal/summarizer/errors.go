package summarizer

import "fmt"

// RateLimitExceededError is returned once the retry budget for a single
// completion request is exhausted. The email being processed is skipped and
// picked up again on the next run.
type RateLimitExceededError struct {
	Attempts int
	Err      error
}

func (e *RateLimitExceededError) Error() string {
	return fmt.Sprintf("rate limit exceeded after %d attempts: %v", e.Attempts, e.Err)
}

func (e *RateLimitExceededError) Unwrap() error { return e.Err }

// APICallError is a non-retryable provider failure, such as an invalid
// request or an authentication problem. It aborts the current email only.
type APICallError struct {
	StatusCode int
	Err        error
}

func (e *APICallError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("api call failed with status %d: %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("api call failed: %v", e.Err)
}

func (e *APICallError) Unwrap() error { return e.Err }

// ParseError indicates the model returned a response that could not be
// used. It is treated the same as a non-retryable API error.
type ParseError struct {
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("unusable model response: %s", e.Reason)
}
