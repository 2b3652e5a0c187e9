package summarizer

import (
	"regexp"
	"time"
)

// Backoff decides how long to wait before retrying a failed request. It is
// a pure schedule: the caller tracks the attempt count and does the
// sleeping, which keeps the policy testable without timers.
type Backoff struct {
	Base        time.Duration // First retry delay when the provider gives no hint
	Max         time.Duration // Upper bound on any single delay
	MaxAttempts int           // Total attempts allowed, including the first
}

// Delay returns the wait before the next attempt and whether a retry is
// allowed at all. attempt is the 1-based number of the attempt that just
// failed. A positive retry-after hint from the provider takes precedence
// over the exponential schedule but is still capped at Max.
func (b Backoff) Delay(attempt int, hint time.Duration) (time.Duration, bool) {
	if attempt >= b.MaxAttempts {
		return 0, false
	}
	if hint > 0 {
		if hint > b.Max {
			hint = b.Max
		}
		return hint, true
	}
	d := b.Base << (attempt - 1)
	if d <= 0 || d > b.Max {
		d = b.Max
	}
	return d, true
}

// The OpenAI API reports its suggested wait inside the 429 error message,
// e.g. "Rate limit reached ... Please try again in 20s."
var retryAfterPattern = regexp.MustCompile(`(?i)try again in ([0-9]*\.?[0-9]+)\s*(ms|s|m)\b`)

// retryAfterHint extracts the provider's suggested retry delay from an
// error, or 0 when none is present.
func retryAfterHint(err error) time.Duration {
	if err == nil {
		return 0
	}
	m := retryAfterPattern.FindStringSubmatch(err.Error())
	if m == nil {
		return 0
	}
	d, perr := time.ParseDuration(m[1] + m[2])
	if perr != nil {
		return 0
	}
	return d
}
