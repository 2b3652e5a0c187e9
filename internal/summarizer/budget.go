package summarizer

import "time"

// TokenBudget tracks estimated token spend inside a one-minute window,
// mirroring the provider's tokens-per-minute accounting. The pipeline is
// sequential, so no locking is needed; the state is explicit rather than
// global so it can be exercised in tests with an injected clock.
type TokenBudget struct {
	Limit int // Tokens allowed per minute; 0 or negative disables the budget

	used        int
	windowStart time.Time
}

// Delay records a spend of tokens at time now and reports how long the
// caller must wait before issuing the request. When the spend would
// overflow the current window the wait runs to the window's end and the
// spend opens the next window.
func (b *TokenBudget) Delay(now time.Time, tokens int) time.Duration {
	if b.Limit <= 0 {
		return 0
	}
	if b.windowStart.IsZero() || now.Sub(b.windowStart) >= time.Minute {
		b.used = 0
		b.windowStart = now
	}
	if b.used+tokens > b.Limit {
		wait := time.Minute - now.Sub(b.windowStart)
		if wait < 0 {
			wait = 0
		}
		b.used = tokens
		b.windowStart = now.Add(wait)
		return wait
	}
	b.used += tokens
	return 0
}

// EstimateTokens approximates the token count of a text. A real tokenizer
// is not worth the dependency here; four characters per token is a safe
// average for English prose.
func EstimateTokens(text string) int {
	return len(text)/4 + 1
}
