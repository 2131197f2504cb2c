package drive

import (
	"math/rand"
	"net/http"
	"time"
)

// Backoff before the second and third attempt of a page fetch.
var retryDelays = [...]time.Duration{
	250 * time.Millisecond,
	1 * time.Second,
}

// jitterFactor is the ±share of jitter applied to each delay.
const jitterFactor = 0.2

// maxAttempts is the number of tries per page, including the first.
const maxAttempts = len(retryDelays) + 1

// nextRetryDelay returns the jittered delay after the given failed
// attempt. attempt is 0-indexed.
func nextRetryDelay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	if attempt >= len(retryDelays) {
		attempt = len(retryDelays) - 1
	}

	base := retryDelays[attempt]
	jitter := (rand.Float64()*2 - 1) * float64(base) * jitterFactor
	return time.Duration(float64(base) + jitter)
}

// isRetryable reports whether a provider status is worth another try.
func isRetryable(status int) bool {
	return status == http.StatusTooManyRequests || status >= http.StatusInternalServerError
}
