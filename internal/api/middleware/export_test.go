package middleware

import "time"

// SetClock overrides the rate limiter's clock in tests.
func (rl *RateLimit) SetClock(now func() time.Time) { rl.now = now }
