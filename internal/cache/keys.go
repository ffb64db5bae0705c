package cache

import (
	"fmt"

	"github.com/google/uuid"
)

// RateLimitKey buckets requests per user per window. window is the Unix
// minute, so each bucket resets on its own.
func RateLimitKey(userID uuid.UUID, window int64) string {
	return fmt.Sprintf("ratelimit:%s:%d", userID, window)
}

func ProfileKey(userID uuid.UUID) string {
	return fmt.Sprintf("profile:%s", userID)
}

func KeyStatusKey(userID uuid.UUID) string {
	return fmt.Sprintf("apikey:status:%s", userID)
}
