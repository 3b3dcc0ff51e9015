package utils

import (
	"time"
)

// Now returns current time in UTC
func Now() time.Time {
	return time.Now().UTC()
}

// IsExpired checks if a time has passed
func IsExpired(t time.Time) bool {
	return time.Now().After(t)
}
