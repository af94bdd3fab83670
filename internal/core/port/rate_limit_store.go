package port

import (
	"context"
	"time"
)

// RateLimitStore tracks attempts within sliding windows.
type RateLimitStore interface {
	RecordAttempt(ctx context.Context, identifier string, at time.Time) error
	CountAttempts(ctx context.Context, identifier string, window time.Duration, at time.Time) (int, error)
	TrimWindow(ctx context.Context, identifier string, window time.Duration, at time.Time) error
	OldestAttempt(ctx context.Context, identifier string, window time.Duration, at time.Time) (time.Time, bool, error)
}
