package port

import (
	"context"
	"time"
)

// RateLimitStore records request attempts inside a sliding window. Sign-in,
// registration, and code-dispatch endpoints share one implementation, scoped
// by a per-rule key.
type RateLimitStore interface {
	TrimWindow(ctx context.Context, identifier string, window time.Duration, reference time.Time) error
	CountAttempts(ctx context.Context, identifier string, window time.Duration, reference time.Time) (int, error)
	RecordAttempt(ctx context.Context, identifier string, at time.Time) error
	OldestAttempt(ctx context.Context, identifier string, window time.Duration, reference time.Time) (time.Time, bool, error)
}
