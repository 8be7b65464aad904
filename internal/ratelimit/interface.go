package ratelimit

import (
	"context"
	"time"
)

// Limiter throttles callers of the status API. This is self-protection for
// the HTTP surface only; exchange quota admission is the governor's job.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)

	Remaining(ctx context.Context, key string) (int, error)

	Limit() int

	Window() time.Duration

	Reset(ctx context.Context, key string) (time.Time, error)
}
