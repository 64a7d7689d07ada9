// Package ratelimit implements sliding-window limits keyed by caller, either
// in process memory or shared through Redis.
package ratelimit

import "context"

// Limiter decides whether one more request for key fits in the window.
// Only allowed requests are recorded; a rejected attempt does not extend
// the caller's wait.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}
