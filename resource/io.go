package resource

import (
	"context"

	"golang.org/x/time/rate"
)

// IOLimiter throttles byte throughput for blob transfers.
//
// A nil *IOLimiter is valid and unlimited.
type IOLimiter struct {
	limiter *rate.Limiter
	burst   int
}

// NewIOLimiter creates a limiter allowing bytesPerSec bytes per second.
// If bytesPerSec <= 0 it returns nil (unlimited).
func NewIOLimiter(bytesPerSec int64) *IOLimiter {
	if bytesPerSec <= 0 {
		return nil
	}
	burst := int(bytesPerSec)
	return &IOLimiter{
		limiter: rate.NewLimiter(rate.Limit(bytesPerSec), burst),
		burst:   burst,
	}
}

// WaitN blocks until n bytes may be transferred.
// Requests larger than the burst are split into burst-sized waits.
func (l *IOLimiter) WaitN(ctx context.Context, n int) error {
	if l == nil || n <= 0 {
		return nil
	}
	for n > 0 {
		chunk := min(n, l.burst)
		if err := l.limiter.WaitN(ctx, chunk); err != nil {
			return err
		}
		n -= chunk
	}
	return nil
}
