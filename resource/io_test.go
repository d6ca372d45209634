package resource

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIOLimiter_Unlimited(t *testing.T) {
	l := NewIOLimiter(0)
	assert.Nil(t, l)
	require.NoError(t, l.WaitN(context.Background(), 1<<20))
}

func TestIOLimiter_WaitNSplitsLargeRequests(t *testing.T) {
	l := NewIOLimiter(1 << 20)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// 1.5x the burst: would fail as a single WaitN call.
	require.NoError(t, l.WaitN(ctx, 3<<19))
}

func TestIOLimiter_WaitNCanceled(t *testing.T) {
	l := NewIOLimiter(10)
	require.NoError(t, l.WaitN(context.Background(), 10))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.Error(t, l.WaitN(ctx, 10))
}
