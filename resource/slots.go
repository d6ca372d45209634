package resource

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// ErrResourceExhausted is returned by a fail-fast SlotPool when every slot is taken.
var ErrResourceExhausted = errors.New("resource exhausted: no free execution slot")

// Policy selects what Acquire does when every slot is taken.
type Policy int

const (
	// PolicyBlock suspends the caller until a slot is released or ctx is done.
	// Waiters are not served in strict FIFO order.
	PolicyBlock Policy = iota

	// PolicyFailFast rejects the call immediately with ErrResourceExhausted.
	PolicyFailFast
)

func (p Policy) String() string {
	switch p {
	case PolicyBlock:
		return "block"
	case PolicyFailFast:
		return "failfast"
	default:
		return fmt.Sprintf("Policy(%d)", int(p))
	}
}

// ParsePolicy parses "block" or "failfast" (also "fail-fast", "fail_fast").
// The empty string selects PolicyBlock.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "block", "blocking":
		return PolicyBlock, nil
	case "failfast", "fail-fast", "fail_fast":
		return PolicyFailFast, nil
	default:
		return PolicyBlock, fmt.Errorf("unknown slot policy: %q", s)
	}
}

// SlotPool hands out at most Size concurrent execution slots.
//
// A nil *SlotPool is valid and unbounded: Acquire always succeeds immediately.
type SlotPool struct {
	size   int64
	policy Policy
	sem    *semaphore.Weighted

	inUse   atomic.Int64
	waiting atomic.Int64
}

// NewSlotPool creates a pool with size slots.
// If size <= 0 it returns nil, which behaves as an unbounded pool.
func NewSlotPool(size int, policy Policy) *SlotPool {
	if size <= 0 {
		return nil
	}
	return &SlotPool{
		size:   int64(size),
		policy: policy,
		sem:    semaphore.NewWeighted(int64(size)),
	}
}

// Acquire reserves one slot and returns the function that gives it back.
//
// Under PolicyBlock the caller is suspended until a slot frees up. If ctx is
// done while waiting, Acquire returns ctx.Err() and no slot is consumed.
// Under PolicyFailFast Acquire returns ErrResourceExhausted instead of waiting.
//
// The returned release func is safe to call more than once; only the first
// call returns the slot.
func (p *SlotPool) Acquire(ctx context.Context) (release func(), err error) {
	if p == nil {
		return func() {}, nil
	}

	if p.policy == PolicyFailFast {
		if !p.sem.TryAcquire(1) {
			return nil, fmt.Errorf("%w (%d of %d in use)", ErrResourceExhausted, p.inUse.Load(), p.size)
		}
	} else {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		p.waiting.Add(1)
		err := p.sem.Acquire(ctx, 1)
		p.waiting.Add(-1)
		if err != nil {
			return nil, err
		}
	}

	p.inUse.Add(1)

	var once sync.Once
	return func() {
		once.Do(func() {
			p.inUse.Add(-1)
			p.sem.Release(1)
		})
	}, nil
}

// Size returns the number of slots (0 for an unbounded pool).
func (p *SlotPool) Size() int {
	if p == nil {
		return 0
	}
	return int(p.size)
}

// Policy returns the exhaustion policy.
func (p *SlotPool) Policy() Policy {
	if p == nil {
		return PolicyBlock
	}
	return p.policy
}

// InUse returns the number of slots currently held.
func (p *SlotPool) InUse() int {
	if p == nil {
		return 0
	}
	return int(p.inUse.Load())
}

// Waiting returns the number of callers currently suspended in Acquire.
func (p *SlotPool) Waiting() int {
	if p == nil {
		return 0
	}
	return int(p.waiting.Load())
}
