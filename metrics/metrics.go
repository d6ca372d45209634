// Package metrics defines the hooks annkit uses to report registry and
// execution-slot activity.
//
// Implement Collector to integrate with a monitoring system, or use the
// Prometheus collector shipped in this package.
package metrics

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hupe1980/annkit/resource"
)

// Collector receives operational metrics.
// Implementations must be safe for concurrent use.
type Collector interface {
	// RecordSlotWait is called after a caller obtained, or failed to obtain,
	// an execution slot. wait is the time spent suspended.
	RecordSlotWait(algorithm string, wait time.Duration, err error)

	// RecordCall is called after a delegated Build, Search or RangeSearch returns.
	RecordCall(algorithm, op string, duration time.Duration, err error)

	// RecordInFlight reports a change (+1/-1) in executing calls for algorithm.
	RecordInFlight(algorithm string, delta int)

	// RecordRegister is called for each registration attempt.
	RecordRegister(algorithm string, err error)

	// RecordLookup is called for each registry lookup.
	RecordLookup(algorithm string, err error)
}

// Status classifies err into a low-cardinality label value.
func Status(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, resource.ErrResourceExhausted):
		return "exhausted"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "error"
	}
}

// Noop is a no-op Collector.
type Noop struct{}

func (Noop) RecordSlotWait(string, time.Duration, error)     {}
func (Noop) RecordCall(string, string, time.Duration, error) {}
func (Noop) RecordInFlight(string, int)                      {}
func (Noop) RecordRegister(string, error)                    {}
func (Noop) RecordLookup(string, error)                      {}

// Basic provides simple in-memory metrics collection.
// Useful for tests and debugging without external dependencies.
type Basic struct {
	SlotAcquired   atomic.Int64
	SlotRejected   atomic.Int64
	SlotCanceled   atomic.Int64
	SlotWaitNanos  atomic.Int64
	Calls          atomic.Int64
	CallErrors     atomic.Int64
	CallTotalNanos atomic.Int64
	InFlight       atomic.Int64
	MaxInFlight    atomic.Int64
	Registrations  atomic.Int64
	RegisterErrors atomic.Int64
	Lookups        atomic.Int64
	LookupErrors   atomic.Int64

	mu    sync.Mutex
	perOp map[string]int64
}

// RecordSlotWait implements Collector.
func (b *Basic) RecordSlotWait(_ string, wait time.Duration, err error) {
	switch Status(err) {
	case "success":
		b.SlotAcquired.Add(1)
		b.SlotWaitNanos.Add(wait.Nanoseconds())
	case "exhausted":
		b.SlotRejected.Add(1)
	default:
		b.SlotCanceled.Add(1)
	}
}

// RecordCall implements Collector.
func (b *Basic) RecordCall(_ string, op string, duration time.Duration, err error) {
	b.Calls.Add(1)
	b.CallTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.CallErrors.Add(1)
	}

	b.mu.Lock()
	if b.perOp == nil {
		b.perOp = make(map[string]int64)
	}
	b.perOp[op]++
	b.mu.Unlock()
}

// RecordInFlight implements Collector.
func (b *Basic) RecordInFlight(_ string, delta int) {
	n := b.InFlight.Add(int64(delta))
	for {
		peak := b.MaxInFlight.Load()
		if n <= peak || b.MaxInFlight.CompareAndSwap(peak, n) {
			return
		}
	}
}

// RecordRegister implements Collector.
func (b *Basic) RecordRegister(_ string, err error) {
	b.Registrations.Add(1)
	if err != nil {
		b.RegisterErrors.Add(1)
	}
}

// RecordLookup implements Collector.
func (b *Basic) RecordLookup(_ string, err error) {
	b.Lookups.Add(1)
	if err != nil {
		b.LookupErrors.Add(1)
	}
}

// CallsByOp returns how many calls were recorded for op.
func (b *Basic) CallsByOp(op string) int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.perOp[op]
}

// GetStats returns a snapshot of current metrics.
func (b *Basic) GetStats() BasicStats {
	return BasicStats{
		SlotAcquired:   b.SlotAcquired.Load(),
		SlotRejected:   b.SlotRejected.Load(),
		SlotCanceled:   b.SlotCanceled.Load(),
		Calls:          b.Calls.Load(),
		CallErrors:     b.CallErrors.Load(),
		CallAvgNanos:   avg(b.CallTotalNanos.Load(), b.Calls.Load()),
		SlotAvgNanos:   avg(b.SlotWaitNanos.Load(), b.SlotAcquired.Load()),
		MaxInFlight:    b.MaxInFlight.Load(),
		Registrations:  b.Registrations.Load(),
		RegisterErrors: b.RegisterErrors.Load(),
		Lookups:        b.Lookups.Load(),
		LookupErrors:   b.LookupErrors.Load(),
	}
}

func avg(total, count int64) int64 {
	if count == 0 {
		return 0
	}
	return total / count
}

// BasicStats is a snapshot of Basic state.
type BasicStats struct {
	SlotAcquired   int64
	SlotRejected   int64
	SlotCanceled   int64
	Calls          int64
	CallErrors     int64
	CallAvgNanos   int64
	SlotAvgNanos   int64
	MaxInFlight    int64
	Registrations  int64
	RegisterErrors int64
	Lookups        int64
	LookupErrors   int64
}
