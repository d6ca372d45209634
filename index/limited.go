package index

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hupe1980/annkit/metrics"
	"github.com/hupe1980/annkit/resource"
)

// Limited decorates a Node with a bounded number of concurrent Build, Search
// and RangeSearch calls. Every other method is delegated without a slot.
//
// Errors returned by the wrapped node pass through unchanged.
type Limited[N Node] struct {
	inner   N
	pool    *resource.SlotPool
	name    string
	logger  *slog.Logger
	metrics metrics.Collector
}

type limitedOptions struct {
	name    string
	logger  *slog.Logger
	metrics metrics.Collector
}

// LimitedOption configures a Limited wrapper.
type LimitedOption func(*limitedOptions)

// WithName sets the algorithm label used in logs and metrics. It defaults to
// the wrapped node's Type.
func WithName(name string) LimitedOption {
	return func(o *limitedOptions) { o.name = name }
}

// WithLogger sets the logger for slot and call events.
func WithLogger(l *slog.Logger) LimitedOption {
	return func(o *limitedOptions) { o.logger = l }
}

// WithMetrics sets the metrics collector.
func WithMetrics(c metrics.Collector) LimitedOption {
	return func(o *limitedOptions) { o.metrics = c }
}

// NewLimited wraps inner with pool. A nil pool is unbounded.
func NewLimited[N Node](inner N, pool *resource.SlotPool, opts ...LimitedOption) *Limited[N] {
	o := limitedOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.name == "" {
		o.name = inner.Type()
	}
	if o.logger == nil {
		o.logger = slog.New(slog.DiscardHandler)
	}
	if o.metrics == nil {
		o.metrics = metrics.Noop{}
	}
	return &Limited[N]{
		inner:   inner,
		pool:    pool,
		name:    o.name,
		logger:  o.logger,
		metrics: o.metrics,
	}
}

// Unwrap returns the wrapped node.
func (l *Limited[N]) Unwrap() N { return l.inner }

// Pool returns the slot pool guarding this node.
func (l *Limited[N]) Pool() *resource.SlotPool { return l.pool }

func (l *Limited[N]) Type() string               { return l.inner.Type() }
func (l *Limited[N]) Capabilities() Capabilities { return l.inner.Capabilities() }
func (l *Limited[N]) State() State               { return l.inner.State() }
func (l *Limited[N]) Dim() int                   { return l.inner.Dim() }
func (l *Limited[N]) Count() int                 { return l.inner.Count() }

// Build acquires a slot and builds the wrapped node.
func (l *Limited[N]) Build(ctx context.Context, data *Dataset, cfg Config) error {
	return l.run(ctx, "build", func() error {
		return l.inner.Build(ctx, data, cfg)
	})
}

// Search acquires a slot and searches the wrapped node.
func (l *Limited[N]) Search(ctx context.Context, queries *Dataset, topK int, cfg Config, filter *Bitset) (*Neighbors, error) {
	var res *Neighbors
	err := l.run(ctx, "search", func() error {
		var err error
		res, err = l.inner.Search(ctx, queries, topK, cfg, filter)
		return err
	})
	return res, err
}

// RangeSearch acquires a slot and range-searches the wrapped node.
func (l *Limited[N]) RangeSearch(ctx context.Context, queries *Dataset, cfg Config, filter *Bitset) (*RangeResult, error) {
	var res *RangeResult
	err := l.run(ctx, "range_search", func() error {
		var err error
		res, err = l.inner.RangeSearch(ctx, queries, cfg, filter)
		return err
	})
	return res, err
}

func (l *Limited[N]) Serialize() (Blob, error)    { return l.inner.Serialize() }
func (l *Limited[N]) Deserialize(blob Blob) error { return l.inner.Deserialize(blob) }
func (l *Limited[N]) Close() error                { return l.inner.Close() }

func (l *Limited[N]) run(ctx context.Context, op string, fn func() error) error {
	start := time.Now()
	release, err := l.pool.Acquire(ctx)
	wait := time.Since(start)
	l.metrics.RecordSlotWait(l.name, wait, err)
	if err != nil {
		l.logger.DebugContext(ctx, "slot not acquired",
			"algorithm", l.name,
			"op", op,
			"wait", wait,
			"error", err,
		)
		return fmt.Errorf("%s %s: %w", l.name, op, err)
	}
	defer release()

	l.metrics.RecordInFlight(l.name, 1)
	defer l.metrics.RecordInFlight(l.name, -1)

	callStart := time.Now()
	err = fn()
	elapsed := time.Since(callStart)
	l.metrics.RecordCall(l.name, op, elapsed, err)
	l.logger.DebugContext(ctx, "call completed",
		"algorithm", l.name,
		"op", op,
		"wait", wait,
		"duration", elapsed,
		"error", err,
	)
	return err
}

var _ Node = (*Limited[Node])(nil)
