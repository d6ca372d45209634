package annkit

import (
	"fmt"

	"github.com/hupe1980/annkit/index"
	"github.com/hupe1980/annkit/metrics"
	"github.com/hupe1980/annkit/resource"
)

// Builder constructs a fresh, unbuilt node for key at the given version.
type Builder func(key Key, version index.Version) (index.Node, error)

// FactoryEntry is a registered builder together with its concurrency policy.
// It is immutable after registration.
type FactoryEntry struct {
	key     Key
	builder Builder
	limit   int
	policy  resource.Policy

	logger  *Logger
	metrics metrics.Collector
}

// Key returns the key the entry was registered under.
func (e *FactoryEntry) Key() Key { return e.key }

// Limit returns the number of concurrent Build/Search calls allowed per
// node. 0 means unbounded.
func (e *FactoryEntry) Limit() int { return e.limit }

// Policy returns the behavior when all slots are in use.
func (e *FactoryEntry) Policy() resource.Policy { return e.policy }

// New constructs a node. When the entry has a limit, the node is wrapped in
// an index.Limited with its own slot pool.
func (e *FactoryEntry) New(version index.Version) (index.Node, error) {
	if err := index.CheckVersion(version); err != nil {
		return nil, err
	}
	node, err := e.builder(e.key, version)
	if err != nil {
		return nil, fmt.Errorf("build %s: %w", e.key, err)
	}
	if node == nil {
		return nil, fmt.Errorf("build %s: builder returned nil node", e.key)
	}
	if e.limit <= 0 {
		return node, nil
	}
	return index.NewLimited(node, resource.NewSlotPool(e.limit, e.policy),
		index.WithName(e.key.String()),
		index.WithLogger(e.logger.WithKey(e.key).Logger),
		index.WithMetrics(e.metrics),
	), nil
}

// RegisterOption configures a single registration.
type RegisterOption func(e *FactoryEntry)

// WithPolicy selects what happens when all slots are in use. The default is
// resource.PolicyBlock.
func WithPolicy(p resource.Policy) RegisterOption {
	return func(e *FactoryEntry) {
		e.policy = p
	}
}
