package annkit

import (
	"context"
	"fmt"
	"iter"
	"maps"
	"slices"
	"sync"

	"github.com/hupe1980/annkit/index"
	"github.com/hupe1980/annkit/metrics"
	"github.com/hupe1980/annkit/resource"
)

// Registry maps keys to factory entries. It is safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	entries map[Key]*FactoryEntry
	sealed  bool

	logger  *Logger
	metrics metrics.Collector
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		entries: make(map[Key]*FactoryEntry),
		logger:  NoopLogger(),
		metrics: metrics.Noop{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Registry) configure(opts ...Option) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, opt := range opts {
		opt(r)
	}
}

func validate(key Key, builder Builder, limit int) error {
	switch {
	case key.Name == "":
		return fmt.Errorf("%w: empty name", ErrInvalidRegistration)
	case !key.ElementType.Valid():
		return fmt.Errorf("%w: unknown element type %d", ErrInvalidRegistration, key.ElementType)
	case builder == nil:
		return fmt.Errorf("%w: nil builder for %s", ErrInvalidRegistration, key)
	case limit < 0:
		return fmt.Errorf("%w: negative limit %d for %s", ErrInvalidRegistration, limit, key)
	}
	return nil
}

// Register adds a builder under key. limit bounds concurrent Build/Search
// calls per constructed node; 0 means the node is returned unwrapped.
// A key that is already present is left untouched and ErrKeyConflict is
// returned.
func (r *Registry) Register(key Key, builder Builder, limit int, opts ...RegisterOption) (*FactoryEntry, error) {
	entry, err := r.register(key, builder, limit, opts)

	r.mu.RLock()
	logger, collector := r.logger, r.metrics
	r.mu.RUnlock()
	logger.LogRegister(context.Background(), key, limit, err)
	collector.RecordRegister(key.Name, err)

	return entry, err
}

func (r *Registry) register(key Key, builder Builder, limit int, opts []RegisterOption) (*FactoryEntry, error) {
	if err := validate(key, builder, limit); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sealed {
		return nil, fmt.Errorf("%w: cannot register %s", ErrRegistrySealed, key)
	}
	if _, ok := r.entries[key]; ok {
		return nil, fmt.Errorf("%w: %s", ErrKeyConflict, key)
	}

	entry := &FactoryEntry{
		key:     key,
		builder: builder,
		limit:   limit,
		policy:  resource.PolicyBlock,
		logger:  r.logger,
		metrics: r.metrics,
	}
	for _, opt := range opts {
		opt(entry)
	}
	r.entries[key] = entry
	return entry, nil
}

// MustRegister is like Register but panics on error.
func (r *Registry) MustRegister(key Key, builder Builder, limit int, opts ...RegisterOption) *FactoryEntry {
	entry, err := r.Register(key, builder, limit, opts...)
	if err != nil {
		panic(err)
	}
	return entry
}

// Lookup returns the entry registered under (name, et). Names are matched exactly.
func (r *Registry) Lookup(name string, et index.ElementType) (*FactoryEntry, error) {
	key := Key{Name: name, ElementType: et}

	r.mu.RLock()
	entry, ok := r.entries[key]
	logger, collector := r.logger, r.metrics
	r.mu.RUnlock()

	var err error
	if !ok {
		err = fmt.Errorf("%w: %s", ErrUnknownAlgorithm, key)
	}
	logger.LogLookup(context.Background(), key, err)
	collector.RecordLookup(name, err)
	return entry, err
}

// CreateIndex looks up (name, et) and constructs a node at version.
func (r *Registry) CreateIndex(name string, et index.ElementType, version index.Version) (index.Node, error) {
	entry, err := r.Lookup(name, et)
	if err != nil {
		return nil, err
	}
	return entry.New(version)
}

// ListRegistered returns the registered keys sorted by name, then element
// type. Each iteration takes a fresh snapshot.
func (r *Registry) ListRegistered() iter.Seq[Key] {
	return func(yield func(Key) bool) {
		r.mu.RLock()
		keys := slices.Collect(maps.Keys(r.entries))
		r.mu.RUnlock()

		slices.SortFunc(keys, Key.Compare)
		for _, k := range keys {
			if !yield(k) {
				return
			}
		}
	}
}

// Len returns the number of registered keys.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Seal rejects all further registrations.
func (r *Registry) Seal() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sealed = true
}

// Sealed reports whether Seal has been called.
func (r *Registry) Sealed() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sealed
}
