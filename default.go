package annkit

import (
	"iter"

	"github.com/hupe1980/annkit/index"
)

var defaultRegistry = NewRegistry()

// Default returns the process-wide registry populated by Init.
func Default() *Registry { return defaultRegistry }

// Register registers a builder on the default registry.
func Register(key Key, builder Builder, limit int, opts ...RegisterOption) (*FactoryEntry, error) {
	return defaultRegistry.Register(key, builder, limit, opts...)
}

// Lookup looks up an entry on the default registry.
func Lookup(name string, et index.ElementType) (*FactoryEntry, error) {
	return defaultRegistry.Lookup(name, et)
}

// ListRegistered lists the keys of the default registry.
func ListRegistered() iter.Seq[Key] {
	return defaultRegistry.ListRegistered()
}

// CreateIndex constructs a node from the default registry.
func CreateIndex(name string, et index.ElementType, version index.Version) (index.Node, error) {
	return defaultRegistry.CreateIndex(name, et, version)
}
