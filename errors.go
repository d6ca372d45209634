package annkit

import (
	"errors"

	"github.com/hupe1980/annkit/index"
	"github.com/hupe1980/annkit/resource"
)

var (
	// ErrKeyConflict is returned when a key is registered twice.
	ErrKeyConflict = errors.New("algorithm key already registered")

	// ErrUnknownAlgorithm is returned by Lookup for keys that were never registered.
	ErrUnknownAlgorithm = errors.New("unknown algorithm")

	// ErrRegistrySealed is returned by Register after Seal.
	ErrRegistrySealed = errors.New("registry is sealed")

	// ErrInvalidRegistration is returned for malformed Register arguments.
	ErrInvalidRegistration = errors.New("invalid registration")
)

// Errors returned by index nodes and the concurrency wrapper.
var (
	ErrNotReady           = index.ErrNotReady
	ErrInvalidState       = index.ErrInvalidState
	ErrUnsupported        = index.ErrUnsupported
	ErrUnsupportedVersion = index.ErrUnsupportedVersion
	ErrResourceExhausted  = resource.ErrResourceExhausted
)
