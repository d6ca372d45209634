// Package catalog records which serialized index lives in which blob.
//
// A Record carries everything needed to reconstruct a node from its blob:
// the registered algorithm name, element type and version. Records are
// updated with optimistic concurrency on Revision.
package catalog

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when no record exists for a name.
	ErrNotFound = errors.New("catalog: record not found")

	// ErrConflict is returned when a record was modified concurrently.
	ErrConflict = errors.New("catalog: concurrent modification detected")
)

// Record describes one persisted index.
type Record struct {
	Name        string    `json:"name"`
	Algorithm   string    `json:"algorithm"`
	ElementType string    `json:"element_type"`
	Version     int32     `json:"version"`
	Dim         int       `json:"dim"`
	Count       int       `json:"count"`
	Blob        string    `json:"blob"`
	Compression string    `json:"compression"`
	Revision    uint64    `json:"revision"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Catalog stores records by name.
type Catalog interface {
	// Put stores rec if the stored revision equals rec.Revision (0 for a new
	// name) and returns the record as stored, with Revision incremented.
	Put(ctx context.Context, rec Record) (Record, error)

	// Get returns the current record for name.
	Get(ctx context.Context, name string) (Record, error)

	// Delete removes the record for name. Deleting a missing record is not an error.
	Delete(ctx context.Context, name string) error

	// List returns all records sorted by name.
	List(ctx context.Context) ([]Record, error)
}
