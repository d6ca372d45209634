package index

import (
	"errors"
	"fmt"
)

var (
	// ErrNotReady is returned when an operation requires a Built node.
	ErrNotReady = errors.New("index not ready")

	// ErrInvalidState is returned for lifecycle transitions that are not allowed,
	// such as building a node twice.
	ErrInvalidState = errors.New("invalid index state")

	// ErrUnsupported is returned when a node lacks the capability for an operation.
	ErrUnsupported = errors.New("operation not supported by index")

	// ErrUnsupportedVersion is returned for index versions outside the supported range.
	ErrUnsupportedVersion = errors.New("unsupported index version")

	// ErrInvalidK is returned when topK is not positive or exceeds the result limits.
	ErrInvalidK = errors.New("invalid k")

	// ErrEmptyDataset is returned when building from a dataset without rows.
	ErrEmptyDataset = errors.New("dataset is empty")

	// ErrBlobMismatch is returned when a blob was produced by a different index type.
	ErrBlobMismatch = errors.New("blob does not belong to this index type")
)

// ErrDimensionMismatch is a named error type for dimension mismatch.
type ErrDimensionMismatch struct {
	Expected int // Expected dimensions
	Actual   int // Actual dimensions
}

// Error returns the error message for dimension mismatch.
func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

// ErrElementTypeMismatch is returned when a dataset's element type does not
// match the element type the node was created for.
type ErrElementTypeMismatch struct {
	Expected ElementType
	Actual   ElementType
}

func (e *ErrElementTypeMismatch) Error() string {
	return fmt.Sprintf("element type mismatch: expected %s, got %s", e.Expected, e.Actual)
}

// ErrInvalidConfig reports a bad build or search parameter.
type ErrInvalidConfig struct {
	Param  string
	Reason string
}

func (e *ErrInvalidConfig) Error() string {
	return fmt.Sprintf("invalid config %q: %s", e.Param, e.Reason)
}
