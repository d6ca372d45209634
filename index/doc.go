// Package index defines the capability contract shared by every index
// implementation, together with the value types that flow through it.
//
// # Node
//
// Every implementation satisfies Node:
//
//	type Node interface {
//	    Type() string
//	    Capabilities() Capabilities
//	    State() State
//	    Build(ctx context.Context, data *Dataset, cfg Config) error
//	    Search(ctx context.Context, queries *Dataset, topK int, cfg Config, filter *Bitset) (*Neighbors, error)
//	    RangeSearch(ctx context.Context, queries *Dataset, cfg Config, filter *Bitset) (*RangeResult, error)
//	    Serialize() (Blob, error)
//	    Deserialize(blob Blob) error
//	    Close() error
//	}
//
// # Lifecycle
//
// A node moves through Uninitialized → Building → Built → Destroyed. Building is
// entered exactly once, either by Build or by Deserialize. A failure while
// building leaves the node in the terminal Failed state, from which only Close
// is meaningful. Search, RangeSearch and Serialize require Built and return
// ErrNotReady otherwise. Implementations embed Lifecycle to get these
// transitions.
//
// # Concurrency Limits
//
// Limited wraps any Node and bounds the number of Build, Search and RangeSearch
// calls that run at the same time. Callers beyond the bound are suspended (or
// rejected under resource.PolicyFailFast) until a slot is released.
//
// # Subpackages
//
//   - flat: Exact search over float and binary vectors
//   - ivf: Inverted-file indexes with flat, SQ8 and PQ lists
//   - hnsw: Graph index backed by github.com/coder/hnsw
//   - gpu: Accelerator-backed inverted-file indexes
package index
