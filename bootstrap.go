package annkit

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/hupe1980/annkit/config"
	"github.com/hupe1980/annkit/index"
	"github.com/hupe1980/annkit/index/flat"
	"github.com/hupe1980/annkit/index/gpu"
	"github.com/hupe1980/annkit/index/hnsw"
	"github.com/hupe1980/annkit/index/ivf"
	"github.com/hupe1980/annkit/resource"
)

// Registration is one row of a registration table. Every name is registered
// for every element type with the same builder.
type Registration struct {
	Names        []string
	ElementTypes []index.ElementType
	Builder      Builder

	// LimitOption names the entry in Limits holding the concurrency limit.
	// An empty or missing option registers the entries unbounded.
	LimitOption string

	// Policy pins the slot policy of the row's entries. It is applied after
	// the options passed to Bootstrap, so a non-zero value wins over them.
	// The zero value, PolicyBlock, leaves the choice to those options.
	Policy resource.Policy
}

// Limits maps limit option names to concurrency limits.
type Limits map[string]int

// Bootstrap registers every row of table on r. It keeps going after a
// failure and returns all errors joined.
func Bootstrap(r *Registry, table []Registration, limits Limits, opts ...RegisterOption) error {
	var errs []error
	registered := 0
	for _, row := range table {
		limit := limits[row.LimitOption]
		rowOpts := append([]RegisterOption(nil), opts...)
		if row.Policy != resource.PolicyBlock {
			rowOpts = append(rowOpts, WithPolicy(row.Policy))
		}
		for _, et := range row.ElementTypes {
			for _, name := range row.Names {
				if _, err := r.Register(Key{Name: name, ElementType: et}, row.Builder, limit, rowOpts...); err != nil {
					errs = append(errs, err)
					continue
				}
				registered++
			}
		}
	}

	err := errors.Join(errs...)
	r.mu.RLock()
	logger := r.logger
	r.mu.RUnlock()
	logger.LogBootstrap(context.Background(), registered, len(errs), err)
	return err
}

var (
	initOnce sync.Once
	initErr  error
)

// Init populates the default registry from DefaultRegistrations with the
// limits and slot policy in cfg. It runs once per process; later calls
// return the first result.
func Init(cfg config.Config, opts ...Option) error {
	initOnce.Do(func() {
		initErr = initDefault(cfg, opts)
	})
	return initErr
}

func initDefault(cfg config.Config, opts []Option) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("init: %w", err)
	}
	policy, err := cfg.Policy()
	if err != nil {
		return fmt.Errorf("init: %w", err)
	}
	logger, err := NewLoggerFromConfig(os.Stderr, cfg)
	if err != nil {
		return fmt.Errorf("init: %w", err)
	}

	defaultRegistry.configure(append([]Option{WithLogger(logger)}, opts...)...)
	return Bootstrap(defaultRegistry, DefaultRegistrations(), cfg.Limits(), WithPolicy(policy))
}

var floatTypes = []index.ElementType{index.Float32, index.Float16, index.BFloat16}

// DefaultRegistrations returns the built-in registration table.
func DefaultRegistrations() []Registration {
	return []Registration{
		{
			Names:        []string{flat.TypeFlat},
			ElementTypes: []index.ElementType{index.Float32, index.Float16, index.BFloat16, index.Int8},
			Builder:      newFlat,
			LimitOption:  config.CPUConcurrentSize,
		},
		{
			Names:        []string{flat.TypeBinFlat},
			ElementTypes: []index.ElementType{index.Binary},
			Builder:      newFlat,
			LimitOption:  config.CPUConcurrentSize,
		},
		{
			Names:        []string{ivf.TypeIVFFlat, "IVFFLAT", "IVFFLATCC"},
			ElementTypes: floatTypes,
			Builder:      newIVF(ivf.KindFlat),
			LimitOption:  config.CPUConcurrentSize,
		},
		{
			Names:        []string{ivf.TypeIVFSQ8, "IVFSQ"},
			ElementTypes: floatTypes,
			Builder:      newIVF(ivf.KindSQ8),
			LimitOption:  config.CPUConcurrentSize,
		},
		{
			Names:        []string{ivf.TypeIVFPQ},
			ElementTypes: []index.ElementType{index.Float32},
			Builder:      newIVF(ivf.KindPQ),
			LimitOption:  config.CPUConcurrentSize,
		},
		{
			Names:        []string{ivf.TypeSCANN},
			ElementTypes: floatTypes,
			Builder:      newIVF(ivf.KindSCANN),
			LimitOption:  config.CPUConcurrentSize,
		},
		{
			Names:        []string{hnsw.TypeHNSW},
			ElementTypes: floatTypes,
			Builder:      newHNSW,
			LimitOption:  config.CPUConcurrentSize,
		},
		{
			Names:        []string{"GPU_RAFT_IVF_PQ", gpu.TypeIVFPQ},
			ElementTypes: []index.ElementType{index.Float32},
			Builder:      newGPU(ivf.KindPQ),
			LimitOption:  config.GPUConcurrentSize,
		},
		{
			Names:        []string{"GPU_RAFT_IVF_FLAT", gpu.TypeIVFFlat},
			ElementTypes: []index.ElementType{index.Float32},
			Builder:      newGPU(ivf.KindFlat),
			LimitOption:  config.GPUConcurrentSize,
		},
	}
}

func newFlat(key Key, v index.Version) (index.Node, error) {
	return flat.New(func(o *flat.Options) {
		o.ElementType = key.ElementType
		o.Version = v
	}), nil
}

func newIVF(kind ivf.Kind) Builder {
	return func(key Key, v index.Version) (index.Node, error) {
		return ivf.New(func(o *ivf.Options) {
			o.Kind = kind
			o.ElementType = key.ElementType
			o.Version = v
		}), nil
	}
}

func newHNSW(key Key, v index.Version) (index.Node, error) {
	return hnsw.New(func(o *hnsw.Options) {
		o.ElementType = key.ElementType
		o.Version = v
	}), nil
}

func newGPU(kind ivf.Kind) Builder {
	return func(key Key, v index.Version) (index.Node, error) {
		if key.ElementType != index.Float32 {
			return nil, fmt.Errorf("%w: %s on %s", index.ErrUnsupported, key.Name, key.ElementType)
		}
		return gpu.New(func(o *gpu.Options) {
			o.Kind = kind
			o.Version = v
		}), nil
	}
}
