// Package gpu provides IVF indexes that build and search on an accelerator
// device.
//
// Each index owns one device context. The context is opened when the index
// enters the building state and released exactly once by Close.
package gpu

import (
	"context"
	"fmt"
	"sync"

	"github.com/hupe1980/annkit/index"
	"github.com/hupe1980/annkit/index/ivf"
	"github.com/hupe1980/annkit/internal/device"
)

// Algorithm names.
const (
	TypeIVFPQ   = "GPU_IVF_PQ"
	TypeIVFFlat = "GPU_IVF_FLAT"
)

// Compile-time check to ensure Index satisfies the node contract.
var _ index.Node = (*Index)(nil)

// Options contains configuration options for accelerator indexes.
type Options struct {
	// Kind selects IVF-PQ or IVF-flat lists.
	Kind ivf.Kind

	Version index.Version

	// DeviceID is used by Deserialize. Build reads gpu_id from its config.
	DeviceID int
}

// DefaultOptions contains the default configuration options.
var DefaultOptions = Options{
	Kind:    ivf.KindPQ,
	Version: index.CurrentVersion,
}

// Index is an IVF index whose kernels run on a device context.
type Index struct {
	index.Lifecycle

	opts  Options
	inner *ivf.IVF

	// mu guards dev. Search holds it shared so Close waits for running kernels.
	mu  sync.RWMutex
	dev *device.Context
}

// New creates a new, unbuilt accelerator index. Only float32 vectors are accepted.
func New(optFns ...func(o *Options)) *Index {
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}
	name := TypeIVFPQ
	if opts.Kind == ivf.KindFlat {
		name = TypeIVFFlat
	}
	return &Index{
		opts: opts,
		inner: ivf.New(func(o *ivf.Options) {
			o.Kind = opts.Kind
			o.ElementType = index.Float32
			o.Version = opts.Version
			o.Name = name
		}),
	}
}

func (g *Index) Type() string { return g.inner.Type() }

func (g *Index) Capabilities() index.Capabilities {
	c := g.inner.Capabilities()
	c.Accelerated = true
	return c
}

func (g *Index) Dim() int   { return g.inner.Dim() }
func (g *Index) Count() int { return g.inner.Count() }

// Device returns the owned device context, or nil before building and after Close.
func (g *Index) Device() *device.Context {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.dev
}

// attach opens the device context. It fails if the index was closed while
// the context was being opened.
func (g *Index) attach(ctx context.Context, deviceID int) (*device.Context, error) {
	dev, err := device.Open(ctx, deviceID)
	if err != nil {
		return nil, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.State() == index.StateDestroyed {
		dev.Close()
		return nil, index.ErrInvalidState
	}
	g.dev = dev
	return dev, nil
}

// Build opens the device and trains the index on it.
func (g *Index) Build(ctx context.Context, data *index.Dataset, cfg index.Config) error {
	if err := g.BeginBuild(); err != nil {
		return err
	}
	return g.EndBuild(g.build(ctx, data, cfg))
}

func (g *Index) build(ctx context.Context, data *index.Dataset, cfg index.Config) error {
	dev, err := g.attach(ctx, cfg.DeviceID)
	if err != nil {
		return err
	}
	return dev.Launch(ctx, func(ctx context.Context) error {
		return g.inner.Build(ctx, data, cfg)
	})
}

// launch runs fn on the device while holding the context open.
func (g *Index) launch(ctx context.Context, fn device.Kernel) error {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if err := g.Ready(); err != nil {
		return err
	}
	if g.dev == nil {
		return fmt.Errorf("%w: no device context", index.ErrNotReady)
	}
	return g.dev.Launch(ctx, fn)
}

// Search runs the IVF search as a device kernel.
func (g *Index) Search(ctx context.Context, queries *index.Dataset, topK int, cfg index.Config, filter *index.Bitset) (*index.Neighbors, error) {
	var res *index.Neighbors
	err := g.launch(ctx, func(ctx context.Context) error {
		var err error
		res, err = g.inner.Search(ctx, queries, topK, cfg, filter)
		return err
	})
	return res, err
}

// RangeSearch runs the IVF range search as a device kernel.
func (g *Index) RangeSearch(ctx context.Context, queries *index.Dataset, cfg index.Config, filter *index.Bitset) (*index.RangeResult, error) {
	var res *index.RangeResult
	err := g.launch(ctx, func(ctx context.Context) error {
		var err error
		res, err = g.inner.RangeSearch(ctx, queries, cfg, filter)
		return err
	})
	return res, err
}

// Serialize copies the index back to the host.
func (g *Index) Serialize() (index.Blob, error) {
	if err := g.Ready(); err != nil {
		return index.Blob{}, err
	}
	return g.inner.Serialize()
}

// Deserialize opens the device configured by Options.DeviceID and uploads blob.
func (g *Index) Deserialize(blob index.Blob) error {
	if err := g.BeginBuild(); err != nil {
		return err
	}
	return g.EndBuild(g.load(blob))
}

func (g *Index) load(blob index.Blob) error {
	ctx := context.Background()
	dev, err := g.attach(ctx, g.opts.DeviceID)
	if err != nil {
		return err
	}
	return dev.Launch(ctx, func(context.Context) error {
		return g.inner.Deserialize(blob)
	})
}

// Close releases the device context. It is safe to call from any state and
// more than once.
func (g *Index) Close() error {
	g.Destroy()

	g.mu.Lock()
	dev := g.dev
	g.dev = nil
	g.mu.Unlock()

	if dev != nil {
		dev.Close()
	}
	return g.inner.Close()
}
