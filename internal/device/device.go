package device

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

var (
	// ErrClosed is returned by Launch after the context has been closed.
	ErrClosed = errors.New("device: context closed")

	// ErrInvalidDevice is returned by Open for an unknown device id.
	ErrInvalidDevice = errors.New("device: invalid device id")
)

// NumDevices is the number of devices visible to Open.
const NumDevices = 1

// openContexts counts contexts that have been opened and not yet closed.
var openContexts atomic.Int64

// OpenContexts returns the number of live contexts in the process.
func OpenContexts() int64 { return openContexts.Load() }

// Info describes the device backing a context.
type Info struct {
	ID       int
	Name     string
	ISA      string
	Cores    int
	Emulated bool
}

// Host returns the description of the emulated device.
func Host(id int) Info {
	return Info{
		ID:       id,
		Name:     fmt.Sprintf("host-%d", id),
		ISA:      hostISA(),
		Cores:    runtime.NumCPU(),
		Emulated: true,
	}
}

// Kernel is a unit of device work. Kernels must return promptly once ctx is done.
type Kernel func(ctx context.Context) error

type job struct {
	ctx    context.Context
	kernel Kernel
	done   chan error
}

// Context is an exclusively owned handle on one device.
type Context struct {
	id   uuid.UUID
	info Info

	jobs    chan job
	quit    chan struct{}
	stopped chan struct{}

	closeOnce sync.Once
}

// Open acquires a context on the given device.
func Open(ctx context.Context, deviceID int) (*Context, error) {
	if deviceID < 0 || deviceID >= NumDevices {
		return nil, fmt.Errorf("%w: %d", ErrInvalidDevice, deviceID)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c := &Context{
		id:      uuid.New(),
		info:    Host(deviceID),
		jobs:    make(chan job),
		quit:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	openContexts.Add(1)
	go c.stream()
	return c, nil
}

// ID returns the unique id of this context.
func (c *Context) ID() uuid.UUID { return c.id }

// Info returns the device description.
func (c *Context) Info() Info { return c.info }

func (c *Context) stream() {
	defer close(c.stopped)
	for {
		select {
		case <-c.quit:
			return
		case j := <-c.jobs:
			j.done <- run(j)
		}
	}
}

func run(j job) (err error) {
	if err := j.ctx.Err(); err != nil {
		return err
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("device: kernel panic: %v", r)
		}
	}()
	return j.kernel(j.ctx)
}

// Launch runs kernel on the stream and waits for it to finish.
func (c *Context) Launch(ctx context.Context, kernel Kernel) error {
	j := job{ctx: ctx, kernel: kernel, done: make(chan error, 1)}
	select {
	case <-c.quit:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	case c.jobs <- j:
	}
	return <-j.done
}

// Close stops the stream after the running kernel returns. Only the first
// call releases the device; it reports whether this call did.
func (c *Context) Close() bool {
	released := false
	c.closeOnce.Do(func() {
		close(c.quit)
		<-c.stopped
		openContexts.Add(-1)
		released = true
	})
	return released
}
