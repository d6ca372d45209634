package annkit

import (
	"context"
	"sync/atomic"
	"testing"

	"go.uber.org/goleak"

	"github.com/hupe1980/annkit/index"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// stubNode records concurrency and can hold calls open on gate.
type stubNode struct {
	index.Lifecycle

	gate    chan struct{}
	fail    error
	running atomic.Int32
	peak    atomic.Int32
}

func newStub(Key, index.Version) (index.Node, error) { return &stubNode{}, nil }

func (s *stubNode) enter(ctx context.Context) error {
	n := s.running.Add(1)
	defer s.running.Add(-1)
	for {
		p := s.peak.Load()
		if n <= p || s.peak.CompareAndSwap(p, n) {
			break
		}
	}
	if s.gate != nil {
		select {
		case <-s.gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return s.fail
}

func (s *stubNode) Type() string                     { return "STUB" }
func (s *stubNode) Capabilities() index.Capabilities { return index.Capabilities{} }
func (s *stubNode) Dim() int                         { return 0 }
func (s *stubNode) Count() int                       { return 0 }
func (s *stubNode) Serialize() (index.Blob, error)   { return index.Blob{}, index.ErrUnsupported }
func (s *stubNode) Deserialize(index.Blob) error     { return index.ErrUnsupported }

func (s *stubNode) Close() error {
	s.Destroy()
	return nil
}

func (s *stubNode) Build(ctx context.Context, _ *index.Dataset, _ index.Config) error {
	if err := s.BeginBuild(); err != nil {
		return err
	}
	return s.EndBuild(s.enter(ctx))
}

func (s *stubNode) Search(ctx context.Context, _ *index.Dataset, topK int, _ index.Config, _ *index.Bitset) (*index.Neighbors, error) {
	if err := s.Ready(); err != nil {
		return nil, err
	}
	if err := s.enter(ctx); err != nil {
		return nil, err
	}
	return &index.Neighbors{K: topK}, nil
}

func (s *stubNode) RangeSearch(context.Context, *index.Dataset, index.Config, *index.Bitset) (*index.RangeResult, error) {
	return nil, index.ErrUnsupported
}
