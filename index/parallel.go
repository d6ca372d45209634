package index

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// ForEachQuery runs fn for every query row in [0, nq) with at most
// parallelism goroutines. A non-positive parallelism uses GOMAXPROCS.
// It stops early on the first error or when ctx is done.
func ForEachQuery(ctx context.Context, nq, parallelism int, fn func(ctx context.Context, q int) error) error {
	if parallelism <= 0 {
		parallelism = runtime.GOMAXPROCS(0)
	}
	if nq <= 1 || parallelism == 1 {
		for q := 0; q < nq; q++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := fn(ctx, q); err != nil {
				return err
			}
		}
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallelism)
	for q := 0; q < nq; q++ {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return fn(gctx, q)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}
