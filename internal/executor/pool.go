package executor

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Pool runs a bounded number of CommandSpecs concurrently, grounded on the
// teacher's pipeline.ConcurrencyExecutor, which wraps errgroup.WithContext
// with g.SetLimit(workerCount). Submission order is not preserved as
// completion order.
type Pool struct {
	exec  *Executor
	limit int
}

// NewPool returns a Pool that runs up to limit commands concurrently.
func NewPool(exec *Executor, limit int) *Pool {
	if limit <= 0 {
		limit = 1
	}
	return &Pool{exec: exec, limit: limit}
}

// RunAll runs every spec concurrently (bounded by the pool's limit) and
// invokes onResult for each as it completes. onResult must be safe to
// call from multiple goroutines if it touches shared state; callers
// typically guard their own accumulator with a mutex.
func (p *Pool) RunAll(ctx context.Context, specs []CommandSpec, onResult func(CommandSpec, Outcome)) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.limit)

	for _, spec := range specs {
		spec := spec
		g.Go(func() error {
			outcome := p.exec.Run(gctx, spec)
			onResult(spec, outcome)
			return nil
		})
	}

	return g.Wait()
}
