// Package workers runs fork/join batches of independent tasks on a fixed
// number of goroutines.
package workers

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"runtime/debug"

	"golang.org/x/sync/errgroup"
)

// ErrTaskPanic wraps a panic recovered from a task.
var ErrTaskPanic = errors.New("worker task panicked")

// Pool is a fixed-size fork/join executor.
type Pool struct {
	size int
}

// New creates a pool running up to size tasks at once. A non-positive size
// uses runtime.NumCPU.
func New(size int) *Pool {
	if size <= 0 {
		size = runtime.NumCPU()
	}
	return &Pool{size: size}
}

// Size returns the number of concurrent tasks.
func (p *Pool) Size() int {
	return p.size
}

// Run calls fn for every index in [0, n). Indices are submitted in batches
// of Size; each batch is joined before the next starts. After every batch
// done is called on the calling goroutine with the number of finished
// tasks, and ctx is checked. The first task error, a recovered panic, or
// the context error stops the run.
func (p *Pool) Run(ctx context.Context, n int, fn func(i int) error, done func(completed int)) error {
	for start := 0; start < n; start += p.size {
		if err := ctx.Err(); err != nil {
			return err
		}
		end := min(start+p.size, n)

		var g errgroup.Group
		g.SetLimit(p.size)
		for i := start; i < end; i++ {
			g.Go(func() (err error) {
				defer func() {
					if r := recover(); r != nil {
						err = fmt.Errorf("%w: task %d: %v\n%s", ErrTaskPanic, i, r, debug.Stack())
					}
				}()
				return fn(i)
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
		if done != nil {
			done(end - start)
		}
	}
	return ctx.Err()
}
