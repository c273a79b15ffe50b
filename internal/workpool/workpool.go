// Package workpool bounds concurrent generation work across all requests.
// The pool is sized once at process start so a burst of batch requests cannot
// exceed the upstream API concurrency ceiling.
package workpool

import (
	"context"

	"golang.org/x/sync/semaphore"
)

type Pool struct {
	sem *semaphore.Weighted
}

func New(size int) *Pool {
	if size < 1 {
		size = 1
	}
	return &Pool{sem: semaphore.NewWeighted(int64(size))}
}

// Acquire blocks until a worker slot is free or the context ends.
func (p *Pool) Acquire(ctx context.Context) error {
	return p.sem.Acquire(ctx, 1)
}

func (p *Pool) Release() {
	p.sem.Release(1)
}
