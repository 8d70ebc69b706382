// Package workerpool provides simple concurrent processing utilities.
package workerpool

import (
	"context"
	"sync"
	"sync/atomic"
)

// Process runs a worker pool over the provided work items, invoking process for each.
// Items are handed out in index order. When process fails, items after the
// failing one are skipped while earlier ones still run, so the returned error
// is always the one of the lowest-indexed failing item no matter how the
// workers are scheduled. onCancel is invoked once, on the first failure.
func Process[T any](
	ctx context.Context,
	workerCount int,
	items []T,
	process func(context.Context, T) error,
	onCancel func(),
) error {
	if workerCount < 1 {
		workerCount = 1
	}
	workerCount = min(workerCount, len(items))

	var (
		next     atomic.Int64
		mu       sync.Mutex
		failedAt = len(items)
		firstErr error
		once     sync.Once
	)

	wg := sync.WaitGroup{}
	for i := 0; i < workerCount; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ctx.Err() == nil {
				idx := int(next.Add(1) - 1)
				if idx >= len(items) {
					return
				}
				mu.Lock()
				skip := idx > failedAt
				mu.Unlock()
				if skip {
					return
				}

				if err := process(ctx, items[idx]); err != nil {
					mu.Lock()
					if idx < failedAt {
						failedAt = idx
						firstErr = err
					}
					mu.Unlock()
					if onCancel != nil {
						once.Do(onCancel)
					}
				}
			}
		}()
	}
	wg.Wait()

	if firstErr != nil {
		return firstErr
	}
	return ctx.Err()
}
