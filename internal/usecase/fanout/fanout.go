// Package fanout runs independent units of work on a bounded pool and merges
// their outcomes by submission order.
package fanout

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
)

// DefaultLimit is the pool size used when a non-positive limit is given.
const DefaultLimit = 10

// Task is one independent unit of work.
type Task[T any] struct {
	Name string
	Run  func(ctx context.Context) (T, error)
}

// Result is the outcome of one task, stored at the task's submission index.
type Result[T any] struct {
	Name  string
	Value T
	Err   error
}

// Run executes tasks with at most limit in flight. Each task gets its own
// deadline when timeout is positive. A failing task never cancels its siblings;
// results come back in submission order regardless of completion order.
func Run[T any](ctx context.Context, limit int, timeout time.Duration, tasks []Task[T]) []Result[T] {
	if limit <= 0 {
		limit = DefaultLimit
	}
	results := make([]Result[T], len(tasks))

	var g errgroup.Group
	g.SetLimit(limit)
	for i, task := range tasks {
		results[i].Name = task.Name
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i].Err = err
				return nil
			}
			results[i].Value, results[i].Err = runOne(ctx, timeout, task)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// Values returns the value of each successful result, or fallback for failed
// ones, calling onErr for every failure. The slice is index-aligned with results.
func Values[T any](results []Result[T], fallback func() T, onErr func(name string, err error)) []T {
	out := make([]T, len(results))
	for i, r := range results {
		if r.Err != nil {
			if onErr != nil {
				onErr(r.Name, r.Err)
			}
			out[i] = fallback()
			continue
		}
		out[i] = r.Value
	}
	return out
}

func runOne[T any](ctx context.Context, timeout time.Duration, task Task[T]) (value T, err error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task %s panicked: %v", task.Name, r)
		}
	}()
	return task.Run(ctx)
}
