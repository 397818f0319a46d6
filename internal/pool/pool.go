// Package pool implements the bounded-concurrency generator/worker/consumer
// pipeline shared by block hashing (one input per block offset) and block
// transfer (one input per changed offset).
//
// One generator goroutine feeds a bounded input queue; N worker goroutines
// each drain it and apply a user function, feeding a bounded output queue;
// the caller drains the output queue by ranging over the channel Run
// returns. Termination closes the input queue from its single producer: the
// generator closes it after it has emitted every input, and a worker that
// finds it closed and drained exits without producing output.
package pool

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// Run drives inputs produced by generate through concurrency workers
// running fn, and returns a channel of their outputs. Outputs are
// unordered with respect to inputs. If ctx is cancelled, or if the caller
// stops draining the returned channel and the parent goroutine returns,
// remaining workers are abandoned once fn next checks ctx.
//
// If any invocation of fn returns an error, it is captured and returned by
// the accompanying error function once the returned channel has been
// drained to completion; the error does not stop other workers from
// finishing their own in-flight and already-queued inputs.
func Run[In, Out any](ctx context.Context, concurrency int, generate func(yield func(In) bool), fn func(context.Context, In) (Out, error)) (<-chan Out, func() error) {
	if concurrency < 1 {
		concurrency = 1
	}

	input := make(chan In, concurrency)
	output := make(chan Out, concurrency)

	group, gctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		defer close(input)
		generate(func(v In) bool {
			select {
			case input <- v:
				return true
			case <-gctx.Done():
				return false
			}
		})
		return nil
	})

	var (
		mu       sync.Mutex
		firstErr error
	)
	recordErr := func(err error) {
		mu.Lock()
		defer mu.Unlock()
		if firstErr == nil {
			firstErr = err
		}
	}

	var workers sync.WaitGroup
	workers.Add(concurrency)
	for i := 0; i < concurrency; i++ {
		go func() {
			defer workers.Done()
			for {
				select {
				case v, ok := <-input:
					if !ok {
						return
					}
					out, err := fn(gctx, v)
					if err != nil {
						recordErr(errors.WithStack(err))
						continue
					}
					select {
					case output <- out:
					case <-gctx.Done():
						return
					}
				case <-gctx.Done():
					return
				}
			}
		}()
	}

	go func() {
		workers.Wait()
		close(output)
	}()

	return output, func() error {
		if err := group.Wait(); err != nil {
			return err
		}
		mu.Lock()
		defer mu.Unlock()
		return firstErr
	}
}

// Slice turns a concrete slice into a generator for Run, for callers whose
// input is already materialized (e.g. the sorted list of changed offsets
// dispatched for transfer).
func Slice[T any](items []T) func(yield func(T) bool) {
	return func(yield func(T) bool) {
		for _, item := range items {
			if !yield(item) {
				return
			}
		}
	}
}

// Range is the offset-sequence generator used by the hash map builder:
// 0, step, 2*step, … up to (but excluding anything >=) limit.
func Range(limit, step int64) func(yield func(int64) bool) {
	return func(yield func(int64) bool) {
		for offset := int64(0); offset < limit; offset += step {
			if !yield(offset) {
				return
			}
		}
	}
}
