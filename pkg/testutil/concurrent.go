package testutil

import (
	"errors"
	"sync"
	"sync/atomic"

	"barangay/internal/sentinel"
	dErrors "barangay/pkg/domain-errors"
)

// ConcurrentResult tracks outcomes of concurrent test operations.
type ConcurrentResult struct {
	Successes int32
	Errors    int32
	Conflicts int32
	NotFounds int32
}

// Total returns the total number of operations executed.
func (r *ConcurrentResult) Total() int32 {
	return r.Successes + r.Errors + r.Conflicts + r.NotFounds
}

// RunConcurrent executes fn in parallel goroutines and collects results.
// Store sentinels and their domain-error translations are counted alike:
// a lost compare-and-swap is a conflict, a missing row is a not-found.
func RunConcurrent(goroutines int, fn func(idx int) error) *ConcurrentResult {
	var wg sync.WaitGroup
	var successes, errs, conflicts, notFounds atomic.Int32

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			err := fn(idx)
			switch {
			case err == nil:
				successes.Add(1)
			case isConflict(err):
				conflicts.Add(1)
			case errors.Is(err, sentinel.ErrNotFound), dErrors.HasCode(err, dErrors.CodeNotFound):
				notFounds.Add(1)
			default:
				errs.Add(1)
			}
		}(i)
	}

	wg.Wait()

	return &ConcurrentResult{
		Successes: successes.Load(),
		Errors:    errs.Load(),
		Conflicts: conflicts.Load(),
		NotFounds: notFounds.Load(),
	}
}

func isConflict(err error) bool {
	return errors.Is(err, sentinel.ErrConflict) ||
		errors.Is(err, sentinel.ErrVersionMoved) ||
		dErrors.HasCode(err, dErrors.CodeConflict) ||
		dErrors.HasCode(err, dErrors.CodeConcurrentModification)
}
