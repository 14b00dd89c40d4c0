package service

import (
	"context"
	"time"

	dErrors "barangay/pkg/domain-errors"
)

// DefaultRetryBackoff is the first wait of RetryOnConflict; each further
// attempt doubles it.
const DefaultRetryBackoff = 100 * time.Millisecond

// WithRetryBackoff sets the base wait used by RetryOnConflict.
func WithRetryBackoff(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.retryBackoff = d
		}
	}
}

// RetryOnConflict runs fn up to attempts times while it fails with
// concurrent_modification, waiting 2^n * base between tries. fn must re-read
// the resident on every call; retrying a command that carries a stale
// ExpectedVersion only repeats the conflict. Any other error is returned at
// once.
func (s *Service) RetryOnConflict(ctx context.Context, attempts int, fn func(ctx context.Context) error) error {
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for attempt := range attempts {
		err = fn(ctx)
		if err == nil || !dErrors.HasCode(err, dErrors.CodeConcurrentModification) {
			return err
		}
		if attempt == attempts-1 {
			break
		}

		backoff := time.Duration(1<<attempt) * s.retryBackoff
		s.logger.InfoContext(ctx, "concurrent modification, retrying",
			"attempt", attempt+1,
			"backoff", backoff,
		)
		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return dErrors.Wrap(ctx.Err(), dErrors.CodeTimeout, "retry aborted")
		case <-timer.C:
		}
	}
	s.logger.WarnContext(ctx, "max retries reached on concurrent modification", "attempts", attempts)
	return err
}
