package tx

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	dErrors "barangay/pkg/domain-errors"
	platformsync "barangay/pkg/platform/sync"
)

var (
	shardLockWaitDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "barangay_tx_shard_lock_wait_seconds",
		Help:    "Time spent waiting to acquire an in-memory transaction shard lock",
		Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
	})
	shardLockAcquisitions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "barangay_tx_shard_lock_acquisitions_total",
		Help: "Total number of in-memory transaction shard lock acquisitions",
	})
)

// DefaultTimeout bounds a transaction when the caller set no deadline.
const DefaultTimeout = 5 * time.Second

type inMemoryKey struct{}

// InMemory serializes units of work per lock key for the in-memory stores.
// Stores make their writes undoable with OnRollback; a failed unit reverses
// them before the shard is released.
type InMemory struct {
	mu      *platformsync.ShardedMutex
	timeout time.Duration
}

// NewInMemory returns a runner; timeout 0 selects DefaultTimeout.
func NewInMemory(timeout time.Duration) *InMemory {
	return &InMemory{mu: platformsync.NewShardedMutex(), timeout: timeout}
}

func (t *InMemory) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	// Nested call from inside a running unit of work: the shard is already held.
	if ctx.Value(inMemoryKey{}) == t {
		return fn(ctx)
	}

	timeout := t.timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	txCtx, j := withJournal(context.WithValue(ctx, inMemoryKey{}, t))
	if err := t.runLocked(txCtx, j, fn); err != nil {
		return err
	}
	j.commit(ctx)
	return nil
}

// runLocked holds the shard for fn and rolls back the journal if fn fails.
// Commit hooks run after the shard is released.
func (t *InMemory) runLocked(ctx context.Context, j *journal, fn func(ctx context.Context) error) error {
	key := lockKey(ctx)
	lockStart := time.Now()
	t.mu.Lock(key)
	shardLockWaitDuration.Observe(time.Since(lockStart).Seconds())
	shardLockAcquisitions.Inc()
	defer t.mu.Unlock(key)

	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	if err := fn(ctx); err != nil {
		j.rollback()
		return err
	}
	return nil
}
