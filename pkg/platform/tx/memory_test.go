package tx

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "barangay/pkg/domain-errors"
)

func TestInMemorySerializesSameKey(t *testing.T) {
	runner := NewInMemory(0)
	ctx := WithLockKey(context.Background(), "resident-1")

	var inside, maxInside int32
	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = runner.RunInTx(ctx, func(context.Context) error {
				n := atomic.AddInt32(&inside, 1)
				for {
					cur := atomic.LoadInt32(&maxInside)
					if n <= cur || atomic.CompareAndSwapInt32(&maxInside, cur, n) {
						break
					}
				}
				time.Sleep(time.Millisecond)
				atomic.AddInt32(&inside, -1)
				return nil
			})
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), maxInside)
}

func TestInMemoryNestedCallsJoin(t *testing.T) {
	runner := NewInMemory(time.Second)
	ctx := WithLockKey(context.Background(), "resident-1")

	calls := 0
	err := runner.RunInTx(ctx, func(ctx context.Context) error {
		calls++
		return runner.RunInTx(ctx, func(context.Context) error {
			calls++
			return nil
		})
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestInMemoryPropagatesErrors(t *testing.T) {
	boom := errors.New("boom")
	err := NewInMemory(0).RunInTx(context.Background(), func(context.Context) error { return boom })
	assert.ErrorIs(t, err, boom)
}

func TestInMemoryRejectsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := NewInMemory(0).RunInTx(ctx, func(context.Context) error {
		called = true
		return nil
	})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeTimeout))
	assert.False(t, called)
}

func TestFromWithoutTx(t *testing.T) {
	_, ok := From(context.Background())
	assert.False(t, ok)
	assert.Equal(t, context.Background(), WithTx(context.Background(), nil))
}

func TestInMemoryJournal(t *testing.T) {
	t.Run("failed unit undoes writes newest first", func(t *testing.T) {
		runner := NewInMemory(0)
		var undone []string
		boom := errors.New("boom")

		err := runner.RunInTx(context.Background(), func(ctx context.Context) error {
			OnRollback(ctx, func() { undone = append(undone, "status") })
			return runner.RunInTx(ctx, func(ctx context.Context) error {
				OnRollback(ctx, func() { undone = append(undone, "audit") })
				return boom
			})
		})

		require.ErrorIs(t, err, boom)
		assert.Equal(t, []string{"audit", "status"}, undone)
	})

	t.Run("commit hooks wait for the outermost unit", func(t *testing.T) {
		runner := NewInMemory(0)
		var events []string

		err := runner.RunInTx(context.Background(), func(ctx context.Context) error {
			OnRollback(ctx, func() { events = append(events, "undo") })
			err := runner.RunInTx(ctx, func(ctx context.Context) error {
				AfterCommit(ctx, func(context.Context) { events = append(events, "invalidate") })
				return nil
			})
			events = append(events, "inner returned")
			return err
		})

		require.NoError(t, err)
		assert.Equal(t, []string{"inner returned", "invalidate"}, events)
	})

	t.Run("failed unit drops commit hooks", func(t *testing.T) {
		runner := NewInMemory(0)
		called := false
		_ = runner.RunInTx(context.Background(), func(ctx context.Context) error {
			AfterCommit(ctx, func(context.Context) { called = true })
			return errors.New("boom")
		})
		assert.False(t, called)
	})

	t.Run("commit hooks run after the shard is released", func(t *testing.T) {
		runner := NewInMemory(time.Second)
		ctx := WithLockKey(context.Background(), "resident-1")

		err := runner.RunInTx(ctx, func(ctx context.Context) error {
			AfterCommit(ctx, func(context.Context) {
				// Same key, fresh unit: deadlocks if the shard were still held.
				require.NoError(t, runner.RunInTx(WithLockKey(context.Background(), "resident-1"),
					func(context.Context) error { return nil }))
			})
			return nil
		})
		require.NoError(t, err)
	})

	t.Run("outside a unit hooks run at once and undo is dropped", func(t *testing.T) {
		ctx := context.Background()
		called := false
		AfterCommit(ctx, func(context.Context) { called = true })
		OnRollback(ctx, func() { t.Fatal("undo outside a unit of work") })
		assert.True(t, called)
	})
}
