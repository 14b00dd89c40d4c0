// Package tx carries transactional scope through context.Context so stores
// can join the unit of work their caller opened.
package tx

import (
	"context"
	"database/sql"
	"sync"
)

// Runner opens a transactional boundary. Nested calls join the outer boundary.
type Runner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type ctxKey struct{}

var txKey = ctxKey{}

// WithTx stores a SQL transaction in context for downstream store usage.
func WithTx(ctx context.Context, tx *sql.Tx) context.Context {
	if tx == nil {
		return ctx
	}
	return context.WithValue(ctx, txKey, tx)
}

// From extracts a SQL transaction from context if present.
func From(ctx context.Context) (*sql.Tx, bool) {
	tx, ok := ctx.Value(txKey).(*sql.Tx)
	return tx, ok
}

type lockKeyCtx struct{}

// WithLockKey names the resource a transaction is about. The in-memory runner
// uses it to pick a shard; Postgres ignores it and relies on row versions.
func WithLockKey(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, lockKeyCtx{}, key)
}

func lockKey(ctx context.Context) string {
	key, _ := ctx.Value(lockKeyCtx{}).(string)
	return key
}

// journal collects the callbacks of one outermost unit of work. Nested
// RunInTx calls share their parent's journal.
type journal struct {
	mu          sync.Mutex
	undo        []func()
	afterCommit []func(context.Context)
}

type journalKey struct{}

func withJournal(ctx context.Context) (context.Context, *journal) {
	j := &journal{}
	return context.WithValue(ctx, journalKey{}, j), j
}

func journalFrom(ctx context.Context) *journal {
	j, _ := ctx.Value(journalKey{}).(*journal)
	return j
}

// OnRollback registers fn to reverse an in-memory write if the unit of work
// fails. Undo runs newest first, before the unit's lock is released. Outside
// a unit of work the write is already final and fn is dropped.
func OnRollback(ctx context.Context, fn func()) {
	j := journalFrom(ctx)
	if j == nil {
		return
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	j.undo = append(j.undo, fn)
}

// AfterCommit defers fn until the outermost unit of work commits. It is
// dropped if the unit fails. Outside a unit of work fn runs immediately.
func AfterCommit(ctx context.Context, fn func(ctx context.Context)) {
	j := journalFrom(ctx)
	if j == nil {
		fn(ctx)
		return
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	j.afterCommit = append(j.afterCommit, fn)
}

func (j *journal) rollback() {
	j.mu.Lock()
	undo := j.undo
	j.undo, j.afterCommit = nil, nil
	j.mu.Unlock()
	for i := len(undo) - 1; i >= 0; i-- {
		undo[i]()
	}
}

func (j *journal) commit(ctx context.Context) {
	j.mu.Lock()
	hooks := j.afterCommit
	j.undo, j.afterCommit = nil, nil
	j.mu.Unlock()
	for _, fn := range hooks {
		fn(ctx)
	}
}
