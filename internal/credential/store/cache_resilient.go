package store

import (
	"context"
	"errors"
	"log/slog"

	"barangay/internal/credential/models"
	id "barangay/pkg/domain"
	"barangay/pkg/platform/circuit"
)

// ActiveCache is the snapshot cache the resilient wrapper guards.
type ActiveCache interface {
	Get(ctx context.Context, residentID id.ResidentID) (*models.ActiveSnapshot, error)
	Set(ctx context.Context, snapshot *models.ActiveSnapshot) error
	Invalidate(ctx context.Context, residentID id.ResidentID) error
}

// ResilientActiveCache stops calling a failing cache once its breaker opens.
// While open, reads are misses and writes are dropped; readers fall back to
// the store, and dropped snapshots expire with the cache TTL.
type ResilientActiveCache struct {
	inner   ActiveCache
	breaker *circuit.Breaker
	logger  *slog.Logger
}

func NewResilientActiveCache(inner ActiveCache, breaker *circuit.Breaker, logger *slog.Logger) *ResilientActiveCache {
	if breaker == nil {
		breaker = circuit.New("active_credential_cache")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ResilientActiveCache{inner: inner, breaker: breaker, logger: logger}
}

// ErrCircuitOpen is returned by writes skipped while the breaker is open.
var ErrCircuitOpen = errors.New("active credential cache circuit open")

func (c *ResilientActiveCache) Get(ctx context.Context, residentID id.ResidentID) (*models.ActiveSnapshot, error) {
	if !c.breaker.Allow() {
		return nil, ErrNotFound
	}
	snapshot, err := c.inner.Get(ctx, residentID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		c.failure(ctx, err)
		return nil, err
	}
	c.success(ctx)
	return snapshot, err
}

func (c *ResilientActiveCache) Set(ctx context.Context, snapshot *models.ActiveSnapshot) error {
	return c.write(ctx, func(ctx context.Context) error {
		return c.inner.Set(ctx, snapshot)
	})
}

func (c *ResilientActiveCache) Invalidate(ctx context.Context, residentID id.ResidentID) error {
	return c.write(ctx, func(ctx context.Context) error {
		return c.inner.Invalidate(ctx, residentID)
	})
}

func (c *ResilientActiveCache) write(ctx context.Context, fn func(context.Context) error) error {
	if !c.breaker.Allow() {
		return ErrCircuitOpen
	}
	if err := fn(ctx); err != nil {
		c.failure(ctx, err)
		return err
	}
	c.success(ctx)
	return nil
}

func (c *ResilientActiveCache) failure(ctx context.Context, err error) {
	if change := c.breaker.RecordFailure(); change.Opened {
		c.logger.ErrorContext(ctx, "circuit breaker opened",
			"circuit", c.breaker.Name(),
			"error", err,
		)
	}
}

func (c *ResilientActiveCache) success(ctx context.Context) {
	if change := c.breaker.RecordSuccess(); change.Closed {
		c.logger.InfoContext(ctx, "circuit breaker closed",
			"circuit", c.breaker.Name(),
		)
	}
}
