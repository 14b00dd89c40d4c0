package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"barangay/internal/credential/models"
	id "barangay/pkg/domain"
)

const (
	redisActiveKeyPrefix = "credential:active:"

	// DefaultActiveCacheTTL bounds how long a snapshot may outlive a missed invalidation.
	DefaultActiveCacheTTL = 5 * time.Minute
)

// RedisActiveCache maps a resident to a snapshot of their active credential.
// Snapshot fields never change once issued, so only supersession can stale an
// entry; writers invalidate after committing one.
type RedisActiveCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisActiveCache constructs the cache; ttl 0 selects DefaultActiveCacheTTL.
func NewRedisActiveCache(client *redis.Client, ttl time.Duration) *RedisActiveCache {
	if ttl <= 0 {
		ttl = DefaultActiveCacheTTL
	}
	return &RedisActiveCache{client: client, ttl: ttl}
}

type snapshotEntry struct {
	CredentialID string    `json:"credential_id"`
	ResidentID   string    `json:"resident_id"`
	IssuedAt     time.Time `json:"issued_at"`
	ExpiresAt    time.Time `json:"expires_at"`
	Checksum     string    `json:"checksum"`
	Version      int       `json:"version"`
}

// Get returns the cached snapshot.
//
// Errors: ErrNotFound on cache miss; wraps Redis and decode errors.
func (c *RedisActiveCache) Get(ctx context.Context, residentID id.ResidentID) (*models.ActiveSnapshot, error) {
	value, err := c.client.Get(ctx, activeKey(residentID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get active credential cache: %w", err)
	}

	var entry snapshotEntry
	if err := json.Unmarshal(value, &entry); err != nil {
		return nil, fmt.Errorf("decode active credential cache: %w", err)
	}
	owner, err := id.ParseResidentID(entry.ResidentID)
	if err != nil {
		return nil, fmt.Errorf("decode active credential cache: %w", err)
	}
	return &models.ActiveSnapshot{
		CredentialID: id.CredentialID(entry.CredentialID),
		ResidentID:   owner,
		IssuedAt:     entry.IssuedAt,
		ExpiresAt:    entry.ExpiresAt,
		Checksum:     entry.Checksum,
		Version:      entry.Version,
	}, nil
}

func (c *RedisActiveCache) Set(ctx context.Context, snapshot *models.ActiveSnapshot) error {
	value, err := json.Marshal(snapshotEntry{
		CredentialID: snapshot.CredentialID.String(),
		ResidentID:   snapshot.ResidentID.String(),
		IssuedAt:     snapshot.IssuedAt,
		ExpiresAt:    snapshot.ExpiresAt,
		Checksum:     snapshot.Checksum,
		Version:      snapshot.Version,
	})
	if err != nil {
		return fmt.Errorf("encode active credential cache: %w", err)
	}
	if err := c.client.Set(ctx, activeKey(snapshot.ResidentID), value, c.ttl).Err(); err != nil {
		return fmt.Errorf("set active credential cache: %w", err)
	}
	return nil
}

// Invalidate drops the snapshot; a missing key is not an error.
func (c *RedisActiveCache) Invalidate(ctx context.Context, residentID id.ResidentID) error {
	if err := c.client.Del(ctx, activeKey(residentID)).Err(); err != nil {
		return fmt.Errorf("invalidate active credential cache: %w", err)
	}
	return nil
}

func activeKey(residentID id.ResidentID) string {
	return redisActiveKeyPrefix + residentID.String()
}
