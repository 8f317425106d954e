// Package cache provides redis-backed caching, including the affiliate
// profile cache that must be invalidated after every ledger mutation.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/affilink/affiliate-backend/internal/common/config"
)

var rdb *redis.Client

// Init opens the redis connection.
func Init(cfg *config.RedisConfig) (*redis.Client, error) {
	rdb = redis.NewClient(&redis.Options{
		Addr:         cfg.Addr(),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  time.Duration(cfg.DialTimeout) * time.Second,
		ReadTimeout:  time.Duration(cfg.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeout) * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := rdb.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect redis: %w", err)
	}

	return rdb, nil
}

// GetClient returns the global client.
func GetClient() *redis.Client {
	return rdb
}

// Close closes the connection.
func Close() error {
	if rdb != nil {
		return rdb.Close()
	}
	return nil
}

// Set stores a JSON-encoded value.
func Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}
	return rdb.Set(ctx, key, data, expiration).Err()
}

// Get loads a JSON-encoded value into dest.
func Get(ctx context.Context, key string, dest interface{}) error {
	data, err := rdb.Get(ctx, key).Bytes()
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dest)
}

// Delete removes keys.
func Delete(ctx context.Context, keys ...string) error {
	return rdb.Del(ctx, keys...).Err()
}

// AffiliateKeyer builds cache keys for affiliate data.
type AffiliateKeyer struct{}

// Key returns the profile cache key for an affiliate.
func (AffiliateKeyer) Key(affiliateID int64) string {
	return fmt.Sprintf("affiliate:profile:%d", affiliateID)
}

// Invalidator drops cached affiliate data after a ledger mutation. It is the
// invalidation hook consumed by the withdrawal and customer services; a nil
// client makes every call a no-op (tests without redis).
type Invalidator struct {
	client *redis.Client
	keyer  AffiliateKeyer
}

// NewInvalidator creates an Invalidator.
func NewInvalidator(client *redis.Client) *Invalidator {
	return &Invalidator{client: client}
}

// InvalidateAffiliate removes the affiliate's cached profile. Errors are
// returned for the caller to log; stale data is the only consequence.
func (i *Invalidator) InvalidateAffiliate(ctx context.Context, affiliateID int64) error {
	if i == nil || i.client == nil {
		return nil
	}
	return i.client.Del(ctx, i.keyer.Key(affiliateID)).Err()
}
