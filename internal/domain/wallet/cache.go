package wallet

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	cacheKeyPrefix = "wallet:"
	cacheTTL       = 2 * time.Minute
)

// BalanceCache is a read-through Redis cache for wallet snapshots. It is
// strictly an optimization: the cache is nil-safe and every miss or Redis
// error falls back to Postgres. Mutating flows invalidate the key inside the
// same call that commits, so a stale read window is bounded by the TTL only
// when invalidation itself fails.
type BalanceCache struct {
	client *redis.Client
}

// NewBalanceCache creates a cache backed by the given Redis client.
// A nil client disables caching entirely.
func NewBalanceCache(client *redis.Client) *BalanceCache {
	return &BalanceCache{client: client}
}

// Get returns the cached wallet for a user, or nil on miss.
func (c *BalanceCache) Get(ctx context.Context, userID uuid.UUID) *Wallet {
	if c == nil || c.client == nil {
		return nil
	}

	data, err := c.client.Get(ctx, cacheKey(userID)).Bytes()
	if err != nil {
		if err != redis.Nil {
			log.Warn().Err(err).Str("user_id", userID.String()).Msg("wallet cache read failed")
		}
		return nil
	}

	var w Wallet
	if err := json.Unmarshal(data, &w); err != nil {
		log.Warn().Err(err).Str("user_id", userID.String()).Msg("wallet cache entry corrupt, dropping")
		c.Invalidate(ctx, userID)
		return nil
	}
	return &w
}

// Set stores a wallet snapshot.
func (c *BalanceCache) Set(ctx context.Context, w *Wallet) {
	if c == nil || c.client == nil || w == nil {
		return
	}

	data, err := json.Marshal(w)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, cacheKey(w.UserID), data, cacheTTL).Err(); err != nil {
		log.Warn().Err(err).Str("user_id", w.UserID.String()).Msg("wallet cache write failed")
	}
}

// Invalidate drops the cached snapshot for a user.
func (c *BalanceCache) Invalidate(ctx context.Context, userID uuid.UUID) {
	if c == nil || c.client == nil {
		return
	}
	if err := c.client.Del(ctx, cacheKey(userID)).Err(); err != nil {
		log.Warn().Err(err).Str("user_id", userID.String()).Msg("wallet cache invalidation failed")
	}
}

func cacheKey(userID uuid.UUID) string {
	return cacheKeyPrefix + userID.String()
}
