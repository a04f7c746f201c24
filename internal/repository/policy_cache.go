package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/sla-engine/internal/domain"
)

const policyCacheKeyPrefix = "sla:policy:"

// CachedPolicyStore is a read-through redis cache in front of a PolicyStore.
// Cache failures degrade to direct reads; a miss for "no active policy" is
// not cached so newly activated policies take effect within one TTL.
type CachedPolicyStore struct {
	inner  PolicyStore
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachedPolicyStore wraps a policy store with a redis cache.
func NewCachedPolicyStore(inner PolicyStore, client *redis.Client, ttl time.Duration, logger *zap.Logger) *CachedPolicyStore {
	return &CachedPolicyStore{inner: inner, client: client, ttl: ttl, logger: logger}
}

// GetActivePolicy resolves the active policy for a priority, consulting the
// cache first.
func (c *CachedPolicyStore) GetActivePolicy(ctx context.Context, priority domain.TicketPriority) (*domain.SLAPolicy, error) {
	key := policyCacheKeyPrefix + string(priority)

	if c.client != nil {
		raw, err := c.client.Get(ctx, key).Bytes()
		if err == nil {
			var policy domain.SLAPolicy
			if err := json.Unmarshal(raw, &policy); err == nil {
				return &policy, nil
			}
			c.logger.Warn("corrupt policy cache entry", zap.String("key", key))
		} else if !errors.Is(err, redis.Nil) {
			c.logger.Warn("policy cache read failed", zap.Error(err))
		}
	}

	policy, err := c.inner.GetActivePolicy(ctx, priority)
	if err != nil {
		return nil, err
	}

	if c.client != nil {
		if raw, err := json.Marshal(policy); err == nil {
			if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
				c.logger.Warn("policy cache write failed", zap.Error(err))
			}
		}
	}
	return policy, nil
}

// GetByID delegates to the backing store; breach audit paths read by id
// rarely enough that caching does not pay.
func (c *CachedPolicyStore) GetByID(ctx context.Context, id string) (*domain.SLAPolicy, error) {
	return c.inner.GetByID(ctx, id)
}

// ListActive delegates to the backing store.
func (c *CachedPolicyStore) ListActive(ctx context.Context) ([]domain.SLAPolicy, error) {
	return c.inner.ListActive(ctx)
}

// Invalidate drops all cached priority entries, used after the admin surface
// edits policies.
func (c *CachedPolicyStore) Invalidate(ctx context.Context) error {
	if c.client == nil {
		return nil
	}
	for _, priority := range []domain.TicketPriority{
		domain.TicketPriorityLow,
		domain.TicketPriorityMedium,
		domain.TicketPriorityHigh,
		domain.TicketPriorityUrgent,
	} {
		if err := c.client.Del(ctx, policyCacheKeyPrefix+string(priority)).Err(); err != nil {
			return err
		}
	}
	return nil
}
