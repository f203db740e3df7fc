package rbac

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

const cacheVersionKey = "rbac:roles:version"

// CachedLookup fronts a RoleLookup with a short-lived Redis cache. Cache
// failures fall through to the wrapped lookup; lookup failures are returned
// unchanged so decisions stay fail-closed. Concurrent misses for one user
// share a single lookup.
type CachedLookup struct {
	next   RoleLookup
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
	group  singleflight.Group
}

// NewCachedLookup wraps next. A nil client or non-positive ttl disables caching.
func NewCachedLookup(next RoleLookup, client *redis.Client, ttl time.Duration, logger *slog.Logger) *CachedLookup {
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedLookup{next: next, client: client, ttl: ttl, logger: logger}
}

func (c *CachedLookup) enabled() bool {
	return c != nil && c.client != nil && c.ttl > 0
}

// GetUserRoles returns the user's roles from cache or the wrapped lookup.
// Entries are keyed by the global and per-user versions read before the
// lookup, so a lookup racing an invalidation can only populate a retired key.
func (c *CachedLookup) GetUserRoles(ctx context.Context, userID uuid.UUID) ([]string, error) {
	if !c.enabled() {
		return c.next.GetUserRoles(ctx, userID)
	}
	key, err := c.key(ctx, userID)
	if err != nil {
		c.logger.Warn("role cache version", slog.Any("error", err))
		return c.next.GetUserRoles(ctx, userID)
	}
	if payload, err := c.client.Get(ctx, key).Bytes(); err == nil {
		var roles []string
		if err := json.Unmarshal(payload, &roles); err == nil {
			return roles, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		c.logger.Warn("role cache read", slog.Any("error", err))
	}

	detached := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (_ any, err error) {
		defer func() {
			if p := recover(); p != nil {
				err = fmt.Errorf("rbac: role lookup panic: %v", p)
			}
		}()
		roles, err := c.next.GetUserRoles(detached, userID)
		if err != nil {
			return nil, err
		}
		if raw, err := json.Marshal(roles); err == nil {
			if err := c.client.Set(detached, key, raw, c.ttl).Err(); err != nil {
				c.logger.Warn("role cache write", slog.Any("error", err))
			}
		}
		return roles, nil
	})
	var res singleflight.Result
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res = <-ch:
	}
	if res.Err != nil {
		return nil, res.Err
	}
	roles := res.Val.([]string)
	out := make([]string, len(roles))
	copy(out, roles)
	return out, nil
}

// Invalidate retires the cached roles of one user by bumping its version.
func (c *CachedLookup) Invalidate(ctx context.Context, userID uuid.UUID) error {
	if !c.enabled() {
		return nil
	}
	return c.client.Incr(ctx, userVersionKey(userID)).Err()
}

// InvalidateAll retires every cached entry by bumping the cache version.
func (c *CachedLookup) InvalidateAll(ctx context.Context) error {
	if !c.enabled() {
		return nil
	}
	return c.client.Incr(ctx, cacheVersionKey).Err()
}

func (c *CachedLookup) key(ctx context.Context, userID uuid.UUID) (string, error) {
	vals, err := c.client.MGet(ctx, cacheVersionKey, userVersionKey(userID)).Result()
	if err != nil {
		return "", err
	}
	versions := make([]int64, len(vals))
	for i, v := range vals {
		if v == nil {
			continue
		}
		raw, ok := v.(string)
		if !ok {
			return "", fmt.Errorf("rbac: unexpected cache version %T", v)
		}
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return "", fmt.Errorf("rbac: parse cache version: %w", err)
		}
		versions[i] = n
	}
	return fmt.Sprintf("rbac:roles:%d:%d:%s", versions[0], versions[1], userID), nil
}

func userVersionKey(userID uuid.UUID) string {
	return "rbac:roles:user:" + userID.String() + ":ver"
}

var _ RoleLookup = (*CachedLookup)(nil)
