package cart

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	pkgerrors "github.com/angelmondragon/dishdash-backend/pkg/errors"
)

const defaultLockTTL = 5 * time.Second

// Locker serializes mutations of a single customer's cart.
type Locker interface {
	Lock(ctx context.Context, customerID uuid.UUID) (unlock func(), err error)
}

type redisLockStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, key, owner string) (bool, error)
	LockKey(scope, id string) string
}

// RedisLocker takes a short SETNX lock per customer. It never waits: a
// held lock fails fast with a conflict.
type RedisLocker struct {
	client redisLockStore
	ttl    time.Duration
}

func NewRedisLocker(client redisLockStore, ttl time.Duration) (*RedisLocker, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client required")
	}
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &RedisLocker{client: client, ttl: ttl}, nil
}

func (l *RedisLocker) Lock(ctx context.Context, customerID uuid.UUID) (func(), error) {
	key := l.client.LockKey("cart", customerID.String())
	owner := uuid.NewString()
	ok, err := l.client.SetNX(ctx, key, owner, l.ttl)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "acquire cart lock")
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "cart is being modified")
	}
	return func() {
		// release with a fresh context so a cancelled request still unlocks
		releaseCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_, _ = l.client.ReleaseLock(releaseCtx, key, owner)
	}, nil
}
