package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

const defaultCartTTL = 24 * time.Hour

// Store persists carts between requests for the length of a shopping session.
type Store interface {
	Load(ctx context.Context, customerID uuid.UUID) (*Cart, error)
	Save(ctx context.Context, customerID uuid.UUID, c *Cart) error
	Delete(ctx context.Context, customerID uuid.UUID) error
}

type redisKV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	CartKey(customerID string) string
}

// RedisStore keeps each customer's cart as JSON under a sliding TTL.
type RedisStore struct {
	client redisKV
	ttl    time.Duration
}

func NewRedisStore(client redisKV, ttl time.Duration) (*RedisStore, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client required")
	}
	if ttl <= 0 {
		ttl = defaultCartTTL
	}
	return &RedisStore{client: client, ttl: ttl}, nil
}

// Load returns an empty cart when nothing is stored.
func (s *RedisStore) Load(ctx context.Context, customerID uuid.UUID) (*Cart, error) {
	raw, err := s.client.Get(ctx, s.client.CartKey(customerID.String()))
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return New(), nil
		}
		return nil, fmt.Errorf("load cart: %w", err)
	}
	var snapshot Snapshot
	if err := json.Unmarshal([]byte(raw), &snapshot); err != nil {
		return nil, fmt.Errorf("decode cart: %w", err)
	}
	return FromSnapshot(snapshot), nil
}

// Save writes the cart and refreshes its TTL. Empty carts are deleted instead.
func (s *RedisStore) Save(ctx context.Context, customerID uuid.UUID, c *Cart) error {
	if c == nil || c.IsEmpty() {
		return s.Delete(ctx, customerID)
	}
	payload, err := json.Marshal(c.Snapshot())
	if err != nil {
		return fmt.Errorf("encode cart: %w", err)
	}
	if err := s.client.Set(ctx, s.client.CartKey(customerID.String()), string(payload), s.ttl); err != nil {
		return fmt.Errorf("save cart: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, customerID uuid.UUID) error {
	if err := s.client.Del(ctx, s.client.CartKey(customerID.String())); err != nil {
		return fmt.Errorf("delete cart: %w", err)
	}
	return nil
}
