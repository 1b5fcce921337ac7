package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Skotchmaster/edu_shop/internal/models"
)

const cartKeyPrefix = "cart:"

// CartStore keeps cart sessions between requests. Loading a cart that was
// never saved yields an empty cart.
type CartStore interface {
	LoadCart(ctx context.Context, userID uint) (*models.CartState, error)
	SaveCart(ctx context.Context, userID uint, state *models.CartState) error
	DeleteCart(ctx context.Context, userID uint) error
}

type MemoryCartStore struct {
	mu    sync.RWMutex
	carts map[uint][]byte
}

func NewMemoryCartStore() *MemoryCartStore {
	return &MemoryCartStore{carts: make(map[uint][]byte)}
}

func (s *MemoryCartStore) LoadCart(_ context.Context, userID uint) (*models.CartState, error) {
	s.mu.RLock()
	raw, ok := s.carts[userID]
	s.mu.RUnlock()

	if !ok {
		return &models.CartState{}, nil
	}
	return decodeCart(raw)
}

func (s *MemoryCartStore) SaveCart(_ context.Context, userID uint, state *models.CartState) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode cart: %w", err)
	}

	s.mu.Lock()
	s.carts[userID] = raw
	s.mu.Unlock()
	return nil
}

func (s *MemoryCartStore) DeleteCart(_ context.Context, userID uint) error {
	s.mu.Lock()
	delete(s.carts, userID)
	s.mu.Unlock()
	return nil
}

// RedisCartStore keeps carts as JSON strings that expire after ttl of inactivity.
type RedisCartStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCartStore(client *redis.Client, ttl time.Duration) *RedisCartStore {
	return &RedisCartStore{client: client, ttl: ttl}
}

func (s *RedisCartStore) LoadCart(ctx context.Context, userID uint) (*models.CartState, error) {
	raw, err := s.client.Get(ctx, cartKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return &models.CartState{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}
	return decodeCart(raw)
}

func (s *RedisCartStore) SaveCart(ctx context.Context, userID uint, state *models.CartState) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode cart: %w", err)
	}
	if err := s.client.Set(ctx, cartKey(userID), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("save cart: %w", err)
	}
	return nil
}

func (s *RedisCartStore) DeleteCart(ctx context.Context, userID uint) error {
	if err := s.client.Del(ctx, cartKey(userID)).Err(); err != nil {
		return fmt.Errorf("delete cart: %w", err)
	}
	return nil
}

func cartKey(userID uint) string {
	return fmt.Sprintf("%s%d", cartKeyPrefix, userID)
}

func decodeCart(raw []byte) (*models.CartState, error) {
	var st models.CartState
	if err := json.Unmarshal(raw, &st); err != nil {
		return nil, fmt.Errorf("decode cart: %w", err)
	}
	return &st, nil
}
