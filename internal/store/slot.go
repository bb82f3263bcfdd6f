package store

import (
	"context"
	"errors"
	"sync"

	"github.com/redis/go-redis/v9"
)

// Slot is a single persistent key holding the serialized task list
type Slot interface {
	// Get returns the stored bytes and whether the key exists
	Get(ctx context.Context) ([]byte, bool, error)
	// Put replaces the stored bytes
	Put(ctx context.Context, data []byte) error
}

// MemorySlot keeps the snapshot in process memory
type MemorySlot struct {
	mu   sync.Mutex
	data []byte
	set  bool
}

func (s *MemorySlot) Get(ctx context.Context) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.set {
		return nil, false, nil
	}
	return append([]byte(nil), s.data...), true, nil
}

func (s *MemorySlot) Put(ctx context.Context, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = append([]byte(nil), data...)
	s.set = true
	return nil
}

// RedisSlot stores the snapshot under one Redis key with no expiry
type RedisSlot struct {
	rdb *redis.Client
	key string
}

func NewRedisSlot(rdb *redis.Client, key string) *RedisSlot {
	return &RedisSlot{rdb: rdb, key: key}
}

func (s *RedisSlot) Get(ctx context.Context) ([]byte, bool, error) {
	val, err := s.rdb.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return val, true, nil
}

func (s *RedisSlot) Put(ctx context.Context, data []byte) error {
	return s.rdb.Set(ctx, s.key, data, 0).Err()
}
