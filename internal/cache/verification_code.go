package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisVerificationCodeStore 基于 Redis 的签收验证码存储
// key: {prefix}:verification_code:{shipmentID}
type RedisVerificationCodeStore struct {
	store *Store
}

// NewRedisVerificationCodeStore 创建验证码存储
func NewRedisVerificationCodeStore(store *Store) *RedisVerificationCodeStore {
	return &RedisVerificationCodeStore{store: store}
}

func verificationCodeKey(shipmentID string) string {
	return fmt.Sprintf("verification_code:%s", shipmentID)
}

// Put 写入验证码并设置过期，覆盖旧值
func (s *RedisVerificationCodeStore) Put(ctx context.Context, shipmentID, code string, ttl time.Duration) error {
	client := s.store.Client()
	if client == nil {
		return errors.New("verification code store unavailable")
	}
	return client.Set(ctx, s.store.Key(verificationCodeKey(shipmentID)), code, ttl).Err()
}

// Get 读取验证码，不存在或已过期返回 ok=false
func (s *RedisVerificationCodeStore) Get(ctx context.Context, shipmentID string) (string, bool, error) {
	client := s.store.Client()
	if client == nil {
		return "", false, errors.New("verification code store unavailable")
	}
	code, err := client.Get(ctx, s.store.Key(verificationCodeKey(shipmentID))).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return code, true, nil
}

// MemoryVerificationCodeStore 单进程内存实现，仅用于未启用 Redis 的本地运行
type MemoryVerificationCodeStore struct {
	mu      sync.Mutex
	now     func() time.Time
	entries map[string]memoryCode
}

type memoryCode struct {
	code      string
	expiresAt time.Time
}

// NewMemoryVerificationCodeStore 创建内存验证码存储
func NewMemoryVerificationCodeStore() *MemoryVerificationCodeStore {
	return &MemoryVerificationCodeStore{now: time.Now, entries: map[string]memoryCode{}}
}

// Put 写入验证码
func (s *MemoryVerificationCodeStore) Put(_ context.Context, shipmentID, code string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[shipmentID] = memoryCode{code: code, expiresAt: s.now().Add(ttl)}
	return nil
}

// Get 读取验证码
func (s *MemoryVerificationCodeStore) Get(_ context.Context, shipmentID string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[shipmentID]
	if !ok {
		return "", false, nil
	}
	if !s.now().Before(entry.expiresAt) {
		delete(s.entries, shipmentID)
		return "", false, nil
	}
	return entry.code, true, nil
}
