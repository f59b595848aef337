package cache

import (
	"context"
	"fmt"
	"time"
)

// TokenBlacklist 已注销令牌黑名单，按 jti 记录到令牌过期
type TokenBlacklist struct {
	store *Store
}

// NewTokenBlacklist 创建黑名单
func NewTokenBlacklist(store *Store) *TokenBlacklist {
	return &TokenBlacklist{store: store}
}

func blacklistKey(tokenID string) string {
	return fmt.Sprintf("token_blacklist:%s", tokenID)
}

// Revoke 加入黑名单；ttl<=0 时不记录（令牌已过期）
func (b *TokenBlacklist) Revoke(ctx context.Context, tokenID string, ttl time.Duration) error {
	client := b.store.Client()
	if client == nil || tokenID == "" || ttl <= 0 {
		return nil
	}
	return client.Set(ctx, b.store.Key(blacklistKey(tokenID)), "1", ttl).Err()
}

// IsRevoked 判断是否已注销
func (b *TokenBlacklist) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	client := b.store.Client()
	if client == nil || tokenID == "" {
		return false, nil
	}
	n, err := client.Exists(ctx, b.store.Key(blacklistKey(tokenID))).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
