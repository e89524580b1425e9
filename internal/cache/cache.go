package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrCacheMiss はキーが存在しない、または期限切れの場合に返す。
var ErrCacheMiss = errors.New("cache miss")

// Cache は在庫照会・集計結果の短期キャッシュ。
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	// DeleteByPattern はパターンに一致するキーをまとめて破棄する（在庫変動時の無効化用）。
	DeleteByPattern(ctx context.Context, pattern string) error
}

// GetJSON はキャッシュ値を dest へデコードする。未ヒットは ErrCacheMiss。
func GetJSON(ctx context.Context, c Cache, key string, dest interface{}) error {
	data, err := c.Get(ctx, key)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dest)
}

// SetJSON は value を JSON 化して保存する。
func SetJSON(ctx context.Context, c Cache, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cache value: %w", err)
	}
	return c.Set(ctx, key, data, ttl)
}
