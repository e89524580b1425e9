package cache

import (
	"context"
	"time"

	"github.com/eapache/go-resiliency/breaker"
	"go.uber.org/zap"
)

// BreakerCache はサーキットブレーカ経由でキャッシュへアクセスする。
// Redis が不調の間は読み取りを未ヒット扱い、書き込みを読み飛ばして本体処理を守る。
type BreakerCache struct {
	next    Cache
	breaker *breaker.Breaker
	logger  *zap.Logger
}

func NewBreakerCache(next Cache, b *breaker.Breaker, logger *zap.Logger) *BreakerCache {
	return &BreakerCache{
		next:    next,
		breaker: b,
		logger:  logger,
	}
}

func (c *BreakerCache) Get(ctx context.Context, key string) ([]byte, error) {
	var (
		val  []byte
		miss bool
	)
	err := c.breaker.Run(func() error {
		v, err := c.next.Get(ctx, key)
		if err == ErrCacheMiss {
			//未ヒットは障害に数えない
			miss = true
			return nil
		}
		if err != nil {
			return err
		}
		val = v
		return nil
	})
	if err == breaker.ErrBreakerOpen {
		c.logger.Debug("cache breaker open, treating get as miss", zap.String("key", key))
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, err
	}
	if miss {
		return nil, ErrCacheMiss
	}
	return val, nil
}

func (c *BreakerCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	err := c.breaker.Run(func() error {
		return c.next.Set(ctx, key, value, ttl)
	})
	if err == breaker.ErrBreakerOpen {
		c.logger.Debug("cache breaker open, skipping set", zap.String("key", key))
		return nil
	}
	return err
}

func (c *BreakerCache) Delete(ctx context.Context, key string) error {
	err := c.breaker.Run(func() error {
		return c.next.Delete(ctx, key)
	})
	if err == breaker.ErrBreakerOpen {
		c.logger.Debug("cache breaker open, skipping delete", zap.String("key", key))
		return nil
	}
	return err
}

func (c *BreakerCache) DeleteByPattern(ctx context.Context, pattern string) error {
	err := c.breaker.Run(func() error {
		return c.next.DeleteByPattern(ctx, pattern)
	})
	if err == breaker.ErrBreakerOpen {
		c.logger.Debug("cache breaker open, skipping delete by pattern", zap.String("pattern", pattern))
		return nil
	}
	return err
}
