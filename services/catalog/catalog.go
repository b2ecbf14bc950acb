package catalogsvc

import (
	"context"

	"github.com/genzugar/backend/core"
)

// New returns the Redis catalog when conf has a Redis URL, the in-memory one otherwise.
// The returned func releases the Redis connection.
func New(ctx context.Context, conf *core.Config, logger core.Logger) (core.Catalog, func() error, error) {
	if conf.Redis.URL == "" {
		logger.Info("redis not configured: catalog cache disabled")
		return NewMemoryCatalog(), func() error { return nil }, nil
	}

	rdb, err := Connect(ctx, conf.Redis.URL)
	if err != nil {
		return nil, nil, err
	}
	c, err := NewRedisCatalog(ctx, rdb, conf.Redis.Channel, conf.Redis.CacheTTL, logger)
	if err != nil {
		_ = rdb.Close()
		return nil, nil, err
	}
	return c, rdb.Close, nil
}
