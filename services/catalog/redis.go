package catalogsvc

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/genzugar/backend/core"
)

const keyPrefix = "catalog:"

// redisCatalog caches the published lists in Redis and relays change events through a Redis channel,
// so that every API instance notifies its own websocket clients.
type redisCatalog struct {
	rdb     *redis.Client
	channel string
	ttl     time.Duration
	logger  core.Logger
	hub     *hub
}

var _ core.Catalog = (*redisCatalog)(nil)

// Connect opens and pings a Redis client.
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	if url == "" {
		return nil, errors.New("redis URL is empty")
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, errors.Wrap(err, "parsing redis URL")
	}
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, errors.Wrap(err, "pinging redis")
	}
	return rdb, nil
}

// NewRedisCatalog subscribes to channel and forwards its events to local subscribers until ctx is done.
func NewRedisCatalog(ctx context.Context, rdb *redis.Client, channel string, ttl time.Duration, logger core.Logger) (core.Catalog, error) {
	core.MustHaveDeps(core.NotNil(rdb, "rdb"), core.NotNil(logger, "logger"))

	c := &redisCatalog{rdb: rdb, channel: channel, ttl: ttl, logger: logger, hub: newHub()}
	if err := c.startForwarder(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *redisCatalog) startForwarder(ctx context.Context) error {
	sub := c.rdb.Subscribe(ctx, c.channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return errors.Wrap(err, "subscribing to catalog channel")
	}

	go func() {
		defer func() { _ = sub.Close() }()
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-ch:
				if !ok {
					return
				}
				var evt core.CatalogEvent
				if err := json.Unmarshal([]byte(m.Payload), &evt); err != nil {
					c.logger.Warn("bad catalog event payload", errors.Wrap(err, "decoding catalog event"))
					continue
				}
				c.hub.broadcast(evt)
			}
		}
	}()
	return nil
}

func key(kind core.CatalogKind) string { return keyPrefix + string(kind) }

// versionKey counts the changes of a kind. Load only caches what it fetched if the count did not move
// meanwhile, so a fetch racing with Changed cannot put back a stale list.
func versionKey(kind core.CatalogKind) string { return keyPrefix + "version:" + string(kind) }

// Load serves dest from Redis. On a miss it calls fetch and caches dest. Redis failures fall back to fetch.
func (c *redisCatalog) Load(ctx context.Context, kind core.CatalogKind, dest interface{}, fetch func() error) error {
	raw, err := c.rdb.Get(ctx, key(kind)).Bytes()
	switch {
	case err == nil:
		if err := json.Unmarshal(raw, dest); err == nil {
			return nil
		}
		c.logger.Warn("bad cached catalog", map[string]interface{}{"kind": kind})
	case err != redis.Nil:
		c.logger.Warn("reading catalog cache", errors.Wrap(err, "redis get"))
	}

	version, verr := c.version(ctx, c.rdb, kind)
	if err := fetch(); err != nil {
		return err
	}
	if verr != nil {
		c.logger.Warn("reading catalog version", errors.Wrap(verr, "redis get"))
		return nil
	}

	raw, err = json.Marshal(dest)
	if err != nil {
		return errors.Wrap(err, "encoding catalog")
	}
	err = c.rdb.Watch(ctx, func(tx *redis.Tx) error {
		current, err := c.version(ctx, tx, kind)
		if err != nil {
			return err
		}
		if current != version {
			return errStaleFetch
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key(kind), raw, c.ttl)
			return nil
		})
		return err
	}, versionKey(kind))
	switch {
	case err == nil:
	case err == errStaleFetch || err == redis.TxFailedErr:
		c.logger.Info("catalog changed while loading, not cached", map[string]interface{}{"kind": kind})
	default:
		c.logger.Warn("writing catalog cache", errors.Wrap(err, "redis set"))
	}
	return nil
}

var errStaleFetch = errors.New("catalog changed during fetch")

// getter is satisfied by both *redis.Client and *redis.Tx.
type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func (c *redisCatalog) version(ctx context.Context, r getter, kind core.CatalogKind) (int64, error) {
	v, err := r.Get(ctx, versionKey(kind)).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	return v, err
}

// Changed bumps the kind's version before dropping its cache, then publishes evt.
func (c *redisCatalog) Changed(ctx context.Context, evt core.CatalogEvent) {
	_, err := c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, versionKey(evt.Kind))
		pipe.Del(ctx, key(evt.Kind))
		return nil
	})
	if err != nil {
		c.logger.Error("invalidating catalog cache", errors.Wrap(err, "redis incr+del"), map[string]interface{}{"kind": evt.Kind})
	}

	raw, err := json.Marshal(evt)
	if err != nil {
		c.logger.Error("encoding catalog event", errors.Wrap(err, "encoding catalog event"))
		return
	}
	if err := c.rdb.Publish(ctx, c.channel, raw).Err(); err != nil {
		c.logger.Error("publishing catalog event", errors.Wrap(err, "redis publish"))
	}
}

func (c *redisCatalog) Subscribe(ctx context.Context) (<-chan core.CatalogEvent, error) {
	return c.hub.subscribe(ctx), nil
}
