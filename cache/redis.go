package cache

import (
	"context"
	"reflect"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ceyewan/surge/cache/serializer"
	"github.com/ceyewan/surge/clog"
	"github.com/ceyewan/surge/connector"
	"github.com/ceyewan/surge/dlock"
	"github.com/ceyewan/surge/metrics"
	"github.com/ceyewan/surge/xerrors"
)

// nullMarker 空值标记，表示"源中确认不存在"
const nullMarker = ""

// envelope 逻辑过期封套，物理上永不过期
type envelope struct {
	Data     []byte    `json:"data" msgpack:"data"`
	ExpireAt time.Time `json:"expire_at" msgpack:"expire_at"`
}

type redisCache struct {
	client    *redis.Client
	cfg       *Config
	ser       serializer.Serializer
	logger    clog.Logger
	locker    dlock.Locker
	ownLocker bool
	pool      *rebuildPool
	closed    atomic.Bool

	hits     metrics.Counter
	misses   metrics.Counter
	rebuilds metrics.Counter
}

func newRedisCache(conn connector.RedisConnector, cfg *Config, opts *options, ownLocker bool) (*redisCache, error) {
	client := conn.GetClient()
	if client == nil {
		return nil, xerrors.Wrap(connector.ErrNotConnected, "cache: Redis 连接器未连接")
	}
	ser, err := serializer.New(cfg.Serializer)
	if err != nil {
		return nil, err
	}
	return &redisCache{
		client:    client,
		cfg:       cfg,
		ser:       ser,
		logger:    opts.logger,
		locker:    opts.locker,
		ownLocker: ownLocker,
		pool:      newRebuildPool(cfg.RebuildWorkers, cfg.RebuildQueueSize),
		hits:      metrics.MustCounter(opts.meter, "cache_hit_total", "缓存命中次数"),
		misses:    metrics.MustCounter(opts.meter, "cache_miss_total", "缓存未命中次数"),
		rebuilds:  metrics.MustCounter(opts.meter, "cache_rebuild_total", "缓存异步重建次数"),
	}, nil
}

func (c *redisCache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if isNil(value) {
		return ErrNilValue
	}
	data, err := c.ser.Marshal(value)
	if err != nil {
		return xerrors.Wrapf(err, "cache: 序列化 %s 失败", key)
	}
	if err := c.client.Set(ctx, c.cfg.Prefix+key, data, ttl).Err(); err != nil {
		return xerrors.Wrapf(err, "cache: 写入 %s 失败", key)
	}
	return nil
}

func (c *redisCache) SetWithLogicalExpire(ctx context.Context, key string, value any, ttl time.Duration) error {
	if isNil(value) {
		return ErrNilValue
	}
	data, err := c.ser.Marshal(value)
	if err != nil {
		return xerrors.Wrapf(err, "cache: 序列化 %s 失败", key)
	}
	env, err := c.ser.Marshal(&envelope{
		Data:     data,
		ExpireAt: time.Now().Add(ttl),
	})
	if err != nil {
		return xerrors.Wrapf(err, "cache: 序列化封套 %s 失败", key)
	}
	// 逻辑过期数据不设物理 TTL
	if err := c.client.Set(ctx, c.cfg.Prefix+key, env, 0).Err(); err != nil {
		return xerrors.Wrapf(err, "cache: 写入 %s 失败", key)
	}
	return nil
}

func (c *redisCache) GetOrLoad(ctx context.Context, key string, dest any, ttl time.Duration, load LoadFunc) (bool, error) {
	if c.closed.Load() {
		return false, ErrClosed
	}
	fullKey := c.cfg.Prefix + key

	raw, err := c.client.Get(ctx, fullKey).Result()
	switch {
	case err == nil:
		if raw == nullMarker {
			// 空值标记命中，短路回源
			c.hits.Inc(ctx, metrics.L("mode", "null"))
			return false, nil
		}
		if uerr := c.ser.Unmarshal([]byte(raw), dest); uerr != nil {
			return false, xerrors.Wrapf(uerr, "cache: 反序列化 %s 失败", key)
		}
		c.hits.Inc(ctx, metrics.L("mode", "value"))
		return true, nil
	case !xerrors.Is(err, redis.Nil):
		return false, xerrors.Wrapf(err, "cache: 读取 %s 失败", key)
	}

	// 未命中，同步回源
	c.misses.Inc(ctx, metrics.L("mode", "passthrough"))
	value, err := load(ctx)
	if err != nil {
		return false, xerrors.Wrapf(err, "cache: 回源加载 %s 失败", key)
	}
	if isNil(value) {
		// 源中不存在，写入空值标记防穿透
		if serr := c.client.Set(ctx, fullKey, nullMarker, c.cfg.NullTTL).Err(); serr != nil {
			c.logger.WarnContext(ctx, "写入空值标记失败",
				clog.String("key", key), clog.Error(serr))
		}
		return false, nil
	}

	data, err := c.ser.Marshal(value)
	if err != nil {
		return false, xerrors.Wrapf(err, "cache: 序列化 %s 失败", key)
	}
	if serr := c.client.Set(ctx, fullKey, data, ttl).Err(); serr != nil {
		// 回填失败不影响本次结果
		c.logger.WarnContext(ctx, "缓存回填失败",
			clog.String("key", key), clog.Error(serr))
	}
	if uerr := c.ser.Unmarshal(data, dest); uerr != nil {
		return false, xerrors.Wrapf(uerr, "cache: 反序列化 %s 失败", key)
	}
	return true, nil
}

func (c *redisCache) GetStale(ctx context.Context, key string, dest any, ttl time.Duration, load LoadFunc) (bool, error) {
	if c.closed.Load() {
		return false, ErrClosed
	}
	fullKey := c.cfg.Prefix + key

	env, err := c.getEnvelope(ctx, fullKey)
	if err != nil {
		return false, err
	}
	if env == nil {
		// 未预热的 key 不走逻辑过期策略
		c.misses.Inc(ctx, metrics.L("mode", "logical"))
		return false, nil
	}

	if time.Now().Before(env.ExpireAt) {
		c.hits.Inc(ctx, metrics.L("mode", "fresh"))
		return true, c.unmarshalEnvelope(env, key, dest)
	}

	// 逻辑过期: 抢重建锁，抢到的提交异步重建，其余直接返回旧值
	acquired, lockErr := c.locker.TryLock(ctx, key)
	if lockErr != nil && !xerrors.Is(lockErr, dlock.ErrLockHeld) {
		c.logger.WarnContext(ctx, "获取重建锁失败",
			clog.String("key", key), clog.Error(lockErr))
	}
	if acquired {
		// 双重校验: 持锁前可能已有人完成重建
		env2, err2 := c.getEnvelope(ctx, fullKey)
		if err2 == nil && env2 != nil && time.Now().Before(env2.ExpireAt) {
			c.unlockRebuild(ctx, key)
			c.hits.Inc(ctx, metrics.L("mode", "fresh"))
			return true, c.unmarshalEnvelope(env2, key, dest)
		}
		if !c.pool.submit(func() { c.rebuild(key, ttl, load) }) {
			// 队列已满，放弃本次重建
			c.unlockRebuild(ctx, key)
			c.logger.WarnContext(ctx, "重建队列已满，放弃重建", clog.String("key", key))
		}
	}

	c.hits.Inc(ctx, metrics.L("mode", "stale"))
	return true, c.unmarshalEnvelope(env, key, dest)
}

// rebuild 在工作池中执行回源重建，完成后释放重建锁
func (c *redisCache) rebuild(key string, ttl time.Duration, load LoadFunc) {
	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.RebuildTimeout)
	defer cancel()
	defer c.unlockRebuild(ctx, key)

	value, err := load(ctx)
	if err != nil {
		c.rebuilds.Inc(ctx, metrics.L("result", "error"))
		c.logger.ErrorContext(ctx, "缓存重建回源失败",
			clog.String("key", key), clog.Error(err))
		return
	}
	if isNil(value) {
		// 源中已删除，移除缓存而不是续写旧值
		c.rebuilds.Inc(ctx, metrics.L("result", "deleted"))
		if derr := c.client.Del(ctx, c.cfg.Prefix+key).Err(); derr != nil {
			c.logger.WarnContext(ctx, "删除已失效缓存失败",
				clog.String("key", key), clog.Error(derr))
		}
		return
	}
	if err := c.SetWithLogicalExpire(ctx, key, value, ttl); err != nil {
		c.rebuilds.Inc(ctx, metrics.L("result", "error"))
		c.logger.ErrorContext(ctx, "缓存重建写入失败",
			clog.String("key", key), clog.Error(err))
		return
	}
	c.rebuilds.Inc(ctx, metrics.L("result", "ok"))
	c.logger.DebugContext(ctx, "缓存重建完成", clog.String("key", key))
}

func (c *redisCache) unlockRebuild(ctx context.Context, key string) {
	if err := c.locker.Unlock(ctx, key); err != nil && !xerrors.Is(err, dlock.ErrOwnershipLost) {
		c.logger.WarnContext(ctx, "释放重建锁失败",
			clog.String("key", key), clog.Error(err))
	}
}

// getEnvelope 读取并解析逻辑过期封套，key 不存在时返回 (nil, nil)
func (c *redisCache) getEnvelope(ctx context.Context, fullKey string) (*envelope, error) {
	raw, err := c.client.Get(ctx, fullKey).Bytes()
	if err != nil {
		if xerrors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, xerrors.Wrapf(err, "cache: 读取 %s 失败", fullKey)
	}
	var env envelope
	if err := c.ser.Unmarshal(raw, &env); err != nil {
		return nil, xerrors.Wrapf(err, "cache: 解析封套 %s 失败", fullKey)
	}
	return &env, nil
}

func (c *redisCache) unmarshalEnvelope(env *envelope, key string, dest any) error {
	if err := c.ser.Unmarshal(env.Data, dest); err != nil {
		return xerrors.Wrapf(err, "cache: 反序列化 %s 失败", key)
	}
	return nil
}

func (c *redisCache) Delete(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, c.cfg.Prefix+key).Err(); err != nil {
		return xerrors.Wrapf(err, "cache: 删除 %s 失败", key)
	}
	return nil
}

func (c *redisCache) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	c.pool.close()
	if c.ownLocker {
		return c.locker.Close()
	}
	return nil
}

// isNil 判断回源结果是否为空值，兼容带类型的 nil 指针
func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Interface, reflect.Chan, reflect.Func:
		return rv.IsNil()
	default:
		return false
	}
}
