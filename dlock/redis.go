package dlock

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ceyewan/surge/clog"
	"github.com/ceyewan/surge/connector"
	"github.com/ceyewan/surge/metrics"
	"github.com/ceyewan/surge/xerrors"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// unlockScript 比较并删除: 只有 token 匹配时才删除锁
const unlockScript = `
if redis.call('get', KEYS[1]) == ARGV[1] then
    return redis.call('del', KEYS[1])
end
return 0
`

// renewScript 比较并续约: 只有 token 匹配时才延长租约
const renewScript = `
if redis.call('get', KEYS[1]) == ARGV[1] then
    return redis.call('pexpire', KEYS[1], ARGV[2])
end
return 0
`

// heldLock 本实例持有的锁
type heldLock struct {
	token  string
	ttl    time.Duration
	cancel context.CancelFunc // 看门狗取消函数，未开启续约时为 nil
	done   chan struct{}
}

type redisLocker struct {
	client     redis.UniversalClient
	cfg        *Config
	logger     clog.Logger
	instanceID string // 实例标识，token 前缀
	seq        atomic.Int64

	mu     sync.Mutex
	locks  map[string]*heldLock
	closed bool

	acquired metrics.Counter
	released metrics.Counter
}

func newRedisLocker(conn connector.RedisConnector, cfg *Config, opts *options) (*redisLocker, error) {
	client := conn.GetClient()
	if client == nil {
		return nil, xerrors.Wrap(connector.ErrNotConnected, "dlock: Redis 连接器未连接")
	}
	return &redisLocker{
		client:     client,
		cfg:        cfg,
		logger:     opts.logger,
		instanceID: uuid.New().String(),
		locks:      make(map[string]*heldLock),
		acquired:   metrics.MustCounter(opts.meter, "dlock_acquire_total", "锁获取尝试次数"),
		released:   metrics.MustCounter(opts.meter, "dlock_release_total", "锁释放次数"),
	}, nil
}

func (l *redisLocker) TryLock(ctx context.Context, key string, opts ...LockOption) (bool, error) {
	lo := &lockOptions{ttl: l.cfg.DefaultTTL}
	for _, opt := range opts {
		opt(lo)
	}

	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return false, ErrClosed
	}
	if _, held := l.locks[key]; held {
		l.mu.Unlock()
		return false, fmt.Errorf("%w: %s", ErrLockHeld, key)
	}
	l.mu.Unlock()

	token := fmt.Sprintf("%s-%d", l.instanceID, l.seq.Add(1))
	ok, err := l.client.SetNX(ctx, l.cfg.Prefix+key, token, lo.ttl).Result()
	if err != nil {
		return false, xerrors.Wrapf(err, "dlock: 获取锁 %s 失败", key)
	}
	if !ok {
		l.acquired.Inc(ctx, metrics.L("result", "busy"))
		return false, nil
	}

	held := &heldLock{token: token, ttl: lo.ttl}
	if lo.autoRenew {
		renewCtx, cancel := context.WithCancel(context.Background())
		held.cancel = cancel
		held.done = make(chan struct{})
		go l.renewLoop(renewCtx, key, held)
	}

	l.mu.Lock()
	l.locks[key] = held
	l.mu.Unlock()

	l.acquired.Inc(ctx, metrics.L("result", "ok"))
	l.logger.DebugContext(ctx, "锁已获取",
		clog.String("key", key), clog.Duration("ttl", lo.ttl))
	return true, nil
}

func (l *redisLocker) Unlock(ctx context.Context, key string) error {
	l.mu.Lock()
	held, ok := l.locks[key]
	if ok {
		delete(l.locks, key)
	}
	l.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrLockNotHeld, key)
	}
	return l.release(ctx, key, held)
}

// release 停止续约并执行比较删除
func (l *redisLocker) release(ctx context.Context, key string, held *heldLock) error {
	if held.cancel != nil {
		held.cancel()
		<-held.done
	}

	res, err := l.client.Eval(ctx, unlockScript,
		[]string{l.cfg.Prefix + key}, held.token).Int64()
	if err != nil {
		return xerrors.Wrapf(err, "dlock: 释放锁 %s 失败", key)
	}
	if res == 0 {
		l.released.Inc(ctx, metrics.L("result", "lost"))
		l.logger.WarnContext(ctx, "锁归属已丢失，放弃释放", clog.String("key", key))
		return fmt.Errorf("%w: %s", ErrOwnershipLost, key)
	}
	l.released.Inc(ctx, metrics.L("result", "ok"))
	l.logger.DebugContext(ctx, "锁已释放", clog.String("key", key))
	return nil
}

// renewLoop 看门狗续约: 每 ttl/3 续约一次，token 不匹配时立即退出
func (l *redisLocker) renewLoop(ctx context.Context, key string, held *heldLock) {
	defer close(held.done)

	interval := held.ttl / 3
	if interval < 100*time.Millisecond {
		interval = 100 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			res, err := l.client.Eval(ctx, renewScript,
				[]string{l.cfg.Prefix + key}, held.token, held.ttl.Milliseconds()).Int64()
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				l.logger.WarnContext(ctx, "锁续约失败",
					clog.String("key", key), clog.Error(err))
				continue
			}
			if res == 0 {
				l.logger.WarnContext(ctx, "锁已被抢占，停止续约", clog.String("key", key))
				return
			}
		}
	}
}

func (l *redisLocker) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	remaining := l.locks
	l.locks = make(map[string]*heldLock)
	l.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	var errs xerrors.Collector
	for key, held := range remaining {
		if err := l.release(ctx, key, held); err != nil && !xerrors.Is(err, ErrOwnershipLost) {
			errs.Collect(err)
		}
	}
	return errs.Err()
}
