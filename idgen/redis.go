package idgen

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ceyewan/surge/clog"
	"github.com/ceyewan/surge/connector"
	"github.com/ceyewan/surge/metrics"
	"github.com/ceyewan/surge/xerrors"
)

// epoch 序列纪元 2022-01-01T00:00:00Z
//
// 31 位相对秒数可用到约 2090 年。序列号占低 32 位，单业务单日发号
// 超过 2^32 会溢出到时间戳位，当前量级下无需防护。
const epoch = 1640995200

// sequenceBits 序列号位宽
const sequenceBits = 32

type redisGenerator struct {
	client *redis.Client
	cfg    *Config
	logger clog.Logger
	issued metrics.Counter
}

func newRedisGenerator(conn connector.RedisConnector, cfg *Config, opts *options) (*redisGenerator, error) {
	client := conn.GetClient()
	if client == nil {
		return nil, xerrors.Wrap(connector.ErrNotConnected, "idgen: Redis 连接器未连接")
	}
	return &redisGenerator{
		client: client,
		cfg:    cfg,
		logger: opts.logger,
		issued: metrics.MustCounter(opts.meter, "idgen_issued_total", "已发放 ID 数量"),
	}, nil
}

func (g *redisGenerator) NextID(ctx context.Context, bizKey string) (int64, error) {
	if bizKey == "" {
		return 0, xerrors.Wrap(xerrors.ErrInvalidInput, "idgen: bizKey 不能为空")
	}

	now := time.Now().UTC()
	timestamp := now.Unix() - epoch

	// 按天分 key 计数，避免单 key 永久增长，同时支持按日统计发号量
	key := fmt.Sprintf("%sicr:%s:%s", g.cfg.Prefix, bizKey, now.Format("2006:01:02"))
	count, err := g.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, xerrors.Wrapf(err, "idgen: 业务 %s 序列号自增失败", bizKey)
	}

	g.issued.Inc(ctx, metrics.L("biz", bizKey))
	return timestamp<<sequenceBits | count, nil
}
