package seckill

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ceyewan/surge/clog"
	"github.com/ceyewan/surge/connector"
	"github.com/ceyewan/surge/dlock"
	"github.com/ceyewan/surge/idgen"
	"github.com/ceyewan/surge/metrics"
	"github.com/ceyewan/surge/xerrors"
)

type pipeline struct {
	client    *redis.Client
	store     Store
	cfg       *Config
	logger    clog.Logger
	locker    dlock.Locker
	generator idgen.Generator
	ownLocker bool

	started atomic.Bool
	closed  atomic.Bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	submits     metrics.Counter
	materialize metrics.Counter
}

func newPipeline(conn connector.RedisConnector, store Store, cfg *Config, opts *options, ownLocker bool) (*pipeline, error) {
	client := conn.GetClient()
	if client == nil {
		return nil, xerrors.Wrap(connector.ErrNotConnected, "seckill: Redis 连接器未连接")
	}
	return &pipeline{
		client:      client,
		store:       store,
		cfg:         cfg,
		logger:      opts.logger,
		locker:      opts.locker,
		generator:   opts.generator,
		ownLocker:   ownLocker,
		submits:     metrics.MustCounter(opts.meter, "seckill_submit_total", "秒杀提交次数"),
		materialize: metrics.MustCounter(opts.meter, "seckill_materialize_total", "订单落库次数"),
	}, nil
}

func (p *pipeline) stockKey(voucherID int64) string {
	return fmt.Sprintf("%sstock:%d", p.cfg.Prefix, voucherID)
}

func (p *pipeline) dedupKey(voucherID int64) string {
	return fmt.Sprintf("%sorder:%d", p.cfg.Prefix, voucherID)
}

func (p *pipeline) PrimeStock(ctx context.Context, voucherID int64, stock int64) error {
	if stock < 0 {
		return xerrors.Wrapf(xerrors.ErrInvalidInput, "seckill: 库存不能为负 (%d)", stock)
	}
	pipe := p.client.TxPipeline()
	pipe.Set(ctx, p.stockKey(voucherID), stock, 0)
	pipe.Del(ctx, p.dedupKey(voucherID))
	if _, err := pipe.Exec(ctx); err != nil {
		return xerrors.Wrapf(err, "seckill: 预热优惠券 %d 库存失败", voucherID)
	}
	p.logger.InfoContext(ctx, "秒杀库存已预热",
		clog.Int64("voucher_id", voucherID), clog.Int64("stock", stock))
	return nil
}

func (p *pipeline) Submit(ctx context.Context, userID, voucherID int64) (int64, error) {
	if p.closed.Load() {
		return 0, ErrClosed
	}

	voucher, err := p.store.GetVoucher(ctx, voucherID)
	if err != nil {
		return 0, err
	}
	now := time.Now()
	if now.Before(voucher.BeginTime) {
		return 0, xerrors.Wrapf(ErrNotStarted, "voucher_id=%d", voucherID)
	}
	if now.After(voucher.EndTime) {
		return 0, xerrors.Wrapf(ErrEnded, "voucher_id=%d", voucherID)
	}

	orderID, err := p.generator.NextID(ctx, "order")
	if err != nil {
		return 0, err
	}

	res, err := admissionScript.Run(ctx, p.client,
		[]string{p.stockKey(voucherID), p.dedupKey(voucherID), p.cfg.Stream},
		voucherID, userID, orderID,
	).Int()
	if err != nil {
		return 0, xerrors.Wrapf(err, "seckill: 准入脚本执行失败 voucher=%d", voucherID)
	}

	switch res {
	case admitOK:
		p.submits.Inc(ctx, metrics.L("result", "admitted"))
		p.logger.DebugContext(ctx, "秒杀准入成功",
			clog.Int64("user_id", userID),
			clog.Int64("voucher_id", voucherID),
			clog.Int64("order_id", orderID))
		return orderID, nil
	case admitSoldOut:
		p.submits.Inc(ctx, metrics.L("result", "sold_out"))
		return 0, xerrors.Wrapf(ErrSoldOut, "voucher_id=%d", voucherID)
	case admitDuplicate:
		p.submits.Inc(ctx, metrics.L("result", "duplicate"))
		return 0, xerrors.Wrapf(ErrDuplicateOrder, "user_id=%d voucher_id=%d", userID, voucherID)
	default:
		return 0, xerrors.Newf("seckill: 准入脚本返回未知结果 %d", res)
	}
}

func (p *pipeline) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()
	if p.ownLocker {
		return p.locker.Close()
	}
	return nil
}
