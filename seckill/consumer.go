package seckill

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ceyewan/surge/clog"
	"github.com/ceyewan/surge/metrics"
	"github.com/ceyewan/surge/xerrors"
)

// errRetryLater 消息处理失败，留在 pending-list 等待重放
var errRetryLater = xerrors.New("seckill: retry later")

func (p *pipeline) Start(ctx context.Context) error {
	if p.closed.Load() {
		return ErrClosed
	}
	if !p.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}

	if err := p.ensureGroup(ctx); err != nil {
		p.started.Store(false)
		return err
	}

	runCtx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		// 先重放崩溃前未确认的消息，再进入实时消费
		p.drainPending(runCtx)
		p.consumeLoop(runCtx)
	}()

	p.logger.InfoContext(ctx, "秒杀消费者已启动",
		clog.String("stream", p.cfg.Stream),
		clog.String("group", p.cfg.Group),
		clog.String("consumer", p.cfg.Consumer))
	return nil
}

// ensureGroup 创建消费者组，已存在时忽略
func (p *pipeline) ensureGroup(ctx context.Context) error {
	err := p.client.XGroupCreateMkStream(ctx, p.cfg.Stream, p.cfg.Group, "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return xerrors.Wrapf(err, "seckill: 创建消费者组 %s 失败", p.cfg.Group)
	}
	return nil
}

// consumeLoop 实时消费循环，读取未投递过的新消息
func (p *pipeline) consumeLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		streams, err := p.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    p.cfg.Group,
			Consumer: p.cfg.Consumer,
			Streams:  []string{p.cfg.Stream, ">"},
			Count:    1,
			Block:    p.cfg.BlockTimeout,
		}).Result()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if xerrors.Is(err, redis.Nil) {
				// 无新消息
				if p.cfg.BlockTimeout < 0 {
					time.Sleep(20 * time.Millisecond)
				}
				continue
			}
			p.logger.ErrorContext(ctx, "读取订单消息失败", clog.Error(err))
			time.Sleep(100 * time.Millisecond)
			continue
		}
		if len(streams) == 0 || len(streams[0].Messages) == 0 {
			if p.cfg.BlockTimeout < 0 {
				time.Sleep(20 * time.Millisecond)
			}
			continue
		}

		msg := streams[0].Messages[0]
		if err := p.handleMessage(ctx, msg); err != nil {
			p.logger.ErrorContext(ctx, "订单消息处理失败，转入 pending 重放",
				clog.String("msg_id", msg.ID), clog.Error(err))
			p.drainPending(ctx)
			continue
		}
		p.ack(ctx, msg.ID)
	}
}

// drainPending 重放本消费者 pending-list 中未确认的消息，直到清空
func (p *pipeline) drainPending(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		streams, err := p.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    p.cfg.Group,
			Consumer: p.cfg.Consumer,
			Streams:  []string{p.cfg.Stream, "0"},
			Count:    1,
		}).Result()
		if err != nil {
			if ctx.Err() != nil || xerrors.Is(err, redis.Nil) {
				return
			}
			p.logger.ErrorContext(ctx, "读取 pending 消息失败", clog.Error(err))
			return
		}
		if len(streams) == 0 || len(streams[0].Messages) == 0 {
			// pending-list 已清空
			return
		}

		msg := streams[0].Messages[0]
		if err := p.handleMessage(ctx, msg); err != nil {
			p.logger.ErrorContext(ctx, "pending 消息处理失败，稍后重试",
				clog.String("msg_id", msg.ID), clog.Error(err))
			time.Sleep(20 * time.Millisecond)
			continue
		}
		p.ack(ctx, msg.ID)
	}
}

// handleMessage 将一条准入消息兑现为数据库订单
//
// 返回 nil 表示消息可以 ACK（含幂等跳过与格式损坏的消息），返回
// 错误表示应留在 pending-list 重放。
func (p *pipeline) handleMessage(ctx context.Context, msg redis.XMessage) error {
	order, err := parseOrder(msg.Values)
	if err != nil {
		// 损坏的消息重放也无法成功，确认后跳过
		p.materialize.Inc(ctx, metrics.L("result", "malformed"))
		p.logger.WarnContext(ctx, "丢弃格式损坏的订单消息",
			clog.String("msg_id", msg.ID), clog.Error(err))
		return nil
	}

	// 一人一单锁: 准入脚本已在 Redis 侧去重，这里是数据库侧兜底
	lockKey := strconv.FormatInt(order.UserID, 10)
	acquired, err := p.locker.TryLock(ctx, lockKey)
	if err != nil {
		return xerrors.Wrapf(err, "seckill: 获取用户 %d 下单锁失败", order.UserID)
	}
	if !acquired {
		return xerrors.Wrapf(errRetryLater, "用户 %d 下单锁被占用", order.UserID)
	}
	defer func() {
		if uerr := p.locker.Unlock(ctx, lockKey); uerr != nil {
			p.logger.WarnContext(ctx, "释放下单锁失败",
				clog.String("key", lockKey), clog.Error(uerr))
		}
	}()

	exists, err := p.store.HasOrder(ctx, order.UserID, order.VoucherID)
	if err != nil {
		return err
	}
	if exists {
		p.materialize.Inc(ctx, metrics.L("result", "duplicate"))
		p.logger.WarnContext(ctx, "订单已存在，跳过落库",
			clog.Int64("user_id", order.UserID),
			clog.Int64("voucher_id", order.VoucherID))
		return nil
	}

	if err := p.store.CreateOrder(ctx, order); err != nil {
		if xerrors.Is(err, ErrStockDepleted) {
			// Redis 预扣与数据库库存不一致，确认消息避免无限重放
			p.materialize.Inc(ctx, metrics.L("result", "depleted"))
			p.logger.WarnContext(ctx, "数据库库存不足，丢弃订单消息",
				clog.Int64("order_id", order.ID),
				clog.Int64("voucher_id", order.VoucherID))
			return nil
		}
		return err
	}

	p.materialize.Inc(ctx, metrics.L("result", "created"))
	p.logger.DebugContext(ctx, "订单已落库",
		clog.Int64("order_id", order.ID),
		clog.Int64("user_id", order.UserID),
		clog.Int64("voucher_id", order.VoucherID))
	return nil
}

func (p *pipeline) ack(ctx context.Context, msgID string) {
	if err := p.client.XAck(ctx, p.cfg.Stream, p.cfg.Group, msgID).Err(); err != nil {
		p.logger.WarnContext(ctx, "确认订单消息失败",
			clog.String("msg_id", msgID), clog.Error(err))
	}
}

// parseOrder 从 Stream 消息字段还原订单
func parseOrder(values map[string]any) (*Order, error) {
	userID, err := parseInt64Field(values, "userId")
	if err != nil {
		return nil, err
	}
	voucherID, err := parseInt64Field(values, "voucherId")
	if err != nil {
		return nil, err
	}
	orderID, err := parseInt64Field(values, "id")
	if err != nil {
		return nil, err
	}
	return &Order{ID: orderID, UserID: userID, VoucherID: voucherID}, nil
}

func parseInt64Field(values map[string]any, field string) (int64, error) {
	raw, ok := values[field]
	if !ok {
		return 0, fmt.Errorf("缺少字段 %s", field)
	}
	s, ok := raw.(string)
	if !ok {
		return 0, fmt.Errorf("字段 %s 类型非法: %T", field, raw)
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("字段 %s 解析失败: %w", field, err)
	}
	return v, nil
}
