package seckill

import "github.com/ceyewan/surge/xerrors"

var (
	// ErrConnectorNil Redis 连接器为空
	ErrConnectorNil = xerrors.New("seckill: redis connector is nil")
	// ErrStoreNil 数据库存取实现为空
	ErrStoreNil = xerrors.New("seckill: store is nil")
	// ErrVoucherNotFound 优惠券不存在
	ErrVoucherNotFound = xerrors.New("seckill: voucher not found")
	// ErrNotStarted 秒杀尚未开始
	ErrNotStarted = xerrors.New("seckill: activity not started")
	// ErrEnded 秒杀已结束
	ErrEnded = xerrors.New("seckill: activity ended")
	// ErrSoldOut 库存不足
	ErrSoldOut = xerrors.New("seckill: sold out")
	// ErrDuplicateOrder 同一用户重复下单
	ErrDuplicateOrder = xerrors.New("seckill: duplicate order")
	// ErrStockDepleted 数据库库存扣减条件不满足
	ErrStockDepleted = xerrors.New("seckill: stock depleted in database")
	// ErrAlreadyStarted 消费者已启动
	ErrAlreadyStarted = xerrors.New("seckill: consumer already started")
	// ErrClosed 管道已关闭
	ErrClosed = xerrors.New("seckill: pipeline closed")
)
