package seckill

import (
	"context"
	"time"
)

// Voucher 秒杀优惠券
type Voucher struct {
	VoucherID int64     `gorm:"primaryKey;autoIncrement:false" json:"voucher_id"`
	Stock     int64     `gorm:"not null" json:"stock"`
	BeginTime time.Time `gorm:"not null" json:"begin_time"`
	EndTime   time.Time `gorm:"not null" json:"end_time"`
}

// TableName 指定表名
func (Voucher) TableName() string { return "seckill_vouchers" }

// Order 秒杀订单
//
// ID 由 idgen 预先生成，非数据库自增。
type Order struct {
	ID        int64     `gorm:"primaryKey;autoIncrement:false" json:"id"`
	UserID    int64     `gorm:"not null;uniqueIndex:uk_user_voucher" json:"user_id"`
	VoucherID int64     `gorm:"not null;uniqueIndex:uk_user_voucher" json:"voucher_id"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName 指定表名
func (Order) TableName() string { return "voucher_orders" }

// Store 订单与库存的数据库存取契约
//
// CreateOrder 必须在单个事务内完成条件扣减与落单，保证库存不为负。
type Store interface {
	// GetVoucher 查询优惠券，不存在时返回 ErrVoucherNotFound
	GetVoucher(ctx context.Context, voucherID int64) (*Voucher, error)

	// SaveVoucher 创建或更新优惠券
	SaveVoucher(ctx context.Context, voucher *Voucher) error

	// HasOrder 判断用户是否已持有该优惠券的订单
	HasOrder(ctx context.Context, userID, voucherID int64) (bool, error)

	// CreateOrder 条件扣减库存并写入订单
	//
	// 仅当 stock > 0 时扣减成功，否则返回 ErrStockDepleted 且不落单。
	CreateOrder(ctx context.Context, order *Order) error
}
