package seckill

import (
	"context"

	"gorm.io/gorm"

	"github.com/ceyewan/surge/db"
	"github.com/ceyewan/surge/xerrors"
)

// GormStore 基于 db 组件的 Store 实现
type GormStore struct {
	database db.DB
}

// NewGormStore 创建 GORM 订单存取实现
func NewGormStore(database db.DB) (*GormStore, error) {
	if database == nil {
		return nil, ErrStoreNil
	}
	return &GormStore{database: database}, nil
}

// AutoMigrate 建表，用于测试与本地开发；生产环境应使用迁移工具
func (s *GormStore) AutoMigrate(ctx context.Context) error {
	return s.database.DB(ctx).AutoMigrate(&Voucher{}, &Order{})
}

func (s *GormStore) GetVoucher(ctx context.Context, voucherID int64) (*Voucher, error) {
	var voucher Voucher
	err := s.database.DB(ctx).Where("voucher_id = ?", voucherID).First(&voucher).Error
	if err != nil {
		if xerrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, xerrors.Wrapf(ErrVoucherNotFound, "voucher_id=%d", voucherID)
		}
		return nil, xerrors.Wrapf(err, "seckill: 查询优惠券 %d 失败", voucherID)
	}
	return &voucher, nil
}

func (s *GormStore) SaveVoucher(ctx context.Context, voucher *Voucher) error {
	if err := s.database.DB(ctx).Save(voucher).Error; err != nil {
		return xerrors.Wrapf(err, "seckill: 保存优惠券 %d 失败", voucher.VoucherID)
	}
	return nil
}

func (s *GormStore) HasOrder(ctx context.Context, userID, voucherID int64) (bool, error) {
	var count int64
	err := s.database.DB(ctx).Model(&Order{}).
		Where("user_id = ? AND voucher_id = ?", userID, voucherID).
		Count(&count).Error
	if err != nil {
		return false, xerrors.Wrapf(err, "seckill: 查询订单失败 user=%d voucher=%d", userID, voucherID)
	}
	return count > 0, nil
}

func (s *GormStore) CreateOrder(ctx context.Context, order *Order) error {
	return s.database.Transaction(ctx, func(ctx context.Context, tx *gorm.DB) error {
		res := tx.Model(&Voucher{}).
			Where("voucher_id = ? AND stock > 0", order.VoucherID).
			UpdateColumn("stock", gorm.Expr("stock - 1"))
		if res.Error != nil {
			return xerrors.Wrapf(res.Error, "seckill: 扣减库存失败 voucher=%d", order.VoucherID)
		}
		if res.RowsAffected == 0 {
			return xerrors.Wrapf(ErrStockDepleted, "voucher_id=%d", order.VoucherID)
		}
		if err := tx.Create(order).Error; err != nil {
			return xerrors.Wrapf(err, "seckill: 写入订单 %d 失败", order.ID)
		}
		return nil
	})
}
