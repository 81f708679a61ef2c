package dlock

import "github.com/ceyewan/surge/xerrors"

var (
	// ErrConnectorNil Redis 连接器为空
	ErrConnectorNil = xerrors.New("dlock: redis connector is nil")
	// ErrInvalidConfig 配置非法
	ErrInvalidConfig = xerrors.New("dlock: invalid config")
	// ErrLockHeld 本实例已持有该锁
	ErrLockHeld = xerrors.New("dlock: lock already held by this instance")
	// ErrLockNotHeld 本实例未持有该锁
	ErrLockNotHeld = xerrors.New("dlock: lock not held by this instance")
	// ErrOwnershipLost 锁已过期且被其他持有者抢占
	ErrOwnershipLost = xerrors.New("dlock: lock ownership lost")
	// ErrClosed 实例已关闭
	ErrClosed = xerrors.New("dlock: locker closed")
)
