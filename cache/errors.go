package cache

import "github.com/ceyewan/surge/xerrors"

var (
	// ErrConnectorNil Redis 连接器为空
	ErrConnectorNil = xerrors.New("cache: redis connector is nil")
	// ErrInvalidConfig 配置非法
	ErrInvalidConfig = xerrors.New("cache: invalid config")
	// ErrClosed 客户端已关闭
	ErrClosed = xerrors.New("cache: client closed")
	// ErrNilValue 写入的值为空
	ErrNilValue = xerrors.New("cache: value is nil")
)
