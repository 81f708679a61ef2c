// Package connector 提供统一的连接管理能力。
//
// 核心特性：
//   - 统一抽象：通过 Connector 接口提供一致的连接管理 API
//   - 多数据源支持：Redis、MySQL、SQLite
//   - 健康检查：检查连接状态，供上层实现故障感知
//   - 并发安全：所有公开方法均为并发安全
//
// 资源所有权：
//
//	Connector 拥有底层连接的生命周期，应通过 defer 确保 Close() 被调用。
//	组件（cache、dlock、seckill 等）仅借用 Connector，不应调用 Close()。
//	应用层按 LIFO 顺序释放资源：先关闭依赖 Connector 的组件，再关闭 Connector。
//
// 基本使用：
//
//	conn, err := connector.NewRedis(&connector.RedisConfig{
//		Addr: "127.0.0.1:6379",
//	}, connector.WithLogger(logger))
//	if err != nil {
//		panic(err)
//	}
//	defer conn.Close()
//
//	if err := conn.Connect(ctx); err != nil {
//		panic(err)
//	}
//	client := conn.GetClient()
package connector

import (
	"context"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Connector 定义所有连接器的通用行为。
type Connector interface {
	// Connect 建立连接。幂等，可安全多次调用。
	Connect(ctx context.Context) error

	// Close 关闭连接并释放资源。幂等。
	Close() error

	// HealthCheck 主动检查连接健康状态
	HealthCheck(ctx context.Context) error

	// IsHealthy 返回缓存的健康状态（最近一次 Connect/HealthCheck 的结果）
	IsHealthy() bool

	// Name 返回连接器名称，用于日志与多实例区分
	Name() string
}

// RedisConnector Redis 连接器
type RedisConnector interface {
	Connector

	// GetClient 返回 go-redis 客户端
	GetClient() *redis.Client
}

// MySQLConnector MySQL 连接器
type MySQLConnector interface {
	Connector

	// GetDB 返回 GORM 实例
	GetDB() *gorm.DB
}

// SQLiteConnector SQLite 连接器，主要用于测试与本地开发
type SQLiteConnector interface {
	Connector

	// GetDB 返回 GORM 实例
	GetDB() *gorm.DB
}
