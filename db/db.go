// Package db 提供了基于 GORM 的数据库组件。
//
// 组件在 MySQL/SQLite 连接器的基础上提供：
// - GORM ORM 功能封装
// - 事务管理支持
// - 可选的分表能力（基于 gorm.io/sharding，订单表按 user_id 分片的场景）
// - SQL 日志适配到 clog
//
// 基本使用：
//
//	mysqlConn, _ := connector.NewMySQL(mysqlCfg, connector.WithLogger(logger))
//	defer mysqlConn.Close()
//	mysqlConn.Connect(ctx)
//
//	database, _ := db.New(&db.Config{Driver: "mysql"},
//		db.WithMySQLConnector(mysqlConn),
//		db.WithLogger(logger))
//
//	gormDB := database.DB(ctx)
//	var orders []Order
//	gormDB.Where("user_id = ?", uid).Find(&orders)
//
// 设计原则：
//   - 借用模型：db 组件借用连接器的连接，不负责连接的生命周期
//   - 显式依赖：通过构造函数注入连接器和选项
package db

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/sharding"

	"github.com/ceyewan/surge/clog"
	"github.com/ceyewan/surge/xerrors"
)

// DB 定义了数据库组件的核心能力
type DB interface {
	// DB 获取底层的 *gorm.DB 实例
	DB(ctx context.Context) *gorm.DB

	// Transaction 执行事务操作
	// fn 中的 tx 对象仅在当前事务范围内有效
	Transaction(ctx context.Context, fn func(ctx context.Context, tx *gorm.DB) error) error

	// Close 关闭组件。底层连接由连接器管理，此处为 no-op。
	Close() error
}

// database 是 DB 接口的实现
type database struct {
	client *gorm.DB
	logger clog.Logger
}

// New 创建数据库组件实例
//
// 连接器通过 WithMySQLConnector / WithSQLiteConnector 注入，
// 与 Config.Driver 对应。
func New(cfg *Config, opts ...Option) (DB, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	cfg.setDefaults()
	if err := cfg.validate(); err != nil {
		return nil, xerrors.Wrap(err, "invalid db config")
	}

	opt := options{}
	for _, o := range opts {
		o(&opt)
	}
	if opt.logger == nil {
		opt.logger = clog.Default().WithNamespace("db")
	}

	var gormDB *gorm.DB
	switch cfg.Driver {
	case "mysql":
		if opt.mysqlConnector == nil {
			return nil, ErrMySQLConnectorRequired
		}
		gormDB = opt.mysqlConnector.GetDB()
	case "sqlite":
		if opt.sqliteConnector == nil {
			return nil, ErrSQLiteConnectorRequired
		}
		gormDB = opt.sqliteConnector.GetDB()
	}
	if gormDB == nil {
		return nil, ErrNotConnected
	}

	// 注入 clog 适配的 SQL 日志
	session := gormDB.Session(&gorm.Session{
		Logger: newGormLogger(opt.logger, opt.silentMode),
	})

	if cfg.EnableSharding && len(cfg.ShardingRules) > 0 {
		for _, rule := range cfg.ShardingRules {
			tables := make([]interface{}, len(rule.Tables))
			for i, v := range rule.Tables {
				tables[i] = v
			}

			middleware := sharding.Register(sharding.Config{
				ShardingKey:         rule.ShardingKey,
				NumberOfShards:      rule.NumberOfShards,
				PrimaryKeyGenerator: sharding.PKSnowflake,
			}, tables...)

			if err := session.Use(middleware); err != nil {
				return nil, xerrors.Wrapf(err, "failed to register sharding middleware for tables %v", rule.Tables)
			}
		}
	}

	return &database{
		client: session,
		logger: opt.logger,
	}, nil
}

func (d *database) DB(ctx context.Context) *gorm.DB {
	return d.client.WithContext(ctx)
}

func (d *database) Transaction(ctx context.Context, fn func(ctx context.Context, tx *gorm.DB) error) error {
	return d.client.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, tx)
	})
}

func (d *database) Close() error {
	return nil
}
