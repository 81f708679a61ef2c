package connector

import (
	"context"
	"sync/atomic"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/ceyewan/surge/clog"
	"github.com/ceyewan/surge/xerrors"
)

type mysqlConnector struct {
	cfg     *MySQLConfig
	db      *gorm.DB
	logger  clog.Logger
	healthy atomic.Bool
}

// NewMySQL 创建 MySQL 连接器
func NewMySQL(cfg *MySQLConfig, opts ...Option) (MySQLConnector, error) {
	if err := cfg.validate(); err != nil {
		return nil, xerrors.Wrap(err, "invalid mysql config")
	}
	cfg.setDefaults()

	opt := &options{}
	for _, o := range opts {
		o(opt)
	}
	opt.applyDefaults()

	c := &mysqlConnector{
		cfg:    cfg,
		logger: opt.logger.With(clog.String("connector", "mysql"), clog.String("name", cfg.Name)),
	}

	db, err := gorm.Open(mysql.Open(cfg.buildDSN()), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, xerrors.Wrapf(err, "mysql connector[%s]: connection failed", cfg.Name)
	}

	c.db = db
	return c, nil
}

// Connect 建立连接并配置连接池
func (c *mysqlConnector) Connect(ctx context.Context) error {
	c.logger.Info("attempting to connect to mysql",
		clog.String("host", c.cfg.Host),
		clog.Int("port", c.cfg.Port))

	sqlDB, err := c.db.DB()
	if err != nil {
		return xerrors.Wrapf(err, "mysql connector[%s]: failed to get db instance", c.cfg.Name)
	}

	sqlDB.SetMaxIdleConns(c.cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(c.cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(c.cfg.ConnMaxLifetime)

	if err := sqlDB.PingContext(ctx); err != nil {
		c.logger.Error("failed to connect to mysql", clog.Error(err))
		return xerrors.Wrapf(err, "mysql connector[%s]: ping failed", c.cfg.Name)
	}

	c.healthy.Store(true)
	c.logger.Info("successfully connected to mysql")
	return nil
}

// Close 关闭连接
func (c *mysqlConnector) Close() error {
	c.healthy.Store(false)

	if c.db == nil {
		return nil
	}
	sqlDB, err := c.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// HealthCheck 检查连接健康状态
func (c *mysqlConnector) HealthCheck(ctx context.Context) error {
	sqlDB, err := c.db.DB()
	if err != nil {
		c.healthy.Store(false)
		return xerrors.Wrapf(err, "mysql connector[%s]: health check failed", c.cfg.Name)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		c.healthy.Store(false)
		c.logger.Warn("mysql health check failed", clog.Error(err))
		return xerrors.Wrapf(ErrHealthCheck, "mysql connector[%s]: %v", c.cfg.Name, err)
	}

	c.healthy.Store(true)
	return nil
}

func (c *mysqlConnector) IsHealthy() bool {
	return c.healthy.Load()
}

func (c *mysqlConnector) Name() string {
	return c.cfg.Name
}

// GetDB 返回 GORM 实例
func (c *mysqlConnector) GetDB() *gorm.DB {
	return c.db
}
