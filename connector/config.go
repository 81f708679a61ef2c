package connector

import (
	"fmt"
	"time"
)

// RedisConfig Redis 连接配置
type RedisConfig struct {
	// 基础配置（可选，有默认值）
	Name string `mapstructure:"name" json:"name" yaml:"name"` // 连接器名称 (默认: "default")

	// 核心配置
	Addr     string `mapstructure:"addr" json:"addr" yaml:"addr"`             // [必填] 连接地址，如 "127.0.0.1:6379"
	Password string `mapstructure:"password" json:"password" yaml:"password"` // [可选] 认证密码
	DB       int    `mapstructure:"db" json:"db" yaml:"db"`                   // [可选] 数据库编号 (默认: 0)

	// 高级配置（可选，有默认值）
	PoolSize     int           `mapstructure:"pool_size" json:"pool_size" yaml:"pool_size"`                // 连接池大小 (默认: 10)
	MinIdleConns int           `mapstructure:"min_idle_conns" json:"min_idle_conns" yaml:"min_idle_conns"` // 最小空闲连接数 (默认: 5)
	DialTimeout  time.Duration `mapstructure:"dial_timeout" json:"dial_timeout" yaml:"dial_timeout"`       // 连接超时 (默认: 5s)
	ReadTimeout  time.Duration `mapstructure:"read_timeout" json:"read_timeout" yaml:"read_timeout"`       // 读取超时 (默认: 3s)
	WriteTimeout time.Duration `mapstructure:"write_timeout" json:"write_timeout" yaml:"write_timeout"`    // 写入超时 (默认: 3s)
}

func (c *RedisConfig) setDefaults() {
	if c.Name == "" {
		c.Name = "default"
	}
	if c.PoolSize <= 0 {
		c.PoolSize = 10
	}
	if c.MinIdleConns < 0 {
		c.MinIdleConns = 5
	}
	if c.DialTimeout == 0 {
		c.DialTimeout = 5 * time.Second
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 3 * time.Second
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 3 * time.Second
	}
}

func (c *RedisConfig) validate() error {
	if c == nil {
		return ErrConfig
	}
	if c.Addr == "" {
		return fmt.Errorf("redis addr is required")
	}
	return nil
}

// MySQLConfig MySQL 连接配置
type MySQLConfig struct {
	Name string `mapstructure:"name" json:"name" yaml:"name"` // 连接器名称 (默认: "default")

	// 核心配置
	DSN      string `mapstructure:"dsn" json:"dsn" yaml:"dsn"`                // 完整 DSN (可选，提供则忽略 Host/Port 等)
	Host     string `mapstructure:"host" json:"host" yaml:"host"`             // [必填] 主机地址
	Port     int    `mapstructure:"port" json:"port" yaml:"port"`             // 端口 (默认: 3306)
	Username string `mapstructure:"username" json:"username" yaml:"username"` // [必填] 用户名
	Password string `mapstructure:"password" json:"password" yaml:"password"` // 密码
	Database string `mapstructure:"database" json:"database" yaml:"database"` // [必填] 数据库名

	// 高级配置（可选，有默认值）
	Charset         string        `mapstructure:"charset" json:"charset" yaml:"charset"`                            // 字符集 (默认: "utf8mb4")
	MaxIdleConns    int           `mapstructure:"max_idle_conns" json:"max_idle_conns" yaml:"max_idle_conns"`       // 最大空闲连接数 (默认: 10)
	MaxOpenConns    int           `mapstructure:"max_open_conns" json:"max_open_conns" yaml:"max_open_conns"`       // 最大打开连接数 (默认: 100)
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" json:"conn_max_lifetime" yaml:"conn_max_lifetime"` // 连接最大生命周期 (默认: 1h)
}

func (c *MySQLConfig) setDefaults() {
	if c.Name == "" {
		c.Name = "default"
	}
	if c.Port == 0 {
		c.Port = 3306
	}
	if c.Charset == "" {
		c.Charset = "utf8mb4"
	}
	if c.MaxIdleConns == 0 {
		c.MaxIdleConns = 10
	}
	if c.MaxOpenConns == 0 {
		c.MaxOpenConns = 100
	}
	if c.ConnMaxLifetime == 0 {
		c.ConnMaxLifetime = time.Hour
	}
}

func (c *MySQLConfig) validate() error {
	if c == nil {
		return ErrConfig
	}
	if c.DSN != "" {
		return nil
	}
	if c.Host == "" {
		return fmt.Errorf("mysql host is required")
	}
	if c.Username == "" {
		return fmt.Errorf("mysql username is required")
	}
	if c.Database == "" {
		return fmt.Errorf("mysql database is required")
	}
	return nil
}

// buildDSN 构建 DSN：优先使用 cfg.DSN，否则从各字段拼接
func (c *MySQLConfig) buildDSN() string {
	if c.DSN != "" {
		return c.DSN
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=True&loc=Local",
		c.Username, c.Password, c.Host, c.Port, c.Database, c.Charset)
}

// SQLiteConfig SQLite 连接配置
type SQLiteConfig struct {
	Name string `mapstructure:"name" json:"name" yaml:"name"` // 连接器名称 (默认: "default")

	// Path 数据库文件路径，":memory:" 为内存数据库
	Path string `mapstructure:"path" json:"path" yaml:"path"`
}

func (c *SQLiteConfig) setDefaults() {
	if c.Name == "" {
		c.Name = "default"
	}
	if c.Path == "" {
		c.Path = ":memory:"
	}
}

func (c *SQLiteConfig) validate() error {
	if c == nil {
		return ErrConfig
	}
	return nil
}
