package testkit

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/ceyewan/surge/connector"
	"github.com/ceyewan/surge/db"
)

// NewSQLiteConfig 返回 SQLite 内存数据库配置
func NewSQLiteConfig() *connector.SQLiteConfig {
	return &connector.SQLiteConfig{
		Path: "file::memory:?cache=shared",
	}
}

// NewSQLiteConnector 获取 SQLite 连接器（内存数据库）
// 生命周期由 t.Cleanup 管理
func NewSQLiteConnector(t *testing.T) connector.SQLiteConnector {
	cfg := NewSQLiteConfig()
	conn, err := connector.NewSQLite(cfg, connector.WithLogger(NewLogger()))
	require.NoError(t, err, "failed to create sqlite connector")

	err = conn.Connect(context.Background())
	require.NoError(t, err, "failed to connect to sqlite")

	t.Cleanup(func() {
		_ = conn.Close()
	})

	return conn
}

// NewSQLiteGorm 获取原生 GORM 实例（内存数据库）
func NewSQLiteGorm(t *testing.T) *gorm.DB {
	return NewSQLiteConnector(t).GetDB()
}

// NewSQLiteDB 获取 db 组件实例（内存数据库，静默日志）
// 生命周期由 t.Cleanup 管理
func NewSQLiteDB(t *testing.T) db.DB {
	conn := NewSQLiteConnector(t)

	database, err := db.New(&db.Config{Driver: "sqlite"},
		db.WithSQLiteConnector(conn),
		db.WithLogger(NewLogger()),
		db.WithSilentMode(),
	)
	require.NoError(t, err, "failed to create db component")

	t.Cleanup(func() {
		_ = database.Close()
	})

	return database
}
