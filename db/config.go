package db

import "github.com/ceyewan/surge/xerrors"

// Config DB 组件配置
type Config struct {
	// Driver 指定数据库驱动类型: "mysql" 或 "sqlite"
	// 默认值: "mysql"
	Driver string `mapstructure:"driver" json:"driver" yaml:"driver"`

	// EnableSharding 是否开启分表特性
	EnableSharding bool `mapstructure:"enable_sharding" json:"enable_sharding" yaml:"enable_sharding"`

	// ShardingRules 分片规则配置列表
	// 允许为不同的表组配置不同的分片规则
	ShardingRules []ShardingRule `mapstructure:"sharding_rules" json:"sharding_rules" yaml:"sharding_rules"`
}

// ShardingRule 分片规则
type ShardingRule struct {
	// ShardingKey 分片键 (例如 "user_id")
	ShardingKey string `mapstructure:"sharding_key" json:"sharding_key" yaml:"sharding_key"`

	// NumberOfShards 分片数量 (例如 64)
	NumberOfShards uint `mapstructure:"number_of_shards" json:"number_of_shards" yaml:"number_of_shards"`

	// Tables 应用此规则的逻辑表名列表 (例如 ["voucher_orders"])
	Tables []string `mapstructure:"tables" json:"tables" yaml:"tables"`
}

func (c *Config) setDefaults() {
	if c.Driver == "" {
		c.Driver = "mysql"
	}
}

func (c *Config) validate() error {
	if c.Driver != "mysql" && c.Driver != "sqlite" {
		return xerrors.Wrapf(xerrors.ErrInvalidInput, "unsupported driver: %s (must be 'mysql' or 'sqlite')", c.Driver)
	}

	if c.EnableSharding && len(c.ShardingRules) == 0 {
		return xerrors.Wrap(xerrors.ErrInvalidInput, "sharding enabled but no rules provided")
	}

	for _, rule := range c.ShardingRules {
		if rule.ShardingKey == "" {
			return xerrors.Wrap(xerrors.ErrInvalidInput, "sharding key cannot be empty")
		}
		if rule.NumberOfShards == 0 {
			return xerrors.Wrap(xerrors.ErrInvalidInput, "number of shards must be greater than 0")
		}
		if len(rule.Tables) == 0 {
			return xerrors.Wrap(xerrors.ErrInvalidInput, "sharding tables cannot be empty")
		}
	}
	return nil
}
