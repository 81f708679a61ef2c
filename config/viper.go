package config

import (
	"context"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/ceyewan/surge/xerrors"
)

// loader 实现 Loader 接口
type loader struct {
	v         *viper.Viper
	opts      *Options
	mu        sync.RWMutex
	watches   map[string][]chan Event
	oldValues map[string]any
}

// New 创建配置加载器，需调用 Load 后方可使用
func New(opts ...Option) (Loader, error) {
	options := defaultOptions()
	for _, o := range opts {
		o(options)
	}

	return &loader{
		v:         viper.New(),
		opts:      options,
		watches:   make(map[string][]chan Event),
		oldValues: make(map[string]any),
	}, nil
}

// MustLoad 创建并加载配置，失败时 panic。仅用于初始化阶段。
func MustLoad(opts ...Option) Loader {
	l := xerrors.Must(New(opts...))
	if err := l.Load(context.Background()); err != nil {
		panic(err)
	}
	return l
}

// Load 初始化并从所有来源加载配置
func (l *loader) Load(ctx context.Context) error {
	l.v.SetConfigName(l.opts.Name)
	l.v.SetConfigType(l.opts.FileType)
	for _, path := range l.opts.Paths {
		l.v.AddConfigPath(path)
	}

	// 环境变量优先级最高
	l.v.SetEnvPrefix(l.opts.EnvPrefix)
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	l.v.AutomaticEnv()

	// .env 文件（可选，不存在不算错误）
	l.loadDotEnv()

	if err := l.v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return xerrors.Wrapf(err, "failed to read config file %s", l.opts.Name)
		}
		// 没有配置文件也可以只靠环境变量运行
	}

	l.captureCurrentValues()

	l.v.OnConfigChange(func(e fsnotify.Event) {
		l.notifyWatches(e)
	})
	l.v.WatchConfig()

	return nil
}

func (l *loader) loadDotEnv() {
	_ = godotenv.Load()
	for _, path := range l.opts.Paths {
		_ = godotenv.Load(filepath.Join(path, ".env"))
	}
}

func (l *loader) Get(key string) any {
	return l.v.Get(key)
}

func (l *loader) Unmarshal(v any) error {
	if err := l.v.Unmarshal(v); err != nil {
		return xerrors.Wrap(err, "failed to unmarshal config")
	}
	return nil
}

func (l *loader) UnmarshalKey(key string, v any) error {
	if err := l.v.UnmarshalKey(key, v); err != nil {
		return xerrors.Wrapf(err, "failed to unmarshal config key %s", key)
	}
	return nil
}

// Watch 监听指定 key 的配置变化
func (l *loader) Watch(ctx context.Context, key string) (<-chan Event, error) {
	ch := make(chan Event, 1)

	l.mu.Lock()
	l.watches[key] = append(l.watches[key], ch)
	l.mu.Unlock()

	go func() {
		<-ctx.Done()
		l.mu.Lock()
		defer l.mu.Unlock()
		chans := l.watches[key]
		for i, c := range chans {
			if c == ch {
				l.watches[key] = append(chans[:i], chans[i+1:]...)
				close(ch)
				break
			}
		}
	}()

	return ch, nil
}

// captureCurrentValues 保存当前所有配置值作为变更比较的基线
func (l *loader) captureCurrentValues() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, key := range l.v.AllKeys() {
		l.oldValues[key] = l.v.Get(key)
	}
}

// notifyWatches 配置文件变化后比较新旧值并通知订阅者
func (l *loader) notifyWatches(_ fsnotify.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	for key, chans := range l.watches {
		newVal := l.v.Get(key)
		oldVal := l.oldValues[key]
		if reflect.DeepEqual(newVal, oldVal) {
			continue
		}
		l.oldValues[key] = newVal

		ev := Event{
			Key:       key,
			Value:     newVal,
			OldValue:  oldVal,
			Source:    "file",
			Timestamp: now,
		}
		for _, ch := range chans {
			select {
			case ch <- ev:
			default:
				// 订阅者未及时消费时丢弃，避免阻塞回调
			}
		}
	}

	// 基线整体刷新，覆盖未被订阅的 key
	for _, key := range l.v.AllKeys() {
		l.oldValues[key] = l.v.Get(key)
	}
}
