package config

import (
	"strings"
	"time"
)

// Options 配置加载选项.
type Options struct {
	// EnvPrefix 环境变量前缀，例如 "ROCKETMQ" 会将 ROCKETMQ_GROUP_NAME 映射到 group_name
	EnvPrefix string

	// EnvKeyReplacer 环境变量键替换器，默认将 . 替换为 _
	EnvKeyReplacer *strings.Replacer

	// AutomaticEnv 是否自动绑定环境变量
	AutomaticEnv bool

	// AllowEmptyEnv 是否允许空环境变量值覆盖配置
	AllowEmptyEnv bool

	// EnvKeys 显式绑定的键，配置文件中缺失的键只有绑定后才能被环境变量覆盖
	EnvKeys []string

	// ConfigType 显式指定配置文件类型（yaml, json, toml 等）
	ConfigType string

	// Defaults 默认配置值
	Defaults map[string]any

	// WatchDebounce Watch 合并连续文件事件的等待时间，一次保存常产生多个写事件
	WatchDebounce time.Duration
}

// DefaultOptions 返回默认选项.
func DefaultOptions() *Options {
	return &Options{
		EnvKeyReplacer: strings.NewReplacer(".", "_"),
		AutomaticEnv:   true,
		WatchDebounce:  100 * time.Millisecond,
	}
}

// Option 配置选项函数.
type Option func(*Options)

// WithEnvPrefix 设置环境变量前缀.
func WithEnvPrefix(prefix string) Option {
	return func(o *Options) {
		o.EnvPrefix = prefix
	}
}

// WithBindEnv 显式绑定环境变量键.
func WithBindEnv(keys ...string) Option {
	return func(o *Options) {
		o.EnvKeys = append(o.EnvKeys, keys...)
	}
}

// WithDefaults 设置默认值.
func WithDefaults(defaults map[string]any) Option {
	return func(o *Options) {
		o.Defaults = defaults
	}
}

// WithConfigType 显式指定配置文件类型.
func WithConfigType(configType string) Option {
	return func(o *Options) {
		o.ConfigType = configType
	}
}

// WithWatchDebounce 设置 Watch 的事件合并时间，非正数表示每个事件立即重新加载.
func WithWatchDebounce(d time.Duration) Option {
	return func(o *Options) {
		o.WatchDebounce = d
	}
}
