// Package config 提供配置加载和热更新功能.
//
// 基于 viper 读取 yaml/json/toml 等格式，支持环境变量覆盖；
// Watch 监听配置文件变化并回调最新配置，用于 rocketmq 组件的重建.
package config

import (
	"path/filepath"
	"strings"
)

// Validatable 可验证的配置接口.
//
// 加载后自动调用，rocketmq.Config 即实现了该接口.
type Validatable interface {
	Validate() error
}

// GetConfigType 根据文件扩展名获取配置类型.
func GetConfigType(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		return "yaml"
	case ".json":
		return "json"
	case ".toml":
		return "toml"
	case ".properties":
		return "properties"
	case ".env":
		return "env"
	default:
		return ""
	}
}
