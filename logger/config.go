package logger

import (
	"fmt"
	"strings"
)

// Config 日志配置.
type Config struct {
	Type        string `json:"type" yaml:"type" mapstructure:"type"`
	ServiceName string `json:"service_name" yaml:"service_name" mapstructure:"service_name"`
	Level       string `json:"level" yaml:"level" mapstructure:"level"`
	// SDKLevel rocketmq-client-go 内部日志的最低级别，SDK 在 info 级别非常嘈杂
	SDKLevel string `json:"sdk_level" yaml:"sdk_level" mapstructure:"sdk_level"`
	Format      string `json:"format" yaml:"format" mapstructure:"format"`

	// 输出配置
	Output  string `json:"output" yaml:"output" mapstructure:"output"`
	LogFile string `json:"log_file" yaml:"log_file" mapstructure:"log_file"`

	EnableCaller     bool `json:"enable_caller" yaml:"enable_caller" mapstructure:"enable_caller"`
	EnableStacktrace bool `json:"enable_stacktrace" yaml:"enable_stacktrace" mapstructure:"enable_stacktrace"`

	// 编码器配置
	TimeFormat string `json:"time_format" yaml:"time_format" mapstructure:"time_format"`
	TimeKey    string `json:"time_key" yaml:"time_key" mapstructure:"time_key"`
	LevelKey   string `json:"level_key" yaml:"level_key" mapstructure:"level_key"`
	MessageKey string `json:"message_key" yaml:"message_key" mapstructure:"message_key"`
	CallerKey  string `json:"caller_key" yaml:"caller_key" mapstructure:"caller_key"`
}

// ConfigError 配置错误.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("logger config error [%s]: %s", e.Field, e.Message)
}

// Validate 验证配置.
func (c *Config) Validate() error {
	if c == nil {
		return &ConfigError{Field: "config", Message: "config cannot be nil"}
	}

	checks := []struct {
		field string
		value string
		valid func(string) bool
	}{
		{field: "level", value: c.Level, valid: isValidLevel},
		{field: "sdk_level", value: c.SDKLevel, valid: isValidLevel},
		{field: "format", value: c.Format, valid: isValidFormat},
		{field: "output", value: c.Output, valid: isValidOutput},
	}
	for _, check := range checks {
		if check.value != "" && !check.valid(check.value) {
			return &ConfigError{Field: check.field, Message: "invalid " + check.field + ": " + check.value}
		}
	}

	if c.needsFileOutput() && c.LogFile == "" {
		return &ConfigError{Field: "log_file", Message: "log_file is required when output is file or both"}
	}
	return nil
}

// ApplyDefaults 应用默认值.
func (c *Config) ApplyDefaults() {
	if c.Type == "" {
		c.Type = TypeZap
	}
	if c.Level == "" {
		c.Level = LevelInfo
	}
	if c.SDKLevel == "" {
		c.SDKLevel = LevelWarn
	}
	if c.Format == "" {
		c.Format = FormatJSON
	}
	if c.Output == "" {
		c.Output = OutputConsole
	}
	if c.ServiceName == "" {
		c.ServiceName = "rocketmq"
	}
	if c.TimeKey == "" {
		c.TimeKey = "timestamp"
	}
	if c.LevelKey == "" {
		c.LevelKey = "level"
	}
	if c.MessageKey == "" {
		c.MessageKey = "msg"
	}
	if c.CallerKey == "" {
		c.CallerKey = "caller"
	}
	if c.TimeFormat == "" {
		c.TimeFormat = TimeFormatDateTime
	}
}

func (c *Config) needsFileOutput() bool {
	output := strings.ToLower(c.Output)
	return output == OutputFile || output == OutputBoth
}

func (c *Config) needsConsoleOutput() bool {
	output := strings.ToLower(c.Output)
	return output == OutputConsole || output == OutputBoth
}

func isValidLevel(level string) bool {
	switch strings.ToLower(level) {
	case LevelDebug, LevelInfo, LevelWarn, "warning", LevelError, LevelFatal, LevelPanic:
		return true
	}
	return false
}

func isValidFormat(format string) bool {
	switch strings.ToLower(format) {
	case FormatJSON, FormatConsole:
		return true
	}
	return false
}

func isValidOutput(output string) bool {
	switch strings.ToLower(output) {
	case OutputConsole, OutputFile, OutputBoth:
		return true
	}
	return false
}

// DefaultConfig 返回默认配置.
func DefaultConfig() *Config {
	config := &Config{}
	config.ApplyDefaults()
	return config
}

// NewDevConfig 返回开发环境配置.
func NewDevConfig() *Config {
	return &Config{
		Type:         TypeZap,
		Level:        LevelDebug,
		SDKLevel:     LevelInfo,
		Format:       FormatConsole,
		Output:       OutputConsole,
		EnableCaller: true,
	}
}
