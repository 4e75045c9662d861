package rocketmq

import (
	"sort"
	"sync/atomic"

	"github.com/apache/rocketmq-client-go/v2/rlog"
	"go.uber.org/zap/zapcore"

	"github.com/Tsukikage7/rocketmq-kit/logger"
)

// SetSDKLogger 将 rocketmq-client-go 内部日志转发到 logger.Logger.
//
// level 为转发的最低级别（对应 logger.Config.SDKLevel），为空时使用 warn.
// SDK 日志器是进程级全局变量，应在创建任何客户端之前调用一次.
func SetSDKLogger(log logger.Logger, level string) {
	if log == nil {
		return
	}
	rlog.SetLogger(newSDKLogger(log, level))
}

// sdkLogger 实现 rlog.Logger.
type sdkLogger struct {
	logger logger.Logger
	min    atomic.Int32
}

var _ rlog.Logger = (*sdkLogger)(nil)

func newSDKLogger(log logger.Logger, level string) *sdkLogger {
	l := &sdkLogger{logger: log.With(logger.String("component", "rocketmq-sdk"))}
	if level == "" {
		level = logger.LevelWarn
	}
	l.Level(level)
	return l
}

func (l *sdkLogger) Debug(msg string, fields map[string]interface{}) {
	if l.enabled(zapcore.DebugLevel) {
		l.with(fields).Debug(msg)
	}
}

func (l *sdkLogger) Info(msg string, fields map[string]interface{}) {
	if l.enabled(zapcore.InfoLevel) {
		l.with(fields).Info(msg)
	}
}

func (l *sdkLogger) Warning(msg string, fields map[string]interface{}) {
	if l.enabled(zapcore.WarnLevel) {
		l.with(fields).Warn(msg)
	}
}

func (l *sdkLogger) Error(msg string, fields map[string]interface{}) {
	if l.enabled(zapcore.ErrorLevel) {
		l.with(fields).Error(msg)
	}
}

// Fatal SDK 的致命日志按错误级别输出，不终止进程.
func (l *sdkLogger) Fatal(msg string, fields map[string]interface{}) {
	l.with(fields).Error(msg)
}

// Level 调整转发的最低级别，rlog.SetLogLevel 会调用该方法.
func (l *sdkLogger) Level(level string) {
	l.min.Store(int32(logger.ParseLevel(level)))
}

// OutputPath 输出位置由 logger.Logger 自身配置决定.
func (l *sdkLogger) OutputPath(string) error {
	return nil
}

func (l *sdkLogger) enabled(level zapcore.Level) bool {
	return int32(level) >= l.min.Load()
}

func (l *sdkLogger) with(fields map[string]interface{}) logger.Logger {
	if len(fields) == 0 {
		return l.logger
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fs := make([]logger.Field, 0, len(keys))
	for _, k := range keys {
		fs = append(fs, logger.Any(k, fields[k]))
	}
	return l.logger.With(fs...)
}
