package logger

import (
	"context"
	"io"
	"os"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// stdout 控制台输出目标，测试中可替换.
var stdout io.Writer = os.Stdout

// zapLogger zap 日志实现.
type zapLogger struct {
	logger *zap.Logger
	sugar  *zap.SugaredLogger
	level  zap.AtomicLevel
	close  func()
}

// newZapLogger 创建 zap logger.
func newZapLogger(config *Config) (Logger, error) {
	level := zap.NewAtomicLevelAt(ParseLevel(config.Level))
	encoder := buildEncoder(config)

	var (
		cores   []zapcore.Core
		closeFn = func() {}
	)

	if config.needsFileOutput() {
		sink, closeSink, err := zap.Open(config.LogFile)
		if err != nil {
			return nil, &ConfigError{Field: "log_file", Message: "failed to open log file: " + err.Error()}
		}
		closeFn = closeSink
		cores = append(cores, zapcore.NewCore(encoder, sink, level))
	}
	if config.needsConsoleOutput() {
		cores = append(cores, zapcore.NewCore(encoder, zapcore.Lock(zapcore.AddSync(stdout)), level))
	}

	var options []zap.Option
	if config.EnableCaller {
		options = append(options, zap.AddCaller(), zap.AddCallerSkip(1))
	}
	if config.EnableStacktrace {
		options = append(options, zap.AddStacktrace(zapcore.ErrorLevel))
	}

	zapLog := zap.New(zapcore.NewTee(cores...), options...).Named(config.ServiceName)
	return &zapLogger{
		logger: zapLog,
		sugar:  zapLog.Sugar(),
		level:  level,
		close:  closeFn,
	}, nil
}

// NewNop 返回丢弃所有输出的 logger.
//
// 组件未配置 logger 时使用.
func NewNop() Logger {
	l := zap.NewNop()
	return &zapLogger{
		logger: l,
		sugar:  l.Sugar(),
		level:  zap.NewAtomicLevelAt(zapcore.InfoLevel),
		close:  func() {},
	}
}

// NewFromZap 包装已有的 zap.Logger.
func NewFromZap(l *zap.Logger) Logger {
	return &zapLogger{
		logger: l,
		sugar:  l.Sugar(),
		level:  zap.NewAtomicLevelAt(l.Level()),
		close:  func() {},
	}
}

func (z *zapLogger) Debug(args ...any)                 { z.sugar.Debug(args...) }
func (z *zapLogger) Debugf(format string, args ...any) { z.sugar.Debugf(format, args...) }
func (z *zapLogger) Info(args ...any)                  { z.sugar.Info(args...) }
func (z *zapLogger) Infof(format string, args ...any)  { z.sugar.Infof(format, args...) }
func (z *zapLogger) Warn(args ...any)                  { z.sugar.Warn(args...) }
func (z *zapLogger) Warnf(format string, args ...any)  { z.sugar.Warnf(format, args...) }
func (z *zapLogger) Error(args ...any)                 { z.sugar.Error(args...) }
func (z *zapLogger) Errorf(format string, args ...any) { z.sugar.Errorf(format, args...) }
func (z *zapLogger) Fatal(args ...any)                 { z.sugar.Fatal(args...) }
func (z *zapLogger) Fatalf(format string, args ...any) { z.sugar.Fatalf(format, args...) }

// With 返回带有附加字段的 logger.
func (z *zapLogger) With(fields ...Field) Logger {
	zapFields := make([]zap.Field, len(fields))
	for i, f := range fields {
		zapFields[i] = toZapField(f)
	}

	newLogger := z.logger.With(zapFields...)
	return &zapLogger{
		logger: newLogger,
		sugar:  newLogger.Sugar(),
		level:  z.level,
		close:  z.close,
	}
}

// toZapField 将 Field 转换为 zap.Field.
func toZapField(f Field) zap.Field {
	switch v := f.Value.(type) {
	case string:
		return zap.String(f.Key, v)
	case []string:
		return zap.Strings(f.Key, v)
	case int:
		return zap.Int(f.Key, v)
	case int64:
		return zap.Int64(f.Key, v)
	case int32:
		return zap.Int32(f.Key, v)
	case float64:
		return zap.Float64(f.Key, v)
	case bool:
		return zap.Bool(f.Key, v)
	case time.Time:
		return zap.Time(f.Key, v)
	case time.Duration:
		return zap.Duration(f.Key, v)
	case error:
		return zap.NamedError(f.Key, v)
	default:
		return zap.Reflect(f.Key, v)
	}
}

// WithContext 返回带有 context 中 trace 信息的 logger.
func (z *zapLogger) WithContext(ctx context.Context) Logger {
	if ctx == nil {
		return z
	}

	var fields []Field
	if traceID, ok := ctx.Value(TraceIDKey).(string); ok && traceID != "" {
		fields = append(fields, Field{Key: "traceId", Value: traceID})
	}
	if spanID, ok := ctx.Value(SpanIDKey).(string); ok && spanID != "" {
		fields = append(fields, Field{Key: "spanId", Value: spanID})
	}
	if len(fields) == 0 {
		return z
	}
	return z.With(fields...)
}

// SetLevel 动态调整日志级别，无法识别的级别按 info 处理.
func (z *zapLogger) SetLevel(level string) {
	z.level.SetLevel(ParseLevel(level))
}

// Enabled 判断给定级别是否会输出.
func (z *zapLogger) Enabled(level string) bool {
	return z.logger.Core().Enabled(ParseLevel(level))
}

// Sync 同步日志缓冲区.
func (z *zapLogger) Sync() error {
	return z.logger.Sync()
}

// Close 关闭 logger 并释放文件句柄.
func (z *zapLogger) Close() error {
	// stdout 的 sync 错误可以忽略: https://github.com/uber-go/zap/issues/328
	_ = z.logger.Sync()
	z.close()
	return nil
}
