package tracing

import (
	"context"
	"errors"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
)

// NewTracerProvider 创建 TracerProvider 并设置为全局.
//
// 未启用时返回不导出的 TracerProvider，也不修改全局设置.
// 使用完毕后调用 Shutdown 刷新尚未导出的 span，可通过 app.RegisterCleanup 注册.
func NewTracerProvider(cfg *Config) (*trace.TracerProvider, error) {
	if cfg == nil {
		return nil, ErrNilConfig
	}
	if !cfg.Enabled {
		return trace.NewTracerProvider(), nil
	}
	if cfg.ServiceName == "" {
		return nil, ErrEmptyServiceName
	}
	if cfg.Endpoint == "" {
		return nil, ErrEmptyEndpoint
	}

	// otlptracehttp 只接受 host:port
	endpoint := strings.TrimPrefix(strings.TrimPrefix(cfg.Endpoint, "http://"), "https://")
	opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(endpoint)}
	if !cfg.Secure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	if len(cfg.Headers) > 0 {
		opts = append(opts, otlptracehttp.WithHeaders(cfg.Headers))
	}

	exp, err := otlptracehttp.New(context.Background(), opts...)
	if err != nil {
		return nil, errors.Join(ErrCreateExporter, err)
	}

	res, err := resource.New(context.Background(),
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
		),
	)
	if err != nil {
		_ = exp.Shutdown(context.Background())
		return nil, errors.Join(ErrCreateResource, err)
	}

	tp := trace.NewTracerProvider(
		trace.WithBatcher(exp),
		trace.WithResource(res),
		trace.WithSampler(trace.ParentBased(trace.TraceIDRatioBased(samplingRate(cfg.SamplingRate)))),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	return tp, nil
}

// MustNewTracerProvider 创建 TracerProvider，失败时 panic.
func MustNewTracerProvider(cfg *Config) *trace.TracerProvider {
	tp, err := NewTracerProvider(cfg)
	if err != nil {
		panic(err)
	}
	return tp
}

func samplingRate(rate float64) float64 {
	if rate <= 0 || rate > 1 {
		return 1.0
	}
	return rate
}
