package xmetrics

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	defaultInstrumentationName = "github.com/omeyang/xcell/xmetrics"
	unknownComponent           = "unknown"
	unknownOperation           = "unknown"

	metricAcquireTotal      = "xcell.acquire.total"
	metricAcquireSpins      = "xcell.acquire.spins"
	metricAcquireWait       = "xcell.acquire.wait"
	metricReleaseTotal      = "xcell.release.total"
	metricUnwrapTotal       = "xcell.unwrap.total"
	metricOperationTotal    = "xcell.operation.total"
	metricOperationDuration = "xcell.operation.duration"
)

// spinBuckets 自旋次数直方图边界，覆盖从无竞争到重度争用。
var spinBuckets = []float64{0, 1, 4, 16, 64, 256, 1024, 4096, 16384}

type otelConfig struct {
	instrumentationName string
	tracerProvider      trace.TracerProvider
	meterProvider       metric.MeterProvider
}

// Option 定义 OTel Observer 的配置选项。
type Option func(*otelConfig)

// WithInstrumentationName 设置 OTel instrumentation 名称。
func WithInstrumentationName(name string) Option {
	return func(cfg *otelConfig) {
		if name != "" {
			cfg.instrumentationName = name
		}
	}
}

// WithTracerProvider 设置 TracerProvider。
func WithTracerProvider(provider trace.TracerProvider) Option {
	return func(cfg *otelConfig) {
		if provider != nil {
			cfg.tracerProvider = provider
		}
	}
}

// WithMeterProvider 设置 MeterProvider。
func WithMeterProvider(provider metric.MeterProvider) Option {
	return func(cfg *otelConfig) {
		if provider != nil {
			cfg.meterProvider = provider
		}
	}
}

// OTelObserver 是基于 OpenTelemetry 的观测器，同时实现 [LockObserver] 与 [Observer]。
type OTelObserver struct {
	tracer       trace.Tracer
	acquireTotal metric.Int64Counter
	acquireSpins metric.Int64Histogram
	acquireWait  metric.Float64Histogram
	releaseTotal metric.Int64Counter
	unwrapTotal  metric.Int64Counter
	opTotal      metric.Int64Counter
	opDuration   metric.Float64Histogram

	// 热路径上的属性集预先构造，避免每次记录分配。
	modeAttrs    [2]metric.MeasurementOption
	outcomeAttrs map[Outcome]metric.MeasurementOption
}

// NewOTelObserver 创建基于 OpenTelemetry 的观测器。
// 未指定 provider 时使用 otel 全局 provider。
func NewOTelObserver(opts ...Option) (*OTelObserver, error) {
	cfg := &otelConfig{
		instrumentationName: defaultInstrumentationName,
		tracerProvider:      otel.GetTracerProvider(),
		meterProvider:       otel.GetMeterProvider(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(cfg)
		}
	}

	meter := cfg.meterProvider.Meter(cfg.instrumentationName)
	o := &OTelObserver{tracer: cfg.tracerProvider.Tracer(cfg.instrumentationName)}

	var err error
	if o.acquireTotal, err = meter.Int64Counter(metricAcquireTotal,
		metric.WithDescription("lock acquisitions"), metric.WithUnit("1")); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCreateCounter, metricAcquireTotal, err)
	}
	if o.acquireSpins, err = meter.Int64Histogram(metricAcquireSpins,
		metric.WithDescription("spin polls per acquisition"), metric.WithUnit("1"),
		metric.WithExplicitBucketBoundaries(spinBuckets...)); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCreateHistogram, metricAcquireSpins, err)
	}
	if o.acquireWait, err = meter.Float64Histogram(metricAcquireWait,
		metric.WithDescription("time spent spinning per acquisition"), metric.WithUnit("s")); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCreateHistogram, metricAcquireWait, err)
	}
	if o.releaseTotal, err = meter.Int64Counter(metricReleaseTotal,
		metric.WithDescription("lock releases"), metric.WithUnit("1")); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCreateCounter, metricReleaseTotal, err)
	}
	if o.unwrapTotal, err = meter.Int64Counter(metricUnwrapTotal,
		metric.WithDescription("unwrap attempts"), metric.WithUnit("1")); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCreateCounter, metricUnwrapTotal, err)
	}
	if o.opTotal, err = meter.Int64Counter(metricOperationTotal,
		metric.WithDescription("total operations"), metric.WithUnit("1")); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCreateCounter, metricOperationTotal, err)
	}
	if o.opDuration, err = meter.Float64Histogram(metricOperationDuration,
		metric.WithDescription("operation duration"), metric.WithUnit("s")); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCreateHistogram, metricOperationDuration, err)
	}

	for _, m := range []Mode{ModeExclusive, ModeShared} {
		o.modeAttrs[m] = metric.WithAttributeSet(attribute.NewSet(attribute.String("mode", m.String())))
	}
	o.outcomeAttrs = make(map[Outcome]metric.MeasurementOption, 3)
	for _, oc := range []Outcome{OutcomeOK, OutcomeShared, OutcomeLocked} {
		o.outcomeAttrs[oc] = metric.WithAttributeSet(attribute.NewSet(attribute.String("outcome", string(oc))))
	}
	return o, nil
}

func (o *OTelObserver) modeOption(mode Mode) metric.MeasurementOption {
	if mode == ModeShared {
		return o.modeAttrs[ModeShared]
	}
	return o.modeAttrs[ModeExclusive]
}

// ObserveAcquire 记录一次获取。
func (o *OTelObserver) ObserveAcquire(mode Mode, spins int, wait time.Duration) {
	ctx := context.Background()
	attrs := o.modeOption(mode)
	o.acquireTotal.Add(ctx, 1, attrs)
	o.acquireSpins.Record(ctx, int64(spins), attrs)
	o.acquireWait.Record(ctx, wait.Seconds(), attrs)
}

// ObserveRelease 记录一次释放。
func (o *OTelObserver) ObserveRelease(mode Mode) {
	o.releaseTotal.Add(context.Background(), 1, o.modeOption(mode))
}

// ObserveUnwrap 记录一次取值尝试。未知 outcome 记为其字符串值。
func (o *OTelObserver) ObserveUnwrap(outcome Outcome) {
	attrs, ok := o.outcomeAttrs[outcome]
	if !ok {
		attrs = metric.WithAttributes(attribute.String("outcome", string(outcome)))
	}
	o.unwrapTotal.Add(context.Background(), 1, attrs)
}

// Start 开始一次观测跨度。
func (o *OTelObserver) Start(ctx context.Context, opts SpanOptions) (context.Context, Span) {
	if ctx == nil {
		ctx = context.Background()
	}
	component := opts.Component
	if component == "" {
		component = unknownComponent
	}
	operation := opts.Operation
	if operation == "" {
		operation = unknownOperation
	}

	attrs := make([]attribute.KeyValue, 0, 2+len(opts.Attrs))
	attrs = append(attrs,
		attribute.String("component", component),
		attribute.String("operation", operation),
	)
	attrs = append(attrs, attrsToOTel(opts.Attrs)...)

	ctx, span := o.tracer.Start(ctx, operation,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attrs...),
	)
	return ctx, &otelSpan{
		span:      span,
		observer:  o,
		ctx:       ctx,
		component: component,
		operation: operation,
		start:     time.Now(),
	}
}

type otelSpan struct {
	span      trace.Span
	observer  *OTelObserver
	ctx       context.Context
	component string
	operation string
	start     time.Time
	endOnce   sync.Once
}

// End 结束观测并记录结果。幂等：多次调用只记录一次。
func (s *otelSpan) End(result Result) {
	if s == nil {
		return
	}
	s.endOnce.Do(func() {
		status := resolveStatus(result)
		if result.Err != nil {
			s.span.RecordError(result.Err)
		}
		if status == StatusError {
			msg := "operation failed"
			if result.Err != nil {
				msg = result.Err.Error()
			}
			s.span.SetStatus(codes.Error, msg)
		} else {
			s.span.SetStatus(codes.Ok, "")
		}
		if len(result.Attrs) > 0 {
			s.span.SetAttributes(attrsToOTel(result.Attrs)...)
		}
		s.span.End()

		// 请求 context 可能已取消，指标仍需记录。
		metricsCtx := context.WithoutCancel(s.ctx)
		attrs := metric.WithAttributes(
			attribute.String("component", s.component),
			attribute.String("operation", s.operation),
			attribute.String("status", string(status)),
		)
		s.observer.opTotal.Add(metricsCtx, 1, attrs)
		s.observer.opDuration.Record(metricsCtx, time.Since(s.start).Seconds(), attrs)
	})
}

func resolveStatus(result Result) Status {
	if result.Status != "" {
		return result.Status
	}
	if result.Err != nil {
		return StatusError
	}
	return StatusOK
}

func attrsToOTel(attrs []Attr) []attribute.KeyValue {
	if len(attrs) == 0 {
		return nil
	}
	converted := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if attr.Key == "" || attr.Value == nil {
			continue
		}
		converted = append(converted, toKeyValue(attr))
	}
	return converted
}

func toKeyValue(attr Attr) attribute.KeyValue {
	switch v := attr.Value.(type) {
	case string:
		return attribute.String(attr.Key, v)
	case bool:
		return attribute.Bool(attr.Key, v)
	case int:
		return attribute.Int(attr.Key, v)
	case int64:
		return attribute.Int64(attr.Key, v)
	case uint64:
		if v <= math.MaxInt64 {
			return attribute.Int64(attr.Key, int64(v))
		}
		return attribute.String(attr.Key, fmt.Sprint(v))
	case float64:
		return attribute.Float64(attr.Key, v)
	case time.Duration:
		return attribute.Int64(attr.Key, v.Nanoseconds())
	default:
		return attribute.String(attr.Key, fmt.Sprint(v))
	}
}

// 编译期接口检查。
var (
	_ LockObserver = (*OTelObserver)(nil)
	_ Observer     = (*OTelObserver)(nil)
	_ Span         = (*otelSpan)(nil)
)
