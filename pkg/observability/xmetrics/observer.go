package xmetrics

import (
	"context"
	"strconv"
	"time"
)

// Mode 表示锁模式。
type Mode int

const (
	// ModeExclusive 表示独占锁。
	ModeExclusive Mode = iota
	// ModeShared 表示共享锁。
	ModeShared
)

// String 返回 Mode 的可读字符串表示。
func (m Mode) String() string {
	switch m {
	case ModeExclusive:
		return "exclusive"
	case ModeShared:
		return "shared"
	default:
		return "Mode(" + strconv.Itoa(int(m)) + ")"
	}
}

// Outcome 表示一次取值尝试的结果。
type Outcome string

const (
	// OutcomeOK 表示取值成功。
	OutcomeOK Outcome = "ok"
	// OutcomeShared 表示仍有其他所有者。
	OutcomeShared Outcome = "shared"
	// OutcomeLocked 表示仍有未释放的守卫。
	OutcomeLocked Outcome = "locked"
)

// LockObserver 观测锁事件。方法在加锁/解锁路径上同步调用，实现必须并发安全且不阻塞。
type LockObserver interface {
	// ObserveAcquire 记录一次成功获取。spins 为等待轮询次数，无竞争时为 0，wait 同理。
	ObserveAcquire(mode Mode, spins int, wait time.Duration)
	// ObserveRelease 记录一次释放。
	ObserveRelease(mode Mode)
	// ObserveUnwrap 记录一次取值尝试。
	ObserveUnwrap(outcome Outcome)
}

// Status 表示观测结果状态。
type Status string

const (
	// StatusOK 表示成功。
	StatusOK Status = "ok"
	// StatusError 表示失败。
	StatusError Status = "error"
)

// Attr 表示观测属性。
type Attr struct {
	Key   string
	Value any
}

// SpanOptions 定义观测跨度的创建参数。
type SpanOptions struct {
	// Component 标识组件名称。
	Component string
	// Operation 标识操作名称。
	Operation string
	// Attrs 附加属性。
	Attrs []Attr
}

// Result 表示观测跨度结束时的结果。
type Result struct {
	// Status 表示操作状态；为空时根据 Err 推导。
	Status Status
	// Err 表示操作错误。
	Err error
	// Attrs 附加属性。
	Attrs []Attr
}

// Span 表示一次观测跨度。
type Span interface {
	// End 结束观测并记录结果。
	End(result Result)
}

// Observer 观测阻塞型操作。
type Observer interface {
	// Start 开始一次观测跨度。
	Start(ctx context.Context, opts SpanOptions) (context.Context, Span)
}

// NoopObserver 是空实现，同时满足 [LockObserver] 与 [Observer]。
type NoopObserver struct{}

// ObserveAcquire 空实现。
func (NoopObserver) ObserveAcquire(Mode, int, time.Duration) {}

// ObserveRelease 空实现。
func (NoopObserver) ObserveRelease(Mode) {}

// ObserveUnwrap 空实现。
func (NoopObserver) ObserveUnwrap(Outcome) {}

// Start 返回 ctx 和空跨度。若 ctx 为 nil，返回 context.Background()。
func (NoopObserver) Start(ctx context.Context, _ SpanOptions) (context.Context, Span) {
	if ctx == nil {
		ctx = context.Background()
	}
	return ctx, NoopSpan{}
}

// NoopSpan 是空跨度实现。
type NoopSpan struct{}

// End 空实现。
func (NoopSpan) End(Result) {}

// Start 使用 observer 开始观测，nil observer 时返回空跨度。
// 保证返回非 nil 的 context 与 Span：自定义 Observer 返回 nil 时兜底。
func Start(ctx context.Context, observer Observer, opts SpanOptions) (context.Context, Span) {
	if ctx == nil {
		ctx = context.Background()
	}
	if observer == nil {
		return ctx, NoopSpan{}
	}
	retCtx, span := observer.Start(ctx, opts)
	if retCtx == nil {
		retCtx = ctx
	}
	if span == nil {
		span = NoopSpan{}
	}
	return retCtx, span
}

// 编译期接口检查。
var (
	_ LockObserver = NoopObserver{}
	_ Observer     = NoopObserver{}
	_ Span         = NoopSpan{}
)
