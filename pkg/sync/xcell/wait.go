package xcell

import (
	"context"
	"errors"
	"log/slog"
	"time"

	retry "github.com/avast/retry-go/v5"

	"github.com/omeyang/xcell/pkg/observability/xmetrics"
)

const (
	defaultWaitDelay    = time.Millisecond
	defaultWaitMaxDelay = 100 * time.Millisecond
)

// WaitOption 定义 [UnwrapWait] 可选配置。
type WaitOption func(*waitOptions)

type waitOptions struct {
	attempts uint
	delay    time.Duration
	maxDelay time.Duration
	observer xmetrics.Observer
}

// WithAttempts 设置最大尝试次数（含首次）。0 表示直到 ctx 结束，默认 0。
func WithAttempts(n uint) WaitOption {
	return func(o *waitOptions) {
		o.attempts = n
	}
}

// WithDelay 设置初始重试间隔与最大间隔。非正值被忽略。
func WithDelay(delay, maxDelay time.Duration) WaitOption {
	return func(o *waitOptions) {
		if delay > 0 {
			o.delay = delay
		}
		if maxDelay > 0 {
			o.maxDelay = maxDelay
		}
	}
}

// WithSpanObserver 设置记录 UnwrapWait 跨度的观测器。
// 未设置时，若 Handle 的锁观测器也实现了 [xmetrics.Observer] 则使用它。
func WithSpanObserver(observer xmetrics.Observer) WaitOption {
	return func(o *waitOptions) {
		o.observer = observer
	}
}

// UnwrapWait 反复调用 [Handle.TryUnwrap]，直到其他所有者释放、尝试次数耗尽或 ctx 结束。
//
// 仅 [ErrShared] 与 [ErrLocked] 会触发重试；失败返回时 h 保持不变。
func UnwrapWait[T any](ctx context.Context, h *Handle[T], opts ...WaitOption) (T, error) {
	var zero T
	if ctx == nil {
		return zero, ErrNilContext
	}
	if h == nil || h.s == nil {
		return zero, ErrNilHandle
	}
	o := waitOptions{delay: defaultWaitDelay, maxDelay: defaultWaitMaxDelay}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	if o.maxDelay < o.delay {
		o.maxDelay = o.delay
	}
	if o.observer == nil {
		// Cell 的锁观测器同时实现了跨度接口时（如 OTel 实现）直接复用。
		if so, ok := h.s.cell.opts.observer.(xmetrics.Observer); ok {
			o.observer = so
		}
	}

	cellOpts := h.s.cell.opts
	ctx, span := xmetrics.Start(ctx, o.observer, xmetrics.SpanOptions{
		Component: "xcell",
		Operation: "unwrap_wait",
		Attrs: []xmetrics.Attr{
			xmetrics.Uint64("handle_id", h.ID()),
			xmetrics.String("cell", cellOpts.name),
			xmetrics.Int64("refs", h.RefCount()),
		},
	})

	logger := cellOpts.logger
	start := time.Now()
	retries := 0
	retryOpts := []retry.Option{
		retry.Context(ctx),
		retry.Delay(o.delay),
		retry.MaxDelay(o.maxDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(retryableUnwrap),
		retry.OnRetry(func(n uint, err error) {
			retries++
			logger.LogAttrs(ctx, slog.LevelDebug, "xcell: unwrap retry",
				slog.Uint64("handle_id", h.ID()),
				slog.Uint64("attempt", uint64(n)+1),
				slog.String("reason", err.Error()),
			)
		}),
	}
	if o.attempts == 0 {
		retryOpts = append(retryOpts, retry.UntilSucceeded())
	} else {
		retryOpts = append(retryOpts, retry.Attempts(o.attempts))
	}

	v, err := retry.NewWithData[T](retryOpts...).Do(h.TryUnwrap)
	span.End(xmetrics.Result{
		Err: err,
		Attrs: []xmetrics.Attr{
			xmetrics.Bool("unwrapped", err == nil),
			xmetrics.Int("retries", retries),
			xmetrics.Duration("wait", time.Since(start)),
		},
	})
	if err != nil {
		return zero, err
	}
	return v, nil
}

func retryableUnwrap(err error) bool {
	return errors.Is(err, ErrShared) || errors.Is(err, ErrLocked)
}
