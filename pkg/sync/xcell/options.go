package xcell

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/omeyang/xcell/pkg/observability/xmetrics"
)

const (
	defaultActiveSpins = 16
	defaultMaxBackoff  = 128
	maxActiveSpins     = 1 << 16
	maxBackoffLimit    = 1 << 12
)

// SpinConfig 定义自旋等待策略，可直接由 xconf 反序列化。
//
// 等待分两个阶段：先进行 ActiveSpins 次纯忙轮询，之后每轮调用 runtime.Gosched
// 让出处理器，让出次数按 2 的倍数递增，上限为 MaxBackoff。
type SpinConfig struct {
	// ActiveSpins 开始让出处理器之前的忙轮询次数。0 表示每次轮询都让出。默认 16。
	ActiveSpins int `koanf:"active_spins" json:"active_spins"`

	// MaxBackoff 单轮让出次数上限，必须 >= 1。默认 128。
	MaxBackoff int `koanf:"max_backoff" json:"max_backoff"`

	// SlowThreshold 获取锁等待超过该时长时记录一条 Warn 日志。0 表示关闭。
	SlowThreshold time.Duration `koanf:"slow_threshold" json:"slow_threshold"`
}

// DefaultSpinConfig 返回默认自旋策略。
func DefaultSpinConfig() SpinConfig {
	return SpinConfig{
		ActiveSpins: defaultActiveSpins,
		MaxBackoff:  defaultMaxBackoff,
	}
}

// Validate 检查配置是否在有效范围内。
func (c SpinConfig) Validate() error {
	if c.ActiveSpins < 0 || c.ActiveSpins > maxActiveSpins {
		return fmt.Errorf("%w: active_spins must be in [0, %d], got %d",
			ErrInvalidSpinConfig, maxActiveSpins, c.ActiveSpins)
	}
	if c.MaxBackoff < 1 || c.MaxBackoff > maxBackoffLimit {
		return fmt.Errorf("%w: max_backoff must be in [1, %d], got %d",
			ErrInvalidSpinConfig, maxBackoffLimit, c.MaxBackoff)
	}
	if c.SlowThreshold < 0 {
		return fmt.Errorf("%w: slow_threshold must not be negative, got %s",
			ErrInvalidSpinConfig, c.SlowThreshold)
	}
	return nil
}

// normalize 将越界字段替换为默认值，保证 New/NewCell 不会因配置失败。
func (c SpinConfig) normalize() SpinConfig {
	if c.ActiveSpins < 0 || c.ActiveSpins > maxActiveSpins {
		c.ActiveSpins = defaultActiveSpins
	}
	if c.MaxBackoff < 1 || c.MaxBackoff > maxBackoffLimit {
		c.MaxBackoff = defaultMaxBackoff
	}
	if c.SlowThreshold < 0 {
		c.SlowThreshold = 0
	}
	return c
}

// Option 定义 Cell/Handle 可选配置。
type Option func(*options)

type options struct {
	spin     SpinConfig
	observer xmetrics.LockObserver
	logger   *slog.Logger
	name     string
}

func defaultOptions() *options {
	return &options{
		spin:     DefaultSpinConfig(),
		observer: xmetrics.NoopObserver{},
		logger:   slog.Default(),
	}
}

// sharedDefaults 供未传入任何 Option 的 Cell 共用，避免每次构造都分配。
var sharedDefaults = defaultOptions()

func buildOptions(opts []Option) *options {
	if len(opts) == 0 {
		return sharedDefaults
	}
	o := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	return o
}

// WithSpinConfig 设置自旋策略。越界字段回退为默认值，需要严格校验时先调用 [SpinConfig.Validate]。
func WithSpinConfig(cfg SpinConfig) Option {
	cfg = cfg.normalize()
	return func(o *options) {
		o.spin = cfg
	}
}

// WithObserver 设置锁事件观测器。传入 nil 将被忽略。
func WithObserver(observer xmetrics.LockObserver) Option {
	return func(o *options) {
		if observer != nil {
			o.observer = observer
		}
	}
}

// WithLogger 设置日志记录器，默认 slog.Default()。传入 nil 将被忽略。
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithName 设置 Cell 名称，用于在日志中区分实例。
func WithName(name string) Option {
	return func(o *options) {
		o.name = name
	}
}
