package stress

import "fmt"

const (
	maxWorkers = 1 << 12
	maxSize    = 1 << 20
)

// Config 定义一次压测的规模，可由 xconf 从 "stress" 段反序列化。
type Config struct {
	// Workers 并发 goroutine 数量。
	Workers int `koanf:"workers" json:"workers"`

	// Iterations 每个 worker 执行的独占写入次数。
	Iterations int `koanf:"iterations" json:"iterations"`

	// Amount 每次写入给每个元素增加的值。
	Amount int `koanf:"amount" json:"amount"`

	// Size 向量长度。
	Size int `koanf:"size" json:"size"`

	// CheckEvery 每隔多少次写入做一次共享读取检查，0 表示不检查。
	CheckEvery int `koanf:"check_every" json:"check_every"`
}

// DefaultConfig 返回默认压测配置。
func DefaultConfig() Config {
	return Config{
		Workers:    4,
		Iterations: 10000,
		Amount:     1,
		Size:       32,
		CheckEvery: 64,
	}
}

// Validate 检查配置范围。
func (c Config) Validate() error {
	switch {
	case c.Workers < 1 || c.Workers > maxWorkers:
		return fmt.Errorf("%w: workers must be in [1, %d], got %d", ErrInvalidConfig, maxWorkers, c.Workers)
	case c.Iterations < 0:
		return fmt.Errorf("%w: iterations must not be negative, got %d", ErrInvalidConfig, c.Iterations)
	case c.Size < 1 || c.Size > maxSize:
		return fmt.Errorf("%w: size must be in [1, %d], got %d", ErrInvalidConfig, maxSize, c.Size)
	case c.CheckEvery < 0:
		return fmt.Errorf("%w: check_every must not be negative, got %d", ErrInvalidConfig, c.CheckEvery)
	}
	return nil
}

// Total 返回每个元素的期望增量。
func (c Config) Total() int {
	return c.Workers * c.Iterations * c.Amount
}
