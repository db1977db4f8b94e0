package stress

import "errors"

var (
	// ErrInvalidConfig 表示压测配置非法。
	ErrInvalidConfig = errors.New("stress: invalid config")

	// ErrLostUpdate 表示最终向量与期望值不一致。
	ErrLostUpdate = errors.New("stress: lost update")

	// ErrMutualExclusion 表示观测到多个独占持有者同时存在。
	ErrMutualExclusion = errors.New("stress: mutual exclusion violated")

	// ErrTornRead 表示共享读取观测到部分写入的向量。
	ErrTornRead = errors.New("stress: torn read")
)
