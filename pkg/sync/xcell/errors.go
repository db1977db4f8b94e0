package xcell

import "errors"

var (
	// ErrGuardReleased 表示守卫已释放。
	// Release 第二次及后续调用时返回此错误。
	ErrGuardReleased = errors.New("xcell: guard already released")

	// ErrHandleReleased 表示 Handle 已释放（Release 或成功的 TryUnwrap 之后）。
	ErrHandleReleased = errors.New("xcell: handle already released")

	// ErrShared 表示仍存在其他指向同一 Cell 的 Handle，无法独占取出值。
	ErrShared = errors.New("xcell: cell is shared by other handles")

	// ErrLocked 表示 Cell 上仍有未释放的守卫，无法取出值。
	ErrLocked = errors.New("xcell: cell has outstanding guards")

	// ErrReadOnlyField 表示字段没有 setter。
	ErrReadOnlyField = errors.New("xcell: field is read-only")

	// ErrNilHandle 表示传入了 nil 或零值 Handle。
	ErrNilHandle = errors.New("xcell: nil handle")

	// ErrNilContext 表示 context 参数为 nil。
	ErrNilContext = errors.New("xcell: nil context")

	// ErrInvalidSpinConfig 表示自旋配置无效。
	ErrInvalidSpinConfig = errors.New("xcell: invalid spin config")
)

// 前置条件违反时的 panic 信息。
// 这些情况属于调用方的逻辑错误（释放后继续使用），不作为可恢复错误返回。
const (
	msgValueTaken      = "xcell: value already taken"
	msgGuardReleased   = "xcell: use of released guard"
	msgHandleReleased  = "xcell: use of released handle"
	msgZeroHandle      = "xcell: use of zero Handle, create it with New"
	msgUnlockUnlocked  = "xcell: unlock of unlocked cell"
	msgUnlockNoReaders = "xcell: shared unlock without readers"
)
