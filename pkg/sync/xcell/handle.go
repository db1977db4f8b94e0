package xcell

import (
	"strconv"
	"sync/atomic"

	"github.com/omeyang/xcell/pkg/observability/xmetrics"
)

// nextID 为每个新 Cell 分配身份标识，从 1 开始单调递增。
var nextID atomic.Uint64

// shared 是同一 Cell 的所有 Handle 共享的状态。
type shared[T any] struct {
	cell *Cell[T]
	refs atomic.Int64
	id   uint64
}

// Handle 是指向 Cell 的引用计数句柄。
//
// Clone 得到的 Handle 与原 Handle 指向同一个 Cell，拥有相同身份；
// 相等性按身份比较而不是按值比较。每个 Handle 是一个所有者，
// 用完后调用 Release；最后一个所有者释放时 Cell 清空其值。
//
// 单个 *Handle 不应被多个 goroutine 同时 Release/TryUnwrap/Clone：
// TryUnwrap 期间引用计数会短暂为 0，并发的 Clone 会因此 panic。
// 跨 goroutine 共享时应先在本 goroutine 内 Clone，再把结果交给对方。
//
// 零值 Handle 不可用，必须通过 [New] 创建。零值上只有 Equal、ID、
// RefCount、Released 与 String 可以安全调用。
type Handle[T any] struct {
	s        *shared[T]
	released atomic.Bool
}

// New 创建持有 v 的 Handle，引用计数为 1。
func New[T any](v T, opts ...Option) *Handle[T] {
	s := &shared[T]{
		cell: NewCell(v, opts...),
		id:   nextID.Add(1),
	}
	s.refs.Store(1)
	return &Handle[T]{s: s}
}

// cell 返回底层 Cell，Handle 已释放时 panic。
func (h *Handle[T]) cell() *Cell[T] {
	if h.s == nil {
		panic(msgZeroHandle)
	}
	if h.released.Load() {
		panic(msgHandleReleased)
	}
	return h.s.cell
}

// Lock 返回独占守卫，见 [Cell.LockExclusive]。
func (h *Handle[T]) Lock() *ExclusiveGuard[T] {
	return h.cell().LockExclusive()
}

// LockShared 返回共享守卫，见 [Cell.LockShared]。
func (h *Handle[T]) LockShared() *SharedGuard[T] {
	return h.cell().LockShared()
}

// TryLock 尝试一次独占加锁，不自旋。
func (h *Handle[T]) TryLock() (*ExclusiveGuard[T], bool) {
	return h.cell().TryLockExclusive()
}

// TryLockShared 尝试一次共享加锁，不自旋。
func (h *Handle[T]) TryLockShared() (*SharedGuard[T], bool) {
	return h.cell().TryLockShared()
}

// Read 在共享锁保护下调用 fn。
func (h *Handle[T]) Read(fn func(v T)) {
	g := h.LockShared()
	defer g.Release() //nolint:errcheck // 首次 Release 必然成功
	fn(g.Value())
}

// Update 在独占锁保护下调用 fn，fn 可通过指针修改值。
func (h *Handle[T]) Update(fn func(v *T)) {
	g := h.Lock()
	defer g.Release() //nolint:errcheck // 首次 Release 必然成功
	fn(g.Value())
}

// Peek 即时读取值，语义同 [Cell.Borrow]。
func (h *Handle[T]) Peek(fn func(v T)) {
	h.cell().Borrow(fn)
}

// Clone 增加引用计数并返回指向同一 Cell 的新 Handle。
func (h *Handle[T]) Clone() *Handle[T] {
	if h.s == nil {
		panic(msgZeroHandle)
	}
	if h.released.Load() {
		panic(msgHandleReleased)
	}
	for {
		n := h.s.refs.Load()
		if n <= 0 {
			panic(msgHandleReleased)
		}
		if h.s.refs.CompareAndSwap(n, n+1) {
			return &Handle[T]{s: h.s}
		}
	}
}

// Equal 报告两个 Handle 是否指向同一个 Cell，与值内容无关。
// 两个 nil Handle 相等；nil 与非 nil 不相等。
func (h *Handle[T]) Equal(other *Handle[T]) bool {
	if h == nil || other == nil {
		return h == other
	}
	if h.s == nil || other.s == nil {
		return h == other
	}
	return h.s.id == other.s.id
}

// ID 返回身份标识。同一 Cell 的所有 Handle 返回相同值，释放后仍可调用。
// 零值 Handle 返回 0，New 分配的标识从 1 开始。
func (h *Handle[T]) ID() uint64 {
	if h.s == nil {
		return 0
	}
	return h.s.id
}

// RefCount 返回当前存活的 Handle 数量（瞬时快照）。
func (h *Handle[T]) RefCount() int64 {
	if h.s == nil {
		return 0
	}
	return h.s.refs.Load()
}

// Released 报告该 Handle 是否已释放或已被 TryUnwrap 消耗。
func (h *Handle[T]) Released() bool {
	return h.released.Load()
}

// Release 放弃该 Handle 的所有权。
// 幂等：第一次调用返回 nil，后续调用返回 [ErrHandleReleased]。
// 最后一个所有者释放时 Cell 清空其值。
func (h *Handle[T]) Release() error {
	if h.s == nil {
		return ErrNilHandle
	}
	if !h.released.CompareAndSwap(false, true) {
		return ErrHandleReleased
	}
	if h.s.refs.Add(-1) == 0 {
		h.s.cell.dispose()
	}
	return nil
}

// TryUnwrap 在该 Handle 是唯一所有者且没有未释放守卫时取出值并消耗 Handle。
//
// 失败时 Handle 保持不变（身份、引用计数不变，可继续使用），返回：
//   - [ErrShared]：仍有其他 Handle
//   - [ErrLocked]：仍有未释放的守卫
//   - [ErrHandleReleased]：Handle 已释放
func (h *Handle[T]) TryUnwrap() (T, error) {
	var zero T
	if h == nil || h.s == nil {
		return zero, ErrNilHandle
	}
	if h.released.Load() {
		return zero, ErrHandleReleased
	}
	s := h.s
	obs := s.cell.opts.observer
	if !s.refs.CompareAndSwap(1, 0) {
		obs.ObserveUnwrap(xmetrics.OutcomeShared)
		return zero, ErrShared
	}
	if !s.cell.tryLockExclusive() {
		s.refs.Store(1)
		obs.ObserveUnwrap(xmetrics.OutcomeLocked)
		return zero, ErrLocked
	}
	v := s.cell.intoInner()
	s.cell.exclusive.Store(false)
	h.released.Store(true)
	obs.ObserveUnwrap(xmetrics.OutcomeOK)
	return v, nil
}

// String 返回 Handle 的身份描述，不访问值。
func (h *Handle[T]) String() string {
	if h == nil || h.s == nil {
		return "xcell.Handle<nil>"
	}
	return "xcell.Handle#" + strconv.FormatUint(h.s.id, 10)
}
