package xcell

import "sync/atomic"

// ExclusiveGuard 是独占访问令牌，持有期间可读写 Cell 中的值。
//
// 守卫不可复制。Release 恰好执行一次解锁，通常配合 defer 使用：
//
//	g := h.Lock()
//	defer g.Release()
type ExclusiveGuard[T any] struct {
	cell     *Cell[T]
	released atomic.Bool
}

// Value 返回值的指针，可直接修改。守卫释放后调用 panic。
// 返回的指针不得在 Release 之后继续使用。
func (g *ExclusiveGuard[T]) Value() *T {
	if g.released.Load() {
		panic(msgGuardReleased)
	}
	return g.cell.slot.Get()
}

// Set 替换 Cell 中的值。
func (g *ExclusiveGuard[T]) Set(v T) {
	*g.Value() = v
}

// Release 释放独占锁。
// 幂等：第一次调用返回 nil，后续调用返回 [ErrGuardReleased] 且不影响 Cell。
func (g *ExclusiveGuard[T]) Release() error {
	if !g.released.CompareAndSwap(false, true) {
		return ErrGuardReleased
	}
	g.cell.unlockExclusive()
	return nil
}

// SharedGuard 是共享读令牌，可与其他 SharedGuard 共存，但不与 ExclusiveGuard 共存。
type SharedGuard[T any] struct {
	cell     *Cell[T]
	released atomic.Bool
}

// Value 返回值的副本。守卫释放后调用 panic。
// 切片、map、指针等引用类型的内容只读，修改它们必须通过 ExclusiveGuard。
func (g *SharedGuard[T]) Value() T {
	if g.released.Load() {
		panic(msgGuardReleased)
	}
	return *g.cell.slot.Get()
}

// Release 释放共享锁。
// 幂等：第一次调用返回 nil，后续调用返回 [ErrGuardReleased] 且不影响 Cell。
func (g *SharedGuard[T]) Release() error {
	if !g.released.CompareAndSwap(false, true) {
		return ErrGuardReleased
	}
	g.cell.unlockShared()
	return nil
}

// ptr 供包内只读访问使用（Record 字段 getter 需要 *T）。
func (g *SharedGuard[T]) ptr() *T {
	if g.released.Load() {
		panic(msgGuardReleased)
	}
	return g.cell.slot.Get()
}
