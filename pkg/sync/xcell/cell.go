package xcell

import (
	"context"
	"log/slog"
	"sync/atomic"

	"golang.org/x/sys/cpu"

	"github.com/omeyang/xcell/pkg/observability/xmetrics"
)

// Cell 持有一个值及其锁状态。
//
// 任一时刻 Cell 处于以下三种状态之一：
//   - 未加锁：没有任何守卫
//   - 独占：恰好一个 [ExclusiveGuard]，readers == 0
//   - 共享：没有独占守卫，readers >= 1 个 [SharedGuard]
//
// 所有等待都是自旋轮询（可配置让出处理器），不会进入 OS 阻塞，
// 不提供公平性保证，也不支持递归加锁：同一 goroutine 在持有守卫时
// 再次加独占锁会永久自旋。
type Cell[T any] struct {
	exclusive atomic.Bool
	readers   atomic.Int64
	_         cpu.CacheLinePad
	slot      Slot[T]
	opts      *options
}

// NewCell 创建未加锁的 Cell。
func NewCell[T any](v T, opts ...Option) *Cell[T] {
	return &Cell[T]{
		slot: Slot[T]{value: v},
		opts: buildOptions(opts),
	}
}

// LockExclusive 自旋直到没有任何守卫，然后返回独占守卫。
//
// 先通过 CAS 抢占独占标记（抢到后新的读者无法进入），
// 再等待已注册的读者全部退出。该操作不会失败，只可能无限期延迟。
func (c *Cell[T]) LockExclusive() *ExclusiveGuard[T] {
	sp := newSpinner(&c.opts.spin)
	for !c.exclusive.CompareAndSwap(false, true) {
		sp.wait()
	}
	for c.readers.Load() > 0 {
		sp.wait()
	}
	c.acquired(xmetrics.ModeExclusive, &sp)
	return &ExclusiveGuard[T]{cell: c}
}

// LockShared 自旋直到没有写者，然后返回共享守卫。
//
// 读者先递增计数再复查独占标记：若此时写者已抢占标记则撤销计数重试。
// 这样写者看到 readers == 0 之后，任何读者都无法越过复查进入临界区。
func (c *Cell[T]) LockShared() *SharedGuard[T] {
	sp := newSpinner(&c.opts.spin)
	for {
		for c.exclusive.Load() {
			sp.wait()
		}
		c.readers.Add(1)
		if !c.exclusive.Load() {
			break
		}
		c.readers.Add(-1)
		sp.wait()
	}
	c.acquired(xmetrics.ModeShared, &sp)
	return &SharedGuard[T]{cell: c}
}

// TryLockExclusive 尝试一次独占加锁，不自旋。
func (c *Cell[T]) TryLockExclusive() (*ExclusiveGuard[T], bool) {
	if !c.tryLockExclusive() {
		return nil, false
	}
	c.opts.observer.ObserveAcquire(xmetrics.ModeExclusive, 0, 0)
	return &ExclusiveGuard[T]{cell: c}, true
}

// TryLockShared 尝试一次共享加锁，不自旋。
func (c *Cell[T]) TryLockShared() (*SharedGuard[T], bool) {
	if c.exclusive.Load() {
		return nil, false
	}
	c.readers.Add(1)
	if c.exclusive.Load() {
		c.readers.Add(-1)
		return nil, false
	}
	c.opts.observer.ObserveAcquire(xmetrics.ModeShared, 0, 0)
	return &SharedGuard[T]{cell: c}, true
}

// Borrow 在共享锁保护下调用 fn。
//
// fn 收到的是值的副本，引用类型的内容只能在 fn 内读取，不能保留到 fn 返回之后：
// 返回后其他 goroutine 可能加独占锁并修改它。
func (c *Cell[T]) Borrow(fn func(v T)) {
	g := c.LockShared()
	defer g.Release() //nolint:errcheck // 守卫刚创建，首次 Release 必然成功
	fn(*c.slot.Get())
}

// Locked 报告是否有独占守卫（或正在等待读者退出的写者）。仅用于诊断。
func (c *Cell[T]) Locked() bool {
	return c.exclusive.Load()
}

// Readers 返回当前登记的读者数。仅用于诊断。
func (c *Cell[T]) Readers() int64 {
	return c.readers.Load()
}

func (c *Cell[T]) tryLockExclusive() bool {
	if !c.exclusive.CompareAndSwap(false, true) {
		return false
	}
	if c.readers.Load() > 0 {
		c.exclusive.Store(false)
		return false
	}
	return true
}

func (c *Cell[T]) unlockExclusive() {
	if !c.exclusive.CompareAndSwap(true, false) {
		panic(msgUnlockUnlocked)
	}
	c.opts.observer.ObserveRelease(xmetrics.ModeExclusive)
}

func (c *Cell[T]) unlockShared() {
	if c.readers.Add(-1) < 0 {
		panic(msgUnlockNoReaders)
	}
	c.opts.observer.ObserveRelease(xmetrics.ModeShared)
}

// intoInner 取出值。调用方必须已证明独占所有权并持有独占锁。
func (c *Cell[T]) intoInner() T {
	return c.slot.Take()
}

// dispose 在最后一个 Handle 释放时清空 Slot，使值不再被 Cell 引用。
// 仍有守卫未释放时跳过，值随 Cell 一起交给 GC。
func (c *Cell[T]) dispose() {
	if !c.tryLockExclusive() {
		return
	}
	if !c.slot.Taken() {
		c.slot.Take()
	}
	c.exclusive.Store(false)
}

func (c *Cell[T]) acquired(mode xmetrics.Mode, sp *spinner) {
	wait := sp.waited()
	c.opts.observer.ObserveAcquire(mode, sp.spins, wait)
	if th := c.opts.spin.SlowThreshold; th > 0 && wait >= th {
		c.opts.logger.LogAttrs(context.Background(), slog.LevelWarn, "xcell: slow lock acquisition",
			slog.String("name", c.opts.name),
			slog.String("mode", mode.String()),
			slog.Int("spins", sp.spins),
			slog.Duration("wait", wait),
		)
	}
}
