package xcell

import "sync"

// Cloner 由支持显式复制的类型实现。Clone 必须返回与接收者互不共享可变状态的副本。
type Cloner[T any] interface {
	Clone() T
}

// Mutex 是由 sync.Mutex 保护的值，作为 Handle 转出到标准互斥锁时的目标类型。
type Mutex[T any] struct {
	mu    sync.Mutex
	value T
}

// NewMutex 创建持有 v 的 Mutex。
func NewMutex[T any](v T) *Mutex[T] {
	return &Mutex[T]{value: v}
}

// Lock 加锁并返回值指针和解锁函数。解锁后不得再使用该指针。
func (m *Mutex[T]) Lock() (*T, func()) {
	m.mu.Lock()
	return &m.value, m.mu.Unlock
}

// With 在锁保护下调用 fn。
func (m *Mutex[T]) With(fn func(v *T)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fn(&m.value)
}

// Load 返回值的副本。
func (m *Mutex[T]) Load() T {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.value
}

// IntoPointer 将值移出 Handle 并放入新分配的指针。
//
// 这是所有权转移而非复制：只有 h 是唯一所有者时才会成功，
// 失败时返回 [Handle.TryUnwrap] 的错误，h 保持不变。
func IntoPointer[T any](h *Handle[T]) (*T, error) {
	v, err := h.TryUnwrap()
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// IntoMutex 将值移出 Handle 并放入新的 [Mutex]，语义同 [IntoPointer]。
func IntoMutex[T any](h *Handle[T]) (*Mutex[T], error) {
	v, err := h.TryUnwrap()
	if err != nil {
		return nil, err
	}
	return NewMutex(v), nil
}

// ClonePointer 在共享锁保护下调用值的 Clone，返回独立副本的指针。h 仍然有效。
func ClonePointer[T Cloner[T]](h *Handle[T]) *T {
	v := cloneShared(h)
	return &v
}

// CloneMutex 在共享锁保护下复制值并放入新的 [Mutex]。h 仍然有效。
func CloneMutex[T Cloner[T]](h *Handle[T]) *Mutex[T] {
	return NewMutex(cloneShared(h))
}

func cloneShared[T Cloner[T]](h *Handle[T]) T {
	g := h.LockShared()
	defer g.Release() //nolint:errcheck // 首次 Release 必然成功
	return (*g.ptr()).Clone()
}
