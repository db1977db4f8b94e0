package xcell

// Slot 是只能被取出一次的值存储。
//
// Take 之后对 Slot 的任何访问都会 panic：这表示调用方在值被取出后仍在使用它，
// 属于逻辑错误而非运行时状况。Slot 自身不做同步，由持有它的 Cell 串行化访问。
type Slot[T any] struct {
	value T
	taken bool
}

// NewSlot 创建装有 v 的 Slot。
func NewSlot[T any](v T) *Slot[T] {
	return &Slot[T]{value: v}
}

// Get 返回存储值的指针。值已被取出时 panic。
func (s *Slot[T]) Get() *T {
	if s.taken {
		panic(msgValueTaken)
	}
	return &s.value
}

// Take 取出存储值并清空 Slot，之后 Slot 不再引用该值。
// 只能调用一次，重复调用 panic。
func (s *Slot[T]) Take() T {
	if s.taken {
		panic(msgValueTaken)
	}
	v := s.value
	var zero T
	s.value = zero
	s.taken = true
	return v
}

// Taken 报告值是否已被取出。
func (s *Slot[T]) Taken() bool {
	return s.taken
}
