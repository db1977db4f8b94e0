package xcell

import (
	"fmt"
	"strconv"
)

// Record 将一个普通结构体整体放入单个 Handle，通过 [Field] 描述符按字段读写。
//
// 读取在共享锁下进行，写入在独占锁下进行。Record 的相等性同样按身份比较。
//
//	type user struct {
//		Name string
//		Age  int
//	}
//
//	var (
//		userName = xcell.ReadOnly("name", func(u *user) string { return u.Name })
//		userAge  = xcell.Mutable("age",
//			func(u *user) int { return u.Age },
//			func(u *user, v int) { u.Age = v })
//	)
//
//	rec := xcell.NewRecord(user{Name: "alice", Age: 30})
//	_ = xcell.Set(rec, userAge, 31)
//	age := xcell.Get(rec, userAge)
type Record[R any] struct {
	h *Handle[R]
}

// NewRecord 创建持有 base 的 Record。
func NewRecord[R any](base R, opts ...Option) *Record[R] {
	return &Record[R]{h: New(base, opts...)}
}

// RecordOf 使用已有 Handle 构造 Record，Record 接管该 Handle 的所有权。
func RecordOf[R any](h *Handle[R]) *Record[R] {
	return &Record[R]{h: h}
}

// Handle 返回底层 Handle。
func (r *Record[R]) Handle() *Handle[R] {
	return r.h
}

// Clone 返回共享同一结构体的 Record。
func (r *Record[R]) Clone() *Record[R] {
	return &Record[R]{h: r.h.Clone()}
}

// Equal 报告两个 Record 是否共享同一结构体。
func (r *Record[R]) Equal(other *Record[R]) bool {
	if r == nil || other == nil {
		return r == other
	}
	return r.h.Equal(other.h)
}

// Snapshot 在共享锁下返回整个结构体的副本。
func (r *Record[R]) Snapshot() R {
	g := r.h.LockShared()
	defer g.Release() //nolint:errcheck // 首次 Release 必然成功
	return g.Value()
}

// Update 在独占锁下修改整个结构体。
func (r *Record[R]) Update(fn func(base *R)) {
	r.h.Update(fn)
}

// Release 放弃该 Record 的所有权。
func (r *Record[R]) Release() error {
	return r.h.Release()
}

// Unwrap 在唯一所有者时取出结构体，语义同 [Handle.TryUnwrap]。
func (r *Record[R]) Unwrap() (R, error) {
	return r.h.TryUnwrap()
}

// String 返回 Record 的身份描述。
func (r *Record[R]) String() string {
	return "xcell.Record#" + strconv.FormatUint(r.h.ID(), 10)
}

// Field 描述结构体 R 中类型为 V 的一个字段。
type Field[R, V any] struct {
	name string
	get  func(*R) V
	set  func(*R, V)
}

// ReadOnly 创建只读字段描述符。get 不能为 nil。
func ReadOnly[R, V any](name string, get func(*R) V) Field[R, V] {
	if get == nil {
		panic("xcell: field getter cannot be nil")
	}
	return Field[R, V]{name: name, get: get}
}

// Mutable 创建可写字段描述符。get 与 set 都不能为 nil。
func Mutable[R, V any](name string, get func(*R) V, set func(*R, V)) Field[R, V] {
	if get == nil || set == nil {
		panic("xcell: field accessors cannot be nil")
	}
	return Field[R, V]{name: name, get: get, set: set}
}

// Name 返回字段名。
func (f Field[R, V]) Name() string {
	return f.name
}

// Writable 报告字段是否可写。
func (f Field[R, V]) Writable() bool {
	return f.set != nil
}

// Get 在共享锁下读取字段。
func Get[R, V any](r *Record[R], f Field[R, V]) V {
	g := r.h.LockShared()
	defer g.Release() //nolint:errcheck // 首次 Release 必然成功
	return f.get(g.ptr())
}

// Set 在独占锁下写入字段。只读字段返回 [ErrReadOnlyField]，不加锁。
func Set[R, V any](r *Record[R], f Field[R, V], v V) error {
	if f.set == nil {
		return fmt.Errorf("%w: %s", ErrReadOnlyField, f.name)
	}
	g := r.h.Lock()
	defer g.Release() //nolint:errcheck // 首次 Release 必然成功
	f.set(g.Value(), v)
	return nil
}
