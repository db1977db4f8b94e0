// Package sync 提供并发原语相关的子包。
//
// 子包列表：
//   - xcell: 引用计数的自旋读写共享单元
package sync
