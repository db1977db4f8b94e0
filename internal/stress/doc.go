// Package stress 在单个 xcell.Handle[[]int] 上运行并发争用测试。
//
// 每个 worker 持有自己的 Clone，重复获取独占锁并将向量每个元素加上 Amount，
// 间隔获取共享锁检查元素间差值不变。结束后 [Verify] 检查：
//   - 没有丢失更新：每个元素等于初始值加 Workers*Iterations*Amount
//   - 任意时刻最多一个独占持有者
//   - 共享读取从未看到写了一半的向量
package stress
