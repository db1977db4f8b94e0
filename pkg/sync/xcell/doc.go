// Package xcell 提供基于自旋等待的引用计数共享单元。
//
// [Handle] 是指向 [Cell] 的引用计数句柄：可以获取独占守卫修改值，
// 也可以获取共享守卫并发读取。等待全部通过自旋轮询完成（可配置让出处理器），
// 不进入 OS 阻塞，适合临界区极短、锁持有时间可预测的场景。
//
// # 锁规则
//
//   - 独占排斥一切：持有 [ExclusiveGuard] 时没有任何其他守卫
//   - 共享只排斥独占：多个 [SharedGuard] 可以共存
//   - 写者先通过 CAS 抢占独占标记，再等待已登记读者退出
//   - 读者先登记再复查独占标记，发现写者则撤销登记重试
//
// sync/atomic 的操作是顺序一致的，上一个独占守卫内的写入对之后获取的
// 任何守卫（任意 Clone 出的 Handle）都可见。
//
// 不支持：panic 中毒、公平性保证、递归加锁、超时与取消（需要超时请使用 [UnwrapWait] 或 TryLock 系列）。
//
// # 守卫
//
// Go 没有析构函数，守卫需要显式 Release，推荐 defer：
//
//	g := h.Lock()
//	defer g.Release()
//	g.Value().Count++
//
// Release 幂等（第二次返回 [ErrGuardReleased]）。释放后访问守卫会 panic。
// 也可以使用闭包形式 [Handle.Read] / [Handle.Update]。
//
// # 身份与相等性
//
// 每个 Cell 在创建时分配一个进程内单调递增的身份标识，[Handle.Clone]
// 保留该标识。[Handle.Equal] 比较身份而不是值：两个独立创建、值相同的
// Handle 互不相等。
//
// # 所有权
//
// 每个 Handle 都是一个所有者，用完后调用 [Handle.Release]。
// [Handle.TryUnwrap] 仅在唯一所有者且没有未释放守卫时取出值，
// 失败时 Handle 原样保留（返回 [ErrShared] 或 [ErrLocked]）。
// 值被取出后 Cell 内部的 [Slot] 为空，任何残留访问都会 panic。
//
// # 转换
//
// [IntoPointer] / [IntoMutex] 通过 TryUnwrap 转移所有权，不会复制值；
// [ClonePointer] / [CloneMutex] 要求值实现 [Cloner]，显式复制。
// 不提供按内存字节复制的转换：对持有外部资源的值那会造成重复释放。
//
// # Record
//
// [Record] 与 [Field] 把普通结构体放入一个 Handle，按字段生成读写访问：
// [Get] 在共享锁下读取，[Set] 在独占锁下写入，只读字段返回 [ErrReadOnlyField]。
//
// # 可观测性
//
// [WithObserver] 接入 xmetrics 锁观测器（获取次数、自旋次数、等待时长），
// [WithSpinConfig] 设置 SlowThreshold 后，等待过久的获取会通过 [WithLogger]
// 指定的 slog.Logger 记录 Warn 日志。
package xcell
