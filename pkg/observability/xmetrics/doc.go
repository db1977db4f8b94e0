// Package xmetrics 提供 xcell 的可观测性接口（metrics + tracing）。
//
// # 设计理念
//
// xmetrics 只定义最小化接口：
//   - [LockObserver]：锁获取/释放/取值事件，位于热路径，实现不得阻塞
//   - [Observer]：阻塞型、带 context 操作（如 UnwrapWait）的观测跨度
//
// 业务代码只依赖接口，默认实现 [NoopObserver]。
// [NewOTelObserver] 返回基于 OpenTelemetry 的实现，同时满足两个接口。
//
// # 使用示例
//
//	obs, _ := xmetrics.NewOTelObserver(xmetrics.WithMeterProvider(mp))
//	h := xcell.New(state, xcell.WithObserver(obs))
//
// # 指标命名
//
//   - xcell.acquire.total：获取次数（属性 mode）
//   - xcell.acquire.spins：每次获取的自旋次数（属性 mode）
//   - xcell.acquire.wait：每次获取的等待时长，秒（属性 mode）
//   - xcell.release.total：释放次数（属性 mode）
//   - xcell.unwrap.total：取值尝试次数（属性 outcome）
//   - xcell.operation.total / xcell.operation.duration：跨度（属性 component / operation / status）
package xmetrics
