// Package observability 提供可观测性相关的子包。
//
// 子包列表：
//   - xmetrics: 锁事件观测接口与 OpenTelemetry 实现（指标、追踪）
//
// 设计原则：
//   - 遵循 OpenTelemetry 语义规范
//   - 默认 Noop 实现，热路径不分配
package observability
