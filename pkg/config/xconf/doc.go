// Package xconf 基于 koanf 加载 YAML/JSON 配置，并反序列化到带 koanf 标签的结构体。
//
// xconf 只负责加载、反序列化和重新加载，不做环境变量覆盖或配置治理。
// 典型用法是先填入默认值，再用配置文件覆盖：
//
//	spin := xcell.DefaultSpinConfig()
//	if err := xconf.Decode(cfg, "spin", &spin); err != nil {
//		return err
//	}
//
// Decode 在反序列化之后，若 target 实现 [Validator] 则调用其 Validate。
//
// # 并发安全
//
// 当前 koanf 实例存放在 atomic.Pointer 中，Client 与 Unmarshal 无锁读取。
// Reload 通过互斥锁串行化，解析成功后才原子替换实例，失败时保留旧配置。
// Client 返回的是快照，Reload 之后旧指针仍可使用但数据已过期。
package xconf
