package xconf

import "github.com/knadh/koanf/v2"

// Format 定义配置文件格式。
type Format string

// 支持的配置格式。
const (
	// FormatYAML YAML 格式。
	FormatYAML Format = "yaml"

	// FormatJSON JSON 格式。
	FormatJSON Format = "json"
)

// Config 定义配置接口。
// 基础读取请直接使用 Client() 返回的 koanf 实例。
type Config interface {
	// Client 返回当前 koanf 实例的快照。Reload 之后需重新获取。
	Client() *koanf.Koanf

	// Unmarshal 将 path 处的配置反序列化到 target，path 为空时反序列化整个配置。
	// target 中已有的字段值在配置缺失对应键时保留，可先填入默认值再调用。
	Unmarshal(path string, target any) error

	// Reload 重新读取配置文件，并发调用会被串行化。
	// 从字节数据创建的 Config 返回 [ErrReloadUnsupported]。
	Reload() error

	// Path 返回配置文件路径，从字节数据创建时为空。
	Path() string

	// Format 返回配置格式。
	Format() Format
}

// Validator 由能够自检的配置结构体实现，例如 xcell.SpinConfig。
type Validator interface {
	Validate() error
}
