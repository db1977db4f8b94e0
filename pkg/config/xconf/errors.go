package xconf

import "errors"

// 配置加载和解析相关错误。
var (
	// ErrEmptyPath 表示配置文件路径为空。
	ErrEmptyPath = errors.New("xconf: empty config path")

	// ErrUnsupportedFormat 表示不支持的配置格式。
	ErrUnsupportedFormat = errors.New("xconf: unsupported config format")

	// ErrLoadFailed 表示配置文件读取失败。
	ErrLoadFailed = errors.New("xconf: failed to load config")

	// ErrParseFailed 表示配置解析失败。
	ErrParseFailed = errors.New("xconf: failed to parse config")

	// ErrUnmarshalFailed 表示配置反序列化失败。
	ErrUnmarshalFailed = errors.New("xconf: failed to unmarshal config")

	// ErrInvalidConfig 表示反序列化后的配置未通过 Validate。
	ErrInvalidConfig = errors.New("xconf: invalid config")

	// ErrReloadUnsupported 表示从字节数据创建的 Config 不能重新加载。
	ErrReloadUnsupported = errors.New("xconf: cannot reload config created from bytes")

	// ErrNilConfig 表示传入的 Config 为 nil。
	ErrNilConfig = errors.New("xconf: nil config")
)
