package xconf

import "errors"

var (
	ErrEmptyPath         = errors.New("xconf: empty config path")
	ErrUnsupportedFormat = errors.New("xconf: unsupported config format")

	// ErrLoadFailed 读取配置文件失败，包装底层 IO 错误。
	ErrLoadFailed = errors.New("xconf: failed to load config")
	// ErrParseFailed 配置内容不是合法的 YAML/JSON。
	ErrParseFailed = errors.New("xconf: failed to parse config")
	// ErrUnmarshalFailed 配置值无法解码到目标结构，例如非法的时长字符串。
	ErrUnmarshalFailed = errors.New("xconf: failed to unmarshal config")
)
