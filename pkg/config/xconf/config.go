package xconf

// Format 定义配置文件格式。
type Format string

// 支持的配置格式。
const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// Config 定义配置接口。
type Config interface {
	// Unmarshal 将指定路径的配置反序列化到目标结构体，path 为空时反序列化整个配置。
	Unmarshal(path string, target any) error

	// Path 返回配置文件路径，从字节数据创建时为空。
	Path() string

	// Format 返回配置格式。
	Format() Format
}
