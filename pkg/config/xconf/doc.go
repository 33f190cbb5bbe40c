// Package xconf 提供配置加载和解析功能，基于 koanf 实现。
//
// xconf 只负责文件/字节数据的一次性加载与反序列化，
// 默认值与字段校验由使用方（如 xcharge.LoadConfig）负责。
//
// # 支持的格式
//
//   - YAML：.yaml, .yml
//   - JSON：.json
//
// # Unmarshal
//
// Unmarshal 使用 mapstructure 反序列化，允许弱类型转换，
// 时长字段可直接写作 "200ms"、"1s"。
//
// Config 创建后只读，可并发调用 Unmarshal。
package xconf
