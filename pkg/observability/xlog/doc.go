// Package xlog 基于 log/slog 的结构化日志库。
//
// # 核心功能
//
//   - Builder 模式配置（输出目标、级别、格式、轮转）
//   - 自动从 context 注入 OTel trace_id / span_id（EnrichHandler，默认启用）
//   - 动态级别调整（运行时热更新）
//   - 全局 Logger 便利函数
//
// # 创建 Logger
//
// Builder 采用 first-error-wins：遇到第一个配置错误后，Build 返回该错误。
//
//	logger, cleanup, err := xlog.New().
//		SetLevel(xlog.LevelDebug).
//		SetFormat("json").
//		Build()
//	if err != nil {
//		return err
//	}
//	defer cleanup()
//
// # 库内使用约定
//
// xbalance 的各组件通过 WithLogger 选项注入 Logger，未注入时使用 [Discard]。
// 组件只在 Debug/Warn 级别记录协调细节（退避、回收、释放失败），
// 错误一律返回给调用方，不做"记录后吞掉"。
package xlog
