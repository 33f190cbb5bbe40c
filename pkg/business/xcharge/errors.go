package xcharge

import "errors"

var (
	// ErrConcurrencyBusy 乐观重试次数耗尽仍发生版本冲突，调用方可稍后重试。
	ErrConcurrencyBusy = errors.New("xcharge: concurrency busy, try again later")

	// ErrInvalidRetryLimit 重试上限小于 1。
	ErrInvalidRetryLimit = errors.New("xcharge: retry limit must be at least 1")

	// ErrInterrupted 重试等待期间 ctx 被取消，同时包装 ctx.Err()。
	ErrInterrupted = errors.New("xcharge: charge interrupted")

	// ErrInvalidConfig 配置值非法。
	ErrInvalidConfig = errors.New("xcharge: invalid config")

	// ErrNilDependency 缺少必需的依赖（存储或执行器）。
	ErrNilDependency = errors.New("xcharge: nil dependency")
)
