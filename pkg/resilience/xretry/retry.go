package xretry

import (
	"context"
	"time"
)

// RetryPolicy 定义重试策略接口。
//
// 通过 Retryer 使用时，MaxAttempts 设置 retry-go 的 Attempts 上限，
// ShouldRetry 在每次失败后被调用。Unrecoverable 错误在 ShouldRetry 之前被拦截。
type RetryPolicy interface {
	// MaxAttempts 返回最大尝试次数（包含首次尝试），0 表示无限重试。
	MaxAttempts() int

	// ShouldRetry 判断是否应该重试，attempt 为已失败次数（从 1 开始）。
	ShouldRetry(ctx context.Context, attempt int, err error) bool
}

// BackoffPolicy 定义退避策略接口。
type BackoffPolicy interface {
	// NextDelay 返回第 attempt 次失败后的等待时间（attempt 从 1 开始）。
	NextDelay(attempt int) time.Duration
}
