package xretry

import retry "github.com/avast/retry-go/v5"

// 以下别名使调用方无需直接依赖 retry-go。
type (
	Option        = retry.Option
	DelayTypeFunc = retry.DelayTypeFunc
	DelayContext  = retry.DelayContext
)

var (
	// Attempts 设置总尝试次数（包含首次尝试），0 表示无限重试。
	Attempts       = retry.Attempts
	UntilSucceeded = retry.UntilSucceeded
	DelayType      = retry.DelayType
	OnRetry        = retry.OnRetry
	RetryIf        = retry.RetryIf
	Context        = retry.Context
	LastErrorOnly  = retry.LastErrorOnly

	// Unrecoverable 将错误标记为不可恢复（不再重试）
	Unrecoverable = retry.Unrecoverable
	IsRecoverable = retry.IsRecoverable
)
