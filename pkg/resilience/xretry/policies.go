package xretry

import "context"

// FixedRetryPolicy 固定次数重试策略
type FixedRetryPolicy struct {
	maxAttempts int
}

// NewFixedRetry 创建固定次数重试策略。maxAttempts 包含首次尝试，最小为 1。
func NewFixedRetry(maxAttempts int) *FixedRetryPolicy {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &FixedRetryPolicy{maxAttempts: maxAttempts}
}

func (p *FixedRetryPolicy) MaxAttempts() int {
	return p.maxAttempts
}

func (p *FixedRetryPolicy) ShouldRetry(ctx context.Context, attempt int, err error) bool {
	if ctx.Err() != nil || attempt >= p.maxAttempts {
		return false
	}
	return IsRetryable(err)
}

// PredicateRetryPolicy 仅对满足谓词的错误重试，其他错误立即返回。
type PredicateRetryPolicy struct {
	FixedRetryPolicy
	retryOn func(error) bool
}

// NewPredicateRetry 创建谓词重试策略。retryOn 为 nil 时退化为 NewFixedRetry。
func NewPredicateRetry(maxAttempts int, retryOn func(error) bool) *PredicateRetryPolicy {
	return &PredicateRetryPolicy{
		FixedRetryPolicy: *NewFixedRetry(maxAttempts),
		retryOn:          retryOn,
	}
}

func (p *PredicateRetryPolicy) ShouldRetry(ctx context.Context, attempt int, err error) bool {
	if !p.FixedRetryPolicy.ShouldRetry(ctx, attempt, err) {
		return false
	}
	return p.retryOn == nil || p.retryOn(err)
}

var (
	_ RetryPolicy = (*FixedRetryPolicy)(nil)
	_ RetryPolicy = (*PredicateRetryPolicy)(nil)
)
