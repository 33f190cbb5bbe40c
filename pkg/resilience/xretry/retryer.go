package xretry

import (
	"context"
	"math"
	"time"

	retry "github.com/avast/retry-go/v5"
)

func safeIntToUint(n int) uint {
	if n <= 0 {
		return 0
	}
	return uint(n)
}

func safeUintToInt(n uint) int {
	if n > uint(math.MaxInt) {
		return math.MaxInt
	}
	return int(n)
}

// Retryer 组合 RetryPolicy 与 BackoffPolicy，底层使用 retry-go/v5 执行。
type Retryer struct {
	retryPolicy   RetryPolicy
	backoffPolicy BackoffPolicy
	onRetry       func(attempt int, err error)
}

// RetryerOption 执行器配置选项
type RetryerOption func(*Retryer)

// WithRetryPolicy 设置重试策略
func WithRetryPolicy(p RetryPolicy) RetryerOption {
	return func(r *Retryer) {
		if p != nil {
			r.retryPolicy = p
		}
	}
}

// WithBackoffPolicy 设置退避策略
func WithBackoffPolicy(p BackoffPolicy) RetryerOption {
	return func(r *Retryer) {
		if p != nil {
			r.backoffPolicy = p
		}
	}
}

// WithOnRetry 设置重试回调，attempt 为已失败次数（从 1 开始）。
func WithOnRetry(f func(attempt int, err error)) RetryerOption {
	return func(r *Retryer) {
		if f != nil {
			r.onRetry = f
		}
	}
}

// NewRetryer 创建重试执行器，默认 FixedRetry(3) + ExponentialBackoff。
func NewRetryer(opts ...RetryerOption) *Retryer {
	r := &Retryer{
		retryPolicy:   NewFixedRetry(3),
		backoffPolicy: NewExponentialBackoff(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Do 执行带重试的操作，返回最后一次尝试的错误。
// 退避等待期间 ctx 取消时返回 ctx 的错误。
func (r *Retryer) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if fn == nil {
		return ErrNilFunc
	}
	_, err := DoWithResult(ctx, r, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// DoWithResult 执行带重试的操作（有返回值）。
func DoWithResult[T any](ctx context.Context, r *Retryer, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if r == nil {
		return zero, ErrNilRetryer
	}
	if ctx == nil {
		return zero, ErrNilContext
	}
	if fn == nil {
		return zero, ErrNilFunc
	}
	return retry.NewWithData[T](r.buildOptions(ctx)...).Do(func() (T, error) {
		return fn(ctx)
	})
}

func (r *Retryer) buildOptions(ctx context.Context) []Option {
	retryPolicy := r.retryPolicy
	if retryPolicy == nil {
		retryPolicy = NewFixedRetry(3)
	}
	backoffPolicy := r.backoffPolicy
	if backoffPolicy == nil {
		backoffPolicy = NewExponentialBackoff()
	}

	opts := make([]Option, 0, 6)
	opts = append(opts, Context(ctx))

	if maxAttempts := retryPolicy.MaxAttempts(); maxAttempts <= 0 {
		opts = append(opts, UntilSucceeded())
	} else {
		opts = append(opts, Attempts(safeIntToUint(maxAttempts)))
	}

	// failures 为已失败次数（1-based），与 ShouldRetry 的 attempt 语义一致。
	// 每次 Do 构建独立闭包，不存在并发访问。
	failures := 0
	opts = append(opts, RetryIf(func(err error) bool {
		failures++
		if !IsRecoverable(err) {
			return false
		}
		return retryPolicy.ShouldRetry(ctx, failures, err)
	}))

	// retry-go v5 中 DelayType 的 n 从 1 开始
	opts = append(opts, DelayType(ToDelayType(backoffPolicy)))

	if r.onRetry != nil {
		// OnRetry 的 n 从 0 开始
		opts = append(opts, OnRetry(func(n uint, err error) {
			r.onRetry(safeUintToInt(n)+1, err)
		}))
	}

	opts = append(opts, LastErrorOnly(true))
	return opts
}

// ToDelayType 将 BackoffPolicy 转换为 retry-go 的 DelayTypeFunc。
func ToDelayType(policy BackoffPolicy) DelayTypeFunc {
	if policy == nil {
		return func(uint, error, DelayContext) time.Duration { return 0 }
	}
	return func(n uint, _ error, _ DelayContext) time.Duration {
		return policy.NextDelay(safeUintToInt(n))
	}
}
