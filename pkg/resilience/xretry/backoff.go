package xretry

import (
	"math"
	"math/rand/v2"
	"time"
)

// FixedBackoff 固定延迟退避策略
type FixedBackoff struct {
	delay time.Duration
}

// NewFixedBackoff 创建固定延迟退避策略
func NewFixedBackoff(delay time.Duration) *FixedBackoff {
	if delay < 0 {
		delay = 0
	}
	return &FixedBackoff{delay: delay}
}

func (b *FixedBackoff) NextDelay(_ int) time.Duration {
	return b.delay
}

// ExponentialBackoff 指数退避策略（无抖动）
// delay = min(initialDelay * multiplier^(attempt-1), maxDelay)
type ExponentialBackoff struct {
	initialDelay time.Duration
	maxDelay     time.Duration
	multiplier   float64
}

// ExponentialBackoffOption 指数退避配置选项
type ExponentialBackoffOption func(*ExponentialBackoff)

// WithInitialDelay 设置初始延迟，d <= 0 时忽略。
func WithInitialDelay(d time.Duration) ExponentialBackoffOption {
	return func(b *ExponentialBackoff) {
		if d > 0 {
			b.initialDelay = d
		}
	}
}

// WithMaxDelay 设置最大延迟，d <= 0 时忽略。
func WithMaxDelay(d time.Duration) ExponentialBackoffOption {
	return func(b *ExponentialBackoff) {
		if d > 0 {
			b.maxDelay = d
		}
	}
}

// WithMultiplier 设置乘数因子，小于 1.0 时忽略。
func WithMultiplier(m float64) ExponentialBackoffOption {
	return func(b *ExponentialBackoff) {
		if m >= 1 {
			b.multiplier = m
		}
	}
}

// NewExponentialBackoff 创建指数退避策略。
// 默认 initialDelay=100ms、maxDelay=30s、multiplier=2.0。
func NewExponentialBackoff(opts ...ExponentialBackoffOption) *ExponentialBackoff {
	b := &ExponentialBackoff{
		initialDelay: 100 * time.Millisecond,
		maxDelay:     30 * time.Second,
		multiplier:   2.0,
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.maxDelay < b.initialDelay {
		b.maxDelay = b.initialDelay
	}
	return b
}

func (b *ExponentialBackoff) NextDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := float64(b.initialDelay) * math.Pow(b.multiplier, float64(attempt-1))
	// attempt 极大时 math.Pow 溢出为 +Inf
	if math.IsNaN(delay) || delay >= float64(b.maxDelay) {
		return b.maxDelay
	}
	return time.Duration(delay)
}

// FullJitterBackoff 完全抖动退避策略。
//
// 第 n 次失败后的基准为 min(initial*2^(n-1), max)，实际延迟在 [0, 基准] 闭区间内均匀选取。
type FullJitterBackoff struct {
	base   *ExponentialBackoff
	random func(n int64) int64
}

// NewFullJitterBackoff 创建完全抖动退避策略。
func NewFullJitterBackoff(initial, maxDelay time.Duration) *FullJitterBackoff {
	return &FullJitterBackoff{
		base: NewExponentialBackoff(
			WithInitialDelay(initial),
			WithMaxDelay(maxDelay),
			WithMultiplier(2),
		),
		random: rand.Int64N,
	}
}

// Ceiling 返回第 attempt 次失败后抖动区间的上界。
func (b *FullJitterBackoff) Ceiling(attempt int) time.Duration {
	return b.base.NextDelay(attempt)
}

func (b *FullJitterBackoff) NextDelay(attempt int) time.Duration {
	ceiling := b.Ceiling(attempt)
	if ceiling <= 0 {
		return 0
	}
	return time.Duration(b.random(int64(ceiling) + 1))
}

// NoBackoff 无延迟退避策略
type NoBackoff struct{}

// NewNoBackoff 创建无延迟退避策略
func NewNoBackoff() *NoBackoff {
	return &NoBackoff{}
}

func (b *NoBackoff) NextDelay(_ int) time.Duration {
	return 0
}

var (
	_ BackoffPolicy = (*FixedBackoff)(nil)
	_ BackoffPolicy = (*ExponentialBackoff)(nil)
	_ BackoffPolicy = (*FullJitterBackoff)(nil)
	_ BackoffPolicy = (*NoBackoff)(nil)
)
