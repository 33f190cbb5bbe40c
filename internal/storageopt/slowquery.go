package storageopt

import (
	"context"
	"sync/atomic"
	"time"
)

// SlowQueryHook 慢操作回调，在请求路径上同步执行，应保持轻量。
type SlowQueryHook[T any] func(ctx context.Context, info T)

// SlowQueryDetector 慢操作检测器，零阈值表示禁用。
type SlowQueryDetector[T any] struct {
	threshold time.Duration
	hook      SlowQueryHook[T]
	count     atomic.Int64
}

// NewSlowQueryDetector 创建慢操作检测器，hook 可为 nil（只计数）。
func NewSlowQueryDetector[T any](threshold time.Duration, hook SlowQueryHook[T]) *SlowQueryDetector[T] {
	return &SlowQueryDetector[T]{threshold: max(threshold, 0), hook: hook}
}

// MaybeSlowQuery 在 duration >= 阈值时计数并调用钩子，返回是否判定为慢操作。
// nil 检测器视为禁用。
func (d *SlowQueryDetector[T]) MaybeSlowQuery(ctx context.Context, info T, duration time.Duration) bool {
	if d == nil || d.threshold == 0 || duration < d.threshold {
		return false
	}
	d.count.Add(1)
	if d.hook != nil {
		d.hook(ctx, info)
	}
	return true
}

// Count 返回已检测到的慢操作数量。
func (d *SlowQueryDetector[T]) Count() int64 {
	if d == nil {
		return 0
	}
	return d.count.Load()
}
