// Package xretry 提供重试策略、退避策略以及基于 retry-go 的执行器。
//
// xretry 采用接口驱动设计：
//   - RetryPolicy：定义是否应该重试
//   - BackoffPolicy：定义重试间隔时间
//
// 底层使用 [avast/retry-go/v5] 实现重试循环。
//
// # 退避策略
//
//   - FixedBackoff：固定延迟
//   - ExponentialBackoff：指数退避（比例抖动）
//   - FullJitterBackoff：完全抖动，延迟在 [0, min(initial*2^(n-1), max)] 中均匀分布
//   - NoBackoff：无延迟
//
// # 使用方式
//
//	retryer := xretry.NewRetryer(
//	    xretry.WithRetryPolicy(xretry.NewPredicateRetry(5, isConflict)),
//	    xretry.WithBackoffPolicy(xretry.NewFullJitterBackoff(50*time.Millisecond, 800*time.Millisecond)),
//	)
//	err := retryer.Do(ctx, func(ctx context.Context) error {
//	    return save(ctx)
//	})
//
// [avast/retry-go/v5]: https://github.com/avast/retry-go
package xretry
