// Package xmetrics 提供统一的可观测性接口（metrics + tracing）。
//
// 业务代码只依赖 Observer/Span 接口，默认实现基于 OpenTelemetry。
// 未注入 Observer 时使用 [NoopObserver]，开销可忽略。
//
// # 使用示例
//
//	obs, _ := xmetrics.NewOTelObserver()
//	ctx, span := xmetrics.Start(ctx, obs, xmetrics.SpanOptions{
//		Component: "xlease",
//		Operation: "execute",
//	})
//	defer span.End(xmetrics.Result{Err: err})
//
// # 指标命名
//
//   - xbalance.operation.total
//   - xbalance.operation.duration
//
// 统一属性：component / operation / status。
package xmetrics
