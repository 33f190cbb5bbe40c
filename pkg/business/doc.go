// Package business 提供面向业务场景的组合包。
//
// 子包列表：
//   - xcharge: 并发扣/充值门面，提供租约锁与乐观重试两种策略
package business
