// Package xcharge 提供三种并发扣/充值策略的门面。
//
//   - LockedCharger：在 xlease 的键级互斥下执行一次读-改-写，锁 key 为 "<prefix><id>"
//   - OptimisticCharger：不加锁，依赖 xledger 的版本守卫写入，冲突时按完全抖动退避重试，
//     超过重试上限返回 [ErrConcurrencyBusy]
//   - PessimisticCharger：持有账本记录级写锁（xledger.RowLocker）读-改-写，
//     仅 MemoryStore 与 RedisStore 支持
//
// 三者都实现 [Charger]。OptimisticCharger 在每次尝试前同步通知已注册的重试监听器，
// 监听器只用于观测，不影响控制流。
//
// # 配置
//
// [Config] 可通过 [LoadConfig] 从 xconf 加载，未出现的键保留 [DefaultConfig] 的默认值：
//
//	lock:
//	  lease: 1s
//	  wait_timeout: 10s
//	  initial_backoff: 20ms
//	  max_backoff: 200ms
//	  key_prefix: "ledger:"
//	optimistic:
//	  max_retry: 5
//	  initial_backoff: 50ms
//	  max_backoff: 800ms
package xcharge
