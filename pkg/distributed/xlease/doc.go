// Package xlease 提供基于租约的键级互斥执行器。
//
// 组成：
//   - Store：原子的键占用集合（TryLock/Unlock），不感知所有者与过期
//   - Registry：记录每个 key 当前租约（所有者令牌 + 到期时刻），基于单调时钟
//   - Executor：获取锁、执行临界区、按所有权释放
//
// # 获取流程
//
// 每次调用生成新的 UUID 所有者令牌，在等待时限内循环：
//
//  1. Store.TryLock（LeaseStore 为 TryLockLease）成功则登记租约并返回
//  2. 否则若该 key 的租约已过期，CompareAndRemove 精确移除该租约，成功者负责 Store.Unlock
//  3. 按指数退避（默认 20ms 起，翻倍，上限 200ms，无抖动）休眠后重试
//
// 等待超时返回 [ErrLockTimeout]；等待期间 ctx 取消返回 [ErrInterrupted]。
//
// # 释放
//
// 临界区结束（含 panic）后，仅当 Registry 中的租约仍属于本次调用时才移除租约并释放 key。
// 租约已被他人回收时放弃释放，不会误删新持有者的锁。释放失败只记录日志，不覆盖临界区结果。
//
// # 后端
//
//   - MemoryStore：进程内分片 map
//   - RedisStore：redsync 单节点 Mutex（SET owner NX PX lease，比较所有者后 DEL），每次只尝试一次
//   - EtcdStore：基于 CreateRevision 的事务 CAS，key 绑定 etcd 租约，释放时比较所有者
//
// Registry 是进程内状态，多个 Executor 可通过 WithRegistry 共享同一个 Registry。
// 跨进程时各进程的 Registry 互不可见，因此 RedisStore 与 EtcdStore 实现 [LeaseStore]：
// 租约同时写入后端，崩溃持有者的 key 在租约到期后由后端删除，释放按所有者比较，
// 到期后被其他进程获取的 key 不会被误删。etcd 租约以秒为粒度，向上取整。
//
// # 使用示例
//
//	exec, _ := xlease.NewExecutor(xlease.NewMemoryStore())
//	balance, err := xlease.Execute(ctx, exec, "ledger:1", func(ctx context.Context) (int64, error) {
//	    return charge(ctx)
//	}, xlease.WithLease(time.Second), xlease.WithWaitTimeout(10*time.Second))
package xlease
