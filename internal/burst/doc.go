// Package burst 提供并发争用演练工具：启动 users 个任务，全部阻塞在同一起跑闸门，
// 同时放行后等待完成并收集每个任务的错误。
//
// 用于测试与 xchargectl simulate 在同一 key 上制造真实争用。
package burst
