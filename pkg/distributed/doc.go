// Package distributed 提供分布式协调相关的子包。
//
// 子包列表：
//   - xlease: 租约锁执行器，Store 后端支持内存、Redis、etcd
//
// 设计原则：
//   - Store 只提供原子占用与释放，租约归属与过期由 Registry 管理
//   - 过期回收与释放都以比较后删除完成，不误释放他人持有的锁
package distributed
