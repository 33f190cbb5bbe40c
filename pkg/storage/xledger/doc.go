// Package xledger 提供带版本号的账本记录存储。
//
// 每条记录包含余额与版本号。Save 是版本守卫的比较并写入：
// 仅当传入记录的 Version 与存储中的版本一致时写入，并将版本号加一；
// 否则返回 [ErrVersionConflict]，调用方重新读取后再试。
//
// 实现：
//   - MemoryStore：进程内 map，可通过 WithWriteDelay 放大读写竞争窗口
//   - RedisStore：Hash + Lua 脚本实现原子 CAS
//   - MongoStore：以 {_id, version} 为过滤条件的 UpdateOne
//
// xledgermock 子包提供 gomock 生成的 MockStore。
package xledger
