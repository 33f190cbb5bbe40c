// Package storage 提供数据存储相关的子包。
//
// 子包列表：
//   - xledger: 带版本号的账本记录存储，支持内存、Redis、MongoDB 后端
//
// 设计原则：
//   - 写入以版本号守卫，冲突以 sentinel 错误返回，由上层决定是否重试
//   - 多种后端实现同一 Store 接口
package storage
