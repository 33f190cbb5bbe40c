// Package storageopt 提供 pkg/storage 子包与命令行工具共享的存储辅助：
// 操作计数器、慢操作检测器与连接检查超时。
//
// 本包是 internal 包，外部用户不应直接导入。
package storageopt
