package xlease

import "errors"

var (
	// ErrLockTimeout 等待时限内未能获取锁。错误信息包含 key。
	ErrLockTimeout = errors.New("xlease: lock wait timed out")

	// ErrInterrupted 等待锁期间 ctx 被取消，同时包装 ctx.Err()。
	ErrInterrupted = errors.New("xlease: lock wait interrupted")

	// ErrStore 锁存储访问失败，获取流程中止。
	ErrStore = errors.New("xlease: lock store failure")

	// ErrEmptyKey key 为空或仅含空白。
	ErrEmptyKey = errors.New("xlease: key must not be empty")

	// ErrNilStore 未提供锁存储。
	ErrNilStore = errors.New("xlease: store is nil")

	// ErrNilClient 未提供后端客户端。
	ErrNilClient = errors.New("xlease: client is nil")

	// ErrNilExecutor Executor 为 nil。
	ErrNilExecutor = errors.New("xlease: executor is nil")

	// ErrPanic 临界区 panic，仅用于观测跨度上报，panic 本身继续向上传播。
	ErrPanic = errors.New("xlease: critical section panicked")

	// ErrNilFunc 临界区函数为 nil。
	ErrNilFunc = errors.New("xlease: critical section is nil")
)
