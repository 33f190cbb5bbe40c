package xledger

import "errors"

var (
	// ErrNotFound 记录不存在。
	ErrNotFound = errors.New("xledger: record not found")

	// ErrVersionConflict 写入时版本号已被其他写入者推进。
	ErrVersionConflict = errors.New("xledger: version conflict")

	// ErrAlreadyExists Create 时记录已存在。
	ErrAlreadyExists = errors.New("xledger: record already exists")

	// ErrNilClient 未提供后端客户端。
	ErrNilClient = errors.New("xledger: client is nil")
)

// ErrRowLockUnsupported 后端不支持记录级写锁（例如 MongoStore）。
var ErrRowLockUnsupported = errors.New("xledger: row lock not supported by store")
