package xlog

import (
	"log/slog"
	"time"
)

// 常用属性 Key 常量
const (
	KeyError     = "error"
	KeyDuration  = "duration"
	KeyComponent = "component"
	KeyOperation = "operation"
	KeyTraceID   = "trace_id"
	KeySpanID    = "span_id"

	// KeyLockKey 锁 key
	KeyLockKey = "lock_key"
	// KeyRecordID 账本记录 ID
	KeyRecordID = "record_id"
	// KeyAttempt 当前尝试次数（从 1 开始）
	KeyAttempt = "attempt"
)

// Err 创建错误属性。err 为 nil 时返回空属性（会被 slog 忽略）。
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

// Duration 创建耗时属性，输出人类可读格式（如 "20ms"）。
func Duration(d time.Duration) slog.Attr {
	return slog.String(KeyDuration, d.String())
}

// Component 创建组件名属性
func Component(name string) slog.Attr {
	return slog.String(KeyComponent, name)
}

// Operation 创建操作名属性
func Operation(name string) slog.Attr {
	return slog.String(KeyOperation, name)
}

// LockKey 创建锁 key 属性
func LockKey(key string) slog.Attr {
	return slog.String(KeyLockKey, key)
}

// RecordID 创建账本记录 ID 属性
func RecordID(id int64) slog.Attr {
	return slog.Int64(KeyRecordID, id)
}

// Attempt 创建尝试次数属性
func Attempt(n int) slog.Attr {
	return slog.Int(KeyAttempt, n)
}
