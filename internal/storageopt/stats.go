package storageopt

import (
	"sync/atomic"
	"time"
)

// OpCounter 存储操作计数器，零值可用，并发安全。
type OpCounter struct {
	reads     atomic.Int64
	writes    atomic.Int64
	conflicts atomic.Int64
	errors    atomic.Int64
}

// IncRead 增加读操作计数。
func (c *OpCounter) IncRead() { c.reads.Add(1) }

// IncWrite 增加成功写操作计数。
func (c *OpCounter) IncWrite() { c.writes.Add(1) }

// IncConflict 增加版本冲突计数。
func (c *OpCounter) IncConflict() { c.conflicts.Add(1) }

// IncError 增加其他错误计数。
func (c *OpCounter) IncError() { c.errors.Add(1) }

// OpStats 计数器快照。
type OpStats struct {
	Reads     int64
	Writes    int64
	Conflicts int64
	Errors    int64
}

// Snapshot 返回当前计数。各字段分别原子读取，整体不是一致快照。
func (c *OpCounter) Snapshot() OpStats {
	return OpStats{
		Reads:     c.reads.Load(),
		Writes:    c.writes.Load(),
		Conflicts: c.conflicts.Load(),
		Errors:    c.errors.Load(),
	}
}

// MeasureOperation 返回自 start 起的耗时，作为存储子包统一的度量入口。
func MeasureOperation(start time.Time) time.Duration {
	return time.Since(start)
}
