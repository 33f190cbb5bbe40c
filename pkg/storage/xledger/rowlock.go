package xledger

import "context"

// RowLocker 由支持记录级写锁的 Store 实现。
//
// UpdateLocked 在持有记录 id 写锁期间读取记录、调用 fn 并写回 fn 的结果（版本加一）。
// 同一记录上的 UpdateLocked 互相排队，彼此之间不产生 ErrVersionConflict；
// fn 返回错误时不写回。等待写锁期间 ctx 结束返回 ctx.Err()。
type RowLocker interface {
	UpdateLocked(ctx context.Context, id int64, fn func(Record) (Record, error)) (Record, error)
}

// SupportsRowLock 报告 s（穿透 Unwrap 装饰层）是否支持记录级写锁。
func SupportsRowLock(s Store) bool {
	for s != nil {
		if w, ok := s.(interface{ Unwrap() Store }); ok {
			s = w.Unwrap()
			continue
		}
		_, ok := s.(RowLocker)
		return ok
	}
	return false
}
