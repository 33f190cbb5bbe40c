package xledger

import (
	"context"
	"errors"
	"time"

	"github.com/omeyang/xbalance/internal/storageopt"
	"github.com/omeyang/xbalance/pkg/observability/xlog"
)

// Stats InstrumentedStore 的累计统计。
type Stats struct {
	Reads     int64
	Writes    int64
	Conflicts int64
	Errors    int64
	SlowOps   int64
}

// SlowOp 慢操作信息。
type SlowOp struct {
	Operation string
	RecordID  int64
	Duration  time.Duration
}

// InstrumentOption 定义 InstrumentedStore 的配置选项。
type InstrumentOption func(*instrumentOptions)

type instrumentOptions struct {
	slowThreshold time.Duration
	logger        xlog.Logger
}

// WithSlowThreshold 设置慢操作阈值，0 表示不检测。
func WithSlowThreshold(d time.Duration) InstrumentOption {
	return func(o *instrumentOptions) { o.slowThreshold = d }
}

// WithInstrumentLogger 设置慢操作日志记录器，默认丢弃。
func WithInstrumentLogger(l xlog.Logger) InstrumentOption {
	return func(o *instrumentOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// InstrumentedStore 统计读写、版本冲突与慢操作的 Store 装饰器。
type InstrumentedStore struct {
	next    Store
	counter storageopt.OpCounter
	slow    *storageopt.SlowQueryDetector[SlowOp]
}

// Instrument 用统计装饰 next。
func Instrument(next Store, opts ...InstrumentOption) *InstrumentedStore {
	o := instrumentOptions{logger: xlog.Discard()}
	for _, opt := range opts {
		opt(&o)
	}
	logger := o.logger
	return &InstrumentedStore{
		next: next,
		slow: storageopt.NewSlowQueryDetector(o.slowThreshold, func(ctx context.Context, op SlowOp) {
			logger.Warn(ctx, "slow ledger operation",
				xlog.Operation(op.Operation), xlog.RecordID(op.RecordID), xlog.Duration(op.Duration))
		}),
	}
}

// Stats 返回累计统计。
func (s *InstrumentedStore) Stats() Stats {
	snap := s.counter.Snapshot()
	return Stats{
		Reads:     snap.Reads,
		Writes:    snap.Writes,
		Conflicts: snap.Conflicts,
		Errors:    snap.Errors,
		SlowOps:   s.slow.Count(),
	}
}

func (s *InstrumentedStore) FindByID(ctx context.Context, id int64) (Record, error) {
	start := time.Now()
	rec, err := s.next.FindByID(ctx, id)
	s.observe(ctx, "find", id, start, err)
	if err == nil {
		s.counter.IncRead()
	}
	return rec, err
}

func (s *InstrumentedStore) Save(ctx context.Context, rec Record) (Record, error) {
	start := time.Now()
	saved, err := s.next.Save(ctx, rec)
	s.observe(ctx, "save", rec.ID, start, err)
	if err == nil {
		s.counter.IncWrite()
	}
	return saved, err
}

func (s *InstrumentedStore) Create(ctx context.Context, rec Record) (Record, error) {
	start := time.Now()
	created, err := s.next.Create(ctx, rec)
	s.observe(ctx, "create", rec.ID, start, err)
	if err == nil {
		s.counter.IncWrite()
	}
	return created, err
}

// Unwrap 返回被装饰的 Store。
func (s *InstrumentedStore) Unwrap() Store {
	return s.next
}

// UpdateLocked 转发到被装饰的 RowLocker，计一次读与一次写。
// 被装饰的 Store 不支持时返回 ErrRowLockUnsupported。
func (s *InstrumentedStore) UpdateLocked(ctx context.Context, id int64, fn func(Record) (Record, error)) (Record, error) {
	locker, ok := s.next.(RowLocker)
	if !ok {
		return Record{}, ErrRowLockUnsupported
	}
	start := time.Now()
	rec, err := locker.UpdateLocked(ctx, id, fn)
	s.observe(ctx, "update_locked", id, start, err)
	if err == nil {
		s.counter.IncRead()
		s.counter.IncWrite()
	}
	return rec, err
}

func (s *InstrumentedStore) observe(ctx context.Context, op string, id int64, start time.Time, err error) {
	d := storageopt.MeasureOperation(start)
	s.slow.MaybeSlowQuery(ctx, SlowOp{Operation: op, RecordID: id, Duration: d}, d)
	switch {
	case err == nil:
	case errors.Is(err, ErrVersionConflict):
		s.counter.IncConflict()
	default:
		s.counter.IncError()
	}
}
