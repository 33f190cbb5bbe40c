package xledger

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MemoryOption 定义 MemoryStore 的配置选项。
type MemoryOption func(*MemoryStore)

// WithWriteDelay 在 Save 的版本校验前等待 d，用于在测试与演示中放大并发冲突。
func WithWriteDelay(d time.Duration) MemoryOption {
	return func(s *MemoryStore) {
		if d > 0 {
			s.writeDelay = d
		}
	}
}

// MemoryStore 进程内账本存储。
type MemoryStore struct {
	mu         sync.RWMutex
	records    map[int64]Record
	writeDelay time.Duration

	rowsMu sync.Mutex
	rows   map[int64]chan struct{}
}

// NewMemoryStore 创建进程内账本存储。
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{records: make(map[int64]Record), rows: make(map[int64]chan struct{})}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryStore) FindByID(_ context.Context, id int64) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[id]
	if !ok {
		return Record{}, fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	return rec, nil
}

func (s *MemoryStore) Save(ctx context.Context, rec Record) (Record, error) {
	if s.writeDelay > 0 {
		timer := time.NewTimer(s.writeDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return Record{}, ctx.Err()
		case <-timer.C:
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.records[rec.ID]
	if !ok {
		return Record{}, fmt.Errorf("%w: id %d", ErrNotFound, rec.ID)
	}
	if cur.Version != rec.Version {
		return Record{}, fmt.Errorf("%w: id %d expected version %d, stored %d",
			ErrVersionConflict, rec.ID, rec.Version, cur.Version)
	}
	rec.Version = cur.Version + 1
	s.records[rec.ID] = rec
	return rec, nil
}

func (s *MemoryStore) Create(_ context.Context, rec Record) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[rec.ID]; ok {
		return Record{}, fmt.Errorf("%w: id %d", ErrAlreadyExists, rec.ID)
	}
	rec.Version = 0
	s.records[rec.ID] = rec
	return rec, nil
}

// UpdateLocked 以每条记录一个容量为 1 的 channel 作为写锁，等待可被 ctx 中断。
// 持锁期间的 Save 同样受 WithWriteDelay 影响。
func (s *MemoryStore) UpdateLocked(ctx context.Context, id int64, fn func(Record) (Record, error)) (Record, error) {
	row := s.row(id)
	select {
	case row <- struct{}{}:
	case <-ctx.Done():
		return Record{}, ctx.Err()
	}
	defer func() { <-row }()

	rec, err := s.FindByID(ctx, id)
	if err != nil {
		return Record{}, err
	}
	next, err := fn(rec)
	if err != nil {
		return Record{}, err
	}
	next.ID, next.Version = rec.ID, rec.Version
	return s.Save(ctx, next)
}

func (s *MemoryStore) row(id int64) chan struct{} {
	s.rowsMu.Lock()
	defer s.rowsMu.Unlock()
	ch, ok := s.rows[id]
	if !ok {
		ch = make(chan struct{}, 1)
		s.rows[id] = ch
	}
	return ch
}

var (
	_ Store     = (*MemoryStore)(nil)
	_ RowLocker = (*MemoryStore)(nil)
)
