package xlease

import (
	"context"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
)

// Store 原子的键占用集合。
//
// 实现不做所有权校验，也不感知租约过期；这些由 Registry 与 Executor 负责。
type Store interface {
	// TryLock 原子地占用 key，返回 true 当且仅当 key 此前空闲。
	TryLock(ctx context.Context, key string) (bool, error)

	// Unlock 无条件释放 key，幂等。
	Unlock(ctx context.Context, key string) error

	// Held 返回 key 当前是否被占用，仅用于诊断。
	Held(ctx context.Context, key string) (bool, error)
}

// LeaseStore 在后端自身保存所有者与租约的 Store，供多个进程共享同一后端时使用。
//
// 进程内 Registry 看不到其他进程的租约；持有者崩溃后，后端在租约到期时自动删除 key，
// 其他进程即可重新获取。释放按所有者比较删除，租约到期后被他人获取的 key 不会被误删。
// Executor 检测到 LeaseStore 时改用这两个方法获取与释放。
type LeaseStore interface {
	Store

	// TryLockLease 原子地占用空闲的 key，记录 owner，并在 lease 后自动过期。
	TryLockLease(ctx context.Context, key, owner string, lease time.Duration) (bool, error)

	// UnlockOwner 仅当 key 仍由 owner 占用时删除，返回是否删除。
	UnlockOwner(ctx context.Context, key, owner string) (bool, error)
}

const defaultShardCount = 32

// MemoryStore 进程内 Store 实现，按 key 的 xxhash 分片以降低锁争用。
type MemoryStore struct {
	shards []memoryShard
	mask   uint64
}

type memoryShard struct {
	mu   sync.Mutex
	held map[string]struct{}
}

// NewMemoryStore 创建进程内 Store。shardCount 非 2 的幂或 <= 0 时使用默认 32 分片。
func NewMemoryStore(shardCount ...int) *MemoryStore {
	n := defaultShardCount
	if len(shardCount) > 0 && shardCount[0] > 0 && shardCount[0]&(shardCount[0]-1) == 0 {
		n = shardCount[0]
	}
	shards := make([]memoryShard, n)
	for i := range shards {
		shards[i].held = make(map[string]struct{})
	}
	return &MemoryStore{shards: shards, mask: uint64(n - 1)}
}

func (s *MemoryStore) shard(key string) *memoryShard {
	return &s.shards[xxhash.Sum64String(key)&s.mask]
}

func (s *MemoryStore) TryLock(_ context.Context, key string) (bool, error) {
	sh := s.shard(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	if _, ok := sh.held[key]; ok {
		return false, nil
	}
	sh.held[key] = struct{}{}
	return true, nil
}

func (s *MemoryStore) Unlock(_ context.Context, key string) error {
	sh := s.shard(key)
	sh.mu.Lock()
	delete(sh.held, key)
	sh.mu.Unlock()
	return nil
}

func (s *MemoryStore) Held(_ context.Context, key string) (bool, error) {
	sh := s.shard(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	_, ok := sh.held[key]
	return ok, nil
}

var _ Store = (*MemoryStore)(nil)
