package xlease

import (
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
)

// Lease 某个 key 的租约，不可变。
//
// ExpiresAt 是相对 Registry 创建时刻的单调时钟读数，不受系统时间调整影响。
type Lease struct {
	Owner     string
	ExpiresAt time.Duration
}

// Registry 记录每个 key 当前的租约。所有变更均为单步原子操作。
type Registry struct {
	shards []registryShard
	mask   uint64
	start  time.Time
	now    func() time.Duration
}

type registryShard struct {
	mu     sync.Mutex
	leases map[string]Lease
}

// NewRegistry 创建租约登记表。
func NewRegistry() *Registry {
	shards := make([]registryShard, defaultShardCount)
	for i := range shards {
		shards[i].leases = make(map[string]Lease)
	}
	r := &Registry{
		shards: shards,
		mask:   uint64(defaultShardCount - 1),
		start:  time.Now(),
	}
	// time.Since 使用 start 携带的单调时钟读数
	r.now = func() time.Duration { return time.Since(r.start) }
	return r
}

func (r *Registry) shard(key string) *registryShard {
	return &r.shards[xxhash.Sum64String(key)&r.mask]
}

// Now 返回当前单调时钟读数。
func (r *Registry) Now() time.Duration {
	return r.now()
}

// NewLease 为 owner 创建从现在起持续 d 的租约。
func (r *Registry) NewLease(owner string, d time.Duration) Lease {
	return Lease{Owner: owner, ExpiresAt: r.now() + d}
}

// Expired 判断租约是否已过期（到期时刻不晚于当前时刻）。
func (r *Registry) Expired(l Lease) bool {
	return r.now() >= l.ExpiresAt
}

// Put 登记 key 的租约，覆盖已有记录。
func (r *Registry) Put(key string, l Lease) {
	sh := r.shard(key)
	sh.mu.Lock()
	sh.leases[key] = l
	sh.mu.Unlock()
}

// Get 返回 key 当前的租约。
func (r *Registry) Get(key string) (Lease, bool) {
	sh := r.shard(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	l, ok := sh.leases[key]
	return l, ok
}

// CompareAndRemove 仅当 key 的租约与 expected 完全相同时移除，返回是否移除。
func (r *Registry) CompareAndRemove(key string, expected Lease) bool {
	sh := r.shard(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	if cur, ok := sh.leases[key]; ok && cur == expected {
		delete(sh.leases, key)
		return true
	}
	return false
}

// RemoveIfOwner 仅当 key 的租约属于 owner 时移除，返回是否移除。
func (r *Registry) RemoveIfOwner(key, owner string) bool {
	sh := r.shard(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	if cur, ok := sh.leases[key]; ok && cur.Owner == owner {
		delete(sh.leases, key)
		return true
	}
	return false
}

// Len 返回登记中的租约数量。
func (r *Registry) Len() int {
	n := 0
	for i := range r.shards {
		sh := &r.shards[i]
		sh.mu.Lock()
		n += len(sh.leases)
		sh.mu.Unlock()
	}
	return n
}
