package xlease

import (
	"context"
	"math"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"
)

const defaultEtcdPrefix = "/xlease/"

// EtcdStoreOption 定义 EtcdStore 的配置选项。
type EtcdStoreOption func(*EtcdStore)

// WithEtcdPrefix 设置 key 前缀，默认 "/xlease/"。
func WithEtcdPrefix(prefix string) EtcdStoreOption {
	return func(s *EtcdStore) {
		s.prefix = prefix
	}
}

// WithEtcdLease 指定租约客户端。kv 本身实现 clientv3.Lease（如 *clientv3.Client）时无需设置。
func WithEtcdLease(l clientv3.Lease) EtcdStoreOption {
	return func(s *EtcdStore) {
		if l != nil {
			s.lease = l
		}
	}
}

// EtcdStore 基于 etcd 事务的 LeaseStore 实现。
//
// 占用：Txn(If(CreateRevision(key) == 0).Then(Put(key, owner, WithLease(id))))，
// 租约按秒向上取整、至少 1s，事务失败时撤销刚授予的租约。
// 释放：Txn(If(Value(key) == owner).Then(Delete(key)))。
// 没有租约客户端时 key 不过期。
type EtcdStore struct {
	kv     clientv3.KV
	lease  clientv3.Lease
	prefix string
}

// NewEtcdStore 创建 etcd Store。kv 通常为 *clientv3.Client。
func NewEtcdStore(kv clientv3.KV, opts ...EtcdStoreOption) (*EtcdStore, error) {
	if kv == nil {
		return nil, ErrNilClient
	}
	s := &EtcdStore{kv: kv, prefix: defaultEtcdPrefix}
	if l, ok := kv.(clientv3.Lease); ok {
		s.lease = l
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *EtcdStore) TryLock(ctx context.Context, key string) (bool, error) {
	return s.putIfAbsent(ctx, s.prefix+key, lockedValue)
}

func (s *EtcdStore) TryLockLease(ctx context.Context, key, owner string, lease time.Duration) (bool, error) {
	k := s.prefix + key
	if s.lease == nil {
		return s.putIfAbsent(ctx, k, owner)
	}
	ttl := max(int64(math.Ceil(lease.Seconds())), 1)
	grant, err := s.lease.Grant(ctx, ttl)
	if err != nil {
		return false, err
	}
	ok, err := s.putIfAbsent(ctx, k, owner, clientv3.WithLease(grant.ID))
	if err != nil || !ok {
		_, _ = s.lease.Revoke(context.WithoutCancel(ctx), grant.ID)
	}
	return ok, err
}

func (s *EtcdStore) putIfAbsent(ctx context.Context, k, v string, opts ...clientv3.OpOption) (bool, error) {
	resp, err := s.kv.Txn(ctx).
		If(clientv3.Compare(clientv3.CreateRevision(k), "=", 0)).
		Then(clientv3.OpPut(k, v, opts...)).
		Commit()
	if err != nil {
		return false, err
	}
	return resp.Succeeded, nil
}

func (s *EtcdStore) Unlock(ctx context.Context, key string) error {
	_, err := s.kv.Delete(ctx, s.prefix+key)
	return err
}

func (s *EtcdStore) UnlockOwner(ctx context.Context, key, owner string) (bool, error) {
	k := s.prefix + key
	resp, err := s.kv.Txn(ctx).
		If(clientv3.Compare(clientv3.Value(k), "=", owner)).
		Then(clientv3.OpDelete(k)).
		Commit()
	if err != nil {
		return false, err
	}
	return resp.Succeeded, nil
}

func (s *EtcdStore) Held(ctx context.Context, key string) (bool, error) {
	resp, err := s.kv.Get(ctx, s.prefix+key, clientv3.WithCountOnly())
	if err != nil {
		return false, err
	}
	return resp.Count > 0, nil
}

var _ LeaseStore = (*EtcdStore)(nil)
