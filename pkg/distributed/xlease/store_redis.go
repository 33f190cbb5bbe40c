package xlease

import (
	"context"
	"errors"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/redis/go-redis/v9"
)

const (
	defaultRedisPrefix = "xlease:"
	lockedValue        = "LOCKED"
)

// leaseTimeoutFactor 单次 Redis 调用的超时占租约时长的比例。
// redsync 默认 0.05，短租约下会让并发争抢时的 SETNX 超时。
const leaseTimeoutFactor = 0.5

// RedisStoreOption 定义 RedisStore 的配置选项。
type RedisStoreOption func(*RedisStore)

// WithRedisPrefix 设置 key 前缀，默认 "xlease:"。
func WithRedisPrefix(prefix string) RedisStoreOption {
	return func(s *RedisStore) {
		s.prefix = prefix
	}
}

// RedisStore 基于 Redis 的 LeaseStore 实现。
//
// 租约获取与释放由 redsync 单节点 Mutex 完成：SET key owner NX PX lease，
// 释放时比较 owner 后 DEL。每次调用只尝试一次，等待与退避由 Executor 负责。
// 不带租约的 TryLock/Unlock 使用 SET NX / DEL，key 不过期。
type RedisStore struct {
	client redis.UniversalClient
	rs     *redsync.Redsync
	prefix string
}

// NewRedisStore 创建 Redis Store。
func NewRedisStore(client redis.UniversalClient, opts ...RedisStoreOption) (*RedisStore, error) {
	if client == nil {
		return nil, ErrNilClient
	}
	s := &RedisStore{
		client: client,
		rs:     redsync.New(goredis.NewPool(client)),
		prefix: defaultRedisPrefix,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *RedisStore) TryLock(ctx context.Context, key string) (bool, error) {
	return s.client.SetNX(ctx, s.prefix+key, lockedValue, 0).Result()
}

func (s *RedisStore) TryLockLease(ctx context.Context, key, owner string, lease time.Duration) (bool, error) {
	m := s.rs.NewMutex(s.prefix+key,
		redsync.WithExpiry(lease),
		redsync.WithTries(1),
		redsync.WithTimeoutFactor(leaseTimeoutFactor),
		redsync.WithGenValueFunc(func() (string, error) { return owner, nil }),
	)
	err := m.TryLockContext(ctx)
	if err == nil {
		return true, nil
	}
	var taken *redsync.ErrTaken
	if errors.Is(err, redsync.ErrFailed) || errors.As(err, &taken) {
		return false, nil
	}
	return false, unwrapRedisError(err)
}

func (s *RedisStore) Unlock(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.prefix+key).Err()
}

func (s *RedisStore) UnlockOwner(ctx context.Context, key, owner string) (bool, error) {
	m := s.rs.NewMutex(s.prefix+key, redsync.WithValue(owner))
	released, err := m.UnlockContext(ctx)
	if errors.Is(err, redsync.ErrLockAlreadyExpired) {
		return false, nil
	}
	if err != nil {
		return false, unwrapRedisError(err)
	}
	return released, nil
}

// unwrapRedisError 取出 redsync 包装的节点错误，单节点下即 go-redis 原始错误。
func unwrapRedisError(err error) error {
	var re *redsync.RedisError
	if errors.As(err, &re) {
		return re.Err
	}
	return err
}

func (s *RedisStore) Held(ctx context.Context, key string) (bool, error) {
	n, err := s.client.Exists(ctx, s.prefix+key).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

var _ LeaseStore = (*RedisStore)(nil)
