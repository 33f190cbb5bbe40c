package xledger

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

const defaultRedisPrefix = "xledger:record:"

// saveScript 版本守卫写入。返回 -1 表示记录不存在，0 表示版本冲突，1 表示成功。
var saveScript = redis.NewScript(`
local v = redis.call("HGET", KEYS[1], "version")
if not v then
	return -1
end
if tonumber(v) ~= tonumber(ARGV[1]) then
	return 0
end
redis.call("HSET", KEYS[1], "balance", ARGV[2], "version", tonumber(v) + 1)
return 1
`)

// createScript 仅在记录不存在时写入。
var createScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 1 then
	return 0
end
redis.call("HSET", KEYS[1], "balance", ARGV[1], "version", 0)
return 1
`)

// RedisOption 定义 RedisStore 的配置选项。
type RedisOption func(*RedisStore)

// WithRedisKeyPrefix 设置记录 key 前缀，默认 "xledger:record:"。
func WithRedisKeyPrefix(prefix string) RedisOption {
	return func(s *RedisStore) {
		s.prefix = prefix
	}
}

// RedisStore 基于 Redis Hash 的账本存储，每条记录一个 Hash（balance、version 字段）。
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisStore 创建 Redis 账本存储。
func NewRedisStore(client redis.UniversalClient, opts ...RedisOption) (*RedisStore, error) {
	if client == nil {
		return nil, ErrNilClient
	}
	s := &RedisStore{client: client, prefix: defaultRedisPrefix}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *RedisStore) key(id int64) string {
	return s.prefix + strconv.FormatInt(id, 10)
}

func (s *RedisStore) FindByID(ctx context.Context, id int64) (Record, error) {
	return s.read(ctx, s.client, id)
}

func (s *RedisStore) read(ctx context.Context, c redis.HashCmdable, id int64) (Record, error) {
	fields, err := c.HGetAll(ctx, s.key(id)).Result()
	if err != nil {
		return Record{}, fmt.Errorf("xledger: find record %d: %w", id, err)
	}
	if len(fields) == 0 {
		return Record{}, fmt.Errorf("%w: id %d", ErrNotFound, id)
	}

	balance, err := strconv.ParseInt(fields["balance"], 10, 64)
	if err != nil {
		return Record{}, fmt.Errorf("xledger: decode balance of record %d: %w", id, err)
	}
	version, err := strconv.ParseInt(fields["version"], 10, 64)
	if err != nil {
		return Record{}, fmt.Errorf("xledger: decode version of record %d: %w", id, err)
	}
	return Record{ID: id, Balance: balance, Version: version}, nil
}

func (s *RedisStore) Save(ctx context.Context, rec Record) (Record, error) {
	res, err := saveScript.Run(ctx, s.client, []string{s.key(rec.ID)}, rec.Version, rec.Balance).Int64()
	if err != nil {
		return Record{}, fmt.Errorf("xledger: save record %d: %w", rec.ID, err)
	}
	switch res {
	case -1:
		return Record{}, fmt.Errorf("%w: id %d", ErrNotFound, rec.ID)
	case 0:
		return Record{}, fmt.Errorf("%w: id %d expected version %d", ErrVersionConflict, rec.ID, rec.Version)
	}
	rec.Version++
	return rec, nil
}

func (s *RedisStore) Create(ctx context.Context, rec Record) (Record, error) {
	res, err := createScript.Run(ctx, s.client, []string{s.key(rec.ID)}, rec.Balance).Int64()
	if err != nil {
		return Record{}, fmt.Errorf("xledger: create record %d: %w", rec.ID, err)
	}
	if res == 0 {
		return Record{}, fmt.Errorf("%w: id %d", ErrAlreadyExists, rec.ID)
	}
	rec.Version = 0
	return rec, nil
}

// UpdateLocked 用 WATCH/MULTI 包裹读-改-写。事务因并发写入被放弃时在内部重新执行，
// 直到提交成功或 ctx 结束，调用方看到的效果等同于持有记录写锁。
func (s *RedisStore) UpdateLocked(ctx context.Context, id int64, fn func(Record) (Record, error)) (Record, error) {
	key := s.key(id)
	for {
		var out Record
		err := s.client.Watch(ctx, func(tx *redis.Tx) error {
			rec, err := s.read(ctx, tx, id)
			if err != nil {
				return err
			}
			next, err := fn(rec)
			if err != nil {
				return err
			}
			next.ID, next.Version = id, rec.Version+1
			_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
				p.HSet(ctx, key, "balance", next.Balance, "version", next.Version)
				return nil
			})
			out = next
			return err
		}, key)
		switch {
		case err == nil:
			return out, nil
		case !errors.Is(err, redis.TxFailedErr):
			return Record{}, err
		case ctx.Err() != nil:
			return Record{}, ctx.Err()
		}
	}
}

var (
	_ Store     = (*RedisStore)(nil)
	_ RowLocker = (*RedisStore)(nil)
)
