package xlease

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/omeyang/xbalance/pkg/observability/xlog"
	"github.com/omeyang/xbalance/pkg/observability/xmetrics"
	"github.com/omeyang/xbalance/pkg/resilience/xretry"
)

const componentName = "xlease"

// Executor 在 key 级互斥下执行临界区。并发安全。
type Executor struct {
	store    Store
	registry *Registry
	defaults Options
	logger   xlog.Logger
	observer xmetrics.Observer
	newOwner func() string
}

// NewExecutor 创建执行器。
func NewExecutor(store Store, opts ...ExecutorOption) (*Executor, error) {
	if store == nil {
		return nil, ErrNilStore
	}
	e := &Executor{
		store:    store,
		defaults: DefaultOptions(),
		logger:   xlog.Discard(),
		observer: xmetrics.NoopObserver{},
		newOwner: uuid.NewString,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	if e.registry == nil {
		e.registry = NewRegistry()
	}
	return e, nil
}

// Registry 返回执行器使用的租约登记表。
func (e *Executor) Registry() *Registry {
	return e.registry
}

// Holder 返回 key 当前的租约，用于诊断。
func (e *Executor) Holder(key string) (Lease, bool) {
	return e.registry.Get(key)
}

// Run 在 key 的互斥下执行 fn，无返回值版本。
func (e *Executor) Run(ctx context.Context, key string, fn func(ctx context.Context) error, opts ...Option) error {
	if fn == nil {
		return ErrNilFunc
	}
	_, err := Execute(ctx, e, key, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	}, opts...)
	return err
}

// Execute 在 key 的互斥下恰好执行一次 fn 并返回其结果。
//
// 获取失败时 fn 不会执行：超时返回 ErrLockTimeout，ctx 取消返回 ErrInterrupted，
// 存储错误返回 ErrStore。fn 返回后（包括 panic）按所有权释放锁。
func Execute[T any](ctx context.Context, e *Executor, key string, fn func(ctx context.Context) (T, error), opts ...Option) (result T, err error) {
	if e == nil {
		return result, ErrNilExecutor
	}
	if fn == nil {
		return result, ErrNilFunc
	}
	if strings.TrimSpace(key) == "" {
		return result, ErrEmptyKey
	}

	o := e.defaults
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	ctx, span := xmetrics.Start(ctx, e.observer, xmetrics.SpanOptions{
		Component: componentName,
		Operation: "execute",
		Attrs:     []xmetrics.Attr{xmetrics.LockKey(key)},
	})
	defer func() {
		if r := recover(); r != nil {
			span.End(xmetrics.Result{Err: fmt.Errorf("%w: %v", ErrPanic, r)})
			panic(r)
		}
		span.End(xmetrics.Result{Err: err})
	}()

	owner := e.newOwner()
	if err = e.acquire(ctx, key, owner, o); err != nil {
		return result, err
	}
	defer e.release(context.WithoutCancel(ctx), key, owner)

	return fn(ctx)
}

func (e *Executor) acquire(ctx context.Context, key, owner string, o Options) error {
	start := time.Now()
	deadline := start.Add(o.WaitTimeout)
	backoff := xretry.NewExponentialBackoff(
		xretry.WithInitialDelay(o.InitialBackoff),
		xretry.WithMaxDelay(o.MaxBackoff),
	)

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w: key %q: %w", ErrInterrupted, key, err)
		}

		ok, err := e.tryLock(ctx, key, owner, o.Lease)
		if err != nil {
			return fmt.Errorf("%w: lock %q: %w", ErrStore, key, err)
		}
		if ok {
			e.registry.Put(key, e.registry.NewLease(owner, o.Lease))
			e.logger.Debug(ctx, "lock acquired",
				xlog.LockKey(key), xlog.Attempt(attempt), xlog.Duration(time.Since(start)))
			return nil
		}

		if err := e.reclaim(ctx, key); err != nil {
			return err
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return fmt.Errorf("%w: key %q after %s", ErrLockTimeout, key, o.WaitTimeout)
		}

		timer := time.NewTimer(min(backoff.NextDelay(attempt), remaining))
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("%w: key %q: %w", ErrInterrupted, key, ctx.Err())
		case <-timer.C:
		}
	}
}

// reclaim 回收 key 上已过期的租约。CompareAndRemove 成功的调用方才释放 Store，
// 保证同一过期租约只被释放一次；回收竞争失败时直接返回，由获取循环重试。
func (e *Executor) reclaim(ctx context.Context, key string) error {
	lease, ok := e.registry.Get(key)
	if !ok || !e.registry.Expired(lease) {
		return nil
	}
	if !e.registry.CompareAndRemove(key, lease) {
		return nil
	}
	if _, err := e.unlock(ctx, key, lease.Owner); err != nil {
		return fmt.Errorf("%w: reclaim %q: %w", ErrStore, key, err)
	}
	e.logger.Info(ctx, "expired lease reclaimed", xlog.LockKey(key))
	return nil
}

// release 仅当租约仍属于 owner 时释放，返回是否实际释放。
// 错误只记录日志。
func (e *Executor) release(ctx context.Context, key, owner string) bool {
	if !e.registry.RemoveIfOwner(key, owner) {
		e.logger.Warn(ctx, "lease lost before release", xlog.LockKey(key))
		return false
	}
	released, err := e.unlock(ctx, key, owner)
	if err != nil {
		e.logger.Error(ctx, "release lock failed", xlog.LockKey(key), xlog.Err(err))
		return false
	}
	if !released {
		e.logger.Warn(ctx, "lease expired in store before release", xlog.LockKey(key))
	}
	return released
}

func (e *Executor) tryLock(ctx context.Context, key, owner string, lease time.Duration) (bool, error) {
	if ls, ok := e.store.(LeaseStore); ok {
		return ls.TryLockLease(ctx, key, owner, lease)
	}
	return e.store.TryLock(ctx, key)
}

// unlock 释放 owner 持有的 key。LeaseStore 按所有者比较删除，其余 Store 无条件删除。
func (e *Executor) unlock(ctx context.Context, key, owner string) (bool, error) {
	if ls, ok := e.store.(LeaseStore); ok {
		return ls.UnlockOwner(ctx, key, owner)
	}
	return true, e.store.Unlock(ctx, key)
}
