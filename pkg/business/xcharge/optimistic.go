package xcharge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/omeyang/xbalance/pkg/observability/xlog"
	"github.com/omeyang/xbalance/pkg/observability/xmetrics"
	"github.com/omeyang/xbalance/pkg/resilience/xretry"
	"github.com/omeyang/xbalance/pkg/storage/xledger"
)

// RetryListener 在每次乐观尝试前被同步调用，attempt 从 1 开始。
type RetryListener func(attempt, maxRetry int)

type listenerEntry struct {
	id uint64
	fn RetryListener
}

// OptimisticCharger 基于版本守卫写入的乐观重试 Charger。
type OptimisticCharger struct {
	store   xledger.Store
	cfg     OptimisticConfig
	backoff xretry.BackoffPolicy
	opts    *options

	mu        sync.Mutex
	nextID    uint64
	listeners []listenerEntry // copy-on-write，通知时读取快照
}

// NewOptimisticCharger 创建乐观策略 Charger。cfg 的零值退避字段使用默认值。
func NewOptimisticCharger(store xledger.Store, cfg OptimisticConfig, opts ...Option) (*OptimisticCharger, error) {
	if store == nil {
		return nil, ErrNilDependency
	}
	if cfg.MaxRetry < 1 {
		return nil, ErrInvalidRetryLimit
	}
	def := DefaultConfig().Optimistic
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = def.InitialBackoff
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = def.MaxBackoff
	}

	o := applyOptions(opts)
	backoff := o.backoff
	if backoff == nil {
		backoff = xretry.NewFullJitterBackoff(cfg.InitialBackoff, cfg.MaxBackoff)
	}
	return &OptimisticCharger{store: store, cfg: cfg, backoff: backoff, opts: o}, nil
}

// RegisterRetryListener 注册重试监听器，返回的函数用于注销，可重复调用。
func (c *OptimisticCharger) RegisterRetryListener(fn RetryListener) (unregister func()) {
	if fn == nil {
		return func() {}
	}

	c.mu.Lock()
	c.nextID++
	id := c.nextID
	next := make([]listenerEntry, len(c.listeners), len(c.listeners)+1)
	copy(next, c.listeners)
	c.listeners = append(next, listenerEntry{id: id, fn: fn})
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { c.removeListener(id) })
	}
}

func (c *OptimisticCharger) removeListener(id uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	next := make([]listenerEntry, 0, len(c.listeners))
	for _, l := range c.listeners {
		if l.id != id {
			next = append(next, l)
		}
	}
	c.listeners = next
}

func (c *OptimisticCharger) snapshot() []listenerEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.listeners
}

func (c *OptimisticCharger) notify(ctx context.Context, attempt, maxRetry int) {
	for _, l := range c.snapshot() {
		c.callListener(ctx, l.fn, attempt, maxRetry)
	}
}

func (c *OptimisticCharger) callListener(ctx context.Context, fn RetryListener, attempt, maxRetry int) {
	defer func() {
		if r := recover(); r != nil {
			c.opts.logger.Warn(ctx, "retry listener panicked",
				xlog.Attempt(attempt), slog.Any("panic", r))
		}
	}()
	fn(attempt, maxRetry)
}

// Charge 使用配置的默认重试上限执行 ChargeWithRetryLimit。
func (c *OptimisticCharger) Charge(ctx context.Context, id, amount int64) (xledger.Record, error) {
	return c.ChargeWithRetryLimit(ctx, id, amount, c.cfg.MaxRetry)
}

// ChargeWithRetryLimit 最多尝试 maxRetry 次读-改-写。
//
// 版本冲突时按完全抖动退避后重试；最后一次仍冲突返回 ErrConcurrencyBusy。
// 记录不存在等其他错误立即返回。等待期间 ctx 取消返回 ErrInterrupted。
func (c *OptimisticCharger) ChargeWithRetryLimit(ctx context.Context, id, amount int64, maxRetry int) (rec xledger.Record, err error) {
	if maxRetry < 1 {
		return xledger.Record{}, ErrInvalidRetryLimit
	}

	ctx, span := xmetrics.Start(ctx, c.opts.observer, xmetrics.SpanOptions{
		Component: componentName,
		Operation: "optimistic_charge",
		Attrs:     []xmetrics.Attr{xmetrics.RecordID(id)},
	})
	attempts := 0
	defer func() {
		span.End(xmetrics.Result{Err: err, Attrs: []xmetrics.Attr{xmetrics.Attempts(attempts)}})
	}()

	retryer := xretry.NewRetryer(
		xretry.WithRetryPolicy(xretry.NewPredicateRetry(maxRetry, isVersionConflict)),
		xretry.WithBackoffPolicy(c.backoff),
		xretry.WithOnRetry(func(attempt int, err error) {
			c.opts.logger.Debug(ctx, "version conflict",
				xlog.RecordID(id), xlog.Attempt(attempt), xlog.Err(err))
		}),
	)

	rec, err = xretry.DoWithResult(ctx, retryer, func(ctx context.Context) (xledger.Record, error) {
		attempts++
		c.notify(ctx, attempts, maxRetry)
		return xledger.Charge(ctx, c.store, id, amount)
	})
	if err == nil {
		return rec, nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return xledger.Record{}, fmt.Errorf("%w: record %d after %d attempts: %w", ErrInterrupted, id, attempts, ctxErr)
	}
	if isVersionConflict(err) {
		c.opts.logger.Warn(ctx, "retry budget exhausted", xlog.RecordID(id), xlog.Attempt(attempts))
		return xledger.Record{}, fmt.Errorf("%w: record %d after %d attempts: %w", ErrConcurrencyBusy, id, attempts, err)
	}
	return xledger.Record{}, err
}

func isVersionConflict(err error) bool {
	return errors.Is(err, xledger.ErrVersionConflict)
}
