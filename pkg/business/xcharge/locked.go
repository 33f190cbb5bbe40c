package xcharge

import (
	"context"
	"strconv"

	"github.com/omeyang/xbalance/pkg/distributed/xlease"
	"github.com/omeyang/xbalance/pkg/observability/xlog"
	"github.com/omeyang/xbalance/pkg/observability/xmetrics"
	"github.com/omeyang/xbalance/pkg/storage/xledger"
)

// LockedCharger 在键级租约锁下执行读-改-写。持锁后不再重试。
type LockedCharger struct {
	exec  *xlease.Executor
	store xledger.Store
	cfg   LockConfig
	opts  *options
}

// NewLockedCharger 创建锁策略 Charger。cfg 的零值字段（含 WaitTimeout）使用默认值。
func NewLockedCharger(exec *xlease.Executor, store xledger.Store, cfg LockConfig, opts ...Option) (*LockedCharger, error) {
	if exec == nil || store == nil {
		return nil, ErrNilDependency
	}
	def := DefaultConfig().Lock
	if cfg.Lease <= 0 {
		cfg.Lease = def.Lease
	}
	if cfg.WaitTimeout <= 0 {
		cfg.WaitTimeout = def.WaitTimeout
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = def.InitialBackoff
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = def.MaxBackoff
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = def.KeyPrefix
	}
	return &LockedCharger{exec: exec, store: store, cfg: cfg, opts: applyOptions(opts)}, nil
}

// Key 返回记录对应的锁 key。
func (c *LockedCharger) Key(id int64) string {
	return c.cfg.KeyPrefix + strconv.FormatInt(id, 10)
}

// Charge 获取记录的锁后执行一次 xledger.Charge。
// 获取失败返回 xlease.ErrLockTimeout 或 xlease.ErrInterrupted。
func (c *LockedCharger) Charge(ctx context.Context, id, amount int64) (rec xledger.Record, err error) {
	ctx, span := xmetrics.Start(ctx, c.opts.observer, xmetrics.SpanOptions{
		Component: componentName,
		Operation: "locked_charge",
		Attrs:     []xmetrics.Attr{xmetrics.RecordID(id)},
	})
	defer func() {
		span.End(xmetrics.Result{Err: err})
	}()

	rec, err = xlease.Execute(ctx, c.exec, c.Key(id), func(ctx context.Context) (xledger.Record, error) {
		return xledger.Charge(ctx, c.store, id, amount)
	}, c.cfg.Options()...)
	if err != nil {
		c.opts.logger.Warn(ctx, "locked charge failed", xlog.RecordID(id), xlog.Err(err))
		return xledger.Record{}, err
	}
	return rec, nil
}
