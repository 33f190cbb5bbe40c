package xcharge

import (
	"context"

	"github.com/omeyang/xbalance/pkg/observability/xlog"
	"github.com/omeyang/xbalance/pkg/observability/xmetrics"
	"github.com/omeyang/xbalance/pkg/storage/xledger"
)

// PessimisticCharger 持有账本记录级写锁完成读-改-写，不重试也不返回版本冲突。
type PessimisticCharger struct {
	locker xledger.RowLocker
	opts   *options
}

// NewPessimisticCharger 创建记录写锁策略 Charger。
// store 不支持记录级写锁时返回 xledger.ErrRowLockUnsupported。
func NewPessimisticCharger(store xledger.Store, opts ...Option) (*PessimisticCharger, error) {
	if store == nil {
		return nil, ErrNilDependency
	}
	locker, ok := store.(xledger.RowLocker)
	if !ok || !xledger.SupportsRowLock(store) {
		return nil, xledger.ErrRowLockUnsupported
	}
	return &PessimisticCharger{locker: locker, opts: applyOptions(opts)}, nil
}

// Charge 在记录写锁下把 amount 加到余额上。
func (c *PessimisticCharger) Charge(ctx context.Context, id, amount int64) (rec xledger.Record, err error) {
	ctx, span := xmetrics.Start(ctx, c.opts.observer, xmetrics.SpanOptions{
		Component: componentName,
		Operation: "pessimistic_charge",
		Attrs:     []xmetrics.Attr{xmetrics.RecordID(id)},
	})
	defer func() {
		span.End(xmetrics.Result{Err: err})
	}()

	rec, err = c.locker.UpdateLocked(ctx, id, func(r xledger.Record) (xledger.Record, error) {
		r.Balance += amount
		return r, nil
	})
	if err != nil {
		c.opts.logger.Warn(ctx, "pessimistic charge failed", xlog.RecordID(id), xlog.Err(err))
		return xledger.Record{}, err
	}
	return rec, nil
}
