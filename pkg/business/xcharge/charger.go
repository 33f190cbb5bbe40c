package xcharge

import (
	"context"

	"github.com/omeyang/xbalance/pkg/storage/xledger"
)

const componentName = "xcharge"

// Charger 对账本记录的余额增加 amount（负数表示扣减），返回写入后的记录。
type Charger interface {
	Charge(ctx context.Context, id, amount int64) (xledger.Record, error)
}

var (
	_ Charger = (*LockedCharger)(nil)
	_ Charger = (*OptimisticCharger)(nil)
	_ Charger = (*PessimisticCharger)(nil)
)
