package xcharge_test

import (
	"context"
	"fmt"

	"github.com/omeyang/xbalance/pkg/business/xcharge"
	"github.com/omeyang/xbalance/pkg/distributed/xlease"
	"github.com/omeyang/xbalance/pkg/storage/xledger"
)

func ExampleLockedCharger() {
	ctx := context.Background()
	store := xledger.NewMemoryStore()
	_, _ = store.Create(ctx, xledger.Record{ID: 1, Balance: 1000})

	exec, _ := xlease.NewExecutor(xlease.NewMemoryStore())
	c, _ := xcharge.NewLockedCharger(exec, store, xcharge.DefaultConfig().Lock)

	rec, err := c.Charge(ctx, 1, 100)
	fmt.Println(rec.Balance, rec.Version, err)
	// Output: 1100 1 <nil>
}

func ExampleOptimisticCharger() {
	ctx := context.Background()
	store := xledger.NewMemoryStore()
	_, _ = store.Create(ctx, xledger.Record{ID: 1, Balance: 1000})

	c, _ := xcharge.NewOptimisticCharger(store, xcharge.DefaultConfig().Optimistic)
	c.RegisterRetryListener(func(attempt, maxRetry int) {
		fmt.Printf("attempt %d/%d\n", attempt, maxRetry)
	})

	rec, err := c.Charge(ctx, 1, -250)
	fmt.Println(rec.Balance, err)
	// Output:
	// attempt 1/5
	// 750 <nil>
}
