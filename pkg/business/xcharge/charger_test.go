package xcharge_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/omeyang/xbalance/internal/burst"
	"github.com/omeyang/xbalance/pkg/business/xcharge"
	"github.com/omeyang/xbalance/pkg/distributed/xlease"
	"github.com/omeyang/xbalance/pkg/resilience/xretry"
	"github.com/omeyang/xbalance/pkg/storage/xledger"
	"github.com/omeyang/xbalance/pkg/storage/xledger/xledgermock"
)

func seed(t *testing.T, store xledger.Store, id, balance int64) {
	t.Helper()
	_, err := store.Create(context.Background(), xledger.Record{ID: id, Balance: balance})
	require.NoError(t, err)
}

func newLocked(t *testing.T, store xledger.Store, cfg xcharge.LockConfig) *xcharge.LockedCharger {
	t.Helper()
	exec, err := xlease.NewExecutor(xlease.NewMemoryStore())
	require.NoError(t, err)
	c, err := xcharge.NewLockedCharger(exec, store, cfg)
	require.NoError(t, err)
	return c
}

func newOptimistic(t *testing.T, store xledger.Store, maxRetry int) *xcharge.OptimisticCharger {
	t.Helper()
	c, err := xcharge.NewOptimisticCharger(store, xcharge.OptimisticConfig{MaxRetry: maxRetry},
		xcharge.WithBackoffPolicy(xretry.NewNoBackoff()))
	require.NoError(t, err)
	return c
}

// chargeConcurrently 同时发起 users 个 Charge，返回成功次数与全部错误。
func chargeConcurrently(t *testing.T, c xcharge.Charger, id, amount int64, users int) (int64, []error) {
	t.Helper()
	res, err := burst.Run(context.Background(), users, func(ctx context.Context, _ int) error {
		_, err := c.Charge(ctx, id, amount)
		return err
	}, burst.WithTimeout(20*time.Second))
	require.NoError(t, err)
	return int64(res.Succeeded()), res.Errors()
}

func TestChargers_TenUsersReachExpectedBalance(t *testing.T) {
	cases := map[string]func(t *testing.T, store xledger.Store) xcharge.Charger{
		"locked": func(t *testing.T, store xledger.Store) xcharge.Charger {
			cfg := xcharge.DefaultConfig().Lock
			cfg.WaitTimeout = 5 * time.Second
			return newLocked(t, store, cfg)
		},
		"optimistic": func(t *testing.T, store xledger.Store) xcharge.Charger {
			// 每次冲突意味着另一个调用方已提交，10 次尝试足以覆盖 10 个竞争者。
			return newOptimistic(t, store, 10)
		},
		"pessimistic": func(t *testing.T, store xledger.Store) xcharge.Charger {
			c, err := xcharge.NewPessimisticCharger(store)
			require.NoError(t, err)
			return c
		},
	}
	for name, build := range cases {
		t.Run(name, func(t *testing.T) {
			store := xledger.NewMemoryStore(xledger.WithWriteDelay(time.Millisecond))
			seed(t, store, 1, 1000)
			c := build(t, store)

			succeeded, errs := chargeConcurrently(t, c, 1, 100, 10)
			assert.Empty(t, errs)
			assert.EqualValues(t, 10, succeeded)

			rec, err := store.FindByID(context.Background(), 1)
			require.NoError(t, err)
			assert.EqualValues(t, 2000, rec.Balance)
			assert.EqualValues(t, 10, rec.Version)
		})
	}
}

func TestOptimistic_NoLostUpdates(t *testing.T) {
	for _, users := range []int{1, 2, 8, 32, 64} {
		store := xledger.NewMemoryStore()
		seed(t, store, 7, 0)
		c := newOptimistic(t, store, 3)

		succeeded, errs := chargeConcurrently(t, c, 7, 5, users)
		for _, err := range errs {
			assert.ErrorIs(t, err, xcharge.ErrConcurrencyBusy)
		}

		rec, err := store.FindByID(context.Background(), 7)
		require.NoError(t, err)
		assert.Equal(t, succeeded*5, rec.Balance, "users=%d", users)
		assert.Equal(t, succeeded, rec.Version, "users=%d", users)
	}
}

func TestLocked_NoLostUpdates(t *testing.T) {
	for _, users := range []int{1, 2, 8, 32, 64} {
		store := xledger.NewMemoryStore()
		seed(t, store, 3, 0)
		cfg := xcharge.DefaultConfig().Lock
		cfg.WaitTimeout = 10 * time.Second
		c := newLocked(t, store, cfg)

		succeeded, errs := chargeConcurrently(t, c, 3, 1, users)
		assert.Empty(t, errs)
		assert.EqualValues(t, users, succeeded, "users=%d", users)

		rec, err := store.FindByID(context.Background(), 3)
		require.NoError(t, err)
		assert.Equal(t, succeeded, rec.Balance, "users=%d", users)
	}
}

// 只给出租约的部分配置，等待时限取默认值，竞争者排队而不是立即超时。
func TestLocked_PartialConfigWaitsForLock(t *testing.T) {
	store := xledger.NewMemoryStore(xledger.WithWriteDelay(time.Millisecond))
	seed(t, store, 1, 1000)
	c := newLocked(t, store, xcharge.LockConfig{Lease: time.Second})

	succeeded, errs := chargeConcurrently(t, c, 1, 100, 10)
	assert.Empty(t, errs)
	assert.EqualValues(t, 10, succeeded)

	rec, err := store.FindByID(context.Background(), 1)
	require.NoError(t, err)
	assert.EqualValues(t, 2000, rec.Balance)
}

func TestPessimistic_NoLostUpdates(t *testing.T) {
	for _, users := range []int{1, 2, 8, 32, 64} {
		store := xledger.NewMemoryStore()
		seed(t, store, 5, 0)
		c, err := xcharge.NewPessimisticCharger(xledger.Instrument(store))
		require.NoError(t, err)

		succeeded, errs := chargeConcurrently(t, c, 5, 3, users)
		assert.Empty(t, errs)
		assert.EqualValues(t, users, succeeded, "users=%d", users)

		rec, err := store.FindByID(context.Background(), 5)
		require.NoError(t, err)
		assert.Equal(t, succeeded*3, rec.Balance, "users=%d", users)
		assert.Equal(t, succeeded, rec.Version, "users=%d", users)
	}
}

func TestPessimistic_Errors(t *testing.T) {
	c, err := xcharge.NewPessimisticCharger(xledger.NewMemoryStore())
	require.NoError(t, err)
	_, err = c.Charge(context.Background(), 404, 1)
	assert.ErrorIs(t, err, xledger.ErrNotFound)

	_, err = xcharge.NewPessimisticCharger(nil)
	assert.ErrorIs(t, err, xcharge.ErrNilDependency)

	ctrl := gomock.NewController(t)
	_, err = xcharge.NewPessimisticCharger(xledgermock.NewMockStore(ctrl))
	assert.ErrorIs(t, err, xledger.ErrRowLockUnsupported)
	_, err = xcharge.NewPessimisticCharger(xledger.Instrument(xledgermock.NewMockStore(ctrl)))
	assert.ErrorIs(t, err, xledger.ErrRowLockUnsupported)
}

func alwaysConflict(ctrl *gomock.Controller) *xledgermock.MockStore {
	store := xledgermock.NewMockStore(ctrl)
	store.EXPECT().FindByID(gomock.Any(), int64(1)).
		Return(xledger.Record{ID: 1, Balance: 10, Version: 4}, nil).AnyTimes()
	store.EXPECT().Save(gomock.Any(), gomock.Any()).
		Return(xledger.Record{}, xledger.ErrVersionConflict).AnyTimes()
	return store
}

func TestOptimistic_BoundedRetry(t *testing.T) {
	for _, limit := range []int{1, 3, 5} {
		ctrl := gomock.NewController(t)
		c := newOptimistic(t, alwaysConflict(ctrl), xcharge.DefaultMaxRetry)

		var attempts [][2]int
		c.RegisterRetryListener(func(attempt, maxRetry int) {
			attempts = append(attempts, [2]int{attempt, maxRetry})
		})

		_, err := c.ChargeWithRetryLimit(context.Background(), 1, 1, limit)
		require.ErrorIs(t, err, xcharge.ErrConcurrencyBusy)
		assert.ErrorIs(t, err, xledger.ErrVersionConflict)

		require.Len(t, attempts, limit)
		for i, a := range attempts {
			assert.Equal(t, [2]int{i + 1, limit}, a)
		}
	}
}

func TestOptimistic_DefaultLimit(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := newOptimistic(t, alwaysConflict(ctrl), 4)

	var calls atomic.Int32
	c.RegisterRetryListener(func(int, int) { calls.Add(1) })

	_, err := c.Charge(context.Background(), 1, 1)
	require.ErrorIs(t, err, xcharge.ErrConcurrencyBusy)
	assert.EqualValues(t, 4, calls.Load())
}

func TestOptimistic_NotFoundIsNotRetried(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := xledgermock.NewMockStore(ctrl)
	store.EXPECT().FindByID(gomock.Any(), int64(9)).Return(xledger.Record{}, xledger.ErrNotFound).Times(1)

	c := newOptimistic(t, store, 5)
	var calls atomic.Int32
	c.RegisterRetryListener(func(int, int) { calls.Add(1) })

	_, err := c.Charge(context.Background(), 9, 1)
	require.ErrorIs(t, err, xledger.ErrNotFound)
	assert.NotErrorIs(t, err, xcharge.ErrConcurrencyBusy)
	assert.EqualValues(t, 1, calls.Load())
}

func TestOptimistic_StoreErrorIsNotRetried(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := xledgermock.NewMockStore(ctrl)
	boom := errors.New("boom")
	store.EXPECT().FindByID(gomock.Any(), int64(1)).Return(xledger.Record{ID: 1}, nil).Times(1)
	store.EXPECT().Save(gomock.Any(), gomock.Any()).Return(xledger.Record{}, boom).Times(1)

	c := newOptimistic(t, store, 5)
	_, err := c.Charge(context.Background(), 1, 1)
	assert.ErrorIs(t, err, boom)
}

func TestOptimistic_SucceedsAfterConflicts(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := xledgermock.NewMockStore(ctrl)
	store.EXPECT().FindByID(gomock.Any(), int64(1)).Return(xledger.Record{ID: 1, Balance: 10}, nil).Times(3)
	gomock.InOrder(
		store.EXPECT().Save(gomock.Any(), gomock.Any()).Return(xledger.Record{}, xledger.ErrVersionConflict).Times(2),
		store.EXPECT().Save(gomock.Any(), xledger.Record{ID: 1, Balance: 15}).
			Return(xledger.Record{ID: 1, Balance: 15, Version: 1}, nil),
	)

	c := newOptimistic(t, store, 5)
	rec, err := c.Charge(context.Background(), 1, 5)
	require.NoError(t, err)
	assert.Equal(t, xledger.Record{ID: 1, Balance: 15, Version: 1}, rec)
}

func TestOptimistic_InvalidRetryLimit(t *testing.T) {
	store := xledger.NewMemoryStore()
	_, err := xcharge.NewOptimisticCharger(store, xcharge.OptimisticConfig{MaxRetry: 0})
	assert.ErrorIs(t, err, xcharge.ErrInvalidRetryLimit)

	c := newOptimistic(t, store, 3)
	for _, limit := range []int{0, -1} {
		_, err := c.ChargeWithRetryLimit(context.Background(), 1, 1, limit)
		assert.ErrorIs(t, err, xcharge.ErrInvalidRetryLimit)
	}
}

func TestOptimistic_InterruptedDuringBackoff(t *testing.T) {
	ctrl := gomock.NewController(t)
	c, err := xcharge.NewOptimisticCharger(alwaysConflict(ctrl), xcharge.OptimisticConfig{MaxRetry: 5},
		xcharge.WithBackoffPolicy(xretry.NewFixedBackoff(time.Hour)))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = c.Charge(ctx, 1, 1)
	require.ErrorIs(t, err, xcharge.ErrInterrupted)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.NotErrorIs(t, err, xcharge.ErrConcurrencyBusy)
}

func TestOptimistic_ListenerPanicDoesNotAbort(t *testing.T) {
	store := xledger.NewMemoryStore()
	seed(t, store, 1, 0)
	c := newOptimistic(t, store, 3)

	var after atomic.Int32
	c.RegisterRetryListener(func(int, int) { panic("listener") })
	c.RegisterRetryListener(func(int, int) { after.Add(1) })

	rec, err := c.Charge(context.Background(), 1, 2)
	require.NoError(t, err)
	assert.EqualValues(t, 2, rec.Balance)
	assert.EqualValues(t, 1, after.Load())
}

func TestOptimistic_UnregisterListener(t *testing.T) {
	store := xledger.NewMemoryStore()
	seed(t, store, 1, 0)
	c := newOptimistic(t, store, 3)

	var calls atomic.Int32
	unregister := c.RegisterRetryListener(func(int, int) { calls.Add(1) })
	keep := c.RegisterRetryListener(nil)
	keep()

	_, err := c.Charge(context.Background(), 1, 1)
	require.NoError(t, err)
	unregister()
	unregister()

	_, err = c.Charge(context.Background(), 1, 1)
	require.NoError(t, err)
	assert.EqualValues(t, 1, calls.Load())
}

func TestLocked_Key(t *testing.T) {
	c := newLocked(t, xledger.NewMemoryStore(), xcharge.LockConfig{})
	assert.Equal(t, "ledger:42", c.Key(42))

	c = newLocked(t, xledger.NewMemoryStore(), xcharge.LockConfig{KeyPrefix: "acct/"})
	assert.Equal(t, "acct/42", c.Key(42))
}

func TestLocked_Timeout(t *testing.T) {
	lockStore := xlease.NewMemoryStore()
	exec, err := xlease.NewExecutor(lockStore)
	require.NoError(t, err)

	store := xledger.NewMemoryStore()
	seed(t, store, 1, 0)
	cfg := xcharge.DefaultConfig().Lock
	cfg.WaitTimeout = 30 * time.Millisecond
	c, err := xcharge.NewLockedCharger(exec, store, cfg)
	require.NoError(t, err)

	ok, err := lockStore.TryLock(context.Background(), c.Key(1))
	require.NoError(t, err)
	require.True(t, ok)

	_, err = c.Charge(context.Background(), 1, 1)
	require.ErrorIs(t, err, xlease.ErrLockTimeout)

	rec, err := store.FindByID(context.Background(), 1)
	require.NoError(t, err)
	assert.Zero(t, rec.Balance)
}

func TestLocked_NotFound(t *testing.T) {
	c := newLocked(t, xledger.NewMemoryStore(), xcharge.LockConfig{})
	_, err := c.Charge(context.Background(), 404, 1)
	assert.ErrorIs(t, err, xledger.ErrNotFound)
}

func TestNewChargers_NilDependency(t *testing.T) {
	exec, err := xlease.NewExecutor(xlease.NewMemoryStore())
	require.NoError(t, err)

	_, err = xcharge.NewLockedCharger(nil, xledger.NewMemoryStore(), xcharge.LockConfig{})
	assert.ErrorIs(t, err, xcharge.ErrNilDependency)
	_, err = xcharge.NewLockedCharger(exec, nil, xcharge.LockConfig{})
	assert.ErrorIs(t, err, xcharge.ErrNilDependency)
	_, err = xcharge.NewOptimisticCharger(nil, xcharge.OptimisticConfig{MaxRetry: 1})
	assert.ErrorIs(t, err, xcharge.ErrNilDependency)
}

func TestOptimistic_DefaultRetryScenario(t *testing.T) {
	store := xledger.NewMemoryStore(xledger.WithWriteDelay(time.Millisecond))
	seed(t, store, 1, 1000)
	c, err := xcharge.NewOptimisticCharger(store, xcharge.DefaultConfig().Optimistic)
	require.NoError(t, err)

	succeeded, errs := chargeConcurrently(t, c, 1, 100, 10)
	for _, err := range errs {
		assert.ErrorIs(t, err, xcharge.ErrConcurrencyBusy)
	}
	assert.Positive(t, succeeded)

	rec, err := store.FindByID(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 1000+succeeded*100, rec.Balance)
}
