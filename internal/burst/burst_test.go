package burst_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/omeyang/xbalance/internal/burst"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestRun_AllSucceed(t *testing.T) {
	var calls atomic.Int32
	res, err := burst.Run(context.Background(), 16, func(context.Context, int) error {
		calls.Add(1)
		return nil
	})
	require.NoError(t, err)
	assert.EqualValues(t, 16, calls.Load())
	assert.Equal(t, 16, res.Succeeded())
	assert.Empty(t, res.Errors())
	assert.NoError(t, res.FirstError())
}

func TestRun_StartGateReleasesTogether(t *testing.T) {
	const users = 8
	var waiting atomic.Int32
	release := make(chan struct{})

	res, err := burst.Run(context.Background(), users, func(ctx context.Context, _ int) error {
		// 所有任务都已越过闸门才会放行。
		if waiting.Add(1) == users {
			close(release)
		}
		select {
		case <-release:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}, burst.WithTimeout(2*time.Second))
	require.NoError(t, err)
	assert.Equal(t, users, res.Succeeded())
}

func TestRun_CollectsErrors(t *testing.T) {
	errOdd := errors.New("odd")
	res, err := burst.Run(context.Background(), 6, func(_ context.Context, user int) error {
		if user%2 == 1 {
			return errOdd
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Succeeded())
	assert.Len(t, res.Errors(), 3)
	assert.ErrorIs(t, res.FirstError(), errOdd)
}

func TestRun_Timeout(t *testing.T) {
	res, err := burst.Run(context.Background(), 3, func(ctx context.Context, _ int) error {
		<-ctx.Done()
		return ctx.Err()
	}, burst.WithTimeout(20*time.Millisecond))
	require.ErrorIs(t, err, burst.ErrTimeout)
	require.NotNil(t, res)
	assert.Zero(t, res.Succeeded())
	for _, e := range res.Errors() {
		assert.ErrorIs(t, e, context.DeadlineExceeded)
	}
}

func TestRun_InvalidArgs(t *testing.T) {
	noop := func(context.Context, int) error { return nil }

	_, err := burst.Run(context.Background(), 0, noop)
	assert.ErrorIs(t, err, burst.ErrInvalidUsers)

	_, err = burst.Run(context.Background(), 1, nil)
	assert.ErrorIs(t, err, burst.ErrNilTask)

	_, err = burst.Run(context.Background(), 4, noop, burst.WithPoolSize(3))
	assert.ErrorIs(t, err, burst.ErrPoolTooSmall)

	res, err := burst.Run(context.Background(), 4, noop, burst.WithPoolSize(8))
	require.NoError(t, err)
	assert.Equal(t, 4, res.Succeeded())
}
