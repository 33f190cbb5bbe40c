package xledger_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omeyang/xbalance/pkg/storage/xledger"
)

func rowLockers() map[string]func(t *testing.T) xledger.Store {
	return map[string]func(t *testing.T) xledger.Store{
		"memory": func(*testing.T) xledger.Store {
			return xledger.NewMemoryStore(xledger.WithWriteDelay(time.Millisecond))
		},
		"redis": func(t *testing.T) xledger.Store {
			s, _ := newRedisStore(t)
			return s
		},
		"instrumented": func(*testing.T) xledger.Store {
			return xledger.Instrument(xledger.NewMemoryStore())
		},
	}
}

func addBalance(amount int64) func(xledger.Record) (xledger.Record, error) {
	return func(r xledger.Record) (xledger.Record, error) {
		r.Balance += amount
		return r, nil
	}
}

// 持写锁的读-改-写彼此排队：全部成功，版本号等于写入次数。
func TestUpdateLocked_SerializesWriters(t *testing.T) {
	for name, factory := range rowLockers() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := factory(t)
			require.True(t, xledger.SupportsRowLock(s))
			locker := s.(xledger.RowLocker)
			_, err := s.Create(ctx, xledger.Record{ID: 1, Balance: 1000})
			require.NoError(t, err)

			const workers = 16
			var wg sync.WaitGroup
			for range workers {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_, err := locker.UpdateLocked(ctx, 1, addBalance(100))
					assert.NoError(t, err)
				}()
			}
			wg.Wait()

			rec, err := s.FindByID(ctx, 1)
			require.NoError(t, err)
			assert.Equal(t, int64(1000+workers*100), rec.Balance)
			assert.Equal(t, int64(workers), rec.Version)
		})
	}
}

func TestUpdateLocked_Errors(t *testing.T) {
	for name, factory := range rowLockers() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := factory(t)
			locker := s.(xledger.RowLocker)

			_, err := locker.UpdateLocked(ctx, 9, addBalance(1))
			assert.ErrorIs(t, err, xledger.ErrNotFound)

			_, err = s.Create(ctx, xledger.Record{ID: 1, Balance: 10})
			require.NoError(t, err)
			boom := errors.New("rejected")
			_, err = locker.UpdateLocked(ctx, 1, func(xledger.Record) (xledger.Record, error) {
				return xledger.Record{}, boom
			})
			assert.ErrorIs(t, err, boom)

			rec, err := s.FindByID(ctx, 1)
			require.NoError(t, err)
			assert.Equal(t, xledger.Record{ID: 1, Balance: 10, Version: 0}, rec, "failed update must not write")
		})
	}
}

func TestMemoryStore_UpdateLockedWaitCanceled(t *testing.T) {
	s := xledger.NewMemoryStore()
	_, err := s.Create(context.Background(), xledger.Record{ID: 1})
	require.NoError(t, err)

	held := make(chan struct{})
	release := make(chan struct{})
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		_, _ = s.UpdateLocked(context.Background(), 1, func(r xledger.Record) (xledger.Record, error) {
			close(held)
			<-release
			return r, nil
		})
	}()
	<-held

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = s.UpdateLocked(ctx, 1, addBalance(1))
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(release)
	<-finished
	rec, err := s.UpdateLocked(context.Background(), 1, addBalance(1))
	require.NoError(t, err)
	assert.Equal(t, int64(2), rec.Version)
}

func TestSupportsRowLock(t *testing.T) {
	assert.True(t, xledger.SupportsRowLock(xledger.NewMemoryStore()))
	assert.True(t, xledger.SupportsRowLock(xledger.Instrument(xledger.NewMemoryStore())))
	assert.False(t, xledger.SupportsRowLock(&xledger.MongoStore{}))
	assert.False(t, xledger.SupportsRowLock(xledger.Instrument(&xledger.MongoStore{})))
	assert.False(t, xledger.SupportsRowLock(nil))

	_, err := xledger.Instrument(&xledger.MongoStore{}).UpdateLocked(context.Background(), 1, addBalance(1))
	assert.ErrorIs(t, err, xledger.ErrRowLockUnsupported)
}
