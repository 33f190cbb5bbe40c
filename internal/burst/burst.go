package burst

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// DefaultTimeout 等待全部任务完成的默认时限。
const DefaultTimeout = 5 * time.Second

var (
	// ErrPoolTooSmall 并发上限小于任务数，起跑闸门永远无法放行全部任务。
	ErrPoolTooSmall = errors.New("burst: pool size smaller than users")

	// ErrInvalidUsers 任务数小于 1。
	ErrInvalidUsers = errors.New("burst: users must be at least 1")

	// ErrNilTask 任务函数为空。
	ErrNilTask = errors.New("burst: nil task")

	// ErrTimeout 在时限内未全部完成。
	ErrTimeout = errors.New("burst: tasks did not finish in time")
)

// Task 单个并发任务，user 为 0 起的任务序号。
type Task func(ctx context.Context, user int) error

type options struct {
	poolSize int
	timeout  time.Duration
}

// Option 定义 Run 的配置选项。
type Option func(*options)

// WithPoolSize 设置并发上限，默认等于 users。
func WithPoolSize(n int) Option {
	return func(o *options) { o.poolSize = n }
}

// WithTimeout 设置等待时限，非正值忽略。
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// Result 一次演练的结果，errs 按任务序号排列，成功的任务为 nil。
type Result struct {
	errs    []error
	Elapsed time.Duration
}

// Errors 返回全部非 nil 错误。
func (r *Result) Errors() []error {
	out := make([]error, 0, len(r.errs))
	for _, err := range r.errs {
		if err != nil {
			out = append(out, err)
		}
	}
	return out
}

// Succeeded 返回成功的任务数。
func (r *Result) Succeeded() int {
	n := 0
	for _, err := range r.errs {
		if err == nil {
			n++
		}
	}
	return n
}

// FirstError 返回序号最小的失败任务的错误，全部成功时返回 nil。
func (r *Result) FirstError() error {
	for _, err := range r.errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// Run 并发运行 users 个 task。
//
// 所有任务就绪后同时放行。task 返回的错误记录在 Result 中，不会中断其他任务。
// 超时返回 ErrTimeout，此时 ctx 已取消，Run 仍等待所有任务退出后才返回。
func Run(ctx context.Context, users int, task Task, opts ...Option) (*Result, error) {
	if users < 1 {
		return nil, ErrInvalidUsers
	}
	if task == nil {
		return nil, ErrNilTask
	}
	o := options{poolSize: users, timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(&o)
	}
	if o.poolSize < users {
		return nil, fmt.Errorf("%w: pool %d, users %d", ErrPoolTooSmall, o.poolSize, users)
	}

	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	var (
		ready sync.WaitGroup
		gate  = make(chan struct{})
		res   = &Result{errs: make([]error, users)}
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.poolSize)

	ready.Add(users)
	for i := range users {
		g.Go(func() error {
			ready.Done()
			select {
			case <-gate:
			case <-gctx.Done():
				res.errs[i] = gctx.Err()
				return nil
			}
			res.errs[i] = task(gctx, i)
			return nil
		})
	}

	ready.Wait()
	start := time.Now()
	close(gate)
	_ = g.Wait()
	res.Elapsed = time.Since(start)

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return res, fmt.Errorf("%w after %s", ErrTimeout, o.timeout)
	}
	return res, nil
}
