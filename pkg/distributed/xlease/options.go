package xlease

import (
	"time"

	"github.com/omeyang/xbalance/pkg/observability/xlog"
	"github.com/omeyang/xbalance/pkg/observability/xmetrics"
)

// 默认参数。
const (
	DefaultLease          = time.Second
	DefaultWaitTimeout    = 10 * time.Second
	DefaultInitialBackoff = 20 * time.Millisecond
	DefaultMaxBackoff     = 200 * time.Millisecond
)

// Options 单次加锁执行的参数。
type Options struct {
	// Lease 租约时长，超过后其他调用方可回收该 key。
	Lease time.Duration
	// WaitTimeout 获取锁的最长等待时间。
	WaitTimeout time.Duration
	// InitialBackoff 首次重试前的等待时间，之后翻倍。
	InitialBackoff time.Duration
	// MaxBackoff 重试等待上限。
	MaxBackoff time.Duration
}

// DefaultOptions 返回默认参数：租约 1s，等待 10s，退避 20ms→200ms。
func DefaultOptions() Options {
	return Options{
		Lease:          DefaultLease,
		WaitTimeout:    DefaultWaitTimeout,
		InitialBackoff: DefaultInitialBackoff,
		MaxBackoff:     DefaultMaxBackoff,
	}
}

// Option 调整单次执行参数。
type Option func(*Options)

// WithLease 设置租约时长，d <= 0 时忽略。
func WithLease(d time.Duration) Option {
	return func(o *Options) {
		if d > 0 {
			o.Lease = d
		}
	}
}

// WithWaitTimeout 设置获取锁的等待时限。d <= 0 表示只尝试一次。
func WithWaitTimeout(d time.Duration) Option {
	return func(o *Options) {
		o.WaitTimeout = max(d, 0)
	}
}

// WithBackoff 设置获取重试的初始与最大退避，非正值忽略。
func WithBackoff(initial, maxBackoff time.Duration) Option {
	return func(o *Options) {
		if initial > 0 {
			o.InitialBackoff = initial
		}
		if maxBackoff > 0 {
			o.MaxBackoff = maxBackoff
		}
	}
}

// ExecutorOption 定义 Executor 的配置选项。
type ExecutorOption func(*Executor)

// WithDefaults 设置该 Executor 每次调用的默认参数，可被调用级 Option 覆盖。
func WithDefaults(opts ...Option) ExecutorOption {
	return func(e *Executor) {
		for _, opt := range opts {
			if opt != nil {
				opt(&e.defaults)
			}
		}
	}
}

// WithRegistry 使用外部 Registry，用于多个 Executor 共享同一组租约。
func WithRegistry(r *Registry) ExecutorOption {
	return func(e *Executor) {
		if r != nil {
			e.registry = r
		}
	}
}

// WithLogger 设置日志记录器，默认丢弃。
func WithLogger(l xlog.Logger) ExecutorOption {
	return func(e *Executor) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithObserver 设置可观测性 Observer，默认 NoopObserver。
func WithObserver(obs xmetrics.Observer) ExecutorOption {
	return func(e *Executor) {
		if obs != nil {
			e.observer = obs
		}
	}
}

// WithOwnerFunc 替换所有者令牌生成函数，默认 uuid.NewString。
func WithOwnerFunc(fn func() string) ExecutorOption {
	return func(e *Executor) {
		if fn != nil {
			e.newOwner = fn
		}
	}
}
