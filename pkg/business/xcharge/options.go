package xcharge

import (
	"github.com/omeyang/xbalance/pkg/observability/xlog"
	"github.com/omeyang/xbalance/pkg/observability/xmetrics"
	"github.com/omeyang/xbalance/pkg/resilience/xretry"
)

type options struct {
	logger   xlog.Logger
	observer xmetrics.Observer
	backoff  xretry.BackoffPolicy
}

func defaultOptions() *options {
	return &options{
		logger:   xlog.Discard(),
		observer: xmetrics.NoopObserver{},
	}
}

func applyOptions(opts []Option) *options {
	o := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	return o
}

// Option 定义 Charger 的配置选项。
type Option func(*options)

// WithLogger 设置日志记录器，默认丢弃。
func WithLogger(l xlog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithObserver 设置可观测性 Observer。
func WithObserver(obs xmetrics.Observer) Option {
	return func(o *options) {
		if obs != nil {
			o.observer = obs
		}
	}
}

// WithBackoffPolicy 替换乐观重试的退避策略，默认按配置构建 FullJitterBackoff。
// 仅对 OptimisticCharger 生效。
func WithBackoffPolicy(p xretry.BackoffPolicy) Option {
	return func(o *options) {
		if p != nil {
			o.backoff = p
		}
	}
}
