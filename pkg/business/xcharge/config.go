package xcharge

import (
	"fmt"
	"time"

	"github.com/omeyang/xbalance/pkg/config/xconf"
	"github.com/omeyang/xbalance/pkg/distributed/xlease"
)

// 乐观重试默认参数。
const (
	DefaultMaxRetry                 = 5
	DefaultOptimisticInitialBackoff = 50 * time.Millisecond
	DefaultOptimisticMaxBackoff     = 800 * time.Millisecond
	DefaultKeyPrefix                = "ledger:"
)

// LockConfig 锁策略参数。
type LockConfig struct {
	Lease          time.Duration `koanf:"lease"`
	WaitTimeout    time.Duration `koanf:"wait_timeout"`
	InitialBackoff time.Duration `koanf:"initial_backoff"`
	MaxBackoff     time.Duration `koanf:"max_backoff"`
	KeyPrefix      string        `koanf:"key_prefix"`
}

// OptimisticConfig 乐观重试策略参数。
type OptimisticConfig struct {
	MaxRetry       int           `koanf:"max_retry"`
	InitialBackoff time.Duration `koanf:"initial_backoff"`
	MaxBackoff     time.Duration `koanf:"max_backoff"`
}

// Config 两种策略的完整参数。
type Config struct {
	Lock       LockConfig       `koanf:"lock"`
	Optimistic OptimisticConfig `koanf:"optimistic"`
}

// DefaultConfig 返回默认配置。
func DefaultConfig() Config {
	lock := xlease.DefaultOptions()
	return Config{
		Lock: LockConfig{
			Lease:          lock.Lease,
			WaitTimeout:    lock.WaitTimeout,
			InitialBackoff: lock.InitialBackoff,
			MaxBackoff:     lock.MaxBackoff,
			KeyPrefix:      DefaultKeyPrefix,
		},
		Optimistic: OptimisticConfig{
			MaxRetry:       DefaultMaxRetry,
			InitialBackoff: DefaultOptimisticInitialBackoff,
			MaxBackoff:     DefaultOptimisticMaxBackoff,
		},
	}
}

// LoadConfig 在默认配置上叠加 cfg 中出现的键并校验。
func LoadConfig(cfg xconf.Config) (Config, error) {
	c := DefaultConfig()
	if cfg == nil {
		return c, nil
	}
	if err := cfg.Unmarshal("", &c); err != nil {
		return Config{}, err
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate 校验配置。
func (c Config) Validate() error {
	switch {
	case c.Lock.Lease <= 0:
		return fmt.Errorf("%w: lock.lease must be positive, got %s", ErrInvalidConfig, c.Lock.Lease)
	case c.Lock.WaitTimeout < 0:
		return fmt.Errorf("%w: lock.wait_timeout must not be negative, got %s", ErrInvalidConfig, c.Lock.WaitTimeout)
	case c.Lock.InitialBackoff <= 0 || c.Lock.MaxBackoff < c.Lock.InitialBackoff:
		return fmt.Errorf("%w: lock backoff must satisfy 0 < initial <= max, got %s/%s",
			ErrInvalidConfig, c.Lock.InitialBackoff, c.Lock.MaxBackoff)
	case c.Optimistic.MaxRetry < 1:
		return fmt.Errorf("%w: optimistic.max_retry: %w", ErrInvalidConfig, ErrInvalidRetryLimit)
	case c.Optimistic.InitialBackoff <= 0 || c.Optimistic.MaxBackoff < c.Optimistic.InitialBackoff:
		return fmt.Errorf("%w: optimistic backoff must satisfy 0 < initial <= max, got %s/%s",
			ErrInvalidConfig, c.Optimistic.InitialBackoff, c.Optimistic.MaxBackoff)
	}
	return nil
}

// Options 转换为 xlease 的单次执行参数。
func (c LockConfig) Options() []xlease.Option {
	return []xlease.Option{
		xlease.WithLease(c.Lease),
		xlease.WithWaitTimeout(c.WaitTimeout),
		xlease.WithBackoff(c.InitialBackoff, c.MaxBackoff),
	}
}
