package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	clientv3 "go.etcd.io/etcd/client/v3"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/omeyang/xbalance/internal/burst"
	"github.com/omeyang/xbalance/internal/storageopt"
	"github.com/omeyang/xbalance/pkg/business/xcharge"
	"github.com/omeyang/xbalance/pkg/config/xconf"
	"github.com/omeyang/xbalance/pkg/distributed/xlease"
	"github.com/omeyang/xbalance/pkg/observability/xlog"
	"github.com/omeyang/xbalance/pkg/observability/xmetrics"
	"github.com/omeyang/xbalance/pkg/storage/xledger"
)

const (
	strategyLock        = "lock"
	strategyOptimistic  = "optimistic"
	strategyPessimistic = "pessimistic"

	mongoCollection = "records"
)

type simulateParams struct {
	strategy    string
	users       int
	amount      int64
	initial     int64
	record      int64
	maxRetry    int
	maxRetrySet bool
	writeDelay  time.Duration
	slowOp      time.Duration
	timeout     time.Duration
	configPath  string
	redisAddr   string
	etcd        []string
	mongoURI    string
	mongoDB     string
	logLevel    string
}

func (p simulateParams) validate() error {
	switch {
	case p.strategy != strategyLock && p.strategy != strategyOptimistic && p.strategy != strategyPessimistic:
		return newUsageError("unknown strategy %q, want %s, %s or %s",
			p.strategy, strategyLock, strategyOptimistic, strategyPessimistic)
	case p.strategy == strategyPessimistic && p.mongoURI != "":
		return newUsageError("strategy %s needs a row-lock ledger, --mongo does not provide one", strategyPessimistic)
	case p.users < 1:
		return newUsageError("--users must be at least 1, got %d", p.users)
	case p.maxRetrySet && p.maxRetry < 1:
		return newUsageError("--max-retry must be at least 1, got %d", p.maxRetry)
	case p.timeout <= 0:
		return newUsageError("--timeout must be positive, got %s", p.timeout)
	case p.writeDelay < 0:
		return newUsageError("--write-delay must not be negative, got %s", p.writeDelay)
	case p.slowOp < 0:
		return newUsageError("--slow-threshold must not be negative, got %s", p.slowOp)
	}
	return nil
}

// summary 一次模拟的统计。
type summary struct {
	strategy    string
	users       int
	succeeded   int
	busy        int
	lockTimeout int
	other       int
	initial     int64
	final       xledger.Record
	stats       xledger.Stats
	elapsed     time.Duration
}

func (s summary) print(w io.Writer) {
	fmt.Fprintf(w, "strategy:   %s\n", s.strategy)
	fmt.Fprintf(w, "users:      %d\n", s.users)
	fmt.Fprintf(w, "succeeded:  %d\n", s.succeeded)
	fmt.Fprintf(w, "failed:     %d (busy %d, lock timeout %d, other %d)\n",
		s.busy+s.lockTimeout+s.other, s.busy, s.lockTimeout, s.other)
	fmt.Fprintf(w, "initial:    %d\n", s.initial)
	fmt.Fprintf(w, "final:      %d\n", s.final.Balance)
	fmt.Fprintf(w, "version:    %d\n", s.final.Version)
	fmt.Fprintf(w, "conflicts:  %d\n", s.stats.Conflicts)
	fmt.Fprintf(w, "slow ops:   %d\n", s.stats.SlowOps)
	fmt.Fprintf(w, "elapsed:    %s\n", s.elapsed.Round(time.Millisecond))
}

// cmdSimulate 搭建后端、播种记录、运行并发充值并校验余额守恒。
func cmdSimulate(ctx context.Context, stdout, stderr io.Writer, p simulateParams) error {
	if err := p.validate(); err != nil {
		return err
	}

	logger, cleanup, err := xlog.New().SetOutput(stderr).SetLevelString(p.logLevel).Build()
	if err != nil {
		return newUsageError("%v", err)
	}
	defer func() { _ = cleanup() }()

	cfg, err := loadConfig(ctx, p, logger)
	if err != nil {
		return err
	}

	observer, err := xmetrics.NewOTelObserver()
	if err != nil {
		return fmt.Errorf("create observer: %w", err)
	}

	b, err := openBackends(ctx, p)
	if err != nil {
		return err
	}
	defer b.close()
	ledger := xledger.Instrument(b.ledger,
		xledger.WithSlowThreshold(p.slowOp),
		xledger.WithInstrumentLogger(logger),
	)
	b.ledger = ledger

	baseline, err := seed(ctx, b.ledger, p.record, p.initial, logger)
	if err != nil {
		return err
	}

	charger, err := newCharger(p.strategy, b, cfg, logger, observer)
	if err != nil {
		return err
	}

	logger.Info(ctx, "simulation started",
		xlog.Operation(p.strategy), xlog.RecordID(p.record))

	res, err := burst.Run(ctx, p.users, func(ctx context.Context, _ int) error {
		_, err := charger.Charge(ctx, p.record, p.amount)
		return err
	}, burst.WithTimeout(p.timeout))
	if err != nil {
		return err
	}

	final, err := b.ledger.FindByID(context.WithoutCancel(ctx), p.record)
	if err != nil {
		return fmt.Errorf("read final record: %w", err)
	}

	s := summary{
		strategy:  p.strategy,
		users:     p.users,
		succeeded: res.Succeeded(),
		initial:   baseline,
		final:     final,
		stats:     ledger.Stats(),
		elapsed:   res.Elapsed,
	}
	for _, e := range res.Errors() {
		switch {
		case errors.Is(e, xcharge.ErrConcurrencyBusy):
			s.busy++
		case errors.Is(e, xlease.ErrLockTimeout):
			s.lockTimeout++
		default:
			s.other++
			logger.Warn(ctx, "charge failed", xlog.Err(e))
		}
	}
	s.print(stdout)

	expected := baseline + int64(s.succeeded)*p.amount
	if final.Balance != expected {
		return fmt.Errorf("lost update detected: balance %d, expected %d", final.Balance, expected)
	}
	return nil
}

func loadConfig(ctx context.Context, p simulateParams, logger xlog.Logger) (xcharge.Config, error) {
	var src xconf.Config
	if p.configPath != "" {
		c, err := xconf.New(p.configPath)
		if err != nil {
			return xcharge.Config{}, newUsageError("load config: %v", err)
		}
		logger.Info(ctx, "config loaded", slog.String("path", c.Path()), slog.String("format", string(c.Format())))
		src = c
	}
	cfg, err := xcharge.LoadConfig(src)
	if err != nil {
		return xcharge.Config{}, newUsageError("%v", err)
	}
	if p.maxRetrySet {
		cfg.Optimistic.MaxRetry = p.maxRetry
	}
	return cfg, nil
}

// seed 创建记录并返回基线余额；记录已存在时沿用其当前余额。
func seed(ctx context.Context, ledger xledger.Store, id, initial int64, logger xlog.Logger) (int64, error) {
	rec, err := ledger.Create(ctx, xledger.Record{ID: id, Balance: initial})
	if err == nil {
		return rec.Balance, nil
	}
	if !errors.Is(err, xledger.ErrAlreadyExists) {
		return 0, fmt.Errorf("seed record %d: %w", id, err)
	}
	rec, err = ledger.FindByID(ctx, id)
	if err != nil {
		return 0, fmt.Errorf("seed record %d: %w", id, err)
	}
	logger.Warn(ctx, "record already exists, using current balance",
		xlog.RecordID(id), slog.Int64("balance", rec.Balance))
	return rec.Balance, nil
}

func newCharger(strategy string, b *backends, cfg xcharge.Config, logger xlog.Logger, observer xmetrics.Observer) (xcharge.Charger, error) {
	opts := []xcharge.Option{xcharge.WithLogger(logger), xcharge.WithObserver(observer)}
	switch strategy {
	case strategyOptimistic:
		return xcharge.NewOptimisticCharger(b.ledger, cfg.Optimistic, opts...)
	case strategyPessimistic:
		return xcharge.NewPessimisticCharger(b.ledger, opts...)
	}
	exec, err := xlease.NewExecutor(b.lock,
		xlease.WithLogger(logger),
		xlease.WithObserver(observer),
	)
	if err != nil {
		return nil, err
	}
	return xcharge.NewLockedCharger(exec, b.ledger, cfg.Lock, opts...)
}

// backends 锁与账本后端及其关闭函数。
type backends struct {
	lock    xlease.Store
	ledger  xledger.Store
	closers []func()
}

func (b *backends) close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}

func openBackends(ctx context.Context, p simulateParams) (_ *backends, err error) {
	b := &backends{
		lock:   xlease.NewMemoryStore(),
		ledger: xledger.NewMemoryStore(xledger.WithWriteDelay(p.writeDelay)),
	}
	defer func() {
		if err != nil {
			b.close()
		}
	}()

	dialCtx, cancel := storageopt.HealthContext(ctx, storageopt.DefaultHealthTimeout)
	defer cancel()

	if p.redisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: p.redisAddr})
		b.closers = append(b.closers, func() { _ = client.Close() })
		if err := client.Ping(dialCtx).Err(); err != nil {
			return nil, fmt.Errorf("connect redis %s: %w", p.redisAddr, err)
		}
		if b.lock, err = xlease.NewRedisStore(client); err != nil {
			return nil, err
		}
		if b.ledger, err = xledger.NewRedisStore(client); err != nil {
			return nil, err
		}
	}

	if len(p.etcd) > 0 {
		client, err := clientv3.New(clientv3.Config{Endpoints: p.etcd, DialTimeout: storageopt.DefaultHealthTimeout})
		if err != nil {
			return nil, fmt.Errorf("connect etcd: %w", err)
		}
		b.closers = append(b.closers, func() { _ = client.Close() })
		if b.lock, err = xlease.NewEtcdStore(client); err != nil {
			return nil, err
		}
	}

	if p.mongoURI != "" {
		client, err := mongo.Connect(options.Client().ApplyURI(p.mongoURI))
		if err != nil {
			return nil, fmt.Errorf("connect mongo: %w", err)
		}
		b.closers = append(b.closers, func() { _ = client.Disconnect(context.Background()) })
		if err := client.Ping(dialCtx, nil); err != nil {
			return nil, fmt.Errorf("ping mongo: %w", err)
		}
		if b.ledger, err = xledger.NewMongoStore(client.Database(p.mongoDB).Collection(mongoCollection)); err != nil {
			return nil, err
		}
	}
	return b, nil
}
