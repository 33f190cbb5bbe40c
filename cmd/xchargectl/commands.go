package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"
)

// usageError 表示参数错误，对应退出码 2。
type usageError struct {
	msg string
}

func (e *usageError) Error() string { return e.msg }

func newUsageError(format string, args ...any) error {
	return &usageError{msg: fmt.Sprintf(format, args...)}
}

// cliUsageMarkers urfave/cli 参数解析错误的特征文本。
var cliUsageMarkers = []string{
	"flag provided but not defined",
	"invalid value",
	"flag needs an argument",
	"No help topic for",
	"Required flag",
}

// isCLIUsageError 判断 err 是否为 CLI 框架产生的参数错误。
func isCLIUsageError(err error) bool {
	msg := err.Error()
	for _, marker := range cliUsageMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// setupSignalHandler 第一次信号取消 ctx，第二次信号强制退出（130 = 128 + SIGINT）。
func setupSignalHandler(cancel context.CancelFunc) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()

		<-sigCh
		signal.Stop(sigCh)
		os.Exit(130)
	}()
}

// createSimulateCommand 创建 simulate 子命令。
func createSimulateCommand() *cli.Command {
	return &cli.Command{
		Name:    "simulate",
		Aliases: []string{"sim"},
		Usage:   "在同一记录上并发执行充值并报告结果",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "strategy", Aliases: []string{"s"}, Usage: "lock | optimistic | pessimistic", Value: strategyOptimistic},
			&cli.IntFlag{Name: "users", Aliases: []string{"u"}, Usage: "并发用户数", Value: 10},
			&cli.Int64Flag{Name: "amount", Aliases: []string{"a"}, Usage: "每个用户的充值金额", Value: 100},
			&cli.Int64Flag{Name: "initial", Usage: "记录初始余额", Value: 1000},
			&cli.Int64Flag{Name: "record", Usage: "记录 ID", Value: 1},
			&cli.IntFlag{Name: "max-retry", Usage: "乐观重试上限，覆盖配置文件"},
			&cli.DurationFlag{Name: "write-delay", Usage: "内存账本写入前的模拟延迟"},
			&cli.DurationFlag{Name: "slow-threshold", Usage: "账本慢操作告警阈值，0 表示关闭", Value: 100 * time.Millisecond},
			&cli.DurationFlag{Name: "timeout", Usage: "等待全部用户完成的时限", Value: 30 * time.Second},
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "YAML/JSON 配置文件"},
			&cli.StringFlag{Name: "redis", Usage: "Redis 地址，锁与账本都改用 Redis"},
			&cli.StringSliceFlag{Name: "etcd", Usage: "etcd 端点，锁改用 etcd"},
			&cli.StringFlag{Name: "mongo", Usage: "MongoDB URI，账本改用 MongoDB"},
			&cli.StringFlag{Name: "mongo-db", Usage: "MongoDB 数据库名", Value: "xbalance"},
			&cli.StringFlag{Name: "log-level", Usage: "日志级别 (debug/info/warn/error)", Value: "info"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			p := simulateParams{
				strategy:    cmd.String("strategy"),
				users:       cmd.Int("users"),
				amount:      cmd.Int64("amount"),
				initial:     cmd.Int64("initial"),
				record:      cmd.Int64("record"),
				maxRetry:    cmd.Int("max-retry"),
				maxRetrySet: cmd.IsSet("max-retry"),
				writeDelay:  cmd.Duration("write-delay"),
				slowOp:      cmd.Duration("slow-threshold"),
				timeout:     cmd.Duration("timeout"),
				configPath:  cmd.String("config"),
				redisAddr:   cmd.String("redis"),
				etcd:        cmd.StringSlice("etcd"),
				mongoURI:    cmd.String("mongo"),
				mongoDB:     cmd.String("mongo-db"),
				logLevel:    cmd.String("log-level"),
			}
			return cmdSimulate(ctx, cmd.Root().Writer, cmd.Root().ErrWriter, p)
		},
	}
}
