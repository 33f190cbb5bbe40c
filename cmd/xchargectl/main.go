// xchargectl 在同一条账本记录上制造并发争用，对比租约锁与乐观重试两种策略。
//
// 用法:
//
//	xchargectl simulate [选项]
//
// simulate 选项:
//
//	--strategy      lock | optimistic | pessimistic (默认: optimistic)
//	--users         并发用户数 (默认: 10)
//	--amount        每个用户的充值金额，负数表示扣减 (默认: 100)
//	--initial       记录初始余额 (默认: 1000)
//	--record        记录 ID (默认: 1)
//	--max-retry     乐观重试上限，覆盖配置文件
//	--write-delay   内存账本写入前的模拟延迟，用于放大冲突
//	--slow-threshold 账本慢操作告警阈值 (默认: 100ms)
//	--timeout       等待全部用户完成的时限 (默认: 30s)
//	--config        YAML/JSON 配置文件，结构见 xcharge.Config
//	--redis         Redis 地址，锁与账本都改用 Redis
//	--etcd          etcd 端点，锁改用 etcd
//	--mongo         MongoDB URI，账本改用 MongoDB
//	--log-level     日志级别 (默认: info)
//
// 退出码:
//
//	0: 模拟完成且余额守恒
//	1: 运行错误（后端不可用、检测到丢失更新等）
//	2: 参数错误
//
// 示例:
//
//	xchargectl simulate --strategy lock --users 10 --amount 100 --initial 1000
//	xchargectl simulate --strategy optimistic --users 64 --max-retry 3 --write-delay 2ms
//	xchargectl simulate --redis 127.0.0.1:6379 --config charge.yaml
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v3"
)

// 版本信息（可通过 -ldflags 注入）。
var (
	Version   = "0.1.0-dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

func main() {
	os.Exit(run())
}

// createApp 创建 CLI 应用。
func createApp(stdout, stderr io.Writer) *cli.Command {
	return &cli.Command{
		Name:      "xchargectl",
		Usage:     "并发扣/充值策略演练工具",
		Version:   fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildTime),
		Writer:    stdout,
		ErrWriter: stderr,
		Commands: []*cli.Command{
			createSimulateCommand(),
		},
		DefaultCommand: "help",
		// 退出码统一由 runArgs 映射，禁止 urfave/cli 直接 os.Exit。
		ExitErrHandler: func(_ context.Context, _ *cli.Command, err error) {
			if _, ok := err.(cli.ExitCoder); ok {
				fmt.Fprintln(stderr, err)
			}
		},
	}
}

func run() int {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	setupSignalHandler(cancel)
	return runArgs(ctx, os.Args, os.Stdout, os.Stderr)
}

// runArgs 执行命令并返回退出码。
func runArgs(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	app := createApp(stdout, stderr)
	if err := app.Run(ctx, args); err != nil {
		var usageErr *usageError
		if errors.As(err, &usageErr) {
			fmt.Fprintf(stderr, "参数错误: %v\n", usageErr)
			return 2
		}
		if isCLIUsageError(err) {
			return 2
		}
		fmt.Fprintf(stderr, "错误: %v\n", err)
		return 1
	}
	return 0
}
