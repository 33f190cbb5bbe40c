package xlog

import (
	"context"
	"log/slog"
	"os"
	"sync/atomic"
)

// 进程级 Logger，供 xchargectl 这类入口使用；库组件一律经 WithLogger 注入。
var global atomic.Pointer[LoggerWithLevel]

// Default 返回进程级 Logger，首次调用时创建 stderr/info/text 的默认实例。
func Default() LoggerWithLevel {
	for {
		if l := global.Load(); l != nil {
			return *l
		}
		fresh := fallbackLogger()
		if global.CompareAndSwap(nil, &fresh) {
			return fresh
		}
	}
}

// SetDefault 替换进程级 Logger，nil 不生效。
func SetDefault(l LoggerWithLevel) {
	if l != nil {
		global.Store(&l)
	}
}

// ResetDefault 清空进程级 Logger，下次 Default 重新创建。测试用。
func ResetDefault() {
	global.Store(nil)
}

func fallbackLogger() LoggerWithLevel {
	if l, _, err := New().Build(); err == nil {
		return l
	}
	return &xlogger{handler: slog.NewTextHandler(os.Stderr, nil), levelVar: new(slog.LevelVar)}
}

func Info(ctx context.Context, msg string, attrs ...slog.Attr) {
	Default().Info(ctx, msg, attrs...)
}

func Warn(ctx context.Context, msg string, attrs ...slog.Attr) {
	Default().Warn(ctx, msg, attrs...)
}

func Error(ctx context.Context, msg string, attrs ...slog.Attr) {
	Default().Error(ctx, msg, attrs...)
}
