package xlog

import (
	"context"
	"log/slog"
)

// Logger 以 context 为首参的结构化日志接口，属性只接受 slog.Attr。
// ctx 中的 trace/span 信息由 EnrichHandler 注入。
type Logger interface {
	Debug(ctx context.Context, msg string, attrs ...slog.Attr)
	Info(ctx context.Context, msg string, attrs ...slog.Attr)
	Warn(ctx context.Context, msg string, attrs ...slog.Attr)
	Error(ctx context.Context, msg string, attrs ...slog.Attr)

	With(attrs ...slog.Attr) Logger
	WithGroup(name string) Logger
}

// LoggerWithLevel 可在运行时调整级别的 Logger，由 Builder.Build 返回。
type LoggerWithLevel interface {
	Logger

	SetLevel(level Level)
	GetLevel() Level
	Enabled(ctx context.Context, level Level) bool
}
