package xmetrics

import (
	"context"
	"fmt"
)

// Observer 为扣费、加锁等操作开启观测跨度。
// 实现需并发安全；本包提供 OTel 实现与 NoopObserver。
type Observer interface {
	Start(ctx context.Context, opts SpanOptions) (context.Context, Span)
}

// Span 是一次进行中的操作，End 只应调用一次。
type Span interface {
	End(result Result)
}

// SpanOptions 描述被观测的操作。
// Component 取组件名（如 xlease、xcharge），Operation 取操作名（如 locked_charge）。
type SpanOptions struct {
	Component string
	Operation string
	Kind      Kind
	Attrs     []Attr
}

// Result 是操作结束时上报的结果。Status 留空时由 Err 决定。
type Result struct {
	Status Status
	Err    error
	Attrs  []Attr
}

// Attr 是附加在跨度或指标上的键值对，构造见 attrs.go。
type Attr struct {
	Key   string
	Value any
}

// Kind 区分进程内操作与对存储后端的调用。
type Kind int

const (
	KindInternal Kind = iota
	KindClient
)

var kindNames = [...]string{KindInternal: "Internal", KindClient: "Client"}

func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Status 是操作结果。
type Status string

const (
	StatusOK    Status = "ok"
	StatusError Status = "error"
)

// NoopObserver 不产生任何数据，未配置观测时使用。
type NoopObserver struct{}

func (NoopObserver) Start(ctx context.Context, _ SpanOptions) (context.Context, Span) {
	return orBackground(ctx), NoopSpan{}
}

// NoopSpan 丢弃结果。
type NoopSpan struct{}

func (NoopSpan) End(Result) {}

// Start 是调用方开启跨度的统一入口：
// observer 为 nil 或其实现返回 nil 时回退到空实现，返回值始终可用。
func Start(ctx context.Context, observer Observer, opts SpanOptions) (context.Context, Span) {
	ctx = orBackground(ctx)
	if observer == nil {
		return ctx, NoopSpan{}
	}
	next, span := observer.Start(ctx, opts)
	if next == nil {
		next = ctx
	}
	if span == nil {
		span = NoopSpan{}
	}
	return next, span
}

func orBackground(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
