package xlog

import "errors"

var (
	// ErrUnknownLevel 日志级别字符串无法识别。
	ErrUnknownLevel = errors.New("xlog: unknown level")

	// ErrUnknownFormat 输出格式不是 text/json。
	ErrUnknownFormat = errors.New("xlog: unknown format")

	// ErrNilOutput 输出目标为 nil。
	ErrNilOutput = errors.New("xlog: output is nil")

	// ErrEmptyFilename 轮转文件名为空。
	ErrEmptyFilename = errors.New("xlog: rotation filename is empty")

	// ErrNilHandler NewEnrichHandler 的 base handler 为 nil。
	ErrNilHandler = errors.New("xlog: base handler is nil")
)
