package xretry

import "errors"

var (
	ErrNilRetryer = errors.New("xretry: nil retryer")
	ErrNilContext = errors.New("xretry: nil context")
	ErrNilFunc    = errors.New("xretry: nil function")
)

// RetryableError 可重试错误接口。
type RetryableError interface {
	error
	Retryable() bool
}

// PermanentError 永久性错误（不应重试）
type PermanentError struct {
	Err error
}

// NewPermanentError 创建永久性错误
func NewPermanentError(err error) *PermanentError {
	return &PermanentError{Err: err}
}

func (e *PermanentError) Error() string {
	if e.Err == nil {
		return "permanent error"
	}
	return e.Err.Error()
}

func (e *PermanentError) Unwrap() error { return e.Err }

func (e *PermanentError) Retryable() bool { return false }

// IsRetryable 检查错误是否可重试。
// nil 不需要重试；实现 RetryableError 的按其声明；其他错误默认可重试。
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var re RetryableError
	if errors.As(err, &re) {
		return re.Retryable()
	}
	return true
}
