package util

import "errors"

var (
	ErrVariantNotFound    = errors.New("variant not found")
	ErrAttemptNotFound    = errors.New("attempt not found")
	ErrBindingNotFound    = errors.New("variant task not found")
	ErrAttemptFinished    = errors.New("attempt already finished")
	ErrAttemptNotFinished = errors.New("attempt not finished")
)

// IsNotFound 报告 err 是否属于资源不存在（含无权访问）一类。
func IsNotFound(err error) bool {
	return errors.Is(err, ErrAttemptNotFound) ||
		errors.Is(err, ErrBindingNotFound) ||
		errors.Is(err, ErrVariantNotFound)
}
