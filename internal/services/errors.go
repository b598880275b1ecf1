package services

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation 输入校验失败，操作被拒绝且状态未改变
	ErrValidation = errors.New("validation failed")
	// ErrNotFound 引用的记录不存在
	ErrNotFound = errors.New("not found")
)

func validationError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func notFoundError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}
