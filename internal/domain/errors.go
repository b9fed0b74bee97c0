package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation 标题或内容为空等输入错误
	ErrValidation = errors.New("validation error")
	// ErrNotFound 引用了不存在的笔记
	ErrNotFound = errors.New("note not found")
	// ErrNetwork 探测或同步请求失败
	ErrNetwork = errors.New("network error")
	// ErrMergeDeferred 存在未关闭的编辑，合并已排队
	ErrMergeDeferred = errors.New("merge deferred while editing")
)

// ValidationError 字段校验失败
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid %s: must not be empty", e.Field)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// NotFoundError 笔记不存在
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("note %q not found", e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// NetworkError 与对端通信失败
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

func (e *NetworkError) Is(target error) bool { return target == ErrNetwork }
