// Package apperr 定义对外可区分的错误类别。
package apperr

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindMalformedInput     Kind = "malformed_input"
	KindInvalidOperation   Kind = "invalid_operation"
	KindStorageUnavailable Kind = "storage_unavailable"
	KindInternal           Kind = "internal"
)

// Error 携带类别的错误，Op 为出错的操作名（工具名、文件名等）
type Error struct {
	Kind Kind
	Op   string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	msg := e.Msg
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		if e.Msg == "" {
			return fmt.Sprintf("%s: %v", e.Op, e.Err)
		}
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// kinded 允许其它包的错误类型自带类别（如入库时的记录错误）
type kinded interface {
	ErrorKind() Kind
}

func Invalid(op, format string, args ...interface{}) error {
	return &Error{Kind: KindInvalidOperation, Op: op, Msg: fmt.Sprintf(format, args...)}
}

func Unavailable(op string, err error) error {
	return &Error{Kind: KindStorageUnavailable, Op: op, Msg: "存储不可用", Err: err}
}

func Wrap(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf 返回错误链上第一个带类别的错误的类别，nil 返回空
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	var k kinded
	if errors.As(err, &k) {
		return k.ErrorKind()
	}
	return KindInternal
}

func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
