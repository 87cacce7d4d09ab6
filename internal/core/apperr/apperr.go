package apperr

import "errors"

type Kind string

const (
	KindConfiguration  Kind = "configuration"
	KindEnvironment    Kind = "environment"
	KindValidation     Kind = "validation"
	KindConflict       Kind = "conflict"
	KindAuthentication Kind = "authentication"
	KindDatastore      Kind = "datastore"
	KindInternal       Kind = "internal"
)

// Error 统一错误对象：Msg 面向调用方，Err 只用于服务端日志
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Msg != "" && e.Err != nil:
		return e.Msg + ": " + e.Err.Error()
	case e.Msg != "":
		return e.Msg
	case e.Err != nil:
		return e.Err.Error()
	}
	return string(e.Kind) + " error"
}

func (e *Error) Unwrap() error { return e.Err }

// Is 按 Kind 比较，errors.Is(err, apperr.ErrConflict) 这类写法可用
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Msg == "" && t.Err == nil && t.Kind == e.Kind
}

// 仅用于 errors.Is 比较的哨兵
var (
	ErrConfiguration  = &Error{Kind: KindConfiguration}
	ErrEnvironment    = &Error{Kind: KindEnvironment}
	ErrValidation     = &Error{Kind: KindValidation}
	ErrConflict       = &Error{Kind: KindConflict}
	ErrAuthentication = &Error{Kind: KindAuthentication}
	ErrDatastore      = &Error{Kind: KindDatastore}
	ErrInternal       = &Error{Kind: KindInternal}
)

func Configuration(msg string) error  { return &Error{Kind: KindConfiguration, Msg: msg} }
func Environment(msg string) error    { return &Error{Kind: KindEnvironment, Msg: msg} }
func Validation(msg string) error     { return &Error{Kind: KindValidation, Msg: msg} }
func Conflict(msg string) error       { return &Error{Kind: KindConflict, Msg: msg} }
func Authentication(msg string) error { return &Error{Kind: KindAuthentication, Msg: msg} }
func Datastore(msg string, err error) error {
	return &Error{Kind: KindDatastore, Msg: msg, Err: err}
}
func Internal(msg string, err error) error {
	return &Error{Kind: KindInternal, Msg: msg, Err: err}
}

// KindOf 非 *Error 一律视为 internal
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// MessageOf 返回面向调用方的消息（不含底层错误）
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Msg
	}
	return ""
}
