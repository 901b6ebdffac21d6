package errdef

import (
	"errors"
	"fmt"
)

type Code string

const (
	CodeUnknown      Code = "unknown"
	CodeSelection    Code = "selection"
	CodeRestore      Code = "restore"
	CodeDisconnected Code = "disconnected"
	CodeTree         Code = "tree"
	CodeStore        Code = "store"
	CodeSeed         Code = "seed"
	CodeSink         Code = "sink"
	CodeConfig       Code = "config"
	CodeFilesystem   Code = "filesystem"
)

type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	switch {
	case e.Message != "" && e.Err != nil:
		return e.Message + ": " + e.Err.Error()
	case e.Message != "":
		return e.Message
	case e.Err != nil:
		return e.Err.Error()
	default:
		return string(e.Code)
	}
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func New(code Code, format string, args ...any) error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap returns nil when err is nil so call sites can wrap unconditionally.
func Wrap(code Code, err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Err: err}
}

// CodeOf reports the outermost code attached to err.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	var target *Error
	if errors.As(err, &target) && target.Code != "" {
		return target.Code
	}
	return CodeUnknown
}

func Message(err error) string {
	if err == nil {
		return ""
	}
	var target *Error
	if errors.As(err, &target) && target.Message != "" {
		return target.Message
	}
	return err.Error()
}
