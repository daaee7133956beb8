// Package errors wraps errors with the location where they were wrapped.
//
// Usage:
//
//	wrapped := xe.Wrap(err)
//
// The message of wrapped starts with the function, file and line of the
// caller, followed by the message of err. Wrapping at each layer builds a
// "<-" separated chain which reads as a stack of marks.
package errors

import (
	"errors"
	"fmt"
	"runtime"
)

type ErrWithCaller struct {
	file     string
	line     int
	funcname string
	note     string
	err      error
}

func (e *ErrWithCaller) Error() string {
	if e.note == "" {
		return fmt.Sprintf("%s [%s:%d] <- %s", e.funcname, e.file, e.line, e.err.Error())
	}
	return fmt.Sprintf("%s [%s:%d] (%s) <- %s", e.funcname, e.file, e.line, e.note, e.err.Error())
}

func (e *ErrWithCaller) Unwrap() error {
	return e.err
}

// New creates a new error knowing where it was created.
func New(text string) error {
	return wrap("", errors.New(text), 1)
}

// Wrap marks err with the caller's location.
func Wrap(err error) error {
	return wrap("", err, 1)
}

// WrapWithNote is Wrap with an extra note in the message.
func WrapWithNote(note string, err error) error {
	return wrap(note, err, 1)
}

func wrap(note string, err error, depth int) error {
	pc, file, line, ok := runtime.Caller(depth + 1)
	funcname := "(unknown func)"
	if !ok {
		file = "?"
		line = -1
	}
	if fn := runtime.FuncForPC(pc); fn != nil {
		funcname = fn.Name()
	}

	return &ErrWithCaller{
		funcname: funcname,
		file:     file,
		line:     line,
		note:     note,
		err:      err,
	}
}
