package pwm

import (
	"errors"
	"fmt"
	"syscall"
)

// Code is a stable status identifier. Its numeric value is what the front-end
// uses as the process exit code, so existing values must not be renumbered.
type Code int

const (
	OK Code = iota
	DeviceNotFound
	PermissionDenied
	IOFailure
	InvalidDutyRange
	UnknownCommand
	OutOfMemory
	InvalidArgument
)

var codeNames = map[Code]string{
	OK:               "ok",
	DeviceNotFound:   "device not found",
	PermissionDenied: "permission denied",
	IOFailure:        "i/o error",
	InvalidDutyRange: "invalid duty range",
	UnknownCommand:   "unknown command",
	OutOfMemory:      "out of memory",
	InvalidArgument:  "invalid argument",
}

func (c Code) String() string {
	if s, ok := codeNames[c]; ok {
		return s
	}
	return fmt.Sprintf("status %d", int(c))
}

// Error lets a bare Code be returned where no extra context exists.
func (c Code) Error() string { return c.String() }

// ErrAlreadyExported is returned by Backend.Export when the channel is
// already available. Open treats it as success.
var ErrAlreadyExported = errors.New("pwm: channel already exported")

// Error wraps a failure with the operation that produced it.
type Error struct {
	C   Code
	Op  string
	Err error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("pwm: %s: %s", e.Op, e.C)
	}
	return fmt.Sprintf("pwm: %s: %s: %v", e.Op, e.C, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }
func (e *Error) Code() Code    { return e.C }

// IOError reports a failed access to one control attribute.
type IOError struct {
	Attr  string
	Errno syscall.Errno
	Err   error
}

func (e *IOError) Error() string {
	if e.Errno != 0 {
		return fmt.Sprintf("pwm: %s: %v (errno %d)", e.Attr, e.Err, int(e.Errno))
	}
	return fmt.Sprintf("pwm: %s: %v", e.Attr, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }
func (e *IOError) Code() Code    { return IOFailure }

// UnknownCommandError is a script letter with no meaning.
type UnknownCommandError struct {
	Letter rune
	Offset int
}

func (e *UnknownCommandError) Error() string {
	return fmt.Sprintf("unknown command %q at offset %d", e.Letter, e.Offset)
}

func (e *UnknownCommandError) Code() Code { return UnknownCommand }

// ArgumentError is a malformed numeric argument following a script letter.
type ArgumentError struct {
	Letter rune
	Offset int
	Text   string
	Err    error
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("bad argument %q for command %q at offset %d: %v", e.Text, e.Letter, e.Offset, e.Err)
}

func (e *ArgumentError) Unwrap() error { return e.Err }
func (e *ArgumentError) Code() Code    { return InvalidArgument }

// CodeOf extracts a Code from an error. Nil is OK; errors that carry no code
// are reported as IOFailure.
func CodeOf(err error) Code {
	if err == nil {
		return OK
	}
	// The outermost wrapper wins.
	type coder interface{ Code() Code }
	var x coder
	if errors.As(err, &x) {
		return x.Code()
	}
	var c Code
	if errors.As(err, &c) {
		return c
	}
	return IOFailure
}

func errorf(c Code, op, format string, args ...any) error {
	return &Error{C: c, Op: op, Err: fmt.Errorf(format, args...)}
}
