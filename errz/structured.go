// Package errz defines the structured error type shared by the
// compiler and the virtual machine.
package errz

import (
	"bytes"
	"fmt"
	"strings"
)

// ErrorKind represents the category of an error.
type ErrorKind int

const (
	// ErrCompile indicates the program could not be compiled.
	ErrCompile ErrorKind = iota
	// ErrName indicates an undefined variable or function.
	ErrName
	// ErrType indicates a type mismatch or invalid operation on a type.
	ErrType
	// ErrValue indicates an invalid value for an operation.
	ErrValue
	// ErrRuntime indicates a general runtime error.
	ErrRuntime
	// ErrFuel indicates the fuel budget was exhausted.
	ErrFuel
	// ErrAssert indicates a failed runtime assertion.
	ErrAssert
	// ErrSecurity indicates a failed security check.
	ErrSecurity
)

// String returns the string representation of the error kind.
func (k ErrorKind) String() string {
	switch k {
	case ErrCompile:
		return "compile error"
	case ErrName:
		return "name error"
	case ErrType:
		return "type error"
	case ErrValue:
		return "value error"
	case ErrRuntime:
		return "runtime error"
	case ErrFuel:
		return "fuel exhausted"
	case ErrAssert:
		return "assertion error"
	case ErrSecurity:
		return "security error"
	default:
		return "error"
	}
}

// SourceLocation represents a position in source code.
type SourceLocation struct {
	Filename string
	Line     int    // 1-based line number
	Column   int    // 1-based column number
	Source   string // The line of source code
}

// String returns a formatted string representation of the source location.
func (s SourceLocation) String() string {
	if s.Filename != "" {
		return fmt.Sprintf("%s:%d:%d", s.Filename, s.Line, s.Column)
	}
	return fmt.Sprintf("%d:%d", s.Line, s.Column)
}

// IsZero returns true if the location has not been set.
func (s SourceLocation) IsZero() bool {
	return s.Line == 0 && s.Column == 0
}

// StackFrame represents a single frame in the call stack.
type StackFrame struct {
	Function string
	Location SourceLocation
}

// String returns a formatted string representation of the stack frame.
func (f StackFrame) String() string {
	if f.Function != "" {
		return fmt.Sprintf("at %s (%s)", f.Function, f.Location.String())
	}
	return fmt.Sprintf("at %s", f.Location.String())
}

// FormatStackTrace formats a slice of stack frames as a human-readable string.
func FormatStackTrace(frames []StackFrame) string {
	if len(frames) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("Stack trace:\n")
	for _, frame := range frames {
		b.WriteString("  ")
		b.WriteString(frame.String())
		b.WriteString("\n")
	}
	return b.String()
}

// StructuredError is a rich error type with source locations, visual
// snippets, and stack traces for actionable diagnostics. Errors raised
// during execution are terminal: the machine does not resume after one.
type StructuredError struct {
	Message  string
	Kind     ErrorKind
	Location SourceLocation
	Stack    []StackFrame
	Cause    error
}

// Error implements the error interface.
func (e *StructuredError) Error() string {
	if e.Location.IsZero() {
		return fmt.Sprintf("%s: %s", e.Kind.String(), e.Message)
	}
	return fmt.Sprintf("%s: %s (%d:%d)", e.Kind.String(), e.Message, e.Location.Line, e.Location.Column)
}

// Unwrap returns the underlying cause of the error.
func (e *StructuredError) Unwrap() error {
	return e.Cause
}

// FriendlyErrorMessage returns a human-friendly error message with
// visual context including source snippets and stack traces.
func (e *StructuredError) FriendlyErrorMessage() string {
	var msg bytes.Buffer

	if e.Location.IsZero() {
		msg.WriteString(fmt.Sprintf("%s: %s\n", e.Kind.String(), e.Message))
	} else {
		msg.WriteString(fmt.Sprintf("%s: %s (%d:%d)\n", e.Kind.String(), e.Message, e.Location.Line, e.Location.Column))
	}

	if e.Location.Source != "" {
		msg.WriteString(" | ")
		msg.WriteString(e.Location.Source)
		msg.WriteString("\n")
		if e.Location.Column > 0 {
			msg.WriteString(" | ")
			msg.WriteString(strings.Repeat(" ", e.Location.Column-1))
			msg.WriteString("^\n")
		}
	}

	if len(e.Stack) > 0 {
		msg.WriteString("\n")
		msg.WriteString(FormatStackTrace(e.Stack))
	}

	return msg.String()
}

// New creates a new StructuredError with the given kind and message.
func New(kind ErrorKind, message string) *StructuredError {
	return &StructuredError{Kind: kind, Message: message}
}

// Newf creates a new StructuredError with a formatted message.
func Newf(kind ErrorKind, format string, args ...any) *StructuredError {
	return &StructuredError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WithLocation attaches a source location to the error.
func (e *StructuredError) WithLocation(loc SourceLocation) *StructuredError {
	e.Location = loc
	return e
}

// WithStack attaches a call-stack snapshot to the error.
func (e *StructuredError) WithStack(stack []StackFrame) *StructuredError {
	e.Stack = stack
	return e
}

// WithCause wraps the error with a cause.
func (e *StructuredError) WithCause(cause error) *StructuredError {
	e.Cause = cause
	return e
}

// IsKind reports whether err is a StructuredError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	se, ok := err.(*StructuredError)
	return ok && se.Kind == kind
}
