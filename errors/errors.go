package errors

import (
	"fmt"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseBind     Phase = "bind"     // reinterpreting a table under its layout
	PhaseCall     Phase = "call"     // marshalling a firmware call
	PhaseIterate  Phase = "iterate"  // walking a firmware-owned list
	PhaseEncode   Phase = "encode"   // Go to CHAR16
	PhaseDecode   Phase = "decode"   // CHAR16 to Go
	PhaseLocate   Phase = "locate"   // handle and protocol resolution
	PhaseLayout   Phase = "layout"   // mirror struct verification
	PhaseLoad     Phase = "load"     // emulator configuration
	PhaseEmulate  Phase = "emulate"  // emulated firmware services
	PhaseValidate Phase = "validate" // argument validation
)

// Kind categorizes the error
type Kind string

const (
	KindInvalidInput   Kind = "invalid_input"
	KindInvalidData    Kind = "invalid_data"
	KindNilPointer     Kind = "nil_pointer"
	KindNotFound       Kind = "not_found"
	KindUnsupported    Kind = "unsupported"
	KindAllocation     Kind = "allocation"
	KindOverflow       Kind = "overflow"
	KindClosed         Kind = "closed"
	KindLayoutMismatch Kind = "layout_mismatch"
	KindFirmware       Kind = "firmware"
	KindNotInitialized Kind = "not_initialized"
)

// Error is the structured error type used throughout the library
type Error struct {
	Value    any
	Cause    error
	Phase    Phase
	Kind     Kind
	Protocol string
	Detail   string
	Path     []string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	}

	if e.Protocol != "" {
		b.WriteString(": protocol ")
		b.WriteString(e.Protocol)
	}

	if e.Detail != "" {
		if e.Protocol != "" {
			b.WriteString(" - ")
		} else {
			b.WriteString(": ")
		}
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Path sets the field path
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// Protocol sets the protocol name
func (b *Builder) Protocol(name string) *Builder {
	b.err.Protocol = name
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// InvalidData creates an invalid data error
func InvalidData(phase Phase, path []string, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidData,
		Path:   path,
		Detail: detail,
	}
}

// NilPointer creates a nil pointer error
func NilPointer(phase Phase, path []string, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNilPointer,
		Path:   path,
		Detail: fmt.Sprintf("nil %s", what),
	}
}

// NotFound creates a not-found error
func NotFound(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Detail: fmt.Sprintf("%s %q not found", what, name),
	}
}

// Unsupported creates an unsupported operation error
func Unsupported(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsupported,
		Detail: what,
	}
}

// AllocationFailed creates an allocation failure error
func AllocationFailed(phase Phase, size, align uintptr) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindAllocation,
		Detail: fmt.Sprintf("failed to allocate %d bytes (align %d)", size, align),
	}
}

// Overflow creates an overflow error
func Overflow(phase Phase, path []string, value any, limit string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOverflow,
		Path:   path,
		Detail: fmt.Sprintf("value %v exceeds %s", value, limit),
		Value:  value,
	}
}

// Closed reports use of a scope or list after it was released
func Closed(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindClosed,
		Detail: fmt.Sprintf("%s already released", what),
	}
}

// LayoutMismatch reports a mirror struct field that disagrees with its
// declared contract
func LayoutMismatch(protocol string, path []string, detail string) *Error {
	return &Error{
		Phase:    PhaseLayout,
		Kind:     KindLayoutMismatch,
		Protocol: protocol,
		Path:     path,
		Detail:   detail,
	}
}

// Firmware wraps a firmware status failure with call context
func Firmware(phase Phase, protocol, operation string, cause error) *Error {
	return &Error{
		Phase:    phase,
		Kind:     KindFirmware,
		Protocol: protocol,
		Path:     []string{operation},
		Cause:    cause,
	}
}

// NotInitialized creates a not-initialized error for a missing component
func NotInitialized(phase Phase, component string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotInitialized,
		Detail: fmt.Sprintf("%s not initialized", component),
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}

// Load creates a configuration loading error
func Load(detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindInvalidData,
		Detail: detail,
		Cause:  cause,
	}
}
