package status

import "errors"

// Error is a failed firmware call. Status holds the raw code as returned,
// including codes this package does not recognize.
type Error struct {
	Status Status
}

// Sentinels for errors.Is, one per category with a canonical code.
var (
	ErrNotFound         = &Error{Status: NotFound}
	ErrBufferTooSmall   = &Error{Status: BufferTooSmall}
	ErrInvalidParameter = &Error{Status: InvalidParameter}
	ErrAccessDenied     = &Error{Status: AccessDenied}
	ErrDeviceError      = &Error{Status: DeviceError}
	ErrUnsupported      = &Error{Status: Unsupported}
	ErrOutOfResources   = &Error{Status: OutOfResources}
)

func (e *Error) Error() string {
	return e.Status.String()
}

// Category classifies the failure.
func (e *Error) Category() Category {
	return e.Status.Category()
}

// Is reports whether target is a *Error with the same status.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Status == e.Status
}

// ToResult converts s into an error, discarding any value.
func ToResult(s Status) error {
	return s.Err()
}

// ToResultWith runs produce only when s is Success. On failure produce is
// never called and the zero T is returned, so output memory the firmware did
// not initialize is never read.
func ToResultWith[T any](s Status, produce func() T) (T, error) {
	if s != Success {
		var zero T
		return zero, &Error{Status: s}
	}
	return produce(), nil
}

// Of extracts the status carried by err. Ok is false when err does not wrap
// a *Error.
func Of(err error) (Status, bool) {
	var se *Error
	if errors.As(err, &se) {
		return se.Status, true
	}
	return Success, false
}

// CategoryOf classifies err, reporting CategoryNone for nil and
// CategoryOther for errors that did not come from firmware.
func CategoryOf(err error) Category {
	if err == nil {
		return CategoryNone
	}
	if s, ok := Of(err); ok {
		return s.Category()
	}
	return CategoryOther
}
