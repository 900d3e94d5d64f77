package boot

import (
	"go.uber.org/zap"

	"github.com/wippyai/efi-runtime/errors"
	"github.com/wippyai/efi-runtime/layout"
)

// Scoped is an open protocol interface. The interface pointer is valid until
// Close; Interface panics afterwards.
type Scoped[T layout.Protocol] struct {
	iface   *T
	release func() error
	handle  Handle
	closed  bool
}

// Interface returns the bound interface table.
func (s *Scoped[T]) Interface() *T {
	if s.closed {
		panic(errors.Closed(errors.PhaseBind, "protocol scope"))
	}
	return s.iface
}

// Handle returns the handle the interface was opened on. It is zero for
// interfaces obtained with Locate.
func (s *Scoped[T]) Handle() Handle {
	return s.handle
}

// Close releases the open. Only the first call reaches the firmware.
func (s *Scoped[T]) Close() error {
	if s.closed {
		return errors.Closed(errors.PhaseBind, "protocol scope")
	}
	s.closed = true
	s.iface = nil
	if s.release == nil {
		return nil
	}
	return s.release()
}

// Open opens protocol T on h. A handle that lacks T yields the firmware's
// failure and no scope.
func Open[T layout.Protocol](r Resolver, h Handle) (*Scoped[T], error) {
	id := layout.IdentifierOf[T]()
	addr, err := r.OpenProtocol(h, id)
	if err != nil {
		return nil, err
	}
	if addr == 0 {
		return nil, errors.NilPointer(errors.PhaseBind, []string{id.String()}, "interface")
	}

	Logger().Debug("opened protocol", zap.Stringer("protocol", id), zap.Uintptr("handle", uintptr(h)))
	return &Scoped[T]{
		iface:  layout.At[T](addr),
		handle: h,
		release: func() error {
			return r.CloseProtocol(h, id)
		},
	}, nil
}

// Find opens T on the first handle that exposes it.
func Find[T layout.Protocol](r Resolver) (*Scoped[T], error) {
	id := layout.IdentifierOf[T]()
	handles, err := r.LocateHandles(id)
	if err != nil {
		return nil, err
	}
	if len(handles) == 0 {
		return nil, errors.NotFound(errors.PhaseLocate, "protocol", id.String())
	}
	return Open[T](r, handles[0])
}

// Locate binds the first interface for T in the system. The firmware keeps
// no open record, so Close only invalidates the scope.
func Locate[T layout.Protocol](r Resolver) (*Scoped[T], error) {
	id := layout.IdentifierOf[T]()
	addr, err := r.LocateProtocol(id)
	if err != nil {
		return nil, err
	}
	if addr == 0 {
		return nil, errors.NilPointer(errors.PhaseLocate, []string{id.String()}, "interface")
	}
	return &Scoped[T]{iface: layout.At[T](addr)}, nil
}
