package boot

import (
	"unsafe"

	"go.uber.org/zap"

	efiruntime "github.com/wippyai/efi-runtime"
	"github.com/wippyai/efi-runtime/abi"
	"github.com/wippyai/efi-runtime/errors"
	"github.com/wippyai/efi-runtime/guid"
	"github.com/wippyai/efi-runtime/layout"
	"github.com/wippyai/efi-runtime/status"
)

// Handle is an opaque firmware handle. Handles compare by identity only.
type Handle uintptr

// Resolver finds handles by protocol and opens protocol interfaces on them.
type Resolver interface {
	LocateHandles(id guid.GUID) ([]Handle, error)
	OpenProtocol(h Handle, id guid.GUID) (uintptr, error)
	CloseProtocol(h Handle, id guid.GUID) error
	LocateProtocol(id guid.GUID) (uintptr, error)
}

// Services calls EFI_BOOT_SERVICES through a Caller.
type Services struct {
	caller efiruntime.Caller
	table  *Table
	image  Handle
	attrs  uintptr
}

// New binds the boot services table at addr. Image is the agent handle
// passed to OpenProtocol and CloseProtocol. Opens use AttrGetProtocol.
func New(c efiruntime.Caller, addr uintptr, image Handle) *Services {
	return &Services{
		caller: c,
		table:  layout.At[Table](addr),
		image:  image,
		attrs:  AttrGetProtocol,
	}
}

// WithOpenAttributes returns a copy of s whose OpenProtocol calls pass
// attrs, for example AttrExclusive.
func (s *Services) WithOpenAttributes(attrs uintptr) *Services {
	c := *s
	c.attrs = attrs
	return &c
}

// Image returns the agent handle.
func (s *Services) Image() Handle {
	return s.image
}

// Caller returns the caller used for every service invocation.
func (s *Services) Caller() efiruntime.Caller {
	return s.caller
}

func (s *Services) fn(name string, pick func(*Table) uintptr) (uintptr, error) {
	if s.table == nil {
		return 0, errors.NotInitialized(errors.PhaseBind, "boot services")
	}
	fn := pick(s.table)
	if fn == 0 {
		return 0, errors.NilPointer(errors.PhaseBind, []string{"boot_services", name}, "service")
	}
	return fn, nil
}

// LocateHandles returns every handle that exposes id, in firmware order.
func (s *Services) LocateHandles(id guid.GUID) ([]Handle, error) {
	fn, err := s.fn("LocateHandleBuffer", func(t *Table) uintptr { return t.LocateHandleBuffer })
	if err != nil {
		return nil, err
	}

	f := abi.NewFrame()
	defer f.Release()
	count := abi.NewOut[uintptr](f)
	buf := abi.NewOut[uintptr](f)

	st := f.Call(s.caller, fn, ByProtocol, abi.Ref(f, &id), 0, count.Ptr(), buf.Ptr())
	if err := status.ToResult(st); err != nil {
		Logger().Debug("locate handles failed", zap.Stringer("protocol", id), zap.Stringer("status", st))
		return nil, err
	}

	n, addr := count.Assume(), buf.Assume()
	handles := make([]Handle, n)
	if n > 0 {
		copy(handles, unsafe.Slice(layout.At[Handle](addr), n))
	}
	if err := s.FreePool(addr); err != nil {
		return nil, err
	}

	Logger().Debug("located handles", zap.Stringer("protocol", id), zap.Int("count", len(handles)))
	return handles, nil
}

// OpenProtocol opens id on h for the image with the configured attributes
// and returns the interface address.
func (s *Services) OpenProtocol(h Handle, id guid.GUID) (uintptr, error) {
	fn, err := s.fn("OpenProtocol", func(t *Table) uintptr { return t.OpenProtocol })
	if err != nil {
		return 0, err
	}

	f := abi.NewFrame()
	defer f.Release()
	iface := abi.NewOut[uintptr](f)

	st := f.Call(s.caller, fn, uintptr(h), abi.Ref(f, &id), iface.Ptr(), uintptr(s.image), 0, s.attrs)
	addr, err := abi.Result(st, iface)
	if err != nil {
		Logger().Debug("open protocol failed",
			zap.Uintptr("handle", uintptr(h)), zap.Stringer("protocol", id), zap.Stringer("status", st))
		return 0, err
	}
	return addr, nil
}

// CloseProtocol releases an open made by OpenProtocol.
func (s *Services) CloseProtocol(h Handle, id guid.GUID) error {
	fn, err := s.fn("CloseProtocol", func(t *Table) uintptr { return t.CloseProtocol })
	if err != nil {
		return err
	}

	f := abi.NewFrame()
	defer f.Release()
	return status.ToResult(f.Call(s.caller, fn, uintptr(h), abi.Ref(f, &id), uintptr(s.image), 0))
}

// HandleProtocol queries h for id without recording an open.
func (s *Services) HandleProtocol(h Handle, id guid.GUID) (uintptr, error) {
	fn, err := s.fn("HandleProtocol", func(t *Table) uintptr { return t.HandleProtocol })
	if err != nil {
		return 0, err
	}

	f := abi.NewFrame()
	defer f.Release()
	iface := abi.NewOut[uintptr](f)
	return abi.Result(f.Call(s.caller, fn, uintptr(h), abi.Ref(f, &id), iface.Ptr()), iface)
}

// LocateProtocol returns the first interface for id in the system.
func (s *Services) LocateProtocol(id guid.GUID) (uintptr, error) {
	fn, err := s.fn("LocateProtocol", func(t *Table) uintptr { return t.LocateProtocol })
	if err != nil {
		return 0, err
	}

	f := abi.NewFrame()
	defer f.Release()
	iface := abi.NewOut[uintptr](f)
	return abi.Result(f.Call(s.caller, fn, abi.Ref(f, &id), 0, iface.Ptr()), iface)
}

// ProtocolsPerHandle lists the identifiers installed on h.
func (s *Services) ProtocolsPerHandle(h Handle) ([]guid.GUID, error) {
	fn, err := s.fn("ProtocolsPerHandle", func(t *Table) uintptr { return t.ProtocolsPerHandle })
	if err != nil {
		return nil, err
	}

	f := abi.NewFrame()
	defer f.Release()
	buf := abi.NewOut[uintptr](f)
	count := abi.NewOut[uintptr](f)

	st := f.Call(s.caller, fn, uintptr(h), buf.Ptr(), count.Ptr())
	if err := status.ToResult(st); err != nil {
		return nil, err
	}

	n, addr := count.Assume(), buf.Assume()
	ids := make([]guid.GUID, 0, n)
	if n > 0 {
		for _, p := range unsafe.Slice(layout.At[uintptr](addr), n) {
			ids = append(ids, *layout.At[guid.GUID](p))
		}
	}
	if err := s.FreePool(addr); err != nil {
		return nil, err
	}
	return ids, nil
}

// AllocatePool allocates size bytes of pool memory of the given type.
func (s *Services) AllocatePool(memType uintptr, size uintptr) (uintptr, error) {
	fn, err := s.fn("AllocatePool", func(t *Table) uintptr { return t.AllocatePool })
	if err != nil {
		return 0, err
	}

	f := abi.NewFrame()
	defer f.Release()
	buf := abi.NewOut[uintptr](f)
	return abi.Result(f.Call(s.caller, fn, memType, size, buf.Ptr()), buf)
}

// FreePool returns pool memory to the firmware. A zero address is a no-op.
func (s *Services) FreePool(addr uintptr) error {
	if addr == 0 {
		return nil
	}
	fn, err := s.fn("FreePool", func(t *Table) uintptr { return t.FreePool })
	if err != nil {
		return err
	}

	f := abi.NewFrame()
	defer f.Release()
	return status.ToResult(f.Call(s.caller, fn, addr))
}
