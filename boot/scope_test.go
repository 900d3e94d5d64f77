package boot

import (
	"errors"
	"testing"
	"unsafe"

	rterrors "github.com/wippyai/efi-runtime/errors"
	"github.com/wippyai/efi-runtime/guid"
	"github.com/wippyai/efi-runtime/layout"
	"github.com/wippyai/efi-runtime/status"
)

type widget struct {
	Revision uint64
}

var widgetID = guid.MustParse("0a0b0c0d-1111-2222-3333-444455556666")

func (widget) ProtocolGUID() guid.GUID { return widgetID }

var installed = &widget{Revision: 3}

type fakeResolver struct {
	handles map[Handle]map[guid.GUID]uintptr
	order   []Handle
	opens   int
	closes  int
}

func newFakeResolver() *fakeResolver {
	addr := uintptr(unsafe.Pointer(installed))
	return &fakeResolver{
		handles: map[Handle]map[guid.GUID]uintptr{
			1: {},
			2: {widgetID: addr},
		},
		order: []Handle{1, 2},
	}
}

func (r *fakeResolver) LocateHandles(id guid.GUID) ([]Handle, error) {
	var out []Handle
	for _, h := range r.order {
		if _, ok := r.handles[h][id]; ok {
			out = append(out, h)
		}
	}
	if len(out) == 0 {
		return nil, status.NotFound.Err()
	}
	return out, nil
}

func (r *fakeResolver) OpenProtocol(h Handle, id guid.GUID) (uintptr, error) {
	addr, ok := r.handles[h][id]
	if !ok {
		return 0, status.NotFound.Err()
	}
	r.opens++
	return addr, nil
}

func (r *fakeResolver) CloseProtocol(h Handle, id guid.GUID) error {
	r.closes++
	return nil
}

func (r *fakeResolver) LocateProtocol(id guid.GUID) (uintptr, error) {
	for _, h := range r.order {
		if addr, ok := r.handles[h][id]; ok {
			return addr, nil
		}
	}
	return 0, status.NotFound.Err()
}

func TestOpenOnWrongHandle(t *testing.T) {
	r := newFakeResolver()
	scope, err := Open[widget](r, 1)
	if scope != nil {
		t.Fatal("no scope may be produced on failure")
	}
	if !errors.Is(err, status.ErrNotFound) {
		t.Fatalf("err = %v, want not found", err)
	}
}

func TestOpenAndClose(t *testing.T) {
	r := newFakeResolver()
	scope, err := Open[widget](r, 2)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if scope.Handle() != 2 {
		t.Errorf("Handle = %d", scope.Handle())
	}
	if scope.Interface().Revision != 3 {
		t.Errorf("Revision = %d", scope.Interface().Revision)
	}

	if err := scope.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	err = scope.Close()
	if !errors.Is(err, &rterrors.Error{Phase: rterrors.PhaseBind, Kind: rterrors.KindClosed}) {
		t.Fatalf("second Close = %v", err)
	}
	if r.opens != 1 || r.closes != 1 {
		t.Fatalf("opens=%d closes=%d", r.opens, r.closes)
	}
}

func TestInterfaceAfterClosePanics(t *testing.T) {
	r := newFakeResolver()
	scope, err := Open[widget](r, 2)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	_ = scope.Close()

	defer func() {
		if recover() == nil {
			t.Fatal("Interface after Close should panic")
		}
	}()
	scope.Interface()
}

func TestFind(t *testing.T) {
	r := newFakeResolver()
	scope, err := Find[widget](r)
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	defer scope.Close()
	if scope.Handle() != 2 {
		t.Fatalf("Find opened handle %d, want 2", scope.Handle())
	}
}

type missing struct{ X uint64 }

func (missing) ProtocolGUID() guid.GUID {
	return guid.MustParse("deadbeef-0000-0000-0000-000000000000")
}

func TestFindMissing(t *testing.T) {
	r := newFakeResolver()
	if _, err := Find[missing](r); !errors.Is(err, status.ErrNotFound) {
		t.Fatalf("err = %v", err)
	}
	if _, err := Locate[missing](r); !errors.Is(err, status.ErrNotFound) {
		t.Fatalf("err = %v", err)
	}
}

func TestLocate(t *testing.T) {
	r := newFakeResolver()
	scope, err := Locate[widget](r)
	if err != nil {
		t.Fatalf("Locate: %v", err)
	}
	if scope.Interface() != installed {
		t.Fatal("Locate bound the wrong table")
	}
	if err := scope.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if r.closes != 0 {
		t.Fatal("Locate scopes have nothing to close in firmware")
	}
}

func TestTableLayout(t *testing.T) {
	if err := layout.Verify[Table](Contract); err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if unsafe.Sizeof(uintptr(0)) == 8 {
		for name, want := range map[string]uintptr{
			"AllocatePool":       0x40,
			"FreePool":           0x48,
			"HandleProtocol":     0x98,
			"OpenProtocol":       0x118,
			"CloseProtocol":      0x120,
			"ProtocolsPerHandle": 0x130,
			"LocateHandleBuffer": 0x138,
			"LocateProtocol":     0x140,
		} {
			if got := Contract.Layout(layout.NewCalculator()).FieldOffs[name]; got != want {
				t.Errorf("%s at %#x, want %#x", name, got, want)
			}
		}
	}
}
