package abi

import (
	"errors"
	"testing"
	"unsafe"

	efiruntime "github.com/wippyai/efi-runtime"
	"github.com/wippyai/efi-runtime/status"
)

func TestRefAndBuf(t *testing.T) {
	f := NewFrame()
	defer f.Release()

	if Ref[uint64](f, nil) != 0 {
		t.Error("nil Ref should pass null")
	}
	if Buf[byte](f, nil) != 0 {
		t.Error("empty Buf should pass null")
	}

	v := uint64(7)
	if Ref(f, &v) != uintptr(unsafe.Pointer(&v)) {
		t.Error("Ref should pass the value's address")
	}
	b := []byte{1, 2, 3}
	if Buf(f, b) != uintptr(unsafe.Pointer(&b[0])) {
		t.Error("Buf should pass the first element's address")
	}
}

func TestCallPassesArguments(t *testing.T) {
	var gotFn uintptr
	var gotArgs []uintptr
	c := efiruntime.CallerFunc(func(fn uintptr, args ...uintptr) uintptr {
		gotFn = fn
		gotArgs = append([]uintptr(nil), args...)
		return uintptr(status.DeviceError)
	})

	f := NewFrame()
	defer f.Release()
	st := f.Call(c, 0x1000, 1, 2, Bool(true), Bool(false))
	if st != status.DeviceError {
		t.Fatalf("status = %v", st)
	}
	if gotFn != 0x1000 || len(gotArgs) != 4 || gotArgs[2] != 1 || gotArgs[3] != 0 {
		t.Fatalf("fn=%#x args=%v", gotFn, gotArgs)
	}
}

func TestCallWordKeepsPointer(t *testing.T) {
	const addr = uintptr(0xdead0000)
	var got []uintptr
	c := efiruntime.CallerFunc(func(fn uintptr, args ...uintptr) uintptr {
		got = append([]uintptr(nil), args...)
		return addr
	})

	f := NewFrame()
	defer f.Release()
	name, err := String16(f, "path")
	if err != nil {
		t.Fatal(err)
	}
	if w := f.CallWord(c, 0x2000, name); w != addr {
		t.Fatalf("CallWord = %#x, want %#x", w, addr)
	}
	if len(got) != 1 || got[0] != name {
		t.Fatalf("args = %v", got)
	}
}

// scribble behaves like firmware that writes garbage to an output and
// still reports st.
func scribble(st status.Status, value uint64) efiruntime.Caller {
	return efiruntime.CallerFunc(func(fn uintptr, args ...uintptr) uintptr {
		*(*uint64)(unsafe.Pointer(args[0])) = value
		return uintptr(st)
	})
}

func TestResultGatesOutput(t *testing.T) {
	tests := []struct {
		name string
		st   status.Status
		want uint64
	}{
		{"success", status.Success, 0xfeed},
		{"not found", status.NotFound, 0},
		{"device error", status.DeviceError, 0},
		{"warning", status.WarnBufferTooSmall, 0},
		{"unknown", status.ErrorCode(0x77), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewFrame()
			defer f.Release()
			out := NewOut[uint64](f)
			st := f.Call(scribble(tt.st, 0xfeed), 1, out.Ptr())

			v, err := Result(st, out)
			if v != tt.want {
				t.Fatalf("value = %#x, want %#x", v, tt.want)
			}
			if (err == nil) != (tt.st == status.Success) {
				t.Fatalf("err = %v", err)
			}
			if err != nil {
				if got, _ := status.Of(err); got != tt.st {
					t.Fatalf("status = %v, want %v", got, tt.st)
				}
			}
		})
	}
}

func TestOutSet(t *testing.T) {
	f := NewFrame()
	defer f.Release()
	n := NewOut[uintptr](f)
	n.Set(64)
	if *(*uintptr)(unsafe.Pointer(n.Ptr())) != 64 {
		t.Fatal("Set should prime the storage the firmware sees")
	}
}

func TestOptional(t *testing.T) {
	type handle uintptr
	if _, ok := Optional(handle(0)); ok {
		t.Error("null handle should be absent")
	}
	if h, ok := Optional(handle(0x40)); !ok || h != 0x40 {
		t.Errorf("Optional = %#x, %v", h, ok)
	}
}

func TestString16(t *testing.T) {
	f := NewFrame()
	defer f.Release()

	p, err := String16(f, "ls")
	if err != nil {
		t.Fatalf("String16: %v", err)
	}
	units := unsafe.Slice((*uint16)(unsafe.Pointer(p)), 3)
	if units[0] != 'l' || units[1] != 's' || units[2] != 0 {
		t.Fatalf("units = %v", units)
	}

	if _, err := String16(f, "\U0001F600"); err == nil {
		t.Fatal("astral characters should be rejected")
	}
}

func TestStringArray16(t *testing.T) {
	f := NewFrame()
	defer f.Release()

	if p, err := StringArray16(f, nil); p != 0 || err != nil {
		t.Fatalf("nil array = %#x, %v", p, err)
	}

	p, err := StringArray16(f, []string{"A=1", "B=2"})
	if err != nil {
		t.Fatalf("StringArray16: %v", err)
	}
	ptrs := unsafe.Slice((*uintptr)(unsafe.Pointer(p)), 3)
	if ptrs[0] == 0 || ptrs[1] == 0 || ptrs[2] != 0 {
		t.Fatalf("ptrs = %v", ptrs)
	}
	first := unsafe.Slice((*uint16)(unsafe.Pointer(ptrs[0])), 4)
	if first[0] != 'A' || first[3] != 0 {
		t.Fatalf("first = %v", first)
	}

	_, err = StringArray16(f, []string{"ok", "bad\x00"})
	if err == nil {
		t.Fatal("embedded NUL should be rejected")
	}
	var se *status.Error
	if errors.As(err, &se) {
		t.Fatal("encoding failures are not firmware statuses")
	}
}
