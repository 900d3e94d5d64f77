package boot_test

import (
	"context"
	"errors"
	"testing"

	efiruntime "github.com/wippyai/efi-runtime"
	"github.com/wippyai/efi-runtime/boot"
	"github.com/wippyai/efi-runtime/emu"
	rterrors "github.com/wippyai/efi-runtime/errors"
	"github.com/wippyai/efi-runtime/guid"
	"github.com/wippyai/efi-runtime/proto/shell"
	"github.com/wippyai/efi-runtime/status"
)

func TestUnboundTable(t *testing.T) {
	calls := 0
	caller := efiruntime.CallerFunc(func(uintptr, ...uintptr) uintptr {
		calls++
		return 0
	})
	bs := boot.New(caller, 0, 0)

	_, err := bs.LocateHandles(shell.ProtocolGUID)
	if !errors.Is(err, &rterrors.Error{Phase: rterrors.PhaseBind, Kind: rterrors.KindNotInitialized}) {
		t.Fatalf("err = %v, want not initialized", err)
	}
	if err := bs.FreePool(0); err != nil {
		t.Fatalf("FreePool(0) = %v", err)
	}
	if calls != 0 {
		t.Fatalf("firmware called %d times", calls)
	}
}

func TestServicesAgainstFirmware(t *testing.T) {
	fw, err := emu.New(context.Background(), emu.DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	defer fw.Close()
	bs := fw.Services()

	if bs.Image() != fw.ImageHandle() {
		t.Fatalf("Image = %#x", bs.Image())
	}

	scope, err := boot.Find[shell.Protocol](bs)
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if scope.Handle() != fw.ShellHandle() {
		t.Fatalf("scope handle = %#x, want %#x", scope.Handle(), fw.ShellHandle())
	}
	if major := scope.Interface().MajorVersion; major != 2 {
		t.Fatalf("MajorVersion = %d", major)
	}
	if err := scope.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	unknown := guid.MustParse("0b24a1d4-6e1c-4b5e-9f60-0c3a8f1e2d77")
	if _, err := bs.LocateHandles(unknown); !errors.Is(err, status.ErrNotFound) {
		t.Fatalf("LocateHandles(unknown) = %v", err)
	}
	if _, err := bs.LocateProtocol(unknown); !errors.Is(err, status.ErrNotFound) {
		t.Fatalf("LocateProtocol(unknown) = %v", err)
	}

	iface, err := bs.LocateProtocol(shell.ProtocolGUID)
	if err != nil || iface == 0 {
		t.Fatalf("LocateProtocol = %#x, %v", iface, err)
	}
	if fw.Outstanding() != 0 {
		t.Fatalf("outstanding = %d", fw.Outstanding())
	}
}
