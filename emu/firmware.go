package emu

import (
	"context"
	"sync"
	"time"

	"github.com/tetratelabs/wazero"
	"go.uber.org/zap"

	"github.com/wippyai/efi-runtime/boot"
	"github.com/wippyai/efi-runtime/errors"
	"github.com/wippyai/efi-runtime/internal/handle"
	"github.com/wippyai/efi-runtime/status"
)

// Handle table bases. EFI handles and shell file handles come from disjoint
// ranges so one is never accepted as the other.
const (
	efiHandleBase  = 0x1000
	fileHandleBase = 0x100000
)

const (
	kindHandle handle.Kind = iota + 1
	kindFile
)

// maxServices bounds the stub region that backs service addresses.
const maxServices = 96

// service is a published firmware function. Outs lists the argument
// positions that are output pointers; ptr marks services returning a pointer
// or BOOLEAN instead of a status.
type service struct {
	fn   func(a args) uintptr
	name string
	outs []int
	ptr  bool
}

// args gives positional access to call arguments. Missing arguments read as
// zero.
type args []uintptr

func (a args) at(i int) uintptr {
	if i < len(a) {
		return a[i]
	}
	return 0
}

// Fault makes a service fail with Status instead of running. Before
// returning, Scribble is written to every output pointer the caller passed,
// the way real firmware may leave garbage behind on failure. Count limits
// how many calls fail; 0 fails every call until ClearFaults.
type Fault struct {
	Status   status.Status
	Scribble uintptr
	Count    int
}

// Firmware is a hosted stand-in for UEFI firmware. It implements
// efiruntime.Caller: each service is published at a unique address in
// firmware memory and Call dispatches on that address.
//
// Firmware serializes calls with a mutex so a UI goroutine may share it.
type Firmware struct {
	now       func() time.Time
	pool      *Pool
	services  map[uintptr]*service
	byName    map[string]uintptr
	faults    map[string]*Fault
	handles   *handle.Typed[*efiHandle]
	files     *handle.Typed[*openFile]
	fs        *memFS
	sh        *shellState
	runtime   wazero.Runtime
	handedOut map[uintptr]string
	entries   map[uintptr]entryBlocks
	stubs     uintptr
	bootAddr  uintptr
	image     boot.Handle
	shellH    boot.Handle
	mu        sync.Mutex
}

// New boots an emulated firmware described by cfg.
func New(ctx context.Context, cfg Config) (*Firmware, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	now := cfg.Clock
	if now == nil {
		now = time.Now
	}

	handles := handle.NewTable(efiHandleBase)
	files := handle.NewTable(fileHandleBase)
	fw := &Firmware{
		now:       now,
		pool:      NewPool(),
		services:  make(map[uintptr]*service),
		byName:    make(map[string]uintptr),
		faults:    make(map[string]*Fault),
		handles:   handle.NewTyped[*efiHandle](handles, kindHandle),
		files:     handle.NewTyped[*openFile](files, kindFile),
		fs:        newMemFS(now),
		handedOut: make(map[uintptr]string),
		entries:   make(map[uintptr]entryBlocks),
	}
	handles.Subscribe(handleLogger{table: "efi"})
	files.Subscribe(handleLogger{table: "file"})

	stubs, err := fw.pool.Alloc(maxServices*8, 8)
	if err != nil {
		return nil, err
	}
	fw.stubs = stubs

	steps := []func() error{
		func() error { return fw.seed(cfg.Files) },
		fw.installBootServices,
		func() error { return fw.installImage(cfg.Args, cfg.Stdin, cfg.Stdout, cfg.Stderr) },
		func() error { return fw.installShell(cfg) },
		func() error { return fw.startRuntime(ctx, cfg) },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			_ = fw.Close()
			return nil, err
		}
	}

	Logger().Info("firmware ready",
		zap.Uintptr("boot_services", fw.bootAddr),
		zap.Uintptr("image", uintptr(fw.image)),
		zap.Int("services", len(fw.services)))
	return fw, nil
}

// Call implements efiruntime.Caller. Calling an address that is not a
// published service panics, as a wild call would crash real firmware.
func (fw *Firmware) Call(fn uintptr, a ...uintptr) uintptr {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	svc, ok := fw.services[fn]
	if !ok {
		panic(errors.New(errors.PhaseEmulate, errors.KindNotFound).
			Value(fn).
			Detail("call to unpublished function %#x", fn).
			Build())
	}

	if r, ok := fw.injected(svc, a); ok {
		Logger().Debug("injected fault", zap.String("service", svc.name), zap.Uintptr("result", r))
		return r
	}

	r := svc.fn(a)
	if !svc.ptr {
		Logger().Debug("service", zap.String("name", svc.name), zap.Stringer("status", status.Status(r)))
	}
	return r
}

func (fw *Firmware) injected(svc *service, a args) (uintptr, bool) {
	f, ok := fw.faults[svc.name]
	if !ok {
		return 0, false
	}
	if f.Count > 0 {
		f.Count--
		if f.Count == 0 {
			delete(fw.faults, svc.name)
		}
	}
	for _, i := range svc.outs {
		if p := a.at(i); p != 0 {
			writeWord(p, f.Scribble)
		}
	}
	if svc.ptr {
		return 0, true
	}
	return uintptr(f.Status), true
}

// Inject installs a fault on the named service, e.g. "ReadFile" or
// "OpenProtocol". It replaces any earlier fault on that service. Services
// that return a pointer instead of a status, such as GetEnv, return null
// under a fault and accept no Status.
func (fw *Firmware) Inject(name string, f Fault) error {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	addr, ok := fw.byName[name]
	if !ok {
		return errors.NotFound(errors.PhaseEmulate, "service", name)
	}
	if fw.services[addr].ptr && f.Status != status.Success {
		return errors.Unsupported(errors.PhaseEmulate, "status fault on pointer service "+name)
	}
	fw.faults[name] = &f
	return nil
}

// ClearFaults removes every injected fault.
func (fw *Firmware) ClearFaults() {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	clear(fw.faults)
}

// Address returns where the named service is published.
func (fw *Firmware) Address(name string) (uintptr, bool) {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	addr, ok := fw.byName[name]
	return addr, ok
}

// register publishes fn and returns its address. outs lists the argument
// positions that are output pointers.
func (fw *Firmware) register(name string, fn func(a args) uintptr, outs ...int) uintptr {
	return fw.publish(&service{name: name, fn: fn, outs: outs})
}

// registerPtr publishes a service whose result is not a status.
func (fw *Firmware) registerPtr(name string, fn func(a args) uintptr) uintptr {
	return fw.publish(&service{name: name, fn: fn, ptr: true})
}

func (fw *Firmware) publish(svc *service) uintptr {
	if len(fw.services) >= maxServices {
		panic("emu: service stub region exhausted")
	}
	addr := fw.stubs + uintptr(len(fw.services))*8
	fw.services[addr] = svc
	fw.byName[svc.name] = addr
	return addr
}

// BootServices returns the address of the EFI_BOOT_SERVICES table.
func (fw *Firmware) BootServices() uintptr {
	return fw.bootAddr
}

// ImageHandle returns the handle of the running application. The shell
// parameters protocol is installed on it.
func (fw *Firmware) ImageHandle() boot.Handle {
	return fw.image
}

// ShellHandle returns the handle the shell protocol is installed on.
func (fw *Firmware) ShellHandle() boot.Handle {
	return fw.shellH
}

// Services binds the boot services table with fw as the caller.
func (fw *Firmware) Services() *boot.Services {
	return boot.New(fw, fw.bootAddr, fw.image)
}

// Outstanding returns the number of pool blocks and file lists handed to
// callers and not yet released.
func (fw *Firmware) Outstanding() int {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	return len(fw.handedOut)
}

// OpenFiles returns the number of open shell file handles, not counting
// the image's console handles.
func (fw *Firmware) OpenFiles() int {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	n := 0
	fw.files.Each(func(_ handle.Handle, f *openFile) bool {
		if f.console == nil {
			n++
		}
		return true
	})
	return n
}

// Close tears down the runtime and releases all firmware memory.
func (fw *Firmware) Close() error {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	var first error
	if fw.runtime != nil {
		first = fw.runtime.Close(context.Background())
		fw.runtime = nil
	}
	if err := fw.pool.Close(); err != nil && first == nil {
		first = err
	}
	clear(fw.handedOut)
	return first
}

// handOut records memory the caller now owns.
func (fw *Firmware) handOut(addr uintptr, what string) {
	fw.handedOut[addr] = what
}

// takeBack releases ownership of addr. It fails when addr was not handed
// out as what.
func (fw *Firmware) takeBack(addr uintptr, what string) bool {
	if fw.handedOut[addr] != what {
		return false
	}
	delete(fw.handedOut, addr)
	return true
}

type handleLogger struct {
	table string
}

func (l handleLogger) OnHandleEvent(e handle.Event) {
	verb := "created"
	if e.Type == handle.EventRemoved {
		verb = "removed"
	}
	Logger().Debug("handle "+verb, zap.String("table", l.table), zap.Uintptr("handle", uintptr(e.Handle)))
}
