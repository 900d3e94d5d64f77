package emu

import (
	"unsafe"

	"github.com/wippyai/efi-runtime/boot"
	"github.com/wippyai/efi-runtime/errors"
	"github.com/wippyai/efi-runtime/guid"
	"github.com/wippyai/efi-runtime/internal/handle"
	"github.com/wippyai/efi-runtime/layout"
	"github.com/wippyai/efi-runtime/status"
)

// efiHandle is an entry of the handle database.
type efiHandle struct {
	ifaces map[guid.GUID]uintptr
	ids    map[guid.GUID]uintptr
	opens  map[guid.GUID]int
	order  []guid.GUID
}

func (fw *Firmware) installBootServices() error {
	addr, err := fw.pool.Alloc(unsafe.Sizeof(boot.Table{}), 8)
	if err != nil {
		return err
	}
	t := layout.At[boot.Table](addr)
	t.Hdr = boot.TableHeader{
		Signature:  boot.Signature,
		Revision:   2<<16 | 70,
		HeaderSize: uint32(unsafe.Sizeof(boot.Table{})),
	}
	t.AllocatePool = fw.register("AllocatePool", fw.allocatePool, 2)
	t.FreePool = fw.register("FreePool", fw.freePool)
	t.HandleProtocol = fw.register("HandleProtocol", fw.handleProtocol, 2)
	t.OpenProtocol = fw.register("OpenProtocol", fw.openProtocol, 2)
	t.CloseProtocol = fw.register("CloseProtocol", fw.closeProtocol)
	t.ProtocolsPerHandle = fw.register("ProtocolsPerHandle", fw.protocolsPerHandle, 1, 2)
	t.LocateHandleBuffer = fw.register("LocateHandleBuffer", fw.locateHandleBuffer, 3, 4)
	t.LocateProtocol = fw.register("LocateProtocol", fw.locateProtocol, 2)
	fw.bootAddr = addr
	return nil
}

// InstallProtocol installs iface for id on h. A zero h creates a new
// handle, which is returned.
func (fw *Firmware) InstallProtocol(h boot.Handle, id guid.GUID, iface uintptr) (boot.Handle, error) {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	return fw.installProtocol(h, id, iface)
}

func (fw *Firmware) installProtocol(h boot.Handle, id guid.GUID, iface uintptr) (boot.Handle, error) {
	var rec *efiHandle
	if h == 0 {
		rec = &efiHandle{
			ifaces: map[guid.GUID]uintptr{},
			ids:    map[guid.GUID]uintptr{},
			opens:  map[guid.GUID]int{},
		}
		nh, err := fw.handles.Insert(rec)
		if err != nil {
			return 0, errors.Wrap(errors.PhaseEmulate, errors.KindClosed, err, "install protocol")
		}
		h = boot.Handle(nh)
	} else {
		var ok bool
		if rec, ok = fw.handles.Get(handle.Handle(h)); !ok {
			return 0, unknownHandle(h)
		}
	}

	if _, ok := rec.ifaces[id]; ok {
		return 0, errors.New(errors.PhaseEmulate, errors.KindInvalidInput).
			Detail("protocol %s already installed on %#x", id, uintptr(h)).
			Build()
	}

	idAddr, err := fw.pool.Bytes(id[:])
	if err != nil {
		return 0, err
	}
	rec.ifaces[id] = iface
	rec.ids[id] = idAddr
	rec.order = append(rec.order, id)
	return h, nil
}

// UninstallProtocol removes id from h. The handle disappears with its last
// protocol.
func (fw *Firmware) UninstallProtocol(h boot.Handle, id guid.GUID) error {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	rec, ok := fw.handles.Get(handle.Handle(h))
	if !ok {
		return unknownHandle(h)
	}
	if _, ok := rec.ifaces[id]; !ok {
		return errors.NotFound(errors.PhaseEmulate, "protocol", id.String())
	}
	if rec.opens[id] > 0 {
		return status.AccessDenied.Err()
	}
	_ = fw.pool.Free(rec.ids[id])
	delete(rec.ifaces, id)
	delete(rec.ids, id)
	for i, o := range rec.order {
		if o == id {
			rec.order = append(rec.order[:i], rec.order[i+1:]...)
			break
		}
	}
	if len(rec.order) == 0 {
		fw.handles.Remove(handle.Handle(h))
	}
	return nil
}

func unknownHandle(h boot.Handle) error {
	return errors.New(errors.PhaseEmulate, errors.KindNotFound).
		Value(uintptr(h)).
		Detail("unknown handle %#x", uintptr(h)).
		Build()
}

func readGUID(addr uintptr) (guid.GUID, bool) {
	p := layout.At[guid.GUID](addr)
	if p == nil {
		return guid.Nil, false
	}
	return *p, true
}

func (fw *Firmware) allocatePool(a args) uintptr {
	out := a.at(2)
	if out == 0 {
		return uintptr(status.InvalidParameter)
	}
	addr, err := fw.pool.Alloc(a.at(1), 8)
	if err != nil {
		return uintptr(status.OutOfResources)
	}
	fw.handOut(addr, "pool")
	writeWord(out, addr)
	return uintptr(status.Success)
}

func (fw *Firmware) freePool(a args) uintptr {
	addr := a.at(0)
	if !fw.takeBack(addr, "pool") {
		return uintptr(status.InvalidParameter)
	}
	if err := fw.pool.Free(addr); err != nil {
		return uintptr(status.InvalidParameter)
	}
	return uintptr(status.Success)
}

// lookup resolves an interface. A handle without the protocol is reported
// as not found.
func (fw *Firmware) lookup(h uintptr, idAddr uintptr) (*efiHandle, guid.GUID, uintptr, status.Status) {
	id, ok := readGUID(idAddr)
	if !ok {
		return nil, id, 0, status.InvalidParameter
	}
	rec, ok := fw.handles.Get(handle.Handle(h))
	if !ok {
		return nil, id, 0, status.InvalidParameter
	}
	iface, ok := rec.ifaces[id]
	if !ok {
		return rec, id, 0, status.NotFound
	}
	return rec, id, iface, status.Success
}

func (fw *Firmware) handleProtocol(a args) uintptr {
	out := a.at(2)
	if out == 0 {
		return uintptr(status.InvalidParameter)
	}
	_, _, iface, st := fw.lookup(a.at(0), a.at(1))
	if st != status.Success {
		return uintptr(st)
	}
	writeWord(out, iface)
	return uintptr(status.Success)
}

func (fw *Firmware) openProtocol(a args) uintptr {
	out, attrs := a.at(2), a.at(5)
	if out == 0 && attrs != boot.AttrTestProtocol {
		return uintptr(status.InvalidParameter)
	}
	rec, id, iface, st := fw.lookup(a.at(0), a.at(1))
	if st != status.Success {
		return uintptr(st)
	}
	if attrs == boot.AttrTestProtocol {
		return uintptr(status.Success)
	}
	if attrs&boot.AttrExclusive != 0 && rec.opens[id] > 0 {
		return uintptr(status.AccessDenied)
	}
	rec.opens[id]++
	writeWord(out, iface)
	return uintptr(status.Success)
}

func (fw *Firmware) closeProtocol(a args) uintptr {
	rec, id, _, st := fw.lookup(a.at(0), a.at(1))
	if st != status.Success {
		return uintptr(st)
	}
	if rec.opens[id] == 0 {
		return uintptr(status.NotFound)
	}
	rec.opens[id]--
	return uintptr(status.Success)
}

func (fw *Firmware) protocolsPerHandle(a args) uintptr {
	bufOut, countOut := a.at(1), a.at(2)
	if bufOut == 0 || countOut == 0 {
		return uintptr(status.InvalidParameter)
	}
	rec, ok := fw.handles.Get(handle.Handle(a.at(0)))
	if !ok {
		return uintptr(status.InvalidParameter)
	}

	ptrs := make([]uintptr, len(rec.order))
	for i, id := range rec.order {
		ptrs[i] = rec.ids[id]
	}
	buf, st := fw.wordArray(ptrs)
	if st != status.Success {
		return uintptr(st)
	}
	writeWord(bufOut, buf)
	writeWord(countOut, uintptr(len(ptrs)))
	return uintptr(status.Success)
}

func (fw *Firmware) locateHandleBuffer(a args) uintptr {
	search, countOut, bufOut := a.at(0), a.at(3), a.at(4)
	if countOut == 0 || bufOut == 0 {
		return uintptr(status.InvalidParameter)
	}

	var found []uintptr
	switch search {
	case boot.AllHandles:
		fw.handles.Each(func(h handle.Handle, _ *efiHandle) bool {
			found = append(found, uintptr(h))
			return true
		})
	case boot.ByProtocol:
		id, ok := readGUID(a.at(1))
		if !ok {
			return uintptr(status.InvalidParameter)
		}
		fw.handles.Each(func(h handle.Handle, rec *efiHandle) bool {
			if _, ok := rec.ifaces[id]; ok {
				found = append(found, uintptr(h))
			}
			return true
		})
	default:
		return uintptr(status.InvalidParameter)
	}
	if len(found) == 0 {
		return uintptr(status.NotFound)
	}

	buf, st := fw.wordArray(found)
	if st != status.Success {
		return uintptr(st)
	}
	writeWord(countOut, uintptr(len(found)))
	writeWord(bufOut, buf)
	return uintptr(status.Success)
}

func (fw *Firmware) locateProtocol(a args) uintptr {
	out := a.at(2)
	if out == 0 {
		return uintptr(status.InvalidParameter)
	}
	id, ok := readGUID(a.at(0))
	if !ok {
		return uintptr(status.InvalidParameter)
	}
	var iface uintptr
	fw.handles.Each(func(_ handle.Handle, rec *efiHandle) bool {
		if p, ok := rec.ifaces[id]; ok {
			iface = p
			return false
		}
		return true
	})
	if iface == 0 {
		return uintptr(status.NotFound)
	}
	writeWord(out, iface)
	return uintptr(status.Success)
}

// wordArray copies words into a pool block the caller frees with FreePool.
func (fw *Firmware) wordArray(words []uintptr) (uintptr, status.Status) {
	size := uintptr(len(words)) * unsafe.Sizeof(uintptr(0))
	buf, err := fw.pool.Alloc(size, 8)
	if err != nil {
		return 0, status.OutOfResources
	}
	if len(words) > 0 {
		copy(unsafe.Slice(layout.At[uintptr](buf), len(words)), words)
	}
	fw.handOut(buf, "pool")
	return buf, status.Success
}
