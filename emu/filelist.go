package emu

import (
	"strings"
	"unsafe"

	"github.com/wippyai/efi-runtime/internal/handle"
	"github.com/wippyai/efi-runtime/layout"
	"github.com/wippyai/efi-runtime/list"
	"github.com/wippyai/efi-runtime/proto/shell"
	"github.com/wippyai/efi-runtime/status"
)

// entryBlocks are the pool blocks behind one EFI_SHELL_FILE_INFO.
type entryBlocks struct {
	fullName uintptr
	fileName uintptr
	info     uintptr
}

func (fw *Firmware) newEntry(n *node, h shell.FileHandle, st status.Status) (uintptr, status.Status) {
	var b entryBlocks
	var s status.Status
	if b.fullName, s = fw.allocString(fw.fullName(n.path())); s != status.Success {
		return 0, s
	}
	if b.fileName, s = fw.allocString(n.info().FileName); s != status.Success {
		fw.freeBlocks(b)
		return 0, s
	}
	rec, err := n.info().MarshalBinary()
	if err != nil {
		fw.freeBlocks(b)
		return 0, status.DeviceError
	}
	if b.info, err = fw.pool.Bytes(rec); err != nil {
		fw.freeBlocks(b)
		return 0, status.OutOfResources
	}

	addr, err := fw.pool.Alloc(unsafe.Sizeof(shell.FileEntry{}), 8)
	if err != nil {
		fw.freeBlocks(b)
		return 0, status.OutOfResources
	}
	*layout.At[shell.FileEntry](addr) = shell.FileEntry{
		Status:   st,
		FullName: b.fullName,
		FileName: b.fileName,
		Handle:   h,
		Info:     b.info,
	}
	fw.entries[addr] = b
	return addr, status.Success
}

func (fw *Firmware) freeBlocks(b entryBlocks) {
	for _, p := range []uintptr{b.fullName, b.fileName, b.info} {
		if p != 0 {
			_ = fw.pool.Free(p)
		}
	}
}

// freeEntry closes the entry's handle and releases its memory.
func (fw *Firmware) freeEntry(addr uintptr) {
	e := layout.At[shell.FileEntry](addr)
	if e.Handle != 0 {
		fw.files.Remove(handle.Handle(e.Handle))
	}
	fw.freeBlocks(fw.entries[addr])
	delete(fw.entries, addr)
	_ = fw.pool.Free(addr)
}

// newHead allocates the placeholder record a list hangs off. It carries no
// file and is never yielded by a walk.
func (fw *Firmware) newHead() (uintptr, status.Status) {
	addr, err := fw.pool.Alloc(unsafe.Sizeof(shell.FileEntry{}), 8)
	if err != nil {
		return 0, status.OutOfResources
	}
	*layout.At[shell.FileEntry](addr) = shell.FileEntry{}
	return addr, status.Success
}

// appendEntries links entries after the last record of the list at head.
// Lists are null terminated: the head's Prev points at the last entry and
// the last entry's Next is zero.
func appendEntries(head uintptr, entries []uintptr) {
	h := layout.At[shell.FileEntry](head)
	last := h.Link.Prev
	if last == 0 {
		last = head
	}
	for _, e := range entries {
		rec := layout.At[shell.FileEntry](e)
		rec.Link.Prev = last
		rec.Link.Next = 0
		layout.At[shell.FileEntry](last).Link.Next = e
		last = e
	}
	h.Link.Prev = last
}

// buildList opens every node with mode and links the entries after head. A
// zero head starts a new list; no matches leave it zero. A node that cannot
// be opened keeps a null handle and carries the open status.
func (fw *Firmware) buildList(head uintptr, nodes []*node, mode shell.Mode) (uintptr, status.Status) {
	entries := make([]uintptr, 0, len(nodes))
	for _, n := range nodes {
		h, st := fw.openNode(n, mode)
		e, est := fw.newEntry(n, h, st)
		if est != status.Success {
			if h != 0 {
				fw.files.Remove(handle.Handle(h))
			}
			for _, done := range entries {
				fw.freeEntry(done)
			}
			return 0, est
		}
		entries = append(entries, e)
	}
	if len(entries) == 0 {
		return head, status.Success
	}

	if head == 0 {
		var st status.Status
		if head, st = fw.newHead(); st != status.Success {
			for _, done := range entries {
				fw.freeEntry(done)
			}
			return 0, st
		}
		fw.handOut(head, "filelist")
	}
	appendEntries(head, entries)
	return head, status.Success
}

func (fw *Firmware) matches(pattern string) ([]*node, status.Status) {
	p, ok := fw.resolve(pattern)
	if !ok {
		return nil, status.NotFound
	}
	return fw.fs.glob(p)
}

func (fw *Firmware) shFindFiles(a args) uintptr {
	out := a.at(1)
	if out == 0 {
		return uintptr(status.InvalidParameter)
	}
	pattern, ok, st := readString(a.at(0))
	if !ok || st != status.Success {
		return uintptr(status.InvalidParameter)
	}
	nodes, st := fw.matches(pattern)
	if st != status.Success {
		return uintptr(st)
	}
	head, st := fw.buildList(0, nodes, shell.ModeRead)
	if st != status.Success {
		return uintptr(st)
	}
	writeWord(out, head)
	return uintptr(status.Success)
}

func (fw *Firmware) shFindFilesInDir(a args) uintptr {
	out := a.at(1)
	f, ok := fw.file(a.at(0))
	if !ok || out == 0 || f.console != nil {
		return uintptr(status.InvalidParameter)
	}
	if !f.node.isDir() {
		return uintptr(status.NotFound)
	}
	head, st := fw.buildList(0, f.node.sorted(), shell.ModeRead)
	if st != status.Success {
		return uintptr(st)
	}
	writeWord(out, head)
	return uintptr(status.Success)
}

// shOpenFileList appends to the list at *out when it is not null.
func (fw *Firmware) shOpenFileList(a args) uintptr {
	out := a.at(2)
	if out == 0 {
		return uintptr(status.InvalidParameter)
	}
	pattern, ok, st := readString(a.at(0))
	if !ok || st != status.Success {
		return uintptr(status.InvalidParameter)
	}
	mode := shell.Mode(a.at(1))
	if !validMode(mode) || mode&shell.ModeCreate != 0 {
		return uintptr(status.InvalidParameter)
	}
	head := readWord(out)
	if head != 0 && fw.handedOut[head] != "filelist" {
		return uintptr(status.InvalidParameter)
	}
	nodes, st := fw.matches(pattern)
	if st != status.Success {
		return uintptr(st)
	}
	head, st = fw.buildList(head, nodes, mode)
	if st != status.Success {
		return uintptr(st)
	}
	writeWord(out, head)
	return uintptr(status.Success)
}

func (fw *Firmware) shFreeFileList(a args) uintptr {
	ref := a.at(0)
	if ref == 0 {
		return uintptr(status.InvalidParameter)
	}
	head := readWord(ref)
	if head == 0 || !fw.takeBack(head, "filelist") {
		return uintptr(status.InvalidParameter)
	}
	// The placeholder goes with the entries.
	for e := head; e != 0; {
		next := layout.At[shell.FileEntry](e).Link.Next
		fw.freeEntry(e)
		e = next
	}
	writeWord(ref, 0)
	return uintptr(status.Success)
}

// shRemoveDup drops later entries whose full name repeats an earlier one,
// comparing case-insensitively. The head stays in place.
func (fw *Firmware) shRemoveDup(a args) uintptr {
	ref := a.at(0)
	if ref == 0 {
		return uintptr(status.InvalidParameter)
	}
	head := readWord(ref)
	if head == 0 || fw.handedOut[head] != "filelist" {
		return uintptr(status.InvalidParameter)
	}

	h := layout.At[shell.FileEntry](head)
	seen := map[string]bool{}
	var keep, drop []uintptr
	for e := h.Link.Next; e != 0; e = layout.At[shell.FileEntry](e).Link.Next {
		name, _, st := readString(layout.At[shell.FileEntry](e).FullName)
		if st != status.Success {
			return uintptr(st)
		}
		key := strings.ToLower(name)
		if seen[key] {
			drop = append(drop, e)
			continue
		}
		seen[key] = true
		keep = append(keep, e)
	}

	for _, e := range drop {
		fw.freeEntry(e)
	}
	h.Link = list.Link{}
	appendEntries(head, keep)
	return uintptr(status.Success)
}
