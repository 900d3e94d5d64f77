package emu

import (
	"errors"
	"io"

	"github.com/wippyai/efi-runtime/internal/handle"
	"github.com/wippyai/efi-runtime/proto/shell"
	"github.com/wippyai/efi-runtime/status"
)

// openFile is an open shell file handle. Console handles have no node.
type openFile struct {
	node    *node
	console *console
	mode    shell.Mode
	pos     uint64
	dirPos  int
}

func (f *openFile) writable() bool {
	return f.mode&shell.ModeWrite != 0
}

func validMode(m shell.Mode) bool {
	switch m {
	case shell.ModeRead, shell.ModeRead | shell.ModeWrite, shell.ModeRead | shell.ModeWrite | shell.ModeCreate:
		return true
	}
	return false
}

func (fw *Firmware) file(h uintptr) (*openFile, bool) {
	return fw.files.Get(handle.Handle(h))
}

// open resolves name and opens it with mode, creating a plain file when
// mode asks for it.
func (fw *Firmware) open(name string, mode shell.Mode) (shell.FileHandle, status.Status) {
	if !validMode(mode) {
		return 0, status.InvalidParameter
	}
	p, ok := fw.resolve(name)
	if !ok {
		return 0, status.NotFound
	}
	n := fw.fs.lookup(p)
	if n == nil {
		if mode&shell.ModeCreate == 0 {
			return 0, status.NotFound
		}
		var st status.Status
		if n, st = fw.fs.create(p, shell.AttrArchive); st != status.Success {
			return 0, st
		}
	}
	return fw.openNode(n, mode)
}

func (fw *Firmware) openNode(n *node, mode shell.Mode) (shell.FileHandle, status.Status) {
	if mode&shell.ModeWrite != 0 && n.attr&shell.AttrReadOnly != 0 {
		return 0, status.AccessDenied
	}
	if st := n.load(); st != status.Success {
		return 0, st
	}
	h, err := fw.files.Insert(&openFile{node: n, mode: mode &^ shell.ModeCreate})
	if err != nil {
		return 0, status.OutOfResources
	}
	n.accessed = fw.now()
	return shell.FileHandle(h), status.Success
}

func (fw *Firmware) shOpenFileByName(a args) uintptr {
	out := a.at(1)
	if out == 0 {
		return uintptr(status.InvalidParameter)
	}
	name, ok, st := readString(a.at(0))
	if !ok || st != status.Success {
		return uintptr(status.InvalidParameter)
	}
	h, st := fw.open(name, shell.Mode(a.at(2)))
	if st != status.Success {
		return uintptr(st)
	}
	writeWord(out, uintptr(h))
	return uintptr(status.Success)
}

// shCreateFile opens name read/write, creating it with attrs when missing.
func (fw *Firmware) shCreateFile(a args) uintptr {
	out := a.at(2)
	if out == 0 {
		return uintptr(status.InvalidParameter)
	}
	name, ok, st := readString(a.at(0))
	if !ok || st != status.Success {
		return uintptr(status.InvalidParameter)
	}
	attrs := shell.Attribute(a.at(1))
	if attrs&^shell.AttrValid != 0 {
		return uintptr(status.InvalidParameter)
	}
	p, ok := fw.resolve(name)
	if !ok {
		return uintptr(status.NotFound)
	}
	n := fw.fs.lookup(p)
	if n == nil {
		if n, st = fw.fs.create(p, attrs); st != status.Success {
			return uintptr(st)
		}
	}
	h, st := fw.openNode(n, shell.ModeRead|shell.ModeWrite)
	if st != status.Success {
		return uintptr(st)
	}
	writeWord(out, uintptr(h))
	return uintptr(status.Success)
}

func (fw *Firmware) shCloseFile(a args) uintptr {
	if _, ok := fw.files.Remove(handle.Handle(a.at(0))); !ok {
		return uintptr(status.InvalidParameter)
	}
	return uintptr(status.Success)
}

func (fw *Firmware) shReadFile(a args) uintptr {
	f, ok := fw.file(a.at(0))
	sizeAddr, buf := a.at(1), a.at(2)
	if !ok || sizeAddr == 0 {
		return uintptr(status.InvalidParameter)
	}
	want := readWord(sizeAddr)
	if want > 0 && buf == 0 {
		return uintptr(status.InvalidParameter)
	}

	switch {
	case f.console != nil:
		if f.console.r == nil {
			return uintptr(status.Unsupported)
		}
		n, err := f.console.r.Read(bytesAt(buf, want))
		if err != nil && !errors.Is(err, io.EOF) {
			return uintptr(status.DeviceError)
		}
		writeWord(sizeAddr, uintptr(n))
		return uintptr(status.Success)
	case f.node.isDir():
		return uintptr(fw.readDir(f, sizeAddr, buf, want))
	}

	data := f.node.data
	var n int
	if f.pos < uint64(len(data)) {
		n = copy(bytesAt(buf, want), data[f.pos:])
	}
	f.pos += uint64(n)
	f.node.accessed = fw.now()
	writeWord(sizeAddr, uintptr(n))
	return uintptr(status.Success)
}

// readDir returns the next directory entry as an EFI_FILE_INFO record. A
// size of zero marks the end of the directory.
func (fw *Firmware) readDir(f *openFile, sizeAddr, buf, want uintptr) status.Status {
	children := f.node.sorted()
	if f.dirPos >= len(children) {
		writeWord(sizeAddr, 0)
		return status.Success
	}
	rec, err := children[f.dirPos].info().MarshalBinary()
	if err != nil {
		return status.DeviceError
	}
	if uintptr(len(rec)) > want {
		writeWord(sizeAddr, uintptr(len(rec)))
		return status.BufferTooSmall
	}
	copy(bytesAt(buf, want), rec)
	f.dirPos++
	writeWord(sizeAddr, uintptr(len(rec)))
	return status.Success
}

func (fw *Firmware) shWriteFile(a args) uintptr {
	f, ok := fw.file(a.at(0))
	sizeAddr, buf := a.at(1), a.at(2)
	if !ok || sizeAddr == 0 {
		return uintptr(status.InvalidParameter)
	}
	size := readWord(sizeAddr)
	if size > 0 && buf == 0 {
		return uintptr(status.InvalidParameter)
	}
	src := bytesAt(buf, size)

	if f.console != nil {
		if f.console.w == nil {
			return uintptr(status.Unsupported)
		}
		n, err := f.console.w.Write(src)
		writeWord(sizeAddr, uintptr(n))
		if err != nil {
			return uintptr(status.DeviceError)
		}
		return uintptr(status.Success)
	}
	if f.node.isDir() {
		return uintptr(status.Unsupported)
	}
	if !f.writable() {
		return uintptr(status.AccessDenied)
	}

	end := f.pos + uint64(size)
	if end > uint64(len(f.node.data)) {
		f.node.data = append(f.node.data, make([]byte, end-uint64(len(f.node.data)))...)
	}
	copy(f.node.data[f.pos:end], src)
	f.pos = end
	t := fw.now()
	f.node.modified = t
	f.node.accessed = t
	f.node.attr |= shell.AttrArchive
	return uintptr(status.Success)
}

// shDeleteFile closes the handle whatever the outcome.
func (fw *Firmware) shDeleteFile(a args) uintptr {
	f, ok := fw.files.Remove(handle.Handle(a.at(0)))
	if !ok {
		return uintptr(status.InvalidParameter)
	}
	if f.console != nil || !f.writable() {
		return uintptr(status.WarnDeleteFailure)
	}
	if st := fw.fs.remove(f.node); st != status.Success {
		return uintptr(status.WarnDeleteFailure)
	}
	return uintptr(status.Success)
}

func (fw *Firmware) shDeleteFileByName(a args) uintptr {
	name, ok, st := readString(a.at(0))
	if !ok || st != status.Success {
		return uintptr(status.InvalidParameter)
	}
	p, ok := fw.resolve(name)
	if !ok {
		return uintptr(status.NotFound)
	}
	n := fw.fs.lookup(p)
	if n == nil {
		return uintptr(status.NotFound)
	}
	if n.attr&shell.AttrReadOnly != 0 {
		return uintptr(status.AccessDenied)
	}
	return uintptr(fw.fs.remove(n))
}

func (fw *Firmware) shGetFilePosition(a args) uintptr {
	f, ok := fw.file(a.at(0))
	out := a.at(1)
	if !ok || out == 0 {
		return uintptr(status.InvalidParameter)
	}
	if f.console != nil || f.node.isDir() {
		return uintptr(status.Unsupported)
	}
	writeU64(out, f.pos)
	return uintptr(status.Success)
}

// shSetFilePosition seeks. Directories may only be rewound; ^0 seeks to
// the end of a file.
func (fw *Firmware) shSetFilePosition(a args) uintptr {
	f, ok := fw.file(a.at(0))
	if !ok {
		return uintptr(status.InvalidParameter)
	}
	pos := uint64(a.at(1))
	switch {
	case f.console != nil:
		return uintptr(status.Unsupported)
	case f.node.isDir():
		if pos != 0 {
			return uintptr(status.Unsupported)
		}
		f.dirPos = 0
	case pos == ^uint64(0):
		f.pos = uint64(len(f.node.data))
	default:
		f.pos = pos
	}
	return uintptr(status.Success)
}

func (fw *Firmware) shFlushFile(a args) uintptr {
	f, ok := fw.file(a.at(0))
	if !ok {
		return uintptr(status.InvalidParameter)
	}
	if f.console == nil && !f.writable() {
		return uintptr(status.AccessDenied)
	}
	return uintptr(status.Success)
}

func (fw *Firmware) shGetFileSize(a args) uintptr {
	f, ok := fw.file(a.at(0))
	out := a.at(1)
	if !ok || out == 0 {
		return uintptr(status.InvalidParameter)
	}
	if f.console != nil {
		return uintptr(status.Unsupported)
	}
	writeU64(out, uint64(len(f.node.data)))
	return uintptr(status.Success)
}

// shGetFileInfo returns a pool copy of the file's EFI_FILE_INFO, or null.
func (fw *Firmware) shGetFileInfo(a args) uintptr {
	f, ok := fw.file(a.at(0))
	if !ok || f.console != nil {
		return 0
	}
	rec, err := f.node.info().MarshalBinary()
	if err != nil {
		return 0
	}
	addr, err := fw.pool.Bytes(rec)
	if err != nil {
		return 0
	}
	fw.handOut(addr, "pool")
	return addr
}

// shSetFileInfo applies a new name, size, attributes and non-zero times.
// The directory attribute cannot change.
func (fw *Firmware) shSetFileInfo(a args) uintptr {
	f, ok := fw.file(a.at(0))
	if !ok || f.console != nil {
		return uintptr(status.InvalidParameter)
	}
	fi, err := shell.FileInfoAt(a.at(1))
	if err != nil {
		return uintptr(status.InvalidParameter)
	}
	n := f.node
	if fi.Attribute&^shell.AttrValid != 0 || (fi.Attribute^n.attr)&shell.AttrDirectory != 0 {
		return uintptr(status.AccessDenied)
	}
	if !f.writable() && !onlyAttrs(n, fi) {
		return uintptr(status.AccessDenied)
	}

	if fi.FileName != "" && fi.FileName != n.name {
		if st := fw.fs.rename(n, fi.FileName); st != status.Success {
			return uintptr(st)
		}
	}
	if !n.isDir() && fi.FileSize != uint64(len(n.data)) {
		if fi.FileSize < uint64(len(n.data)) {
			n.data = n.data[:fi.FileSize]
		} else {
			n.data = append(n.data, make([]byte, fi.FileSize-uint64(len(n.data)))...)
		}
	}
	n.attr = fi.Attribute
	if !fi.CreateTime.IsZero() {
		n.created = fi.CreateTime.Time()
	}
	if !fi.LastAccessTime.IsZero() {
		n.accessed = fi.LastAccessTime.Time()
	}
	if !fi.ModificationTime.IsZero() {
		n.modified = fi.ModificationTime.Time()
	} else {
		n.modified = fw.now()
	}
	return uintptr(status.Success)
}

// onlyAttrs reports whether fi changes nothing but attributes, which a
// read-only handle may still do.
func onlyAttrs(n *node, fi *shell.FileInfo) bool {
	return (fi.FileName == "" || fi.FileName == n.name) &&
		fi.FileSize == uint64(len(n.data)) &&
		fi.CreateTime.IsZero() && fi.LastAccessTime.IsZero() && fi.ModificationTime.IsZero()
}
