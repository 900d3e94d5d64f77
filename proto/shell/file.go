package shell

import (
	"github.com/wippyai/efi-runtime/abi"
	"github.com/wippyai/efi-runtime/status"
)

// OpenFileByName opens a file. On success the firmware may still return a
// null handle; ok reports whether a handle was produced.
func (s *Shell) OpenFileByName(name string, mode Mode) (FileHandle, bool, error) {
	p := s.table()
	f := abi.NewFrame()
	defer f.Release()

	n, err := abi.String16(f, name)
	if err != nil {
		return 0, false, err
	}
	out := abi.NewOut[FileHandle](f)

	st := f.Call(s.caller, p.OpenFileByName, n, out.Ptr(), uintptr(mode))
	if err := s.check("OpenFileByName", st); err != nil {
		return 0, false, err
	}
	h, ok := abi.Optional(out.Assume())
	return h, ok, nil
}

// CreateFile creates a file or directory and opens it read/write. As with
// OpenFileByName, a null handle on success is reported through ok.
func (s *Shell) CreateFile(name string, attrs Attribute) (FileHandle, bool, error) {
	p := s.table()
	f := abi.NewFrame()
	defer f.Release()

	n, err := abi.String16(f, name)
	if err != nil {
		return 0, false, err
	}
	out := abi.NewOut[FileHandle](f)

	st := f.Call(s.caller, p.CreateFile, n, uintptr(attrs), out.Ptr())
	if err := s.check("CreateFile", st); err != nil {
		return 0, false, err
	}
	h, ok := abi.Optional(out.Assume())
	return h, ok, nil
}

// CloseFile flushes and closes h.
func (s *Shell) CloseFile(h FileHandle) error {
	return s.check("CloseFile", status.Status(s.caller.Call(s.table().CloseFile, uintptr(h))))
}

// ReadFile reads into buf from the current position and returns the number
// of bytes the firmware reports as read.
func (s *Shell) ReadFile(h FileHandle, buf []byte) (int, error) {
	return s.transfer("ReadFile", s.table().ReadFile, h, buf)
}

// WriteFile writes buf at the current position and returns the number of
// bytes the firmware reports as written.
func (s *Shell) WriteFile(h FileHandle, buf []byte) (int, error) {
	return s.transfer("WriteFile", s.table().WriteFile, h, buf)
}

func (s *Shell) transfer(op string, fn uintptr, h FileHandle, buf []byte) (int, error) {
	f := abi.NewFrame()
	defer f.Release()

	size := abi.NewOut[uintptr](f)
	size.Set(uintptr(len(buf)))

	st := f.Call(s.caller, fn, uintptr(h), size.Ptr(), abi.Buf(f, buf))
	if err := s.check(op, st); err != nil {
		return 0, err
	}
	return int(size.Assume()), nil
}

// DeleteFile deletes the file behind h and closes h, even on failure.
func (s *Shell) DeleteFile(h FileHandle) error {
	return s.check("DeleteFile", status.Status(s.caller.Call(s.table().DeleteFile, uintptr(h))))
}

// DeleteFileByName deletes a file by path.
func (s *Shell) DeleteFileByName(name string) error {
	p := s.table()
	f := abi.NewFrame()
	defer f.Release()

	n, err := abi.String16(f, name)
	if err != nil {
		return err
	}
	return s.check("DeleteFileByName", f.Call(s.caller, p.DeleteFileByName, n))
}

// GetFilePosition returns the current byte offset of h.
func (s *Shell) GetFilePosition(h FileHandle) (uint64, error) {
	return s.u64Out("GetFilePosition", s.table().GetFilePosition, h)
}

// SetFilePosition moves h to pos. The position ^uint64(0) seeks to the end.
func (s *Shell) SetFilePosition(h FileHandle, pos uint64) error {
	return s.check("SetFilePosition",
		status.Status(s.caller.Call(s.table().SetFilePosition, uintptr(h), uintptr(pos))))
}

// FlushFile writes buffered data for h.
func (s *Shell) FlushFile(h FileHandle) error {
	return s.check("FlushFile", status.Status(s.caller.Call(s.table().FlushFile, uintptr(h))))
}

// GetFileSize returns the size of the file behind h.
func (s *Shell) GetFileSize(h FileHandle) (uint64, error) {
	return s.u64Out("GetFileSize", s.table().GetFileSize, h)
}

func (s *Shell) u64Out(op string, fn uintptr, h FileHandle) (uint64, error) {
	f := abi.NewFrame()
	defer f.Release()

	out := abi.NewOut[uint64](f)
	st := f.Call(s.caller, fn, uintptr(h), out.Ptr())
	if err := s.check(op, st); err != nil {
		return 0, err
	}
	return out.Assume(), nil
}

// GetFileInfo returns the decoded EFI_FILE_INFO of h. Ok is false when the
// firmware returned none. The firmware's copy is freed before returning.
func (s *Shell) GetFileInfo(h FileHandle) (*FileInfo, bool, error) {
	addr := s.caller.Call(s.table().GetFileInfo, uintptr(h))
	if addr == 0 {
		return nil, false, nil
	}
	fi, err := FileInfoAt(addr)
	if ferr := s.bs.FreePool(addr); err == nil {
		err = ferr
	}
	if err != nil {
		return nil, false, err
	}
	return fi, true, nil
}

// SetFileInfo replaces the information of h. The firmware decides which
// changes it accepts.
func (s *Shell) SetFileInfo(h FileHandle, fi *FileInfo) error {
	p := s.table()
	raw, err := fi.MarshalBinary()
	if err != nil {
		return err
	}

	f := abi.NewFrame()
	defer f.Release()
	return s.check("SetFileInfo", f.Call(s.caller, p.SetFileInfo, uintptr(h), abi.Buf(f, raw)))
}

// FindFiles returns the files matching a wildcard pattern. A nil list with
// a nil error means nothing matched.
func (s *Shell) FindFiles(pattern string) (*FileList, error) {
	p := s.table()
	f := abi.NewFrame()
	defer f.Release()

	pat, err := abi.String16(f, pattern)
	if err != nil {
		return nil, err
	}
	out := abi.NewOut[uintptr](f)
	st := f.Call(s.caller, p.FindFiles, pat, out.Ptr())
	if err := s.check("FindFiles", st); err != nil {
		return nil, err
	}
	return s.fileList(out.Assume()), nil
}

// FindFilesInDir lists the directory open on dir.
func (s *Shell) FindFilesInDir(dir FileHandle) (*FileList, error) {
	p := s.table()
	f := abi.NewFrame()
	defer f.Release()

	out := abi.NewOut[uintptr](f)
	st := f.Call(s.caller, p.FindFilesInDir, uintptr(dir), out.Ptr())
	if err := s.check("FindFilesInDir", st); err != nil {
		return nil, err
	}
	return s.fileList(out.Assume()), nil
}

// OpenFileList opens every file matching a wildcard path with mode and
// returns them as a new list.
func (s *Shell) OpenFileList(path string, mode Mode) (*FileList, error) {
	p := s.table()
	f := abi.NewFrame()
	defer f.Release()

	pat, err := abi.String16(f, path)
	if err != nil {
		return nil, err
	}
	out := abi.NewOut[uintptr](f)
	st := f.Call(s.caller, p.OpenFileList, pat, uintptr(mode), out.Ptr())
	if err := s.check("OpenFileList", st); err != nil {
		return nil, err
	}
	return s.fileList(out.Assume()), nil
}

func (s *Shell) fileList(head uintptr) *FileList {
	if head == 0 {
		return nil
	}
	return &FileList{shell: s, head: head}
}
