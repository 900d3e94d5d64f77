package shell

import (
	"iter"

	"github.com/wippyai/efi-runtime/abi"
	"github.com/wippyai/efi-runtime/errors"
	"github.com/wippyai/efi-runtime/layout"
	"github.com/wippyai/efi-runtime/list"
	"github.com/wippyai/efi-runtime/status"
	"github.com/wippyai/efi-runtime/ucs2"
)

// FileEntry mirrors EFI_SHELL_FILE_INFO. The string and info pointers are
// owned by the list and are only valid until it is freed.
type FileEntry struct {
	Link     list.Link
	Status   status.Status
	FullName uintptr
	FileName uintptr
	Handle   FileHandle
	Info     uintptr
}

// FileEntryContract is the declared EFI_SHELL_FILE_INFO layout.
var FileEntryContract = layout.Contract{
	Name: "shell_file_info",
	Fields: []layout.Field{
		layout.Struct("Link", layout.Ptr("Next"), layout.Ptr("Prev")),
		layout.Status("Status"),
		layout.Ptr("FullName"),
		layout.Ptr("FileName"),
		layout.Handle("Handle"),
		layout.Ptr("Info"),
	},
}

// Name decodes the entry's file name.
func (e FileEntry) Name() (string, error) {
	return ucs2.FromPtr(e.FileName)
}

// Path decodes the entry's full path.
func (e FileEntry) Path() (string, error) {
	return ucs2.FromPtr(e.FullName)
}

// FileInfo decodes the entry's EFI_FILE_INFO. Ok is false when the firmware
// attached none.
func (e FileEntry) FileInfo() (*FileInfo, bool, error) {
	if e.Info == 0 {
		return nil, false, nil
	}
	fi, err := FileInfoAt(e.Info)
	if err != nil {
		return nil, false, err
	}
	return fi, true, nil
}

// File is a list entry decoded into Go memory.
type File struct {
	Info   *FileInfo
	Name   string
	Path   string
	Handle FileHandle
	Status status.Status
}

// FileList is a firmware-allocated list returned by FindFiles,
// FindFilesInDir or OpenFileList. It must be released with Free exactly
// once; afterwards it yields nothing.
//
// FileList owns the list head and is not itself a cursor. Cursor, All, Len
// and Files each start a new single-use list.Cursor at the head, so ranging
// over All twice walks the list twice.
type FileList struct {
	shell *Shell
	head  uintptr
	freed bool
}

// Cursor starts a walk over the list.
func (l *FileList) Cursor() (*list.Cursor[FileEntry], error) {
	if l.freed {
		return nil, errors.Closed(errors.PhaseIterate, "file list")
	}
	return list.NewCursor[FileEntry](l.head), nil
}

// All yields each entry in firmware order. Every range creates a new
// single-use cursor.
func (l *FileList) All() iter.Seq[FileEntry] {
	return func(yield func(FileEntry) bool) {
		c := list.NewCursor[FileEntry](l.head)
		for !l.freed {
			e, ok := c.Next()
			if !ok || !yield(e) {
				return
			}
		}
	}
}

// Files decodes every entry into Go memory so it survives Free.
func (l *FileList) Files() ([]File, error) {
	if l.freed {
		return nil, errors.Closed(errors.PhaseIterate, "file list")
	}
	var files []File
	for e := range l.All() {
		name, err := e.Name()
		if err != nil {
			return nil, err
		}
		path, err := e.Path()
		if err != nil {
			return nil, err
		}
		info, _, err := e.FileInfo()
		if err != nil {
			return nil, err
		}
		files = append(files, File{
			Info:   info,
			Name:   name,
			Path:   path,
			Handle: e.Handle,
			Status: e.Status,
		})
	}
	return files, nil
}

// Len counts the entries.
func (l *FileList) Len() int {
	n := 0
	for range l.All() {
		n++
	}
	return n
}

// Dedup removes entries with duplicate full names, in place.
func (l *FileList) Dedup() error {
	if l.freed {
		return errors.Closed(errors.PhaseIterate, "file list")
	}
	p := l.shell.table()

	f := abi.NewFrame()
	defer f.Release()
	head := abi.NewOut[uintptr](f)
	head.Set(l.head)
	st := f.Call(l.shell.caller, p.RemoveDupInFileList, head.Ptr())
	if err := l.shell.check("RemoveDupInFileList", st); err != nil {
		return err
	}
	l.head = head.Assume()
	return nil
}

// Append opens the files matching path with mode and links them to the end
// of the list.
func (l *FileList) Append(path string, mode Mode) error {
	if l.freed {
		return errors.Closed(errors.PhaseIterate, "file list")
	}
	p := l.shell.table()

	f := abi.NewFrame()
	defer f.Release()
	pat, err := abi.String16(f, path)
	if err != nil {
		return err
	}
	head := abi.NewOut[uintptr](f)
	head.Set(l.head)
	st := f.Call(l.shell.caller, p.OpenFileList, pat, uintptr(mode), head.Ptr())
	if err := l.shell.check("OpenFileList", st); err != nil {
		return err
	}
	l.head = head.Assume()
	return nil
}

// Free releases the list and the file handles it holds. A second call
// returns a closed error without reaching the firmware.
func (l *FileList) Free() error {
	if l.freed {
		return errors.Closed(errors.PhaseIterate, "file list")
	}
	l.freed = true
	p := l.shell.table()

	f := abi.NewFrame()
	defer f.Release()
	head := l.head
	l.head = 0
	return l.shell.check("FreeFileList",
		f.Call(l.shell.caller, p.FreeFileList, abi.Ref(f, &head)))
}
