package emu

import (
	"io"
	"unsafe"

	"github.com/wippyai/efi-runtime/errors"
	"github.com/wippyai/efi-runtime/layout"
	"github.com/wippyai/efi-runtime/proto/shell"
	"github.com/wippyai/efi-runtime/proto/shellparams"
	"github.com/wippyai/efi-runtime/status"
)

// console backs the standard file handles of the running image.
type console struct {
	r io.Reader
	w io.Writer
}

// installImage creates the application image handle with its shell
// parameters: argv in pool memory and console stdio handles.
func (fw *Firmware) installImage(argv []string, stdin io.Reader, stdout, stderr io.Writer) error {
	if stdin == nil {
		stdin = eofReader{}
	}
	if stdout == nil {
		stdout = io.Discard
	}
	if stderr == nil {
		stderr = io.Discard
	}

	ptrs := make([]uintptr, len(argv))
	for i, arg := range argv {
		p, st := fw.allocString(arg)
		if st != status.Success {
			return errors.New(errors.PhaseEmulate, errors.KindInvalidInput).
				Path("args").
				Value(i).
				Cause(st.Err()).
				Detail("argument %q", arg).
				Build()
		}
		ptrs[i] = p
	}

	var argvAddr uintptr
	if len(ptrs) > 0 {
		var err error
		argvAddr, err = fw.pool.Alloc(uintptr(len(ptrs))*unsafe.Sizeof(uintptr(0)), 8)
		if err != nil {
			return err
		}
		copy(unsafe.Slice(layout.At[uintptr](argvAddr), len(ptrs)), ptrs)
	}

	stdio := make([]shell.FileHandle, 3)
	for i, c := range []*console{{r: stdin}, {w: stdout}, {w: stderr}} {
		h, err := fw.files.Insert(&openFile{console: c, mode: shell.ModeRead | shell.ModeWrite})
		if err != nil {
			return errors.Wrap(errors.PhaseEmulate, errors.KindClosed, err, "console handle")
		}
		stdio[i] = shell.FileHandle(h)
	}

	addr, err := fw.pool.Alloc(unsafe.Sizeof(shellparams.Protocol{}), 8)
	if err != nil {
		return err
	}
	*layout.At[shellparams.Protocol](addr) = shellparams.Protocol{
		Argv:   argvAddr,
		Argc:   uintptr(len(ptrs)),
		StdIn:  stdio[0],
		StdOut: stdio[1],
		StdErr: stdio[2],
	}

	image, err := fw.installProtocol(0, shellparams.ProtocolGUID, addr)
	if err != nil {
		return err
	}
	fw.image = image
	return nil
}

type eofReader struct{}

func (eofReader) Read([]byte) (int, error) {
	return 0, io.EOF
}
