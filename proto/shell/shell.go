package shell

import (
	"go.uber.org/zap"

	efiruntime "github.com/wippyai/efi-runtime"
	"github.com/wippyai/efi-runtime/abi"
	"github.com/wippyai/efi-runtime/boot"
	"github.com/wippyai/efi-runtime/errors"
	"github.com/wippyai/efi-runtime/status"
	"github.com/wippyai/efi-runtime/ucs2"
)

// Shell is a bound EFI_SHELL_PROTOCOL.
type Shell struct {
	scope  *boot.Scoped[Protocol]
	bs     *boot.Services
	caller efiruntime.Caller
}

func bind(bs *boot.Services, scope *boot.Scoped[Protocol]) *Shell {
	return &Shell{scope: scope, bs: bs, caller: bs.Caller()}
}

// Open binds the shell on h.
func Open(bs *boot.Services, h boot.Handle) (*Shell, error) {
	scope, err := boot.Open[Protocol](bs, h)
	if err != nil {
		return nil, err
	}
	return bind(bs, scope), nil
}

// Find binds the shell on the first handle that exposes it.
func Find(bs *boot.Services) (*Shell, error) {
	scope, err := boot.Find[Protocol](bs)
	if err != nil {
		return nil, err
	}
	return bind(bs, scope), nil
}

// Locate binds the first shell instance in the system.
func Locate(bs *boot.Services) (*Shell, error) {
	scope, err := boot.Locate[Protocol](bs)
	if err != nil {
		return nil, err
	}
	return bind(bs, scope), nil
}

// Close releases the protocol. The Shell must not be used afterwards.
func (s *Shell) Close() error {
	return s.scope.Close()
}

func (s *Shell) table() *Protocol {
	return s.scope.Interface()
}

func (s *Shell) check(op string, st status.Status) error {
	if err := status.ToResult(st); err != nil {
		Logger().Debug("shell call failed", zap.String("op", op), zap.Stringer("status", st))
		return errors.Firmware(errors.PhaseCall, "shell", op, err)
	}
	return nil
}

// Version returns the protocol's major and minor version.
func (s *Shell) Version() (major, minor uint32) {
	p := s.table()
	return p.MajorVersion, p.MinorVersion
}

// ExecutionBreak returns the event signalled when the user requests a break.
func (s *Shell) ExecutionBreak() uintptr {
	return s.table().ExecutionBreak
}

// Execute runs a command line in a child shell. Env, when non-nil, replaces
// the child's environment with NAME=value entries. The returned status is
// the command's own; the error reports whether it could be run at all.
func (s *Shell) Execute(parent boot.Handle, cmdline string, env []string) (status.Status, error) {
	p := s.table()
	f := abi.NewFrame()
	defer f.Release()

	line, err := abi.String16(f, cmdline)
	if err != nil {
		return 0, err
	}
	envp, err := abi.StringArray16(f, env)
	if err != nil {
		return 0, err
	}
	code := abi.NewOut[status.Status](f)

	st := f.Call(s.caller, p.Execute, abi.Ref(f, &parent), line, envp, code.Ptr())
	if err := s.check("Execute", st); err != nil {
		return 0, err
	}
	return code.Assume(), nil
}

// GetEnv looks up an environment variable. Ok is false when it is unset.
func (s *Shell) GetEnv(name string) (string, bool, error) {
	p := s.table()
	f := abi.NewFrame()
	defer f.Release()

	n, err := abi.String16(f, name)
	if err != nil {
		return "", false, err
	}
	return optionalString(f.CallWord(s.caller, p.GetEnv, n))
}

// SetEnv sets an environment variable. An empty value deletes it.
func (s *Shell) SetEnv(name, value string, volatile bool) error {
	p := s.table()
	f := abi.NewFrame()
	defer f.Release()

	n, err := abi.String16(f, name)
	if err != nil {
		return err
	}
	v, err := abi.String16(f, value)
	if err != nil {
		return err
	}
	return s.check("SetEnv", f.Call(s.caller, p.SetEnv, n, v, abi.Bool(volatile)))
}

// GetCurDir returns the current directory of a file system mapping, or of
// the current file system when mapping is empty. Ok is false when there is
// none.
func (s *Shell) GetCurDir(mapping string) (string, bool, error) {
	p := s.table()
	f := abi.NewFrame()
	defer f.Release()

	var m uintptr
	if mapping != "" {
		var err error
		if m, err = abi.String16(f, mapping); err != nil {
			return "", false, err
		}
	}
	return optionalString(f.CallWord(s.caller, p.GetCurDir, m))
}

// SetCurDir changes the current directory. An empty fs applies dir to the
// current file system.
func (s *Shell) SetCurDir(fs, dir string) error {
	p := s.table()
	f := abi.NewFrame()
	defer f.Release()

	var fsp uintptr
	if fs != "" {
		var err error
		if fsp, err = abi.String16(f, fs); err != nil {
			return err
		}
	}
	d, err := abi.String16(f, dir)
	if err != nil {
		return err
	}
	return s.check("SetCurDir", f.Call(s.caller, p.SetCurDir, fsp, d))
}

// BatchIsActive reports whether a script is being processed.
func (s *Shell) BatchIsActive() bool {
	return s.boolCall(s.table().BatchIsActive)
}

// IsRootShell reports whether this is the root shell instance.
func (s *Shell) IsRootShell() bool {
	return s.boolCall(s.table().IsRootShell)
}

// GetPageBreak reports whether page break output mode is on.
func (s *Shell) GetPageBreak() bool {
	return s.boolCall(s.table().GetPageBreak)
}

// EnablePageBreak turns page break output mode on.
func (s *Shell) EnablePageBreak() {
	s.caller.Call(s.table().EnablePageBreak)
}

// DisablePageBreak turns page break output mode off.
func (s *Shell) DisablePageBreak() {
	s.caller.Call(s.table().DisablePageBreak)
}

func (s *Shell) boolCall(fn uintptr) bool {
	return s.caller.Call(fn)&0xff != 0
}

func optionalString(addr uintptr) (string, bool, error) {
	if addr == 0 {
		return "", false, nil
	}
	v, err := ucs2.FromPtr(addr)
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}
