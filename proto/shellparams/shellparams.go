package shellparams

import (
	"unsafe"

	"github.com/wippyai/efi-runtime/boot"
	"github.com/wippyai/efi-runtime/guid"
	"github.com/wippyai/efi-runtime/layout"
	"github.com/wippyai/efi-runtime/proto/shell"
	"github.com/wippyai/efi-runtime/ucs2"
)

// ProtocolGUID identifies EFI_SHELL_PARAMETERS_PROTOCOL.
var ProtocolGUID = guid.MustParse("752f3136-4e16-4fdc-a22a-e5f46812f4ca")

// Protocol mirrors EFI_SHELL_PARAMETERS_PROTOCOL. It is installed on the
// image handle of every application the shell starts.
type Protocol struct {
	Argv   uintptr
	Argc   uintptr
	StdIn  shell.FileHandle
	StdOut shell.FileHandle
	StdErr shell.FileHandle
}

func (Protocol) ProtocolGUID() guid.GUID { return ProtocolGUID }

// Contract is the declared EFI_SHELL_PARAMETERS_PROTOCOL layout.
var Contract = layout.Contract{
	Name: "shell_parameters",
	GUID: ProtocolGUID,
	Fields: []layout.Field{
		layout.Ptr("Argv"),
		layout.UintN("Argc"),
		layout.Handle("StdIn"),
		layout.Handle("StdOut"),
		layout.Handle("StdErr"),
	},
}

// Params is a bound shell parameters protocol.
type Params struct {
	scope *boot.Scoped[Protocol]
}

// Open binds the parameters installed on the application's image handle.
func Open(r boot.Resolver, image boot.Handle) (*Params, error) {
	scope, err := boot.Open[Protocol](r, image)
	if err != nil {
		return nil, err
	}
	return &Params{scope: scope}, nil
}

// Close releases the protocol.
func (p *Params) Close() error {
	return p.scope.Close()
}

// Argv decodes the full argument vector, the program name included.
func (p *Params) Argv() ([]string, error) {
	return Decode(p.scope.Interface())
}

// Args decodes the arguments after the program name.
func (p *Params) Args() ([]string, error) {
	argv, err := p.Argv()
	if err != nil || len(argv) == 0 {
		return nil, err
	}
	return argv[1:], nil
}

// Stdio returns the standard input, output and error file handles.
func (p *Params) Stdio() (in, out, errh shell.FileHandle) {
	t := p.scope.Interface()
	return t.StdIn, t.StdOut, t.StdErr
}

// Decode walks the Argc CHAR16 pointers at Argv.
func Decode(t *Protocol) ([]string, error) {
	if t.Argc == 0 || t.Argv == 0 {
		return nil, nil
	}
	ptrs := unsafe.Slice(layout.At[uintptr](t.Argv), t.Argc)
	argv := make([]string, 0, len(ptrs))
	for _, ptr := range ptrs {
		s, err := ucs2.FromPtr(ptr)
		if err != nil {
			return nil, err
		}
		argv = append(argv, s)
	}
	return argv, nil
}
