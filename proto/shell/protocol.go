package shell

import (
	"github.com/wippyai/efi-runtime/guid"
	"github.com/wippyai/efi-runtime/layout"
)

// ProtocolGUID identifies EFI_SHELL_PROTOCOL.
var ProtocolGUID = guid.MustParse("6302d008-7f9b-4f30-87ac-60c9fef5da4e")

// Protocol mirrors EFI_SHELL_PROTOCOL revision 2.2. Services that take or
// return device paths, aliases, help text, mappings or GUID names are not
// bound and occupy reserved slots.
type Protocol struct {
	Execute                   uintptr
	GetEnv                    uintptr
	SetEnv                    uintptr
	GetAlias                  layout.Reserved
	SetAlias                  layout.Reserved
	GetHelpText               layout.Reserved
	GetDevicePathFromMap      layout.Reserved
	GetMapFromDevicePath      layout.Reserved
	GetDevicePathFromFilePath layout.Reserved
	GetFilePathFromDevicePath layout.Reserved
	SetMap                    layout.Reserved
	GetCurDir                 uintptr
	SetCurDir                 uintptr
	OpenFileList              uintptr
	FreeFileList              uintptr
	RemoveDupInFileList       uintptr
	BatchIsActive             uintptr
	IsRootShell               uintptr
	EnablePageBreak           uintptr
	DisablePageBreak          uintptr
	GetPageBreak              uintptr
	GetDeviceName             layout.Reserved
	GetFileInfo               uintptr
	SetFileInfo               uintptr
	OpenFileByName            uintptr
	CloseFile                 uintptr
	CreateFile                uintptr
	ReadFile                  uintptr
	WriteFile                 uintptr
	DeleteFile                uintptr
	DeleteFileByName          uintptr
	GetFilePosition           uintptr
	SetFilePosition           uintptr
	FlushFile                 uintptr
	FindFiles                 uintptr
	FindFilesInDir            uintptr
	GetFileSize               uintptr
	OpenRoot                  layout.Reserved
	OpenRootByHandle          layout.Reserved
	ExecutionBreak            uintptr
	MajorVersion              uint32
	MinorVersion              uint32
	RegisterGUIDName          layout.Reserved
	GetGUIDName               layout.Reserved
	GetGUIDFromName           layout.Reserved
	GetEnvEx                  layout.Reserved
}

func (Protocol) ProtocolGUID() guid.GUID { return ProtocolGUID }

// Contract is the declared EFI_SHELL_PROTOCOL layout.
var Contract = layout.Contract{
	Name: "shell",
	GUID: ProtocolGUID,
	Fields: []layout.Field{
		layout.Fn("Execute"),
		layout.Fn("GetEnv"),
		layout.Fn("SetEnv"),
		layout.Slot("GetAlias"),
		layout.Slot("SetAlias"),
		layout.Slot("GetHelpText"),
		layout.Slot("GetDevicePathFromMap"),
		layout.Slot("GetMapFromDevicePath"),
		layout.Slot("GetDevicePathFromFilePath"),
		layout.Slot("GetFilePathFromDevicePath"),
		layout.Slot("SetMap"),
		layout.Fn("GetCurDir"),
		layout.Fn("SetCurDir"),
		layout.Fn("OpenFileList"),
		layout.Fn("FreeFileList"),
		layout.Fn("RemoveDupInFileList"),
		layout.Fn("BatchIsActive"),
		layout.Fn("IsRootShell"),
		layout.Fn("EnablePageBreak"),
		layout.Fn("DisablePageBreak"),
		layout.Fn("GetPageBreak"),
		layout.Slot("GetDeviceName"),
		layout.Fn("GetFileInfo"),
		layout.Fn("SetFileInfo"),
		layout.Fn("OpenFileByName"),
		layout.Fn("CloseFile"),
		layout.Fn("CreateFile"),
		layout.Fn("ReadFile"),
		layout.Fn("WriteFile"),
		layout.Fn("DeleteFile"),
		layout.Fn("DeleteFileByName"),
		layout.Fn("GetFilePosition"),
		layout.Fn("SetFilePosition"),
		layout.Fn("FlushFile"),
		layout.Fn("FindFiles"),
		layout.Fn("FindFilesInDir"),
		layout.Fn("GetFileSize"),
		layout.Slot("OpenRoot"),
		layout.Slot("OpenRootByHandle"),
		layout.Event("ExecutionBreak"),
		layout.U32("MajorVersion"),
		layout.U32("MinorVersion"),
		layout.Slot("RegisterGUIDName"),
		layout.Slot("GetGUIDName"),
		layout.Slot("GetGUIDFromName"),
		layout.Slot("GetEnvEx"),
	},
}

// Mode is an OpenFileByName mode. Values combine with bitwise OR.
type Mode uint64

const (
	ModeRead   Mode = 0x0000000000000001
	ModeWrite  Mode = 0x0000000000000002
	ModeCreate Mode = 0x8000000000000000
)

// Attribute is an EFI_FILE_INFO attribute bit set.
type Attribute uint64

const (
	AttrReadOnly  Attribute = 0x01
	AttrHidden    Attribute = 0x02
	AttrSystem    Attribute = 0x04
	AttrReserved  Attribute = 0x08
	AttrDirectory Attribute = 0x10
	AttrArchive   Attribute = 0x20

	AttrValid = AttrReadOnly | AttrHidden | AttrSystem | AttrReserved | AttrDirectory | AttrArchive
)

// FileHandle is a SHELL_FILE_HANDLE.
type FileHandle uintptr
