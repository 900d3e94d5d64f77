package boot

import "github.com/wippyai/efi-runtime/layout"

// TableHeader precedes every EFI service table.
type TableHeader struct {
	Signature  uint64
	Revision   uint32
	HeaderSize uint32
	CRC32      uint32
	Reserved   uint32
}

// Signature of EFI_BOOT_SERVICES.
const Signature = 0x56524553544f4f42

// Table mirrors EFI_BOOT_SERVICES. Services this package does not call are
// kept as reserved slots so the bound ones stay at their UEFI offsets.
type Table struct {
	Hdr                                 TableHeader
	RaiseTPL                            layout.Reserved
	RestoreTPL                          layout.Reserved
	AllocatePages                       layout.Reserved
	FreePages                           layout.Reserved
	GetMemoryMap                        layout.Reserved
	AllocatePool                        uintptr
	FreePool                            uintptr
	CreateEvent                         layout.Reserved
	SetTimer                            layout.Reserved
	WaitForEvent                        layout.Reserved
	SignalEvent                         layout.Reserved
	CloseEvent                          layout.Reserved
	CheckEvent                          layout.Reserved
	InstallProtocolInterface            layout.Reserved
	ReinstallProtocolInterface          layout.Reserved
	UninstallProtocolInterface          layout.Reserved
	HandleProtocol                      uintptr
	Reserved                            layout.Reserved
	RegisterProtocolNotify              layout.Reserved
	LocateHandle                        layout.Reserved
	LocateDevicePath                    layout.Reserved
	InstallConfigurationTable           layout.Reserved
	LoadImage                           layout.Reserved
	StartImage                          layout.Reserved
	Exit                                layout.Reserved
	UnloadImage                         layout.Reserved
	ExitBootServices                    layout.Reserved
	GetNextMonotonicCount               layout.Reserved
	Stall                               layout.Reserved
	SetWatchdogTimer                    layout.Reserved
	ConnectController                   layout.Reserved
	DisconnectController                layout.Reserved
	OpenProtocol                        uintptr
	CloseProtocol                       uintptr
	OpenProtocolInformation             layout.Reserved
	ProtocolsPerHandle                  uintptr
	LocateHandleBuffer                  uintptr
	LocateProtocol                      uintptr
	InstallMultipleProtocolInterfaces   layout.Reserved
	UninstallMultipleProtocolInterfaces layout.Reserved
	CalculateCrc32                      layout.Reserved
	CopyMem                             layout.Reserved
	SetMem                              layout.Reserved
	CreateEventEx                       layout.Reserved
}

var headerFields = []layout.Field{
	layout.U64("Signature"),
	layout.U32("Revision"),
	layout.U32("HeaderSize"),
	layout.U32("CRC32"),
	layout.U32("Reserved"),
}

// Contract is the declared EFI_BOOT_SERVICES layout.
var Contract = layout.Contract{
	Name: "boot_services",
	Fields: []layout.Field{
		layout.Struct("Hdr", headerFields...),
		layout.Slot("RaiseTPL"),
		layout.Slot("RestoreTPL"),
		layout.Slot("AllocatePages"),
		layout.Slot("FreePages"),
		layout.Slot("GetMemoryMap"),
		layout.Fn("AllocatePool"),
		layout.Fn("FreePool"),
		layout.Slot("CreateEvent"),
		layout.Slot("SetTimer"),
		layout.Slot("WaitForEvent"),
		layout.Slot("SignalEvent"),
		layout.Slot("CloseEvent"),
		layout.Slot("CheckEvent"),
		layout.Slot("InstallProtocolInterface"),
		layout.Slot("ReinstallProtocolInterface"),
		layout.Slot("UninstallProtocolInterface"),
		layout.Fn("HandleProtocol"),
		layout.Slot("Reserved"),
		layout.Slot("RegisterProtocolNotify"),
		layout.Slot("LocateHandle"),
		layout.Slot("LocateDevicePath"),
		layout.Slot("InstallConfigurationTable"),
		layout.Slot("LoadImage"),
		layout.Slot("StartImage"),
		layout.Slot("Exit"),
		layout.Slot("UnloadImage"),
		layout.Slot("ExitBootServices"),
		layout.Slot("GetNextMonotonicCount"),
		layout.Slot("Stall"),
		layout.Slot("SetWatchdogTimer"),
		layout.Slot("ConnectController"),
		layout.Slot("DisconnectController"),
		layout.Fn("OpenProtocol"),
		layout.Fn("CloseProtocol"),
		layout.Slot("OpenProtocolInformation"),
		layout.Fn("ProtocolsPerHandle"),
		layout.Fn("LocateHandleBuffer"),
		layout.Fn("LocateProtocol"),
		layout.Slot("InstallMultipleProtocolInterfaces"),
		layout.Slot("UninstallMultipleProtocolInterfaces"),
		layout.Slot("CalculateCrc32"),
		layout.Slot("CopyMem"),
		layout.Slot("SetMem"),
		layout.Slot("CreateEventEx"),
	},
}

// Attributes for OpenProtocol.
const (
	AttrByHandleProtocol  = 0x01
	AttrGetProtocol       = 0x02
	AttrTestProtocol      = 0x04
	AttrByChildController = 0x08
	AttrByDriver          = 0x10
	AttrExclusive         = 0x20
)

// Search types for LocateHandleBuffer.
const (
	AllHandles       = 0
	ByRegisterNotify = 1
	ByProtocol       = 2
)

// Memory types for AllocatePool.
const (
	LoaderData       = 2
	BootServicesData = 4
)
