package shell

import (
	"encoding/binary"
	"time"
	"unsafe"

	"github.com/wippyai/efi-runtime/errors"
	"github.com/wippyai/efi-runtime/layout"
	"github.com/wippyai/efi-runtime/ucs2"
)

// Time mirrors EFI_TIME.
type Time struct {
	Year       uint16
	Month      uint8
	Day        uint8
	Hour       uint8
	Minute     uint8
	Second     uint8
	Pad1       uint8
	Nanosecond uint32
	TimeZone   int16
	Daylight   uint8
	Pad2       uint8
}

// UnspecifiedTimezone marks a local time with no known offset.
const UnspecifiedTimezone = 0x07FF

// Time converts t to a time.Time. An unspecified time zone is treated as UTC.
func (t Time) Time() time.Time {
	loc := time.UTC
	if t.TimeZone != UnspecifiedTimezone {
		loc = time.FixedZone("", -int(t.TimeZone)*60)
	}
	return time.Date(int(t.Year), time.Month(t.Month), int(t.Day),
		int(t.Hour), int(t.Minute), int(t.Second), int(t.Nanosecond), loc)
}

// IsZero reports whether no field is set.
func (t Time) IsZero() bool {
	return t == Time{}
}

// TimeOf converts a time.Time. The zone offset is kept in minutes.
func TimeOf(tm time.Time) Time {
	if tm.IsZero() {
		return Time{}
	}
	_, offset := tm.Zone()
	return Time{
		Year:       uint16(tm.Year()),
		Month:      uint8(tm.Month()),
		Day:        uint8(tm.Day()),
		Hour:       uint8(tm.Hour()),
		Minute:     uint8(tm.Minute()),
		Second:     uint8(tm.Second()),
		Nanosecond: uint32(tm.Nanosecond()),
		TimeZone:   int16(-offset / 60),
	}
}

// FileInfoHeader mirrors the fixed part of EFI_FILE_INFO. The NUL-terminated
// CHAR16 file name follows it directly.
type FileInfoHeader struct {
	Size             uint64
	FileSize         uint64
	PhysicalSize     uint64
	CreateTime       Time
	LastAccessTime   Time
	ModificationTime Time
	Attribute        Attribute
}

var timeFields = []layout.Field{
	layout.U16("Year"),
	layout.U8("Month"),
	layout.U8("Day"),
	layout.U8("Hour"),
	layout.U8("Minute"),
	layout.U8("Second"),
	layout.U8("Pad1"),
	layout.U32("Nanosecond"),
	layout.U16("TimeZone"),
	layout.U8("Daylight"),
	layout.U8("Pad2"),
}

// FileInfoContract is the declared EFI_FILE_INFO header layout.
var FileInfoContract = layout.Contract{
	Name: "file_info",
	Fields: []layout.Field{
		layout.U64("Size"),
		layout.U64("FileSize"),
		layout.U64("PhysicalSize"),
		layout.Struct("CreateTime", timeFields...),
		layout.Struct("LastAccessTime", timeFields...),
		layout.Struct("ModificationTime", timeFields...),
		layout.U64("Attribute"),
	},
}

// FileInfoHeaderSize is the offset of FileName in EFI_FILE_INFO.
const FileInfoHeaderSize = int(unsafe.Sizeof(FileInfoHeader{}))

// FileInfo is a decoded EFI_FILE_INFO.
type FileInfo struct {
	FileName         string
	CreateTime       Time
	LastAccessTime   Time
	ModificationTime Time
	FileSize         uint64
	PhysicalSize     uint64
	Attribute        Attribute
}

// IsDir reports whether the directory attribute is set.
func (fi *FileInfo) IsDir() bool {
	return fi.Attribute&AttrDirectory != 0
}

// FileInfoAt decodes the EFI_FILE_INFO at a firmware address. The record is
// copied; addr is not retained.
func FileInfoAt(addr uintptr) (*FileInfo, error) {
	hdr := layout.At[FileInfoHeader](addr)
	if hdr == nil {
		return nil, errors.NilPointer(errors.PhaseDecode, []string{"file_info"}, "record")
	}
	if hdr.Size < uint64(FileInfoHeaderSize) {
		return nil, errors.InvalidData(errors.PhaseDecode, []string{"file_info", "Size"},
			"record smaller than its header")
	}
	name, err := ucs2.FromPtr(addr + uintptr(FileInfoHeaderSize))
	if err != nil {
		return nil, err
	}
	return &FileInfo{
		FileName:         name,
		CreateTime:       hdr.CreateTime,
		LastAccessTime:   hdr.LastAccessTime,
		ModificationTime: hdr.ModificationTime,
		FileSize:         hdr.FileSize,
		PhysicalSize:     hdr.PhysicalSize,
		Attribute:        hdr.Attribute,
	}, nil
}

// MarshalBinary encodes fi as an EFI_FILE_INFO record, Size included.
func (fi *FileInfo) MarshalBinary() ([]byte, error) {
	name, err := ucs2.Encode(fi.FileName)
	if err != nil {
		return nil, err
	}
	hdr := FileInfoHeader{
		Size:             uint64(FileInfoHeaderSize + len(name)*2),
		FileSize:         fi.FileSize,
		PhysicalSize:     fi.PhysicalSize,
		CreateTime:       fi.CreateTime,
		LastAccessTime:   fi.LastAccessTime,
		ModificationTime: fi.ModificationTime,
		Attribute:        fi.Attribute,
	}
	buf := make([]byte, 0, hdr.Size)
	buf, err = binary.Append(buf, binary.LittleEndian, hdr)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseEncode, errors.KindInvalidInput, err, "file info header")
	}
	return binary.Append(buf, binary.LittleEndian, name)
}
