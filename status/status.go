package status

import (
	"fmt"
	"math/bits"
)

// Status is the native word returned by every firmware service.
type Status uintptr

// errorBit is the top bit of the native word; it marks error codes.
const errorBit Status = 1 << (bits.UintSize - 1)

// ErrorCode returns the status for error number n.
func ErrorCode(n uintptr) Status {
	return errorBit | Status(n)
}

// WarningCode returns the status for warning number n.
func WarningCode(n uintptr) Status {
	return Status(n) &^ errorBit
}

// Status codes from UEFI Appendix D.
const (
	Success Status = 0

	LoadError           = errorBit | 1
	InvalidParameter    = errorBit | 2
	Unsupported         = errorBit | 3
	BadBufferSize       = errorBit | 4
	BufferTooSmall      = errorBit | 5
	NotReady            = errorBit | 6
	DeviceError         = errorBit | 7
	WriteProtected      = errorBit | 8
	OutOfResources      = errorBit | 9
	VolumeCorrupted     = errorBit | 10
	VolumeFull          = errorBit | 11
	NoMedia             = errorBit | 12
	MediaChanged        = errorBit | 13
	NotFound            = errorBit | 14
	AccessDenied        = errorBit | 15
	NoResponse          = errorBit | 16
	NoMapping           = errorBit | 17
	Timeout             = errorBit | 18
	NotStarted          = errorBit | 19
	AlreadyStarted      = errorBit | 20
	Aborted             = errorBit | 21
	ICMPError           = errorBit | 22
	TFTPError           = errorBit | 23
	ProtocolError       = errorBit | 24
	IncompatibleVersion = errorBit | 25
	SecurityViolation   = errorBit | 26
	CRCError            = errorBit | 27
	EndOfMedia          = errorBit | 28
	EndOfFile           = errorBit | 31
	InvalidLanguage     = errorBit | 32
	CompromisedData     = errorBit | 33
	IPAddressConflict   = errorBit | 34
	HTTPError           = errorBit | 35

	WarnUnknownGlyph   Status = 1
	WarnDeleteFailure  Status = 2
	WarnWriteFailure   Status = 3
	WarnBufferTooSmall Status = 4
	WarnStaleData      Status = 5
	WarnFileSystem     Status = 6
	WarnResetRequired  Status = 7
)

var names = map[Status]string{
	Success:             "EFI_SUCCESS",
	LoadError:           "EFI_LOAD_ERROR",
	InvalidParameter:    "EFI_INVALID_PARAMETER",
	Unsupported:         "EFI_UNSUPPORTED",
	BadBufferSize:       "EFI_BAD_BUFFER_SIZE",
	BufferTooSmall:      "EFI_BUFFER_TOO_SMALL",
	NotReady:            "EFI_NOT_READY",
	DeviceError:         "EFI_DEVICE_ERROR",
	WriteProtected:      "EFI_WRITE_PROTECTED",
	OutOfResources:      "EFI_OUT_OF_RESOURCES",
	VolumeCorrupted:     "EFI_VOLUME_CORRUPTED",
	VolumeFull:          "EFI_VOLUME_FULL",
	NoMedia:             "EFI_NO_MEDIA",
	MediaChanged:        "EFI_MEDIA_CHANGED",
	NotFound:            "EFI_NOT_FOUND",
	AccessDenied:        "EFI_ACCESS_DENIED",
	NoResponse:          "EFI_NO_RESPONSE",
	NoMapping:           "EFI_NO_MAPPING",
	Timeout:             "EFI_TIMEOUT",
	NotStarted:          "EFI_NOT_STARTED",
	AlreadyStarted:      "EFI_ALREADY_STARTED",
	Aborted:             "EFI_ABORTED",
	ICMPError:           "EFI_ICMP_ERROR",
	TFTPError:           "EFI_TFTP_ERROR",
	ProtocolError:       "EFI_PROTOCOL_ERROR",
	IncompatibleVersion: "EFI_INCOMPATIBLE_VERSION",
	SecurityViolation:   "EFI_SECURITY_VIOLATION",
	CRCError:            "EFI_CRC_ERROR",
	EndOfMedia:          "EFI_END_OF_MEDIA",
	EndOfFile:           "EFI_END_OF_FILE",
	InvalidLanguage:     "EFI_INVALID_LANGUAGE",
	CompromisedData:     "EFI_COMPROMISED_DATA",
	IPAddressConflict:   "EFI_IP_ADDRESS_CONFLICT",
	HTTPError:           "EFI_HTTP_ERROR",
	WarnUnknownGlyph:    "EFI_WARN_UNKNOWN_GLYPH",
	WarnDeleteFailure:   "EFI_WARN_DELETE_FAILURE",
	WarnWriteFailure:    "EFI_WARN_WRITE_FAILURE",
	WarnBufferTooSmall:  "EFI_WARN_BUFFER_TOO_SMALL",
	WarnStaleData:       "EFI_WARN_STALE_DATA",
	WarnFileSystem:      "EFI_WARN_FILE_SYSTEM",
	WarnResetRequired:   "EFI_WARN_RESET_REQUIRED",
}

// IsSuccess reports whether s is EFI_SUCCESS.
func (s Status) IsSuccess() bool {
	return s == Success
}

// IsError reports whether the error bit is set.
func (s Status) IsError() bool {
	return s&errorBit != 0
}

// IsWarning reports whether s is a non-zero code without the error bit.
func (s Status) IsWarning() bool {
	return s != Success && !s.IsError()
}

// Code returns the status number with the error bit cleared.
func (s Status) Code() uintptr {
	return uintptr(s &^ errorBit)
}

// Category classifies s. Success has no category and reports CategoryNone.
func (s Status) Category() Category {
	switch s {
	case Success:
		return CategoryNone
	case NotFound:
		return CategoryNotFound
	case BufferTooSmall:
		return CategoryBufferTooSmall
	case InvalidParameter:
		return CategoryInvalidParameter
	case AccessDenied:
		return CategoryAccessDenied
	case DeviceError:
		return CategoryDeviceError
	case Unsupported:
		return CategoryUnsupported
	case OutOfResources:
		return CategoryOutOfResources
	default:
		return CategoryOther
	}
}

// Err returns nil for Success and a *Error carrying s otherwise.
func (s Status) Err() error {
	if s == Success {
		return nil
	}
	return &Error{Status: s}
}

func (s Status) String() string {
	if name, ok := names[s]; ok {
		return name
	}
	if s.IsError() {
		return fmt.Sprintf("EFI error %d", s.Code())
	}
	return fmt.Sprintf("EFI warning %d", s.Code())
}
