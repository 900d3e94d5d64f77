package status

// Category is the coarse failure class of a status code.
type Category uint8

const (
	CategoryNone Category = iota
	CategoryNotFound
	CategoryBufferTooSmall
	CategoryInvalidParameter
	CategoryAccessDenied
	CategoryDeviceError
	CategoryUnsupported
	CategoryOutOfResources
	CategoryOther
)

var categoryNames = [...]string{
	CategoryNone:             "none",
	CategoryNotFound:         "not_found",
	CategoryBufferTooSmall:   "buffer_too_small",
	CategoryInvalidParameter: "invalid_parameter",
	CategoryAccessDenied:     "access_denied",
	CategoryDeviceError:      "device_error",
	CategoryUnsupported:      "unsupported",
	CategoryOutOfResources:   "out_of_resources",
	CategoryOther:            "other",
}

func (c Category) String() string {
	if int(c) < len(categoryNames) {
		return categoryNames[c]
	}
	return "unknown"
}

// Status returns the canonical code for c. CategoryOther has no single code
// and reports false, as does CategoryNone.
func (c Category) Status() (Status, bool) {
	switch c {
	case CategoryNotFound:
		return NotFound, true
	case CategoryBufferTooSmall:
		return BufferTooSmall, true
	case CategoryInvalidParameter:
		return InvalidParameter, true
	case CategoryAccessDenied:
		return AccessDenied, true
	case CategoryDeviceError:
		return DeviceError, true
	case CategoryUnsupported:
		return Unsupported, true
	case CategoryOutOfResources:
		return OutOfResources, true
	default:
		return 0, false
	}
}
