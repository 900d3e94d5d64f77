package emu

import (
	"errors"
	"os"
	"syscall"

	"github.com/wippyai/efi-runtime/status"
)

// mapOSError converts a host file system error into the status a firmware
// file system would report.
func mapOSError(err error) status.Status {
	if err == nil {
		return status.Success
	}
	if os.IsNotExist(err) {
		return status.NotFound
	}
	if os.IsPermission(err) {
		return status.AccessDenied
	}
	var pathErr *os.PathError
	if errors.As(err, &pathErr) {
		var errno syscall.Errno
		if errors.As(pathErr.Err, &errno) {
			return mapErrno(errno)
		}
	}
	return status.DeviceError
}

func mapErrno(errno syscall.Errno) status.Status {
	switch errno {
	case syscall.EACCES, syscall.EPERM:
		return status.AccessDenied
	case syscall.ENOENT, syscall.ENOTDIR:
		return status.NotFound
	case syscall.EROFS:
		return status.WriteProtected
	case syscall.ENOSPC:
		return status.VolumeFull
	case syscall.ENOMEM:
		return status.OutOfResources
	case syscall.EISDIR, syscall.EINVAL:
		return status.InvalidParameter
	default:
		return status.DeviceError
	}
}
