//go:build windows

package reffile

import (
	"strings"

	"github.com/spf13/afero"
)

// isDevice reports whether path names a Windows physical drive, e.g.
// `\\.\PhysicalDrive0`.
func isDevice(path string) bool {
	return strings.HasPrefix(path, `\\.\PhysicalDrive`)
}

// deviceSize is not implemented for the Windows physical-drive ioctl path
// in this library; device size queries on Windows are left to a caller
// with access to IOCTL_DISK_GET_LENGTH_INFO.
func deviceSize(path string) (int64, error) {
	return 0, errUnsupportedPlatform
}

// makeSparse falls back to a plain truncate on Windows, leaving
// FSCTL_SET_SPARSE filesystem-control marking to a caller that wants it.
func makeSparse(fs afero.Fs, path string, f afero.File, size int64) error {
	return f.Truncate(size)
}

var errUnsupportedPlatform = &platformError{"reffile: device size query not implemented on windows"}

type platformError struct{ msg string }

func (e *platformError) Error() string { return e.msg }
