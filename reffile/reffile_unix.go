//go:build !windows

package reffile

import (
	"os"
	"syscall"

	"github.com/spf13/afero"
	"golang.org/x/sys/unix"
)

// isDevice reports whether path names a block or character device via
// stat.
func isDevice(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	st, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return false
	}
	switch st.Mode & syscall.S_IFMT {
	case syscall.S_IFBLK, syscall.S_IFCHR:
		return true
	default:
		return false
	}
}

// deviceSize calls the Linux block-device size ioctl (BLKGETSIZE64)
// rather than seeking; seeking a block device to its end is unreliable.
func deviceSize(path string) (int64, error) {
	fd, err := unix.Open(path, unix.O_RDONLY, 0)
	if err != nil {
		return 0, err
	}
	defer unix.Close(fd)

	size, err := unix.IoctlGetInt(fd, unix.BLKGETSIZE64)
	if err != nil {
		return 0, err
	}
	return int64(size), nil
}

// makeSparse is the POSIX branch of sparse allocation: ftruncate to size.
// EINVAL/EFBIG are reported; any other error is swallowed so filesystems
// that don't support sparse files degrade to a plain copy.
func makeSparse(fs afero.Fs, path string, f afero.File, size int64) error {
	if err := f.Truncate(size); err != nil {
		if errno, ok := underlyingErrno(err); ok {
			switch errno {
			case syscall.EINVAL, syscall.EFBIG:
				return err
			}
		}
		return nil
	}
	return nil
}

func underlyingErrno(err error) (syscall.Errno, bool) {
	for {
		switch e := err.(type) {
		case syscall.Errno:
			return e, true
		case interface{ Unwrap() error }:
			err = e.Unwrap()
			if err == nil {
				return 0, false
			}
		default:
			return 0, false
		}
	}
}
